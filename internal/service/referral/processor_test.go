package referral

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/repository"
	"contractorvet/internal/service/activity"
)

// memStore 模拟 referrals 表和守卫式 UPDATE
type memStore struct {
	mu   sync.Mutex
	rows map[string]*model.Referral
	seq  int
	err  error
}

func newMemStore() *memStore { return &memStore{rows: map[string]*model.Referral{}} }

func (m *memStore) HasPending(_ context.Context, referrerID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, r := range m.rows {
		if r.ReferrerID == referrerID && r.RefereeEmail == email && r.Status == model.ReferralStatusSent {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(_ context.Context, ref *model.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref.ID = uuid.NewString()
	ref.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *ref
	m.rows[ref.ID] = &cp
	return nil
}

func (m *memStore) FindPendingByEmail(_ context.Context, email string, now time.Time) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var candidates []*model.Referral
	for _, r := range m.rows {
		if r.RefereeEmail == email && r.Status == model.ReferralStatusSent && r.ExpiresAt.After(now) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAt.Before(candidates[j].CreatedAt) })
	cp := *candidates[0]
	return &cp, nil
}

func (m *memStore) MarkSignedUp(_ context.Context, id, refereeID string, at time.Time) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != model.ReferralStatusSent {
		return nil, repository.ErrNotFound
	}
	r.Status = model.ReferralStatusSignedUp
	r.RefereeID = &refereeID
	r.ConversionDate = &at
	r.Metadata.SignedUpAt = &at
	cp := *r
	return &cp, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id, refereeID string, at time.Time) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != model.ReferralStatusSignedUp {
		return nil, repository.ErrNotFound
	}
	if refereeID != "" && (r.RefereeID == nil || *r.RefereeID != refereeID) {
		return nil, repository.ErrNotFound
	}
	r.Status = model.ReferralStatusCompleted
	r.Metadata.CompletedAt = &at
	cp := *r
	return &cp, nil
}

type fakeNotifications struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (f *fakeNotifications) Insert(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *n)
	return nil
}

func (f *fakeNotifications) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

func (f *fakeNotifications) countFor(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type fakeTracker struct {
	inputs []activity.Input
	err    error
}

func (f *fakeTracker) Track(_ context.Context, in activity.Input) (*model.Activity, error) {
	f.inputs = append(f.inputs, in)
	return &model.Activity{}, f.err
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newProcessor() (*Processor, *memStore, *fakeNotifications, *fakeTracker) {
	store := newMemStore()
	notes := &fakeNotifications{}
	tracker := &fakeTracker{}
	p := NewProcessor(store, notes, tracker, Reward{Amount: 25, Type: "credit", Expiry: 30 * 24 * time.Hour}, zap.NewNop())
	p.now = func() time.Time { return fixedNow }
	return p, store, notes, tracker
}

func TestReferralLifecycle(t *testing.T) {
	p, store, notes, tracker := newProcessor()
	ctx := context.Background()

	sent, err := p.Send(ctx, "userA", "X@Example.com ")
	require.NoError(t, err)
	assert.Len(t, sent.InviteCode, 8)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), sent.ExpiresAt)
	assert.Equal(t, 25.0, sent.RewardAmount)
	require.Len(t, tracker.inputs, 1)
	assert.Equal(t, model.ActionReferralSent, tracker.inputs[0].Action)

	_, err = p.Send(ctx, "userA", "x@example.com")
	assert.Equal(t, apperr.KindDuplicateReferral, apperr.KindOf(err))

	ref, err := p.TrackSignup(ctx, "userB", "x@example.com")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, model.ReferralStatusSignedUp, ref.Status)
	require.NotNil(t, ref.RefereeID)
	assert.Equal(t, "userB", *ref.RefereeID)
	assert.Equal(t, sent.ReferralID, ref.ID)

	notes.reset()
	conv, err := p.TrackConversion(ctx, sent.ReferralID, "")
	require.NoError(t, err)
	assert.Equal(t, 25.0, conv.RewardAmount)
	assert.Equal(t, "credit", conv.RewardType)
	assert.Equal(t, model.ReferralStatusCompleted, store.rows[sent.ReferralID].Status)
	assert.Equal(t, 1, notes.countFor("userA"))
	assert.Equal(t, 1, notes.countFor("userB"))
}

func TestTrackConversion_RequiresSignedUp(t *testing.T) {
	p, _, _, _ := newProcessor()
	ctx := context.Background()

	sent, err := p.Send(ctx, "userA", "x@example.com")
	require.NoError(t, err)

	_, err = p.TrackConversion(ctx, sent.ReferralID, "")
	assert.Equal(t, apperr.KindReferralNotFound, apperr.KindOf(err))

	_, err = p.TrackConversion(ctx, uuid.NewString(), "")
	assert.Equal(t, apperr.KindReferralNotFound, apperr.KindOf(err))

	_, err = p.TrackConversion(ctx, "not-a-uuid", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTrackConversion_ScopedToReferee(t *testing.T) {
	p, _, _, _ := newProcessor()
	ctx := context.Background()

	sent, err := p.Send(ctx, "userA", "x@example.com")
	require.NoError(t, err)
	_, err = p.TrackSignup(ctx, "userB", "x@example.com")
	require.NoError(t, err)

	_, err = p.TrackConversion(ctx, sent.ReferralID, "userC")
	assert.Equal(t, apperr.KindReferralNotFound, apperr.KindOf(err))

	_, err = p.TrackConversion(ctx, sent.ReferralID, "userB")
	assert.NoError(t, err)

	// 已完成的不能再次转化
	_, err = p.TrackConversion(ctx, sent.ReferralID, "")
	assert.Equal(t, apperr.KindReferralNotFound, apperr.KindOf(err))
}

func TestTrackSignup_NoPendingIsSilent(t *testing.T) {
	p, _, notes, _ := newProcessor()

	ref, err := p.TrackSignup(context.Background(), "userB", "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, ref)
	assert.Empty(t, notes.sent)
}

func TestTrackSignup_SkipsExpired(t *testing.T) {
	p, store, _, _ := newProcessor()
	ctx := context.Background()

	sent, err := p.Send(ctx, "userA", "x@example.com")
	require.NoError(t, err)
	store.rows[sent.ReferralID].ExpiresAt = fixedNow.Add(-time.Minute)

	ref, err := p.TrackSignup(ctx, "userB", "x@example.com")
	assert.NoError(t, err)
	assert.Nil(t, ref)
}

func TestTrackSignup_PicksOldestPending(t *testing.T) {
	p, _, _, _ := newProcessor()
	ctx := context.Background()

	first, err := p.Send(ctx, "userA", "x@example.com")
	require.NoError(t, err)
	_, err = p.Send(ctx, "userC", "x@example.com")
	require.NoError(t, err)

	ref, err := p.TrackSignup(ctx, "userB", "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ReferralID, ref.ID)
}

func TestSend_Validation(t *testing.T) {
	p, _, _, _ := newProcessor()

	_, err := p.Send(context.Background(), "userA", "not-an-email")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = p.Send(context.Background(), "", "x@example.com")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestSend_StoreError(t *testing.T) {
	p, store, _, _ := newProcessor()
	store.err = errors.New("db down")

	_, err := p.Send(context.Background(), "userA", "x@example.com")
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	p, store, notes, tracker := newProcessor()
	notes.err = errors.New("notifications unavailable")
	tracker.err = errors.New("tracking unavailable")
	ctx := context.Background()

	sent, err := p.Send(ctx, "userA", "x@example.com")
	require.NoError(t, err)
	_, err = p.TrackSignup(ctx, "userB", "x@example.com")
	require.NoError(t, err)
	_, err = p.TrackConversion(ctx, sent.ReferralID, "")
	require.NoError(t, err)

	assert.Equal(t, model.ReferralStatusCompleted, store.rows[sent.ReferralID].Status)
}

type dupOnInsert struct{ *memStore }

func (d dupOnInsert) Insert(context.Context, *model.Referral) error {
	return repository.ErrDuplicate
}

func TestSend_UniqueIndexBackstop(t *testing.T) {
	p, store, _, _ := newProcessor()
	p.store = dupOnInsert{store}

	_, err := p.Send(context.Background(), "userA", "x@example.com")
	assert.Equal(t, apperr.KindDuplicateReferral, apperr.KindOf(err))
}

func TestFormatReward(t *testing.T) {
	assert.Equal(t, "$25 credit", formatReward(25, "credit"))
	assert.Equal(t, "10.00 points", formatReward(10, "points"))
}
