package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "contractorvet/contracts/mq"
	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/pkg/circuitbreaker"
	"contractorvet/pkg/trace"
)

type fakeStore struct {
	inserted []model.Activity
	err      error
}

func (f *fakeStore) Insert(_ context.Context, a *model.Activity) error {
	if f.err != nil {
		return f.err
	}
	a.ID = "act-1"
	a.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f.inserted = append(f.inserted, *a)
	return nil
}

type recordingEffects struct {
	mu       sync.Mutex
	payloads []mqcontracts.ActivityRecordedPayload
	done     chan struct{}
}

func newRecordingEffects() *recordingEffects {
	return &recordingEffects{done: make(chan struct{}, 16)}
}

func (r *recordingEffects) Dispatch(_ context.Context, p mqcontracts.ActivityRecordedPayload) {
	r.Apply(context.Background(), p)
}

func (r *recordingEffects) Apply(_ context.Context, p mqcontracts.ActivityRecordedPayload) {
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingEffects) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestTrack_RecordsAndDispatches(t *testing.T) {
	store := &fakeStore{}
	effects := newRecordingEffects()
	tr := NewTracker(store, effects, zap.NewNop())

	ctx := trace.WithContext(context.Background(), "trace-1")
	a, err := tr.Track(ctx, Input{
		UserID:       "u1",
		Action:       model.ActionProjectCreated,
		ResourceType: "project",
		ResourceID:   "p1",
		Metadata:     map[string]interface{}{"source": "wizard"},
		IP:           "10.0.0.1",
		UserAgent:    "test",
	})
	require.NoError(t, err)
	assert.Equal(t, "act-1", a.ID)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "project", *store.inserted[0].ResourceType)
	assert.Equal(t, "10.0.0.1", store.inserted[0].IPAddress)

	require.Equal(t, 1, effects.count())
	p := effects.payloads[0]
	assert.NotEmpty(t, p.EventID)
	assert.Equal(t, "act-1", p.ActivityID)
	assert.Equal(t, model.ActionProjectCreated, p.Action)
	assert.Equal(t, "trace-1", p.TraceID)
	assert.Equal(t, a.CreatedAt, p.OccurredAt)
}

func TestTrack_OptionalFieldsStayNil(t *testing.T) {
	store := &fakeStore{}
	tr := NewTracker(store, newRecordingEffects(), zap.NewNop())

	_, err := tr.Track(context.Background(), Input{UserID: "u1", Action: model.ActionPageView})
	require.NoError(t, err)
	assert.Nil(t, store.inserted[0].ResourceType)
	assert.Nil(t, store.inserted[0].ResourceID)
}

func TestTrack_Errors(t *testing.T) {
	effects := newRecordingEffects()

	_, err := NewTracker(&fakeStore{}, effects, zap.NewNop()).Track(context.Background(), Input{Action: "x"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = NewTracker(&fakeStore{}, effects, zap.NewNop()).Track(context.Background(), Input{UserID: "u1"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = NewTracker(&fakeStore{err: errors.New("down")}, effects, zap.NewNop()).
		Track(context.Background(), Input{UserID: "u1", Action: "x"})
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))

	assert.Zero(t, effects.count())
}

type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	err       error
	published []any
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakePublisher) IsConnected() bool { return f.connected }

func TestDispatch_PublishesWhenConnected(t *testing.T) {
	pub := &fakePublisher{connected: true}
	effects := newRecordingEffects()
	d := NewDispatcher(pub, nil, effects, zap.NewNop())

	d.Dispatch(context.Background(), mqcontracts.ActivityRecordedPayload{EventID: "e1"})
	d.Wait()

	assert.Len(t, pub.published, 1)
	assert.Zero(t, effects.count())
}

func TestDispatch_FallsBackInline(t *testing.T) {
	cases := map[string]*fakePublisher{
		"disconnected":  {connected: false},
		"publish error": {connected: true, err: errors.New("channel closed")},
	}
	for name, pub := range cases {
		t.Run(name, func(t *testing.T) {
			effects := newRecordingEffects()
			d := NewDispatcher(pub, nil, effects, zap.NewNop())

			d.Dispatch(context.Background(), mqcontracts.ActivityRecordedPayload{EventID: "e1"})
			d.Wait()

			assert.Equal(t, 1, effects.count())
		})
	}

	effects := newRecordingEffects()
	d := NewDispatcher(nil, nil, effects, zap.NewNop())
	d.Dispatch(context.Background(), mqcontracts.ActivityRecordedPayload{EventID: "e1"})
	d.Wait()
	assert.Equal(t, 1, effects.count())
}

func TestDispatch_OpenBreakerSkipsPublish(t *testing.T) {
	pub := &fakePublisher{connected: true, err: errors.New("nack")}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})
	effects := newRecordingEffects()
	d := NewDispatcher(pub, breaker, effects, zap.NewNop())

	d.Dispatch(context.Background(), mqcontracts.ActivityRecordedPayload{EventID: "e1"})
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	pub.err = nil
	d.Dispatch(context.Background(), mqcontracts.ActivityRecordedPayload{EventID: "e2"})
	d.Wait()

	assert.Empty(t, pub.published)
	assert.Equal(t, 2, effects.count())
}

func TestDispatch_InlineOutlivesRequestContext(t *testing.T) {
	effects := newRecordingEffects()
	d := NewDispatcher(nil, nil, &ctxCheckingApplier{effects: effects}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, mqcontracts.ActivityRecordedPayload{EventID: "e1"})
	d.Wait()

	assert.Equal(t, 1, effects.count())
}

type ctxCheckingApplier struct {
	effects *recordingEffects
}

func (c *ctxCheckingApplier) Apply(ctx context.Context, p mqcontracts.ActivityRecordedPayload) {
	if ctx.Err() == nil {
		c.effects.Apply(ctx, p)
	}
}

type fakeRecorder struct{ calls []string }

func (f *fakeRecorder) RecordAction(_ context.Context, userID, action string, _ map[string]interface{}, _ time.Time) {
	f.calls = append(f.calls, "record:"+action)
}

type fakeEvaluator struct{ calls *[]string }

func (f fakeEvaluator) OnAction(_ context.Context, userID, action, resourceType string) {
	*f.calls = append(*f.calls, "evaluate:"+action)
}

func TestEffects_RecordsBeforeEvaluating(t *testing.T) {
	rec := &fakeRecorder{}
	e := NewEffects(rec, fakeEvaluator{calls: &rec.calls})

	e.Apply(context.Background(), mqcontracts.ActivityRecordedPayload{UserID: "u1", Action: model.ActionReferralSent})

	assert.Equal(t, []string{"record:referral_sent", "evaluate:referral_sent"}, rec.calls)
}
