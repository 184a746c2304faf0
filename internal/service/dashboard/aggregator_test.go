package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
)

type fakeReaders struct {
	projects []model.Project
	since    time.Time
	limit    int
	failOn   string
}

var errRead = errors.New("relation does not exist")

func (f *fakeReaders) fail(name string) error {
	if f.failOn == name {
		return errRead
	}
	return nil
}

func (f *fakeReaders) ListWithMilestones(context.Context, string) ([]model.Project, error) {
	return f.projects, f.fail("projects")
}

func (f *fakeReaders) ListSince(_ context.Context, _ string, since time.Time) ([]model.DashboardMetric, error) {
	f.since = since
	return nil, f.fail("metrics")
}

func (f *fakeReaders) ListRecent(_ context.Context, _ string, limit int) ([]model.Activity, error) {
	f.limit = limit
	return nil, f.fail("activities")
}

func (f *fakeReaders) ListUnread(context.Context, string) ([]model.Notification, error) {
	return nil, f.fail("notifications")
}

func (f *fakeReaders) ListEarned(context.Context, string) ([]model.EarnedAchievement, error) {
	return nil, f.fail("achievements")
}

func (f *fakeReaders) ListByUser(context.Context, string) ([]model.Review, error) {
	return nil, f.fail("reviews")
}

func (f *fakeReaders) ListByReferrer(context.Context, string) ([]model.Referral, error) {
	return nil, f.fail("referrals")
}

func newAggregator(f *fakeReaders) *Aggregator {
	a := NewAggregator(Readers{
		Projects:      f,
		Metrics:       f,
		Activities:    f,
		Notifications: f,
		Achievements:  f,
		Reviews:       f,
		Referrals:     f,
	}, Options{}, zap.NewNop())
	a.now = func() time.Time { return now }
	return a
}

func TestGet_RequiresUser(t *testing.T) {
	_, err := newAggregator(&fakeReaders{}).Get(context.Background(), "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestGet_BuildsView(t *testing.T) {
	f := &fakeReaders{projects: []model.Project{
		{ID: "p1", Status: model.ProjectStatusActive, TotalCost: 10000, PaidAmount: 12000},
	}}

	v, err := newAggregator(f).Get(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, v.Stats.ActiveProjects)
	require.Len(t, v.Insights, 1)
	assert.Equal(t, InsightWarning, v.Insights[0].Type)
	assert.Equal(t, 20, f.limit)
	assert.Equal(t, model.MetricDay(now.Add(-30*24*time.Hour)), f.since)
}

func TestGet_AnyReadFailureFailsWholeCall(t *testing.T) {
	for _, name := range []string{"projects", "metrics", "activities", "notifications", "achievements", "reviews", "referrals"} {
		t.Run(name, func(t *testing.T) {
			v, err := newAggregator(&fakeReaders{failOn: name}).Get(context.Background(), "u1")
			assert.Nil(t, v)
			assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
			assert.ErrorIs(t, err, errRead)
		})
	}
}
