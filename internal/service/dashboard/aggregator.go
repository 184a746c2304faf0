// Package dashboard fetches a user's data in parallel and derives the dashboard view.
package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/metrics"
	"contractorvet/pkg/otel"
)

type ProjectReader interface {
	ListWithMilestones(ctx context.Context, userID string) ([]model.Project, error)
}

type MetricReader interface {
	ListSince(ctx context.Context, userID string, since time.Time) ([]model.DashboardMetric, error)
}

type ActivityReader interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]model.Activity, error)
}

type NotificationReader interface {
	ListUnread(ctx context.Context, userID string) ([]model.Notification, error)
}

type AchievementReader interface {
	ListEarned(ctx context.Context, userID string) ([]model.EarnedAchievement, error)
}

type ReviewReader interface {
	ListByUser(ctx context.Context, userID string) ([]model.Review, error)
}

type ReferralReader interface {
	ListByReferrer(ctx context.Context, referrerID string) ([]model.Referral, error)
}

// Readers 是 dashboard 需要的七个读接口
type Readers struct {
	Projects      ProjectReader
	Metrics       MetricReader
	Activities    ActivityReader
	Notifications NotificationReader
	Achievements  AchievementReader
	Reviews       ReviewReader
	Referrals     ReferralReader
}

type Options struct {
	MetricsWindow time.Duration
	ActivityLimit int
}

type Aggregator struct {
	readers Readers
	opts    Options
	now     func() time.Time
	logger  *zap.Logger
}

func NewAggregator(readers Readers, opts Options, logger *zap.Logger) *Aggregator {
	if opts.MetricsWindow <= 0 {
		opts.MetricsWindow = 30 * 24 * time.Hour
	}
	if opts.ActivityLimit <= 0 {
		opts.ActivityLimit = 20
	}
	return &Aggregator{
		readers: readers,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// Get 并行读取七类数据，任一失败则整个请求失败，不返回部分结果
func (a *Aggregator) Get(ctx context.Context, userID string) (*View, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}

	start := time.Now()
	now := a.now()
	log := logger.WithTrace(ctx, a.logger).With(zap.String("user_id", userID))

	snap, err := a.fetch(ctx, userID, now)
	if err != nil {
		metrics.RecordDashboardBuild("failed", time.Since(start))
		log.Error("Failed to fetch dashboard data", zap.Error(err))
		return nil, apperr.Store("fetch dashboard data", err)
	}

	view := Build(now, snap)
	metrics.RecordDashboardBuild("success", time.Since(start))
	log.Debug("Dashboard built",
		zap.Int("projects", len(snap.Projects)),
		zap.Int("insights", len(view.Insights)),
		zap.Duration("took", time.Since(start)),
	)
	return &view, nil
}

func (a *Aggregator) fetch(ctx context.Context, userID string, now time.Time) (Snapshot, error) {
	var s Snapshot
	g, gctx := errgroup.WithContext(ctx)

	read := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			spanCtx, span := otel.StartSpan(gctx, "dashboard.read."+name)
			defer span.End()
			return fn(spanCtx)
		})
	}

	since := model.MetricDay(now.Add(-a.opts.MetricsWindow))

	read("projects", func(ctx context.Context) (err error) {
		s.Projects, err = a.readers.Projects.ListWithMilestones(ctx, userID)
		return err
	})
	read("metrics", func(ctx context.Context) (err error) {
		s.Metrics, err = a.readers.Metrics.ListSince(ctx, userID, since)
		return err
	})
	read("activities", func(ctx context.Context) (err error) {
		s.Activities, err = a.readers.Activities.ListRecent(ctx, userID, a.opts.ActivityLimit)
		return err
	})
	read("notifications", func(ctx context.Context) (err error) {
		s.Notifications, err = a.readers.Notifications.ListUnread(ctx, userID)
		return err
	})
	read("achievements", func(ctx context.Context) (err error) {
		s.Achievements, err = a.readers.Achievements.ListEarned(ctx, userID)
		return err
	})
	read("reviews", func(ctx context.Context) (err error) {
		s.Reviews, err = a.readers.Reviews.ListByUser(ctx, userID)
		return err
	})
	read("referrals", func(ctx context.Context) (err error) {
		s.Referrals, err = a.readers.Referrals.ListByReferrer(ctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
