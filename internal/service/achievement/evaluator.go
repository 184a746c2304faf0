// Package achievement grants catalog achievements in response to tracked actions.
package achievement

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"contractorvet/internal/model"
	"contractorvet/internal/repository"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/metrics"
)

type Store interface {
	FindByName(ctx context.Context, name string) (*model.Achievement, error)
	HasEarned(ctx context.Context, userID, achievementID string) (bool, error)
	Grant(ctx context.Context, userID, achievementID string) (bool, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

type MetricTotals interface {
	Total(ctx context.Context, userID string, name model.MetricName) (float64, error)
}

// threshold 计数类成就：指标累计值达到 Min 才授予
type threshold struct {
	Metric model.MetricName
	Min    float64
}

type rule struct {
	Achievement string
	Threshold   *threshold
}

var rules = map[string]rule{
	model.ActionProjectCreated:   {Achievement: model.AchievementFirstProject},
	model.ActionReviewCreated:    {Achievement: model.AchievementFirstReview},
	model.ActionProjectCompleted: {Achievement: model.AchievementProjectFinisher},
	model.ActionReferralSent: {
		Achievement: model.AchievementReferralChampion,
		Threshold:   &threshold{Metric: model.MetricReferralsSent, Min: 5},
	},
}

type Evaluator struct {
	store         Store
	notifications NotificationStore
	totals        MetricTotals
	logger        *zap.Logger
}

func NewEvaluator(store Store, notifications NotificationStore, totals MetricTotals, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		store:         store,
		notifications: notifications,
		totals:        totals,
		logger:        logger,
	}
}

// OnAction 判定并授予成就。所有错误只记录日志，不重试也不返回。
func (e *Evaluator) OnAction(ctx context.Context, userID, action, resourceType string) {
	log := logger.WithTrace(ctx, e.logger).With(
		zap.String("user_id", userID),
		zap.String("action", action),
		zap.String("resource_type", resourceType),
	)

	granted, err := e.evaluate(ctx, userID, action)
	if err != nil {
		log.Error("Achievement evaluation failed", zap.Error(err))
		return
	}
	if granted != nil {
		log.Info("Achievement granted", zap.String("achievement", granted.Name))
	}
}

// evaluate 返回本次新授予的成就；没有授予时返回 nil
func (e *Evaluator) evaluate(ctx context.Context, userID, action string) (*model.Achievement, error) {
	r, ok := rules[action]
	if !ok {
		return nil, nil
	}

	if r.Threshold != nil {
		total, err := e.totals.Total(ctx, userID, r.Threshold.Metric)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Threshold.Metric, err)
		}
		if total < r.Threshold.Min {
			return nil, nil
		}
	}

	a, err := e.store.FindByName(ctx, r.Achievement)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("achievement %q missing from catalog", r.Achievement)
		}
		return nil, err
	}

	earned, err := e.store.HasEarned(ctx, userID, a.ID)
	if err != nil {
		return nil, err
	}
	if earned {
		return nil, nil
	}

	// 并发时只有插入成功的一方发通知
	inserted, err := e.store.Grant(ctx, userID, a.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}
	metrics.IncrementAchievementGranted(a.Name)

	n := &model.Notification{
		UserID:   userID,
		Type:     model.NotificationTypeAchievement,
		Title:    "Achievement Unlocked!",
		Message:  fmt.Sprintf("You earned %s (+%d points)", a.Name, a.Points),
		Priority: model.PriorityNormal,
	}
	if err := e.notifications.Insert(ctx, n); err != nil {
		// 授予已经生效，通知失败不回滚
		logger.WithTrace(ctx, e.logger).Error("Failed to create achievement notification",
			zap.String("user_id", userID),
			zap.String("achievement", a.Name),
			zap.Error(err),
		)
	}
	return a, nil
}
