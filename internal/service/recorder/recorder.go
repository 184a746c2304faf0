// Package recorder accumulates per-user daily dashboard metrics.
package recorder

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"contractorvet/internal/model"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/metrics"
)

type MetricStore interface {
	Add(ctx context.Context, userID string, name model.MetricName, day time.Time, delta float64) error
	Total(ctx context.Context, userID string, name model.MetricName) (float64, error)
}

type Recorder struct {
	store  MetricStore
	logger *zap.Logger
}

func New(store MetricStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record 把 delta 累加到 (user, name, date 所在的 UTC 日)。
// 失败只记录日志，不返回给调用方。
func (r *Recorder) Record(ctx context.Context, userID string, name model.MetricName, delta float64, date time.Time) {
	if err := r.store.Add(ctx, userID, name, model.MetricDay(date), delta); err != nil {
		metrics.IncrementMetricRecord(string(name), "failed")
		logger.WithTrace(ctx, r.logger).Error("Failed to record metric",
			zap.String("user_id", userID),
			zap.String("metric", string(name)),
			zap.Float64("delta", delta),
			zap.Error(err),
		)
		return
	}
	metrics.IncrementMetricRecord(string(name), "success")
}

type Delta struct {
	Name  model.MetricName
	Value float64
}

// Deltas 行为对应的指标增量；未知行为返回 nil
func Deltas(action string, metadata map[string]interface{}) []Delta {
	switch action {
	case model.ActionProjectCreated:
		return []Delta{{model.MetricTotalProjects, 1}, {model.MetricActiveProjects, 1}}
	case model.ActionProjectCompleted:
		return []Delta{{model.MetricCompletedProjects, 1}, {model.MetricActiveProjects, -1}}
	case model.ActionReviewCreated:
		return []Delta{{model.MetricReviewsWritten, 1}}
	case model.ActionReferralSent:
		return []Delta{{model.MetricReferralsSent, 1}}
	case model.ActionMilestoneCompleted:
		return []Delta{{model.MetricMilestonesCompleted, 1}}
	case model.ActionPageView:
		return []Delta{{model.MetricPageViews, 1}}
	case model.ActionSavingsRecorded:
		if amount, ok := amountOf(metadata); ok {
			return []Delta{{model.MetricTotalSavings, amount}}
		}
	}
	return nil
}

// RecordAction 按行为累加对应的指标
func (r *Recorder) RecordAction(ctx context.Context, userID, action string, metadata map[string]interface{}, at time.Time) {
	for _, d := range Deltas(action, metadata) {
		r.Record(ctx, userID, d.Name, d.Value, at)
	}
}

// Total 指标在所有日期上的累计值
func (r *Recorder) Total(ctx context.Context, userID string, name model.MetricName) (float64, error) {
	return r.store.Total(ctx, userID, name)
}

func amountOf(metadata map[string]interface{}) (float64, bool) {
	switch v := metadata["amount"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
