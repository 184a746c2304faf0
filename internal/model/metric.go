package model

import (
	"fmt"
	"time"
)

// MetricName 是封闭的指标名集合，拼写错误不会悄悄产生新的指标序列
type MetricName string

const (
	MetricTotalProjects       MetricName = "total_projects"
	MetricActiveProjects      MetricName = "active_projects"
	MetricCompletedProjects   MetricName = "completed_projects"
	MetricTotalSavings        MetricName = "total_savings"
	MetricPageViews           MetricName = "page_views"
	MetricReferralsSent       MetricName = "referrals_sent"
	MetricReviewsWritten      MetricName = "reviews_written"
	MetricMilestonesCompleted MetricName = "milestones_completed"
)

var metricNames = map[MetricName]struct{}{
	MetricTotalProjects:       {},
	MetricActiveProjects:      {},
	MetricCompletedProjects:   {},
	MetricTotalSavings:        {},
	MetricPageViews:           {},
	MetricReferralsSent:       {},
	MetricReviewsWritten:      {},
	MetricMilestonesCompleted: {},
}

func ParseMetricName(s string) (MetricName, error) {
	name := MetricName(s)
	if _, ok := metricNames[name]; !ok {
		return "", fmt.Errorf("unknown metric name %q", s)
	}
	return name, nil
}

type DashboardMetric struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	MetricName MetricName `json:"metric_name"`
	Date       time.Time  `json:"metric_date"`
	Value      float64    `json:"metric_value"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MetricDay 把时间截断到 UTC 自然日
func MetricDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
