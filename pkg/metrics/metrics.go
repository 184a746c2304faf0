package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	// 慢查询计数
	DBSlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// Dashboard 聚合耗时（秒）
	DashboardBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_build_duration_seconds",
			Help:    "Time to fetch and derive a user dashboard",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"status"},
	)

	// 指标写入计数
	MetricRecordCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metric_record_total",
			Help: "Dashboard metric upserts by metric name and outcome",
		},
		[]string{"metric", "status"}, // status: success, failed
	)

	// 成就发放计数
	AchievementGrantedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_granted_total",
			Help: "Achievements granted to users",
		},
		[]string{"achievement"},
	)

	// 推荐状态流转计数
	ReferralTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_transitions_total",
			Help: "Referral state transitions by target state",
		},
		[]string{"to"},
	)

	// 副作用分发方式计数
	SideEffectDispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "side_effect_dispatch_total",
			Help: "Activity side-effect dispatches by mode",
		},
		[]string{"mode"}, // mode: queue, inline
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation string) {
	DBSlowQueryCount.WithLabelValues(operation).Inc()
}

// RecordDashboardBuild 记录 dashboard 聚合耗时
func RecordDashboardBuild(status string, duration time.Duration) {
	DashboardBuildDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncrementMetricRecord 增加指标写入计数
func IncrementMetricRecord(metric, status string) {
	MetricRecordCount.WithLabelValues(metric, status).Inc()
}

// IncrementAchievementGranted 增加成就发放计数
func IncrementAchievementGranted(achievement string) {
	AchievementGrantedCount.WithLabelValues(achievement).Inc()
}

// IncrementReferralTransition 增加推荐状态流转计数
func IncrementReferralTransition(to string) {
	ReferralTransitionCount.WithLabelValues(to).Inc()
}

// IncrementSideEffectDispatch 增加副作用分发计数
func IncrementSideEffectDispatch(mode string) {
	SideEffectDispatchCount.WithLabelValues(mode).Inc()
}
