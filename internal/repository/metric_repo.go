package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type MetricRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMetricRepository(db *pgxpool.Pool, logger *zap.Logger) *MetricRepository {
	return &MetricRepository{db: db, logger: logger}
}

// Add 原子地累加 (user, metric, day) 行；不存在则插入
func (r *MetricRepository) Add(ctx context.Context, userID string, name model.MetricName, day time.Time, delta float64) error {
	r.logger.Debug("Upserting metric",
		zap.String("user_id", userID),
		zap.String("metric", string(name)),
		zap.Time("day", day),
		zap.Float64("delta", delta),
	)

	query := `
        INSERT INTO dashboard_analytics (user_id, metric_name, metric_date, metric_value, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id, metric_name, metric_date)
        DO UPDATE SET metric_value = dashboard_analytics.metric_value + EXCLUDED.metric_value,
                      updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, query, userID, name, day, delta); err != nil {
		r.logger.Error("Failed to upsert metric",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("metric", string(name)),
		)
		return fmt.Errorf("upsert metric: %w", err)
	}
	return nil
}

// ListSince 返回 since 之后（含当天）的指标行，跳过未知指标名
func (r *MetricRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]model.DashboardMetric, error) {
	query := `
        SELECT id, user_id, metric_name, metric_date, metric_value, updated_at
        FROM dashboard_analytics
        WHERE user_id = $1 AND metric_date >= $2
        ORDER BY metric_date DESC
    `
	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		r.logger.Error("Failed to query metrics", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	metrics := []model.DashboardMetric{}
	for rows.Next() {
		var (
			m    model.DashboardMetric
			name string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &name, &m.Date, &m.Value, &m.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan metric row", zap.Error(err))
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		// 历史遗留的未知指标名不进入聚合
		m.MetricName, err = model.ParseMetricName(name)
		if err != nil {
			r.logger.Warn("Skipping unknown metric series", zap.String("metric", name), zap.String("user_id", userID))
			continue
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return metrics, nil
}

// Total 所有日期的累计值
func (r *MetricRepository) Total(ctx context.Context, userID string, name model.MetricName) (float64, error) {
	query := `
        SELECT COALESCE(SUM(metric_value), 0)
        FROM dashboard_analytics
        WHERE user_id = $1 AND metric_name = $2
    `
	var total float64
	if err := r.db.QueryRow(ctx, query, userID, name).Scan(&total); err != nil {
		r.logger.Error("Failed to sum metric", zap.Error(err), zap.String("metric", string(name)))
		return 0, fmt.Errorf("sum metric: %w", err)
	}
	return total, nil
}
