package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

// ActivityRepository 只追加，不提供更新
type ActivityRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewActivityRepository(db *pgxpool.Pool, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

func (r *ActivityRepository) Insert(ctx context.Context, a *model.Activity) error {
	r.logger.Debug("Inserting activity",
		zap.String("user_id", a.UserID),
		zap.String("action", a.Action),
	)

	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	query := `
        INSERT INTO user_activity (user_id, action, resource_type, resource_id, metadata, ip_address, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		a.UserID,
		a.Action,
		a.ResourceType,
		a.ResourceID,
		metadata,
		a.IPAddress,
		a.UserAgent,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert activity",
			zap.Error(err),
			zap.String("user_id", a.UserID),
			zap.String("action", a.Action),
		)
		return fmt.Errorf("insert activity: %w", err)
	}

	r.logger.Info("Activity recorded",
		zap.String("id", a.ID),
		zap.String("user_id", a.UserID),
		zap.String("action", a.Action),
	)
	return nil
}

// HasTracked 该用户是否已对这个资源记录过 action
func (r *ActivityRepository) HasTracked(ctx context.Context, userID, action, resourceID string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM user_activity
            WHERE user_id = $1 AND action = $2 AND resource_id = $3
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, action, resourceID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check activity history",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("action", action),
		)
		return false, fmt.Errorf("check activity: %w", err)
	}
	return exists, nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	query := `
        SELECT id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
        FROM user_activity
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to query activity", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Action,
			&a.ResourceType,
			&a.ResourceID,
			&a.Metadata,
			&a.IPAddress,
			&a.UserAgent,
			&a.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan activity row", zap.Error(err))
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return activities, nil
}
