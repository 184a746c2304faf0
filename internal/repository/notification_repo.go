package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	r.logger.Debug("Inserting notification",
		zap.String("user_id", n.UserID),
		zap.String("type", n.Type),
	)

	if n.Priority == "" {
		n.Priority = model.PriorityNormal
	}

	query := `
        INSERT INTO notifications (user_id, type, title, message, priority)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, n.UserID, n.Type, n.Title, n.Message, n.Priority).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.Error(err),
			zap.String("user_id", n.UserID),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	r.logger.Info("Notification inserted",
		zap.String("id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("type", n.Type),
	)
	return nil
}

// ListUnread 未读通知，最新在前
func (r *NotificationRepository) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	query := `
        SELECT id, user_id, type, title, message, priority, read, created_at
        FROM notifications
        WHERE user_id = $1 AND NOT read
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query notifications", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Priority, &n.Read, &n.CreatedAt); err != nil {
			r.logger.Error("Failed to scan notification row", zap.Error(err))
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead 是通知唯一允许的修改
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark notification read: %w", ErrNotFound)
	}
	r.logger.Info("Notification marked read", zap.String("id", id))
	return nil
}
