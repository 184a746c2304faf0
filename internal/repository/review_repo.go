package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type ReviewRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReviewRepository(db *pgxpool.Pool, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{db: db, logger: logger}
}

func (r *ReviewRepository) Insert(ctx context.Context, rv *model.Review) error {
	r.logger.Debug("Inserting review",
		zap.String("user_id", rv.UserID),
		zap.String("contractor", rv.ContractorName),
	)

	query := `
        INSERT INTO reviews (user_id, contractor_name, rating, title, body)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, rv.UserID, rv.ContractorName, rv.Rating, rv.Title, rv.Body).
		Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert review", zap.Error(err))
		return fmt.Errorf("insert review: %w", err)
	}

	r.logger.Info("Review inserted", zap.String("id", rv.ID), zap.String("user_id", rv.UserID))
	return nil
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	query := `
        SELECT id, user_id, contractor_name, rating, title, body, created_at
        FROM reviews
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query reviews", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ContractorName, &rv.Rating, &rv.Title, &rv.Body, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}
