package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type AchievementRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAchievementRepository(db *pgxpool.Pool, logger *zap.Logger) *AchievementRepository {
	return &AchievementRepository{db: db, logger: logger}
}

func (r *AchievementRepository) FindByName(ctx context.Context, name string) (*model.Achievement, error) {
	query := `
        SELECT id, name, description, points, icon
        FROM achievements
        WHERE name = $1
    `
	var a model.Achievement
	err := r.db.QueryRow(ctx, query, name).Scan(&a.ID, &a.Name, &a.Description, &a.Points, &a.Icon)
	if err != nil {
		return nil, fmt.Errorf("find achievement %q: %w", name, notFound(err))
	}
	return &a, nil
}

func (r *AchievementRepository) HasEarned(ctx context.Context, userID, achievementID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_achievements WHERE user_id = $1 AND achievement_id = $2)`,
		userID, achievementID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check achievement: %w", err)
	}
	return exists, nil
}

// Grant 插入授予记录；已存在时返回 false，并发授予也只会有一行
func (r *AchievementRepository) Grant(ctx context.Context, userID, achievementID string) (bool, error) {
	r.logger.Debug("Granting achievement",
		zap.String("user_id", userID),
		zap.String("achievement_id", achievementID),
	)

	query := `
        INSERT INTO user_achievements (user_id, achievement_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, achievement_id) DO NOTHING
        RETURNING id
    `
	var id string
	err := r.db.QueryRow(ctx, query, userID, achievementID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to grant achievement", zap.Error(err), zap.String("user_id", userID))
		return false, fmt.Errorf("grant achievement: %w", err)
	}

	r.logger.Info("Achievement granted",
		zap.String("id", id),
		zap.String("user_id", userID),
	)
	return true, nil
}

func (r *AchievementRepository) ListEarned(ctx context.Context, userID string) ([]model.EarnedAchievement, error) {
	query := `
        SELECT ua.id, ua.user_id, ua.achievement_id, ua.earned_at,
               a.id, a.name, a.description, a.points, a.icon
        FROM user_achievements ua
        JOIN achievements a ON a.id = ua.achievement_id
        WHERE ua.user_id = $1
        ORDER BY ua.earned_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query achievements", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	out := []model.EarnedAchievement{}
	for rows.Next() {
		var e model.EarnedAchievement
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.AchievementID, &e.EarnedAt,
			&e.Achievement.ID, &e.Achievement.Name, &e.Achievement.Description,
			&e.Achievement.Points, &e.Achievement.Icon,
		); err != nil {
			r.logger.Error("Failed to scan achievement row", zap.Error(err))
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return out, nil
}
