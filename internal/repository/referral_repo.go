package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type ReferralRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReferralRepository(db *pgxpool.Pool, logger *zap.Logger) *ReferralRepository {
	return &ReferralRepository{db: db, logger: logger}
}

const referralColumns = `id, referrer_id, referee_email, referee_id, status, reward_amount, reward_type,
        conversion_date, expires_at, metadata, created_at, updated_at`

func scanReferral(row pgx.Row, ref *model.Referral) error {
	return row.Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.RefereeEmail,
		&ref.RefereeID,
		&ref.Status,
		&ref.RewardAmount,
		&ref.RewardType,
		&ref.ConversionDate,
		&ref.ExpiresAt,
		&ref.Metadata,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)
}

// Insert 创建 sent 状态的推荐；同一 (referrer, email) 已有 sent 记录时返回 ErrDuplicate
func (r *ReferralRepository) Insert(ctx context.Context, ref *model.Referral) error {
	r.logger.Debug("Inserting referral",
		zap.String("referrer_id", ref.ReferrerID),
		zap.String("invite_code", ref.Metadata.InviteCode),
	)

	query := `
        INSERT INTO referrals (referrer_id, referee_email, status, reward_amount, reward_type, expires_at, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		ref.ReferrerID,
		ref.RefereeEmail,
		ref.Status,
		ref.RewardAmount,
		ref.RewardType,
		ref.ExpiresAt,
		ref.Metadata,
	).Scan(&ref.ID, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Info("Duplicate pending referral rejected", zap.String("referrer_id", ref.ReferrerID))
			return fmt.Errorf("insert referral: %w", ErrDuplicate)
		}
		r.logger.Error("Failed to insert referral", zap.Error(err))
		return fmt.Errorf("insert referral: %w", err)
	}

	r.logger.Info("Referral inserted",
		zap.String("id", ref.ID),
		zap.String("referrer_id", ref.ReferrerID),
	)
	return nil
}

func (r *ReferralRepository) HasPending(ctx context.Context, referrerID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM referrals
            WHERE referrer_id = $1 AND referee_email = $2 AND status = 'sent'
        )`, referrerID, email).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check pending referral", zap.Error(err))
		return false, fmt.Errorf("check pending referral: %w", err)
	}
	return exists, nil
}

// FindPendingByEmail 返回该邮箱最早且未过期的 sent 推荐
func (r *ReferralRepository) FindPendingByEmail(ctx context.Context, email string, now time.Time) (*model.Referral, error) {
	query := `SELECT ` + referralColumns + `
        FROM referrals
        WHERE referee_email = $1 AND status = 'sent' AND expires_at > $2
        ORDER BY created_at ASC
        LIMIT 1
    `
	var ref model.Referral
	if err := scanReferral(r.db.QueryRow(ctx, query, email, now), &ref); err != nil {
		return nil, fmt.Errorf("find pending referral: %w", notFound(err))
	}
	return &ref, nil
}

// MarkSignedUp sent -> signed_up；状态不是 sent 时返回 ErrNotFound
func (r *ReferralRepository) MarkSignedUp(ctx context.Context, id, refereeID string, at time.Time) (*model.Referral, error) {
	r.logger.Debug("Marking referral signed up", zap.String("id", id), zap.String("referee_id", refereeID))

	query := `
        UPDATE referrals
        SET status = 'signed_up', referee_id = $2, conversion_date = $3::timestamptz,
            metadata = metadata || jsonb_build_object('signed_up_at', $3::timestamptz),
            updated_at = NOW()
        WHERE id = $1 AND status = 'sent'
        RETURNING ` + referralColumns
	var ref model.Referral
	if err := scanReferral(r.db.QueryRow(ctx, query, id, refereeID, at), &ref); err != nil {
		err = notFound(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to mark referral signed up", zap.Error(err), zap.String("id", id))
		}
		return nil, fmt.Errorf("mark referral signed up: %w", err)
	}

	r.logger.Info("Referral signed up", zap.String("id", id))
	return &ref, nil
}

// MarkCompleted signed_up -> completed。refereeID 非空时还要求 referee_id 匹配
func (r *ReferralRepository) MarkCompleted(ctx context.Context, id, refereeID string, at time.Time) (*model.Referral, error) {
	r.logger.Debug("Marking referral completed", zap.String("id", id))

	query := `
        UPDATE referrals
        SET status = 'completed',
            metadata = metadata || jsonb_build_object('completed_at', $3::timestamptz),
            updated_at = NOW()
        WHERE id = $1 AND status = 'signed_up' AND ($2::text = '' OR referee_id = $2::text)
        RETURNING ` + referralColumns
	var ref model.Referral
	if err := scanReferral(r.db.QueryRow(ctx, query, id, refereeID, at), &ref); err != nil {
		err = notFound(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to mark referral completed", zap.Error(err), zap.String("id", id))
		}
		return nil, fmt.Errorf("mark referral completed: %w", err)
	}

	r.logger.Info("Referral completed", zap.String("id", id))
	return &ref, nil
}

func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]model.Referral, error) {
	query := `SELECT ` + referralColumns + `
        FROM referrals
        WHERE referrer_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, referrerID)
	if err != nil {
		r.logger.Error("Failed to query referrals", zap.Error(err), zap.String("referrer_id", referrerID))
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	out := []model.Referral{}
	for rows.Next() {
		var ref model.Referral
		if err := scanReferral(rows, &ref); err != nil {
			r.logger.Error("Failed to scan referral row", zap.Error(err))
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return out, nil
}
