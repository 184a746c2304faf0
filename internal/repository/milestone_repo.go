package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		logger: logger,
	}
}

const milestoneColumns = `id, project_id, title, description, category, due_date, status,
        is_payment, payment_amount, completed_date, notes, created_at, updated_at`

func scanMilestone(row pgx.Row, m *model.Milestone) error {
	return row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Title,
		&m.Description,
		&m.Category,
		&m.DueDate,
		&m.Status,
		&m.IsPayment,
		&m.PaymentAmount,
		&m.CompletedDate,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) error {
	r.logger.Debug("Inserting milestone",
		zap.String("project_id", m.ProjectID),
		zap.String("title", m.Title),
	)

	query := `
        INSERT INTO project_milestones (project_id, title, description, category, due_date, status,
            is_payment, payment_amount, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		m.ProjectID,
		m.Title,
		m.Description,
		m.Category,
		m.DueDate,
		m.Status,
		m.IsPayment,
		m.PaymentAmount,
		m.Notes,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return fmt.Errorf("insert milestone: %w", err)
	}

	r.logger.Info("Milestone inserted successfully",
		zap.String("id", m.ID),
		zap.String("project_id", m.ProjectID),
	)
	return nil
}

// GetOwned 读取里程碑，要求所属项目归 userID 所有
func (r *MilestoneRepository) GetOwned(ctx context.Context, userID, id string) (*model.Milestone, error) {
	query := `
        SELECT m.id, m.project_id, m.title, m.description, m.category, m.due_date, m.status,
            m.is_payment, m.payment_amount, m.completed_date, m.notes, m.created_at, m.updated_at
        FROM project_milestones m
        JOIN projects p ON p.id = m.project_id
        WHERE m.id = $1 AND p.user_id = $2
    `
	var m model.Milestone
	if err := scanMilestone(r.db.QueryRow(ctx, query, id, userID), &m); err != nil {
		err = notFound(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to get milestone", zap.Error(err), zap.String("id", id))
		}
		return nil, fmt.Errorf("get milestone: %w", err)
	}
	return &m, nil
}

func (r *MilestoneRepository) Update(ctx context.Context, userID string, m *model.Milestone) error {
	r.logger.Debug("Updating milestone",
		zap.String("id", m.ID),
		zap.String("status", string(m.Status)),
	)

	query := `
        UPDATE project_milestones m
        SET title = $3, description = $4, category = $5, due_date = $6, status = $7,
            is_payment = $8, payment_amount = $9, completed_date = $10, notes = $11, updated_at = NOW()
        FROM projects p
        WHERE m.id = $1 AND p.id = m.project_id AND p.user_id = $2
        RETURNING m.updated_at
    `
	err := r.db.QueryRow(ctx, query,
		m.ID,
		userID,
		m.Title,
		m.Description,
		m.Category,
		m.DueDate,
		m.Status,
		m.IsPayment,
		m.PaymentAmount,
		m.CompletedDate,
		m.Notes,
	).Scan(&m.UpdatedAt)
	if err != nil {
		err = notFound(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to update milestone", zap.Error(err), zap.String("id", m.ID))
		}
		return fmt.Errorf("update milestone: %w", err)
	}

	r.logger.Info("Milestone updated successfully", zap.String("id", m.ID))
	return nil
}
