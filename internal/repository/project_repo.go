package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

const projectColumns = `id, user_id, name, project_type, status, start_date, estimated_end_date,
        actual_end_date, total_cost, paid_amount, notes, contractor_id, contractor_name,
        created_at, updated_at`

func scanProject(row pgx.Row, p *model.Project) error {
	return row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Type,
		&p.Status,
		&p.StartDate,
		&p.EstimatedEndDate,
		&p.ActualEndDate,
		&p.TotalCost,
		&p.PaidAmount,
		&p.Notes,
		&p.ContractorID,
		&p.ContractorName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.String("user_id", p.UserID),
		zap.String("name", p.Name),
	)

	query := `
        INSERT INTO projects (user_id, name, project_type, status, start_date, estimated_end_date,
            actual_end_date, total_cost, paid_amount, notes, contractor_id, contractor_name)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.UserID,
		p.Name,
		p.Type,
		p.Status,
		p.StartDate,
		p.EstimatedEndDate,
		p.ActualEndDate,
		p.TotalCost,
		p.PaidAmount,
		p.Notes,
		p.ContractorID,
		p.ContractorName,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return fmt.Errorf("insert project: %w", err)
	}

	r.logger.Info("Project inserted successfully",
		zap.String("id", p.ID),
		zap.String("user_id", p.UserID),
	)
	return nil
}

// Get 按 id 读取项目，只返回属于 userID 的记录
func (r *ProjectRepository) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + `
        FROM projects
        WHERE id = $1 AND user_id = $2
    `
	var p model.Project
	if err := scanProject(r.db.QueryRow(ctx, query, id, userID), &p); err != nil {
		err = notFound(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to get project", zap.Error(err), zap.String("id", id))
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Updating project",
		zap.String("id", p.ID),
		zap.String("status", string(p.Status)),
	)

	query := `
        UPDATE projects
        SET name = $3, project_type = $4, status = $5, start_date = $6, estimated_end_date = $7,
            actual_end_date = $8, total_cost = $9, paid_amount = $10, notes = $11,
            contractor_id = $12, contractor_name = $13, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.Type,
		p.Status,
		p.StartDate,
		p.EstimatedEndDate,
		p.ActualEndDate,
		p.TotalCost,
		p.PaidAmount,
		p.Notes,
		p.ContractorID,
		p.ContractorName,
	).Scan(&p.UpdatedAt)
	if err != nil {
		err = notFound(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to update project", zap.Error(err), zap.String("id", p.ID))
		}
		return fmt.Errorf("update project: %w", err)
	}

	r.logger.Info("Project updated successfully", zap.String("id", p.ID))
	return nil
}

// Delete 删除项目；里程碑和媒体由外键级联删除
func (r *ProjectRepository) Delete(ctx context.Context, userID, id string) error {
	r.logger.Debug("Deleting project", zap.String("id", id), zap.String("user_id", userID))

	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete project: %w", ErrNotFound)
	}

	r.logger.Info("Project deleted", zap.String("id", id))
	return nil
}

// ListWithMilestones 返回用户全部项目（按创建时间倒序）及其里程碑
func (r *ProjectRepository) ListWithMilestones(ctx context.Context, userID string) ([]model.Project, error) {
	r.logger.Debug("Listing projects with milestones", zap.String("user_id", userID))

	query := `SELECT ` + projectColumns + `
        FROM projects
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query projects", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		var p model.Project
		if err := scanProject(rows, &p); err != nil {
			r.logger.Error("Failed to scan project row", zap.Error(err))
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Milestones = []model.Milestone{}
		index[p.ID] = len(projects)
		ids = append(ids, p.ID)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if len(ids) == 0 {
		return projects, nil
	}

	mQuery := `SELECT ` + milestoneColumns + `
        FROM project_milestones
        WHERE project_id = ANY($1::uuid[])
        ORDER BY due_date ASC NULLS LAST, created_at ASC
    `
	mRows, err := r.db.Query(ctx, mQuery, ids)
	if err != nil {
		r.logger.Error("Failed to query milestones", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer mRows.Close()

	for mRows.Next() {
		var m model.Milestone
		if err := scanMilestone(mRows, &m); err != nil {
			r.logger.Error("Failed to scan milestone row", zap.Error(err))
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		if i, ok := index[m.ProjectID]; ok {
			projects[i].Milestones = append(projects[i].Milestones, m)
		}
	}
	if err := mRows.Err(); err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}

	r.logger.Debug("Projects listed",
		zap.String("user_id", userID),
		zap.Int("count", len(projects)),
	)
	return projects, nil
}
