// Package project owns project and milestone CRUD and emits the tracked actions they imply.
package project

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/repository"
	"contractorvet/internal/service/activity"
	"contractorvet/pkg/logger"
)

type ProjectStore interface {
	Insert(ctx context.Context, p *model.Project) error
	Get(ctx context.Context, userID, id string) (*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, userID, id string) error
}

type MilestoneStore interface {
	Insert(ctx context.Context, m *model.Milestone) error
	GetOwned(ctx context.Context, userID, id string) (*model.Milestone, error)
	Update(ctx context.Context, userID string, m *model.Milestone) error
}

// ActivityHistory 判断某个资源的行为是否已经记录过
type ActivityHistory interface {
	HasTracked(ctx context.Context, userID, action, resourceID string) (bool, error)
}

type ActivityTracker interface {
	Track(ctx context.Context, in activity.Input) (*model.Activity, error)
}

type CreateProjectInput struct {
	Name             string     `json:"name" validate:"required,max=200"`
	Type             string     `json:"project_type" validate:"omitempty,oneof=basement_waterproofing foundation_repair crawl_space drainage sump_pump other"`
	Status           string     `json:"status" validate:"omitempty,oneof=planning active completed on-hold cancelled in_progress"`
	StartDate        *time.Time `json:"start_date"`
	EstimatedEndDate *time.Time `json:"estimated_end_date"`
	TotalCost        float64    `json:"total_cost" validate:"gte=0"`
	PaidAmount       float64    `json:"paid_amount" validate:"gte=0"`
	Notes            string     `json:"notes"`
	ContractorID     *string    `json:"contractor_id"`
	ContractorName   *string    `json:"contractor_name"`
}

// UpdateProjectInput 只更新非 nil 字段
type UpdateProjectInput struct {
	Name             *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Type             *string    `json:"project_type" validate:"omitempty,oneof=basement_waterproofing foundation_repair crawl_space drainage sump_pump other"`
	Status           *string    `json:"status" validate:"omitempty,oneof=planning active completed on-hold cancelled in_progress"`
	StartDate        *time.Time `json:"start_date"`
	EstimatedEndDate *time.Time `json:"estimated_end_date"`
	ActualEndDate    *time.Time `json:"actual_end_date"`
	TotalCost        *float64   `json:"total_cost" validate:"omitempty,gte=0"`
	PaidAmount       *float64   `json:"paid_amount" validate:"omitempty,gte=0"`
	Notes            *string    `json:"notes"`
	ContractorID     *string    `json:"contractor_id"`
	ContractorName   *string    `json:"contractor_name"`
}

type CreateMilestoneInput struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description"`
	Category      string     `json:"category" validate:"omitempty,oneof=preparation excavation installation inspection payment cleanup warranty"`
	DueDate       *time.Time `json:"due_date"`
	IsPayment     bool       `json:"is_payment"`
	PaymentAmount float64    `json:"payment_amount" validate:"gte=0"`
	Notes         string     `json:"notes"`
}

type UpdateMilestoneInput struct {
	Title         *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string    `json:"description"`
	Category      *string    `json:"category" validate:"omitempty,oneof=preparation excavation installation inspection payment cleanup warranty"`
	DueDate       *time.Time `json:"due_date"`
	Status        *string    `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	IsPayment     *bool      `json:"is_payment"`
	PaymentAmount *float64   `json:"payment_amount" validate:"omitempty,gte=0"`
	Notes         *string    `json:"notes"`
}

type Service struct {
	projects   ProjectStore
	milestones MilestoneStore
	history    ActivityHistory
	tracker    ActivityTracker
	validate   *validator.Validate
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(projects ProjectStore, milestones MilestoneStore, history ActivityHistory, tracker ActivityTracker, logger *zap.Logger) *Service {
	return &Service{
		projects:   projects,
		milestones: milestones,
		history:    history,
		tracker:    tracker,
		validate:   validator.New(),
		now:        time.Now,
		logger:     logger,
	}
}

func (s *Service) Create(ctx context.Context, userID string, in CreateProjectInput) (*model.Project, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	p := &model.Project{
		UserID:           userID,
		Name:             in.Name,
		Type:             model.ProjectType(in.Type),
		Status:           model.ProjectStatus(in.Status),
		StartDate:        in.StartDate,
		EstimatedEndDate: in.EstimatedEndDate,
		TotalCost:        in.TotalCost,
		PaidAmount:       in.PaidAmount,
		Notes:            in.Notes,
		ContractorID:     in.ContractorID,
		ContractorName:   in.ContractorName,
		Milestones:       []model.Milestone{},
	}
	if p.Type == "" {
		p.Type = model.ProjectTypeOther
	}
	if p.Status == "" {
		p.Status = model.ProjectStatusPlanning
	}

	if err := s.projects.Insert(ctx, p); err != nil {
		return nil, apperr.Store("create project", err)
	}

	s.track(ctx, userID, model.ActionProjectCreated, "project", p.ID)
	if p.Status == model.ProjectStatusCompleted {
		s.track(ctx, userID, model.ActionProjectCompleted, "project", p.ID)
	}
	return p, nil
}

// Update 状态变为 completed 时记录 project_completed；每个项目只记一次，
// 重新打开后再完成不会重复累加指标
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateProjectInput) (*model.Project, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	p, err := s.projects.Get(ctx, userID, id)
	if err != nil {
		return nil, storeErr("load project", "project", err)
	}
	wasCompleted := p.Status == model.ProjectStatusCompleted

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Type != nil {
		p.Type = model.ProjectType(*in.Type)
	}
	if in.Status != nil {
		p.Status = model.ProjectStatus(*in.Status)
	}
	if in.StartDate != nil {
		p.StartDate = in.StartDate
	}
	if in.EstimatedEndDate != nil {
		p.EstimatedEndDate = in.EstimatedEndDate
	}
	if in.ActualEndDate != nil {
		p.ActualEndDate = in.ActualEndDate
	}
	if in.TotalCost != nil {
		p.TotalCost = *in.TotalCost
	}
	if in.PaidAmount != nil {
		p.PaidAmount = *in.PaidAmount
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
	if in.ContractorID != nil {
		p.ContractorID = in.ContractorID
	}
	if in.ContractorName != nil {
		p.ContractorName = in.ContractorName
	}

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, storeErr("update project", "project", err)
	}

	if !wasCompleted && p.Status == model.ProjectStatusCompleted {
		s.trackOnce(ctx, userID, model.ActionProjectCompleted, "project", p.ID)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.projects.Delete(ctx, userID, id); err != nil {
		return storeErr("delete project", "project", err)
	}
	return nil
}

func (s *Service) AddMilestone(ctx context.Context, userID, projectID string, in CreateMilestoneInput) (*model.Milestone, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
		return nil, storeErr("load project", "project", err)
	}

	m := &model.Milestone{
		ProjectID:     projectID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      model.MilestoneCategory(in.Category),
		DueDate:       in.DueDate,
		Status:        model.MilestoneStatusPending,
		IsPayment:     in.IsPayment,
		PaymentAmount: in.PaymentAmount,
		Notes:         in.Notes,
	}
	if m.Category == "" {
		m.Category = model.MilestoneCategoryPreparation
	}
	if err := s.milestones.Insert(ctx, m); err != nil {
		return nil, apperr.Store("create milestone", err)
	}
	return m, nil
}

// UpdateMilestone 完成时写入 completed_date 并记录 milestone_completed
func (s *Service) UpdateMilestone(ctx context.Context, userID, id string, in UpdateMilestoneInput) (*model.Milestone, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	m, err := s.milestones.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, storeErr("load milestone", "milestone", err)
	}
	wasCompleted := m.Status == model.MilestoneStatusCompleted

	if in.Title != nil {
		m.Title = *in.Title
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.Category != nil {
		m.Category = model.MilestoneCategory(*in.Category)
	}
	if in.DueDate != nil {
		m.DueDate = in.DueDate
	}
	if in.Status != nil {
		m.Status = model.MilestoneStatus(*in.Status)
	}
	if in.IsPayment != nil {
		m.IsPayment = *in.IsPayment
	}
	if in.PaymentAmount != nil {
		m.PaymentAmount = *in.PaymentAmount
	}
	if in.Notes != nil {
		m.Notes = *in.Notes
	}

	completedNow := !wasCompleted && m.Status == model.MilestoneStatusCompleted
	if completedNow {
		at := s.now()
		m.CompletedDate = &at
	} else if m.Status != model.MilestoneStatusCompleted {
		m.CompletedDate = nil
	}

	if err := s.milestones.Update(ctx, userID, m); err != nil {
		return nil, storeErr("update milestone", "milestone", err)
	}

	if completedNow {
		s.trackOnce(ctx, userID, model.ActionMilestoneCompleted, "milestone", m.ID)
	}
	return m, nil
}

// track 主操作已经成功，记录失败只打日志
func (s *Service) track(ctx context.Context, userID, action, resourceType, resourceID string) {
	_, err := s.tracker.Track(ctx, activity.Input{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to track action",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}
}

// trackOnce 同一资源的 action 只记录一次；查询失败时不记录，宁可少计也不重复计数
func (s *Service) trackOnce(ctx context.Context, userID, action, resourceType, resourceID string) {
	seen, err := s.history.HasTracked(ctx, userID, action, resourceID)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to check action history, skipping",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return
	}
	if seen {
		logger.WithTrace(ctx, s.logger).Debug("Action already tracked for resource",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
		)
		return
	}
	s.track(ctx, userID, action, resourceType, resourceID)
}

func storeErr(op, what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return apperr.Store(op, err)
}
