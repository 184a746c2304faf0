package model

import "time"

type ProjectType string

const (
	ProjectTypeBasementWaterproofing ProjectType = "basement_waterproofing"
	ProjectTypeFoundationRepair      ProjectType = "foundation_repair"
	ProjectTypeCrawlSpace            ProjectType = "crawl_space"
	ProjectTypeDrainage              ProjectType = "drainage"
	ProjectTypeSumpPump              ProjectType = "sump_pump"
	ProjectTypeOther                 ProjectType = "other"
)

func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeBasementWaterproofing, ProjectTypeFoundationRepair, ProjectTypeCrawlSpace,
		ProjectTypeDrainage, ProjectTypeSumpPump, ProjectTypeOther:
		return true
	}
	return false
}

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCancelled ProjectStatus = "cancelled"

	// 旧数据中的写法，等同于 active
	ProjectStatusInProgress ProjectStatus = "in_progress"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusCompleted,
		ProjectStatusOnHold, ProjectStatusCancelled, ProjectStatusInProgress:
		return true
	}
	return false
}

// IsActive 是否属于进行中的项目（planning / active / in_progress）
func (s ProjectStatus) IsActive() bool {
	return s == ProjectStatusPlanning || s == ProjectStatusActive || s == ProjectStatusInProgress
}

type Project struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Name             string        `json:"name"`
	Type             ProjectType   `json:"project_type"`
	Status           ProjectStatus `json:"status"`
	StartDate        *time.Time    `json:"start_date"`
	EstimatedEndDate *time.Time    `json:"estimated_end_date"`
	ActualEndDate    *time.Time    `json:"actual_end_date"`
	TotalCost        float64       `json:"total_cost"`
	PaidAmount       float64       `json:"paid_amount"`
	Notes            string        `json:"notes"`
	ContractorID     *string       `json:"contractor_id"`
	ContractorName   *string       `json:"contractor_name"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Milestones       []Milestone   `json:"milestones"`
}

// EndDate 实际结束日期优先，否则使用预计结束日期
func (p *Project) EndDate() *time.Time {
	if p.ActualEndDate != nil {
		return p.ActualEndDate
	}
	return p.EstimatedEndDate
}

func (p *Project) OverBudget() bool {
	return p.PaidAmount > p.TotalCost
}
