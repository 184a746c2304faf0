package model

import (
	"math"
	"time"
)

type MilestoneCategory string

const (
	MilestoneCategoryPreparation  MilestoneCategory = "preparation"
	MilestoneCategoryExcavation   MilestoneCategory = "excavation"
	MilestoneCategoryInstallation MilestoneCategory = "installation"
	MilestoneCategoryInspection   MilestoneCategory = "inspection"
	MilestoneCategoryPayment      MilestoneCategory = "payment"
	MilestoneCategoryCleanup      MilestoneCategory = "cleanup"
	MilestoneCategoryWarranty     MilestoneCategory = "warranty"
)

func (c MilestoneCategory) Valid() bool {
	switch c {
	case MilestoneCategoryPreparation, MilestoneCategoryExcavation, MilestoneCategoryInstallation,
		MilestoneCategoryInspection, MilestoneCategoryPayment, MilestoneCategoryCleanup,
		MilestoneCategoryWarranty:
		return true
	}
	return false
}

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in-progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
	// 仅用于展示，不落库
	MilestoneStatusOverdue MilestoneStatus = "overdue"
)

// Valid 可持久化的状态
func (s MilestoneStatus) Valid() bool {
	return s == MilestoneStatusPending || s == MilestoneStatusInProgress || s == MilestoneStatusCompleted
}

type Milestone struct {
	ID            string            `json:"id"`
	ProjectID     string            `json:"project_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      MilestoneCategory `json:"category"`
	DueDate       *time.Time        `json:"due_date"`
	Status        MilestoneStatus   `json:"status"`
	IsPayment     bool              `json:"is_payment"`
	PaymentAmount float64           `json:"payment_amount"`
	CompletedDate *time.Time        `json:"completed_date"`
	Notes         string            `json:"notes"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DisplayStatus 未完成且已过期的里程碑展示为 overdue
func (m *Milestone) DisplayStatus(now time.Time) MilestoneStatus {
	if m.Status != MilestoneStatusCompleted && m.DueDate != nil && m.DueDate.Before(now) {
		return MilestoneStatusOverdue
	}
	return m.Status
}

// PendingAfter 状态为 pending 且截止日期晚于 now
func (m *Milestone) PendingAfter(now time.Time) bool {
	return m.Status == MilestoneStatusPending && m.DueDate != nil && m.DueDate.After(now)
}

// Progress returns round(100 * completed / total), or 0 for no milestones.
func Progress(milestones []Milestone) int {
	if len(milestones) == 0 {
		return 0
	}
	completed := 0
	for i := range milestones {
		if milestones[i].Status == MilestoneStatusCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(milestones))))
}
