package dashboard

import (
	"time"

	"contractorvet/internal/model"
)

type View struct {
	Stats         Stats                     `json:"stats"`
	Projects      Projects                  `json:"projects"`
	Activities    []model.Activity          `json:"activities"`
	Notifications []model.Notification      `json:"notifications"`
	Achievements  []model.EarnedAchievement `json:"achievements"`
	Insights      []Insight                 `json:"insights"`
	Financial     Financial                 `json:"financial"`
	Performance   Performance               `json:"performance"`
}

type Stats struct {
	ActiveProjects      int            `json:"activeProjects"`
	TotalInvestment     float64        `json:"totalInvestment"`
	TotalSpent          float64        `json:"totalSpent"`
	CompletedProjects   int            `json:"completedProjects"`
	ReviewsWritten      int            `json:"reviewsWritten"`
	SuccessfulReferrals int            `json:"successfulReferrals"`
	NextMilestone       *UpcomingTitle `json:"nextMilestone"`
}

// UpcomingTitle 距离截止还有多少天（向上取整）
type UpcomingTitle struct {
	Title     string `json:"title"`
	DaysUntil int    `json:"daysUntil"`
}

type Projects struct {
	Active   []model.Project   `json:"active"`
	Recent   []model.Project   `json:"recent"`
	Overview []ProjectOverview `json:"overview"`
}

type ProjectOverview struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Status        string        `json:"status"`
	Progress      int           `json:"progress"`
	NextMilestone *MilestoneDue `json:"nextMilestone"`
	Contractor    string        `json:"contractor"`
	Budget        float64       `json:"budget"`
	Spent         float64       `json:"spent"`
}

type MilestoneDue struct {
	Title   string    `json:"title"`
	DueDate time.Time `json:"dueDate"`
}

const (
	InsightWarning = "warning"
	InsightSuccess = "success"
	InsightInfo    = "info"
)

type Insight struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Financial struct {
	TotalBudget          float64  `json:"totalBudget"`
	TotalSpent           float64  `json:"totalSpent"`
	Remaining            float64  `json:"remaining"`
	BudgetUsedPercentage float64  `json:"budgetUsedPercentage"`
	UpcomingPayments     float64  `json:"upcomingPayments"`
	NextPayment          *Payment `json:"nextPayment"`
}

type Payment struct {
	Amount  float64   `json:"amount"`
	DueDate time.Time `json:"dueDate"`
	Title   string    `json:"title"`
}

type Performance struct {
	ProjectCompletionRate  float64 `json:"projectCompletionRate"`
	OnTimePerformance      float64 `json:"onTimePerformance"`
	AverageProjectDuration float64 `json:"averageProjectDuration"`
	TotalSavings           float64 `json:"totalSavings"`
}
