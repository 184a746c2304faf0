package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"contractorvet/internal/model"
)

const (
	recentProjects      = 5
	overviewProjects    = 3
	viewActivities      = 10
	viewNotifications   = 5
	successAchievements = 3
	activeUserThreshold = 10
	activeUserWindow    = 7 * 24 * time.Hour
	defaultContractor   = "TBD"
)

// Snapshot 是一次 dashboard 请求读取到的全部数据
type Snapshot struct {
	Projects      []model.Project
	Metrics       []model.DashboardMetric
	Activities    []model.Activity
	Notifications []model.Notification
	Achievements  []model.EarnedAchievement
	Reviews       []model.Review
	Referrals     []model.Referral
}

// Build 纯计算：不做任何 I/O
func Build(now time.Time, s Snapshot) View {
	projects := append([]model.Project(nil), s.Projects...)
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})

	active := []model.Project{}
	var completed []model.Project
	for _, p := range projects {
		if p.Status.IsActive() {
			active = append(active, p)
		}
		if p.Status == model.ProjectStatusCompleted {
			completed = append(completed, p)
		}
	}

	var totalCost, totalPaid float64
	for _, p := range projects {
		totalCost += p.TotalCost
		totalPaid += p.PaidAmount
	}

	successful := 0
	for _, r := range s.Referrals {
		if r.Status == model.ReferralStatusCompleted {
			successful++
		}
	}

	stats := Stats{
		ActiveProjects:      len(active),
		TotalInvestment:     totalCost,
		TotalSpent:          totalPaid,
		CompletedProjects:   len(completed),
		ReviewsWritten:      len(s.Reviews),
		SuccessfulReferrals: successful,
		NextMilestone:       nextUpcoming(now, active),
	}

	return View{
		Stats: stats,
		Projects: Projects{
			Active:   displayed(now, active),
			Recent:   displayed(now, head(projects, recentProjects)),
			Overview: overview(projects),
		},
		Activities:    head(nonNil(s.Activities), viewActivities),
		Notifications: head(nonNil(s.Notifications), viewNotifications),
		Achievements:  nonNil(s.Achievements),
		Insights:      insights(now, projects, s.Achievements, s.Activities),
		Financial:     financial(projects, totalCost, totalPaid),
		Performance:   performance(projects, completed, s.Metrics),
	}
}

// nextUpcoming 所有进行中项目里最早到期的未来 pending 里程碑
func nextUpcoming(now time.Time, active []model.Project) *UpcomingTitle {
	var best *model.Milestone
	for i := range active {
		for j := range active[i].Milestones {
			m := &active[i].Milestones[j]
			if !m.PendingAfter(now) {
				continue
			}
			if best == nil || m.DueDate.Before(*best.DueDate) {
				best = m
			}
		}
	}
	if best == nil {
		return nil
	}
	days := int(math.Ceil(best.DueDate.Sub(now).Hours() / 24))
	return &UpcomingTitle{Title: best.Title, DaysUntil: days}
}

func overview(projects []model.Project) []ProjectOverview {
	top := head(projects, overviewProjects)
	out := make([]ProjectOverview, 0, len(top))
	for _, p := range top {
		o := ProjectOverview{
			ID:         p.ID,
			Name:       p.Name,
			Status:     string(p.Status),
			Progress:   model.Progress(p.Milestones),
			Contractor: defaultContractor,
			Budget:     p.TotalCost,
			Spent:      p.PaidAmount,
		}
		if p.ContractorName != nil && *p.ContractorName != "" {
			o.Contractor = *p.ContractorName
		}
		if m := earliestPending(p.Milestones, false); m != nil {
			o.NextMilestone = &MilestoneDue{Title: m.Title, DueDate: *m.DueDate}
		}
		out = append(out, o)
	}
	return out
}

// earliestPending 最早到期的 pending 里程碑；没有截止日期的不参与比较
func earliestPending(milestones []model.Milestone, paymentOnly bool) *model.Milestone {
	var best *model.Milestone
	for i := range milestones {
		m := &milestones[i]
		if m.Status != model.MilestoneStatusPending || m.DueDate == nil {
			continue
		}
		if paymentOnly && !m.IsPayment {
			continue
		}
		if best == nil || m.DueDate.Before(*best.DueDate) {
			best = m
		}
	}
	return best
}

func insights(now time.Time, projects []model.Project, achievements []model.EarnedAchievement, activities []model.Activity) []Insight {
	out := []Insight{}

	over := 0
	for i := range projects {
		if projects[i].OverBudget() {
			over++
		}
	}
	if over > 0 {
		msg := "1 project is over budget"
		if over > 1 {
			msg = fmt.Sprintf("%d projects are over budget", over)
		}
		out = append(out, Insight{Type: InsightWarning, Title: "Budget Alert", Message: msg})
	}

	if len(achievements) >= successAchievements {
		points := 0
		for _, a := range achievements {
			points += a.Achievement.Points
		}
		out = append(out, Insight{
			Type:    InsightSuccess,
			Title:   "Great Progress!",
			Message: fmt.Sprintf("You've earned %d achievements worth %d points", len(achievements), points),
		})
	}

	since := now.Add(-activeUserWindow)
	recent := 0
	for _, a := range activities {
		if a.CreatedAt.After(since) {
			recent++
		}
	}
	if recent > activeUserThreshold {
		out = append(out, Insight{
			Type:    InsightInfo,
			Title:   "Active User",
			Message: fmt.Sprintf("You've logged %d activities this week", recent),
		})
	}

	return out
}

func financial(projects []model.Project, totalBudget, totalSpent float64) Financial {
	f := Financial{
		TotalBudget:          totalBudget,
		TotalSpent:           totalSpent,
		Remaining:            totalBudget - totalSpent,
		BudgetUsedPercentage: percent(totalSpent, totalBudget),
	}

	var next *model.Milestone
	for i := range projects {
		for j := range projects[i].Milestones {
			m := &projects[i].Milestones[j]
			if m.IsPayment && m.Status == model.MilestoneStatusPending {
				f.UpcomingPayments += m.PaymentAmount
			}
		}
		if m := earliestPending(projects[i].Milestones, true); m != nil {
			if next == nil || m.DueDate.Before(*next.DueDate) {
				next = m
			}
		}
	}
	if next != nil {
		f.NextPayment = &Payment{Amount: next.PaymentAmount, DueDate: *next.DueDate, Title: next.Title}
	}
	return f
}

func performance(all, completed []model.Project, metrics []model.DashboardMetric) Performance {
	p := Performance{
		ProjectCompletionRate: percent(float64(len(completed)), float64(len(all))),
	}

	onTime := 0
	var durationDays float64
	durations := 0
	for i := range completed {
		c := &completed[i]
		end := c.EndDate()
		// updated_at 近似代替实际完成时间
		if end != nil && !c.UpdatedAt.After(*end) {
			onTime++
		}
		if end != nil && c.StartDate != nil {
			durationDays += end.Sub(*c.StartDate).Hours() / 24
			durations++
		}
	}
	p.OnTimePerformance = percent(float64(onTime), float64(len(completed)))
	if durations > 0 {
		p.AverageProjectDuration = durationDays / float64(durations)
	}

	for _, m := range metrics {
		if m.MetricName == model.MetricTotalSavings {
			p.TotalSavings += m.Value
		}
	}
	return p
}

// percent 100*part/whole，不取整；whole 为 0 时返回 0
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// displayed 返回副本，里程碑状态换成展示状态（过期的 pending 显示为 overdue）
// 统计都基于存储状态，必须在它们之后调用
func displayed(now time.Time, projects []model.Project) []model.Project {
	out := make([]model.Project, len(projects))
	for i, p := range projects {
		if p.Milestones != nil {
			ms := make([]model.Milestone, len(p.Milestones))
			for j, m := range p.Milestones {
				m.Status = m.DisplayStatus(now)
				ms[j] = m
			}
			p.Milestones = ms
		}
		out[i] = p
	}
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	if s == nil {
		return []T{}
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
