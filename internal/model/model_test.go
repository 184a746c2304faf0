package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func milestones(statuses ...MilestoneStatus) []Milestone {
	out := make([]Milestone, len(statuses))
	for i, s := range statuses {
		out[i] = Milestone{Status: s}
	}
	return out
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(nil))
	assert.Equal(t, 0, Progress(milestones(MilestoneStatusPending)))
	assert.Equal(t, 100, Progress(milestones(MilestoneStatusCompleted, MilestoneStatusCompleted)))
	assert.Equal(t, 33, Progress(milestones(MilestoneStatusCompleted, MilestoneStatusPending, MilestoneStatusInProgress)))
	assert.Equal(t, 67, Progress(milestones(MilestoneStatusCompleted, MilestoneStatusCompleted, MilestoneStatusPending)))
	assert.Equal(t, 50, Progress(milestones(MilestoneStatusCompleted, MilestoneStatusPending)))
}

func TestProgress_Bounds(t *testing.T) {
	all := []MilestoneStatus{MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusCompleted}
	for n := 1; n <= 9; n++ {
		for done := 0; done <= n; done++ {
			var ms []Milestone
			for i := 0; i < n; i++ {
				if i < done {
					ms = append(ms, Milestone{Status: MilestoneStatusCompleted})
				} else {
					ms = append(ms, Milestone{Status: all[i%2]})
				}
			}
			p := Progress(ms)
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestParseMetricName(t *testing.T) {
	name, err := ParseMetricName("page_views")
	require.NoError(t, err)
	assert.Equal(t, MetricPageViews, name)

	_, err = ParseMetricName("page_veiws")
	assert.Error(t, err)
}

func TestMetricDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2024, 3, 10, 22, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), MetricDay(in))
}

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	m := Milestone{Status: MilestoneStatusPending, DueDate: &past}
	assert.Equal(t, MilestoneStatusOverdue, m.DisplayStatus(now))

	m = Milestone{Status: MilestoneStatusCompleted, DueDate: &past}
	assert.Equal(t, MilestoneStatusCompleted, m.DisplayStatus(now))

	m = Milestone{Status: MilestoneStatusInProgress, DueDate: &future}
	assert.Equal(t, MilestoneStatusInProgress, m.DisplayStatus(now))

	m = Milestone{Status: MilestoneStatusPending}
	assert.Equal(t, MilestoneStatusPending, m.DisplayStatus(now))
}

func TestProjectStatus(t *testing.T) {
	assert.True(t, ProjectStatusPlanning.IsActive())
	assert.True(t, ProjectStatusActive.IsActive())
	assert.True(t, ProjectStatusInProgress.IsActive())
	assert.False(t, ProjectStatusCompleted.IsActive())
	assert.False(t, ProjectStatusOnHold.IsActive())
	assert.False(t, ProjectStatus("done").Valid())
}

func TestProjectEndDate(t *testing.T) {
	est := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	act := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	p := Project{EstimatedEndDate: &est}
	assert.Equal(t, &est, p.EndDate())
	p.ActualEndDate = &act
	assert.Equal(t, &act, p.EndDate())
	assert.Nil(t, (&Project{}).EndDate())
}
