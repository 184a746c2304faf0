package model

import "time"

// Tracked actions
const (
	ActionProjectCreated     = "project_created"
	ActionProjectCompleted   = "project_completed"
	ActionReviewCreated      = "review_created"
	ActionReferralSent       = "referral_sent"
	ActionMilestoneCompleted = "milestone_completed"
	ActionPageView           = "page_view"
	ActionSavingsRecorded    = "savings_recorded"
)

// Activity is write-once.
type Activity struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType *string                `json:"resource_type"`
	ResourceID   *string                `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	CreatedAt    time.Time              `json:"created_at"`
}
