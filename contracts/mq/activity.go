package mq

import "time"

// RoutingKeyActivityRecorded 用户行为已写入 user_activity
const RoutingKeyActivityRecorded = "activity.recorded"

// ActivityRecordedPayload 触发指标累加和成就判定
type ActivityRecordedPayload struct {
	EventID      string                 `json:"event_id"`
	ActivityID   string                 `json:"activity_id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
	TraceID      string                 `json:"trace_id,omitempty"`
}
