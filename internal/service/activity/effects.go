package activity

import (
	"context"
	"time"

	mqcontracts "contractorvet/contracts/mq"
)

type MetricRecorder interface {
	RecordAction(ctx context.Context, userID, action string, metadata map[string]interface{}, at time.Time)
}

type AchievementEvaluator interface {
	OnAction(ctx context.Context, userID, action, resourceType string)
}

// Effects 是一次行为记录之后的簿记工作：累加指标，再判定成就。
// 两者都自行吞掉错误。
type Effects struct {
	recorder  MetricRecorder
	evaluator AchievementEvaluator
}

func NewEffects(recorder MetricRecorder, evaluator AchievementEvaluator) *Effects {
	return &Effects{recorder: recorder, evaluator: evaluator}
}

// Apply 先写指标，阈值类成就依赖最新的累计值
func (e *Effects) Apply(ctx context.Context, p mqcontracts.ActivityRecordedPayload) {
	at := p.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	e.recorder.RecordAction(ctx, p.UserID, p.Action, p.Metadata, at)
	e.evaluator.OnAction(ctx, p.UserID, p.Action, p.ResourceType)
}
