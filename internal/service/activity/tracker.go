// Package activity records user actions and fans out their bookkeeping side effects.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "contractorvet/contracts/mq"
	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/trace"
)

type Store interface {
	Insert(ctx context.Context, a *model.Activity) error
}

type SideEffects interface {
	Dispatch(ctx context.Context, p mqcontracts.ActivityRecordedPayload)
}

type Input struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]interface{}
	IP           string
	UserAgent    string
}

type Tracker struct {
	store   Store
	effects SideEffects
	logger  *zap.Logger
}

func NewTracker(store Store, effects SideEffects, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, effects: effects, logger: logger}
}

// Track 写入行为日志（主操作，失败返回 StoreError），然后分发副作用
func (t *Tracker) Track(ctx context.Context, in Input) (*model.Activity, error) {
	if in.UserID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	if in.Action == "" {
		return nil, apperr.Validation("action is required")
	}

	a := &model.Activity{
		UserID:       in.UserID,
		Action:       in.Action,
		ResourceType: optional(in.ResourceType),
		ResourceID:   optional(in.ResourceID),
		Metadata:     in.Metadata,
		IPAddress:    in.IP,
		UserAgent:    in.UserAgent,
	}
	if err := t.store.Insert(ctx, a); err != nil {
		return nil, apperr.Store("record activity", err)
	}

	occurred := a.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	t.effects.Dispatch(ctx, mqcontracts.ActivityRecordedPayload{
		EventID:      uuid.NewString(),
		ActivityID:   a.ID,
		UserID:       a.UserID,
		Action:       a.Action,
		ResourceType: in.ResourceType,
		Metadata:     in.Metadata,
		OccurredAt:   occurred,
		TraceID:      trace.FromContext(ctx),
	})

	logger.WithTrace(ctx, t.logger).Debug("Activity tracked",
		zap.String("user_id", a.UserID),
		zap.String("action", a.Action),
	)
	return a, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
