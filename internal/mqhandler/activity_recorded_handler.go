package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "contractorvet/contracts/mq"
	"contractorvet/pkg/logger"
)

const handlerName = "activity_recorded"

type Applier interface {
	Apply(ctx context.Context, p mqcontracts.ActivityRecordedPayload)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, key string) bool
}

type ActivityRecordedHandler struct {
	effects Applier
	deduper Deduper
	logger  *zap.Logger
}

func NewActivityRecordedHandler(effects Applier, deduper Deduper, logger *zap.Logger) *ActivityRecordedHandler {
	return &ActivityRecordedHandler{
		effects: effects,
		deduper: deduper,
		logger:  logger,
	}
}

// Handle 累加指标并判定成就。同一 event_id 只处理一次；
// 解析失败返回 error，由 consumer 投递到 DLQ。
func (h *ActivityRecordedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ActivityRecordedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal ActivityRecordedPayload", zap.Error(err))
		return err
	}

	if p.EventID == "" || p.UserID == "" || p.Action == "" {
		log.Error("Invalid activity.recorded event",
			zap.String("event_id", p.EventID),
			zap.String("user_id", p.UserID),
			zap.String("action", p.Action),
		)
		return fmt.Errorf("invalid activity.recorded event %q", p.EventID)
	}

	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, handlerName, p.EventID) {
		log.Info("Duplicate activity.recorded event skipped", zap.String("event_id", p.EventID))
		return nil
	}

	log.Info("Handling activity.recorded event",
		zap.String("event_id", p.EventID),
		zap.String("user_id", p.UserID),
		zap.String("action", p.Action),
	)
	h.effects.Apply(ctx, p)
	return nil
}
