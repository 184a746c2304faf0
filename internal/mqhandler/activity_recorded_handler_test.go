package mqhandler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "contractorvet/contracts/mq"
)

type fakeEffects struct {
	applied []mqcontracts.ActivityRecordedPayload
}

func (f *fakeEffects) Apply(_ context.Context, p mqcontracts.ActivityRecordedPayload) {
	f.applied = append(f.applied, p)
}

type memDeduper map[string]bool

func (m memDeduper) AcquireOnce(_ context.Context, handler, key string) bool {
	k := handler + ":" + key
	if m[k] {
		return false
	}
	m[k] = true
	return true
}

func encode(t *testing.T, p mqcontracts.ActivityRecordedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestHandle_AppliesOncePerEvent(t *testing.T) {
	effects := &fakeEffects{}
	h := NewActivityRecordedHandler(effects, memDeduper{}, zap.NewNop())
	raw := encode(t, mqcontracts.ActivityRecordedPayload{
		EventID:    "e1",
		UserID:     "u1",
		Action:     "project_created",
		Metadata:   map[string]interface{}{"amount": 12.5},
		OccurredAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), raw))

	require.Len(t, effects.applied, 1)
	assert.Equal(t, "project_created", effects.applied[0].Action)
	assert.Equal(t, 12.5, effects.applied[0].Metadata["amount"])
}

func TestHandle_RejectsBadMessages(t *testing.T) {
	effects := &fakeEffects{}
	h := NewActivityRecordedHandler(effects, memDeduper{}, zap.NewNop())

	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{not json`)))
	assert.Error(t, h.Handle(context.Background(), encode(t, mqcontracts.ActivityRecordedPayload{UserID: "u1", Action: "x"})))
	assert.Empty(t, effects.applied)
}

func TestHandle_WithoutDeduper(t *testing.T) {
	effects := &fakeEffects{}
	h := NewActivityRecordedHandler(effects, nil, zap.NewNop())
	raw := encode(t, mqcontracts.ActivityRecordedPayload{EventID: "e1", UserID: "u1", Action: "page_view"})

	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Len(t, effects.applied, 2)
}
