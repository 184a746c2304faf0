package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// fakeRedis implements only the commands the deduper uses.
type fakeRedis struct {
	redis.Cmdable
	keys map[string]bool
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if f.keys[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = true
	return redis.NewBoolResult(true, nil)
}

func TestAcquireOnce(t *testing.T) {
	rdb := &fakeRedis{keys: map[string]bool{}}
	d := NewDeduper(rdb, time.Hour, nil)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "activity", "evt-1"))
	assert.False(t, d.AcquireOnce(ctx, "activity", "evt-1"))
	assert.True(t, d.AcquireOnce(ctx, "other", "evt-1"))
}

func TestAcquireOnce_FailsOpen(t *testing.T) {
	d := NewDeduper(&fakeRedis{err: errors.New("connection refused")}, time.Hour, nil)
	assert.True(t, d.AcquireOnce(context.Background(), "activity", "evt-1"))
	assert.True(t, d.AcquireOnce(context.Background(), "activity", "evt-1"))
}
