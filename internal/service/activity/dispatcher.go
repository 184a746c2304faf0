package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	mqcontracts "contractorvet/contracts/mq"
	"contractorvet/pkg/circuitbreaker"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/metrics"
)

const inlineTimeout = 10 * time.Second

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	IsConnected() bool
}

type Applier interface {
	Apply(ctx context.Context, p mqcontracts.ActivityRecordedPayload)
}

// Dispatcher 把副作用交给 MQ；MQ 不可用或熔断打开时在进程内异步执行。
// 调用方既不等待也看不到副作用的失败。
type Dispatcher struct {
	publisher Publisher
	breaker   *circuitbreaker.CircuitBreaker
	effects   Applier
	logger    *zap.Logger

	wg sync.WaitGroup
}

// NewDispatcher publisher 为 nil 时所有副作用都在进程内执行
func NewDispatcher(publisher Publisher, breaker *circuitbreaker.CircuitBreaker, effects Applier, logger *zap.Logger) *Dispatcher {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	}
	return &Dispatcher{
		publisher: publisher,
		breaker:   breaker,
		effects:   effects,
		logger:    logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, p mqcontracts.ActivityRecordedPayload) {
	log := logger.WithTrace(ctx, d.logger).With(
		zap.String("event_id", p.EventID),
		zap.String("action", p.Action),
	)

	if d.publisher != nil && d.publisher.IsConnected() {
		err := d.breaker.Execute(func() error {
			return d.publisher.Publish(ctx, mqcontracts.RoutingKeyActivityRecorded, p)
		})
		if err == nil {
			metrics.IncrementSideEffectDispatch("queue")
			return
		}
		log.Warn("Publish failed, running side effects inline",
			zap.String("breaker", d.breaker.State().String()),
			zap.Error(err),
		)
	}

	metrics.IncrementSideEffectDispatch("inline")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Inline side effects panicked", zap.Any("panic", r))
			}
		}()

		// 与请求解耦：请求结束后仍继续执行，但保留 trace 信息
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), inlineTimeout)
		defer cancel()
		d.effects.Apply(bg, p)
	}()
}

// Wait 等待进程内执行的副作用结束，用于优雅退出
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
