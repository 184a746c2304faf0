package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"contractorvet/pkg/metrics"
	"contractorvet/pkg/otel"
)

type queryKey struct{}

type queryStart struct {
	sql   string
	start time.Time
	span  trace.Span
}

// QueryTracer 实现 pgx.QueryTracer：记录查询耗时、慢查询告警和 DB span
type QueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewQueryTracer 创建查询 Tracer，slowThreshold 为 0 时默认 100ms
func NewQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *QueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &QueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.DBSpan(ctx, operationOf(data.SQL), data.SQL)
	return context.WithValue(ctx, queryKey{}, &queryStart{
		sql:   data.SQL,
		start: time.Now(),
		span:  span,
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryKey{}).(*queryStart)
	if !ok {
		return
	}

	otel.WrapDBError(qs.span, data.Err)
	qs.span.End()

	duration := time.Since(qs.start)
	op := operationOf(qs.sql)
	metrics.RecordDBQueryDuration(op, duration)

	if duration > t.slowThreshold {
		t.logger.Warn("slow-query",
			zap.String("sql", truncate(qs.sql, 200)),
			zap.Duration("took", duration),
			zap.String("command_tag", data.CommandTag.String()),
		)
		metrics.IncrementSlowQuery(op)
	}
}

// operationOf 返回 SQL 的首个关键字（小写），用作指标标签
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	op := strings.ToLower(fields[0])
	if op == "with" {
		// CTE：取主语句关键字
		for _, f := range fields[1:] {
			switch lf := strings.ToLower(f); lf {
			case "select", "insert", "update", "delete":
				return lf
			}
		}
	}
	return op
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
