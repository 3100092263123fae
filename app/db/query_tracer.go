package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/easystock/app/observability/metrics"
)

type queryStartKey struct{}

type queryStart struct {
	at        time.Time
	operation string
}

// QueryMetricsTracer records the duration of every pool query.
type QueryMetricsTracer struct{}

var _ pgx.QueryTracer = QueryMetricsTracer{}

func (QueryMetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), operation: sqlOperation(data.SQL)})
}

func (QueryMetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	outcome := "success"
	if data.Err != nil {
		outcome = "error"
	}
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start.at).Seconds(),
		metric.WithAttributes(
			attribute.String("db.operation", start.operation),
			attribute.String("outcome", outcome),
		))
}

func sqlOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
