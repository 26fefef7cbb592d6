package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/moni-del/dragon-d/pkg/database"

// QueryTracer wraps repository calls in client spans and logs statements
// slower than its threshold. A nil *QueryTracer is valid and only traces.
type QueryTracer struct {
	slowThreshold time.Duration
	logger        *slog.Logger
}

// NewQueryTracer returns a tracer that warns about queries taking at least
// slowThreshold. A zero threshold or nil logger disables slow query logs.
func NewQueryTracer(slowThreshold time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{slowThreshold: slowThreshold, logger: logger}
}

// Trace starts a span for a database operation. Call the returned function
// with the operation's error when it completes:
//
//	ctx, end := qt.Trace(ctx, "GetDiscountByKey", query)
//	defer func() { end(err) }()
func (q *QueryTracer) Trace(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if q == nil || q.slowThreshold <= 0 || q.logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= q.slowThreshold {
			attrs := []any{
				slog.String("operation", operation),
				slog.String("statement", statement),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			q.logger.WarnContext(ctx, "slow query detected", attrs...)
		}
	}
}
