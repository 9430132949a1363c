package cleaning

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"insightcli/internal/impute"
)

const tracerName = "insightcli.cleaning"

// OperationTracer records spans and business metrics for cleaning
// operations. A nil tracer is valid and records nothing, so sessions work
// the same with observability off.
type OperationTracer struct {
	tracer trace.Tracer

	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram
	cellsImputed      metric.Int64Counter
	activeSessions    metric.Int64UpDownCounter
}

// NewOperationTracer builds the cleaning instrument set on the given meter.
func NewOperationTracer(meter metric.Meter) (*OperationTracer, error) {
	t := &OperationTracer{tracer: otel.Tracer(tracerName)}

	var err error
	t.operationsTotal, err = meter.Int64Counter("cleaning_operations_total",
		metric.WithDescription("Cleaning operations by type, strategy and status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}
	t.operationDuration, err = meter.Float64Histogram("cleaning_operation_duration_seconds",
		metric.WithDescription("Cleaning operation execution duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	t.cellsImputed, err = meter.Int64Counter("cleaning_cells_imputed_total",
		metric.WithDescription("Missing cells filled by imputation"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cells counter: %w", err)
	}
	t.activeSessions, err = meter.Int64UpDownCounter("cleaning_active_sessions",
		metric.WithDescription("Cleaning sessions currently held by the store"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions gauge: %w", err)
	}
	return t, nil
}

// StartOperation opens a span for one Apply call.
func (t *OperationTracer) StartOperation(ctx context.Context, sessionID string, op Operation) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, fmt.Sprintf("cleaning.apply.%s", op.Type),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("operation.type", string(op.Type)),
			attribute.String("operation.strategy", op.Strategy),
			attribute.Int("operation.columns", len(op.Columns)),
		),
	)
}

// RecordOperation closes the Apply span and records the business metrics.
func (t *OperationTracer) RecordOperation(ctx context.Context, span trace.Span, op Operation, duration time.Duration, outcome impute.Outcome, err error) {
	if t == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "operation applied")
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", string(op.Type)),
		attribute.String("strategy", op.Strategy),
		attribute.String("status", status),
	)
	t.operationsTotal.Add(ctx, 1, attrs)
	t.operationDuration.Record(ctx, duration.Seconds(), attrs)
	if filled := outcome.CellsFilled(); filled > 0 {
		t.cellsImputed.Add(ctx, int64(filled),
			metric.WithAttributes(
				attribute.String("operation", string(op.Type)),
				attribute.String("strategy", op.Strategy),
			))
	}

	span.SetAttributes(
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
		attribute.Int("operation.cells_filled", outcome.CellsFilled()),
		attribute.Int("operation.columns_dropped", len(outcome.Dropped)),
		attribute.Int("operation.warnings", len(outcome.Warnings)),
	)
	span.End()
}

// SessionOpened bumps the active-session gauge.
func (t *OperationTracer) SessionOpened(ctx context.Context) {
	if t == nil {
		return
	}
	t.activeSessions.Add(ctx, 1)
}

// SessionClosed decrements the active-session gauge.
func (t *OperationTracer) SessionClosed(ctx context.Context) {
	if t == nil {
		return
	}
	t.activeSessions.Add(ctx, -1)
}
