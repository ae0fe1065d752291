// Package telemetry records batch processing metrics and traces with
// OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

const instrumentationName = "github.com/HENNGE/lambda-container-example"

// Telemetry records one span and a set of counters per batch.
type Telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter

	batchCounter   metric.Int64Counter
	batchDuration  metric.Float64Histogram
	batchErrors    metric.Int64Counter
	recordCounter  metric.Int64Counter
	entityCounter  metric.Int64Counter
	appliedCounter metric.Int64Counter
	failedCounter  metric.Int64Counter
}

// Option configures Telemetry.
type Option func(*Telemetry)

// WithTracerProvider sets a custom tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Telemetry) {
		t.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(t *Telemetry) {
		t.meter = provider.Meter(instrumentationName)
	}
}

// New creates Telemetry using the global providers unless overridden.
func New(opts ...Option) (*Telemetry, error) {
	t := &Telemetry{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error

	t.batchCounter, err = t.meter.Int64Counter(
		"cdcsync.batch.count",
		metric.WithDescription("Number of batches processed"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	t.batchDuration, err = t.meter.Float64Histogram(
		"cdcsync.batch.duration",
		metric.WithDescription("Batch processing duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	t.batchErrors, err = t.meter.Int64Counter(
		"cdcsync.batch.errors",
		metric.WithDescription("Number of failed batches"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	t.recordCounter, err = t.meter.Int64Counter(
		"cdcsync.records",
		metric.WithDescription("Change records received, by outcome"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	t.entityCounter, err = t.meter.Int64Counter(
		"cdcsync.entities",
		metric.WithDescription("Distinct entities per batch, by change category"),
		metric.WithUnit("{entity}"),
	)
	if err != nil {
		return nil, err
	}

	t.appliedCounter, err = t.meter.Int64Counter(
		"cdcsync.operations.applied",
		metric.WithDescription("Operations applied downstream"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	t.failedCounter, err = t.meter.Int64Counter(
		"cdcsync.operations.failed",
		metric.WithDescription("Operations the downstream did not apply"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// OnBatchStart starts the batch span.
func (t *Telemetry) OnBatchStart(ctx context.Context, batchID string, records int) context.Context {
	ctx, _ = t.tracer.Start(ctx, "cdcsync.batch",
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.Int("batch.records", records),
		),
	)
	t.batchCounter.Add(ctx, 1)
	return ctx
}

// OnReconciled records the batch statistics.
func (t *Telemetry) OnReconciled(ctx context.Context, stats reconcile.Stats) {
	accepted := stats.Records - stats.Rejected - stats.Excluded
	t.addRecords(ctx, "accepted", accepted)
	t.addRecords(ctx, "rejected", stats.Rejected)
	t.addRecords(ctx, "excluded", stats.Excluded)

	t.addEntities(ctx, reconcile.CategoryNoop, stats.Noop)
	t.addEntities(ctx, reconcile.CategoryAddition, stats.Additions)
	t.addEntities(ctx, reconcile.CategoryDeletion, stats.Deletions)
	t.addEntities(ctx, reconcile.CategoryUpdate, stats.Updates)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("batch.distinct_entities", stats.DistinctEntities),
		attribute.Int("batch.rejected", stats.Rejected),
		attribute.Int("batch.excluded", stats.Excluded),
	)
}

// OnApplied records the downstream apply outcome.
func (t *Telemetry) OnApplied(ctx context.Context, res *reconcile.ApplyResult) {
	if res == nil {
		return
	}
	target := metric.WithAttributes(attribute.String("target", res.Target))
	t.appliedCounter.Add(ctx, int64(res.Applied), target)
	if len(res.Failed) > 0 {
		t.failedCounter.Add(ctx, int64(len(res.Failed)), target)
	}
}

// OnBatchComplete records the duration and ends the batch span. code
// classifies err for the error counter and is ignored when err is nil.
func (t *Telemetry) OnBatchComplete(ctx context.Context, duration time.Duration, code string, err error) {
	span := trace.SpanFromContext(ctx)

	t.batchDuration.Record(ctx, float64(duration.Milliseconds()))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		t.batchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (t *Telemetry) addRecords(ctx context.Context, outcome string, n int) {
	if n <= 0 {
		return
	}
	t.recordCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (t *Telemetry) addEntities(ctx context.Context, category reconcile.Category, n int) {
	if n <= 0 {
		return
	}
	t.entityCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", category.String())))
}
