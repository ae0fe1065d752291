// Package pipeline runs one change batch end to end: configuration check,
// reconciliation, downstream apply and failure reporting.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/stream"
	"github.com/HENNGE/lambda-container-example/internal/telemetry"
)

// Applier writes an operation batch to a downstream.
type Applier interface {
	// Target names the downstream in logs and results.
	Target() string
	// Check reports missing configuration without doing any I/O that
	// changes downstream state.
	Check() error
	// Apply applies ops and reports per-operation outcomes.
	Apply(ctx context.Context, batchID string, ops []reconcile.Operation) (*reconcile.ApplyResult, error)
}

// Outcome is what one batch produced.
type Outcome struct {
	BatchID string                   `json:"batch_id"`
	Result  *reconcile.Result        `json:"-"`
	Applied []*reconcile.ApplyResult `json:"applied,omitempty"`
}

// Stats returns the reconcile statistics.
func (o *Outcome) Stats() reconcile.Stats {
	if o == nil || o.Result == nil {
		return reconcile.Stats{}
	}
	return o.Result.Stats
}

// Processor processes batches. It holds no per-batch state and is safe
// for concurrent use if its appliers are.
type Processor struct {
	reconciler *reconcile.Reconciler
	appliers   []Applier
	ids        IDGenerator
	telemetry  *telemetry.Telemetry
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithApplier adds a downstream. Appliers run in the order added.
func WithApplier(a Applier) Option {
	return func(p *Processor) {
		p.appliers = append(p.appliers, a)
	}
}

// WithIDGenerator replaces the batch ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Processor) {
		p.ids = g
	}
}

// WithTelemetry records metrics and traces for each batch.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(p *Processor) {
		p.telemetry = t
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// NewProcessor creates a Processor.
func NewProcessor(r *reconcile.Reconciler, opts ...Option) *Processor {
	p := &Processor{
		reconciler: r,
		ids:        UUIDv7Generator{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check reports the first applier with missing configuration. A
// processor without appliers is not configured.
func (p *Processor) Check() error {
	if be := p.check(""); be != nil {
		return be
	}
	return nil
}

func (p *Processor) check(batchID string) *BatchError {
	if len(p.appliers) == 0 {
		return &BatchError{Code: ErrCodeMissingConfig, Message: "no downstream configured", BatchID: batchID}
	}
	for _, a := range p.appliers {
		if err := a.Check(); err != nil {
			return &BatchError{
				Code:    ErrCodeMissingConfig,
				Message: fmt.Sprintf("downstream %s is not configured", a.Target()),
				BatchID: batchID,
				Err:     err,
			}
		}
	}
	return nil
}

// Plan reconciles ev without applying it.
func (p *Processor) Plan(ev stream.Event) *Outcome {
	return &Outcome{BatchID: p.ids.Generate(), Result: p.reconciler.Reconcile(ev)}
}

// Process checks configuration, reconciles ev and applies the operations
// to every downstream.
//
// Missing configuration fails the batch before any work is done. Every
// downstream is attempted even if an earlier one fails; the returned
// *BatchError carries the failed operations of all of them. The outcome is
// returned alongside any apply error.
func (p *Processor) Process(ctx context.Context, ev stream.Event) (*Outcome, error) {
	start := p.now()
	out := &Outcome{BatchID: p.ids.Generate()}
	if p.telemetry != nil {
		ctx = p.telemetry.OnBatchStart(ctx, out.BatchID, len(ev.Records))
	}

	err := p.process(ctx, ev, out)

	if p.telemetry != nil {
		p.telemetry.OnBatchComplete(ctx, p.now().Sub(start), string(CodeOf(err)), err)
	}
	if err != nil {
		p.logger.Error("batch failed",
			"batch_id", out.BatchID,
			"code", CodeOf(err),
			"error", err,
		)
		return out, err
	}

	p.logger.Info("batch processed",
		"batch_id", out.BatchID,
		"stats", out.Stats(),
		"duration", p.now().Sub(start),
	)
	return out, nil
}

func (p *Processor) process(ctx context.Context, ev stream.Event, out *Outcome) error {
	if be := p.check(out.BatchID); be != nil {
		return be
	}

	out.Result = p.reconciler.Reconcile(ev)
	if p.telemetry != nil {
		p.telemetry.OnReconciled(ctx, out.Result.Stats)
	}

	ops := out.Result.Operations
	if len(ops) == 0 {
		p.logger.Debug("nothing to apply", "batch_id", out.BatchID)
		return nil
	}

	var failed []reconcile.FailedOperation
	var firstErr error
	for _, a := range p.appliers {
		res, err := a.Apply(ctx, out.BatchID, ops)
		if err != nil {
			p.logger.Error("apply aborted",
				"batch_id", out.BatchID,
				"target", a.Target(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", a.Target(), err)
			}
			continue
		}

		out.Applied = append(out.Applied, res)
		if p.telemetry != nil {
			p.telemetry.OnApplied(ctx, res)
		}
		if !res.OK() {
			p.logger.Warn("apply incomplete", "batch_id", out.BatchID, "summary", res.Summary())
			failed = append(failed, res.Failed...)
		}
	}

	switch {
	case firstErr != nil:
		return &BatchError{
			Code:    ErrCodeApplyError,
			Message: "downstream apply aborted",
			BatchID: out.BatchID,
			Failed:  failed,
			Err:     firstErr,
		}
	case len(failed) > 0:
		return &BatchError{
			Code:    ErrCodeApplyFailed,
			Message: fmt.Sprintf("%d of %d operations not applied", len(failed), len(ops)),
			BatchID: out.BatchID,
			Failed:  failed,
		}
	}
	return nil
}
