package reconcile

import (
	"errors"
	"log/slog"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// Result is everything one Reconcile call produced.
type Result struct {
	Classified *ClassifiedBatch
	Operations []Operation
	Stats      Stats

	// Rejections lists every dropped record, in input order.
	Rejections []*Rejection
}

// Reconciler runs the validate, collapse, classify pipeline over a batch.
// A Reconciler holds no per-batch state and is safe for concurrent use.
type Reconciler struct {
	validator *Validator
	logger    *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// New creates a Reconciler.
func New(v *Validator, opts ...Option) *Reconciler {
	r := &Reconciler{validator: v, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile reduces the whole batch before returning any operation.
// Dropped records are logged (excluded ones at debug level) and counted;
// they never fail the batch.
func (r *Reconciler) Reconcile(ev stream.Event) *Result {
	res := &Result{Stats: Stats{Records: len(ev.Records)}}

	events := make([]RawEvent, 0, len(ev.Records))
	for i, rec := range ev.Records {
		raw, err := r.validator.Validate(rec)
		if err != nil {
			r.drop(res, i, err)
			continue
		}
		events = append(events, raw)
	}

	res.Classified = Classify(Collapse(events))
	res.Classified.fillStats(&res.Stats)
	res.Operations = res.Classified.Operations()

	for _, u := range res.Classified.Updates {
		if gone := snapshot.Removed(u.Old, u.New); len(gone) > 0 {
			r.logger.Debug("fields dropped without retraction",
				"key", u.Key.ObjectID(),
				"fields", gone,
			)
		}
	}

	r.logger.Info("batch reconciled", "stats", res.Stats, "operations", len(res.Operations))
	return res
}

func (r *Reconciler) drop(res *Result, index int, err error) {
	var rej *Rejection
	if !errors.As(err, &rej) {
		rej = &Rejection{Code: ErrCodeMapping, Message: "validation failed", Err: err}
	}
	res.Rejections = append(res.Rejections, rej)

	if rej.Excluded() {
		res.Stats.Excluded++
		r.logger.Debug("record excluded",
			"index", index,
			"event_id", rej.EventID,
			"code", rej.Code,
			"key", rej.Key.ObjectID(),
		)
		return
	}

	res.Stats.Rejected++
	r.logger.Error("record rejected",
		"index", index,
		"event_id", rej.EventID,
		"code", rej.Code,
		"error", rej,
	)
}
