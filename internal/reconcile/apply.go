package reconcile

import (
	"fmt"
	"strings"
)

// FailedOperation is one operation a downstream applier did not apply.
type FailedOperation struct {
	// Index is the position of the operation in the submitted batch.
	Index    int    `json:"index"`
	Action   Action `json:"action"`
	ObjectID string `json:"object_id"`
	Reason   string `json:"reason"`
}

// ApplyResult reports the per-operation outcome of applying a batch.
type ApplyResult struct {
	// Target names the applier, e.g. "sqlite:/var/db/replica.db".
	Target  string            `json:"target"`
	Applied int               `json:"applied"`
	Failed  []FailedOperation `json:"failed,omitempty"`
	// TaskID is an applier-specific handle for asynchronous work, if any.
	TaskID string `json:"task_id,omitempty"`
}

// OK reports whether every operation was applied.
func (r *ApplyResult) OK() bool {
	return r != nil && len(r.Failed) == 0
}

// Fail records a failed operation.
func (r *ApplyResult) Fail(index int, op Operation, reason string) {
	r.Failed = append(r.Failed, FailedOperation{
		Index:    index,
		Action:   op.Action,
		ObjectID: op.ObjectID,
		Reason:   reason,
	})
}

// Summary returns a one-line description of the failures.
func (r *ApplyResult) Summary() string {
	if r.OK() {
		return fmt.Sprintf("%s: %d applied", r.Target, r.Applied)
	}
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.ObjectID)
	}
	return fmt.Sprintf("%s: %d applied, %d failed (%s)", r.Target, r.Applied, len(r.Failed), strings.Join(ids, ", "))
}
