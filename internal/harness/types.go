package harness

import (
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause matched.
	Pass bool `json:"pass"`

	// Operations are the operations the reconciler emitted.
	Operations []reconcile.Operation `json:"operations"`

	// Stats are the reconciler's batch stats.
	Stats reconcile.Stats `json:"stats"`

	// Rejections holds the reject code of each dropped record.
	Rejections []string `json:"rejections,omitempty"`

	// Replica holds the final object bodies when the scenario has a
	// replica section.
	Replica []snapshot.Object `json:"replica,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Operations: []reconcile.Operation{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
