package reconcile

import (
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// Category is the classification of one Transition.
type Category int

const (
	// CategoryNoop: both sides absent, or both present and equivalent.
	CategoryNoop Category = iota
	// CategoryAddition: Old absent, New present.
	CategoryAddition
	// CategoryDeletion: Old present, New absent.
	CategoryDeletion
	// CategoryUpdate: both present and not equivalent.
	CategoryUpdate
)

func (c Category) String() string {
	switch c {
	case CategoryNoop:
		return "noop"
	case CategoryAddition:
		return "addition"
	case CategoryDeletion:
		return "deletion"
	case CategoryUpdate:
		return "update"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Update is a transition classified as an update, with the fields that
// changed.
type Update struct {
	Transition
	Delta snapshot.Object
}

// ClassifiedBatch partitions every transition of a batch into exactly one
// category. Each slice keeps first-seen order.
type ClassifiedBatch struct {
	Noop      []Transition
	Additions []Transition
	Deletions []Transition
	Updates   []Update

	// Edits counts transitions with both sides present, before equivalent
	// ones were moved to Noop.
	Edits int

	categories map[string]Category
}

// Classify partitions ts. Transitions with both sides present are split by
// snapshot.Equivalent; the remaining updates get their snapshot.Delta.
func Classify(ts *TransitionSet) *ClassifiedBatch {
	cb := &ClassifiedBatch{categories: make(map[string]Category, ts.Len())}

	for _, tr := range ts.All() {
		id := tr.Key.ObjectID()
		switch {
		case tr.Old == nil && tr.New == nil:
			cb.Noop = append(cb.Noop, tr)
			cb.categories[id] = CategoryNoop
		case tr.Old == nil:
			cb.Additions = append(cb.Additions, tr)
			cb.categories[id] = CategoryAddition
		case tr.New == nil:
			cb.Deletions = append(cb.Deletions, tr)
			cb.categories[id] = CategoryDeletion
		default:
			cb.Edits++
			if snapshot.Equivalent(tr.Old, tr.New) {
				cb.Noop = append(cb.Noop, tr)
				cb.categories[id] = CategoryNoop
				continue
			}
			cb.Updates = append(cb.Updates, Update{Transition: tr, Delta: snapshot.Delta(tr.Old, tr.New)})
			cb.categories[id] = CategoryUpdate
		}
	}
	return cb
}

// Category returns the category of an object ID, and false if the ID was
// not part of the batch.
func (cb *ClassifiedBatch) Category(id string) (Category, bool) {
	c, ok := cb.categories[id]
	return c, ok
}

// Len returns the number of classified entities.
func (cb *ClassifiedBatch) Len() int {
	return len(cb.categories)
}

// Operations emits the replica operations for the batch: deletions first,
// then additions with the full new snapshot, then partial updates with the
// delta. Noop transitions emit nothing.
func (cb *ClassifiedBatch) Operations() []Operation {
	ops := make([]Operation, 0, len(cb.Deletions)+len(cb.Additions)+len(cb.Updates))
	for _, tr := range cb.Deletions {
		ops = append(ops, Operation{Action: ActionDelete, ObjectID: tr.Key.ObjectID()})
	}
	for _, tr := range cb.Additions {
		ops = append(ops, Operation{Action: ActionAdd, ObjectID: tr.Key.ObjectID(), Fields: tr.New})
	}
	for _, u := range cb.Updates {
		ops = append(ops, Operation{Action: ActionPartialUpdate, ObjectID: u.Key.ObjectID(), Fields: u.Delta})
	}
	return ops
}
