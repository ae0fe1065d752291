// Package reconcile reduces one batch of raw change notifications to the
// minimal set of operations that brings a downstream replica in sync.
//
// The pipeline has three stages, each owning its own data:
//
//	Validator  stream.Record -> RawEvent   (drop malformed or excluded records)
//	Collapse   []RawEvent    -> TransitionSet (first old, last new per entity)
//	Classify   TransitionSet -> ClassifiedBatch (noop/addition/deletion/update)
//
// ClassifiedBatch.Operations emits deletions, then additions, then partial
// updates, each group in the order its entities were first seen.
//
// Everything is synchronous and scoped to one Reconcile call. There is no
// state shared between batches, so reconciling the same batch twice yields
// the same operations. Callers must feed records in stream delivery order;
// the collapser does not reorder.
package reconcile
