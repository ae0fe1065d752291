package reconcile

import "github.com/HENNGE/lambda-container-example/internal/snapshot"

// Transition is the net change of one entity across a batch.
// Old and New are nil when the entity does not exist on that side.
type Transition struct {
	Key EntityKey
	Old snapshot.Object
	New snapshot.Object
}

// TransitionSet holds one Transition per entity, in first-seen order.
// It is owned by a single Reconcile call.
type TransitionSet struct {
	ids  []string
	byID map[string]*Transition
}

// NewTransitionSet creates an empty set.
func NewTransitionSet() *TransitionSet {
	return &TransitionSet{byID: make(map[string]*Transition)}
}

// Collapse folds events, in the given order, into one Transition per
// entity.
func Collapse(events []RawEvent) *TransitionSet {
	ts := NewTransitionSet()
	for _, ev := range events {
		ts.Add(ev)
	}
	return ts
}

// Add folds one event into the set. The first event seen for a key fixes
// Old; every event overwrites New. Event kinds are not consulted, so any
// sequence of inserts, modifies and removes reduces to start-to-end net
// effect.
func (ts *TransitionSet) Add(ev RawEvent) {
	id := ev.Key.ObjectID()
	if tr, ok := ts.byID[id]; ok {
		tr.New = ev.New
		return
	}
	ts.ids = append(ts.ids, id)
	ts.byID[id] = &Transition{Key: ev.Key, Old: ev.Old, New: ev.New}
}

// Len returns the number of distinct entities.
func (ts *TransitionSet) Len() int {
	return len(ts.ids)
}

// Get returns the transition for an object ID.
func (ts *TransitionSet) Get(id string) (Transition, bool) {
	tr, ok := ts.byID[id]
	if !ok {
		return Transition{}, false
	}
	return *tr, true
}

// All returns every transition in first-seen order.
func (ts *TransitionSet) All() []Transition {
	out := make([]Transition, len(ts.ids))
	for i, id := range ts.ids {
		out[i] = *ts.byID[id]
	}
	return out
}
