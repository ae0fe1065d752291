package reconcile

import "log/slog"

// Stats summarizes one batch. It is meant for observability, not control
// flow.
type Stats struct {
	// Records is the number of notifications received.
	Records int `json:"records"`
	// Rejected counts malformed records; Excluded counts filtered ones.
	Rejected int `json:"rejected"`
	Excluded int `json:"excluded"`
	// DistinctEntities is the number of entities touched by valid records.
	DistinctEntities int `json:"distinct_entities"`

	Noop      int `json:"noop"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Updates   int `json:"updates"`
	// Edits counts both-sides-present transitions before the equivalence
	// check; Edits - Updates is how many apparent updates were no-ops.
	Edits int `json:"edits"`
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("records", s.Records),
		slog.Int("rejected", s.Rejected),
		slog.Int("excluded", s.Excluded),
		slog.Int("distinct_entities", s.DistinctEntities),
		slog.Int("noop", s.Noop),
		slog.Int("additions", s.Additions),
		slog.Int("deletions", s.Deletions),
		slog.Int("updates", s.Updates),
		slog.Int("edits", s.Edits),
	)
}

func (cb *ClassifiedBatch) fillStats(s *Stats) {
	s.DistinctEntities = cb.Len()
	s.Noop = len(cb.Noop)
	s.Additions = len(cb.Additions)
	s.Deletions = len(cb.Deletions)
	s.Updates = len(cb.Updates)
	s.Edits = cb.Edits
}
