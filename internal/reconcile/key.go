package reconcile

import "strings"

// KeySeparator joins the two key components into an object ID. It is
// fixed. The validator rejects keys whose components contain it, so
// distinct keys never share an object ID.
const KeySeparator = "|"

// EntityKey identifies one entity by its partition and sort components.
type EntityKey struct {
	Hash  string
	Range string
}

// ObjectID returns the replica identity of the entity.
func (k EntityKey) ObjectID() string {
	return k.Hash + KeySeparator + k.Range
}

// Valid reports whether both components are non-empty.
func (k EntityKey) Valid() bool {
	return k.Hash != "" && k.Range != ""
}

// Ambiguous reports whether a component contains KeySeparator.
func (k EntityKey) Ambiguous() bool {
	return strings.Contains(k.Hash, KeySeparator) || strings.Contains(k.Range, KeySeparator)
}

func (k EntityKey) String() string {
	return k.ObjectID()
}
