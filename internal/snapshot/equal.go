package snapshot

import (
	"bytes"
	"slices"
)

// Equivalent reports whether a and b describe the same state.
//
// Rules, in order:
//  1. absent only equals absent
//  2. values of different kinds are never equivalent
//  3. primitives compare by exact value
//  4. arrays are equivalent iff they are equal as multisets under
//     Equivalent; element order is irrelevant
//  5. objects are equivalent iff they have the same key set and every
//     value pair is equivalent
//
// Arrays are compared by ordering both sides with SortKey and pairing
// elements positionally. SortKey maps equivalent values to identical bytes,
// so the pairing is exact for nested arrays and objects too.
func Equivalent(a, b Value) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}

	switch ka {
	case KindAbsent, KindNull:
		return true
	case KindBool:
		return a.(Bool) == b.(Bool)
	case KindNumber:
		return a.(Number) == b.(Number)
	case KindString:
		return a.(String) == b.(String)
	case KindArray:
		return equivalentArrays(a.(Array), b.(Array))
	case KindObject:
		return equivalentObjects(a.(Object), b.(Object))
	}
	return false
}

func equivalentArrays(a, b Array) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := sortedBySortKey(a), sortedBySortKey(b)
	for i := range sa {
		if !Equivalent(sa[i], sb[i]) {
			return false
		}
	}
	return true
}

func equivalentObjects(a, b Object) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		// A key mapped to a nil Value is still a key; compare values only.
		if !Equivalent(av, bv) {
			return false
		}
	}
	return true
}

// sortedBySortKey returns a copy of arr ordered by SortKey. The input is
// not modified.
func sortedBySortKey(arr Array) Array {
	type keyed struct {
		key []byte
		val Value
	}
	ks := make([]keyed, len(arr))
	for i, v := range arr {
		ks[i] = keyed{key: SortKey(v), val: v}
	}
	slices.SortStableFunc(ks, func(x, y keyed) int {
		return bytes.Compare(x.key, y.key)
	})
	out := make(Array, len(ks))
	for i, k := range ks {
		out[i] = k.val
	}
	return out
}
