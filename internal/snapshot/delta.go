package snapshot

// Delta returns the fields of next whose value is not Equivalent to the
// value of the same field in prev. A field missing from prev is never
// equivalent to a present value.
//
// Only next's top-level fields are considered: a field present in prev but
// missing from next is not represented, so the result describes a partial
// update and never a retraction. The result is never nil.
func Delta(prev, next Object) Object {
	out := make(Object)
	for k, nv := range next {
		pv, ok := prev[k]
		if !ok || !Equivalent(pv, nv) {
			out[k] = nv
		}
	}
	return out
}

// Removed returns the fields present in prev but missing from next, in
// canonical key order. Delta never reports them; callers that need
// retractions can use this.
func Removed(prev, next Object) []string {
	var out []string
	for _, k := range prev.SortedKeys() {
		if _, ok := next[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
