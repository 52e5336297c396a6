package jsonv

// Equal reports whether a and b are structurally equal. Numbers compare by
// value, so 1, 1.0 and 1e0 are equal. Objects compare as key sets; member
// order is ignored. nil and Null are equal.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch a := a.(type) {
	case nil, Null:
		return true
	case Bool:
		return a == b.(Bool)
	case Number:
		return a.Equal(b.(Number))
	case String:
		return a == b.(String)
	case Array:
		bb := b.(Array)
		if len(a) != len(bb) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bb[i]) {
				return false
			}
		}
		return true
	case *Object:
		bo := b.(*Object)
		if a.Len() != bo.Len() {
			return false
		}
		for _, m := range a.Members() {
			other, ok := bo.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	default:
		panic("jsonv: unknown value type")
	}
}
