// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

// numericRank orders the numeric types by the promotion lattice
// int32 < int64 < float32 < float64. Booleans rank with int32.
func numericRank(t *T) int {
	switch t.Kind {
	case BoolKind, Int32Kind:
		return 0
	case Int64Kind:
		return 1
	case Float32Kind:
		return 2
	case Float64Kind:
		return 3
	}
	return -1
}

var numericByRank = [...]*T{Int32, Int64, Float32, Float64}

// IsArithmetic tells whether values of type t may be operands of
// arithmetic operators: the numeric types and bool.
func (t *T) IsArithmetic() bool {
	return numericRank(t) >= 0
}

// Join returns the least upper bound of the arithmetic types a and
// b in the promotion lattice int32 < int64 < float32 < float64.
// Booleans are promoted to int32. Join returns an error type if
// either type is not arithmetic.
func Join(a, b *T) *T {
	if err := a.Err(); err != nil {
		return a
	}
	if err := b.Err(); err != nil {
		return b
	}
	ra, rb := numericRank(a), numericRank(b)
	if ra < 0 || rb < 0 {
		return Errorf("cannot promote %v and %v to a common numeric type", a, b)
	}
	if rb > ra {
		ra = rb
	}
	return numericByRank[ra]
}

// Promote returns the numeric type of t in arithmetic: bool is
// promoted to int32; other numeric types are returned unchanged.
func Promote(t *T) *T {
	if t.Kind == BoolKind {
		return Int32
	}
	return t
}

// Unify returns the least common type of ts: numeric types unify to
// their join; arrays, sets, dicts, intervals, structs, and tuples
// unify element-wise; all other types must be equal. Unify returns
// an error type if the types cannot be unified.
func Unify(ts ...*T) *T {
	if len(ts) == 0 {
		return Errorf("no types to unify")
	}
	t := ts[0]
	for _, u := range ts[1:] {
		t = unify(t, u)
		if t.Kind == ErrorKind {
			return t
		}
	}
	return t
}

func unify(t, u *T) *T {
	switch {
	case t.Kind == ErrorKind:
		return t
	case u.Kind == ErrorKind:
		return u
	case t.Equal(u):
		return t
	case t.IsNumeric() && u.IsNumeric():
		return Join(t, u)
	case t.Kind != u.Kind:
		return Errorf("cannot unify %v and %v", t, u)
	}
	switch t.Kind {
	case ArrayKind:
		return Array(unify(t.Elem, u.Elem))
	case SetKind:
		return Set(unify(t.Elem, u.Elem))
	case IntervalKind:
		return Interval(unify(t.Elem, u.Elem))
	case DictKind:
		return Dict(unify(t.Index, u.Index), unify(t.Elem, u.Elem))
	case StructKind:
		if len(t.Fields) != len(u.Fields) {
			return Errorf("cannot unify %v and %v: mismatched fields", t, u)
		}
		fields := make([]*Field, len(t.Fields))
		for i := range t.Fields {
			if t.Fields[i].Name != u.Fields[i].Name {
				return Errorf("cannot unify %v and %v: mismatched fields", t, u)
			}
			fields[i] = &Field{Name: t.Fields[i].Name, T: unify(t.Fields[i].T, u.Fields[i].T)}
		}
		return Struct(fields...)
	case TupleKind:
		if len(t.Fields) != len(u.Fields) {
			return Errorf("mismatched tuple length: %v != %v", len(t.Fields), len(u.Fields))
		}
		elems := make([]*T, len(t.Fields))
		for i := range t.Fields {
			elems[i] = unify(t.Fields[i].T, u.Fields[i].T)
		}
		return Tuple(elems...)
	}
	return Errorf("cannot unify %v and %v", t, u)
}
