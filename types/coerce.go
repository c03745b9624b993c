// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

// A Coercer decides whether values of a type may be used where
// values of its target type are expected, and whether doing so
// requires a value conversion.
type Coercer struct {
	target *T
}

// CoercerFor returns the coercer whose target type is t.
func CoercerFor(t *T) *Coercer {
	return &Coercer{target: t}
}

// CanCoerce tells whether a value of type u may be used where a value
// of the coercer's target type is expected. Numeric targets accept
// narrower numeric types; arrays, sets, dicts, intervals, structs,
// and tuples accept types whose components can be coerced. All other
// targets require equality.
func (c *Coercer) CanCoerce(u *T) bool {
	return canCoerce(c.target, u)
}

// RequiresConversion tells whether using a value of type u where
// the coercer's target type is expected requires converting the
// value. RequiresConversion is false whenever u equals the target.
func (c *Coercer) RequiresConversion(u *T) bool {
	return c.CanCoerce(u) && !c.target.Equal(u)
}

func canCoerce(t, u *T) bool {
	if t == nil || u == nil || t.Kind == ErrorKind || u.Kind == ErrorKind {
		return false
	}
	if t.IsNumeric() {
		return u.IsNumeric() && numericRank(u) <= numericRank(t)
	}
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case ArrayKind, SetKind, IntervalKind:
		return canCoerce(t.Elem, u.Elem)
	case DictKind:
		return canCoerce(t.Index, u.Index) && canCoerce(t.Elem, u.Elem)
	case StructKind, TupleKind:
		if len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != u.Fields[i].Name || !canCoerce(t.Fields[i].T, u.Fields[i].T) {
				return false
			}
		}
		return true
	}
	return t.Equal(u)
}
