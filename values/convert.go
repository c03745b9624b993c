// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"fmt"

	"github.com/grailbio/hailexpr/types"
)

// Convert converts value v of type from to a value of type to. The
// conversion must be permitted by types.CoercerFor(to); numeric
// values are widened, and containers are converted element-wise.
// Missing values remain missing.
func Convert(v T, from, to *types.T) T {
	if IsMissing(v) {
		return Missing
	}
	if from.Equal(to) {
		return v
	}
	if to.IsNumeric() {
		return convertNumeric(v, to.Kind)
	}
	switch to.Kind {
	case types.ArrayKind:
		a := v.(Array)
		out := make(Array, len(a))
		for i, e := range a {
			out[i] = Convert(e, from.Elem, to.Elem)
		}
		return out
	case types.SetKind:
		s := NewSet(to.Elem)
		for _, e := range v.(*Set).Elems() {
			s.Add(Convert(e, from.Elem, to.Elem))
		}
		return s
	case types.DictKind:
		d := NewDict(to.Index)
		v.(*Dict).Each(func(k, e T) {
			d.Put(Convert(k, from.Index, to.Index), Convert(e, from.Elem, to.Elem))
		})
		return d
	case types.IntervalKind:
		iv := v.(Interval)
		iv.Start = Convert(iv.Start, from.Elem, to.Elem)
		iv.End = Convert(iv.End, from.Elem, to.Elem)
		return iv
	case types.TupleKind:
		tuple := v.(Tuple)
		out := make(Tuple, len(tuple))
		for i := range tuple {
			out[i] = Convert(tuple[i], from.Fields[i].T, to.Fields[i].T)
		}
		return out
	case types.StructKind:
		s := v.(Struct)
		out := make(Struct, len(s))
		for i, f := range to.Fields {
			out[f.Name] = Convert(s[f.Name], from.Fields[i].T, f.T)
		}
		return out
	}
	panic(fmt.Sprintf("cannot convert %v to %v", from, to))
}

func convertNumeric(v T, to types.Kind) T {
	var (
		i       int64
		f       float64
		integer bool
	)
	switch v := v.(type) {
	case bool:
		integer = true
		if v {
			i = 1
		}
	case int32:
		i, integer = int64(v), true
	case int64:
		i, integer = v, true
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		panic(fmt.Sprintf("cannot convert %T to a number", v))
	}
	if integer {
		f = float64(i)
	} else {
		i = int64(f)
	}
	switch to {
	case types.Int32Kind:
		return int32(i)
	case types.Int64Kind:
		return i
	case types.Float32Kind:
		return float32(f)
	case types.Float64Kind:
		return f
	}
	panic("not a numeric kind")
}

// ToFloat64 returns the float64 of a numeric value.
func ToFloat64(v T) float64 {
	return convertNumeric(v, types.Float64Kind).(float64)
}

// ToInt64 returns the int64 of a numeric value, truncating floats.
func ToInt64(v T) int64 {
	return convertNumeric(v, types.Int64Kind).(int64)
}
