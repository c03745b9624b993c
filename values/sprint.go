// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
)

// Sprint returns a pretty-printed version of value v
// with type t. Missing values are printed as NA.
func Sprint(v T, t *types.T) string {
	if IsMissing(v) {
		return "NA"
	}
	switch t.Kind {
	case types.ErrorKind:
		panic("illegal type")
	case types.Int32Kind:
		return strconv.FormatInt(int64(v.(int32)), 10)
	case types.Int64Kind:
		return strconv.FormatInt(v.(int64), 10)
	case types.Float32Kind:
		return formatFloat(float64(v.(float32)), 32)
	case types.Float64Kind:
		return formatFloat(v.(float64), 64)
	case types.StrKind:
		return fmt.Sprintf("%q", v.(string))
	case types.BoolKind:
		if v.(bool) {
			return "true"
		}
		return "false"
	case types.CallKind:
		return v.(genetics.Call).String()
	case types.LocusKind:
		return v.(genetics.Locus).String()
	case types.IntervalKind:
		iv := v.(Interval)
		lo, hi := "(", ")"
		if iv.IncludesStart {
			lo = "["
		}
		if iv.IncludesEnd {
			hi = "]"
		}
		return lo + Sprint(iv.Start, t.Elem) + "-" + Sprint(iv.End, t.Elem) + hi
	case types.ArrayKind:
		array := v.(Array)
		elems := make([]string, len(array))
		for i, e := range array {
			elems[i] = Sprint(e, t.Elem)
		}
		return fmt.Sprintf("[%s]", strings.Join(elems, ", "))
	case types.SetKind:
		var elems []string
		for _, e := range v.(*Set).Elems() {
			elems = append(elems, Sprint(e, t.Elem))
		}
		return fmt.Sprintf("{%s}", strings.Join(elems, ", "))
	case types.DictKind:
		var elems []string
		v.(*Dict).Each(func(k, v T) {
			elems = append(elems, fmt.Sprintf("%s: %s", Sprint(k, t.Index), Sprint(v, t.Elem)))
		})
		return fmt.Sprintf("{%s}", strings.Join(elems, ", "))
	case types.TupleKind:
		tuple := v.(Tuple)
		elems := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			elems[i] = Sprint(tuple[i], f.T)
		}
		return fmt.Sprintf("(%s)", strings.Join(elems, ", "))
	case types.StructKind:
		s := v.(Struct)
		elems := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			elems[i] = fmt.Sprintf("%s: %s", f.Name, Sprint(s[f.Name], f.T))
		}
		return fmt.Sprintf("{%s}", strings.Join(elems, ", "))
	default:
		panic("unknown type " + t.String())
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
