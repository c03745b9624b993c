// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package values defines data structures for representing (runtime)
// values of genomic expressions. Every type (see
// github.com/grailbio/hailexpr/types) has representable values, and
// the structures in this package mirror those in the type system:
//
//	int32, int64, float32, float64   Go's int32, int64, float32, float64
//	str                              string
//	bool                             bool
//	call                             genetics.Call
//	locus<rg>                        genetics.Locus
//	interval<t>                      Interval
//	array<t>                         Array
//	set<t>                           *Set
//	dict<k, v>                       *Dict
//	struct{...}                      Struct
//	tuple(...)                       Tuple
//
// The domain of every type also contains Missing, which is distinct
// from every other value.
//
// Values are represented by values.T, defined as
//
//	type T = interface{}
//
// which is done to clarify code that uses expression values.
package values

import (
	"math"
	"sort"

	"github.com/grailbio/hailexpr/genetics"
)

// T is the type of value. It is just an alias to interface{},
// but is used throughout code for clarity.
type T interface{}

type missing struct{}

func (missing) String() string { return "NA" }

// Missing is the missing value. It is a member of every type.
var Missing T = missing{}

// IsMissing tells whether v is missing. The nil value is treated
// as missing, so that absent struct fields read as missing.
func IsMissing(v T) bool {
	return v == nil || v == Missing
}

// Array is the type of array values.
type Array []T

// Tuple is the type of tuple values.
type Tuple []T

// Struct is the type of struct values. The field order is defined
// by the struct's type; fields absent from the map are missing.
type Struct map[string]T

// Interval is the type of interval values.
type Interval struct {
	Start, End                 T
	IncludesStart, IncludesEnd bool
}

// LocusInterval returns the interval value of a genetics locus
// interval.
func LocusInterval(iv genetics.LocusInterval) Interval {
	return Interval{
		Start:         iv.Start,
		End:           iv.End,
		IncludesStart: iv.IncludesStart,
		IncludesEnd:   iv.IncludesEnd,
	}
}

// Contains tells whether the point p lies within the interval.
func (iv Interval) Contains(p T) bool {
	c := Compare(iv.Start, p)
	if c > 0 || c == 0 && !iv.IncludesStart {
		return false
	}
	c = Compare(p, iv.End)
	return c < 0 || c == 0 && iv.IncludesEnd
}

// Overlaps tells whether the two intervals share any point.
func (iv Interval) Overlaps(jv Interval) bool {
	return !iv.before(jv) && !jv.before(iv)
}

// before tells whether iv ends before jv starts.
func (iv Interval) before(jv Interval) bool {
	c := Compare(iv.End, jv.Start)
	return c < 0 || c == 0 && !(iv.IncludesEnd && jv.IncludesStart)
}

// Equal tells whether values v and w are structurally equal. Unlike
// expression-level equality, missing values equal each other, and
// NaN equals NaN, so that Equal may be used to identify dictionary
// keys and set members.
func Equal(v, w T) bool {
	if IsMissing(v) || IsMissing(w) {
		return IsMissing(v) && IsMissing(w)
	}
	switch v := v.(type) {
	case int32, int64, string, bool:
		return v == w
	case float32:
		w, ok := w.(float32)
		return ok && (v == w || v != v && w != w)
	case float64:
		w, ok := w.(float64)
		return ok && (v == w || math.IsNaN(v) && math.IsNaN(w))
	case genetics.Call:
		w, ok := w.(genetics.Call)
		return ok && v.Equal(w)
	case genetics.Locus:
		return v == w
	case Interval:
		w, ok := w.(Interval)
		return ok && v.IncludesStart == w.IncludesStart && v.IncludesEnd == w.IncludesEnd &&
			Equal(v.Start, w.Start) && Equal(v.End, w.End)
	case Array:
		w, ok := w.(Array)
		return ok && equalSlice(v, w)
	case Tuple:
		w, ok := w.(Tuple)
		return ok && equalSlice(v, w)
	case Struct:
		w, ok := w.(Struct)
		if !ok {
			return false
		}
		for k, vv := range v {
			if !Equal(vv, w[k]) {
				return false
			}
		}
		for k, wv := range w {
			if _, ok := v[k]; !ok && !IsMissing(wv) {
				return false
			}
		}
		return true
	case *Set:
		w, ok := w.(*Set)
		if !ok || v.Len() != w.Len() {
			return false
		}
		for _, e := range v.Elems() {
			if !w.Contains(e) {
				return false
			}
		}
		return true
	case *Dict:
		w, ok := w.(*Dict)
		if !ok || v.Len() != w.Len() {
			return false
		}
		equal := true
		v.Each(func(k, vv T) {
			if !equal {
				return
			}
			wv, ok := w.Get(k)
			equal = ok && Equal(vv, wv)
		})
		return equal
	}
	return false
}

func equalSlice(v, w []T) bool {
	if len(v) != len(w) {
		return false
	}
	for i := range v {
		if !Equal(v[i], w[i]) {
			return false
		}
	}
	return true
}

// Less tells whether value v is (structurally) less than w.
// Missing values sort after every other value.
func Less(v, w T) bool {
	return Compare(v, w) < 0
}

// Compare returns an integer comparing v and w in the total order
// used to sort values: negative if v < w, zero if v equals w, and
// positive if v > w. Missing values sort last; NaN sorts after every
// other float. Loci are compared in the order of the default
// reference genome.
func Compare(v, w T) int {
	switch vm, wm := IsMissing(v), IsMissing(w); {
	case vm && wm:
		return 0
	case vm:
		return 1
	case wm:
		return -1
	}
	switch v := v.(type) {
	case int32:
		return compareInt64(int64(v), int64(w.(int32)))
	case int64:
		return compareInt64(v, w.(int64))
	case float32:
		return compareFloat(float64(v), float64(w.(float32)))
	case float64:
		return compareFloat(v, w.(float64))
	case string:
		w := w.(string)
		switch {
		case v < w:
			return -1
		case v > w:
			return 1
		}
		return 0
	case bool:
		w := w.(bool)
		switch {
		case v == w:
			return 0
		case !v:
			return -1
		}
		return 1
	case genetics.Call:
		w := w.(genetics.Call)
		if c := compareInt64(int64(v.Ploidy()), int64(w.Ploidy())); c != 0 {
			return c
		}
		for i := range v.Alleles {
			if c := compareInt64(int64(v.Alleles[i]), int64(w.Alleles[i])); c != 0 {
				return c
			}
		}
		return Compare(v.Phased, w.Phased)
	case genetics.Locus:
		return v.Compare(nil, w.(genetics.Locus))
	case Interval:
		w := w.(Interval)
		if c := Compare(v.Start, w.Start); c != 0 {
			return c
		}
		if v.IncludesStart != w.IncludesStart {
			if v.IncludesStart {
				return -1
			}
			return 1
		}
		if c := Compare(v.End, w.End); c != 0 {
			return c
		}
		return Compare(v.IncludesEnd, w.IncludesEnd)
	case Array:
		return compareSlice(v, w.(Array))
	case Tuple:
		return compareSlice(v, w.(Tuple))
	case Struct:
		w := w.(Struct)
		keys := make([]string, 0, len(v)+len(w))
		for k := range v {
			keys = append(keys, k)
		}
		for k := range w {
			if _, ok := v[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if c := Compare(v[k], w[k]); c != 0 {
				return c
			}
		}
		return 0
	case *Set:
		return compareSlice(v.Elems(), w.(*Set).Elems())
	case *Dict:
		w := w.(*Dict)
		vk, wk := v.Keys(), w.Keys()
		if c := compareSlice(vk, wk); c != 0 {
			return c
		}
		for _, k := range vk {
			vv, _ := v.Get(k)
			wv, _ := w.Get(k)
			if c := Compare(vv, wv); c != 0 {
				return c
			}
		}
		return 0
	default:
		panic("attempted to compare incomparable values")
	}
}

func compareInt64(v, w int64) int {
	switch {
	case v < w:
		return -1
	case v > w:
		return 1
	}
	return 0
}

func compareFloat(v, w float64) int {
	switch vn, wn := math.IsNaN(v), math.IsNaN(w); {
	case vn && wn:
		return 0
	case vn:
		return 1
	case wn:
		return -1
	case v < w:
		return -1
	case v > w:
		return 1
	}
	return 0
}

func compareSlice(v, w []T) int {
	for i := 0; i < len(v) && i < len(w); i++ {
		if c := Compare(v[i], w[i]); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(v)), int64(len(w)))
}

// Sort sorts values in place according to Less.
func Sort(vs []T) {
	sort.SliceStable(vs, func(i, j int) bool { return Less(vs[i], vs[j]) })
}
