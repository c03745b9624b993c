// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"math"
	"testing"

	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
)

func TestMissing(t *testing.T) {
	for _, v := range []T{nil, Missing} {
		if !IsMissing(v) {
			t.Errorf("%v is not missing", v)
		}
	}
	for _, v := range []T{int32(0), "", false, Array{}, Struct{}} {
		if IsMissing(v) {
			t.Errorf("%v is missing", v)
		}
	}
	if !Equal(Missing, nil) {
		t.Error("missing values are equal")
	}
	if Equal(Missing, int32(0)) {
		t.Error("missing equals zero")
	}
}

func TestEqual(t *testing.T) {
	for _, c := range []struct {
		v, w  T
		equal bool
	}{
		{int32(1), int32(1), true},
		{int32(1), int64(1), false},
		{math.NaN(), math.NaN(), true},
		{0.0, math.Copysign(0, -1), true},
		{"a", "b", false},
		{Array{int32(1), Missing}, Array{int32(1), nil}, true},
		{Array{int32(1)}, Array{int32(1), int32(2)}, false},
		{Tuple{"a", int32(1)}, Tuple{"a", int32(1)}, true},
		{Struct{"a": int32(1), "b": Missing}, Struct{"a": int32(1)}, true},
		{Struct{"a": int32(1)}, Struct{"a": int32(2)}, false},
		{genetics.NewCall(0, 1), genetics.NewCall(0, 1), true},
		{genetics.NewCall(0, 1), genetics.Call{Alleles: []int32{0, 1}, Phased: true}, false},
		{genetics.Locus{Contig: "1", Position: 5}, genetics.Locus{Contig: "1", Position: 5}, true},
		{NewSet(types.Str, "a", "b"), NewSet(types.Str, "b", "a"), true},
		{NewSet(types.Str, "a"), NewSet(types.Str, "a", "b"), false},
		{MakeDict(types.Str, "a", int32(1)), MakeDict(types.Str, "a", int32(1)), true},
		{MakeDict(types.Str, "a", int32(1)), MakeDict(types.Str, "a", int32(2)), false},
		{Interval{int32(1), int32(5), true, false}, Interval{int32(1), int32(5), true, true}, false},
	} {
		if got, want := Equal(c.v, c.w), c.equal; got != want {
			t.Errorf("equal(%v, %v): got %v, want %v", c.v, c.w, got, want)
		}
	}
}

func TestLess(t *testing.T) {
	for _, c := range []struct {
		v, w T
	}{
		{int32(1), int32(2)},
		{int64(-5), int64(3)},
		{1.5, math.NaN()},
		{"a", "b"},
		{false, true},
		{int32(100), Missing},
		{Array{int32(1)}, Array{int32(1), int32(0)}},
		{Array{int32(1), int32(2)}, Array{int32(2)}},
		{Tuple{"a", int32(2)}, Tuple{"b", int32(1)}},
		{Struct{"a": int32(1), "b": "z"}, Struct{"a": int32(2), "b": "a"}},
		{genetics.Locus{Contig: "2", Position: 10}, genetics.Locus{Contig: "10", Position: 1}},
		{genetics.NewCall(0, 1), genetics.NewCall(1, 1)},
		{genetics.NewCall(1), genetics.NewCall(0, 0)},
		{NewSet(types.Int32, int32(1)), NewSet(types.Int32, int32(2))},
	} {
		if !Less(c.v, c.w) {
			t.Errorf("expected %v < %v", c.v, c.w)
		}
		if Less(c.w, c.v) {
			t.Errorf("expected !(%v < %v)", c.w, c.v)
		}
	}
}

func TestDict(t *testing.T) {
	d := NewDict(types.Str)
	d.Put("b", int32(2))
	d.Put("a", int32(1))
	d.Put("c", int32(3))
	d.Put("a", int32(10))
	if got, want := d.Len(), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if v, ok := d.Get("a"); !ok || v != int32(10) {
		t.Errorf("got %v, %v", v, ok)
	}
	if _, ok := d.Get("z"); ok {
		t.Error("unexpected key z")
	}
	var keys []T
	d.Each(func(k, v T) { keys = append(keys, k) })
	if got, want := keys, []T{"a", "b", "c"}; !Equal(Array(got), Array(want)) {
		t.Errorf("got %v, want %v", got, want)
	}
	d.Put(Missing, int32(0))
	if v, ok := d.Get(nil); !ok || v != int32(0) {
		t.Errorf("missing key: got %v, %v", v, ok)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(types.Array(types.Int32))
	s.Add(Array{int32(1), int32(2)})
	s.Add(Array{int32(1)})
	s.Add(Array{int32(1), int32(2)})
	if got, want := s.Len(), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !s.Contains(Array{int32(1)}) {
		t.Error("expected element [1]")
	}
	if s.Contains(Array{int32(2)}) {
		t.Error("unexpected element [2]")
	}
	if got, want := Sprint(s, types.Set(types.Array(types.Int32))), "{[1], [1, 2]}"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDigest(t *testing.T) {
	st := types.Struct(types.F("a", types.Int32), types.F("b", types.Array(types.Str)))
	d1 := Digest(Struct{"a": int32(1), "b": Array{"x"}}, st)
	d2 := Digest(Struct{"a": int32(1), "b": Array{"x"}}, st)
	d3 := Digest(Struct{"a": int32(1), "b": Array{"y"}}, st)
	if d1 != d2 {
		t.Errorf("digests differ for equal values: %v %v", d1, d2)
	}
	if d1 == d3 {
		t.Errorf("digests equal for different values: %v", d1)
	}
	if Digest(math.NaN(), types.Float64) != Digest(-math.NaN(), types.Float64) {
		t.Error("NaN digests differ")
	}
	if Digest(0.0, types.Float64) != Digest(math.Copysign(0, -1), types.Float64) {
		t.Error("zero digests differ")
	}
	if Digest(Missing, types.Int32) == Digest(int32(0), types.Int32) {
		t.Error("missing digest equals zero digest")
	}
}

func TestSprint(t *testing.T) {
	for _, c := range []struct {
		v T
		t *types.T
		p string
	}{
		{Array{"hello", "world"}, types.Array(types.Str), `["hello", "world"]`},
		{
			Struct{"a": int32(123), "b": Tuple{"ok", int64(321)}},
			types.Struct(types.F("a", types.Int32), types.F("b", types.Tuple(types.Str, types.Int64))),
			`{a: 123, b: ("ok", 321)}`,
		},
		{MakeDict(types.Str, "a", "b"), types.Dict(types.Str, types.Str), `{"a": "b"}`},
		{Array{int32(1), Missing}, types.Array(types.Int32), `[1, NA]`},
		{float32(1.5), types.Float32, "1.5"},
		{math.Inf(-1), types.Float64, "-Infinity"},
		{genetics.NewCall(0, 1), types.Call, "0/1"},
		{
			Interval{genetics.Locus{Contig: "1", Position: 100}, genetics.Locus{Contig: "1", Position: 110}, true, false},
			types.Interval(types.Locus("GRCh37")),
			"[1:100-1:110)",
		},
	} {
		if got, want := Sprint(c.v, c.t), c.p; got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	}
}

func TestJSON(t *testing.T) {
	lt := types.Locus("GRCh37")
	for _, c := range []struct {
		v    T
		t    *types.T
		json string
	}{
		{int32(5), types.Int32, `5`},
		{int64(1) << 40, types.Int64, `1099511627776`},
		{math.Inf(1), types.Float64, `"Infinity"`},
		{Missing, types.Str, `null`},
		{genetics.Call{Alleles: []int32{1, 2}, Phased: true}, types.Call, `"1|2"`},
		{genetics.Locus{Contig: "X", Position: 7}, lt, `{"contig":"X","position":7}`},
		{
			Interval{genetics.Locus{Contig: "1", Position: 1}, genetics.Locus{Contig: "1", Position: 9}, true, false},
			types.Interval(lt),
			`{"start":{"contig":"1","position":1},"end":{"contig":"1","position":9},"includes_start":true,"includes_end":false}`,
		},
		{
			Struct{"z": "a", "a": Array{int32(1), Missing}},
			types.Struct(types.F("z", types.Str), types.F("a", types.Array(types.Int32))),
			`{"z":"a","a":[1,null]}`,
		},
		{MakeDict(types.Str, "k", 1.5), types.Dict(types.Str, types.Float64), `[{"key":"k","value":1.5}]`},
		{NewSet(types.Bool, true, false), types.Set(types.Bool), `[false,true]`},
		{Tuple{"a", int32(1)}, types.Tuple(types.Str, types.Int32), `["a",1]`},
	} {
		p, err := MarshalJSON(c.v, c.t)
		if err != nil {
			t.Errorf("%v: %v", c.v, err)
			continue
		}
		if got, want := string(p), c.json; got != want {
			t.Errorf("got %s, want %s", got, want)
		}
		v, err := UnmarshalJSON(p, c.t)
		if err != nil {
			t.Errorf("%s: %v", p, err)
			continue
		}
		if !Equal(v, c.v) {
			t.Errorf("got %v, want %v", Sprint(v, c.t), Sprint(c.v, c.t))
		}
	}
	for _, c := range []struct {
		json string
		t    *types.T
	}{
		{`"x"`, types.Int32},
		{`3000000000`, types.Int32},
		{`[1]`, types.Tuple(types.Int32, types.Int32)},
		{`{"a": 1}`, types.Array(types.Int32)},
		{`"0/x"`, types.Call},
	} {
		if _, err := UnmarshalJSON([]byte(c.json), c.t); err == nil {
			t.Errorf("%s as %v: expected error", c.json, c.t)
		}
	}
}

func TestConvert(t *testing.T) {
	from := types.Struct(types.F("a", types.Int32), types.F("b", types.Array(types.Int64)))
	to := types.Struct(types.F("a", types.Float64), types.F("b", types.Array(types.Float32)))
	if !types.CoercerFor(to).RequiresConversion(from) {
		t.Fatal("expected conversion")
	}
	got := Convert(Struct{"a": int32(3), "b": Array{int64(2), Missing}}, from, to)
	want := Struct{"a": 3.0, "b": Array{float32(2), Missing}}
	if !Equal(got, want) {
		t.Errorf("got %v, want %v", Sprint(got, to), Sprint(want, to))
	}
	if got, want := ToInt64(float32(2.7)), int64(2); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := ToFloat64(true), 1.0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestInterval(t *testing.T) {
	iv := Interval{int32(1), int32(5), true, false}
	for _, c := range []struct {
		p    T
		want bool
	}{
		{int32(0), false},
		{int32(1), true},
		{int32(4), true},
		{int32(5), false},
	} {
		if got := iv.Contains(c.p); got != c.want {
			t.Errorf("contains(%v): got %v, want %v", c.p, got, c.want)
		}
	}
	for _, c := range []struct {
		jv   Interval
		want bool
	}{
		{Interval{int32(5), int32(8), true, true}, false},
		{Interval{int32(4), int32(8), true, true}, true},
		{Interval{int32(-3), int32(1), true, true}, true},
		{Interval{int32(-3), int32(1), true, false}, false},
	} {
		if got := iv.Overlaps(c.jv); got != c.want {
			t.Errorf("overlaps(%v): got %v, want %v", c.jv, got, c.want)
		}
	}
}

func TestEnv(t *testing.T) {
	var env *Env
	env = env.Push()
	env.Bind("hello", "world")
	env2 := env
	env = env.Push()
	env.Bind("hello", "ok")
	if got, want := env.Value("hello"), "ok"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := env2.Value("hello"), "world"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	env.Bind("gone", nil)
	if !env.Contains("gone") || !IsMissing(env.Value("gone")) {
		t.Error("expected bound missing value")
	}
	if env.Contains("unbound") || env2.Contains("gone") {
		t.Error("bad environment bindings")
	}
}
