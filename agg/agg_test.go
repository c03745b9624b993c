// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package agg

import (
	"testing"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

var (
	rowType = types.Struct(
		types.F("x", types.Int32),
		types.F("s", types.Str),
		types.F("b", types.Bool),
	)
	x = expr.Ref("x", types.Int32, expr.AxisRow)
	s = expr.Ref("s", types.Str, expr.AxisRow)
	b = expr.Ref("b", types.Bool, expr.AxisRow)
)

func testRows() []values.T {
	na := values.Missing
	return []values.T{
		values.Struct{"x": int32(1), "s": "a", "b": true},
		values.Struct{"x": int32(2), "s": "b", "b": false},
		values.Struct{"x": na, "s": "a", "b": na},
		values.Struct{"x": int32(4), "s": na, "b": true},
		values.Struct{"x": int32(2), "s": "b", "b": true},
	}
}

// partitionings returns several splits of rows, including empty
// partitions.
func partitionings(rows []values.T) [][][]values.T {
	singles := make([][]values.T, len(rows))
	for i := range rows {
		singles[i] = rows[i : i+1]
	}
	return [][][]values.T{
		{rows},
		{rows[:2], rows[2:2], rows[2:]},
		{nil, rows[:1], rows[1:4], nil, rows[4:]},
		singles,
	}
}

func TestReducers(t *testing.T) {
	for _, c := range []struct {
		e    *expr.Expr
		typ  string
		want string
	}{
		{Count(), "int64", "5"},
		{CountWhere(b), "int64", "3"},
		{Filter(b, Count()), "int64", "3"},
		{Filter(b, Sum(x)), "int64", "7"},
		{Filter(b.Not(), Collect(s)), "array<str>", `["b"]`},
		{Fraction(b), "float64", "0.6"},
		{Any(b.Not()), "bool", "true"},
		{Any(x.Gt(expr.Int32(4))), "bool", "false"},
		{All(b), "bool", "false"},
		{All(x.Gt(expr.Int32(0))), "bool", "true"},
		{Sum(x), "int64", "9"},
		{Sum(expr.Float64(0.5)), "float64", "2.5"},
		{Sum(b), "int64", "3"},
		{Sum(x).Add(expr.Int64(1)), "int64", "10"},
		{Mean(x), "float64", "2.25"},
		{Min(x), "int32", "1"},
		{Max(x), "int32", "4"},
		{Min(s), "str", `"a"`},
		{Max(s), "str", `"b"`},
		{ArraySum(expr.ArrayOf(x, expr.Int32(1))), "array<int64>", "[9, 5]"},
		{Collect(x), "array<int32>", "[1, 2, NA, 4, 2]"},
		{CollectAsSet(x), "set<int32>", "{1, 2, 4, NA}"},
		{CollectAsSet(s), "set<str>", `{"a", "b", NA}`},
		{Take(x, 2), "array<int32>", "[1, 2]"},
		{Take(x, 0), "array<int32>", "[]"},
		{Counter(s), "dict<str, int64>", `{"a": 2, "b": 2, NA: 1}`},
		{GroupBy(s, x), "dict<str, array<int32>>", `{"a": [1, NA], "b": [2, 2], NA: [4]}`},
		{ArgMin(x, false), "int64", "0"},
		{ArgMax(x, false), "int64", "3"},
		{ArgMax(x, true), "int64", "3"},
		{ArgMax(s, false), "int64", "1"},
		{ArgMax(s, true), "int64", "NA"},
		{ArgMax(x, false).Add(Count()), "int64", "8"},
		{Stats(x).GetField("n"), "int64", "4"},
		{Stats(x).GetField("mean"), "float64", "2.25"},
		{Stats(x).GetField("min"), "float64", "1"},
		{Stats(x).GetField("max"), "float64", "4"},
		{Stats(x).GetField("sum"), "float64", "9"},
	} {
		if err := c.e.Err(); err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got, want := c.e.Type.String(), c.typ; got != want {
			t.Errorf("%v: got type %v, want %v", c.e, got, want)
		}
		v, err := Run(c.e, Slice(testRows()), rowType)
		if err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got, want := values.Sprint(v, c.e.Type), c.want; got != want {
			t.Errorf("%v: got %v, want %v", c.e, got, want)
		}
		for _, parts := range partitionings(testRows()) {
			seqs := make([]Seq, len(parts))
			for i := range parts {
				seqs[i] = Slice(parts[i])
			}
			v, err := RunPartitions(c.e, seqs, rowType, 2)
			if err != nil {
				t.Errorf("%v: %v", c.e, err)
				continue
			}
			if got, want := values.Sprint(v, c.e.Type), c.want; got != want {
				t.Errorf("%v: %d partitions: got %v, want %v", c.e, len(parts), got, want)
			}
		}
	}
}

func TestEmpty(t *testing.T) {
	for _, c := range []struct {
		e    *expr.Expr
		want string
	}{
		{Count(), "0"},
		{Fraction(b), "NA"},
		{Any(b), "false"},
		{All(b), "true"},
		{Sum(x), "0"},
		{Mean(x), "NA"},
		{Min(x), "NA"},
		{ArraySum(expr.ArrayOf(x)), "NA"},
		{Collect(x), "[]"},
		{CollectAsSet(x), "{}"},
		{Counter(s), "{}"},
		{ArgMin(x, false), "NA"},
		{Stats(x), "{mean: NA, stdev: NA, min: NA, max: NA, n: 0, sum: 0}"},
	} {
		for _, parts := range [][]Seq{{Slice(nil)}, nil, {Slice(nil), Slice(nil)}} {
			v, err := RunPartitions(c.e, parts, rowType, 0)
			if err != nil {
				t.Errorf("%v: %v", c.e, err)
				continue
			}
			if got, want := values.Sprint(v, c.e.Type), c.want; got != want {
				t.Errorf("%v: got %v, want %v", c.e, got, want)
			}
		}
	}
}

func TestGlobals(t *testing.T) {
	k := expr.Ref("k", types.Int32, expr.AxisGlobal)
	e := Sum(x.Mul(k)).Add(k.ToInt64())
	globals := values.NewEnv()
	globals.Bind("k", int32(10))
	r := &Runner{Globals: globals, Parallelism: 1}
	v, err := r.Run(e, Slice(testRows()), rowType)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.T(int64(100)); !values.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestErrors(t *testing.T) {
	for _, e := range []*expr.Expr{
		Sum(s),
		Sum(Count()),
		Filter(x, Count()),
		Filter(b, x),
		Take(x, -1),
		Mean(Collect(x)),
		ArraySum(x),
		Min(b),
	} {
		if err := e.Err(); !errors.Is(errors.TypeCheck, err) {
			t.Errorf("%v: expected type error, got %v", e, err)
		}
	}
	if _, err := Run(Count(), Slice(nil), types.Int32); !errors.Is(errors.TypeCheck, err) {
		t.Errorf("expected type error, got %v", err)
	}
	ragged := ArraySum(expr.Cond(b, expr.ArrayOf(x), expr.ArrayOf(x, x), false))
	if _, err := Run(ragged, Slice(testRows()), rowType); !errors.Is(errors.Eval, err) {
		t.Errorf("expected eval error, got %v", err)
	}
	unbound := Sum(expr.Ref("y", types.Int32, expr.AxisRow))
	if _, err := Run(unbound, Slice(testRows()), rowType); !errors.Is(errors.Eval, err) {
		t.Errorf("expected eval error, got %v", err)
	}
	if _, err := Run(Count(), Slice([]values.T{int32(1)}), rowType); !errors.Is(errors.Value, err) {
		t.Errorf("expected value error, got %v", err)
	}
}

func TestSeq(t *testing.T) {
	seq := Slice([]values.T{int32(1), int32(2)})
	if v := seq.Value(); v != nil {
		t.Errorf("value %v before scan", v)
	}
	var n int
	for seq.Scan() {
		n++
	}
	if err := seq.Err(); err != nil {
		t.Fatal(err)
	}
	if got, want := n, 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if seq.Scan() {
		t.Error("consumed sequence scanned")
	}
	if err := seq.Err(); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported error, got %v", err)
	}
	if _, err := Run(Count(), seq, rowType); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported error, got %v", err)
	}
}

func TestZipSeqs(t *testing.T) {
	ints := func() Seq { return Slice([]values.T{int32(1), int32(2), int32(3)}) }
	strs := func() Seq { return Slice([]values.T{"a", "b"}) }
	typ := types.Tuple(types.Int32, types.Str)
	for _, c := range []struct {
		fill bool
		want []string
	}{
		{false, []string{`(1, "a")`, `(2, "b")`}},
		{true, []string{`(1, "a")`, `(2, "b")`, `(3, NA)`}},
	} {
		seq := ZipSeqs(c.fill, ints(), strs())
		var got []string
		for seq.Scan() {
			got = append(got, values.Sprint(seq.Value(), typ))
		}
		if err := seq.Err(); err != nil {
			t.Fatal(err)
		}
		if len(got) != len(c.want) {
			t.Errorf("fill=%v: got %v, want %v", c.fill, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("fill=%v: got %v, want %v", c.fill, got, c.want)
			}
		}
	}
	seq := ZipSeqs(true)
	if seq.Scan() {
		t.Error("empty zip scanned")
	}

	seqs := []Seq{ints(), strs()}
	seq = ZipSeqs(true, seqs...)
	for seq.Scan() {
	}
	if seq.Value() != nil {
		t.Error("value after exhaustion")
	}
	for i, s := range seqs {
		if s == nil {
			t.Errorf("zip cleared caller's sequence %d", i)
		}
	}
}

func TestMissingColumn(t *testing.T) {
	rows := make([]values.T, 10)
	for i := range rows {
		rows[i] = values.Struct{"x": int32(i), "s": "a", "b": values.Missing}
	}
	for _, c := range []struct {
		e    *expr.Expr
		want values.T
	}{
		{Any(b), false},
		{All(b), true},
		{CountWhere(b), int64(0)},
		{Fraction(b), 0.0},
		{Fraction(x.Lt(expr.Int32(3))), 0.3},
		{Fraction(x.Lt(expr.Int32(7))), 0.7},
		{Fraction(x.Ge(expr.Int32(0))), 1.0},
	} {
		v, err := Run(c.e, Slice(rows), rowType)
		if err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got, want := v, c.want; !values.Equal(got, want) {
			t.Errorf("%v: got %v, want %v", c.e, got, want)
		}
		v, err = RunPartitions(c.e, []Seq{Slice(rows[:4]), Slice(rows[4:])}, rowType, 2)
		if err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got, want := v, c.want; !values.Equal(got, want) {
			t.Errorf("%v (partitioned): got %v, want %v", c.e, got, want)
		}
	}
}
