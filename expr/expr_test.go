// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"math"
	"testing"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

type evalTest struct {
	e *Expr
	t string
	v string
}

func runEvalTests(t *testing.T, tests []evalTest) {
	t.Helper()
	for _, c := range tests {
		if err := c.e.Err(); err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got, want := c.e.Type.String(), c.t; got != want {
			t.Errorf("%v: got type %v, want %v", c.e, got, want)
			continue
		}
		v, err := Eval(c.e, nil)
		if err != nil {
			t.Errorf("%v: %v", c.e, err)
			continue
		}
		if got, want := values.Sprint(v, c.e.Type), c.v; got != want {
			t.Errorf("%v: got %v, want %v", c.e, got, want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	a := Lit([]int{2, 4, 6})
	runEvalTests(t, []evalTest{
		{a.Div(Int32(4)), "array<float32>", "[0.5, 1, 1.5]"},
		{a.FloorDiv(Int32(4)), "array<int32>", "[0, 1, 1]"},
		{a.Mod(Int32(4)), "array<int32>", "[2, 0, 2]"},
		{a.Pow(Int32(3)), "array<float64>", "[8, 64, 216]"},
		{a.Add(a), "array<int32>", "[4, 8, 12]"},
		{Int32(1).Sub(a), "array<int32>", "[-1, -3, -5]"},
		{a.Mul(Float64(0.5)), "array<float64>", "[1, 2, 3]"},
		{Int32(-7).FloorDiv(Int32(2)), "int32", "-4"},
		{Int32(-7).Mod(Int32(2)), "int32", "1"},
		{Int32(7).Mod(Int32(-2)), "int32", "-1"},
		{Float64(-7).Mod(Float64(2)), "float64", "1"},
		{Float64(7).FloorDiv(Float64(2)), "float64", "3"},
		{Bool(true).Add(Bool(true)), "int32", "2"},
		{Bool(true).Mul(Float64(2.5)), "float64", "2.5"},
		{Int32(1).Add(Int64(2)), "int64", "3"},
		{Int64(3).Mul(Float32(1.5)), "float32", "4.5"},
		{Float32(1).Div(Float64(4)), "float64", "0.25"},
		{Int64(1).Div(Int64(4)), "float32", "0.25"},
		{Int32(1).Div(Int32(0)), "float32", "Infinity"},
		{Int32(2).Pow(Int32(-1)), "float64", "0.5"},
		{Str("a").Add(Str("b")), "str", `"ab"`},
		{Null(types.Int32).Add(Int32(1)), "int32", "NA"},
		{ArrayOf(Int32(1), Null(types.Int32)).Add(Int32(1)), "array<int32>", "[2, NA]"},
		{Int32(2).Neg(), "int32", "-2"},
		{a.Neg(), "array<int32>", "[-2, -4, -6]"},
		{Bool(true).Neg(), "int32", "-1"},
	})
}

func TestArithmeticErrors(t *testing.T) {
	for _, e := range []*Expr{
		Str("a").Add(Int32(1)),
		Str("a").Sub(Str("b")),
		Lit([]string{"a"}).Mul(Int32(2)),
		Str("a").Add(Int32(1)).Mul(Int32(2)),
		Int32(1).And(Bool(true)),
		Str("a").Neg(),
		Int32(1).Not(),
		Lit([]int{1}).Lt(Lit([]int{2})),
	} {
		if err := e.Err(); !errors.Is(errors.TypeCheck, err) {
			t.Errorf("%v: expected type error, got %v", e, err)
		}
		if _, err := Eval(e, nil); err == nil {
			t.Errorf("%v: evaluated erroneous expression", e)
		}
	}
	for _, e := range []*Expr{
		Int32(1).FloorDiv(Int32(0)),
		Int64(1).Mod(Int64(0)),
		Lit([]int{1, 2}).Add(Lit([]int{1})),
	} {
		if _, err := Eval(e, nil); !errors.Is(errors.Eval, err) {
			t.Errorf("%v: expected evaluation error, got %v", e, err)
		}
	}
}

func TestComparison(t *testing.T) {
	nan := math.NaN()
	runEvalTests(t, []evalTest{
		{Int32(1).Lt(Float64(1.5)), "bool", "true"},
		{Int64(2).Ge(Int32(2)), "bool", "true"},
		{Int32(1).Eq(Int64(1)), "bool", "true"},
		{Int32(1).Ne(Float32(1)), "bool", "false"},
		{Str("a").Lt(Str("b")), "bool", "true"},
		{Str("b").Le(Str("a")), "bool", "false"},
		{Null(types.Int32).Eq(Null(types.Int32)), "bool", "NA"},
		{Float64(nan).Eq(Float64(nan)), "bool", "false"},
		{Float64(nan).Ne(Float64(nan)), "bool", "true"},
		{Lit([]int{1, 2}).Eq(Lit([]int{1, 2})), "bool", "true"},
		{Lit([]int{1, 2}).Eq(Lit([]float64{1, 2})), "bool", "true"},
		{StructOf(F("x", Int32(1))).Ne(StructOf(F("x", Int32(2)))), "bool", "true"},
	})
}

func TestLogic(t *testing.T) {
	na := Null(types.Bool)
	runEvalTests(t, []evalTest{
		{Bool(false).And(na), "bool", "false"},
		{na.And(Bool(false)), "bool", "false"},
		{na.And(Bool(true)), "bool", "NA"},
		{Bool(true).And(Bool(true)), "bool", "true"},
		{Bool(true).Or(na), "bool", "true"},
		{na.Or(Bool(true)), "bool", "true"},
		{na.Or(Bool(false)), "bool", "NA"},
		{Bool(false).Or(Bool(false)), "bool", "false"},
		{Bool(true).Not(), "bool", "false"},
		{na.Not(), "bool", "NA"},
		{IsMissing(na), "bool", "true"},
		{IsDefined(Int32(1)), "bool", "true"},
		{Coalesce(Null(types.Int32), Int64(3)), "int64", "3"},
		{Null(types.Str).OrElse(Str("x")), "str", `"x"`},
		{OrMissing(Bool(false), Int32(1)), "int32", "NA"},
		{OrMissing(Bool(true), Int32(1)), "int32", "1"},
	})
}

func TestStrings(t *testing.T) {
	runEvalTests(t, []evalTest{
		{Str("Hello").Lower(), "str", `"hello"`},
		{Str("Hello").Upper(), "str", `"HELLO"`},
		{Str("  x \t").Strip(), "str", `"x"`},
		{Str("héllo").Length(), "int32", "5"},
		{Str("héllo").Len(), "int32", "5"},
		{Str("abc").Matches(Str("b")), "bool", "true"},
		{Str("abc").Matches(Str("^b")), "bool", "false"},
		{Str(`a\b`).Matches(Str(`\\`)), "bool", "true"},
		{Str("hello").Contains(Str("ell")), "bool", "true"},
		{Str("hello").StartsWith(Str("he")), "bool", "true"},
		{Str("hello").EndsWith(Str("he")), "bool", "false"},
		{Str("a").Concat(Str("b")), "str", `"ab"`},
		{Str("a.b.c").Split(Str(`\.`)), "array<str>", `["a", "b", "c"]`},
		{Str("aaa").Replace(Str("a"), Str("b")), "str", `"bbb"`},
		{Str("12").ToInt32(), "int32", "12"},
		{Str("12").ToInt64(), "int64", "12"},
		{Str("1.5").ToFloat64(), "float64", "1.5"},
		{Str("TRUE").ToBool(), "bool", "true"},
		{Int32(0).ToBool(), "bool", "false"},
		{Int32(3).ToFloat64(), "float64", "3"},
		{Float64(2.5).ToStr(), "str", `"2.5"`},
		{Lit([]int{1, 2}).ToStr(), "str", `"[1, 2]"`},
		{Null(types.Str).Lower(), "str", "NA"},
	})
	for _, e := range []*Expr{
		Str("x").ToInt32(),
		Str("yes").ToBool(),
		Str("a").Matches(Str("(")),
	} {
		if _, err := Eval(e, nil); !errors.Is(errors.Eval, err) {
			t.Errorf("%v: expected evaluation error, got %v", e, err)
		}
	}
}

func TestStructs(t *testing.T) {
	s := StructOf(F("f1", Int32(1)), F("f2", Int32(2)), F("f3", Int32(3)))
	runEvalTests(t, []evalTest{
		{s.Select([]string{"f2", "f1"}, F("f4", Int32(5))),
			"struct{f2: int32, f1: int32, f4: int32}", "{f2: 2, f1: 1, f4: 5}"},
		{s.Drop("f2"), "struct{f1: int32, f3: int32}", "{f1: 1, f3: 3}"},
		{s.Annotate(F("f2", Str("x")), F("f5", Bool(true))),
			"struct{f1: int32, f2: str, f3: int32, f5: bool}", `{f1: 1, f2: "x", f3: 3, f5: true}`},
		{s.GetField("f3"), "int32", "3"},
		{s.Annotate(F("f4", s.GetField("f1").Add(s.GetField("f3")))).GetField("f4"), "int32", "4"},
		{Null(s.Type).GetField("f1"), "int32", "NA"},
	})
	for _, e := range []*Expr{
		s.GetField("nope"),
		s.Select([]string{"nope"}),
		s.Drop("nope"),
	} {
		if err := e.Err(); !errors.Is(errors.Schema, err) {
			t.Errorf("%v: expected schema error, got %v", e, err)
		}
	}
	if err := Int32(1).GetField("x").Err(); !errors.Is(errors.TypeCheck, err) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestCollections(t *testing.T) {
	a := Lit([]int{1, 2, 3})
	d := DictOf(Str("a"), Int32(1), Str("b"), Int32(2))
	double := func(x *Expr) *Expr { return x.Mul(Int32(2)) }
	gt := func(n int32) func(*Expr) *Expr {
		return func(x *Expr) *Expr { return x.Gt(Int32(n)) }
	}
	runEvalTests(t, []evalTest{
		{a.Index(Int32(-1)), "int32", "3"},
		{a.Index(Int64(0)), "int32", "1"},
		{a.Len(), "int32", "3"},
		{a.Contains(Int32(2)), "bool", "true"},
		{a.Contains(Int32(5)), "bool", "false"},
		{TupleOf(Int32(1), Str("a")).Index(Int32(1)), "str", `"a"`},
		{TupleOf(Int32(1), Str("a")).Len(), "int32", "2"},
		{d.Index(Str("b")), "int32", "2"},
		{d.DictGet(Str("c"), Int32(0)), "int32", "0"},
		{d.DictGet(Str("c"), nil), "int32", "NA"},
		{d.DictGet(Str("a"), Float64(0.5)), "float64", "1"},
		{d.Contains(Str("a")), "bool", "true"},
		{d.Len(), "int32", "2"},
		{d.Keys(), "array<str>", `["a", "b"]`},
		{d.Values(), "array<int32>", "[1, 2]"},
		{d.ToArray(), "array<tuple(str, int32)>", `[("a", 1), ("b", 2)]`},
		{d.ToArray().ToDict().Index(Str("a")), "int32", "1"},
		{SetOf(Int32(1), Int32(2), Int32(1)).Len(), "int32", "2"},
		{a.ToSet().Contains(Int32(3)), "bool", "true"},
		{EmptySet(types.Str).Contains(Str("x")), "bool", "false"},
		{a.Map(double), "array<int32>", "[2, 4, 6]"},
		{a.ToSet().Map(double), "set<int32>", "{2, 4, 6}"},
		{a.Map(func(x *Expr) *Expr { return x.ToStr() }), "array<str>", `["1", "2", "3"]`},
		{a.Filter(gt(1)), "array<int32>", "[2, 3]"},
		{a.Filter(gt(5)), "array<int32>", "[]"},
		{a.Find(gt(1)), "int32", "2"},
		{a.Find(gt(5)), "int32", "NA"},
		{a.Exists(gt(2)), "bool", "true"},
		{a.ForAll(gt(2)), "bool", "false"},
		{a.FlatMap(func(x *Expr) *Expr { return ArrayOf(x, x) }), "array<int32>", "[1, 1, 2, 2, 3, 3]"},
		{a.Map(func(x *Expr) *Expr { return a.Map(func(y *Expr) *Expr { return x.Mul(y) }) }),
			"array<array<int32>>", "[[1, 2, 3], [2, 4, 6], [3, 6, 9]]"},
		{Lit([]int{1, 2, 3, 4}).GroupBy(func(x *Expr) *Expr { return x.Mod(Int32(2)) }),
			"dict<int32, array<int32>>", "{0: [2, 4], 1: [1, 3]}"},
		{Zip(true, a, Lit([]string{"a", "b"})), "array<tuple(int32, str)>", `[(1, "a"), (2, "b"), (3, NA)]`},
		{Zip(false, a, Lit([]string{"a", "b"})), "array<tuple(int32, str)>", `[(1, "a"), (2, "b")]`},
		{Range(Int32(0), Int32(3)), "array<int32>", "[0, 1, 2]"},
		{RangeStep(Int32(5), Int32(0), Int32(-2)), "array<int32>", "[5, 3, 1]"},
		{Sum(ArrayOf(Int32(1), Null(types.Int32), Int32(3))), "int32", "4"},
		{Sum(Lit([]bool{true, true, false})), "int32", "2"},
		{Sum(EmptyArray(types.Int64)), "int64", "0"},
		{Product(Lit([]float64{1.5, 2})), "float64", "3"},
		{Min(Lit([]int{3, 1, 2})), "int32", "1"},
		{Max(Int32(1), Float64(2.5)), "float64", "2.5"},
		{Max(Int32(1), Null(types.Int32)), "int32", "1"},
		{Min(EmptyArray(types.Int32)), "int32", "NA"},
		{Mean(Lit([]int{1, 2})), "float64", "1.5"},
		{Mean(EmptyArray(types.Float64)), "float64", "NA"},
		{Median(Lit([]int{3, 1, 2, 4})), "int32", "2"},
		{ArgMax(Lit([]int{1, 3, 3}), false), "int32", "1"},
		{ArgMax(Lit([]int{1, 3, 3}), true), "int32", "NA"},
		{ArgMin(Lit([]int{2, 1, 3}), true), "int32", "1"},
		{ArgMin(ArrayOf(Null(types.Int32), Int32(4)), false), "int32", "1"},
		{ArgMin(EmptyArray(types.Int32), false), "int32", "NA"},
		{Abs(Lit([]int{-1, 2})), "array<int32>", "[1, 2]"},
		{Abs(Float64(-1.5)), "float64", "1.5"},
		{Signum(Lit([]float64{-2.5, 0, 3})), "array<int32>", "[-1, 0, 1]"},
		{Lit([]int{3, 1, 2}).Sorted(true), "array<int32>", "[3, 2, 1]"},
		{Lit([]string{"b", "a"}).Sorted(false), "array<str>", `["a", "b"]`},
	})
	for _, e := range []*Expr{
		a.Index(Int32(3)),
		a.Index(Int32(-4)),
		d.Index(Str("c")),
		RangeStep(Int32(0), Int32(1), Int32(0)),
	} {
		if _, err := Eval(e, nil); !errors.Is(errors.Eval, err) {
			t.Errorf("%v: expected evaluation error, got %v", e, err)
		}
	}
	for _, e := range []*Expr{
		a.Index(Str("x")),
		TupleOf(Int32(1)).Index(Int32(1)),
		a.Map(func(x *Expr) *Expr { return x.Lower() }),
		a.Filter(double),
		Sum(Lit([]string{"a"})),
		Int32(1).Map(double),
		d.DictGet(Int32(1), nil),
	} {
		if err := e.Err(); !errors.Is(errors.TypeCheck, err) {
			t.Errorf("%v: expected type error, got %v", e, err)
		}
	}
}

func TestGenetics(t *testing.T) {
	het := Lit(genetics.NewCall(0, 1))
	locus := Locus(Str("1"), Int32(100), "GRCh37")
	iv := Interval(Int32(1), Int32(5), true, false)
	runEvalTests(t, []evalTest{
		{het.IsHet(), "bool", "true"},
		{het.IsHetRef(), "bool", "true"},
		{het.IsHomRef(), "bool", "false"},
		{het.NAltAlleles(), "int32", "1"},
		{het.Ploidy(), "int32", "2"},
		{het.Phased(), "bool", "false"},
		{het.CallIndex(1), "int32", "1"},
		{het.UnphasedDiploidGtIndex(), "int32", "1"},
		{CallOf(true, Int32(1), Int32(2)).IsHetNonRef(), "bool", "true"},
		{CallOf(true, Int32(1), Int32(2)), "call", "1|2"},
		{ParseCall(Str("1|1")).IsHomVar(), "bool", "true"},
		{UnphasedDiploidGtIndexCall(Int32(2)), "call", "1/1"},
		{IsSNP(Str("A"), Str("T")), "bool", "true"},
		{IsTransition(Str("A"), Str("G")), "bool", "true"},
		{IsTransversion(Str("A"), Str("G")), "bool", "false"},
		{IsInsertion(Str("A"), Str("AT")), "bool", "true"},
		{IsIndel(Str("AT"), Str("A")), "bool", "true"},
		{IsStar(Str("A"), Str("*")), "bool", "true"},
		{AlleleType(Str("A"), Str("AT")), "str", `"Insertion"`},
		{Hamming(Str("ATG"), Str("ATC")), "int32", "1"},
		{Hamming(Str("A"), Str("AT")), "int32", "NA"},
		{GPDosage(Lit([]float64{0, 0.5, 0.5})), "float64", "1.5"},
		{ParseVariant(Str("1:100:A:T,C"), "GRCh37"),
			"struct{locus: locus<GRCh37>, alleles: array<str>}", `{locus: 1:100, alleles: ["A", "T", "C"]}`},
		{locus.Position(), "int32", "100"},
		{locus.Contig(), "str", `"1"`},
		{ParseLocus(Str("chrX:5"), "GRCh38"), "locus<GRCh38>", "chrX:5"},
		{ParseLocusInterval(Str("1:100-200"), "GRCh37").Contains(Locus(Str("1"), Int32(150), "GRCh37")),
			"bool", "true"},
		{iv.Contains(Int32(1)), "bool", "true"},
		{iv.Contains(Int32(5)), "bool", "false"},
		{iv.Contains(Null(types.Int32)), "bool", "NA"},
		{iv.Overlaps(Interval(Int32(5), Int32(6), true, true)), "bool", "false"},
		{iv.Overlaps(Interval(Int32(4), Int32(6), true, true)), "bool", "true"},
		{iv.Start(), "int32", "1"},
		{iv.End(), "int32", "5"},
		{iv.IncludesEnd(), "bool", "false"},
		{Interval(Int32(1), Float64(2.5), true, true), "interval<float64>", "[1-2.5]"},
	})
	for _, e := range []*Expr{
		GPDosage(Lit([]float64{0, 1})),
		Locus(Str("1"), Int32(0), "GRCh37"),
		Locus(Str("nope"), Int32(1), "GRCh37"),
		ParseCall(Str("0/x")),
		ParseVariant(Str("1:100"), "GRCh37"),
		Lit(genetics.NewCall(0, 1, 2)).UnphasedDiploidGtIndex(),
		het.CallIndex(2),
	} {
		if _, err := Eval(e, nil); !errors.Is(errors.Eval, err) {
			t.Errorf("%v: expected evaluation error, got %v", e, err)
		}
	}
	if err := Locus(Str("1"), Int32(1), "hg0").Err(); !errors.Is(errors.Value, err) {
		t.Errorf("expected value error, got %v", err)
	}
	if err := Locus(Str("1"), Int32(1), "GRCh37").Contains(Int32(1)).Err(); !errors.Is(errors.TypeCheck, err) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestRefs(t *testing.T) {
	x := Ref("x", types.Int32, AxisRow)
	env := values.NewEnv()
	env.Bind("x", int32(41))
	v, err := Eval(x.Add(Int32(1)), env)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.T(int32(42)); !values.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := Eval(Ref("y", types.Int32, AxisRow), env); !errors.Is(errors.Eval, err) {
		t.Errorf("expected evaluation error, got %v", err)
	}
}

func TestAxes(t *testing.T) {
	row := Ref("r", types.Int32, AxisRow)
	col := Ref("c", types.Int32, AxisCol)
	glob := Ref("g", types.Int32, AxisGlobal)
	for _, c := range []struct {
		e    *Expr
		axes Axis
		name string
	}{
		{Int32(1), AxisGlobal, "global"},
		{glob.Add(Int32(1)), AxisGlobal, "global"},
		{row.Add(glob), AxisRow, "row"},
		{col.ToStr(), AxisCol, "column"},
		{row.Add(col), AxisEntry, "row, column"},
		{Lit([]int{1}).Map(func(x *Expr) *Expr { return x.Add(col) }), AxisCol, "column"},
	} {
		got := Axes(c.e)
		if want := c.axes; got != want {
			t.Errorf("%v: got %v, want %v", c.e, got, want)
		}
		if got, want := got.String(), c.name; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestLit(t *testing.T) {
	for _, c := range []struct {
		v interface{}
		t string
	}{
		{1, "int32"},
		{1.5, "float64"},
		{"x", "str"},
		{true, "bool"},
		{[]interface{}{1, 2.5}, "array<float64>"},
		{[]string{"a"}, "array<str>"},
		{genetics.NewCall(0, 0), "call"},
		{genetics.Locus{Contig: "1", Position: 1}, "locus<GRCh37>"},
		{map[string]interface{}{"b": 1, "a": []int{1}}, "struct{a: array<int32>, b: int32}"},
	} {
		if got, want := Lit(c.v).Type.String(), c.t; got != want {
			t.Errorf("%v: got %v, want %v", c.v, got, want)
		}
	}
	if err := Lit(struct{}{}).Err(); err == nil {
		t.Error("expected error")
	}
	if err := Lit([]interface{}{1, "a"}).Err(); err == nil {
		t.Error("expected error")
	}
}
