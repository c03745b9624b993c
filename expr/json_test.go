// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"testing"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

func init() {
	RegisterAggregator("test_total", func(args []*Expr) *types.T {
		if len(args) != 1 || !args[0].Type.IsArithmetic() {
			return types.Errorf("expected a numeric argument")
		}
		return types.Int64
	})
}

func TestAggregate(t *testing.T) {
	x := Ref("x", types.Int32, AxisRow)
	total := Aggregate("test_total", x)
	if err := total.Err(); err != nil {
		t.Fatal(err)
	}
	e := total.Add(Int32(1))
	if got, want := Axes(e), AxisGlobal; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := Aggregators(e), []*Expr{total}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := Eval(e, nil); !errors.Is(errors.Eval, err) {
		t.Errorf("expected evaluation error, got %v", err)
	}
	v, err := EvalAggregated(e, nil, map[*Expr]values.T{total: int64(41)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, values.T(int64(42)); !values.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := Aggregate("test_total", total.Add(x)).Err(); !errors.Is(errors.TypeCheck, err) {
		t.Errorf("expected type error, got %v", err)
	}
	if err := Aggregate("test_total", Str("a")).Err(); !errors.Is(errors.TypeCheck, err) {
		t.Errorf("expected type error, got %v", err)
	}
	if err := Aggregate("no_such", x).Err(); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected not supported error, got %v", err)
	}
}

func TestJSON(t *testing.T) {
	x := Ref("x", types.Int32, AxisRow)
	c := Ref("c", types.Call, AxisRow|AxisCol)
	env := types.NewEnv()
	env.Bind("x", types.Int32)
	env.Bind("c", types.Call)
	for _, e := range []*Expr{
		Int32(1).Add(x),
		Null(types.Dict(types.Str, types.Int32)),
		Lit([]float64{1.5, 2}).Div(Int32(2)),
		Switch(x).
			When(Int32(1), Str("one")).
			WhenMissing(Str("missing")).
			Default(Lit([]int{1, 2}).Map(func(y *Expr) *Expr { return y.Add(x) }).Index(Int32(-1)).ToStr()),
		Case(true).When(x.Gt(Int32(1)), Float64(1)).OrMissing(),
		Cond(c.IsHet(), c.CallIndex(1), Int32(0), true),
		StructOf(F("a", x), F("b weird`name", Str("b"))).Select([]string{"b weird`name"}, F("c", Bool(true))),
		StructOf(F("a", x), F("b", Str("b"))).Drop("a").Annotate(F("z", x.ToInt64())),
		DictOf(Str("k"), x).DictGet(Str("q"), Int32(7)),
		SetOf(x, Int32(2)).Contains(Int32(2)),
		TupleOf(x, Str("t")).Index(Int32(1)),
		Locus(Str("1"), x.Add(Int32(99)), "GRCh37").Position(),
		Lit(genetics.Locus{Contig: "2", Position: 7}),
		Interval(Int32(0), x, true, false).Contains(Int32(0)),
		Aggregate("test_total", x).Mul(Int64(2)),
		Zip(true, Lit([]int{1}), Lit([]string{"a", "b"})),
		x.Neg().Lt(Int32(0)).Not(),
	} {
		if err := e.Err(); err != nil {
			t.Errorf("%v: %v", e, err)
			continue
		}
		p, err := e.MarshalJSON()
		if err != nil {
			t.Errorf("%v: %v", e, err)
			continue
		}
		d, err := Decode(p, env)
		if err != nil {
			t.Errorf("%v: decode %s: %v", e, p, err)
			continue
		}
		if !d.Type.Equal(e.Type) {
			t.Errorf("%v: got type %v, want %v", e, d.Type, e.Type)
		}
		if len(Aggregators(e)) > 0 {
			continue
		}
		for _, xv := range []values.T{int32(1), int32(3), values.Missing} {
			venv := values.NewEnv()
			venv.Bind("x", xv)
			venv.Bind("c", genetics.NewCall(0, 1))
			want, werr := Eval(e, venv)
			got, gerr := Eval(d, venv)
			if (werr == nil) != (gerr == nil) {
				t.Errorf("%v: got error %v, want %v", e, gerr, werr)
				continue
			}
			if werr == nil && !values.Equal(got, want) {
				t.Errorf("%v: got %v, want %v", e, values.Sprint(got, d.Type), values.Sprint(want, e.Type))
			}
		}
	}
}

func TestMarshalErroneous(t *testing.T) {
	if _, err := Str("a").Add(Int32(1)).MarshalJSON(); !errors.Is(errors.TypeCheck, err) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	env := types.NewEnv()
	for _, c := range []struct {
		p    string
		kind errors.Kind
	}{
		{`{`, errors.Parse},
		{`{"kind":"bogus","type":"int32"}`, errors.Parse},
		{`{"kind":"literal","type":"int32<"}`, errors.Parse},
		{`{"kind":"literal","type":"int32","value":"x"}`, errors.TypeCheck},
		{`{"kind":"ref","type":"int32","ident":"x"}`, errors.Schema},
		{`{"kind":"binop","type":"int64","op":"+",` +
			`"left":{"kind":"literal","type":"int32","value":1},` +
			`"right":{"kind":"literal","type":"int32","value":2}}`, errors.TypeCheck},
		{`{"kind":"binop","type":"int32","op":"+",` +
			`"left":{"kind":"literal","type":"str","value":"a"},` +
			`"right":{"kind":"literal","type":"int32","value":2}}`, errors.TypeCheck},
		{`{"kind":"unop","type":"int32","op":"-"}`, errors.Parse},
		{`{"kind":"apply","type":"int32","op":"no_such_function"}`, errors.NotSupported},
	} {
		_, err := Decode([]byte(c.p), env)
		if !errors.Is(c.kind, err) {
			t.Errorf("%s: got %v, want error of kind %v", c.p, err, c.kind)
		}
	}
}
