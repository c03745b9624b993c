// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// Contains tells whether e contains x: a substring of string e, an
// element of array or set e, a key of dict e, or a point of
// interval e.
func (e *Expr) Contains(x *Expr) *Expr { return apply("contains", e, x) }

// Len returns the number of elements in array, set, dict, or tuple
// e, or the length of string e.
func (e *Expr) Len() *Expr { return apply("len", e) }

// Index indexes e by i: arrays by int32 or int64 position (negative
// positions count from the end), tuples by constant position, dicts
// by key, and calls by allele position. Out-of-range positions and
// absent keys are evaluation errors.
func (e *Expr) Index(i *Expr) *Expr {
	x := &Expr{Kind: ExprIndex, Left: e, Right: i}
	if t := firstErr(e, i); t != nil {
		x.Type = t
		return x
	}
	x.Type = opError("index", indexType(e, i))
	return x
}

// CallIndex returns the i'th allele of call e.
func (e *Expr) CallIndex(i int) *Expr { return e.Index(Int32(int32(i))) }

func indexType(e, i *Expr) *types.T {
	t, it := e.Type, i.Type
	switch t.Kind {
	case types.ArrayKind:
		if !it.IsIntegral() {
			return types.Errorf("array index must be integral, got %v", it)
		}
		return t.Elem
	case types.CallKind:
		if !it.IsIntegral() {
			return types.Errorf("call index must be integral, got %v", it)
		}
		return types.Int32
	case types.TupleKind:
		v, ok := constant(i)
		if !ok || !it.IsIntegral() {
			return types.Errorf("tuple index must be an integral constant")
		}
		n := int(values.ToInt64(v))
		if n < 0 || n >= len(t.Fields) {
			return types.Errorf("tuple index %d out of range for %v", n, t)
		}
		return t.Fields[n].T
	case types.DictKind:
		if !types.CoercerFor(t.Index).CanCoerce(it) {
			return types.Errorf("dict key must be %v, got %v", t.Index, it)
		}
		return t.Elem
	}
	return types.Errorf("cannot index %v", t)
}

func (e *Expr) evalIndex(ev *evaluator) (values.T, error) {
	v, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	i, err := ev.eval(e.Right)
	if err != nil {
		return nil, err
	}
	if values.IsMissing(v) {
		return values.Missing, nil
	}
	t := e.Left.Type
	if t.Kind == types.DictKind {
		k := values.Convert(i, e.Right.Type, t.Index)
		elem, ok := v.(*values.Dict).Get(k)
		if !ok {
			return nil, errors.E("index", errors.Eval,
				fmt.Errorf("key %s not in dict", values.Sprint(k, t.Index)))
		}
		return elem, nil
	}
	if values.IsMissing(i) {
		return values.Missing, nil
	}
	n := values.ToInt64(i)
	switch t.Kind {
	case types.TupleKind:
		return v.(values.Tuple)[n], nil
	case types.CallKind:
		c := v.(genetics.Call)
		a, ok := c.Index(int(n))
		if !ok {
			return nil, errors.E("index", errors.Eval,
				fmt.Errorf("index %d out of bounds for call with ploidy %d", n, c.Ploidy()))
		}
		return a, nil
	}
	a := v.(values.Array)
	if n < 0 {
		n += int64(len(a))
	}
	if n < 0 || n >= int64(len(a)) {
		return nil, errors.E("index", errors.Eval,
			fmt.Errorf("index %d out of bounds for array of length %d", values.ToInt64(i), len(a)))
	}
	return a[n], nil
}

// DictGet returns the value of key in dict e, or def if the key is
// absent. A nil def is missing.
func (e *Expr) DictGet(key, def *Expr) *Expr {
	if t := firstErr(e); t != nil {
		return &Expr{Kind: ExprApply, Op: "get", Args: []*Expr{e, key}, Type: t}
	}
	if def == nil {
		if e.Type.Kind != types.DictKind {
			return apply("get", e, key, Null(types.Int32))
		}
		def = Null(e.Type.Elem)
	}
	return apply("get", e, key, def)
}

// elems returns the elements of an array or set value.
func elems(v values.T) []values.T {
	switch v := v.(type) {
	case values.Array:
		return v
	case *values.Set:
		return v.Elems()
	}
	panic(fmt.Sprintf("not a collection: %T", v))
}

func isCollection(t *types.T) bool {
	return t.Kind == types.ArrayKind || t.Kind == types.SetKind
}

// collection returns a collection type of the same kind as t.
func collection(t *types.T, elem *types.T) *types.T {
	if t.Kind == types.SetKind {
		return types.Set(elem)
	}
	return types.Array(elem)
}

// makeCollection returns a collection value of type t.
func makeCollection(t *types.T, vs []values.T) values.T {
	if t.Kind == types.SetKind {
		return values.NewSet(t.Elem, vs...)
	}
	return values.Array(vs)
}

// higher applies the higher-order builtin name to collection e and
// the lambda fn.
func (e *Expr) higher(name string, fn func(*Expr) *Expr) *Expr {
	if t := firstErr(e); t != nil {
		return &Expr{Kind: ExprApply, Op: name, Args: []*Expr{e}, Type: t}
	}
	if !isCollection(e.Type) {
		return &Expr{Kind: ExprApply, Op: name, Args: []*Expr{e},
			Type: opError(name, types.Errorf("expected array or set, got %v", e.Type))}
	}
	return apply(name, e, lambda(e.Type.Elem, fn))
}

// Map applies fn to each element of array or set e.
func (e *Expr) Map(fn func(*Expr) *Expr) *Expr { return e.higher("map", fn) }

// Filter returns the elements of e for which fn is true. Elements
// for which fn is missing are excluded.
func (e *Expr) Filter(fn func(*Expr) *Expr) *Expr { return e.higher("filter", fn) }

// Find returns the first element of e for which fn is true, or
// missing if there is none.
func (e *Expr) Find(fn func(*Expr) *Expr) *Expr { return e.higher("find", fn) }

// FlatMap applies fn to each element of e and concatenates the
// resulting collections. Missing results are skipped.
func (e *Expr) FlatMap(fn func(*Expr) *Expr) *Expr { return e.higher("flatmap", fn) }

// Exists tells whether fn is true for any element of e.
func (e *Expr) Exists(fn func(*Expr) *Expr) *Expr { return e.higher("exists", fn) }

// ForAll tells whether fn is true for every element of e; elements
// for which fn is missing are ignored.
func (e *Expr) ForAll(fn func(*Expr) *Expr) *Expr { return e.higher("forall", fn) }

// GroupBy groups the elements of e by the key fn, retaining the
// order of elements within each group.
func (e *Expr) GroupBy(fn func(*Expr) *Expr) *Expr { return e.higher("group_by", fn) }

// Zip returns an array of tuples pairing the elements of arrays.
// Without fill, the result is as long as the shortest array; with
// fill, as long as the longest, with shorter arrays padded with
// missing values.
func Zip(fill bool, arrays ...*Expr) *Expr {
	return apply("zip", append([]*Expr{Bool(fill)}, arrays...)...)
}

// Range returns the array of int32s from start (inclusive) to stop
// (exclusive).
func Range(start, stop *Expr) *Expr { return apply("range", start, stop, Int32(1)) }

// RangeStep returns the array of int32s from start (inclusive) to
// stop (exclusive) in increments of step.
func RangeStep(start, stop, step *Expr) *Expr { return apply("range", start, stop, step) }

// Sum returns the sum of the numeric elements of e, skipping missing
// elements.
func Sum(e *Expr) *Expr { return apply("sum", e) }

// Product returns the product of the numeric elements of e,
// skipping missing elements.
func Product(e *Expr) *Expr { return apply("product", e) }

// Min returns the minimum of a single numeric collection, or of
// several numeric expressions. Missing values are skipped; the
// minimum of no values is missing.
func Min(es ...*Expr) *Expr { return reduce("min", es) }

// Max returns the maximum of a single numeric collection, or of
// several numeric expressions. Missing values are skipped; the
// maximum of no values is missing.
func Max(es ...*Expr) *Expr { return reduce("max", es) }

func reduce(name string, es []*Expr) *Expr {
	if len(es) == 1 && es[0].Type != nil && isCollection(es[0].Type) {
		return apply(name, es[0])
	}
	if len(es) == 0 {
		return &Expr{Kind: ExprApply, Op: name, Type: opError(name, types.Errorf("no arguments"))}
	}
	return apply(name, ArrayOf(es...))
}

// Mean returns the mean of the numeric elements of e as a float64.
func Mean(e *Expr) *Expr { return apply("mean", e) }

// Median returns the lower median of the numeric elements of e.
func Median(e *Expr) *Expr { return apply("median", e) }

// ArgMin returns the position of the first minimum of the numeric
// array e. If unique is set, ArgMin is missing unless the minimum is
// attained once.
func ArgMin(e *Expr, unique bool) *Expr { return apply("argmin", e, Bool(unique)) }

// ArgMax returns the position of the first maximum of the numeric
// array e. If unique is set, ArgMax is missing unless the maximum is
// attained once.
func ArgMax(e *Expr, unique bool) *Expr { return apply("argmax", e, Bool(unique)) }

// Abs returns the absolute value of numeric e, element-wise for
// arrays.
func Abs(e *Expr) *Expr { return apply("abs", e) }

// Signum returns the sign of numeric e as an int32, element-wise for
// arrays.
func Signum(e *Expr) *Expr { return apply("signum", e) }

// ToSet converts array e to a set.
func (e *Expr) ToSet() *Expr { return apply("to_set", e) }

// ToArray converts set e to an array in element order, or dict e to
// an array of (key, value) tuples in key order.
func (e *Expr) ToArray() *Expr { return apply("to_array", e) }

// ToDict converts a collection of (key, value) tuples to a dict.
// Later tuples override earlier ones.
func (e *Expr) ToDict() *Expr { return apply("to_dict", e) }

// Keys returns the keys of dict e in order.
func (e *Expr) Keys() *Expr { return apply("keys", e) }

// Values returns the values of dict e in key order.
func (e *Expr) Values() *Expr { return apply("values", e) }

// Sorted returns the elements of collection e as a sorted array.
func (e *Expr) Sorted(reverse bool) *Expr { return apply("sorted", e, Bool(reverse)) }

// numericElem returns the promoted element type of numeric
// collection t.
func numericElem(t *types.T) *types.T {
	if !isCollection(t) || !t.Elem.IsArithmetic() {
		return types.Errorf("expected a numeric array or set, got %v", t)
	}
	return types.Promote(t.Elem)
}

// numbers returns the non-missing elements of numeric collection v
// of type t, converted to its promoted element type.
func numbers(v values.T, t *types.T) []values.T {
	pt := types.Promote(t.Elem)
	var out []values.T
	for _, x := range elems(v) {
		if !values.IsMissing(x) {
			out = append(out, values.Convert(x, t.Elem, pt))
		}
	}
	return out
}

func lambdaArg(args []*Expr, name string) *types.T {
	if len(args) != 2 {
		return types.Errorf("expected 2 arguments, got %d", len(args))
	}
	if !isCollection(args[0].Type) {
		return types.Errorf("expected array or set, got %v", args[0].Type)
	}
	if args[1].Kind != ExprLambda || !args[1].Param.Equal(args[0].Type.Elem) {
		return types.Errorf("expected a function of %v", args[0].Type.Elem)
	}
	return nil
}

func higherType(name string, result func(coll, body *types.T) *types.T) func([]*Expr) *types.T {
	return func(args []*Expr) *types.T {
		if err := lambdaArg(args, name); err != nil {
			return err
		}
		return result(args[0].Type, args[1].Type)
	}
}

func predicate(result func(coll *types.T) *types.T) func(coll, body *types.T) *types.T {
	return func(coll, body *types.T) *types.T {
		if body.Kind != types.BoolKind {
			return types.Errorf("expected a bool predicate, got %v", body)
		}
		return result(coll)
	}
}

// truth returns whether predicate value v is true; missing is false.
func truth(v values.T) bool {
	return !values.IsMissing(v) && v.(bool)
}

func elemArg(args []*Expr) *types.T {
	if len(args) != 2 {
		return types.Errorf("expected 2 arguments, got %d", len(args))
	}
	return nil
}

func pointCompare(t *types.T) func(a, b values.T) int {
	if t.Kind == types.LocusKind {
		rg := t.ReferenceGenome()
		return func(a, b values.T) int {
			if values.IsMissing(a) || values.IsMissing(b) {
				return values.Compare(a, b)
			}
			return a.(genetics.Locus).Compare(rg, b.(genetics.Locus))
		}
	}
	return values.Compare
}

func intervalContains(iv values.Interval, p values.T, cmp func(a, b values.T) int) bool {
	c := cmp(iv.Start, p)
	if c > 0 || c == 0 && !iv.IncludesStart {
		return false
	}
	c = cmp(p, iv.End)
	return c < 0 || c == 0 && iv.IncludesEnd
}

func intervalBefore(iv, jv values.Interval, cmp func(a, b values.T) int) bool {
	c := cmp(iv.End, jv.Start)
	return c < 0 || c == 0 && !(iv.IncludesEnd && jv.IncludesStart)
}

func init() {
	register("contains", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if err := elemArg(args); err != nil {
				return err
			}
			t, x := args[0].Type, args[1].Type
			var want *types.T
			switch t.Kind {
			case types.StrKind:
				want = types.Str
			case types.ArrayKind, types.SetKind, types.IntervalKind:
				want = t.Elem
			case types.DictKind:
				want = t.Index
			default:
				return types.Errorf("%v has no elements", t)
			}
			if !types.CoercerFor(want).CanCoerce(x) {
				return types.Errorf("expected %v, got %v", want, x)
			}
			return types.Bool
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			t := e.Args[0].Type
			if values.IsMissing(args[0]) {
				return values.Missing, nil
			}
			switch t.Kind {
			case types.StrKind, types.IntervalKind:
				if values.IsMissing(args[1]) {
					return values.Missing, nil
				}
			}
			switch t.Kind {
			case types.StrKind:
				return strings.Contains(args[0].(string), args[1].(string)), nil
			case types.IntervalKind:
				p := values.Convert(args[1], e.Args[1].Type, t.Elem)
				return intervalContains(args[0].(values.Interval), p, pointCompare(t.Elem)), nil
			case types.DictKind:
				_, ok := args[0].(*values.Dict).Get(values.Convert(args[1], e.Args[1].Type, t.Index))
				return ok, nil
			case types.SetKind:
				return args[0].(*values.Set).Contains(values.Convert(args[1], e.Args[1].Type, t.Elem)), nil
			}
			x := values.Convert(args[1], e.Args[1].Type, t.Elem)
			for _, v := range args[0].(values.Array) {
				if values.Equal(v, x) {
					return true, nil
				}
			}
			return false, nil
		},
		Nonstrict: true,
	})
	register("len", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			switch args[0].Type.Kind {
			case types.ArrayKind, types.SetKind, types.DictKind, types.TupleKind, types.StrKind:
				return types.Int32
			}
			return types.Errorf("%v has no length", args[0].Type)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			switch v := args[0].(type) {
			case values.Array:
				return int32(len(v)), nil
			case values.Tuple:
				return int32(len(v)), nil
			case *values.Set:
				return int32(v.Len()), nil
			case *values.Dict:
				return int32(v.Len()), nil
			case string:
				return int32(len([]rune(v))), nil
			}
			return nil, errors.E(errors.Eval, fmt.Errorf("value %v has no length", args[0]))
		},
	})
	register("get", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 3 {
				return types.Errorf("expected 3 arguments, got %d", len(args))
			}
			t := args[0].Type
			if t.Kind != types.DictKind {
				return types.Errorf("expected dict, got %v", t)
			}
			if !types.CoercerFor(t.Index).CanCoerce(args[1].Type) {
				return types.Errorf("dict key must be %v, got %v", t.Index, args[1].Type)
			}
			return types.Unify(t.Elem, args[2].Type)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			if values.IsMissing(args[0]) {
				return values.Missing, nil
			}
			t := e.Args[0].Type
			v, ok := args[0].(*values.Dict).Get(values.Convert(args[1], e.Args[1].Type, t.Index))
			if ok && !values.IsMissing(v) {
				return values.Convert(v, t.Elem, e.Type), nil
			}
			return values.Convert(args[2], e.Args[2].Type, e.Type), nil
		},
		Nonstrict: true,
	})
	register("map", &builtin{
		Typecheck: higherType("map", func(coll, body *types.T) *types.T {
			return collection(coll, body)
		}),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			xs := elems(args[0])
			out := make([]values.T, len(xs))
			for i, x := range xs {
				var err error
				if out[i], err = fn.Call(x); err != nil {
					return nil, err
				}
			}
			return makeCollection(e.Type, out), nil
		},
	})
	register("filter", &builtin{
		Typecheck: higherType("filter", predicate(func(coll *types.T) *types.T { return coll })),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			var out []values.T
			for _, x := range elems(args[0]) {
				v, err := fn.Call(x)
				if err != nil {
					return nil, err
				}
				if truth(v) {
					out = append(out, x)
				}
			}
			if out == nil {
				out = []values.T{}
			}
			return makeCollection(e.Type, out), nil
		},
	})
	register("find", &builtin{
		Typecheck: higherType("find", predicate(func(coll *types.T) *types.T { return coll.Elem })),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			for _, x := range elems(args[0]) {
				v, err := fn.Call(x)
				if err != nil {
					return nil, err
				}
				if truth(v) {
					return x, nil
				}
			}
			return values.Missing, nil
		},
	})
	register("flatmap", &builtin{
		Typecheck: higherType("flatmap", func(coll, body *types.T) *types.T {
			if body.Kind != coll.Kind {
				return types.Errorf("expected a function returning %v, got %v", coll.Kind, body)
			}
			return body
		}),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			out := []values.T{}
			for _, x := range elems(args[0]) {
				v, err := fn.Call(x)
				if err != nil {
					return nil, err
				}
				if !values.IsMissing(v) {
					out = append(out, elems(v)...)
				}
			}
			return makeCollection(e.Type, out), nil
		},
	})
	register("exists", &builtin{
		Typecheck: higherType("exists", predicate(func(*types.T) *types.T { return types.Bool })),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			for _, x := range elems(args[0]) {
				v, err := fn.Call(x)
				if err != nil {
					return nil, err
				}
				if truth(v) {
					return true, nil
				}
			}
			return false, nil
		},
	})
	register("forall", &builtin{
		Typecheck: higherType("forall", predicate(func(*types.T) *types.T { return types.Bool })),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			for _, x := range elems(args[0]) {
				v, err := fn.Call(x)
				if err != nil {
					return nil, err
				}
				if !values.IsMissing(v) && !v.(bool) {
					return false, nil
				}
			}
			return true, nil
		},
	})
	register("group_by", &builtin{
		Typecheck: higherType("group_by", func(coll, body *types.T) *types.T {
			return types.Dict(body, types.Array(coll.Elem))
		}),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fn := args[1].(*closure)
			d := values.NewDict(e.Type.Index)
			for _, x := range elems(args[0]) {
				k, err := fn.Call(x)
				if err != nil {
					return nil, err
				}
				group, _ := d.Get(k)
				a, _ := group.(values.Array)
				d.Put(k, append(a, x))
			}
			return d, nil
		},
	})
	register("zip", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) < 2 {
				return types.Errorf("expected at least one array")
			}
			if _, ok := constant(args[0]); !ok || args[0].Type.Kind != types.BoolKind {
				return types.Errorf("fill must be a constant bool")
			}
			elems := make([]*types.T, len(args)-1)
			for i, arg := range args[1:] {
				if arg.Type.Kind != types.ArrayKind {
					return types.Errorf("argument %d: expected array, got %v", i+1, arg.Type)
				}
				elems[i] = arg.Type.Elem
			}
			return types.Array(types.Tuple(elems...))
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			fill := args[0].(bool)
			arrays := make([]values.Array, len(args)-1)
			n := -1
			for i := range arrays {
				arrays[i] = args[i+1].(values.Array)
				switch m := len(arrays[i]); {
				case n < 0, fill && m > n, !fill && m < n:
					n = m
				}
			}
			out := make(values.Array, n)
			for i := range out {
				tuple := make(values.Tuple, len(arrays))
				for j, a := range arrays {
					if i < len(a) {
						tuple[j] = a[i]
					} else {
						tuple[j] = values.Missing
					}
				}
				out[i] = tuple
			}
			return out, nil
		},
	})
	register("range", &builtin{
		Typecheck: fixed(types.Array(types.Int32), types.Int32Kind, types.Int32Kind, types.Int32Kind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			start, stop, step := args[0].(int32), args[1].(int32), args[2].(int32)
			if step == 0 {
				return nil, errors.E(errors.Eval, errors.New("range step must be nonzero"))
			}
			out := values.Array{}
			for i := start; step > 0 && i < stop || step < 0 && i > stop; i += step {
				out = append(out, i)
			}
			return out, nil
		},
	})
	register("sum", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			return numericElem(args[0].Type)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return fold(e.Type, numbers(args[0], e.Args[0].Type), 0, func(a, b int64) int64 { return a + b },
				func(a, b float64) float64 { return a + b }), nil
		},
	})
	register("product", &builtin{
		Typecheck: builtins["sum"].Typecheck,
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return fold(e.Type, numbers(args[0], e.Args[0].Type), 1, func(a, b int64) int64 { return a * b },
				func(a, b float64) float64 { return a * b }), nil
		},
	})
	for _, name := range []string{"min", "max"} {
		want := -1
		if name == "max" {
			want = 1
		}
		register(name, &builtin{
			Typecheck: builtins["sum"].Typecheck,
			Eval: func(e *Expr, args []values.T) (values.T, error) {
				var best values.T = values.Missing
				for _, x := range numbers(args[0], e.Args[0].Type) {
					if values.IsMissing(best) || values.Compare(x, best) == want {
						best = x
					}
				}
				return best, nil
			},
		})
	}
	register("mean", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			if t := numericElem(args[0].Type); t.Kind == types.ErrorKind {
				return t
			}
			return types.Float64
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			xs := numbers(args[0], e.Args[0].Type)
			if len(xs) == 0 {
				return values.Missing, nil
			}
			var sum float64
			for _, x := range xs {
				sum += values.ToFloat64(x)
			}
			return sum / float64(len(xs)), nil
		},
	})
	register("median", &builtin{
		Typecheck: builtins["sum"].Typecheck,
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			xs := numbers(args[0], e.Args[0].Type)
			if len(xs) == 0 {
				return values.Missing, nil
			}
			values.Sort(xs)
			return xs[(len(xs)-1)/2], nil
		},
	})
	for _, name := range []string{"argmin", "argmax"} {
		want := -1
		if name == "argmax" {
			want = 1
		}
		register(name, &builtin{
			Typecheck: func(args []*Expr) *types.T {
				if len(args) != 2 {
					return types.Errorf("expected 2 arguments, got %d", len(args))
				}
				if args[0].Type.Kind != types.ArrayKind {
					return types.Errorf("expected array, got %v", args[0].Type)
				}
				if t := numericElem(args[0].Type); t.Kind == types.ErrorKind {
					return t
				}
				if _, ok := constant(args[1]); !ok || args[1].Type.Kind != types.BoolKind {
					return types.Errorf("unique must be a constant bool")
				}
				return types.Int32
			},
			Eval: func(e *Expr, args []values.T) (values.T, error) {
				i := argExtremum(args[0].(values.Array), e.Args[0].Type.Elem, want, args[1].(bool))
				if i < 0 {
					return values.Missing, nil
				}
				return int32(i), nil
			},
		})
	}
	register("abs", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			return elementwise(args[0].Type, types.Promote)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return mapNumeric(args[0], e.Args[0].Type, func(v values.T, t *types.T) values.T {
				switch v := values.Convert(v, t, types.Promote(t)).(type) {
				case int32:
					if v < 0 {
						return -v
					}
					return v
				case int64:
					if v < 0 {
						return -v
					}
					return v
				case float32:
					return float32(math.Abs(float64(v)))
				default:
					return math.Abs(values.ToFloat64(v))
				}
			}), nil
		},
	})
	register("signum", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			return elementwise(args[0].Type, func(*types.T) *types.T { return types.Int32 })
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return mapNumeric(args[0], e.Args[0].Type, func(v values.T, t *types.T) values.T {
				switch f := values.ToFloat64(v); {
				case f > 0:
					return int32(1)
				case f < 0:
					return int32(-1)
				}
				return int32(0)
			}), nil
		},
	})
	register("to_set", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 || !isCollection(args[0].Type) {
				return types.Errorf("expected an array or set")
			}
			return types.Set(args[0].Type.Elem)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return values.NewSet(e.Type.Elem, elems(args[0])...), nil
		},
	})
	register("to_array", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			switch t := args[0].Type; t.Kind {
			case types.ArrayKind, types.SetKind:
				return types.Array(t.Elem)
			case types.DictKind:
				return types.Array(types.Tuple(t.Index, t.Elem))
			}
			return types.Errorf("cannot convert %v to an array", args[0].Type)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			d, ok := args[0].(*values.Dict)
			if !ok {
				return values.Array(append([]values.T{}, elems(args[0])...)), nil
			}
			out := make(values.Array, 0, d.Len())
			d.Each(func(k, v values.T) {
				out = append(out, values.Tuple{k, v})
			})
			return out, nil
		},
	})
	register("to_dict", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			t := args[0].Type
			if !isCollection(t) || t.Elem.Kind != types.TupleKind || len(t.Elem.Fields) != 2 {
				return types.Errorf("expected a collection of pairs, got %v", t)
			}
			return types.Dict(t.Elem.Fields[0].T, t.Elem.Fields[1].T)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			d := values.NewDict(e.Type.Index)
			for _, x := range elems(args[0]) {
				if values.IsMissing(x) {
					continue
				}
				kv := x.(values.Tuple)
				d.Put(kv[0], kv[1])
			}
			return d, nil
		},
	})
	for _, name := range []string{"keys", "values"} {
		keys := name == "keys"
		register(name, &builtin{
			Typecheck: func(args []*Expr) *types.T {
				if len(args) != 1 || args[0].Type.Kind != types.DictKind {
					return types.Errorf("expected a dict")
				}
				if keys {
					return types.Array(args[0].Type.Index)
				}
				return types.Array(args[0].Type.Elem)
			},
			Eval: func(e *Expr, args []values.T) (values.T, error) {
				out := values.Array{}
				args[0].(*values.Dict).Each(func(k, v values.T) {
					if keys {
						out = append(out, k)
					} else {
						out = append(out, v)
					}
				})
				return out, nil
			},
		})
	}
	register("sorted", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 2 || !isCollection(args[0].Type) {
				return types.Errorf("expected an array or set")
			}
			if _, ok := constant(args[1]); !ok || args[1].Type.Kind != types.BoolKind {
				return types.Errorf("reverse must be a constant bool")
			}
			return types.Array(args[0].Type.Elem)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			out := append(values.Array{}, elems(args[0])...)
			if args[1].(bool) {
				// Missing values remain last.
				sort.SliceStable(out, func(i, j int) bool {
					if values.IsMissing(out[i]) || values.IsMissing(out[j]) {
						return values.Less(out[i], out[j])
					}
					return values.Less(out[j], out[i])
				})
			} else {
				values.Sort(out)
			}
			return out, nil
		},
	})
}

// fold reduces numbers xs of type t.
func fold(t *types.T, xs []values.T, unit int64, ifn func(a, b int64) int64, ffn func(a, b float64) float64) values.T {
	if t.IsIntegral() {
		acc := unit
		for _, x := range xs {
			acc = ifn(acc, values.ToInt64(x))
		}
		if t.Kind == types.Int32Kind {
			return int32(acc)
		}
		return acc
	}
	acc := float64(unit)
	for _, x := range xs {
		acc = ffn(acc, values.ToFloat64(x))
	}
	if t.Kind == types.Float32Kind {
		return float32(acc)
	}
	return acc
}

// argExtremum returns the position of the first minimum (want < 0)
// or maximum (want > 0) of the array a, or -1 if there is none or
// unique is set and the extremum is attained more than once.
func argExtremum(a values.Array, et *types.T, want int, unique bool) int {
	var (
		best    values.T
		besti   = -1
		bestdup bool
	)
	for i, x := range a {
		if values.IsMissing(x) {
			continue
		}
		x = values.Convert(x, et, types.Promote(et))
		if besti < 0 {
			best, besti = x, i
			continue
		}
		switch c := values.Compare(x, best); {
		case c == want:
			best, besti, bestdup = x, i, false
		case c == 0:
			bestdup = true
		}
	}
	if unique && bestdup {
		return -1
	}
	return besti
}

// elementwise returns the result type of a numeric function mapped
// over numeric t or an array of numerics.
func elementwise(t *types.T, fn func(*types.T) *types.T) *types.T {
	if t.Kind == types.ArrayKind {
		return types.Array(elementwise(t.Elem, fn))
	}
	if !t.IsArithmetic() {
		return types.Errorf("expected numeric, got %v", t)
	}
	return fn(t)
}

func mapNumeric(v values.T, t *types.T, fn func(values.T, *types.T) values.T) values.T {
	if values.IsMissing(v) {
		return values.Missing
	}
	if t.Kind != types.ArrayKind {
		return fn(v, t)
	}
	a := v.(values.Array)
	out := make(values.Array, len(a))
	for i := range a {
		out[i] = mapNumeric(a[i], t.Elem, fn)
	}
	return out
}
