// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package agg implements aggregators: reducers that fold a row
// expression over a sequence of rows into a single value.
//
// Aggregators are expressions (of kind expr.ExprAgg) and compose with
// ordinary expressions; for example
//
//	agg.Sum(x).Div(agg.Count())
//
// computes the mean of x. Reducer state is mergeable: a sequence may
// be split into partitions, each aggregated independently, and the
// partial states merged in partition order. The result equals that
// of aggregating the concatenated sequence.
package agg

import (
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// state is the mergeable state of a single reducer.
type state interface {
	// update folds the row bound in env, at row index row of the
	// current partition.
	update(env *values.Env, row int64) error
	// merge folds a state computed over the partition directly
	// following those folded into the receiver. Offset is the number
	// of rows folded into the receiver.
	merge(other state, offset int64) error
	// result returns the reducer's result.
	result() values.T
}

type reducer struct {
	typecheck func(args []*expr.Expr) *types.T
	init      func(e *expr.Expr) state
}

var reducers = map[string]*reducer{}

func register(op string, typecheck func(args []*expr.Expr) *types.T, init func(e *expr.Expr) state) {
	reducers[op] = &reducer{typecheck, init}
	expr.RegisterAggregator(op, typecheck)
}

func newState(e *expr.Expr) state {
	return reducers[e.Op].init(e)
}

func init() {
	register("count", nargs(0, func([]*expr.Expr) *types.T { return types.Int64 }), newCount)
	register("count_where", nargs(1, predicate(types.Int64)), newCountWhere)
	register("filter", typecheckFilter, newFilter)
	register("fraction", nargs(1, predicate(types.Float64)), newFraction)
	register("any", nargs(1, predicate(types.Bool)), newAny)
	register("all", nargs(1, predicate(types.Bool)), newAll)
	register("sum", nargs(1, typecheckSum), newSum)
	register("array_sum", nargs(1, typecheckArraySum), newArraySum)
	register("min", nargs(1, typecheckOrdered), newMin)
	register("max", nargs(1, typecheckOrdered), newMax)
	register("mean", nargs(1, numeric(types.Float64)), newMean)
	register("stats", nargs(1, numeric(statsType)), newStats)
	register("collect", nargs(1, func(args []*expr.Expr) *types.T { return types.Array(args[0].Type) }), newCollect)
	register("collect_as_set", nargs(1, func(args []*expr.Expr) *types.T { return types.Set(args[0].Type) }), newCollectAsSet)
	register("take", nargs(2, typecheckTake), newTake)
	register("counter", nargs(1, func(args []*expr.Expr) *types.T { return types.Dict(args[0].Type, types.Int64) }), newCounter)
	register("group_by", nargs(2, func(args []*expr.Expr) *types.T {
		return types.Dict(args[0].Type, types.Array(args[1].Type))
	}), newGroupBy)
	register("argmin", nargs(2, typecheckArg), newArgMin)
	register("argmax", nargs(2, typecheckArg), newArgMax)
}

func nargs(n int, typecheck func([]*expr.Expr) *types.T) func([]*expr.Expr) *types.T {
	return func(args []*expr.Expr) *types.T {
		if len(args) != n {
			return types.Errorf("expected %d arguments, got %d", n, len(args))
		}
		for _, arg := range args {
			if arg.Kind == expr.ExprAgg {
				return types.Errorf("nested aggregation")
			}
		}
		return typecheck(args)
	}
}

func predicate(result *types.T) func([]*expr.Expr) *types.T {
	return func(args []*expr.Expr) *types.T {
		if args[0].Type.Kind != types.BoolKind {
			return types.Errorf("expected a bool predicate, got %v", args[0].Type)
		}
		return result
	}
}

func numeric(result *types.T) func([]*expr.Expr) *types.T {
	return func(args []*expr.Expr) *types.T {
		if !args[0].Type.IsArithmetic() {
			return types.Errorf("expected a numeric argument, got %v", args[0].Type)
		}
		return result
	}
}

func sumType(t *types.T) *types.T {
	switch {
	case !t.IsArithmetic():
		return types.Errorf("expected a numeric argument, got %v", t)
	case t.Kind == types.Float32Kind || t.Kind == types.Float64Kind:
		return types.Float64
	default:
		return types.Int64
	}
}

func typecheckSum(args []*expr.Expr) *types.T {
	return sumType(args[0].Type)
}

func typecheckArraySum(args []*expr.Expr) *types.T {
	t := args[0].Type
	if t.Kind != types.ArrayKind {
		return types.Errorf("expected a numeric array, got %v", t)
	}
	return types.Make(types.Array(sumType(t.Elem)))
}

func typecheckOrdered(args []*expr.Expr) *types.T {
	t := args[0].Type
	if !t.IsNumeric() && t.Kind != types.StrKind {
		return types.Errorf("expected a numeric or string argument, got %v", t)
	}
	return t
}

func typecheckFilter(args []*expr.Expr) *types.T {
	if len(args) != 2 {
		return types.Errorf("expected 2 arguments, got %d", len(args))
	}
	if args[0].Type.Kind != types.BoolKind {
		return types.Errorf("expected a bool predicate, got %v", args[0].Type)
	}
	if args[1].Kind != expr.ExprAgg {
		return types.Errorf("filter expects an aggregator, got %v", args[1])
	}
	return args[1].Type
}

func typecheckTake(args []*expr.Expr) *types.T {
	n := args[1]
	if n.Kind != expr.ExprLiteral || !n.Type.IsIntegral() || values.IsMissing(n.Val) || values.ToInt64(n.Val) < 0 {
		return types.Errorf("take expects a constant nonnegative integer, got %v", n)
	}
	return types.Array(args[0].Type)
}

func typecheckArg(args []*expr.Expr) *types.T {
	if t := typecheckOrdered(args[:1]); t.Kind == types.ErrorKind {
		return t
	}
	if u := args[1]; u.Kind != expr.ExprLiteral || u.Type.Kind != types.BoolKind || values.IsMissing(u.Val) {
		return types.Errorf("expected a constant bool, got %v", u)
	}
	return types.Int64
}

var statsType = types.Struct(
	types.F("mean", types.Float64),
	types.F("stdev", types.Float64),
	types.F("min", types.Float64),
	types.F("max", types.Float64),
	types.F("n", types.Int64),
	types.F("sum", types.Float64),
)

// Count counts rows.
func Count() *expr.Expr { return expr.Aggregate("count") }

// CountWhere counts the rows for which pred is true.
func CountWhere(pred *expr.Expr) *expr.Expr { return expr.Aggregate("count_where", pred) }

// Filter applies aggregator agg to the rows for which pred is true.
func Filter(pred, agg *expr.Expr) *expr.Expr { return expr.Aggregate("filter", pred, agg) }

// Fraction computes the fraction of rows for which pred is true.
// Rows where pred is missing count toward the total only. The
// fraction of zero rows is missing.
func Fraction(pred *expr.Expr) *expr.Expr { return expr.Aggregate("fraction", pred) }

// Any tells whether pred is true for any row. Missing values are
// ignored.
func Any(pred *expr.Expr) *expr.Expr { return expr.Aggregate("any", pred) }

// All tells whether pred is true for every row. Missing values are
// ignored.
func All(pred *expr.Expr) *expr.Expr { return expr.Aggregate("all", pred) }

// Sum sums e over rows, ignoring missing values. Integral and bool
// values are summed as int64; floats as float64.
func Sum(e *expr.Expr) *expr.Expr { return expr.Aggregate("sum", e) }

// ArraySum sums arrays element-wise. Missing arrays are ignored and
// missing elements count as zero. All arrays must have the same
// length.
func ArraySum(e *expr.Expr) *expr.Expr { return expr.Aggregate("array_sum", e) }

// Min computes the minimum of e, ignoring missing values.
func Min(e *expr.Expr) *expr.Expr { return expr.Aggregate("min", e) }

// Max computes the maximum of e, ignoring missing values.
func Max(e *expr.Expr) *expr.Expr { return expr.Aggregate("max", e) }

// Mean computes the mean of e, ignoring missing values.
func Mean(e *expr.Expr) *expr.Expr { return expr.Aggregate("mean", e) }

// Stats computes summary statistics of e, ignoring missing values:
// its mean, population standard deviation, minimum, maximum, count,
// and sum.
func Stats(e *expr.Expr) *expr.Expr { return expr.Aggregate("stats", e) }

// Collect collects the values of e, including missing values, in
// row order.
func Collect(e *expr.Expr) *expr.Expr { return expr.Aggregate("collect", e) }

// CollectAsSet collects the distinct values of e.
func CollectAsSet(e *expr.Expr) *expr.Expr { return expr.Aggregate("collect_as_set", e) }

// Take collects the values of e for the first n rows.
func Take(e *expr.Expr, n int) *expr.Expr { return expr.Aggregate("take", e, expr.Int32(int32(n))) }

// Counter counts the occurrences of each distinct value of e.
func Counter(e *expr.Expr) *expr.Expr { return expr.Aggregate("counter", e) }

// GroupBy groups the values of elem by the values of key. Within a
// group, elements are in row order.
func GroupBy(key, elem *expr.Expr) *expr.Expr { return expr.Aggregate("group_by", key, elem) }

// ArgMin returns the index of the row with the minimum value of e.
// Ties are broken by the lowest row index, unless unique is set, in
// which case ties produce a missing value. ArgMin over no values is
// missing.
func ArgMin(e *expr.Expr, unique bool) *expr.Expr {
	return expr.Aggregate("argmin", e, expr.Bool(unique))
}

// ArgMax returns the index of the row with the maximum value of e,
// with ties handled as in ArgMin.
func ArgMax(e *expr.Expr, unique bool) *expr.Expr {
	return expr.Aggregate("argmax", e, expr.Bool(unique))
}
