// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package agg

import (
	"fmt"
	"runtime"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/log"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// A Runner aggregates expressions over sequences of rows. Rows are
// struct values; each field of a row is bound as an identifier
// while the row is folded.
type Runner struct {
	// Globals binds identifiers visible to the aggregated expression
	// and to every row.
	Globals *values.Env
	// Parallelism is the number of partitions aggregated
	// concurrently. If zero, runtime.NumCPU is used.
	Parallelism int
	// Log, if not nil, receives debug output.
	Log *log.Logger
}

// Run aggregates e over rows, of type rowType.
func Run(e *expr.Expr, rows Seq, rowType *types.T) (values.T, error) {
	return new(Runner).Run(e, rows, rowType)
}

// RunPartitions aggregates e over the concatenation of parts, of
// which up to parallelism are aggregated concurrently.
func RunPartitions(e *expr.Expr, parts []Seq, rowType *types.T, parallelism int) (values.T, error) {
	r := &Runner{Parallelism: parallelism}
	return r.RunPartitions(e, parts, rowType)
}

// Run aggregates e over rows, of type rowType.
func (r *Runner) Run(e *expr.Expr, rows Seq, rowType *types.T) (values.T, error) {
	return r.RunPartitions(e, []Seq{rows}, rowType)
}

// RunPartitions aggregates e over the concatenation of parts. Each
// partition is folded independently and the partial states merged
// in partition order.
func (r *Runner) RunPartitions(e *expr.Expr, parts []Seq, rowType *types.T) (values.T, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	if rowType.Kind != types.StructKind {
		return nil, errors.E("aggregate", errors.TypeCheck, fmt.Errorf("row type %v is not a struct", rowType))
	}
	aggs := expr.Aggregators(e)
	var (
		states = make([][]state, len(parts))
		counts = make([]int64, len(parts))
	)
	parallelism := r.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	err := traverse.Limit(parallelism).Each(len(parts), func(i int) (err error) {
		states[i], counts[i], err = r.fold(aggs, parts[i], rowType)
		if err == nil && r.Log != nil {
			r.Log.Op(fmt.Sprintf("aggregate: partition %d", i)).Debugf("folded %d rows", counts[i])
		}
		return
	})
	if err != nil {
		return nil, err
	}
	acc := newStates(aggs)
	var offset int64
	for i := range parts {
		for j := range acc {
			if err := acc[j].merge(states[i][j], offset); err != nil {
				return nil, errors.E("aggregate", fmt.Sprintf("partition %d", i), err)
			}
		}
		offset += counts[i]
	}
	results := make(map[*expr.Expr]values.T, len(aggs))
	for i, agg := range aggs {
		results[agg] = acc[i].result()
	}
	return expr.EvalAggregated(e, r.Globals, results)
}

func newStates(aggs []*expr.Expr) []state {
	states := make([]state, len(aggs))
	for i, agg := range aggs {
		states[i] = newState(agg)
	}
	return states
}

// fold folds the rows of seq into fresh states for aggs, returning
// the states and the number of rows folded.
func (r *Runner) fold(aggs []*expr.Expr, seq Seq, rowType *types.T) ([]state, int64, error) {
	states := newStates(aggs)
	var n int64
	for seq.Scan() {
		row, ok := seq.Value().(values.Struct)
		if !ok {
			return nil, 0, errors.E("aggregate", errors.Value,
				fmt.Errorf("row %d: expected a struct value, got %T", n, seq.Value()))
		}
		env := r.Globals.Push()
		env.BindStruct(row, rowType)
		for _, s := range states {
			if err := s.update(env, n); err != nil {
				return nil, 0, errors.E("aggregate", fmt.Sprintf("row %d", n), err)
			}
		}
		n++
	}
	if err := seq.Err(); err != nil {
		return nil, 0, err
	}
	return states, n, nil
}
