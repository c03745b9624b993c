// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"sync"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
)

var (
	aggMu       sync.RWMutex
	aggregators = map[string]func(args []*Expr) *types.T{}
)

// RegisterAggregator registers reducer op, whose result type is
// computed by typecheck from the reducer's arguments. Arguments
// passed to typecheck are free of type errors.
func RegisterAggregator(op string, typecheck func(args []*Expr) *types.T) {
	aggMu.Lock()
	defer aggMu.Unlock()
	if aggregators[op] != nil {
		panic("aggregator " + op + " registered twice")
	}
	aggregators[op] = typecheck
}

// Aggregate returns an aggregator node applying the registered
// reducer op to args. Arguments are row expressions, evaluated once
// per row, or aggregator nodes consumed by the reducer itself.
// Aggregators may not otherwise be nested.
func Aggregate(op string, args ...*Expr) *Expr {
	e := &Expr{Kind: ExprAgg, Op: op, Args: args}
	if t := firstErr(args...); t != nil {
		e.Type = t
		return e
	}
	aggMu.RLock()
	typecheck := aggregators[op]
	aggMu.RUnlock()
	if typecheck == nil {
		e.Type = types.Error(errors.E(op, errors.NotSupported, errors.New("no such aggregator")))
		return e
	}
	for _, arg := range args {
		if arg.Kind != ExprAgg && len(Aggregators(arg)) > 0 {
			e.Type = types.Error(errors.E(op, errors.TypeCheck, errors.New("nested aggregation")))
			return e
		}
	}
	e.Type = opError(op, typecheck(args))
	return e
}

// Aggregators returns the outermost aggregator nodes in e, in
// preorder.
func Aggregators(e *Expr) []*Expr {
	var aggs []*Expr
	e.Walk(func(e *Expr) bool {
		if e.Kind == ExprAgg {
			aggs = append(aggs, e)
			return false
		}
		return true
	})
	return aggs
}
