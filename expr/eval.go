// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// An evaluator evaluates expressions in an environment. Aggregator
// nodes are looked up in results.
type evaluator struct {
	env     *values.Env
	results map[*Expr]values.T
}

// Eval evaluates expression e in environment env, which binds the
// identifiers referenced by e. Erroneous expressions are not
// evaluated; their type error is returned instead. Expressions
// containing aggregators must be evaluated with EvalAggregated.
func Eval(e *Expr, env *values.Env) (values.T, error) {
	return EvalAggregated(e, env, nil)
}

// EvalAggregated evaluates expression e in environment env, taking
// the value of each aggregator node in e from results.
func EvalAggregated(e *Expr, env *values.Env, results map[*Expr]values.T) (values.T, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	if env == nil {
		env = values.NewEnv()
	}
	ev := &evaluator{env: env, results: results}
	return ev.eval(e)
}

func (ev *evaluator) withEnv(env *values.Env) *evaluator {
	return &evaluator{env: env, results: ev.results}
}

// evalAs evaluates e and converts its value to type t.
func (ev *evaluator) evalAs(e *Expr, t *types.T) (values.T, error) {
	v, err := ev.eval(e)
	if err != nil {
		return nil, err
	}
	return values.Convert(v, e.Type, t), nil
}

func (ev *evaluator) eval(e *Expr) (values.T, error) {
	switch e.Kind {
	case ExprLiteral:
		return e.Val, nil
	case ExprRef:
		if !ev.env.Contains(e.Ident) {
			return nil, errors.E("eval", e.Ident, errors.Eval, errors.New("unbound identifier"))
		}
		return ev.env.Value(e.Ident), nil
	case ExprBinop:
		return e.evalBinop(ev)
	case ExprUnop:
		return e.evalUnop(ev)
	case ExprApply:
		return e.evalApply(ev)
	case ExprStruct:
		return ev.evalFields(e.Fields)
	case ExprTuple:
		tup := make(values.Tuple, len(e.Args))
		for i, arg := range e.Args {
			v, err := ev.eval(arg)
			if err != nil {
				return nil, err
			}
			tup[i] = v
		}
		return tup, nil
	case ExprArray, ExprSet:
		vs := make([]values.T, len(e.Args))
		for i, arg := range e.Args {
			v, err := ev.evalAs(arg, e.Type.Elem)
			if err != nil {
				return nil, err
			}
			vs[i] = v
		}
		if e.Kind == ExprSet {
			return values.NewSet(e.Type.Elem, vs...), nil
		}
		return values.Array(vs), nil
	case ExprDict:
		d := values.NewDict(e.Type.Index)
		for i := 0; i < len(e.Args); i += 2 {
			k, err := ev.evalAs(e.Args[i], e.Type.Index)
			if err != nil {
				return nil, err
			}
			v, err := ev.evalAs(e.Args[i+1], e.Type.Elem)
			if err != nil {
				return nil, err
			}
			d.Put(k, v)
		}
		return d, nil
	case ExprGetField, ExprSelect, ExprDrop, ExprAnnotate:
		return e.evalStruct(ev)
	case ExprIndex:
		return e.evalIndex(ev)
	case ExprCond:
		return e.evalCond(ev)
	case ExprSwitch:
		return e.evalSwitch(ev)
	case ExprCase:
		return e.evalCase(ev)
	case ExprLambda:
		return nil, errors.E("eval", errors.Eval, errors.New("lambda evaluated outside of a function application"))
	case ExprAgg:
		v, ok := ev.results[e]
		if !ok {
			return nil, errors.E("eval", e.Op, errors.Eval, errors.New("aggregator evaluated outside of an aggregation"))
		}
		return v, nil
	}
	return nil, errors.E("eval", errors.Eval, fmt.Errorf("unknown expression kind %v", e.Kind))
}
