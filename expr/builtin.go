// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// A builtin is a function applied by ExprApply nodes.
type builtin struct {
	// Typecheck returns the result type of the builtin applied to
	// args, or an error type. Arguments are free of type errors.
	Typecheck func(args []*Expr) *types.T
	// Eval computes the builtin's value. Lambda arguments are
	// passed as *closure values.
	Eval func(e *Expr, args []values.T) (values.T, error)
	// Nonstrict builtins are passed missing arguments; strict
	// builtins return missing when any argument is missing.
	Nonstrict bool
}

var builtins = map[string]*builtin{}

func register(name string, b *builtin) {
	if builtins[name] != nil {
		panic("builtin " + name + " registered twice")
	}
	builtins[name] = b
}

// Builtins returns the names of the registered builtin functions.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// apply returns the application of builtin name to args.
func apply(name string, args ...*Expr) *Expr {
	e := &Expr{Kind: ExprApply, Op: name, Args: args}
	if t := firstErr(args...); t != nil {
		e.Type = t
		return e
	}
	b := builtins[name]
	if b == nil {
		e.Type = types.Error(errors.E(name, errors.NotSupported, errors.New("no such function")))
		return e
	}
	e.Type = opError(name, b.Typecheck(args))
	return e
}

func (e *Expr) evalApply(ev *evaluator) (values.T, error) {
	b := builtins[e.Op]
	if b == nil {
		return nil, errors.E("eval", e.Op, errors.NotSupported, errors.New("no such function"))
	}
	args := make([]values.T, len(e.Args))
	for i, arg := range e.Args {
		if arg.Kind == ExprLambda {
			args[i] = &closure{ev: ev, lambda: arg}
			continue
		}
		v, err := ev.eval(arg)
		if err != nil {
			return nil, err
		}
		if !b.Nonstrict && values.IsMissing(v) {
			return values.Missing, nil
		}
		args[i] = v
	}
	v, err := b.Eval(e, args)
	if err != nil {
		return nil, errors.E(e.Op, err)
	}
	return v, nil
}

// A closure is an evaluated lambda.
type closure struct {
	ev     *evaluator
	lambda *Expr
}

// Call applies the closure to argument v.
func (c *closure) Call(v values.T) (values.T, error) {
	env := c.ev.env.Push()
	env.Bind(c.lambda.Ident, v)
	return c.ev.withEnv(env).eval(c.lambda.Left)
}

// checkArgs checks that args have the given kinds.
func checkArgs(args []*Expr, kinds ...types.Kind) *types.T {
	if len(args) != len(kinds) {
		return types.Errorf("expected %d arguments, got %d", len(kinds), len(args))
	}
	for i, k := range kinds {
		if args[i].Type.Kind != k {
			return types.Errorf("argument %d: expected %v, got %v", i+1, k, args[i].Type)
		}
	}
	return nil
}

// fixed returns a typechecker for a builtin with argument kinds
// kinds and result type t.
func fixed(t *types.T, kinds ...types.Kind) func([]*Expr) *types.T {
	return func(args []*Expr) *types.T {
		if err := checkArgs(args, kinds...); err != nil {
			return err
		}
		return t
	}
}

// constant returns the value of literal expression e.
func constant(e *Expr) (values.T, bool) {
	if e.Kind != ExprLiteral || values.IsMissing(e.Val) {
		return nil, false
	}
	return e.Val, true
}

// IsMissing returns whether e is missing.
func IsMissing(e *Expr) *Expr { return apply("is_missing", e) }

// IsDefined returns whether e is not missing.
func IsDefined(e *Expr) *Expr { return apply("is_defined", e) }

// Coalesce returns the first non-missing of es, whose types are
// unified.
func Coalesce(es ...*Expr) *Expr { return apply("coalesce", es...) }

// OrElse returns e if it is defined, and otherwise alt.
func (e *Expr) OrElse(alt *Expr) *Expr { return apply("coalesce", e, alt) }

// OrMissing returns v if pred is true, and missing otherwise.
func OrMissing(pred, v *Expr) *Expr {
	if t := firstErr(v); t != nil {
		return &Expr{Kind: ExprCond, Type: t, Cond: pred, Left: v}
	}
	return Cond(pred, v, Null(v.Type), false)
}

// ToInt32 converts numeric or string e to int32.
func (e *Expr) ToInt32() *Expr { return apply("int32", e) }

// ToInt64 converts numeric or string e to int64.
func (e *Expr) ToInt64() *Expr { return apply("int64", e) }

// ToFloat32 converts numeric or string e to float32.
func (e *Expr) ToFloat32() *Expr { return apply("float32", e) }

// ToFloat64 converts numeric or string e to float64.
func (e *Expr) ToFloat64() *Expr { return apply("float64", e) }

// ToBool converts numeric or string e to bool. Strings are parsed
// case-insensitively.
func (e *Expr) ToBool() *Expr { return apply("bool", e) }

// ToStr renders e as a string.
func (e *Expr) ToStr() *Expr { return apply("str", e) }

func cast(t *types.T) func([]*Expr) *types.T {
	return func(args []*Expr) *types.T {
		if len(args) != 1 {
			return types.Errorf("expected 1 argument, got %d", len(args))
		}
		if u := args[0].Type; u.Kind != types.StrKind && !u.IsArithmetic() {
			return types.Errorf("cannot convert %v to %v", u, t)
		}
		return t
	}
}

func parseNumber(s string, t *types.T) (values.T, error) {
	switch t.Kind {
	case types.Int32Kind:
		i, err := strconv.ParseInt(s, 10, 32)
		return int32(i), err
	case types.Int64Kind:
		return strconv.ParseInt(s, 10, 64)
	case types.Float32Kind:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	default:
		return strconv.ParseFloat(s, 64)
	}
}

func toStr(v values.T, t *types.T) string {
	if s, ok := v.(string); ok {
		return s
	}
	return values.Sprint(v, t)
}

func init() {
	register("is_missing", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			return types.Bool
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return values.IsMissing(args[0]), nil
		},
		Nonstrict: true,
	})
	register("is_defined", &builtin{
		Typecheck: builtins["is_missing"].Typecheck,
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return !values.IsMissing(args[0]), nil
		},
		Nonstrict: true,
	})
	register("coalesce", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) == 0 {
				return types.Errorf("expected at least 1 argument")
			}
			return unifyExprs(args)
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			for i, v := range args {
				if !values.IsMissing(v) {
					return values.Convert(v, e.Args[i].Type, e.Type), nil
				}
			}
			return values.Missing, nil
		},
		Nonstrict: true,
	})
	for _, t := range []*types.T{types.Int32, types.Int64, types.Float32, types.Float64} {
		t := t
		register(t.String(), &builtin{
			Typecheck: cast(t),
			Eval: func(e *Expr, args []values.T) (values.T, error) {
				if s, ok := args[0].(string); ok {
					v, err := parseNumber(s, t)
					if err != nil {
						return nil, errors.E(errors.Eval, err)
					}
					return v, nil
				}
				return values.Convert(args[0], e.Args[0].Type, t), nil
			},
		})
	}
	register("bool", &builtin{
		Typecheck: cast(types.Bool),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			s, ok := args[0].(string)
			if !ok {
				return values.ToFloat64(args[0]) != 0, nil
			}
			switch strings.ToLower(s) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return nil, errors.E(errors.Eval, fmt.Errorf("cannot parse %q as bool", s))
		},
	})
	register("str", &builtin{
		Typecheck: func(args []*Expr) *types.T {
			if len(args) != 1 {
				return types.Errorf("expected 1 argument, got %d", len(args))
			}
			return types.Str
		},
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return toStr(args[0], e.Args[0].Type), nil
		},
	})
}
