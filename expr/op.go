// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"math"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// Add returns e + f. Strings are concatenated.
func (e *Expr) Add(f *Expr) *Expr { return Binop("+", e, f) }

// Sub returns e - f.
func (e *Expr) Sub(f *Expr) *Expr { return Binop("-", e, f) }

// Mul returns e * f.
func (e *Expr) Mul(f *Expr) *Expr { return Binop("*", e, f) }

// Div returns e / f, which is at least float32.
func (e *Expr) Div(f *Expr) *Expr { return Binop("/", e, f) }

// FloorDiv returns the floored quotient of e and f.
func (e *Expr) FloorDiv(f *Expr) *Expr { return Binop("//", e, f) }

// Mod returns the floored remainder of e and f; its sign follows f.
func (e *Expr) Mod(f *Expr) *Expr { return Binop("%", e, f) }

// Pow returns e raised to f, a float64.
func (e *Expr) Pow(f *Expr) *Expr { return Binop("**", e, f) }

// Eq returns e == f.
func (e *Expr) Eq(f *Expr) *Expr { return Binop("==", e, f) }

// Ne returns e != f.
func (e *Expr) Ne(f *Expr) *Expr { return Binop("!=", e, f) }

// Lt returns e < f.
func (e *Expr) Lt(f *Expr) *Expr { return Binop("<", e, f) }

// Le returns e <= f.
func (e *Expr) Le(f *Expr) *Expr { return Binop("<=", e, f) }

// Gt returns e > f.
func (e *Expr) Gt(f *Expr) *Expr { return Binop(">", e, f) }

// Ge returns e >= f.
func (e *Expr) Ge(f *Expr) *Expr { return Binop(">=", e, f) }

// And returns the Kleene conjunction of e and f: false if either is
// false, missing if either is missing, and true otherwise.
func (e *Expr) And(f *Expr) *Expr { return Binop("&", e, f) }

// Or returns the Kleene disjunction of e and f: true if either is
// true, missing if either is missing, and false otherwise.
func (e *Expr) Or(f *Expr) *Expr { return Binop("|", e, f) }

// Neg returns -e.
func (e *Expr) Neg() *Expr { return Unop("-", e) }

// Not returns the negation of boolean e.
func (e *Expr) Not() *Expr { return Unop("!", e) }

func isArith(op string) bool {
	switch op {
	case "+", "-", "*", "/", "//", "%", "**":
		return true
	}
	return false
}

// Binop returns the binary operation op applied to l and r.
func Binop(op string, l, r *Expr) *Expr {
	e := &Expr{Kind: ExprBinop, Op: op, Left: l, Right: r}
	if t := firstErr(l, r); t != nil {
		e.Type = t
		return e
	}
	e.Type = opError(op, binopType(op, l.Type, r.Type))
	return e
}

func binopType(op string, l, r *types.T) *types.T {
	switch op {
	case "+", "-", "*", "/", "//", "%", "**":
		if op == "+" && l.Kind == types.StrKind && r.Kind == types.StrKind {
			return types.Str
		}
		return arithType(op, l, r)
	case "==", "!=":
		if l.IsArithmetic() && r.IsArithmetic() {
			return types.Bool
		}
		if t := types.Unify(l, r); t.Kind == types.ErrorKind {
			return types.Errorf("cannot compare %v and %v", l, r)
		}
		return types.Bool
	case "<", "<=", ">", ">=":
		if l.IsArithmetic() && r.IsArithmetic() || l.Kind == types.StrKind && r.Kind == types.StrKind {
			return types.Bool
		}
		return types.Errorf("cannot order %v and %v", l, r)
	case "&", "|":
		if l.Kind != types.BoolKind || r.Kind != types.BoolKind {
			return types.Errorf("expected bool operands, got %v and %v", l, r)
		}
		return types.Bool
	}
	return types.Errorf("unknown operator %q", op)
}

// arithType returns the result type of arithmetic operator op.
// Arrays broadcast against scalars and pair element-wise with
// arrays.
func arithType(op string, l, r *types.T) *types.T {
	switch {
	case l.Kind == types.ArrayKind && r.Kind == types.ArrayKind:
		return types.Array(arithType(op, l.Elem, r.Elem))
	case l.Kind == types.ArrayKind:
		return types.Array(arithType(op, l.Elem, r))
	case r.Kind == types.ArrayKind:
		return types.Array(arithType(op, l, r.Elem))
	}
	if !l.IsArithmetic() || !r.IsArithmetic() {
		return types.Errorf("expected numeric operands, got %v and %v", l, r)
	}
	j := types.Join(l, r)
	switch op {
	case "/":
		if j.IsIntegral() {
			return types.Float32
		}
	case "**":
		return types.Float64
	}
	return j
}

// Unop returns the unary operation op applied to e.
func Unop(op string, e *Expr) *Expr {
	u := &Expr{Kind: ExprUnop, Op: op, Left: e}
	if t := firstErr(e); t != nil {
		u.Type = t
		return u
	}
	u.Type = opError(op, unopType(op, e.Type))
	return u
}

func unopType(op string, t *types.T) *types.T {
	switch op {
	case "-":
		if t.Kind == types.ArrayKind {
			return types.Array(unopType(op, t.Elem))
		}
		if !t.IsArithmetic() {
			return types.Errorf("cannot negate %v", t)
		}
		return types.Promote(t)
	case "!":
		if t.Kind != types.BoolKind {
			return types.Errorf("expected bool operand, got %v", t)
		}
		return types.Bool
	}
	return types.Errorf("unknown operator %q", op)
}

// evalBinop evaluates binary operation e given an evaluator for
// its operands.
func (e *Expr) evalBinop(ev *evaluator) (values.T, error) {
	if e.Op == "&" || e.Op == "|" {
		return e.evalLogical(ev)
	}
	l, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	r, err := ev.eval(e.Right)
	if err != nil {
		return nil, err
	}
	if values.IsMissing(l) || values.IsMissing(r) {
		return values.Missing, nil
	}
	lt, rt := e.Left.Type, e.Right.Type
	switch {
	case isArith(e.Op) && lt.Kind == types.StrKind:
		return l.(string) + r.(string), nil
	case isArith(e.Op):
		return arith(e.Op, l, r, lt, rt, e.Type)
	}
	return compare(e.Op, l, r, lt, rt)
}

func (e *Expr) evalLogical(ev *evaluator) (values.T, error) {
	l, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	// The result is determined by l alone when l is false (&) or
	// true (|).
	short := e.Op == "|"
	if !values.IsMissing(l) && l.(bool) == short {
		return short, nil
	}
	r, err := ev.eval(e.Right)
	if err != nil {
		return nil, err
	}
	switch {
	case !values.IsMissing(r) && r.(bool) == short:
		return short, nil
	case values.IsMissing(l) || values.IsMissing(r):
		return values.Missing, nil
	}
	return !short, nil
}

// arith applies arithmetic operator op to l and r, of types lt and
// rt, producing a value of type t.
func arith(op string, l, r values.T, lt, rt, t *types.T) (values.T, error) {
	if t.Kind == types.ArrayKind {
		var (
			n      int
			la, ra values.Array
			le, re = lt, rt
		)
		if lt.Kind == types.ArrayKind {
			la, le = l.(values.Array), lt.Elem
			n = len(la)
		}
		if rt.Kind == types.ArrayKind {
			ra, re = r.(values.Array), rt.Elem
			if la != nil && len(la) != len(ra) {
				return nil, errors.E(op, errors.Eval,
					errors.Errorf("arrays have different lengths: %d and %d", len(la), len(ra)))
			}
			n = len(ra)
		}
		out := make(values.Array, n)
		for i := range out {
			lv, rv := l, r
			if la != nil {
				lv = la[i]
			}
			if ra != nil {
				rv = ra[i]
			}
			if values.IsMissing(lv) || values.IsMissing(rv) {
				out[i] = values.Missing
				continue
			}
			v, err := arith(op, lv, rv, le, re, t.Elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	if t.IsIntegral() {
		a, b := values.ToInt64(l), values.ToInt64(r)
		var x int64
		switch op {
		case "+":
			x = a + b
		case "-":
			x = a - b
		case "*":
			x = a * b
		case "//", "%":
			if b == 0 {
				return nil, errors.E(op, errors.Eval, errors.New("integer division by zero"))
			}
			q := a / b
			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}
			x = q
			if op == "%" {
				x = a - q*b
			}
		}
		if t.Kind == types.Int32Kind {
			return int32(x), nil
		}
		return x, nil
	}
	a, b := values.ToFloat64(l), values.ToFloat64(r)
	var x float64
	switch op {
	case "+":
		x = a + b
	case "-":
		x = a - b
	case "*":
		x = a * b
	case "/":
		x = a / b
	case "//":
		x = math.Floor(a / b)
	case "%":
		x = a - b*math.Floor(a/b)
	case "**":
		x = math.Pow(a, b)
	}
	if t.Kind == types.Float32Kind {
		return float32(x), nil
	}
	return x, nil
}

// compare applies comparison operator op to non-missing l and r.
func compare(op string, l, r values.T, lt, rt *types.T) (values.T, error) {
	var c int
	switch {
	case lt.IsArithmetic() && rt.IsArithmetic():
		j := types.Join(lt, rt)
		if j.IsIntegral() {
			a, b := values.ToInt64(l), values.ToInt64(r)
			switch {
			case a < b:
				c = -1
			case a > b:
				c = 1
			}
			break
		}
		a, b := values.ToFloat64(l), values.ToFloat64(r)
		if math.IsNaN(a) || math.IsNaN(b) {
			return op == "!=", nil
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	case op == "==" || op == "!=":
		t := types.Unify(lt, rt)
		eq := values.Equal(values.Convert(l, lt, t), values.Convert(r, rt, t))
		return eq == (op == "=="), nil
	default:
		c = values.Compare(l, r)
	}
	switch op {
	case "==":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return nil, errors.E(op, errors.Eval, errors.New("unknown comparison"))
}

func (e *Expr) evalUnop(ev *evaluator) (values.T, error) {
	v, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	if values.IsMissing(v) {
		return values.Missing, nil
	}
	if e.Op == "!" {
		return !v.(bool), nil
	}
	return negate(v, e.Type), nil
}

func negate(v values.T, t *types.T) values.T {
	if values.IsMissing(v) {
		return values.Missing
	}
	switch t.Kind {
	case types.ArrayKind:
		a := v.(values.Array)
		out := make(values.Array, len(a))
		for i := range a {
			out[i] = negate(a[i], t.Elem)
		}
		return out
	case types.Int32Kind:
		return -int32(values.ToInt64(v))
	case types.Int64Kind:
		return -values.ToInt64(v)
	case types.Float32Kind:
		return -float32(values.ToFloat64(v))
	default:
		return -values.ToFloat64(v)
	}
}
