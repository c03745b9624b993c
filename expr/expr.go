// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package expr implements typed expressions over genomic datasets.
// Expressions are trees of *Expr nodes, each carrying its type.
// Types are derived as the tree is built: operators promote their
// operands, branches unify, and ill-typed constructions yield nodes
// of an error type, whose error is reported by (*Expr).Err.
// Expressions are immutable; every transformation returns a new
// node.
//
// Every type's domain includes the missing value (values.Missing),
// which propagates through operators unless noted otherwise.
// Expressions are evaluated by an external engine; Eval implements
// the same semantics in process.
package expr

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// ExprKind is the kind of an expression.
type ExprKind int

const (
	// ExprError indicates an erroneous expression.
	ExprError ExprKind = iota
	// ExprLiteral is a literal value.
	ExprLiteral
	// ExprRef is a reference to a dataset field or lambda parameter.
	ExprRef
	// ExprBinop is a binary operation.
	ExprBinop
	// ExprUnop is a unary operation.
	ExprUnop
	// ExprApply is the application of a builtin function.
	ExprApply
	// ExprStruct is a struct constructor.
	ExprStruct
	// ExprTuple is a tuple constructor.
	ExprTuple
	// ExprArray is an array constructor.
	ExprArray
	// ExprSet is a set constructor.
	ExprSet
	// ExprDict is a dict constructor; Args alternate keys and values.
	ExprDict
	// ExprGetField is a struct field access.
	ExprGetField
	// ExprSelect selects struct fields.
	ExprSelect
	// ExprDrop drops struct fields.
	ExprDrop
	// ExprAnnotate annotates a struct with new or updated fields.
	ExprAnnotate
	// ExprIndex indexes arrays, tuples, dicts, and calls.
	ExprIndex
	// ExprCond is a conditional expression.
	ExprCond
	// ExprSwitch is a switch over the value of an expression.
	ExprSwitch
	// ExprCase is a chain of conditions.
	ExprCase
	// ExprLambda is a single-parameter function, used as the
	// argument of higher-order builtins.
	ExprLambda
	// ExprAgg is an aggregator; see package agg.
	ExprAgg

	maxExpr
)

var exprKindNames = [maxExpr]string{
	ExprError:    "error",
	ExprLiteral:  "literal",
	ExprRef:      "ref",
	ExprBinop:    "binop",
	ExprUnop:     "unop",
	ExprApply:    "apply",
	ExprStruct:   "struct",
	ExprTuple:    "tuple",
	ExprArray:    "array",
	ExprSet:      "set",
	ExprDict:     "dict",
	ExprGetField: "getfield",
	ExprSelect:   "select",
	ExprDrop:     "drop",
	ExprAnnotate: "annotate",
	ExprIndex:    "index",
	ExprCond:     "cond",
	ExprSwitch:   "switch",
	ExprCase:     "case",
	ExprLambda:   "lambda",
	ExprAgg:      "agg",
}

// String returns the name of the kind, as used in the wire format.
func (k ExprKind) String() string {
	if k < 0 || k >= maxExpr {
		return fmt.Sprintf("ExprKind(%d)", int(k))
	}
	return exprKindNames[k]
}

// FieldExpr stores a field name and expression.
type FieldExpr struct {
	Name string
	*Expr
}

// F is a shorthand constructor for a named field expression.
func F(name string, e *Expr) *FieldExpr {
	return &FieldExpr{Name: name, Expr: e}
}

// Branch is a single branch of a switch or case expression.
type Branch struct {
	// When is the key (switch) or condition (case) of the branch.
	When *Expr
	// Then is the branch's result.
	Then *Expr
}

// An Expr is a node in the expression tree.
type Expr struct {
	// Kind is the expression's op; see above.
	Kind ExprKind
	// Type is the type of the expression. Erroneous expressions
	// have an error type.
	Type *types.T

	// Op is the operator in ExprBinop and ExprUnop, the builtin in
	// ExprApply, and the reducer in ExprAgg.
	Op string

	// Left and Right are the operands of binary expressions, the
	// branches of ExprCond, and the subject (Left) of unary
	// expressions, field operations, and switches. Left is the
	// body of an ExprLambda.
	Left, Right *Expr
	// Cond is the condition in ExprCond.
	Cond *Expr

	// Args holds the arguments of ExprApply and ExprAgg, and the
	// elements of container constructors.
	Args []*Expr
	// Fields holds the fields of ExprStruct, the extra fields of
	// ExprSelect, and the fields of ExprAnnotate.
	Fields []*FieldExpr
	// Names holds field names for ExprSelect and ExprDrop.
	Names []string

	// Ident is the identifier of ExprRef, the field name of
	// ExprGetField, and the parameter of ExprLambda.
	Ident string
	// Axes are the dataset axes of an ExprRef.
	Axes Axis
	// Param is the parameter type of an ExprLambda.
	Param *types.T

	// Val is the value of an ExprLiteral.
	Val values.T

	// Branches are the branches of ExprSwitch and ExprCase.
	Branches []*Branch
	// Missing is the result of an ExprSwitch whose subject is
	// missing, if any.
	Missing *Expr
	// Default is the fallback of ExprSwitch and ExprCase; nil means
	// missing.
	Default *Expr
	// MissingFalse tells ExprCond and ExprCase to treat missing
	// conditions as false.
	MissingFalse bool
}

// Err returns the first type error in the expression, if any.
func (e *Expr) Err() error {
	if e == nil {
		return errors.E(errors.TypeCheck, errors.New("nil expression"))
	}
	return e.Type.Err()
}

// Subexpr returns this expression's direct subexpressions.
func (e *Expr) Subexpr() []*Expr {
	var x []*Expr
	if e.Cond != nil {
		x = append(x, e.Cond)
	}
	if e.Left != nil {
		x = append(x, e.Left)
	}
	if e.Right != nil {
		x = append(x, e.Right)
	}
	x = append(x, e.Args...)
	for _, f := range e.Fields {
		x = append(x, f.Expr)
	}
	for _, b := range e.Branches {
		x = append(x, b.When, b.Then)
	}
	if e.Missing != nil {
		x = append(x, e.Missing)
	}
	if e.Default != nil {
		x = append(x, e.Default)
	}
	return x
}

// Walk calls fn for each node in the expression tree in preorder;
// subexpressions of e are visited only if fn returns true.
func (e *Expr) Walk(fn func(*Expr) bool) {
	if !fn(e) {
		return
	}
	for _, sub := range e.Subexpr() {
		sub.Walk(fn)
	}
}

// String renders a tree-formatted version of e.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprLiteral:
		return values.Sprint(e.Val, e.Type)
	case ExprRef:
		return e.Ident
	case ExprBinop:
		return fmt.Sprintf("(%v %s %v)", e.Left, e.Op, e.Right)
	case ExprUnop:
		return fmt.Sprintf("%s%v", e.Op, e.Left)
	case ExprGetField:
		return fmt.Sprintf("%v.%s", e.Left, e.Ident)
	case ExprLambda:
		return fmt.Sprintf("(%s => %v)", e.Ident, e.Left)
	}
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	b.WriteString("(")
	for i, sub := range e.Subexpr() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sub.String())
	}
	b.WriteString(")")
	return b.String()
}

// firstErr returns the first error type among es, or nil.
func firstErr(es ...*Expr) *types.T {
	for _, e := range es {
		if e == nil {
			return types.Errorf("nil expression")
		}
		if e.Type.Kind == types.ErrorKind {
			return e.Type
		}
	}
	return nil
}

// opError wraps the error of type t with the operation op.
func opError(op string, t *types.T) *types.T {
	if t.Kind != types.ErrorKind {
		return t
	}
	return types.Error(errors.E(op, t.Err()))
}

// Literal returns a literal expression of value v with type t.
func Literal(v values.T, t *types.T) *Expr {
	if v == nil {
		v = values.Missing
	}
	return &Expr{Kind: ExprLiteral, Type: t, Val: v}
}

// Null returns the missing value of type t.
func Null(t *types.T) *Expr {
	return Literal(values.Missing, t)
}

// Error returns an erroneous expression carrying err.
func Error(err error) *Expr {
	return &Expr{Kind: ExprError, Type: types.Error(err)}
}

// Int32 returns an int32 literal.
func Int32(v int32) *Expr { return Literal(v, types.Int32) }

// Int64 returns an int64 literal.
func Int64(v int64) *Expr { return Literal(v, types.Int64) }

// Float32 returns a float32 literal.
func Float32(v float32) *Expr { return Literal(v, types.Float32) }

// Float64 returns a float64 literal.
func Float64(v float64) *Expr { return Literal(v, types.Float64) }

// Str returns a str literal.
func Str(v string) *Expr { return Literal(v, types.Str) }

// Bool returns a bool literal.
func Bool(v bool) *Expr { return Literal(v, types.Bool) }

// Lit imputes an expression from a Go value: Go ints are int32,
// floats are float64, calls and loci are call and locus<GRCh37>.
// Slices become arrays whose element type unifies the elements';
// maps with string keys become structs with fields in name order.
// An *Expr is returned unchanged.
func Lit(v interface{}) *Expr {
	switch v := v.(type) {
	case *Expr:
		return v
	case int:
		return Int32(int32(v))
	case int32:
		return Int32(v)
	case int64:
		return Int64(v)
	case float32:
		return Float32(v)
	case float64:
		return Float64(v)
	case string:
		return Str(v)
	case bool:
		return Bool(v)
	case genetics.Call:
		return Literal(v, types.Call)
	case genetics.Locus:
		return Literal(v, types.Locus(genetics.Default.Name))
	case []interface{}:
		elems := make([]*Expr, len(v))
		for i := range v {
			elems[i] = Lit(v[i])
		}
		return ArrayOf(elems...)
	case []int:
		elems := make([]*Expr, len(v))
		for i := range v {
			elems[i] = Int32(int32(v[i]))
		}
		return ArrayOf(elems...)
	case []float64:
		elems := make([]*Expr, len(v))
		for i := range v {
			elems[i] = Float64(v[i])
		}
		return ArrayOf(elems...)
	case []string:
		elems := make([]*Expr, len(v))
		for i := range v {
			elems[i] = Str(v[i])
		}
		return ArrayOf(elems...)
	case []bool:
		elems := make([]*Expr, len(v))
		for i := range v {
			elems[i] = Bool(v[i])
		}
		return ArrayOf(elems...)
	case map[string]interface{}:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		fields := make([]*FieldExpr, len(names))
		for i, name := range names {
			fields[i] = F(name, Lit(v[name]))
		}
		return StructOf(fields...)
	}
	return &Expr{Kind: ExprError, Type: types.Errorf("cannot impute type of %v (%T)", v, v)}
}

var nparam int64

// Ref returns a reference to the identifier name of type t on the
// given axes.
func Ref(name string, t *types.T, axes Axis) *Expr {
	return &Expr{Kind: ExprRef, Type: t, Ident: name, Axes: axes}
}

// lambda constructs a lambda with a fresh parameter of type param
// and the body returned by fn.
func lambda(param *types.T, fn func(*Expr) *Expr) *Expr {
	ident := fmt.Sprintf("_x%d", atomic.AddInt64(&nparam, 1))
	body := fn(Ref(ident, param, 0))
	if body == nil {
		body = &Expr{Kind: ExprError, Type: types.Errorf("nil lambda body")}
	}
	return &Expr{Kind: ExprLambda, Type: body.Type, Ident: ident, Param: param, Left: body}
}

// StructOf constructs a struct from the given fields.
func StructOf(fields ...*FieldExpr) *Expr {
	e := &Expr{Kind: ExprStruct, Fields: fields}
	tfields := make([]*types.Field, len(fields))
	for i, f := range fields {
		if t := firstErr(f.Expr); t != nil {
			e.Type = t
			return e
		}
		tfields[i] = types.F(f.Name, f.Type)
	}
	e.Type = opError("struct", types.Struct(tfields...))
	return e
}

// TupleOf constructs a tuple from the given elements.
func TupleOf(elems ...*Expr) *Expr {
	e := &Expr{Kind: ExprTuple, Args: elems}
	if t := firstErr(elems...); t != nil {
		e.Type = t
		return e
	}
	ts := make([]*types.T, len(elems))
	for i := range elems {
		ts[i] = elems[i].Type
	}
	e.Type = types.Tuple(ts...)
	return e
}

// unifyExprs returns the unified type of es.
func unifyExprs(es []*Expr) *types.T {
	if t := firstErr(es...); t != nil {
		return t
	}
	ts := make([]*types.T, len(es))
	for i := range es {
		ts[i] = es[i].Type
	}
	return types.Unify(ts...)
}

// ArrayOf constructs an array from the given elements, whose types
// are unified. At least one element must be given; see EmptyArray.
func ArrayOf(elems ...*Expr) *Expr {
	e := &Expr{Kind: ExprArray, Args: elems}
	e.Type = opError("array", types.Array(unifyExprs(elems)))
	return e
}

// EmptyArray returns an empty array of element type elem.
func EmptyArray(elem *types.T) *Expr {
	return Literal(values.Array{}, types.Array(elem))
}

// SetOf constructs a set from the given elements, whose types are
// unified. At least one element must be given; see EmptySet.
func SetOf(elems ...*Expr) *Expr {
	e := &Expr{Kind: ExprSet, Args: elems}
	e.Type = opError("set", types.Set(unifyExprs(elems)))
	return e
}

// EmptySet returns an empty set of element type elem.
func EmptySet(elem *types.T) *Expr {
	return Literal(values.NewSet(elem), types.Set(elem))
}

// DictOf constructs a dict from alternating keys and values. Key
// and value types are unified separately.
func DictOf(kvs ...*Expr) *Expr {
	e := &Expr{Kind: ExprDict, Args: kvs}
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		e.Type = types.Errorf("dict: expected a non-empty list of key-value pairs")
		return e
	}
	var keys, vals []*Expr
	for i := 0; i < len(kvs); i += 2 {
		keys = append(keys, kvs[i])
		vals = append(vals, kvs[i+1])
	}
	e.Type = opError("dict", types.Dict(unifyExprs(keys), unifyExprs(vals)))
	return e
}

// EmptyDict returns an empty dict.
func EmptyDict(key, value *types.T) *Expr {
	return Literal(values.NewDict(key), types.Dict(key, value))
}
