// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"encoding/json"
	"fmt"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// jsonExpr is the wire representation of an expression node. Types
// are carried in their canonical string form.
type jsonExpr struct {
	Kind         string          `json:"kind"`
	Type         string          `json:"type"`
	Op           string          `json:"op,omitempty"`
	Ident        string          `json:"ident,omitempty"`
	Axes         Axis            `json:"axes,omitempty"`
	Param        string          `json:"param,omitempty"`
	Value        json.RawMessage `json:"value,omitempty"`
	Cond         *jsonExpr       `json:"cond,omitempty"`
	Left         *jsonExpr       `json:"left,omitempty"`
	Right        *jsonExpr       `json:"right,omitempty"`
	Args         []*jsonExpr     `json:"args,omitempty"`
	Fields       []jsonField     `json:"fields,omitempty"`
	Names        []string        `json:"names,omitempty"`
	Branches     []jsonBranch    `json:"branches,omitempty"`
	Missing      *jsonExpr       `json:"missing,omitempty"`
	Default      *jsonExpr       `json:"default,omitempty"`
	MissingFalse bool            `json:"missing_false,omitempty"`
}

type jsonField struct {
	Name string    `json:"name"`
	Expr *jsonExpr `json:"expr"`
}

type jsonBranch struct {
	When *jsonExpr `json:"when"`
	Then *jsonExpr `json:"then"`
}

var exprKinds = map[string]ExprKind{}

func init() {
	for k := ExprLiteral; k < maxExpr; k++ {
		exprKinds[k.String()] = k
	}
}

// MarshalJSON encodes expression e in the engine's wire format.
// Erroneous expressions cannot be encoded.
func (e *Expr) MarshalJSON() ([]byte, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	j, err := toJSON(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

func toJSON(e *Expr) (*jsonExpr, error) {
	if e == nil {
		return nil, nil
	}
	j := &jsonExpr{
		Kind:         e.Kind.String(),
		Type:         e.Type.String(),
		Op:           e.Op,
		Ident:        e.Ident,
		Axes:         e.Axes,
		Names:        e.Names,
		MissingFalse: e.MissingFalse,
	}
	if e.Param != nil {
		j.Param = e.Param.String()
	}
	if e.Kind == ExprLiteral {
		p, err := values.MarshalJSON(e.Val, e.Type)
		if err != nil {
			return nil, err
		}
		j.Value = p
	}
	var err error
	sub := func(e *Expr) *jsonExpr {
		if err != nil {
			return nil
		}
		var j *jsonExpr
		j, err = toJSON(e)
		return j
	}
	j.Cond, j.Left, j.Right = sub(e.Cond), sub(e.Left), sub(e.Right)
	j.Missing, j.Default = sub(e.Missing), sub(e.Default)
	for _, arg := range e.Args {
		j.Args = append(j.Args, sub(arg))
	}
	for _, f := range e.Fields {
		j.Fields = append(j.Fields, jsonField{f.Name, sub(f.Expr)})
	}
	for _, b := range e.Branches {
		j.Branches = append(j.Branches, jsonBranch{sub(b.When), sub(b.Then)})
	}
	return j, err
}

// Decode decodes an expression from its wire format. Every node is
// rebuilt from its operands, and its derived type must equal the
// declared type. References must be bound in env.
func Decode(p []byte, env *types.Env) (*Expr, error) {
	var j jsonExpr
	if err := json.Unmarshal(p, &j); err != nil {
		return nil, errors.E("decode", errors.Parse, err)
	}
	if env == nil {
		env = types.NewEnv()
	}
	return decode(&j, env)
}

func decode(j *jsonExpr, env *types.Env) (*Expr, error) {
	if j == nil {
		return nil, errors.E("decode", errors.Parse, errors.New("missing node"))
	}
	kind, ok := exprKinds[j.Kind]
	if !ok {
		return nil, errors.E("decode", j.Kind, errors.Parse, errors.New("unknown expression kind"))
	}
	declared, err := types.Parse(j.Type)
	if err != nil {
		return nil, err
	}
	var e *Expr
	dec := func(j *jsonExpr) *Expr { return decodeSub(j, env, &err) }
	opt := func(j *jsonExpr) *Expr {
		if j == nil {
			return nil
		}
		return dec(j)
	}
	args := func() []*Expr {
		es := make([]*Expr, len(j.Args))
		for i := range j.Args {
			es[i] = dec(j.Args[i])
		}
		return es
	}
	fields := func() []*FieldExpr {
		fs := make([]*FieldExpr, len(j.Fields))
		for i, f := range j.Fields {
			fs[i] = F(f.Name, dec(f.Expr))
		}
		return fs
	}
	branches := func() []*Branch {
		bs := make([]*Branch, len(j.Branches))
		for i, b := range j.Branches {
			bs[i] = &Branch{When: dec(b.When), Then: dec(b.Then)}
		}
		return bs
	}
	switch kind {
	case ExprLiteral:
		v, err := values.UnmarshalJSON(j.Value, declared)
		if err != nil {
			return nil, err
		}
		e = Literal(v, declared)
	case ExprRef:
		t := env.Type(j.Ident)
		if t == nil {
			return nil, errors.E("decode", j.Ident, errors.Schema, errors.New("unbound identifier"))
		}
		e = Ref(j.Ident, t, j.Axes)
	case ExprLambda:
		param, err := types.Parse(j.Param)
		if err != nil {
			return nil, err
		}
		benv := env.Push()
		benv.Bind(j.Ident, param)
		body, err := decode(j.Left, benv)
		if err != nil {
			return nil, err
		}
		e = &Expr{Kind: ExprLambda, Type: body.Type, Ident: j.Ident, Param: param, Left: body}
	case ExprBinop:
		e = Binop(j.Op, dec(j.Left), dec(j.Right))
	case ExprUnop:
		e = Unop(j.Op, dec(j.Left))
	case ExprApply:
		e = apply(j.Op, args()...)
	case ExprStruct:
		e = StructOf(fields()...)
	case ExprTuple:
		e = TupleOf(args()...)
	case ExprArray:
		e = ArrayOf(args()...)
	case ExprSet:
		e = SetOf(args()...)
	case ExprDict:
		e = DictOf(args()...)
	case ExprGetField:
		e = dec(j.Left).GetField(j.Ident)
	case ExprSelect:
		e = dec(j.Left).Select(j.Names, fields()...)
	case ExprDrop:
		e = dec(j.Left).Drop(j.Names...)
	case ExprAnnotate:
		e = dec(j.Left).Annotate(fields()...)
	case ExprIndex:
		e = dec(j.Left).Index(dec(j.Right))
	case ExprCond:
		e = Cond(dec(j.Cond), dec(j.Left), dec(j.Right), j.MissingFalse)
	case ExprSwitch:
		e = &Expr{Kind: ExprSwitch, Left: dec(j.Left), Branches: branches(), Missing: opt(j.Missing), Default: opt(j.Default)}
		if err == nil {
			e.Type = switchType(e)
		}
	case ExprCase:
		e = &Expr{Kind: ExprCase, Branches: branches(), Default: opt(j.Default), MissingFalse: j.MissingFalse}
		if err == nil {
			e.Type = caseType(e)
		}
	case ExprAgg:
		e = Aggregate(j.Op, args()...)
	}
	if err != nil {
		return nil, err
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	if !e.Type.Equal(declared) {
		return nil, errors.E("decode", j.Kind, errors.TypeCheck,
			fmt.Errorf("declared type %v, derived type %v", declared, e.Type))
	}
	return e, nil
}

// decodeSub decodes j, recording the first error in *errp. After
// an error, it returns placeholder nodes.
func decodeSub(j *jsonExpr, env *types.Env, errp *error) *Expr {
	if *errp != nil {
		return Null(types.Bool)
	}
	e, err := decode(j, env)
	if err != nil {
		*errp = err
		return Null(types.Bool)
	}
	return e
}
