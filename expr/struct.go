// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// GetField returns field name of struct e. Unknown fields are
// errors of kind errors.Schema.
func (e *Expr) GetField(name string) *Expr {
	x := &Expr{Kind: ExprGetField, Left: e, Ident: name}
	if t := firstErr(e); t != nil {
		x.Type = t
		return x
	}
	if e.Type.Kind != types.StructKind {
		x.Type = types.Errorf("cannot access field %q of %v", name, e.Type)
		return x
	}
	x.Type = e.Type.Field(name)
	return x
}

// Select returns a struct of the fields names of struct e, in the
// order given, followed by the extra fields, in order.
func (e *Expr) Select(names []string, extra ...*FieldExpr) *Expr {
	x := &Expr{Kind: ExprSelect, Left: e, Names: names, Fields: extra}
	x.Type = fieldsType(e, extra, func(fields []*types.Field) *types.T {
		return e.Type.Select(names, fields...)
	})
	return x
}

// Drop returns struct e without the fields names, with the remaining
// fields in their original order.
func (e *Expr) Drop(names ...string) *Expr {
	x := &Expr{Kind: ExprDrop, Left: e, Names: names}
	x.Type = fieldsType(e, nil, func([]*types.Field) *types.T {
		return e.Type.Drop(names...)
	})
	return x
}

// Annotate returns struct e with the given fields: existing fields
// are replaced in place, and new fields are appended in order.
func (e *Expr) Annotate(fields ...*FieldExpr) *Expr {
	x := &Expr{Kind: ExprAnnotate, Left: e, Fields: fields}
	x.Type = fieldsType(e, fields, func(tfields []*types.Field) *types.T {
		return e.Type.Annotate(tfields...)
	})
	return x
}

func fieldsType(e *Expr, fields []*FieldExpr, fn func([]*types.Field) *types.T) *types.T {
	if t := firstErr(e); t != nil {
		return t
	}
	tfields := make([]*types.Field, len(fields))
	for i, f := range fields {
		if t := firstErr(f.Expr); t != nil {
			return t
		}
		tfields[i] = types.F(f.Name, f.Type)
	}
	return fn(tfields)
}

func (e *Expr) evalStruct(ev *evaluator) (values.T, error) {
	v, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Kind == ExprGetField {
		if values.IsMissing(v) {
			return values.Missing, nil
		}
		return fieldValue(v.(values.Struct), e.Ident), nil
	}
	fields, err := ev.evalFields(e.Fields)
	if err != nil {
		return nil, err
	}
	if values.IsMissing(v) {
		return values.Missing, nil
	}
	s := v.(values.Struct)
	out := make(values.Struct, len(e.Type.Fields))
	for _, f := range e.Type.Fields {
		if fv, ok := fields[f.Name]; ok {
			out[f.Name] = fv
		} else {
			out[f.Name] = fieldValue(s, f.Name)
		}
	}
	return out, nil
}

func fieldValue(s values.Struct, name string) values.T {
	if v, ok := s[name]; ok && v != nil {
		return v
	}
	return values.Missing
}

func (ev *evaluator) evalFields(fields []*FieldExpr) (values.Struct, error) {
	out := make(values.Struct, len(fields))
	for _, f := range fields {
		v, err := ev.eval(f.Expr)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}
