// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"fmt"

	"github.com/grailbio/hailexpr/errors"
)

func schemaError(op, field string, t *T) *T {
	return Error(errors.E(op, quoteName(field), errors.Schema, fmt.Errorf("no such field in %v", t)))
}

// Select returns a struct type with the named fields of t, in the
// order given, followed by the extra fields, in the order given.
func (t *T) Select(names []string, extra ...*Field) *T {
	if t.Kind != StructKind {
		return Errorf("select: %v is not a struct", t)
	}
	fields := make([]*Field, 0, len(names)+len(extra))
	for _, name := range names {
		i := t.FieldIndex(name)
		if i < 0 {
			return schemaError("select", name, t)
		}
		fields = append(fields, &Field{Name: name, T: t.Fields[i].T})
	}
	return Struct(append(fields, extra...)...)
}

// Drop returns a struct type with the remaining fields of t, in
// their original order.
func (t *T) Drop(names ...string) *T {
	if t.Kind != StructKind {
		return Errorf("drop: %v is not a struct", t)
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if t.FieldIndex(name) < 0 {
			return schemaError("drop", name, t)
		}
		drop[name] = true
	}
	fields := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !drop[f.Name] {
			fields = append(fields, f)
		}
	}
	return Struct(fields...)
}

// Annotate returns a struct type equal to t with the given fields
// replacing same-named fields in place, and new fields appended in
// the order given.
func (t *T) Annotate(fields ...*Field) *T {
	if t.Kind != StructKind {
		return Errorf("annotate: %v is not a struct", t)
	}
	out := make([]*Field, len(t.Fields), len(t.Fields)+len(fields))
	copy(out, t.Fields)
	for _, f := range fields {
		if i := FieldIndexOf(out, f.Name); i >= 0 {
			out[i] = f
		} else {
			out = append(out, f)
		}
	}
	return Struct(out...)
}

// FieldIndexOf returns the position of the named field in fields, or -1.
func FieldIndexOf(fields []*Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
