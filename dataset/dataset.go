// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset models the shapes of the datasets held by an
// engine. A Table has global and row fields; a MatrixTable adds
// column fields and entry fields, indexed by both row and column.
// Field references are expressions tagged with the axes along which
// they vary.
package dataset

import (
	"fmt"

	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/types"
)

// A Dataset is a Table or a MatrixTable.
type Dataset interface {
	// Name returns the dataset's engine handle.
	Name() string
	// Schema returns the dataset's schema in wire form.
	Schema() *engine.Schema
}

// A Table is a keyed collection of rows.
type Table struct {
	// Handle is the engine's handle for the table.
	Handle string
	// Global and Row are the (struct) types of the global and row
	// fields.
	Global, Row *types.T
	// Key names the fields of Row that key the table.
	Key []string
}

// Name implements Dataset.
func (t *Table) Name() string { return t.Handle }

// Schema implements Dataset.
func (t *Table) Schema() *engine.Schema {
	return &engine.Schema{Global: t.Global.String(), Row: t.Row.String(), RowKey: t.Key}
}

// RowField returns a reference to row field name.
func (t *Table) RowField(name string) *expr.Expr {
	return field(t.Handle, "row", t.Row, name, expr.AxisRow)
}

// GlobalField returns a reference to global field name.
func (t *Table) GlobalField(name string) *expr.Expr {
	return field(t.Handle, "global", t.Global, name, expr.AxisGlobal)
}

// KeyTypes returns the types of the table's key fields.
func (t *Table) KeyTypes() []*types.T {
	return keyTypes(t.Row, t.Key)
}

// A MatrixTable is a two-dimensional dataset: rows and columns,
// each keyed, and an entry for every row and column.
type MatrixTable struct {
	// Handle is the engine's handle for the matrix table.
	Handle string
	// Global, Row, Col, and Entry are the (struct) types of the
	// global, row, column, and entry fields.
	Global, Row, Col, Entry *types.T
	// RowKey and ColKey name the fields of Row and Col that key
	// rows and columns.
	RowKey, ColKey []string
}

// Name implements Dataset.
func (m *MatrixTable) Name() string { return m.Handle }

// Schema implements Dataset.
func (m *MatrixTable) Schema() *engine.Schema {
	return &engine.Schema{
		Global: m.Global.String(),
		Row:    m.Row.String(),
		Col:    m.Col.String(),
		Entry:  m.Entry.String(),
		RowKey: m.RowKey,
		ColKey: m.ColKey,
	}
}

// RowField returns a reference to row field name.
func (m *MatrixTable) RowField(name string) *expr.Expr {
	return field(m.Handle, "row", m.Row, name, expr.AxisRow)
}

// ColField returns a reference to column field name.
func (m *MatrixTable) ColField(name string) *expr.Expr {
	return field(m.Handle, "column", m.Col, name, expr.AxisCol)
}

// EntryField returns a reference to entry field name.
func (m *MatrixTable) EntryField(name string) *expr.Expr {
	return field(m.Handle, "entry", m.Entry, name, expr.AxisEntry)
}

// GlobalField returns a reference to global field name.
func (m *MatrixTable) GlobalField(name string) *expr.Expr {
	return field(m.Handle, "global", m.Global, name, expr.AxisGlobal)
}

// RowKeyTypes returns the types of the matrix table's row key
// fields.
func (m *MatrixTable) RowKeyTypes() []*types.T {
	return keyTypes(m.Row, m.RowKey)
}

// ColKeyTypes returns the types of the matrix table's column key
// fields.
func (m *MatrixTable) ColKeyTypes() []*types.T {
	return keyTypes(m.Col, m.ColKey)
}

// Rows returns the matrix table's row fields as a table, on the
// same handle.
func (m *MatrixTable) Rows() *Table {
	return &Table{Handle: m.Handle, Global: m.Global, Row: m.Row, Key: m.RowKey}
}

// Cols returns the matrix table's column fields as a table, on the
// same handle.
func (m *MatrixTable) Cols() *Table {
	return &Table{Handle: m.Handle, Global: m.Global, Row: m.Col, Key: m.ColKey}
}

func field(handle, axis string, typ *types.T, name string, axes expr.Axis) *expr.Expr {
	if typ.FieldIndex(name) < 0 {
		return expr.Error(errors.E("field", handle, errors.Schema,
			fmt.Errorf("%s has no %s field %q; fields are %v", handle, axis, name, typ.FieldNames())))
	}
	return expr.Ref(name, typ.Field(name), axes)
}

func keyTypes(t *types.T, key []string) []*types.T {
	ts := make([]*types.T, len(key))
	for i, name := range key {
		ts[i] = t.Field(name)
	}
	return ts
}

// FromSchema returns the dataset with the provided handle and
// schema: a MatrixTable if the schema has column or entry fields,
// and a Table otherwise. Key fields must be present.
func FromSchema(handle string, s *engine.Schema) (Dataset, error) {
	global, err := structType(handle, "global", s.Global)
	if err != nil {
		return nil, err
	}
	row, err := structType(handle, "row", s.Row)
	if err != nil {
		return nil, err
	}
	if err := checkKey(handle, "row", row, s.RowKey); err != nil {
		return nil, err
	}
	if !s.IsMatrix() {
		return &Table{Handle: handle, Global: global, Row: row, Key: s.RowKey}, nil
	}
	col, err := structType(handle, "column", s.Col)
	if err != nil {
		return nil, err
	}
	if err := checkKey(handle, "column", col, s.ColKey); err != nil {
		return nil, err
	}
	entry, err := structType(handle, "entry", s.Entry)
	if err != nil {
		return nil, err
	}
	return &MatrixTable{
		Handle: handle,
		Global: global, Row: row, Col: col, Entry: entry,
		RowKey: s.RowKey, ColKey: s.ColKey,
	}, nil
}

func structType(handle, axis, text string) (*types.T, error) {
	if text == "" {
		return types.Struct(), nil
	}
	t, err := types.Parse(text)
	if err != nil {
		return nil, errors.E("schema", handle, axis, err)
	}
	if t.Kind != types.StructKind {
		return nil, errors.E("schema", handle, axis, errors.TypeCheck,
			fmt.Errorf("expected a struct type, got %v", t))
	}
	return t, nil
}

func checkKey(handle, axis string, t *types.T, key []string) error {
	for _, name := range key {
		if t.FieldIndex(name) < 0 {
			return errors.E("schema", handle, axis, errors.Schema,
				fmt.Errorf("key field %q is not a %s field", name, axis))
		}
	}
	return nil
}
