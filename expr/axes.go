// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import "strings"

// Axis is a set of dataset axes along which an expression varies.
// The zero Axis indexes global fields, which are constant over a
// dataset.
type Axis uint8

const (
	// AxisRow is the row axis.
	AxisRow Axis = 1 << iota
	// AxisCol is the column axis.
	AxisCol

	// AxisGlobal is the empty set of axes.
	AxisGlobal Axis = 0
	// AxisEntry indexes entries of a matrix table, which vary along
	// both rows and columns.
	AxisEntry = AxisRow | AxisCol
)

// String renders the axes as a comma-separated list.
func (a Axis) String() string {
	if a == AxisGlobal {
		return "global"
	}
	var names []string
	if a&AxisRow != 0 {
		names = append(names, "row")
	}
	if a&AxisCol != 0 {
		names = append(names, "column")
	}
	return strings.Join(names, ", ")
}

// Axes returns the union of the axes of the field references in e.
// Aggregators reduce the axes of their arguments: an aggregated
// expression contributes no axes.
func Axes(e *Expr) Axis {
	var a Axis
	e.Walk(func(e *Expr) bool {
		switch e.Kind {
		case ExprRef:
			a |= e.Axes
		case ExprAgg:
			return false
		}
		return true
	})
	return a
}
