// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import "github.com/grailbio/hailexpr/types"

// Symtab is a symbol table of values.
type Symtab map[string]T

// Env binds identifiers to evaluation: dataset fields of the row
// being evaluated and lambda parameters.
type Env struct {
	// Symtab is the symbol table for this level.
	Symtab Symtab
	next   *Env
}

// NewEnv constructs and initializes a new Env.
func NewEnv() *Env {
	var e *Env
	return e.Push()
}

// Bind binds the identifier id to value v. Missing values are bound
// as Missing, so that bound identifiers are distinguishable from
// unbound ones.
func (e *Env) Bind(id string, v T) {
	if v == nil {
		v = Missing
	}
	e.Symtab[id] = v
}

// Contains tells whether environment e binds identifier id.
func (e *Env) Contains(id string) bool {
	for ; e != nil; e = e.next {
		if _, ok := e.Symtab[id]; ok {
			return true
		}
	}
	return false
}

// Value returns the value bound to identifier id, or else nil.
func (e *Env) Value(id string) T {
	for ; e != nil; e = e.next {
		if v := e.Symtab[id]; v != nil {
			return v
		}
	}
	return nil
}

// Push returns returns a new environment level, linked
// to the previous.
func (e *Env) Push() *Env {
	return &Env{
		Symtab: make(Symtab),
		next:   e,
	}
}

// BindStruct binds each field of row (of struct type t) as an
// identifier.
func (e *Env) BindStruct(row Struct, t *types.T) {
	for _, f := range t.Fields {
		e.Bind(f.Name, row[f.Name])
	}
}
