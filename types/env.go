// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

// Env represents a type environment that binds identifiers to *Ts.
// Environments are used when decoding expressions to resolve
// references to dataset fields and lambda parameters.
type Env struct {
	symbols map[string]*T
	next    *Env
}

// NewEnv creates and initializes a new Env.
func NewEnv() *Env {
	var e *Env
	return e.Push()
}

// Bind binds the identifier id to type t.
func (e *Env) Bind(id string, t *T) {
	e.symbols[id] = t
}

// Type returns the type bound to identifier id, if any.
func (e *Env) Type(id string) *T {
	for ; e != nil; e = e.next {
		if t := e.symbols[id]; t != nil {
			return t
		}
	}
	return nil
}

// Push returns a new environment level linked to e.
func (e *Env) Push() *Env {
	return &Env{
		symbols: make(map[string]*T),
		next:    e,
	}
}

// Symbols returns the full environment as a map.
func (e *Env) Symbols() map[string]*T {
	tab := map[string]*T{}
	for ; e != nil; e = e.next {
		for id, t := range e.symbols {
			if tab[id] == nil {
				tab[id] = t
			}
		}
	}
	return tab
}
