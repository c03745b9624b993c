// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// Cond returns ifTrue if test is true and ifFalse if it is false.
// A missing test yields missing, unless missingFalse is set, in
// which case it is treated as false. The branch types are unified.
func Cond(test, ifTrue, ifFalse *Expr, missingFalse bool) *Expr {
	e := &Expr{Kind: ExprCond, Cond: test, Left: ifTrue, Right: ifFalse, MissingFalse: missingFalse}
	switch t := firstErr(test, ifTrue, ifFalse); {
	case t != nil:
		e.Type = t
	case test.Type.Kind != types.BoolKind:
		e.Type = opError("cond", types.Errorf("condition must be bool, got %v", test.Type))
	default:
		e.Type = opError("cond", types.Unify(ifTrue.Type, ifFalse.Type))
	}
	return e
}

// SwitchBuilder builds a switch expression. Builders are immutable:
// each method returns a new builder, and terminal methods return
// the finished expression.
type SwitchBuilder struct {
	subject  *Expr
	branches []*Branch
	missing  *Expr
}

// Switch begins a switch over the value of subject.
func Switch(subject *Expr) *SwitchBuilder {
	return &SwitchBuilder{subject: subject}
}

// When adds a branch taken when the subject equals key. Keys are
// compared in order; a missing key never matches.
func (s *SwitchBuilder) When(key, result *Expr) *SwitchBuilder {
	n := *s
	n.branches = append(append([]*Branch(nil), s.branches...), &Branch{When: key, Then: result})
	return &n
}

// WhenMissing sets the result taken when the subject is missing.
func (s *SwitchBuilder) WhenMissing(result *Expr) *SwitchBuilder {
	n := *s
	n.missing = result
	return &n
}

// Default finishes the switch with the result taken when no branch
// matches.
func (s *SwitchBuilder) Default(result *Expr) *Expr {
	return s.finish(result)
}

// OrMissing finishes the switch; it is missing when no branch
// matches.
func (s *SwitchBuilder) OrMissing() *Expr {
	return s.finish(nil)
}

func (s *SwitchBuilder) finish(def *Expr) *Expr {
	e := &Expr{Kind: ExprSwitch, Left: s.subject, Branches: s.branches, Missing: s.missing, Default: def}
	e.Type = switchType(e)
	return e
}

func switchType(e *Expr) *types.T {
	results := e.results()
	if t := firstErr(append(results, e.Left)...); t != nil {
		return t
	}
	for _, b := range e.Branches {
		if t := firstErr(b.When); t != nil {
			return t
		}
		if !keyComparable(e.Left.Type, b.When.Type) {
			return opError("switch", types.Errorf("cannot compare %v to key of type %v", e.Left.Type, b.When.Type))
		}
	}
	return opError("switch", unifyExprs(results))
}

// CaseBuilder builds a chain of conditions. Builders are immutable:
// each method returns a new builder, and terminal methods return
// the finished expression.
type CaseBuilder struct {
	missingFalse bool
	branches     []*Branch
}

// Case begins a chain of conditions. If missingFalse is set,
// missing conditions are treated as false; otherwise a missing
// condition makes the expression missing.
func Case(missingFalse bool) *CaseBuilder {
	return &CaseBuilder{missingFalse: missingFalse}
}

// When adds a branch taken when cond is true and no earlier
// condition is.
func (c *CaseBuilder) When(cond, result *Expr) *CaseBuilder {
	n := *c
	n.branches = append(append([]*Branch(nil), c.branches...), &Branch{When: cond, Then: result})
	return &n
}

// Default finishes the case with the result taken when no
// condition holds.
func (c *CaseBuilder) Default(result *Expr) *Expr {
	return c.finish(result)
}

// OrMissing finishes the case; it is missing when no condition
// holds.
func (c *CaseBuilder) OrMissing() *Expr {
	return c.finish(nil)
}

func (c *CaseBuilder) finish(def *Expr) *Expr {
	e := &Expr{Kind: ExprCase, Branches: c.branches, Default: def, MissingFalse: c.missingFalse}
	e.Type = caseType(e)
	return e
}

func caseType(e *Expr) *types.T {
	results := e.results()
	if len(e.Branches) == 0 && e.Default == nil {
		return opError("case", types.Errorf("no branches"))
	}
	if t := firstErr(results...); t != nil {
		return t
	}
	for _, b := range e.Branches {
		if t := firstErr(b.When); t != nil {
			return t
		}
		if b.When.Type.Kind != types.BoolKind {
			return opError("case", types.Errorf("condition must be bool, got %v", b.When.Type))
		}
	}
	return opError("case", unifyExprs(results))
}

// results returns the result expressions of a switch or case.
func (e *Expr) results() []*Expr {
	var results []*Expr
	for _, b := range e.Branches {
		results = append(results, b.Then)
	}
	if e.Missing != nil {
		results = append(results, e.Missing)
	}
	if e.Default != nil {
		results = append(results, e.Default)
	}
	return results
}

func keyComparable(t, u *types.T) bool {
	if t.IsArithmetic() && u.IsArithmetic() {
		return true
	}
	return types.Unify(t, u).Kind != types.ErrorKind
}

func (e *Expr) evalCond(ev *evaluator) (values.T, error) {
	test, err := ev.eval(e.Cond)
	if err != nil {
		return nil, err
	}
	var branch *Expr
	switch {
	case values.IsMissing(test) && !e.MissingFalse:
		return values.Missing, nil
	case truth(test):
		branch = e.Left
	default:
		branch = e.Right
	}
	return ev.evalAs(branch, e.Type)
}

func (e *Expr) evalSwitch(ev *evaluator) (values.T, error) {
	v, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}
	if values.IsMissing(v) {
		if e.Missing != nil {
			return ev.evalAs(e.Missing, e.Type)
		}
	} else {
		for _, b := range e.Branches {
			k, err := ev.eval(b.When)
			if err != nil {
				return nil, err
			}
			if values.IsMissing(k) {
				continue
			}
			eq, err := compare("==", v, k, e.Left.Type, b.When.Type)
			if err != nil {
				return nil, err
			}
			if eq.(bool) {
				return ev.evalAs(b.Then, e.Type)
			}
		}
	}
	if e.Default == nil {
		return values.Missing, nil
	}
	return ev.evalAs(e.Default, e.Type)
}

func (e *Expr) evalCase(ev *evaluator) (values.T, error) {
	for _, b := range e.Branches {
		c, err := ev.eval(b.When)
		if err != nil {
			return nil, err
		}
		if values.IsMissing(c) && !e.MissingFalse {
			return values.Missing, nil
		}
		if truth(c) {
			return ev.evalAs(b.Then, e.Type)
		}
	}
	if e.Default == nil {
		return values.Missing, nil
	}
	return ev.evalAs(e.Default, e.Type)
}
