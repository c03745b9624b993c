// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package agg

import (
	"bytes"
	"fmt"
	"math"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
	"github.com/willf/bloom"
)

// setFilterSize is the expected number of distinct elements for
// which set collection filters are sized.
const setFilterSize = 1 << 16

type count struct{ n int64 }

func newCount(*expr.Expr) state { return new(count) }

func (c *count) update(*values.Env, int64) error { c.n++; return nil }

func (c *count) merge(other state, _ int64) error {
	c.n += other.(*count).n
	return nil
}

func (c *count) result() values.T { return c.n }

// truth evaluates predicate pred, returning whether it is missing
// and otherwise its value.
func truth(pred *expr.Expr, env *values.Env) (missing, ok bool, err error) {
	v, err := expr.Eval(pred, env)
	if err != nil {
		return false, false, err
	}
	if values.IsMissing(v) {
		return true, false, nil
	}
	return false, v.(bool), nil
}

type countWhere struct {
	pred *expr.Expr
	n    int64
}

func newCountWhere(e *expr.Expr) state { return &countWhere{pred: e.Args[0]} }

func (c *countWhere) update(env *values.Env, _ int64) error {
	_, ok, err := truth(c.pred, env)
	if ok {
		c.n++
	}
	return err
}

func (c *countWhere) merge(other state, _ int64) error {
	c.n += other.(*countWhere).n
	return nil
}

func (c *countWhere) result() values.T { return c.n }

// filter applies its inner state to rows matching pred. Row indices
// passed to the inner state are those of the unfiltered sequence.
type filter struct {
	pred  *expr.Expr
	inner state
}

func newFilter(e *expr.Expr) state { return &filter{pred: e.Args[0], inner: newState(e.Args[1])} }

func (f *filter) update(env *values.Env, row int64) error {
	_, ok, err := truth(f.pred, env)
	if err != nil || !ok {
		return err
	}
	return f.inner.update(env, row)
}

func (f *filter) merge(other state, offset int64) error {
	return f.inner.merge(other.(*filter).inner, offset)
}

func (f *filter) result() values.T { return f.inner.result() }

type fraction struct {
	pred *expr.Expr
	n, k int64
}

func newFraction(e *expr.Expr) state { return &fraction{pred: e.Args[0]} }

func (f *fraction) update(env *values.Env, _ int64) error {
	_, ok, err := truth(f.pred, env)
	if err != nil {
		return err
	}
	f.n++
	if ok {
		f.k++
	}
	return nil
}

func (f *fraction) merge(other state, _ int64) error {
	o := other.(*fraction)
	f.n += o.n
	f.k += o.k
	return nil
}

func (f *fraction) result() values.T {
	if f.n == 0 {
		return values.Missing
	}
	return float64(f.k) / float64(f.n)
}

// quantifier implements any (want true) and all (want false): the
// result is want if any nonmissing predicate value equals want.
type quantifier struct {
	pred *expr.Expr
	want bool
	seen bool
}

func newAny(e *expr.Expr) state { return &quantifier{pred: e.Args[0], want: true} }

func newAll(e *expr.Expr) state { return &quantifier{pred: e.Args[0], want: false} }

func (q *quantifier) update(env *values.Env, _ int64) error {
	missing, ok, err := truth(q.pred, env)
	if err == nil && !missing && ok == q.want {
		q.seen = true
	}
	return err
}

func (q *quantifier) merge(other state, _ int64) error {
	q.seen = q.seen || other.(*quantifier).seen
	return nil
}

func (q *quantifier) result() values.T { return q.seen == q.want }

type sum struct {
	arg   *expr.Expr
	float bool
	i     int64
	f     float64
}

func newSum(e *expr.Expr) state { return &sum{arg: e.Args[0], float: e.Type.Kind == types.Float64Kind} }

func (s *sum) add(v values.T) {
	if s.float {
		s.f += values.ToFloat64(v)
	} else {
		s.i += values.ToInt64(v)
	}
}

func (s *sum) update(env *values.Env, _ int64) error {
	v, err := expr.Eval(s.arg, env)
	if err == nil && !values.IsMissing(v) {
		s.add(v)
	}
	return err
}

func (s *sum) merge(other state, _ int64) error {
	o := other.(*sum)
	s.i += o.i
	s.f += o.f
	return nil
}

func (s *sum) result() values.T {
	if s.float {
		return s.f
	}
	return s.i
}

type arraySum struct {
	arg   *expr.Expr
	float bool
	sums  []sum
	seen  bool
}

func newArraySum(e *expr.Expr) state {
	return &arraySum{arg: e.Args[0], float: e.Type.Elem.Kind == types.Float64Kind}
}

func (a *arraySum) init(n int) error {
	if !a.seen {
		a.seen = true
		a.sums = make([]sum, n)
		for i := range a.sums {
			a.sums[i].float = a.float
		}
		return nil
	}
	if n != len(a.sums) {
		return errors.E("array_sum", errors.Eval,
			fmt.Errorf("array length %d does not match previous length %d", n, len(a.sums)))
	}
	return nil
}

func (a *arraySum) update(env *values.Env, _ int64) error {
	v, err := expr.Eval(a.arg, env)
	if err != nil || values.IsMissing(v) {
		return err
	}
	array := v.(values.Array)
	if err := a.init(len(array)); err != nil {
		return err
	}
	for i, e := range array {
		if !values.IsMissing(e) {
			a.sums[i].add(e)
		}
	}
	return nil
}

func (a *arraySum) merge(other state, _ int64) error {
	o := other.(*arraySum)
	if !o.seen {
		return nil
	}
	if err := a.init(len(o.sums)); err != nil {
		return err
	}
	for i := range o.sums {
		a.sums[i].merge(&o.sums[i], 0)
	}
	return nil
}

func (a *arraySum) result() values.T {
	if !a.seen {
		return values.Missing
	}
	array := make(values.Array, len(a.sums))
	for i := range a.sums {
		array[i] = a.sums[i].result()
	}
	return array
}

// extremum implements min (sign 1) and max (sign -1).
type extremum struct {
	arg  *expr.Expr
	sign int
	best values.T
}

func newMin(e *expr.Expr) state { return &extremum{arg: e.Args[0], sign: 1, best: values.Missing} }

func newMax(e *expr.Expr) state { return &extremum{arg: e.Args[0], sign: -1, best: values.Missing} }

func (x *extremum) add(v values.T) {
	if values.IsMissing(v) {
		return
	}
	if values.IsMissing(x.best) || x.sign*values.Compare(v, x.best) < 0 {
		x.best = v
	}
}

func (x *extremum) update(env *values.Env, _ int64) error {
	v, err := expr.Eval(x.arg, env)
	if err == nil {
		x.add(v)
	}
	return err
}

func (x *extremum) merge(other state, _ int64) error {
	x.add(other.(*extremum).best)
	return nil
}

func (x *extremum) result() values.T { return x.best }

// moments accumulates the moments of a numeric argument, and
// implements mean and stats.
type moments struct {
	arg      *expr.Expr
	stats    bool
	n        int64
	sum, sq  float64
	min, max float64
}

func newMean(e *expr.Expr) state { return &moments{arg: e.Args[0]} }

func newStats(e *expr.Expr) state { return &moments{arg: e.Args[0], stats: true} }

func (m *moments) add(n int64, sum, sq, min, max float64) {
	if n == 0 {
		return
	}
	if m.n == 0 || min < m.min {
		m.min = min
	}
	if m.n == 0 || max > m.max {
		m.max = max
	}
	m.n += n
	m.sum += sum
	m.sq += sq
}

func (m *moments) update(env *values.Env, _ int64) error {
	v, err := expr.Eval(m.arg, env)
	if err != nil || values.IsMissing(v) {
		return err
	}
	f := values.ToFloat64(v)
	m.add(1, f, f*f, f, f)
	return nil
}

func (m *moments) merge(other state, _ int64) error {
	o := other.(*moments)
	m.add(o.n, o.sum, o.sq, o.min, o.max)
	return nil
}

func (m *moments) result() values.T {
	if !m.stats {
		if m.n == 0 {
			return values.Missing
		}
		return m.sum / float64(m.n)
	}
	if m.n == 0 {
		return values.Struct{
			"mean": values.Missing, "stdev": values.Missing,
			"min": values.Missing, "max": values.Missing,
			"n": int64(0), "sum": float64(0),
		}
	}
	mean := m.sum / float64(m.n)
	return values.Struct{
		"mean":  mean,
		"stdev": math.Sqrt(math.Max(0, m.sq/float64(m.n)-mean*mean)),
		"min":   m.min,
		"max":   m.max,
		"n":     m.n,
		"sum":   m.sum,
	}
}

// collect implements collect and take; limit is negative for
// collect.
type collect struct {
	arg   *expr.Expr
	limit int
	vs    values.Array
}

func newCollect(e *expr.Expr) state { return &collect{arg: e.Args[0], limit: -1, vs: values.Array{}} }

func newTake(e *expr.Expr) state {
	return &collect{arg: e.Args[0], limit: int(values.ToInt64(e.Args[1].Val)), vs: values.Array{}}
}

func (c *collect) full() bool { return c.limit >= 0 && len(c.vs) >= c.limit }

func (c *collect) update(env *values.Env, _ int64) error {
	if c.full() {
		return nil
	}
	v, err := expr.Eval(c.arg, env)
	if err == nil {
		c.vs = append(c.vs, v)
	}
	return err
}

func (c *collect) merge(other state, _ int64) error {
	for _, v := range other.(*collect).vs {
		if c.full() {
			break
		}
		c.vs = append(c.vs, v)
	}
	return nil
}

func (c *collect) result() values.T { return c.vs }

// collectAsSet collects distinct values. A bloom filter over value
// digests admits most new values without an exact set lookup.
type collectAsSet struct {
	arg    *expr.Expr
	filter *bloom.BloomFilter
	set    *values.Set
	buf    bytes.Buffer
}

func newCollectAsSet(e *expr.Expr) state {
	return &collectAsSet{
		arg:    e.Args[0],
		filter: bloom.NewWithEstimates(setFilterSize, 0.01),
		set:    values.NewSet(e.Args[0].Type),
	}
}

func (c *collectAsSet) add(v values.T) {
	c.buf.Reset()
	if _, err := digest.WriteDigest(&c.buf, values.Digest(v, c.arg.Type)); err != nil {
		panic(err)
	}
	key := c.buf.Bytes()
	if c.filter.Test(key) && c.set.Contains(v) {
		return
	}
	c.filter.Add(key)
	c.set.Add(v)
}

func (c *collectAsSet) update(env *values.Env, _ int64) error {
	v, err := expr.Eval(c.arg, env)
	if err == nil {
		c.add(v)
	}
	return err
}

func (c *collectAsSet) merge(other state, _ int64) error {
	for _, v := range other.(*collectAsSet).set.Elems() {
		c.add(v)
	}
	return nil
}

func (c *collectAsSet) result() values.T { return c.set }

type counter struct {
	arg *expr.Expr
	d   *values.Dict
}

func newCounter(e *expr.Expr) state {
	return &counter{arg: e.Args[0], d: values.NewDict(e.Args[0].Type)}
}

func (c *counter) add(k values.T, n int64) {
	if v, ok := c.d.Get(k); ok {
		n += v.(int64)
	}
	c.d.Put(k, n)
}

func (c *counter) update(env *values.Env, _ int64) error {
	v, err := expr.Eval(c.arg, env)
	if err == nil {
		c.add(v, 1)
	}
	return err
}

func (c *counter) merge(other state, _ int64) error {
	other.(*counter).d.Each(func(k, v values.T) { c.add(k, v.(int64)) })
	return nil
}

func (c *counter) result() values.T { return c.d }

type groupBy struct {
	key, elem *expr.Expr
	d         *values.Dict
}

func newGroupBy(e *expr.Expr) state {
	return &groupBy{key: e.Args[0], elem: e.Args[1], d: values.NewDict(e.Args[0].Type)}
}

func (g *groupBy) add(k values.T, vs ...values.T) {
	var group values.Array
	if v, ok := g.d.Get(k); ok {
		group = v.(values.Array)
	}
	g.d.Put(k, append(group, vs...))
}

func (g *groupBy) update(env *values.Env, _ int64) error {
	k, err := expr.Eval(g.key, env)
	if err != nil {
		return err
	}
	v, err := expr.Eval(g.elem, env)
	if err != nil {
		return err
	}
	g.add(k, v)
	return nil
}

func (g *groupBy) merge(other state, _ int64) error {
	other.(*groupBy).d.Each(func(k, v values.T) { g.add(k, v.(values.Array)...) })
	return nil
}

func (g *groupBy) result() values.T { return g.d }

// argExtremum implements argmin (sign 1) and argmax (sign -1).
type argExtremum struct {
	arg    *expr.Expr
	sign   int
	unique bool

	found bool
	best  values.T
	index int64
	tie   bool
}

func newArgMin(e *expr.Expr) state {
	return &argExtremum{arg: e.Args[0], sign: 1, unique: e.Args[1].Val.(bool)}
}

func newArgMax(e *expr.Expr) state {
	return &argExtremum{arg: e.Args[0], sign: -1, unique: e.Args[1].Val.(bool)}
}

func (a *argExtremum) add(v values.T, index int64, tie bool) {
	if !a.found {
		a.found, a.best, a.index, a.tie = true, v, index, tie
		return
	}
	switch c := a.sign * values.Compare(v, a.best); {
	case c < 0:
		a.best, a.index, a.tie = v, index, tie
	case c == 0:
		a.tie = true
	}
}

func (a *argExtremum) update(env *values.Env, row int64) error {
	v, err := expr.Eval(a.arg, env)
	if err == nil && !values.IsMissing(v) {
		a.add(v, row, false)
	}
	return err
}

func (a *argExtremum) merge(other state, offset int64) error {
	if o := other.(*argExtremum); o.found {
		a.add(o.best, o.index+offset, o.tie)
	}
	return nil
}

func (a *argExtremum) result() values.T {
	if !a.found || a.unique && a.tie {
		return values.Missing
	}
	return a.index
}
