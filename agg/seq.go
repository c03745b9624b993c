// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package agg

import (
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/values"
)

// A Seq is a lazy, finite sequence of values. Sequences are not
// restartable: once Scan returns false, the sequence is consumed,
// and further calls to Scan fail.
//
//	for seq.Scan() {
//		v := seq.Value()
//		...
//	}
//	if err := seq.Err(); err != nil {
//		...
//	}
type Seq interface {
	// Scan advances the sequence to its next value, returning false
	// when the sequence is exhausted or has failed.
	Scan() bool
	// Value returns the current value. It is nil unless the last
	// call to Scan returned true.
	Value() values.T
	// Err returns the error, if any, that terminated the sequence.
	Err() error
}

var errConsumed = errors.E("scan", errors.NotSupported, errors.New("sequence already consumed"))

type sliceSeq struct {
	vs   []values.T
	i    int
	done bool
	err  error
}

// Slice returns a sequence of the values vs.
func Slice(vs []values.T) Seq {
	return &sliceSeq{vs: vs, i: -1}
}

func (s *sliceSeq) Scan() bool {
	if s.done {
		s.err = errConsumed
		return false
	}
	s.i++
	if s.i >= len(s.vs) {
		s.done = true
		return false
	}
	return true
}

func (s *sliceSeq) Value() values.T {
	if s.i < 0 || s.i >= len(s.vs) {
		return nil
	}
	return s.vs[s.i]
}

func (s *sliceSeq) Err() error { return s.err }

type zipSeq struct {
	fill  bool
	seqs  []Seq
	value values.Tuple
	done  bool
	err   error
}

// ZipSeqs returns a sequence of tuples pairing the values of seqs.
// Without fill, the sequence ends with the shortest of seqs; with
// fill, it ends with the longest, and exhausted sequences
// contribute missing values.
func ZipSeqs(fill bool, seqs ...Seq) Seq {
	return &zipSeq{fill: fill, seqs: append([]Seq(nil), seqs...)}
}

func (z *zipSeq) Scan() bool {
	if z.done {
		if z.err == nil {
			z.err = errConsumed
		}
		return false
	}
	tuple := make(values.Tuple, len(z.seqs))
	var live int
	for i, s := range z.seqs {
		if s == nil || !s.Scan() {
			if s != nil && s.Err() != nil && s.Err() != errConsumed {
				z.err = s.Err()
				z.done = true
				return false
			}
			tuple[i] = values.Missing
			z.seqs[i] = nil
			continue
		}
		tuple[i] = s.Value()
		live++
	}
	if live == 0 || !z.fill && live < len(z.seqs) {
		z.done = true
		return false
	}
	z.value = tuple
	return true
}

func (z *zipSeq) Value() values.T {
	if z.done {
		return nil
	}
	return z.value
}

func (z *zipSeq) Err() error { return z.err }
