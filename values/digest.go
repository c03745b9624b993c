// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"crypto" // The SHA-256 implementation is required for this package's
	// Digester.
	_ "crypto/sha256"
	"encoding/binary"
	"io"
	"math"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
)

// Digester is the digester used to compute value digests.
var Digester = digest.Digester(crypto.SHA256)

// Digest computes the digest for value v, given type t. Values that
// are Equal have equal digests.
func Digest(v T, t *types.T) digest.Digest {
	w := Digester.NewWriter()
	WriteDigest(w, v, t)
	return w.Digest()
}

var (
	falseByte   = []byte{0}
	trueByte    = []byte{1}
	missingByte = []byte{0xff}
)

func writeLength(w io.Writer, n int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	w.Write(b[:])
}

func writeUint64(w io.Writer, u uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	w.Write(b[:])
}

// canonicalFloat maps all NaNs to one NaN and -0 to 0.
func canonicalFloat(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return math.NaN()
	case f == 0:
		return 0
	}
	return f
}

// WriteDigest writes digest material for value v (given type t)
// into the writer w.
func WriteDigest(w io.Writer, v T, t *types.T) {
	if IsMissing(v) {
		w.Write(missingByte)
		return
	}
	w.Write([]byte{byte(t.Kind)})
	switch t.Kind {
	case types.ErrorKind:
		panic("illegal type")
	case types.Int32Kind:
		writeUint64(w, uint64(v.(int32)))
	case types.Int64Kind:
		writeUint64(w, uint64(v.(int64)))
	case types.Float32Kind:
		writeUint64(w, math.Float64bits(canonicalFloat(float64(v.(float32)))))
	case types.Float64Kind:
		writeUint64(w, math.Float64bits(canonicalFloat(v.(float64))))
	case types.StrKind:
		writeLength(w, len(v.(string)))
		io.WriteString(w, v.(string))
	case types.BoolKind:
		if v.(bool) {
			w.Write(trueByte)
		} else {
			w.Write(falseByte)
		}
	case types.CallKind:
		c := v.(genetics.Call)
		writeLength(w, len(c.Alleles))
		for _, a := range c.Alleles {
			writeUint64(w, uint64(a))
		}
		if c.Phased {
			w.Write(trueByte)
		} else {
			w.Write(falseByte)
		}
	case types.LocusKind:
		l := v.(genetics.Locus)
		writeLength(w, len(l.Contig))
		io.WriteString(w, l.Contig)
		writeUint64(w, uint64(l.Position))
	case types.IntervalKind:
		iv := v.(Interval)
		WriteDigest(w, iv.Start, t.Elem)
		WriteDigest(w, iv.End, t.Elem)
		var flags byte
		if iv.IncludesStart {
			flags |= 1
		}
		if iv.IncludesEnd {
			flags |= 2
		}
		w.Write([]byte{flags})
	case types.ArrayKind:
		writeLength(w, len(v.(Array)))
		for _, e := range v.(Array) {
			WriteDigest(w, e, t.Elem)
		}
	case types.SetKind:
		elems := v.(*Set).Elems()
		writeLength(w, len(elems))
		for _, e := range elems {
			WriteDigest(w, e, t.Elem)
		}
	case types.DictKind:
		d := v.(*Dict)
		writeLength(w, d.Len())
		d.Each(func(k, v T) {
			WriteDigest(w, k, t.Index)
			WriteDigest(w, v, t.Elem)
		})
	case types.TupleKind:
		writeLength(w, len(t.Fields))
		tuple := v.(Tuple)
		for i, f := range t.Fields {
			WriteDigest(w, tuple[i], f.T)
		}
	case types.StructKind:
		writeLength(w, len(t.Fields))
		s := v.(Struct)
		for _, f := range t.Fields {
			writeLength(w, len(f.Name))
			io.WriteString(w, f.Name)
			WriteDigest(w, s[f.Name], f.T)
		}
	}
}
