// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/types"
)

// MarshalJSON encodes value v of type t in the engine's wire
// format:
//
//	missing                  null
//	int32, int64             numbers
//	float32, float64         numbers; "NaN", "Infinity", and "-Infinity"
//	                         for non-finite values
//	str, bool                strings, booleans
//	call                     strings, e.g., "0/1"
//	locus                    {"contig": "1", "position": 100}
//	interval                 {"start": .., "end": .., "includes_start": ..,
//	                         "includes_end": ..}
//	array, set, tuple        arrays
//	dict                     [{"key": .., "value": ..}, ...]
//	struct                   objects, with keys in field order
func MarshalJSON(v T, t *types.T) ([]byte, error) {
	var b bytes.Buffer
	if err := encode(&b, v, t); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func writeJSON(b *bytes.Buffer, v interface{}) error {
	p, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Write(p)
	return nil
}

func encodeFloat(b *bytes.Buffer, f float64, bits int) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		b.WriteString(strconv.Quote(formatFloat(f, bits)))
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	}
}

func encode(b *bytes.Buffer, v T, t *types.T) error {
	if IsMissing(v) {
		b.WriteString("null")
		return nil
	}
	switch t.Kind {
	case types.Int32Kind:
		b.WriteString(strconv.FormatInt(int64(v.(int32)), 10))
	case types.Int64Kind:
		b.WriteString(strconv.FormatInt(v.(int64), 10))
	case types.Float32Kind:
		encodeFloat(b, float64(v.(float32)), 32)
	case types.Float64Kind:
		encodeFloat(b, v.(float64), 64)
	case types.StrKind, types.BoolKind:
		return writeJSON(b, v)
	case types.CallKind:
		return writeJSON(b, v.(genetics.Call).String())
	case types.LocusKind:
		l := v.(genetics.Locus)
		b.WriteString(`{"contig":`)
		if err := writeJSON(b, l.Contig); err != nil {
			return err
		}
		fmt.Fprintf(b, `,"position":%d}`, l.Position)
	case types.IntervalKind:
		iv := v.(Interval)
		b.WriteString(`{"start":`)
		if err := encode(b, iv.Start, t.Elem); err != nil {
			return err
		}
		b.WriteString(`,"end":`)
		if err := encode(b, iv.End, t.Elem); err != nil {
			return err
		}
		fmt.Fprintf(b, `,"includes_start":%t,"includes_end":%t}`, iv.IncludesStart, iv.IncludesEnd)
	case types.ArrayKind:
		return encodeSlice(b, v.(Array), func(int) *types.T { return t.Elem })
	case types.SetKind:
		return encodeSlice(b, v.(*Set).Elems(), func(int) *types.T { return t.Elem })
	case types.TupleKind:
		return encodeSlice(b, v.(Tuple), func(i int) *types.T { return t.Fields[i].T })
	case types.DictKind:
		b.WriteString("[")
		var (
			err   error
			first = true
		)
		v.(*Dict).Each(func(k, v T) {
			if err != nil {
				return
			}
			if !first {
				b.WriteString(",")
			}
			first = false
			b.WriteString(`{"key":`)
			if err = encode(b, k, t.Index); err != nil {
				return
			}
			b.WriteString(`,"value":`)
			if err = encode(b, v, t.Elem); err != nil {
				return
			}
			b.WriteString("}")
		})
		if err != nil {
			return err
		}
		b.WriteString("]")
	case types.StructKind:
		s := v.(Struct)
		b.WriteString("{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(",")
			}
			if err := writeJSON(b, f.Name); err != nil {
				return err
			}
			b.WriteString(":")
			if err := encode(b, s[f.Name], f.T); err != nil {
				return err
			}
		}
		b.WriteString("}")
	default:
		return errors.E("marshal", t.String(), errors.NotSupported)
	}
	return nil
}

func encodeSlice(b *bytes.Buffer, vs []T, typ func(int) *types.T) error {
	b.WriteString("[")
	for i, v := range vs {
		if i > 0 {
			b.WriteString(",")
		}
		if err := encode(b, v, typ(i)); err != nil {
			return err
		}
	}
	b.WriteString("]")
	return nil
}

// UnmarshalJSON decodes a value of type t from its wire format (see
// MarshalJSON). Values that do not conform to t are errors of kind
// errors.TypeCheck.
func UnmarshalJSON(p []byte, t *types.T) (T, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()
	var x interface{}
	if err := dec.Decode(&x); err != nil {
		return nil, errors.E("unmarshal", t.String(), errors.Parse, err)
	}
	return decode(x, t)
}

func mismatch(x interface{}, t *types.T) error {
	return errors.E("unmarshal", t.String(), errors.TypeCheck,
		fmt.Errorf("unexpected JSON value %v (%T)", x, x))
}

func decodeFloat(x interface{}, t *types.T, bits int) (float64, error) {
	switch x := x.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(x), bits)
		if err != nil {
			return 0, errors.E("unmarshal", t.String(), errors.TypeCheck, err)
		}
		return f, nil
	case string:
		switch x {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
	}
	return 0, mismatch(x, t)
}

func decode(x interface{}, t *types.T) (T, error) {
	if x == nil {
		return Missing, nil
	}
	switch t.Kind {
	case types.Int32Kind, types.Int64Kind:
		n, ok := x.(json.Number)
		if !ok {
			return nil, mismatch(x, t)
		}
		bits := 64
		if t.Kind == types.Int32Kind {
			bits = 32
		}
		i, err := strconv.ParseInt(string(n), 10, bits)
		if err != nil {
			return nil, errors.E("unmarshal", t.String(), errors.TypeCheck, err)
		}
		if bits == 32 {
			return int32(i), nil
		}
		return i, nil
	case types.Float32Kind:
		f, err := decodeFloat(x, t, 32)
		return float32(f), err
	case types.Float64Kind:
		return decodeFloat(x, t, 64)
	case types.StrKind:
		s, ok := x.(string)
		if !ok {
			return nil, mismatch(x, t)
		}
		return s, nil
	case types.BoolKind:
		b, ok := x.(bool)
		if !ok {
			return nil, mismatch(x, t)
		}
		return b, nil
	case types.CallKind:
		s, ok := x.(string)
		if !ok {
			return nil, mismatch(x, t)
		}
		return genetics.ParseCall(s)
	case types.LocusKind:
		m, ok := x.(map[string]interface{})
		if !ok {
			return nil, mismatch(x, t)
		}
		contig, ok := m["contig"].(string)
		if !ok {
			return nil, mismatch(x, t)
		}
		pos, err := decode(m["position"], types.Int32)
		if err != nil || IsMissing(pos) {
			return nil, mismatch(x, t)
		}
		return genetics.Locus{Contig: contig, Position: pos.(int32)}, nil
	case types.IntervalKind:
		m, ok := x.(map[string]interface{})
		if !ok {
			return nil, mismatch(x, t)
		}
		var (
			iv  Interval
			err error
		)
		if iv.Start, err = decode(m["start"], t.Elem); err != nil {
			return nil, err
		}
		if iv.End, err = decode(m["end"], t.Elem); err != nil {
			return nil, err
		}
		iv.IncludesStart, _ = m["includes_start"].(bool)
		iv.IncludesEnd, _ = m["includes_end"].(bool)
		return iv, nil
	case types.ArrayKind, types.SetKind, types.TupleKind:
		xs, ok := x.([]interface{})
		if !ok {
			return nil, mismatch(x, t)
		}
		if t.Kind == types.TupleKind && len(xs) != len(t.Fields) {
			return nil, mismatch(x, t)
		}
		vs := make([]T, len(xs))
		for i := range xs {
			et := t.Elem
			if t.Kind == types.TupleKind {
				et = t.Fields[i].T
			}
			var err error
			if vs[i], err = decode(xs[i], et); err != nil {
				return nil, err
			}
		}
		switch t.Kind {
		case types.ArrayKind:
			return Array(vs), nil
		case types.SetKind:
			return NewSet(t.Elem, vs...), nil
		default:
			return Tuple(vs), nil
		}
	case types.DictKind:
		xs, ok := x.([]interface{})
		if !ok {
			return nil, mismatch(x, t)
		}
		d := NewDict(t.Index)
		for _, x := range xs {
			m, ok := x.(map[string]interface{})
			if !ok {
				return nil, mismatch(x, t)
			}
			k, err := decode(m["key"], t.Index)
			if err != nil {
				return nil, err
			}
			v, err := decode(m["value"], t.Elem)
			if err != nil {
				return nil, err
			}
			d.Put(k, v)
		}
		return d, nil
	case types.StructKind:
		m, ok := x.(map[string]interface{})
		if !ok {
			return nil, mismatch(x, t)
		}
		s := make(Struct, len(t.Fields))
		for _, f := range t.Fields {
			v, err := decode(m[f.Name], f.T)
			if err != nil {
				return nil, err
			}
			s[f.Name] = v
		}
		return s, nil
	}
	return nil, errors.E("unmarshal", t.String(), errors.NotSupported)
}
