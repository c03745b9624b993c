// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package types contains data structures and algorithms for dealing
// with the types of genomic expressions. In particular, it defines
// type-trees, constructors for type trees, a canonical printer and
// parser, a pretty printer, numeric promotion, unification, and
// coercion.
//
// A type is one of:
//
//	int32                      32-bit signed integers
//	int64                      64-bit signed integers
//	float32                    32-bit IEEE floating point numbers
//	float64                    64-bit IEEE floating point numbers
//	str                        (utf-8 encoded) strings
//	bool                       booleans
//	call                       genotype calls
//	locus<rg>                  genomic positions on reference genome rg
//	interval<t>                intervals of points of type t
//	array<t>                   ordered sequences of elements of type t
//	set<t>                     sets of elements of type t
//	dict<k, v>                 dictionaries from keys k to values v
//	struct{n1: t1, ..., nn: tn}  named, ordered fields of types t1, ..., tn
//	tuple(t1, ..., tn)         positional fields of types t1, ..., tn
//
// Types are immutable and compared structurally: struct and tuple
// types are equal when they have the same field names (in the same
// order) with equal field types. Missingness is a property of
// values, not of types: every type's domain includes a missing value.
package types

import (
	"fmt"
	"strings"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
)

// Kind represents a type's kind.
type Kind int

const (
	// ErrorKind is an illegal type.
	ErrorKind Kind = iota

	// Kind 0 types.

	// Int32Kind is the type of 32-bit integers.
	Int32Kind
	// Int64Kind is the type of 64-bit integers.
	Int64Kind
	// Float32Kind is the type of 32-bit floats.
	Float32Kind
	// Float64Kind is the type of 64-bit floats.
	Float64Kind
	// StrKind is the type of UTF-8 encoded strings.
	StrKind
	// BoolKind is the type of booleans.
	BoolKind
	// CallKind is the type of genotype calls.
	CallKind

	kind0

	// Kind >0 types.

	// LocusKind is the type of loci; parameterized by reference genome.
	LocusKind
	// IntervalKind is the type of intervals over a point type.
	IntervalKind
	// ArrayKind is the type of arrays.
	ArrayKind
	// SetKind is the type of sets.
	SetKind
	// DictKind is the type of dictionaries.
	DictKind
	// StructKind is the type of structs (containing named fields).
	StructKind
	// TupleKind is the kind of n-tuples of values (containing positional fields).
	TupleKind

	typeMax
)

var kindStrings = [typeMax]string{
	ErrorKind:    "error",
	Int32Kind:    "int32",
	Int64Kind:    "int64",
	Float32Kind:  "float32",
	Float64Kind:  "float64",
	StrKind:      "str",
	BoolKind:     "bool",
	CallKind:     "call",
	LocusKind:    "locus",
	IntervalKind: "interval",
	ArrayKind:    "array",
	SetKind:      "set",
	DictKind:     "dict",
	StructKind:   "struct",
	TupleKind:    "tuple",
}

func (k Kind) String() string {
	if k < 0 || k >= typeMax {
		return "kind(" + fmt.Sprint(int(k)) + ")"
	}
	return kindStrings[k]
}

// A Field is a labelled type. It is used in structs and
// (with an empty name) in tuples.
type Field struct {
	Name string
	*T
}

func (f *Field) String() string {
	if f.Name == "" {
		return f.T.String()
	}
	return quoteName(f.Name) + ": " + f.T.String()
}

// Equal checks whether Field f is equivalent to Field e.
func (f *Field) Equal(e *Field) bool {
	return f.Name == e.Name && f.T.Equal(e.T)
}

// A T is a type. The zero T is a type error.
type T struct {
	// Kind is the kind of the type. See above.
	Kind Kind
	// Index is the type of the type's index; used in dicts.
	Index *T
	// Elem is the type of the type's elem; used in arrays, sets,
	// dicts (values), and intervals (points).
	Elem *T
	// Fields stores struct and tuple fields.
	Fields []*Field
	// Genome is the name of a locus type's reference genome.
	Genome string
	// Error holds the type's error.
	Error error
}

// Convenience vars for common types.
var (
	Int32   = &T{Kind: Int32Kind}
	Int64   = &T{Kind: Int64Kind}
	Float32 = &T{Kind: Float32Kind}
	Float64 = &T{Kind: Float64Kind}
	Str     = &T{Kind: StrKind}
	Bool    = &T{Kind: BoolKind}
	Call    = &T{Kind: CallKind}
)

// Make initializes type t and returns it, propagating errors
// of any child type.
func Make(t *T) *T {
	return t.Map(func(t *T) *T {
		if t.Index != nil && t.Index.Error != nil {
			return t.Index
		}
		if t.Elem != nil && t.Elem.Error != nil {
			return t.Elem
		}
		for _, f := range t.Fields {
			if f.T == nil {
				return Errorf("field %q has no type", f.Name)
			}
			if f.T.Error != nil {
				return f.T
			}
		}
		return t
	})
}

// Error constructs a new error type.
func Error(err error) *T {
	return &T{Kind: ErrorKind, Error: err}
}

// Errorf formats a new error type of kind errors.TypeCheck.
func Errorf(format string, args ...interface{}) *T {
	return Error(errors.E(errors.TypeCheck, fmt.Errorf(format, args...)))
}

// Locus returns a new locus type on the named reference genome.
func Locus(genome string) *T {
	if _, ok := genetics.Lookup(genome); !ok {
		return Error(errors.E("locus", genome, errors.Value,
			fmt.Errorf("unknown reference genome, expected one of %v", genetics.Names())))
	}
	return &T{Kind: LocusKind, Genome: genome}
}

// Interval returns a new interval type with the given point type.
func Interval(point *T) *T {
	return Make(&T{Kind: IntervalKind, Elem: point})
}

// Array returns a new array type with the given element type.
func Array(elem *T) *T {
	return Make(&T{Kind: ArrayKind, Elem: elem})
}

// Set returns a new set type with the given element type.
func Set(elem *T) *T {
	return Make(&T{Kind: SetKind, Elem: elem})
}

// Dict returns a new dict type with the given key and value types.
func Dict(key, value *T) *T {
	return Make(&T{Kind: DictKind, Index: key, Elem: value})
}

// Struct returns a new struct type with the given fields. Field
// names must be unique.
func Struct(fields ...*Field) *T {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			return Error(errors.E("struct", f.Name, errors.Schema, errors.New("duplicate field")))
		}
		seen[f.Name] = true
	}
	return Make(&T{Kind: StructKind, Fields: fields})
}

// Tuple returns a new tuple type with the given element types.
func Tuple(elems ...*T) *T {
	fields := make([]*Field, len(elems))
	for i, t := range elems {
		fields[i] = &Field{T: t}
	}
	return Make(&T{Kind: TupleKind, Fields: fields})
}

// F is a shorthand constructor for a named field.
func F(name string, t *T) *Field {
	return &Field{Name: name, T: t}
}

// Copy returns a shallow copy of type t.
func (t *T) Copy() *T {
	u := new(T)
	*u = *t
	if u.Fields != nil {
		u.Fields = make([]*Field, len(t.Fields))
		for i := range t.Fields {
			u.Fields[i] = new(Field)
			*u.Fields[i] = *t.Fields[i]
		}
	}
	return u
}

// Err returns the type's error, or nil if it is not an error type.
func (t *T) Err() error {
	if t == nil {
		return errors.E(errors.TypeCheck, errors.New("nil type"))
	}
	if t.Kind != ErrorKind {
		return nil
	}
	if t.Error == nil {
		return errors.E(errors.TypeCheck, errors.New("type error"))
	}
	return t.Error
}

// String renders the canonical, parseable version of Type t.
func (t *T) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *T) write(b *strings.Builder) {
	switch t.Kind {
	default:
		if t.Error != nil {
			b.WriteString("error: " + t.Error.Error())
			return
		}
		b.WriteString("error")
	case Int32Kind, Int64Kind, Float32Kind, Float64Kind, StrKind, BoolKind, CallKind:
		b.WriteString(t.Kind.String())
	case LocusKind:
		b.WriteString("locus<" + t.Genome + ">")
	case IntervalKind, ArrayKind, SetKind:
		b.WriteString(t.Kind.String())
		b.WriteString("<")
		t.Elem.write(b)
		b.WriteString(">")
	case DictKind:
		b.WriteString("dict<")
		t.Index.write(b)
		b.WriteString(", ")
		t.Elem.write(b)
		b.WriteString(">")
	case StructKind:
		b.WriteString("struct{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteName(f.Name))
			b.WriteString(": ")
			f.T.write(b)
		}
		b.WriteString("}")
	case TupleKind:
		b.WriteString("tuple(")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			f.T.write(b)
		}
		b.WriteString(")")
	}
}

// Field indexes the type's fields. Field returns an error type with
// kind errors.Schema if the field does not exist.
func (t *T) Field(n string) *T {
	if i := t.FieldIndex(n); i >= 0 {
		return t.Fields[i].T
	}
	return Error(errors.E("field", quoteName(n), errors.Schema,
		fmt.Errorf("not found in %v", t)))
}

// FieldIndex returns the position of the named field, or -1.
func (t *T) FieldIndex(n string) int {
	for i, f := range t.Fields {
		if f.Name == n {
			return i
		}
	}
	return -1
}

// FieldNames returns the names of the type's fields in order.
func (t *T) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// IsNumeric tells whether t is one of the numeric types.
func (t *T) IsNumeric() bool {
	switch t.Kind {
	case Int32Kind, Int64Kind, Float32Kind, Float64Kind:
		return true
	}
	return false
}

// IsIntegral tells whether t is int32 or int64.
func (t *T) IsIntegral() bool {
	return t.Kind == Int32Kind || t.Kind == Int64Kind
}

// IsPrimitive tells whether t is a type with no subtypes.
func (t *T) IsPrimitive() bool {
	return t.Kind > ErrorKind && t.Kind < kind0
}

// IsContainer tells whether t is an array or a set.
func (t *T) IsContainer() bool {
	return t.Kind == ArrayKind || t.Kind == SetKind
}

// ReferenceGenome returns a locus type's reference genome, or
// the reference genome of the points of a locus interval.
func (t *T) ReferenceGenome() *genetics.ReferenceGenome {
	switch t.Kind {
	case LocusKind:
		rg, _ := genetics.Lookup(t.Genome)
		return rg
	case IntervalKind:
		return t.Elem.ReferenceGenome()
	}
	return nil
}

// Equal tests whether type t is structurally equal to type u.
func (t *T) Equal(u *T) bool {
	if t == nil || u == nil {
		return false
	}
	if t == u {
		return t.Kind != ErrorKind
	}
	if t.Kind == ErrorKind || t.Kind != u.Kind {
		return false
	}
	if t.Genome != u.Genome {
		return false
	}
	if t.Index != nil && !t.Index.Equal(u.Index) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(u.Elem) {
		return false
	}
	if len(t.Fields) != len(u.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(u.Fields[i]) {
			return false
		}
	}
	return true
}

// Map applies fn structurally in a depth-first fashion. If fn
// performs modifications to type t, it should return a copy.
func (t *T) Map(fn func(*T) *T) *T {
	if t == nil {
		return t
	}
	u := t
	if index := t.Index.Map(fn); index != t.Index {
		set(&u, t).Index = index
	}
	if elem := t.Elem.Map(fn); elem != t.Elem {
		set(&u, t).Elem = elem
	}
	for i, f := range t.Fields {
		if ftyp := f.T.Map(fn); ftyp != f.T {
			set(&u, t).Fields[i].T = ftyp
		}
	}
	return fn(u)
}

func set(u **T, t *T) *T {
	if *u == t {
		*u = t.Copy()
	}
	return *u
}
