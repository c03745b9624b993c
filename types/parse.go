// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"strings"

	"github.com/grailbio/hailexpr/errors"
)

// Parse parses a type from its textual representation. Parse accepts
// the canonical forms produced by (*T).String and the multi-line forms
// produced by Pretty; tokens may be separated by arbitrary
// whitespace. The aliases int (for int32) and float (for float64)
// are also accepted. Parse returns an error of kind errors.Parse on
// malformed input.
func Parse(text string) (*T, error) {
	p := &parser{text: text}
	p.next()
	t := p.typ()
	if p.err == nil && p.tok != tokEOF {
		p.errorf("unexpected %s after type", p.describe())
	}
	if p.err != nil {
		return nil, errors.E("parse", text, errors.Parse, p.err)
	}
	if err := t.Err(); err != nil {
		return nil, errors.E("parse", text, errors.Parse, err)
	}
	return t, nil
}

// MustParse parses a type, panicking on error. It is intended for
// initializing package-level variables.
func MustParse(text string) *T {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

type token int

const (
	tokEOF token = iota
	tokIdent
	tokName
	tokPunct
)

type parser struct {
	text string
	pos  int

	tok    token
	lit    string
	tokPos int

	err error
}

func (p *parser) errorf(format string, args ...interface{}) {
	if p.err == nil {
		p.err = fmt.Errorf("offset %d: %s", p.tokPos, fmt.Sprintf(format, args...))
	}
}

func (p *parser) describe() string {
	switch p.tok {
	case tokEOF:
		return "end of input"
	case tokName:
		return "quoted name " + quoteName(p.lit)
	}
	return fmt.Sprintf("%q", p.lit)
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// next scans the next token.
func (p *parser) next() {
	if p.err != nil {
		p.tok = tokEOF
		return
	}
	for p.pos < len(p.text) && isSpace(p.text[p.pos]) {
		p.pos++
	}
	p.tokPos = p.pos
	if p.pos == len(p.text) {
		p.tok, p.lit = tokEOF, ""
		return
	}
	c := p.text[p.pos]
	switch {
	case isLetter(c):
		start := p.pos
		for p.pos < len(p.text) && (isLetter(p.text[p.pos]) || isDigit(p.text[p.pos])) {
			p.pos++
		}
		p.tok, p.lit = tokIdent, p.text[start:p.pos]
	case c == '`':
		p.pos++
		var b strings.Builder
		for {
			if p.pos == len(p.text) {
				p.errorf("unterminated quoted name")
				p.tok = tokEOF
				return
			}
			c := p.text[p.pos]
			p.pos++
			if c == '`' {
				break
			}
			if c != '\\' {
				b.WriteByte(c)
				continue
			}
			if p.pos == len(p.text) {
				p.errorf("unterminated escape in quoted name")
				p.tok = tokEOF
				return
			}
			switch e := p.text[p.pos]; e {
			case '\\', '`':
				b.WriteByte(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				p.errorf("invalid escape \\%c in quoted name", e)
				p.tok = tokEOF
				return
			}
			p.pos++
		}
		p.tok, p.lit = tokName, b.String()
	case strings.IndexByte("<>{}(),:", c) >= 0:
		p.pos++
		p.tok, p.lit = tokPunct, string(c)
	default:
		p.errorf("unexpected character %q", c)
		p.tok = tokEOF
	}
}

func (p *parser) expect(punct string) bool {
	if p.tok != tokPunct || p.lit != punct {
		p.errorf("expected %q, found %s", punct, p.describe())
		return false
	}
	p.next()
	return true
}

func (p *parser) accept(punct string) bool {
	if p.tok == tokPunct && p.lit == punct {
		p.next()
		return true
	}
	return false
}

func (p *parser) typ() *T {
	if p.err != nil {
		return typeError
	}
	if p.tok != tokIdent {
		p.errorf("expected type, found %s", p.describe())
		return typeError
	}
	name := p.lit
	p.next()
	switch name {
	case "int32", "int":
		return Int32
	case "int64":
		return Int64
	case "float32":
		return Float32
	case "float64", "float":
		return Float64
	case "str":
		return Str
	case "bool":
		return Bool
	case "call":
		return Call
	case "locus":
		if !p.expect("<") {
			return typeError
		}
		if p.tok != tokIdent {
			p.errorf("expected reference genome, found %s", p.describe())
			return typeError
		}
		genome := p.lit
		p.next()
		if !p.expect(">") {
			return typeError
		}
		return Locus(genome)
	case "interval", "array", "set":
		if !p.expect("<") {
			return typeError
		}
		elem := p.typ()
		if !p.expect(">") {
			return typeError
		}
		switch name {
		case "interval":
			return Interval(elem)
		case "array":
			return Array(elem)
		default:
			return Set(elem)
		}
	case "dict":
		if !p.expect("<") {
			return typeError
		}
		key := p.typ()
		if !p.expect(",") {
			return typeError
		}
		value := p.typ()
		if !p.expect(">") {
			return typeError
		}
		return Dict(key, value)
	case "struct":
		if !p.expect("{") {
			return typeError
		}
		var fields []*Field
		if p.accept("}") {
			return Struct()
		}
		for p.err == nil {
			var fname string
			switch p.tok {
			case tokIdent, tokName:
				fname = p.lit
				p.next()
			default:
				p.errorf("expected field name, found %s", p.describe())
				return typeError
			}
			if !p.expect(":") {
				return typeError
			}
			fields = append(fields, &Field{Name: fname, T: p.typ()})
			if p.accept("}") {
				return Struct(fields...)
			}
			if !p.expect(",") {
				return typeError
			}
		}
		return typeError
	case "tuple":
		if !p.expect("(") {
			return typeError
		}
		var elems []*T
		if p.accept(")") {
			return Tuple()
		}
		for p.err == nil {
			elems = append(elems, p.typ())
			if p.accept(")") {
				return Tuple(elems...)
			}
			if !p.expect(",") {
				return typeError
			}
		}
		return typeError
	}
	p.errorf("unknown type %q", name)
	return typeError
}

var typeError = &T{Kind: ErrorKind}

// IsIdentifier tells whether name may be printed without quoting.
func IsIdentifier(name string) bool {
	if name == "" || !isLetter(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isLetter(name[i]) && !isDigit(name[i]) {
			return false
		}
	}
	return true
}

// quoteName returns the parseable form of a field name: identifiers
// are printed as-is; all other names are enclosed in backticks, with
// backslashes, backticks, and line control characters escaped.
func quoteName(name string) string {
	if IsIdentifier(name) {
		return name
	}
	var b strings.Builder
	b.WriteByte('`')
	for i := 0; i < len(name); i++ {
		switch c := name[i]; c {
		case '\\', '`':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('`')
	return b.String()
}
