// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import "strings"

// Pretty renders type t across multiple lines, starting at column
// indent and indenting each nested struct by width spaces. Non-empty
// structs are rendered one field per line:
//
//	struct {
//	    a: int32,
//	    b: array<struct {
//	        c: str
//	    }>
//	}
//
// The rendering is parseable by Parse.
func Pretty(t *T, indent, width int) string {
	if indent < 0 {
		indent = 0
	}
	if width < 0 {
		width = 0
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indent))
	t.pretty(&b, indent, width)
	return b.String()
}

func (t *T) pretty(b *strings.Builder, indent, width int) {
	switch t.Kind {
	default:
		t.write(b)
	case IntervalKind, ArrayKind, SetKind:
		b.WriteString(t.Kind.String())
		b.WriteString("<")
		t.Elem.pretty(b, indent, width)
		b.WriteString(">")
	case DictKind:
		b.WriteString("dict<")
		t.Index.pretty(b, indent, width)
		b.WriteString(", ")
		t.Elem.pretty(b, indent, width)
		b.WriteString(">")
	case TupleKind:
		b.WriteString("tuple(")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			f.T.pretty(b, indent, width)
		}
		b.WriteString(")")
	case StructKind:
		if len(t.Fields) == 0 {
			b.WriteString("struct {}")
			return
		}
		inner := indent + width
		b.WriteString("struct {")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("\n")
			b.WriteString(strings.Repeat(" ", inner))
			b.WriteString(quoteName(f.Name))
			b.WriteString(": ")
			f.T.pretty(b, inner, width)
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteString("}")
	}
}
