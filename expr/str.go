// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// Lower returns string e in lower case.
func (e *Expr) Lower() *Expr { return apply("lower", e) }

// Upper returns string e in upper case.
func (e *Expr) Upper() *Expr { return apply("upper", e) }

// Strip returns string e without leading and trailing whitespace.
func (e *Expr) Strip() *Expr { return apply("strip", e) }

// Length returns the number of characters in string e.
func (e *Expr) Length() *Expr { return apply("length", e) }

// Matches tells whether string e contains a match of the regular
// expression regex. The pattern is not anchored.
func (e *Expr) Matches(regex *Expr) *Expr { return apply("matches", e, regex) }

// Concat returns the concatenation of strings e and f.
func (e *Expr) Concat(f *Expr) *Expr { return apply("concat", e, f) }

// StartsWith tells whether string e begins with prefix.
func (e *Expr) StartsWith(prefix *Expr) *Expr { return apply("startswith", e, prefix) }

// EndsWith tells whether string e ends with suffix.
func (e *Expr) EndsWith(suffix *Expr) *Expr { return apply("endswith", e, suffix) }

// Replace replaces matches of the regular expression pattern in
// string e with replacement, which may refer to submatches as in
// regexp.Regexp.Expand.
func (e *Expr) Replace(pattern, replacement *Expr) *Expr {
	return apply("replace", e, pattern, replacement)
}

// Split splits string e around matches of the regular expression
// delim.
func (e *Expr) Split(delim *Expr) *Expr { return apply("split", e, delim) }

var regexps sync.Map // string -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexps.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.E(errors.Eval, err)
	}
	regexps.Store(pattern, re)
	return re, nil
}

func strFunc(fn func(string) string) *builtin {
	return &builtin{
		Typecheck: fixed(types.Str, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return fn(args[0].(string)), nil
		},
	}
}

func strPred(fn func(s, t string) bool) *builtin {
	return &builtin{
		Typecheck: fixed(types.Bool, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return fn(args[0].(string), args[1].(string)), nil
		},
	}
}

func init() {
	register("lower", strFunc(strings.ToLower))
	register("upper", strFunc(strings.ToUpper))
	register("strip", strFunc(strings.TrimSpace))
	register("length", &builtin{
		Typecheck: fixed(types.Int32, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return int32(utf8.RuneCountInString(args[0].(string))), nil
		},
	})
	register("startswith", strPred(strings.HasPrefix))
	register("endswith", strPred(strings.HasSuffix))
	register("concat", &builtin{
		Typecheck: fixed(types.Str, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			return args[0].(string) + args[1].(string), nil
		},
	})
	register("matches", &builtin{
		Typecheck: fixed(types.Bool, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			re, err := compile(args[1].(string))
			if err != nil {
				return nil, err
			}
			return re.MatchString(args[0].(string)), nil
		},
	})
	register("replace", &builtin{
		Typecheck: fixed(types.Str, types.StrKind, types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			re, err := compile(args[1].(string))
			if err != nil {
				return nil, err
			}
			return re.ReplaceAllString(args[0].(string), args[2].(string)), nil
		},
	})
	register("split", &builtin{
		Typecheck: fixed(types.Array(types.Str), types.StrKind, types.StrKind),
		Eval: func(e *Expr, args []values.T) (values.T, error) {
			re, err := compile(args[1].(string))
			if err != nil {
				return nil, err
			}
			parts := re.Split(args[0].(string), -1)
			out := make(values.Array, len(parts))
			for i := range parts {
				out[i] = parts[i]
			}
			return out, nil
		},
	})
}
