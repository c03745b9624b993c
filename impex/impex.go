// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package impex implements the import and export contracts of
// hailexpr. Each import and export validates its arguments and the
// shape of the datasets involved before any request is sent to the
// engine, so that a rejected call performs no work. Imports further
// check that the dataset returned by the engine has the shape the
// import promises; a dataset that does not is a fatal error.
package impex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/hailexpr/dataset"
	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/log"
	"github.com/grailbio/hailexpr/types"
)

// Defaults for delimited text imports.
const (
	DefaultDelimiter = `\s+`
	DefaultMissing   = "NA"
)

// reject logs and returns an error of the given kind for operation
// op. Rejections happen before any request is sent.
func reject(sess *engine.Session, op string, kind errors.Kind, format string, args ...interface{}) error {
	err := errors.E(op, kind, fmt.Errorf(format, args...))
	sess.Log.Error(err)
	return err
}

// execute sends a request on behalf of an import or export.
func execute(ctx context.Context, sess *engine.Session, req *engine.Request) (*engine.Response, error) {
	if l := sess.Log.Op(req.Op); l.At(log.DebugLevel) {
		keys := make([]string, 0, len(req.Args))
		for k := range req.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		l.Debugf("delegating %s with args %s", req.Dataset, strings.Join(keys, ","))
	}
	return sess.Execute(ctx, req)
}

// referenceGenome resolves the named reference genome; the empty
// name denotes the session's default.
func referenceGenome(sess *engine.Session, op, name string) (*genetics.ReferenceGenome, error) {
	if name == "" {
		return sess.Config.ReferenceGenome, nil
	}
	rg, ok := genetics.Lookup(name)
	if !ok {
		return nil, reject(sess, op, errors.Value,
			"unknown reference genome %q, expected one of %s", name, strings.Join(genetics.Names(), ", "))
	}
	return rg, nil
}

// checkRecoding checks that every contig recoded to is a contig of
// reference genome rg.
func checkRecoding(sess *engine.Session, op string, rg *genetics.ReferenceGenome, recoding map[string]string) error {
	froms := make([]string, 0, len(recoding))
	for from := range recoding {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		if to := recoding[from]; !rg.HasContig(to) {
			return reject(sess, op, errors.Value,
				"contig_recoding: %q maps to %q, which is not a contig of %s", from, to, rg.Name)
		}
	}
	return nil
}

func checkPaths(sess *engine.Session, op string, paths []string) error {
	if len(paths) == 0 {
		return reject(sess, op, errors.Value, "no paths given")
	}
	for _, path := range paths {
		if path == "" {
			return reject(sess, op, errors.Value, "empty path")
		}
	}
	return nil
}

func minPartitions(sess *engine.Session, op string, n int, args engine.Args) error {
	if n < 0 {
		return reject(sess, op, errors.Value, "min_partitions must be nonnegative, got %d", n)
	}
	if n == 0 {
		n = sess.Config.MinPartitions
	}
	if n > 0 {
		args["min_partitions"] = n
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// A field is a field that a dataset axis must have. If typ is nil,
// only the field's kind is checked; fields of ErrorKind need only be
// present.
type field struct {
	name string
	typ  *types.T
	kind types.Kind
}

func f(name string, typ *types.T) field { return field{name: name, typ: typ, kind: typ.Kind} }

func (f field) String() string {
	if f.typ == nil && f.kind == types.ErrorKind {
		return fmt.Sprintf("'%s'", f.name)
	}
	if f.typ == nil {
		return fmt.Sprintf("'%s' of kind %v", f.name, f.kind)
	}
	return fmt.Sprintf("'%s' of type '%v'", f.name, f.typ)
}

func (f field) match(t *types.T) bool {
	switch {
	case f.typ != nil:
		return t.Equal(f.typ)
	case f.kind == types.ErrorKind:
		return true
	default:
		return t.Kind == f.kind
	}
}

// A shape is the set of fields and keys a dataset must have.
type shape struct {
	global, row, col, entry []field
	rowKey, colKey          []string
}

func checkFields(op, axis string, t *types.T, fields []field) error {
	for _, f := range fields {
		if t.FieldIndex(f.name) < 0 || !f.match(t.Field(f.name)) {
			return errors.E(op, errors.Fatal, fmt.Errorf("no %s field %v", axis, f))
		}
	}
	return nil
}

func checkKey(op, axis string, got, want []string) error {
	if want == nil {
		return nil
	}
	if len(got) != len(want) {
		return errors.E(op, errors.Fatal, fmt.Errorf("%s key is %v, expected %v", axis, got, want))
	}
	for i := range want {
		if got[i] != want[i] {
			return errors.E(op, errors.Fatal, fmt.Errorf("%s key is %v, expected %v", axis, got, want))
		}
	}
	return nil
}

func (s *shape) checkTable(op string, t *dataset.Table) error {
	if err := checkFields(op, "global", t.Global, s.global); err != nil {
		return err
	}
	if err := checkFields(op, "row", t.Row, s.row); err != nil {
		return err
	}
	return checkKey(op, "row", t.Key, s.rowKey)
}

func (s *shape) checkMatrix(op string, m *dataset.MatrixTable) error {
	if err := checkFields(op, "global", m.Global, s.global); err != nil {
		return err
	}
	if err := checkFields(op, "row", m.Row, s.row); err != nil {
		return err
	}
	if err := checkFields(op, "column", m.Col, s.col); err != nil {
		return err
	}
	if err := checkFields(op, "entry", m.Entry, s.entry); err != nil {
		return err
	}
	if err := checkKey(op, "row", m.RowKey, s.rowKey); err != nil {
		return err
	}
	return checkKey(op, "column", m.ColKey, s.colKey)
}

// load executes req and returns the dataset it produces.
func load(ctx context.Context, sess *engine.Session, req *engine.Request) (dataset.Dataset, error) {
	resp, err := execute(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if resp.Schema == nil || resp.Handle == "" {
		return nil, errors.E(req.Op, errors.Fatal, errors.New("engine returned no dataset"))
	}
	ds, err := dataset.FromSchema(resp.Handle, resp.Schema)
	if err != nil {
		return nil, errors.E(req.Op, errors.Fatal, err)
	}
	return ds, nil
}

func loadTable(ctx context.Context, sess *engine.Session, req *engine.Request, s *shape) (*dataset.Table, error) {
	ds, err := load(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	t, ok := ds.(*dataset.Table)
	if !ok {
		return nil, errors.E(req.Op, errors.Fatal, errors.New("engine returned a matrix table, expected a table"))
	}
	if s != nil {
		if err := s.checkTable(req.Op, t); err != nil {
			sess.Log.Error(err)
			return nil, err
		}
	}
	return t, nil
}

func loadMatrix(ctx context.Context, sess *engine.Session, req *engine.Request, s *shape) (*dataset.MatrixTable, error) {
	ds, err := load(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	m, ok := ds.(*dataset.MatrixTable)
	if !ok {
		return nil, errors.E(req.Op, errors.Fatal, errors.New("engine returned a table, expected a matrix table"))
	}
	if s != nil {
		if err := s.checkMatrix(req.Op, m); err != nil {
			sess.Log.Error(err)
			return nil, err
		}
	}
	return m, nil
}

// Common types of imported fields.
var (
	alleles = types.Array(types.Str)
	gpType  = types.Array(types.Float64)
	strSet  = types.Set(types.Str)
)

// present is a field of any type.
func present(name string) field { return field{name: name} }

// structField is a field of any struct type.
func structField(name string) field { return field{name: name, kind: types.StructKind} }

func variantFields(rg *genetics.ReferenceGenome) []field {
	return []field{f("locus", types.Locus(rg.Name)), f("alleles", alleles)}
}

var variantKey = []string{"locus", "alleles"}
