// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package impex

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/grailbio/hailexpr/dataset"
	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/types"
)

// checkVariantKey checks that matrix table m is keyed by locus and
// alleles.
func checkVariantKey(sess *engine.Session, op string, m *dataset.MatrixTable) error {
	if len(m.RowKey) != 2 || m.RowKey[0] != "locus" || m.RowKey[1] != "alleles" {
		return reject(sess, op, errors.Fatal, "row key must be [locus alleles], found %v", m.RowKey)
	}
	if m.Row.FieldIndex("locus") < 0 || m.Row.FieldIndex("alleles") < 0 {
		return reject(sess, op, errors.Fatal, "row fields %v do not include 'locus' and 'alleles'", m.Row.FieldNames())
	}
	if t := m.Row.Field("locus"); t.Kind != types.LocusKind {
		return reject(sess, op, errors.Fatal, "row field 'locus' has type '%v', expected a locus", t)
	}
	if t := m.Row.Field("alleles"); !t.Equal(alleles) {
		return reject(sess, op, errors.Fatal, "row field 'alleles' has type '%v', expected '%v'", t, alleles)
	}
	return nil
}

func checkOutput(sess *engine.Session, op, output string) error {
	if output == "" {
		return reject(sess, op, errors.Value, "no output path given")
	}
	return nil
}

// Values of VCFExportOptions.Parallel.
const (
	SeparateHeader = "separate_header"
	HeaderPerShard = "header_per_shard"
)

// VCFExportOptions are the options to ExportVCF.
type VCFExportOptions struct {
	// AppendToHeader, if set, is a file whose lines are appended to
	// the VCF header.
	AppendToHeader string
	// Parallel, if set, writes a sharded VCF: SeparateHeader writes
	// the header to its own file; HeaderPerShard writes it to every
	// shard.
	Parallel string
	// Metadata is header metadata, as returned by GetVCFMetadata.
	Metadata VCFMetadata
}

// isVCFElem tells whether a value of type t may be written as a VCF
// field element.
func isVCFElem(t *types.T) bool {
	return t.IsPrimitive()
}

func isVCFType(t *types.T) bool {
	if t.IsContainer() {
		return isVCFElem(t.Elem)
	}
	return isVCFElem(t)
}

// ExportVCF writes matrix table m as a VCF file.
func ExportVCF(ctx context.Context, sess *engine.Session, m *dataset.MatrixTable, output string, opts VCFExportOptions) error {
	const op = engine.OpExportVCF
	if err := checkOutput(sess, op, output); err != nil {
		return err
	}
	switch opts.Parallel {
	case "", SeparateHeader, HeaderPerShard:
	default:
		return reject(sess, op, errors.Value,
			"parallel must be one of %q, %q, found %q", SeparateHeader, HeaderPerShard, opts.Parallel)
	}
	if err := checkVariantKey(sess, op, m); err != nil {
		return err
	}
	if t := m.Row.Field("info"); m.Row.FieldIndex("info") >= 0 && t.Kind != types.StructKind {
		return reject(sess, op, errors.Fatal, "row field 'info' has type '%v', expected a struct", t)
	}
	if t := m.Row.Field("qual"); m.Row.FieldIndex("qual") >= 0 && !t.Equal(types.Float64) {
		return reject(sess, op, errors.Fatal, "row field 'qual' has type '%v', expected 'float64'", t)
	}
	for _, f := range m.Entry.Fields {
		if !isVCFType(f.T) {
			return reject(sess, op, errors.Fatal, "entry field '%s' has type '%v', which cannot be written to VCF", f.Name, f.T)
		}
	}
	args := engine.Args{"output": output}
	if opts.AppendToHeader != "" {
		args["append_to_header"] = opts.AppendToHeader
	}
	if opts.Parallel != "" {
		args["parallel"] = opts.Parallel
	}
	if opts.Metadata != nil {
		args["metadata"] = opts.Metadata
	}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Dataset: m.Handle, Args: args})
	return err
}

var famArgTypes = map[string]*types.T{
	"fam_id":      types.Str,
	"id":          types.Str,
	"mat_id":      types.Str,
	"pat_id":      types.Str,
	"is_female":   types.Bool,
	"is_case":     types.Bool,
	"quant_pheno": types.Float64,
}

const famArgNames = "fam_id, id, mat_id, pat_id, is_female, is_case, quant_pheno"

// ExportPlink writes matrix table m as a PLINK BED, BIM, and FAM file
// triple with the provided output prefix. The FAM file's fields are
// given by famArgs, column-indexed expressions keyed by FAM field
// name.
func ExportPlink(ctx context.Context, sess *engine.Session, m *dataset.MatrixTable, output string, famArgs map[string]*expr.Expr) error {
	const op = engine.OpExportPlink
	if err := checkOutput(sess, op, output); err != nil {
		return err
	}
	if famArgs["is_case"] != nil && famArgs["quant_pheno"] != nil {
		return reject(sess, op, errors.Value,
			"at most one of 'is_case' and 'quant_pheno' may be given as fam_args; found both")
	}
	names := make([]string, 0, len(famArgs))
	for name := range famArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	asts := make(map[string]json.RawMessage, len(famArgs))
	for _, name := range names {
		e := famArgs[name]
		want := famArgTypes[name]
		if want == nil {
			return reject(sess, op, errors.Value, "fam_arg '%s' not recognized; valid names: %s", name, famArgNames)
		}
		if e == nil {
			return reject(sess, op, errors.Value, "fam_arg '%s' has no expression", name)
		}
		if err := e.Err(); err != nil {
			err = errors.E(op, "fam_args", name, err)
			sess.Log.Error(err)
			return err
		}
		if !e.Type.Equal(want) {
			return reject(sess, op, errors.TypeCheck,
				"fam_arg '%s' has type '%v', expected '%v'", name, e.Type, want)
		}
		if a := expr.Axes(e); a&expr.AxisRow != 0 {
			return reject(sess, op, errors.Schema, "fam_arg '%s' is indexed by %v, expected a column expression", name, a)
		}
		if len(expr.Aggregators(e)) > 0 {
			return reject(sess, op, errors.TypeCheck, "fam_arg '%s' may not aggregate", name)
		}
		ast, err := e.MarshalJSON()
		if err != nil {
			return errors.E(op, "fam_args", name, err)
		}
		asts[name] = ast
	}
	if err := checkVariantKey(sess, op, m); err != nil {
		return err
	}
	args := engine.Args{"output": output, "fam_args": asts}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Dataset: m.Handle, Args: args})
	return err
}

// ExportGen writes matrix table m, which must have an entry field GP
// of genotype probabilities, as a GEN and sample file pair with the
// provided output prefix. Probabilities are written with precision
// digits.
func ExportGen(ctx context.Context, sess *engine.Session, m *dataset.MatrixTable, output string, precision int) error {
	const op = engine.OpExportGen
	if err := checkOutput(sess, op, output); err != nil {
		return err
	}
	if precision < 0 {
		return reject(sess, op, errors.Value, "precision must be nonnegative, got %d", precision)
	}
	s := &shape{entry: []field{f("GP", gpType)}}
	if err := s.checkMatrix(op, m); err != nil {
		sess.Log.Error(err)
		return err
	}
	if err := checkVariantKey(sess, op, m); err != nil {
		return err
	}
	args := engine.Args{"output": output, "precision": precision}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Dataset: m.Handle, Args: args})
	return err
}

func checkPositive(sess *engine.Session, op, name string, n int) error {
	if n <= 0 {
		return reject(sess, op, errors.Value, "%s must be positive, got %d", name, n)
	}
	return nil
}

func checkNonEmpty(sess *engine.Session, op string, args ...string) error {
	for i := 0; i < len(args); i += 2 {
		if args[i+1] == "" {
			return reject(sess, op, errors.Value, "%s must be set", args[i])
		}
	}
	return nil
}

// ExportCassandra writes table t to the named Cassandra keyspace and
// table, in blocks of blockSize rows at a rate of at most rate rows
// per second.
func ExportCassandra(ctx context.Context, sess *engine.Session, t *dataset.Table, address, keyspace, table string, blockSize, rate int) error {
	const op = engine.OpExportCassandra
	if err := checkNonEmpty(sess, op, "address", address, "keyspace", keyspace, "table", table); err != nil {
		return err
	}
	if err := checkPositive(sess, op, "block_size", blockSize); err != nil {
		return err
	}
	if err := checkPositive(sess, op, "rate", rate); err != nil {
		return err
	}
	args := engine.Args{
		"address":    address,
		"keyspace":   keyspace,
		"table":      table,
		"block_size": blockSize,
		"rate":       rate,
	}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Dataset: t.Handle, Args: args})
	return err
}

// ExportSolr writes table t to the named Solr collection, in blocks
// of blockSize rows.
func ExportSolr(ctx context.Context, sess *engine.Session, t *dataset.Table, zkHost, collection string, blockSize int) error {
	const op = engine.OpExportSolr
	if err := checkNonEmpty(sess, op, "zk_host", zkHost, "collection", collection); err != nil {
		return err
	}
	if err := checkPositive(sess, op, "block_size", blockSize); err != nil {
		return err
	}
	args := engine.Args{"zk_host": zkHost, "collection": collection, "block_size": blockSize}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Dataset: t.Handle, Args: args})
	return err
}
