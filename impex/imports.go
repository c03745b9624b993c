// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package impex

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/grailbio/hailexpr/dataset"
	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// VCFOptions are the options to ImportVCF.
type VCFOptions struct {
	// Force permits reading gzipped (not block-gzipped) files
	// serially.
	Force bool
	// ForceBGZ reads .gz files as block-gzipped files.
	ForceBGZ bool
	// HeaderFile, if set, is the file whose header replaces the
	// header of every VCF.
	HeaderFile string
	// MinPartitions is the minimum number of partitions; zero
	// defers to the session's configuration.
	MinPartitions int
	// DropSamples drops all columns and entries.
	DropSamples bool
	// CallFields names additional FORMAT fields parsed as calls.
	CallFields []string
	// ReferenceGenome names the reference genome of loci; empty
	// means the session's default.
	ReferenceGenome string
	// ContigRecoding maps VCF contig names to reference genome
	// contig names.
	ContigRecoding map[string]string
}

// ImportVCF imports VCF files as a matrix table keyed by locus and
// alleles in rows and by sample ID s in columns.
func ImportVCF(ctx context.Context, sess *engine.Session, paths []string, opts VCFOptions) (*dataset.MatrixTable, error) {
	const op = engine.OpImportVCF
	if err := checkPaths(sess, op, paths); err != nil {
		return nil, err
	}
	if opts.Force && opts.ForceBGZ {
		return nil, reject(sess, op, errors.Value, "at most one of force and force_bgz may be set")
	}
	rg, err := referenceGenome(sess, op, opts.ReferenceGenome)
	if err != nil {
		return nil, err
	}
	if err := checkRecoding(sess, op, rg, opts.ContigRecoding); err != nil {
		return nil, err
	}
	args := engine.Args{
		"paths":            paths,
		"force":            opts.Force,
		"force_bgz":        opts.ForceBGZ,
		"drop_samples":     opts.DropSamples,
		"reference_genome": rg.Name,
	}
	if err := minPartitions(sess, op, opts.MinPartitions, args); err != nil {
		return nil, err
	}
	if opts.HeaderFile != "" {
		args["header_file"] = opts.HeaderFile
	}
	if len(opts.CallFields) > 0 {
		args["call_fields"] = opts.CallFields
	}
	if len(opts.ContigRecoding) > 0 {
		args["contig_recoding"] = opts.ContigRecoding
	}
	s := &shape{
		row: append(variantFields(rg),
			f("rsid", types.Str),
			f("qual", types.Float64),
			f("filters", strSet),
			structField("info"),
		),
		rowKey: variantKey,
	}
	if !opts.DropSamples {
		s.col = []field{f("s", types.Str)}
		s.colKey = []string{"s"}
	}
	return loadMatrix(ctx, sess, &engine.Request{Op: op, Args: args}, s)
}

// PlinkOptions are the options to ImportPlink.
type PlinkOptions struct {
	// MinPartitions is the minimum number of partitions; zero
	// defers to the session's configuration.
	MinPartitions int
	// Delimiter is the FAM file's field delimiter regular
	// expression; empty means DefaultDelimiter.
	Delimiter string
	// Missing is the FAM file's missing value; empty means
	// DefaultMissing.
	Missing string
	// QuantPheno interprets the FAM phenotype as quantitative.
	QuantPheno bool
	// A1Reference takes the A1 allele as the reference allele; by
	// default the A2 allele is the reference.
	A1Reference bool
	// ReferenceGenome names the reference genome of loci; empty
	// means the session's default.
	ReferenceGenome string
	// ContigRecoding maps BIM contig names to reference genome
	// contig names.
	ContigRecoding map[string]string
}

// famFields returns the fields of an imported FAM file.
func famFields(id string, quantPheno bool) []field {
	fields := []field{
		f("fam_id", types.Str),
		f(id, types.Str),
		f("pat_id", types.Str),
		f("mat_id", types.Str),
		f("is_female", types.Bool),
	}
	if quantPheno {
		return append(fields, f("quant_pheno", types.Float64))
	}
	return append(fields, f("is_case", types.Bool))
}

func checkDelimiter(sess *engine.Session, op, delimiter string) error {
	if _, err := regexp.Compile(delimiter); err != nil {
		return reject(sess, op, errors.Parse, "delimiter: %v", err)
	}
	return nil
}

// ImportPlink imports a PLINK BED, BIM, and FAM file triple as a
// matrix table.
func ImportPlink(ctx context.Context, sess *engine.Session, bed, bim, fam string, opts PlinkOptions) (*dataset.MatrixTable, error) {
	const op = engine.OpImportPlink
	if err := checkPaths(sess, op, []string{bed, bim, fam}); err != nil {
		return nil, err
	}
	delimiter := orDefault(opts.Delimiter, DefaultDelimiter)
	if err := checkDelimiter(sess, op, delimiter); err != nil {
		return nil, err
	}
	rg, err := referenceGenome(sess, op, opts.ReferenceGenome)
	if err != nil {
		return nil, err
	}
	if err := checkRecoding(sess, op, rg, opts.ContigRecoding); err != nil {
		return nil, err
	}
	args := engine.Args{
		"paths":            []string{bed, bim, fam},
		"delimiter":        delimiter,
		"missing":          orDefault(opts.Missing, DefaultMissing),
		"quant_pheno":      opts.QuantPheno,
		"a2_reference":     !opts.A1Reference,
		"reference_genome": rg.Name,
	}
	if err := minPartitions(sess, op, opts.MinPartitions, args); err != nil {
		return nil, err
	}
	if len(opts.ContigRecoding) > 0 {
		args["contig_recoding"] = opts.ContigRecoding
	}
	s := &shape{
		row:    append(variantFields(rg), f("rsid", types.Str), f("cm_position", types.Float64)),
		rowKey: variantKey,
		col:    famFields("s", opts.QuantPheno),
		colKey: []string{"s"},
		entry:  []field{f("GT", types.Call)},
	}
	return loadMatrix(ctx, sess, &engine.Request{Op: op, Args: args}, s)
}

// BGENOptions are the options to ImportBGEN.
type BGENOptions struct {
	// SampleFile, if set, is the sample file supplying sample IDs.
	SampleFile string
	// MinPartitions is the minimum number of partitions; zero
	// defers to the session's configuration.
	MinPartitions int
	// ReferenceGenome names the reference genome of loci; empty
	// means the session's default.
	ReferenceGenome string
	// ContigRecoding maps BGEN contig names to reference genome
	// contig names.
	ContigRecoding map[string]string
	// Tolerance is the largest difference from 1 tolerated in the
	// sum of an entry's probabilities; entries exceeding it are
	// missing. It must be in [0, 1].
	Tolerance float64
}

var bgenEntryFields = map[string]*types.T{
	"GT":     types.Call,
	"GP":     gpType,
	"dosage": types.Float64,
}

const bgenEntryOptions = "'GT', 'GP', 'dosage'"

// ImportBGEN imports BGEN files as a matrix table with the requested
// entry fields, a nonempty subset of GT, GP, and dosage.
func ImportBGEN(ctx context.Context, sess *engine.Session, paths, entryFields []string, opts BGENOptions) (*dataset.MatrixTable, error) {
	const op = engine.OpImportBGEN
	if len(entryFields) == 0 {
		return nil, reject(sess, op, errors.Fatal, "entry_fields must be non-empty; options: %s", bgenEntryOptions)
	}
	var bad []string
	for _, name := range entryFields {
		if bgenEntryFields[name] == nil {
			bad = append(bad, fmt.Sprintf("'%s'", name))
		}
	}
	if len(bad) > 0 {
		word := "value"
		if len(bad) > 1 {
			word = "values"
		}
		return nil, reject(sess, op, errors.Fatal, "found invalid %s %s in entry_fields; options: %s",
			word, strings.Join(bad, ", "), bgenEntryOptions)
	}
	if err := checkPaths(sess, op, paths); err != nil {
		return nil, err
	}
	if err := checkTolerance(sess, op, opts.Tolerance); err != nil {
		return nil, err
	}
	rg, err := referenceGenome(sess, op, opts.ReferenceGenome)
	if err != nil {
		return nil, err
	}
	if err := checkRecoding(sess, op, rg, opts.ContigRecoding); err != nil {
		return nil, err
	}
	args := engine.Args{
		"paths":            paths,
		"entry_fields":     entryFields,
		"tolerance":        opts.Tolerance,
		"reference_genome": rg.Name,
	}
	if err := minPartitions(sess, op, opts.MinPartitions, args); err != nil {
		return nil, err
	}
	if opts.SampleFile != "" {
		args["sample_file"] = opts.SampleFile
	}
	if len(opts.ContigRecoding) > 0 {
		args["contig_recoding"] = opts.ContigRecoding
	}
	s := &shape{
		row:    append(variantFields(rg), f("rsid", types.Str), f("varid", types.Str)),
		rowKey: variantKey,
		col:    []field{f("s", types.Str)},
		colKey: []string{"s"},
	}
	for _, name := range entryFields {
		s.entry = append(s.entry, f(name, bgenEntryFields[name]))
	}
	return loadMatrix(ctx, sess, &engine.Request{Op: op, Args: args}, s)
}

func checkTolerance(sess *engine.Session, op string, tolerance float64) error {
	if !(tolerance >= 0 && tolerance <= 1) {
		return reject(sess, op, errors.Value, "tolerance must be in [0, 1], got %v", tolerance)
	}
	return nil
}

// GenOptions are the options to ImportGen.
type GenOptions struct {
	// Tolerance is the largest difference from 1 tolerated in the
	// sum of an entry's probabilities; entries exceeding it are
	// missing. It must be in [0, 1].
	Tolerance float64
	// MinPartitions is the minimum number of partitions; zero
	// defers to the session's configuration.
	MinPartitions int
	// Chromosome is the contig of variants in GEN files that do
	// not include one.
	Chromosome string
	// ReferenceGenome names the reference genome of loci; empty
	// means the session's default.
	ReferenceGenome string
	// ContigRecoding maps GEN contig names to reference genome
	// contig names.
	ContigRecoding map[string]string
}

// ImportGen imports GEN files, with samples given by sampleFile, as
// a matrix table with entry fields GT and GP.
func ImportGen(ctx context.Context, sess *engine.Session, paths []string, sampleFile string, opts GenOptions) (*dataset.MatrixTable, error) {
	const op = engine.OpImportGen
	if err := checkPaths(sess, op, paths); err != nil {
		return nil, err
	}
	if sampleFile == "" {
		return nil, reject(sess, op, errors.Value, "a sample file is required")
	}
	if err := checkTolerance(sess, op, opts.Tolerance); err != nil {
		return nil, err
	}
	rg, err := referenceGenome(sess, op, opts.ReferenceGenome)
	if err != nil {
		return nil, err
	}
	if opts.Chromosome != "" {
		contig := opts.Chromosome
		if to, ok := opts.ContigRecoding[contig]; ok {
			contig = to
		}
		if !rg.HasContig(contig) {
			return nil, reject(sess, op, errors.Value, "chromosome %q is not a contig of %s", contig, rg.Name)
		}
	}
	if err := checkRecoding(sess, op, rg, opts.ContigRecoding); err != nil {
		return nil, err
	}
	args := engine.Args{
		"paths":            paths,
		"sample_file":      sampleFile,
		"tolerance":        opts.Tolerance,
		"reference_genome": rg.Name,
	}
	if err := minPartitions(sess, op, opts.MinPartitions, args); err != nil {
		return nil, err
	}
	if opts.Chromosome != "" {
		args["chromosome"] = opts.Chromosome
	}
	if len(opts.ContigRecoding) > 0 {
		args["contig_recoding"] = opts.ContigRecoding
	}
	s := &shape{
		row:    append(variantFields(rg), f("rsid", types.Str), f("varid", types.Str)),
		rowKey: variantKey,
		col:    []field{f("s", types.Str)},
		colKey: []string{"s"},
		entry:  []field{f("GT", types.Call), f("GP", gpType)},
	}
	return loadMatrix(ctx, sess, &engine.Request{Op: op, Args: args}, s)
}

func importIntervals(ctx context.Context, sess *engine.Session, op, path, genome string) (*dataset.Table, error) {
	if err := checkPaths(sess, op, []string{path}); err != nil {
		return nil, err
	}
	rg, err := referenceGenome(sess, op, genome)
	if err != nil {
		return nil, err
	}
	args := engine.Args{"path": path, "reference_genome": rg.Name}
	s := &shape{
		row:    []field{f("interval", types.Interval(types.Locus(rg.Name)))},
		rowKey: []string{"interval"},
	}
	return loadTable(ctx, sess, &engine.Request{Op: op, Args: args}, s)
}

// ImportBed imports a UCSC BED file as a table keyed by locus
// interval, on the named reference genome.
func ImportBed(ctx context.Context, sess *engine.Session, path, genome string) (*dataset.Table, error) {
	return importIntervals(ctx, sess, engine.OpImportBed, path, genome)
}

// ImportLocusIntervals imports a file of locus intervals as a table
// keyed by locus interval, on the named reference genome.
func ImportLocusIntervals(ctx context.Context, sess *engine.Session, path, genome string) (*dataset.Table, error) {
	return importIntervals(ctx, sess, engine.OpImportLocusIntervals, path, genome)
}

// FamOptions are the options to ImportFam.
type FamOptions struct {
	// QuantPheno interprets the phenotype as quantitative.
	QuantPheno bool
	// Delimiter is the field delimiter regular expression; empty
	// means DefaultDelimiter.
	Delimiter string
	// Missing is the missing value; empty means DefaultMissing.
	Missing string
}

// ImportFam imports a PLINK FAM file as a table keyed by sample ID.
func ImportFam(ctx context.Context, sess *engine.Session, path string, opts FamOptions) (*dataset.Table, error) {
	const op = engine.OpImportFam
	if err := checkPaths(sess, op, []string{path}); err != nil {
		return nil, err
	}
	delimiter := orDefault(opts.Delimiter, DefaultDelimiter)
	if err := checkDelimiter(sess, op, delimiter); err != nil {
		return nil, err
	}
	args := engine.Args{
		"path":        path,
		"quant_pheno": opts.QuantPheno,
		"delimiter":   delimiter,
		"missing":     orDefault(opts.Missing, DefaultMissing),
	}
	s := &shape{row: famFields("id", opts.QuantPheno), rowKey: []string{"id"}}
	return loadTable(ctx, sess, &engine.Request{Op: op, Args: args}, s)
}

// TableOptions are the options to ImportTable.
type TableOptions struct {
	// Key names the fields that key the table.
	Key []string
	// MinPartitions is the minimum number of partitions; zero
	// defers to the session's configuration.
	MinPartitions int
	// Impute imputes field types from the file.
	Impute bool
	// NoHeader names fields f0, f1, ..., instead of reading a
	// header line.
	NoHeader bool
	// Comment, if set, skips lines that begin with it.
	Comment string
	// Delimiter is the field delimiter regular expression; empty
	// means a tab.
	Delimiter string
	// Missing is the missing value; empty means DefaultMissing.
	Missing string
	// Types maps field names to the (textual) types they are
	// parsed as. Other fields are strings, unless imputed.
	Types map[string]string
	// Quote, if set, is the quote character.
	Quote string
}

// ImportTable imports delimited text files as a table.
func ImportTable(ctx context.Context, sess *engine.Session, paths []string, opts TableOptions) (*dataset.Table, error) {
	const op = engine.OpImportTable
	if err := checkPaths(sess, op, paths); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(opts.Types))
	for name := range opts.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	var s shape
	for _, name := range names {
		t, err := types.Parse(opts.Types[name])
		if err != nil {
			err = errors.E(op, fmt.Sprintf("types[%q]", name), err)
			sess.Log.Error(err)
			return nil, err
		}
		s.row = append(s.row, f(name, t))
	}
	if utf8.RuneCountInString(opts.Quote) > 1 {
		return nil, reject(sess, op, errors.Value, "quote must be a single character, got %q", opts.Quote)
	}
	delimiter := orDefault(opts.Delimiter, "\t")
	if err := checkDelimiter(sess, op, delimiter); err != nil {
		return nil, err
	}
	for _, name := range opts.Key {
		s.row = append(s.row, present(name))
	}
	args := engine.Args{
		"paths":     paths,
		"key":       append([]string{}, opts.Key...),
		"impute":    opts.Impute,
		"no_header": opts.NoHeader,
		"delimiter": delimiter,
		"missing":   orDefault(opts.Missing, DefaultMissing),
	}
	if err := minPartitions(sess, op, opts.MinPartitions, args); err != nil {
		return nil, err
	}
	if len(opts.Types) > 0 {
		args["types"] = opts.Types
	}
	if opts.Comment != "" {
		args["comment"] = opts.Comment
	}
	if opts.Quote != "" {
		args["quote"] = opts.Quote
	}
	if opts.Key != nil {
		s.rowKey = opts.Key
	}
	return loadTable(ctx, sess, &engine.Request{Op: op, Args: args}, &s)
}

// MatrixTableOptions are the options to ImportMatrixTable.
type MatrixTableOptions struct {
	// RowFields gives the types of the leading row fields of each
	// line.
	RowFields map[string]*types.T
	// RowKey names the row fields that key rows.
	RowKey []string
	// EntryType is the type of entries; nil means int32.
	EntryType *types.T
	// Missing is the missing value; empty means DefaultMissing.
	Missing string
	// MinPartitions is the minimum number of partitions; zero
	// defers to the session's configuration.
	MinPartitions int
	// NoHeader names row fields f0, f1, ..., and columns 0, 1, ...,
	// instead of reading a header line.
	NoHeader bool
	// ForceBGZ reads .gz files as block-gzipped files.
	ForceBGZ bool
}

func isMatrixTableType(t *types.T) bool {
	switch t.Kind {
	case types.Int32Kind, types.Int64Kind, types.Float32Kind, types.Float64Kind, types.StrKind:
		return true
	}
	return false
}

const matrixTableTypes = "'int32', 'int64', 'float32', 'float64', 'str'"

// ImportMatrixTable imports a text matrix as a matrix table with a
// single entry field x, and columns keyed by col_id.
func ImportMatrixTable(ctx context.Context, sess *engine.Session, paths []string, opts MatrixTableOptions) (*dataset.MatrixTable, error) {
	const op = engine.OpImportMatrixTable
	if err := checkPaths(sess, op, paths); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(opts.RowFields))
	for name := range opts.RowFields {
		names = append(names, name)
	}
	sort.Strings(names)
	var s shape
	rowFields := make(map[string]string)
	for _, name := range names {
		t := opts.RowFields[name]
		if t == nil || !isMatrixTableType(t) {
			return nil, reject(sess, op, errors.Fatal,
				"expected field types to be one of %s: field '%s' had type '%v'", matrixTableTypes, name, t)
		}
		s.row = append(s.row, f(name, t))
		rowFields[name] = t.String()
	}
	entryType := opts.EntryType
	if entryType == nil {
		entryType = types.Int32
	}
	if !isMatrixTableType(entryType) {
		return nil, reject(sess, op, errors.Fatal,
			"expected entry types to be one of %s: found '%v'", matrixTableTypes, entryType)
	}
	for _, name := range opts.RowKey {
		if opts.RowFields[name] == nil {
			return nil, reject(sess, op, errors.Schema, "row key field '%s' is not a row field", name)
		}
	}
	args := engine.Args{
		"paths":      paths,
		"row_fields": rowFields,
		"row_key":    append([]string{}, opts.RowKey...),
		"entry_type": entryType.String(),
		"missing":    orDefault(opts.Missing, DefaultMissing),
		"no_header":  opts.NoHeader,
		"force_bgz":  opts.ForceBGZ,
	}
	if err := minPartitions(sess, op, opts.MinPartitions, args); err != nil {
		return nil, err
	}
	s.rowKey = append([]string{}, opts.RowKey...)
	s.col = []field{f("col_id", types.Str)}
	s.colKey = []string{"col_id"}
	s.entry = []field{f("x", entryType)}
	return loadMatrix(ctx, sess, &engine.Request{Op: op, Args: args}, &s)
}

// ReadTable reads a table written by the engine.
func ReadTable(ctx context.Context, sess *engine.Session, path string) (*dataset.Table, error) {
	const op = engine.OpReadTable
	if err := checkPaths(sess, op, []string{path}); err != nil {
		return nil, err
	}
	return loadTable(ctx, sess, &engine.Request{Op: op, Args: engine.Args{"path": path}}, nil)
}

// ReadMatrixTable reads a matrix table written by the engine.
func ReadMatrixTable(ctx context.Context, sess *engine.Session, path string) (*dataset.MatrixTable, error) {
	const op = engine.OpReadMatrixTable
	if err := checkPaths(sess, op, []string{path}); err != nil {
		return nil, err
	}
	return loadMatrix(ctx, sess, &engine.Request{Op: op, Args: engine.Args{"path": path}}, nil)
}

// VCFMetadata is VCF header metadata: for each header section
// (INFO, FORMAT, FILTER), attributes of each defined key.
type VCFMetadata map[string]map[string]map[string]string

var vcfMetadataType = types.Dict(types.Str, types.Dict(types.Str, types.Dict(types.Str, types.Str)))

// GetVCFMetadata returns the header metadata of a VCF file.
func GetVCFMetadata(ctx context.Context, sess *engine.Session, path string) (VCFMetadata, error) {
	const op = engine.OpGetVCFMetadata
	if err := checkPaths(sess, op, []string{path}); err != nil {
		return nil, err
	}
	resp, err := execute(ctx, sess, &engine.Request{Op: op, Args: engine.Args{"path": path}})
	if err != nil {
		return nil, err
	}
	t, err := types.Parse(resp.Type)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if !t.Equal(vcfMetadataType) {
		return nil, errors.E(op, errors.Fatal, fmt.Errorf("engine returned type %v, expected %v", t, vcfMetadataType))
	}
	v, err := values.UnmarshalJSON(resp.Value, t)
	if err != nil {
		return nil, errors.E(op, err)
	}
	md := make(VCFMetadata)
	if values.IsMissing(v) {
		return md, nil
	}
	v.(*values.Dict).Each(func(section, v values.T) {
		keys := make(map[string]map[string]string)
		md[section.(string)] = keys
		v.(*values.Dict).Each(func(key, v values.T) {
			attrs := make(map[string]string)
			keys[key.(string)] = attrs
			v.(*values.Dict).Each(func(attr, v values.T) {
				if !values.IsMissing(v) {
					attrs[attr.(string)] = v.(string)
				}
			})
		})
	})
	return md, nil
}

// IndexBGEN indexes BGEN files, as required by ImportBGEN.
func IndexBGEN(ctx context.Context, sess *engine.Session, paths []string) error {
	const op = engine.OpIndexBGEN
	if err := checkPaths(sess, op, paths); err != nil {
		return err
	}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Args: engine.Args{"paths": paths}})
	return err
}

// Grep searches files for lines matching a regular expression,
// returning at most maxCount matches.
func Grep(ctx context.Context, sess *engine.Session, regex string, paths []string, maxCount int) error {
	const op = engine.OpGrep
	if _, err := regexp.Compile(regex); err != nil {
		return reject(sess, op, errors.Parse, "regex: %v", err)
	}
	if maxCount <= 0 {
		return reject(sess, op, errors.Value, "max_count must be positive, got %d", maxCount)
	}
	if err := checkPaths(sess, op, paths); err != nil {
		return err
	}
	args := engine.Args{"regex": regex, "paths": paths, "max_count": maxCount}
	_, err := execute(ctx, sess, &engine.Request{Op: op, Args: args})
	return err
}
