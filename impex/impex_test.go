// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package impex_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/grailbio/hailexpr/config"
	"github.com/grailbio/hailexpr/dataset"
	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/engine/local"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/impex"
	"github.com/grailbio/hailexpr/log"
	"github.com/grailbio/hailexpr/types"
)

var (
	locus   = types.Locus("GRCh37")
	alleles = types.Array(types.Str)
	sample  = types.Struct(types.F("s", types.Str))
)

func newSession() (*local.Engine, *engine.Session) {
	c := config.Default()
	c.Level = log.OffLevel
	e := new(local.Engine)
	return e, engine.NewSession(e, c)
}

func vcfSchema() engine.Schema {
	return engine.Schema{
		Row: types.Struct(
			types.F("locus", locus),
			types.F("alleles", alleles),
			types.F("rsid", types.Str),
			types.F("qual", types.Float64),
			types.F("filters", types.Set(types.Str)),
			types.F("info", types.Struct(types.F("AC", types.Array(types.Int32)))),
		).String(),
		Col:    sample.String(),
		Entry:  types.Struct(types.F("GT", types.Call)).String(),
		RowKey: []string{"locus", "alleles"},
		ColKey: []string{"s"},
	}
}

func checkKind(t *testing.T, kind errors.Kind, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if !errors.Is(kind, err) {
		t.Fatalf("expected %v error, got %v", kind, err)
	}
}

func TestImportVCF(t *testing.T) {
	e, sess := newSession()
	e.RegisterPath("a.vcf", &local.Dataset{Schema: vcfSchema()})
	ctx := context.Background()
	mt, err := impex.ImportVCF(ctx, sess, []string{"a.vcf"}, impex.VCFOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mt.RowKey, []string{"locus", "alleles"}; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := mt.Row.Field("qual"), types.Float64; !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := e.Handles(), []string{mt.Handle}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
	reqs := e.Requests()
	if got, want := len(reqs), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	req := reqs[0]
	if got, want := req.Op, engine.OpImportVCF; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := req.Args["reference_genome"], "GRCh37"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := req.Args["min_partitions"]; ok {
		t.Error("unexpected min_partitions")
	}

	_, err = impex.ImportVCF(ctx, sess, []string{"a.vcf"}, impex.VCFOptions{MinPartitions: 4})
	if err != nil {
		t.Fatal(err)
	}
	reqs = e.Requests()
	if got, want := reqs[len(reqs)-1].Args["min_partitions"], 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	_, err = impex.ImportVCF(ctx, sess, []string{"missing.vcf"}, impex.VCFOptions{})
	checkKind(t, errors.NotExist, err)
}

func TestImportSchemaMismatch(t *testing.T) {
	e, sess := newSession()
	schema := vcfSchema()
	schema.Row = types.Struct(
		types.F("locus", locus),
		types.F("alleles", alleles),
		types.F("rsid", types.Str),
		types.F("qual", types.Int32),
		types.F("filters", types.Set(types.Str)),
		types.F("info", types.Struct()),
	).String()
	e.RegisterPath("a.vcf", &local.Dataset{Schema: schema})
	_, err := impex.ImportVCF(context.Background(), sess, []string{"a.vcf"}, impex.VCFOptions{})
	checkKind(t, errors.Fatal, err)
	if !strings.Contains(err.Error(), "no row field 'qual' of type 'float64'") {
		t.Errorf("unexpected error %v", err)
	}

	schema = vcfSchema()
	schema.ColKey = nil
	e.RegisterPath("b.vcf", &local.Dataset{Schema: schema})
	_, err = impex.ImportVCF(context.Background(), sess, []string{"b.vcf"}, impex.VCFOptions{})
	checkKind(t, errors.Fatal, err)
}

func TestImportRejected(t *testing.T) {
	e, sess := newSession()
	e.RegisterPath("a.vcf", &local.Dataset{Schema: vcfSchema()})
	e.RegisterPath("a.bgen", &local.Dataset{Schema: vcfSchema()})
	ctx := context.Background()
	for _, c := range []struct {
		kind errors.Kind
		fn   func() error
	}{
		{errors.Value, func() error {
			_, err := impex.ImportVCF(ctx, sess, []string{"a.vcf"}, impex.VCFOptions{ReferenceGenome: "hg99"})
			return err
		}},
		{errors.Value, func() error {
			_, err := impex.ImportVCF(ctx, sess, []string{"a.vcf"},
				impex.VCFOptions{ContigRecoding: map[string]string{"chr1": "chr1"}})
			return err
		}},
		{errors.Value, func() error {
			_, err := impex.ImportVCF(ctx, sess, nil, impex.VCFOptions{})
			return err
		}},
		{errors.Value, func() error {
			_, err := impex.ImportVCF(ctx, sess, []string{"a.vcf"}, impex.VCFOptions{MinPartitions: -1})
			return err
		}},
		{errors.Value, func() error {
			_, err := impex.ImportGen(ctx, sess, []string{"a.gen"}, "a.sample", impex.GenOptions{Tolerance: 1.5})
			return err
		}},
		{errors.Value, func() error {
			_, err := impex.ImportGen(ctx, sess, []string{"a.gen"}, "a.sample", impex.GenOptions{Chromosome: "chr1"})
			return err
		}},
		{errors.Parse, func() error {
			_, err := impex.ImportPlink(ctx, sess, "a.bed", "a.bim", "a.fam", impex.PlinkOptions{Delimiter: "("})
			return err
		}},
		{errors.Parse, func() error {
			_, err := impex.ImportTable(ctx, sess, []string{"a.tsv"},
				impex.TableOptions{Types: map[string]string{"x": "int3"}})
			return err
		}},
		{errors.Value, func() error {
			_, err := impex.ImportTable(ctx, sess, []string{"a.tsv"}, impex.TableOptions{Quote: "''"})
			return err
		}},
		{errors.Fatal, func() error {
			_, err := impex.ImportMatrixTable(ctx, sess, []string{"a.tsv"},
				impex.MatrixTableOptions{RowFields: map[string]*types.T{"f": types.Bool}})
			return err
		}},
		{errors.Fatal, func() error {
			_, err := impex.ImportMatrixTable(ctx, sess, []string{"a.tsv"},
				impex.MatrixTableOptions{EntryType: types.Call})
			return err
		}},
		{errors.Schema, func() error {
			_, err := impex.ImportMatrixTable(ctx, sess, []string{"a.tsv"},
				impex.MatrixTableOptions{RowFields: map[string]*types.T{"f": types.Str}, RowKey: []string{"g"}})
			return err
		}},
		{errors.Parse, func() error {
			return impex.Grep(ctx, sess, "(", []string{"a.tsv"}, 10)
		}},
		{errors.Value, func() error {
			return impex.Grep(ctx, sess, "x", []string{"a.tsv"}, 0)
		}},
	} {
		checkKind(t, c.kind, c.fn())
	}
	if got := e.Requests(); len(got) != 0 {
		t.Errorf("unexpected requests %v", got)
	}
}

func TestImportBGENEntryFields(t *testing.T) {
	e, sess := newSession()
	ctx := context.Background()
	_, err := impex.ImportBGEN(ctx, sess, []string{"a.bgen"}, nil, impex.BGENOptions{})
	checkKind(t, errors.Fatal, err)
	if !strings.Contains(err.Error(), "entry_fields must be non-empty") {
		t.Errorf("unexpected error %v", err)
	}
	_, err = impex.ImportBGEN(ctx, sess, []string{"a.bgen"}, []string{"GT", "foo", "bar"}, impex.BGENOptions{})
	checkKind(t, errors.Fatal, err)
	if !strings.Contains(err.Error(), "invalid values 'foo', 'bar' in entry_fields") {
		t.Errorf("unexpected error %v", err)
	}
	if got := e.Requests(); len(got) != 0 {
		t.Errorf("unexpected requests %v", got)
	}

	schema := vcfSchema()
	schema.Row = types.Struct(
		types.F("locus", locus),
		types.F("alleles", alleles),
		types.F("rsid", types.Str),
		types.F("varid", types.Str),
	).String()
	schema.Entry = types.Struct(types.F("GP", types.Array(types.Float64))).String()
	e.RegisterPath("a.bgen", &local.Dataset{Schema: schema})
	mt, err := impex.ImportBGEN(ctx, sess, []string{"a.bgen"}, []string{"GP"}, impex.BGENOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := mt.Entry.FieldNames(), []string{"GP"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
	_, err = impex.ImportBGEN(ctx, sess, []string{"a.bgen"}, []string{"GP", "dosage"}, impex.BGENOptions{})
	checkKind(t, errors.Fatal, err)
}

func TestImportFam(t *testing.T) {
	e, sess := newSession()
	row := types.Struct(
		types.F("fam_id", types.Str),
		types.F("id", types.Str),
		types.F("pat_id", types.Str),
		types.F("mat_id", types.Str),
		types.F("is_female", types.Bool),
		types.F("is_case", types.Bool),
	)
	e.RegisterPath("a.fam", &local.Dataset{Schema: engine.Schema{Row: row.String(), RowKey: []string{"id"}}})
	ctx := context.Background()
	tab, err := impex.ImportFam(ctx, sess, "a.fam", impex.FamOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tab.Key, []string{"id"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
	req := e.Requests()[0]
	if got, want := req.Args["delimiter"], impex.DefaultDelimiter; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := req.Args["missing"], impex.DefaultMissing; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	_, err = impex.ImportFam(ctx, sess, "a.fam", impex.FamOptions{QuantPheno: true})
	checkKind(t, errors.Fatal, err)
}

func TestImportTable(t *testing.T) {
	e, sess := newSession()
	row := types.Struct(types.F("k", types.Str), types.F("x", types.Int32))
	e.RegisterPath("a.tsv", &local.Dataset{Schema: engine.Schema{Row: row.String(), RowKey: []string{"k"}}})
	ctx := context.Background()
	tab, err := impex.ImportTable(ctx, sess, []string{"a.tsv"},
		impex.TableOptions{Key: []string{"k"}, Types: map[string]string{"x": "int32"}})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tab.KeyTypes()[0], types.Str; !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	_, err = impex.ImportTable(ctx, sess, []string{"a.tsv"},
		impex.TableOptions{Types: map[string]string{"x": "float64"}})
	checkKind(t, errors.Fatal, err)
	_, err = impex.ImportTable(ctx, sess, []string{"a.tsv"}, impex.TableOptions{Key: []string{"x"}})
	checkKind(t, errors.Fatal, err)
	_, err = impex.ImportTable(ctx, sess, []string{"a.tsv"}, impex.TableOptions{Key: []string{"y"}})
	checkKind(t, errors.Fatal, err)
	if !strings.Contains(err.Error(), "no row field 'y'") {
		t.Errorf("error %v does not name the absent key field", err)
	}
}

func TestIntervals(t *testing.T) {
	e, sess := newSession()
	row := types.Struct(types.F("interval", types.Interval(types.Locus("GRCh38"))))
	e.RegisterPath("a.bed", &local.Dataset{Schema: engine.Schema{Row: row.String(), RowKey: []string{"interval"}}})
	ctx := context.Background()
	if _, err := impex.ImportBed(ctx, sess, "a.bed", "GRCh38"); err != nil {
		t.Fatal(err)
	}
	_, err := impex.ImportBed(ctx, sess, "a.bed", "")
	checkKind(t, errors.Fatal, err)
}

func TestGetVCFMetadata(t *testing.T) {
	e, sess := newSession()
	e.RegisterPath("a.vcf", &local.Dataset{Schema: vcfSchema()})
	md, err := impex.GetVCFMetadata(context.Background(), sess, "a.vcf")
	if err != nil {
		t.Fatal(err)
	}
	if md == nil || len(md) != 0 {
		t.Errorf("got %v, want empty metadata", md)
	}
}

func matrix(e *local.Engine, entry *types.T) *dataset.MatrixTable {
	schema := vcfSchema()
	schema.Entry = entry.String()
	ds, err := dataset.FromSchema("mt", &schema)
	if err != nil {
		panic(err)
	}
	e.Register("mt", &local.Dataset{Schema: schema})
	return ds.(*dataset.MatrixTable)
}

func TestExportGen(t *testing.T) {
	e, sess := newSession()
	ctx := context.Background()
	mt := matrix(e, types.Struct(types.F("GT", types.Call)))
	err := impex.ExportGen(ctx, sess, mt, "out", 4)
	checkKind(t, errors.Fatal, err)
	if msg := err.Error(); !strings.HasPrefix(msg, "export_gen") ||
		!strings.Contains(msg, "no entry field 'GP' of type 'array<float64>'") {
		t.Errorf("unexpected error %v", err)
	}
	if got := e.Requests(); len(got) != 0 {
		t.Fatalf("unexpected requests %v", got)
	}

	mt = matrix(e, types.Struct(types.F("GP", types.Array(types.Float64))))
	checkKind(t, errors.Value, impex.ExportGen(ctx, sess, mt, "out", -1))
	if err := impex.ExportGen(ctx, sess, mt, "out", 4); err != nil {
		t.Fatal(err)
	}
	reqs := e.Requests()
	if got, want := len(reqs), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := reqs[0].Dataset, "mt"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := reqs[0].Args["precision"], 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExportPlink(t *testing.T) {
	e, sess := newSession()
	ctx := context.Background()
	mt := matrix(e, types.Struct(types.F("GT", types.Call)))
	s := mt.ColField("s")
	female := s.StartsWith(expr.Str("F"))
	for _, c := range []struct {
		args map[string]*expr.Expr
		kind errors.Kind
		msg  string
	}{
		{map[string]*expr.Expr{"is_case": female, "quant_pheno": expr.Float64(1)}, errors.Value, "found both"},
		{map[string]*expr.Expr{"sex": female}, errors.Value,
			"fam_arg 'sex' not recognized; valid names: fam_id, id, mat_id, pat_id, is_female, is_case, quant_pheno"},
		{map[string]*expr.Expr{"is_female": s}, errors.TypeCheck, "expected 'bool'"},
		{map[string]*expr.Expr{"id": mt.RowField("rsid")}, errors.Schema, "column expression"},
		{map[string]*expr.Expr{"id": mt.ColField("nope")}, errors.Schema, "no column field"},
	} {
		err := impex.ExportPlink(ctx, sess, mt, "out", c.args)
		checkKind(t, c.kind, err)
		if !strings.Contains(err.Error(), c.msg) {
			t.Errorf("error %v does not contain %q", err, c.msg)
		}
	}
	if got := e.Requests(); len(got) != 0 {
		t.Fatalf("unexpected requests %v", got)
	}

	err := impex.ExportPlink(ctx, sess, mt, "out", map[string]*expr.Expr{"id": s, "is_female": female})
	if err != nil {
		t.Fatal(err)
	}
	reqs := e.Requests()
	if got, want := len(reqs), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if _, ok := reqs[0].Args["fam_args"].(map[string]json.RawMessage)["is_female"]; !ok {
		t.Errorf("missing is_female in %v", reqs[0].Args)
	}
}

func TestExportVCF(t *testing.T) {
	e, sess := newSession()
	ctx := context.Background()
	mt := matrix(e, types.Struct(types.F("GT", types.Call), types.F("AD", types.Array(types.Int32))))
	checkKind(t, errors.Value, impex.ExportVCF(ctx, sess, mt, "out.vcf", impex.VCFExportOptions{Parallel: "shards"}))
	if err := impex.ExportVCF(ctx, sess, mt, "out.vcf", impex.VCFExportOptions{Parallel: impex.HeaderPerShard}); err != nil {
		t.Fatal(err)
	}
	nested := matrix(e, types.Struct(types.F("X", types.Array(types.Array(types.Int32)))))
	checkKind(t, errors.Fatal, impex.ExportVCF(ctx, sess, nested, "out.vcf", impex.VCFExportOptions{}))

	bare := *mt
	bare.Row = types.Struct(types.F("locus", locus), types.F("alleles", alleles))
	if err := impex.ExportVCF(ctx, sess, &bare, "bare.vcf", impex.VCFExportOptions{}); err != nil {
		t.Errorf("rows without info or qual: %v", err)
	}
	badQual := *mt
	badQual.Row = types.Struct(types.F("locus", locus), types.F("alleles", alleles), types.F("qual", types.Int32))
	checkKind(t, errors.Fatal, impex.ExportVCF(ctx, sess, &badQual, "out.vcf", impex.VCFExportOptions{}))
	noLocus := *mt
	noLocus.Row = types.Struct(types.F("alleles", alleles))
	checkKind(t, errors.Fatal, impex.ExportVCF(ctx, sess, &noLocus, "out.vcf", impex.VCFExportOptions{}))

	rows := *mt
	rows.RowKey = []string{"locus"}
	checkKind(t, errors.Fatal, impex.ExportVCF(ctx, sess, &rows, "out.vcf", impex.VCFExportOptions{}))
	if got, want := len(e.Requests()), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExportTables(t *testing.T) {
	e, sess := newSession()
	ctx := context.Background()
	tab := &dataset.Table{Handle: "t", Global: types.Struct(), Row: sample, Key: []string{"s"}}
	e.Register("t", &local.Dataset{Schema: *tab.Schema()})
	checkKind(t, errors.Value, impex.ExportCassandra(ctx, sess, tab, "localhost", "ks", "tab", 0, 10))
	checkKind(t, errors.Value, impex.ExportCassandra(ctx, sess, tab, "localhost", "", "tab", 100, 10))
	checkKind(t, errors.Value, impex.ExportSolr(ctx, sess, tab, "zk", "coll", -1))
	if got := e.Requests(); len(got) != 0 {
		t.Fatalf("unexpected requests %v", got)
	}
	if err := impex.ExportCassandra(ctx, sess, tab, "localhost", "ks", "tab", 100, 10); err != nil {
		t.Fatal(err)
	}
	if err := impex.ExportSolr(ctx, sess, tab, "zk", "coll", 100); err != nil {
		t.Fatal(err)
	}
	if got, want := len(e.Requests()), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
