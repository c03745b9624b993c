// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package engine defines the boundary between hailexpr and the
// execution engine that evaluates expressions and performs imports
// and exports. Requests and responses carry types in their canonical
// string form and expressions and values in their JSON wire forms.
package engine

import (
	"context"
	"crypto"
	// The SHA-256 implementation is required for this package's
	// Digester.
	_ "crypto/sha256"
	"encoding/json"
	"io"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/hailexpr/errors"
)

// Digester is the digester used to compute request digests.
var Digester = digest.Digester(crypto.SHA256)

// Request operations understood by engines.
const (
	OpEval                 = "eval"
	OpAggregate            = "aggregate"
	OpImportVCF            = "import_vcf"
	OpImportPlink          = "import_plink"
	OpImportBGEN           = "import_bgen"
	OpImportGen            = "import_gen"
	OpImportBed            = "import_bed"
	OpImportLocusIntervals = "import_locus_intervals"
	OpImportFam            = "import_fam"
	OpImportTable          = "import_table"
	OpImportMatrixTable    = "import_matrix_table"
	OpReadTable            = "read_table"
	OpReadMatrixTable      = "read_matrix_table"
	OpGetVCFMetadata       = "get_vcf_metadata"
	OpIndexBGEN            = "index_bgen"
	OpGrep                 = "grep"
	OpExportVCF            = "export_vcf"
	OpExportPlink          = "export_plink"
	OpExportGen            = "export_gen"
	OpExportCassandra      = "export_cassandra"
	OpExportSolr           = "export_solr"
)

// Args are the named arguments of a request. Values must be
// JSON-encodable.
type Args map[string]interface{}

// A Request is a single call into the engine.
type Request struct {
	// Op is the requested operation.
	Op string `json:"op"`
	// Dataset is the handle of the dataset operated on, if any.
	Dataset string `json:"dataset,omitempty"`
	// Type is the canonical type of the expression in AST.
	Type string `json:"type,omitempty"`
	// AST is the wire form of the expression to evaluate, if any.
	AST json.RawMessage `json:"ast,omitempty"`
	// Args holds the operation's named arguments.
	Args Args `json:"args,omitempty"`
}

// Digest returns the request's digest. Requests with equal digests
// are equivalent.
func (r *Request) Digest() digest.Digest {
	w := Digester.NewWriter()
	r.WriteDigest(w)
	return w.Digest()
}

// WriteDigest writes the digestible material of r to w.
func (r *Request) WriteDigest(w io.Writer) {
	io.WriteString(w, r.Op)
	io.WriteString(w, "\x00")
	io.WriteString(w, r.Dataset)
	io.WriteString(w, "\x00")
	io.WriteString(w, r.Type)
	io.WriteString(w, "\x00")
	w.Write(r.AST)
	io.WriteString(w, "\x00")
	// Maps are marshaled in key order.
	p, err := json.Marshal(r.Args)
	if err != nil {
		panic(err)
	}
	w.Write(p)
}

// Schema describes the shape of a dataset. Fields are canonical
// struct type strings; a table has no column or entry fields.
type Schema struct {
	Global string   `json:"global"`
	Row    string   `json:"row"`
	Col    string   `json:"col,omitempty"`
	Entry  string   `json:"entry,omitempty"`
	RowKey []string `json:"row_key,omitempty"`
	ColKey []string `json:"col_key,omitempty"`
}

// IsMatrix tells whether the schema describes a matrix table.
func (s *Schema) IsMatrix() bool {
	return s.Col != "" || s.Entry != ""
}

// A Response is the engine's reply to a request.
type Response struct {
	// Type is the canonical type of Value.
	Type string `json:"type,omitempty"`
	// Value is the JSON wire form of the result value.
	Value json.RawMessage `json:"value,omitempty"`
	// Schema is the schema of the dataset produced, if any.
	Schema *Schema `json:"schema,omitempty"`
	// Handle identifies the dataset produced, if any.
	Handle string `json:"handle,omitempty"`
	// Error is the error, if any, that the operation failed with.
	Error *errors.Error `json:"error,omitempty"`
}

// Err returns the response's error, if any.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// An Engine executes requests.
type Engine interface {
	// Execute performs request req. Operation failures may be
	// returned either as errors or in the response.
	Execute(ctx context.Context, req *Request) (*Response, error)
}
