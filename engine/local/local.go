// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package local implements an in-process engine. The engine serves
// datasets registered in memory: it evaluates and aggregates
// expressions over them, and answers import and read requests with
// the datasets registered for the requested paths. Exports are
// recorded but write nothing. Every request executed is recorded for
// inspection.
package local

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/grailbio/hailexpr/agg"
	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/log"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
	"golang.org/x/sync/errgroup"
)

// A Dataset is a dataset held by the engine. Rows are struct values
// of the schema's row type, split into partitions.
type Dataset struct {
	Schema     engine.Schema
	Globals    values.Struct
	Partitions [][]values.T
}

// Engine is an in-process engine. Its zero value is ready to use.
type Engine struct {
	// Parallelism is the number of partitions aggregated
	// concurrently. If zero, runtime.NumCPU is used.
	Parallelism int
	// Log, if not nil, receives debug output.
	Log *log.Logger

	mu       sync.Mutex
	datasets map[string]*Dataset
	paths    map[string]*Dataset
	requests []*engine.Request
	nhandle  int
}

// Register registers dataset d under the provided handle.
func (e *Engine) Register(handle string, d *Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.datasets == nil {
		e.datasets = make(map[string]*Dataset)
	}
	e.datasets[handle] = d
}

// RegisterPath registers dataset d as the result of importing or
// reading path.
func (e *Engine) RegisterPath(path string, d *Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paths == nil {
		e.paths = make(map[string]*Dataset)
	}
	e.paths[path] = d
}

// Requests returns the requests executed so far, in order.
func (e *Engine) Requests() []*engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*engine.Request(nil), e.requests...)
}

// Execute implements engine.Engine.
func (e *Engine) Execute(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, errors.E(req.Op, err)
	}
	if e.Log != nil {
		e.Log.Debugf("local: %s %s", req.Op, req.Dataset)
	}
	resp, err := e.execute(req)
	if err != nil {
		return &engine.Response{Error: errors.Recover(err)}, nil
	}
	return resp, nil
}

// ExecuteAll executes reqs concurrently, returning their responses
// in order. ExecuteAll fails if any request fails.
func (e *Engine) ExecuteAll(ctx context.Context, reqs []*engine.Request) ([]*engine.Response, error) {
	resps := make([]*engine.Response, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range reqs {
		i := i
		g.Go(func() error {
			resp, err := e.Execute(ctx, reqs[i])
			if err == nil {
				err = resp.Err()
			}
			resps[i] = resp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resps, nil
}

func (e *Engine) execute(req *engine.Request) (*engine.Response, error) {
	switch req.Op {
	case engine.OpEval:
		return e.eval(req)
	case engine.OpAggregate:
		return e.aggregate(req)
	case engine.OpImportVCF, engine.OpImportPlink, engine.OpImportBGEN, engine.OpImportGen,
		engine.OpImportBed, engine.OpImportLocusIntervals, engine.OpImportFam,
		engine.OpImportTable, engine.OpImportMatrixTable,
		engine.OpReadTable, engine.OpReadMatrixTable:
		return e.load(req)
	case engine.OpGetVCFMetadata:
		if _, err := e.path(req); err != nil {
			return nil, err
		}
		return &engine.Response{Type: "dict<str, dict<str, dict<str, str>>>", Value: []byte("[]")}, nil
	case engine.OpIndexBGEN, engine.OpGrep:
		return &engine.Response{}, nil
	case engine.OpExportVCF, engine.OpExportPlink, engine.OpExportGen,
		engine.OpExportCassandra, engine.OpExportSolr:
		if _, err := e.dataset(req.Dataset); err != nil {
			return nil, err
		}
		return &engine.Response{}, nil
	default:
		return nil, errors.E(req.Op, errors.NotSupported, errors.New("unsupported operation"))
	}
}

func (e *Engine) dataset(handle string) (*Dataset, error) {
	e.mu.Lock()
	d := e.datasets[handle]
	e.mu.Unlock()
	if d == nil {
		return nil, errors.E("dataset", handle, errors.NotExist, errors.New("no such dataset"))
	}
	return d, nil
}

// path returns the first path argument of req.
func (e *Engine) path(req *engine.Request) (string, error) {
	var path string
	switch arg := req.Args["paths"].(type) {
	case []string:
		if len(arg) > 0 {
			path = arg[0]
		}
	case []interface{}:
		if len(arg) > 0 {
			path, _ = arg[0].(string)
		}
	case nil:
		path, _ = req.Args["path"].(string)
	}
	if path == "" {
		return "", errors.E(req.Op, errors.Value, errors.New("no path given"))
	}
	return path, nil
}

func (e *Engine) load(req *engine.Request) (*engine.Response, error) {
	path, err := e.path(req)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.paths[path]
	if d == nil {
		return nil, errors.E(req.Op, path, errors.NotExist, errors.New("no such file"))
	}
	e.nhandle++
	handle := fmt.Sprintf("%s-%d", req.Op, e.nhandle)
	if e.datasets == nil {
		e.datasets = make(map[string]*Dataset)
	}
	e.datasets[handle] = d
	schema := d.Schema
	return &engine.Response{Handle: handle, Schema: &schema}, nil
}

func (e *Engine) eval(req *engine.Request) (*engine.Response, error) {
	x, err := expr.Decode(req.AST, nil)
	if err != nil {
		return nil, err
	}
	v, err := expr.Eval(x, nil)
	if err != nil {
		return nil, err
	}
	return response(v, x.Type)
}

func (e *Engine) aggregate(req *engine.Request) (*engine.Response, error) {
	d, err := e.dataset(req.Dataset)
	if err != nil {
		return nil, err
	}
	globalType, err := structType(d.Schema.Global)
	if err != nil {
		return nil, err
	}
	rowType, err := structType(d.Schema.Row)
	if err != nil {
		return nil, err
	}
	tenv := types.NewEnv()
	for _, f := range globalType.Fields {
		tenv.Bind(f.Name, f.T)
	}
	tenv = tenv.Push()
	for _, f := range rowType.Fields {
		tenv.Bind(f.Name, f.T)
	}
	x, err := expr.Decode(req.AST, tenv)
	if err != nil {
		return nil, err
	}
	globals := values.NewEnv()
	globals.BindStruct(d.Globals, globalType)
	parts := make([]agg.Seq, len(d.Partitions))
	for i := range d.Partitions {
		parts[i] = agg.Slice(d.Partitions[i])
	}
	parallelism := e.Parallelism
	if parallelism == 0 {
		parallelism = runtime.NumCPU()
	}
	r := &agg.Runner{Globals: globals, Parallelism: parallelism, Log: e.Log}
	v, err := r.RunPartitions(x, parts, rowType)
	if err != nil {
		return nil, err
	}
	return response(v, x.Type)
}

func structType(s string) (*types.T, error) {
	if s == "" {
		return types.Struct(), nil
	}
	t, err := types.Parse(s)
	if err != nil {
		return nil, err
	}
	if t.Kind != types.StructKind {
		return nil, errors.E("schema", s, errors.TypeCheck, errors.New("not a struct type"))
	}
	return t, nil
}

func response(v values.T, t *types.T) (*engine.Response, error) {
	p, err := values.MarshalJSON(v, t)
	if err != nil {
		return nil, err
	}
	return &engine.Response{Type: t.String(), Value: p}, nil
}

// Handles returns the handles of the datasets held by the engine,
// in sorted order.
func (e *Engine) Handles() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	handles := make([]string, 0, len(e.datasets))
	for h := range e.datasets {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}
