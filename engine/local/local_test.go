// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package local

import (
	"context"
	"fmt"
	"testing"

	"github.com/grailbio/hailexpr/agg"
	"github.com/grailbio/hailexpr/engine"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

func aggregateRequest(t *testing.T, handle string, e *expr.Expr) *engine.Request {
	t.Helper()
	ast, err := e.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	return &engine.Request{Op: engine.OpAggregate, Dataset: handle, Type: e.Type.String(), AST: ast}
}

func newEngine() *Engine {
	e := &Engine{Parallelism: 2}
	row := types.Struct(types.F("x", types.Int64))
	for i := 0; i < 4; i++ {
		parts := make([][]values.T, i+1)
		for j := range parts {
			parts[j] = []values.T{values.Struct{"x": int64(j)}}
		}
		e.Register(fmt.Sprint("t", i), &Dataset{
			Schema:     engine.Schema{Row: row.String()},
			Partitions: parts,
		})
	}
	return e
}

func TestExecuteAll(t *testing.T) {
	e := newEngine()
	x := expr.Ref("x", types.Int64, expr.AxisRow)
	reqs := make([]*engine.Request, 4)
	for i := range reqs {
		reqs[i] = aggregateRequest(t, fmt.Sprint("t", i), agg.Sum(x))
	}
	resps, err := e.ExecuteAll(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	for i, resp := range resps {
		v, err := values.UnmarshalJSON(resp.Value, types.Int64)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := v, values.T(int64(i*(i+1)/2)); !values.Equal(got, want) {
			t.Errorf("t%d: got %v, want %v", i, got, want)
		}
	}
	if got, want := len(e.Requests()), len(reqs); got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	reqs = append(reqs, aggregateRequest(t, "missing", agg.Count()))
	_, err = e.ExecuteAll(context.Background(), reqs)
	if !errors.Is(errors.NotExist, err) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestExecuteErrors(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	resp, err := e.Execute(ctx, &engine.Request{Op: "frobnicate"})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(errors.NotSupported, resp.Err()) {
		t.Errorf("expected not supported error, got %v", resp.Err())
	}

	resp, err = e.Execute(ctx, &engine.Request{Op: engine.OpReadTable, Args: engine.Args{"path": "nope"}})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(errors.NotExist, resp.Err()) {
		t.Errorf("expected not exist error, got %v", resp.Err())
	}

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Execute(ctx, &engine.Request{Op: engine.OpEval}); err == nil {
		t.Error("expected error")
	}
	if got, want := len(e.Requests()), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLoad(t *testing.T) {
	e := new(Engine)
	d := &Dataset{Schema: engine.Schema{Row: "struct{s: str}", RowKey: []string{"s"}}}
	e.RegisterPath("a.tsv", d)
	ctx := context.Background()
	var handles []string
	for _, paths := range []interface{}{[]string{"a.tsv"}, []interface{}{"a.tsv"}} {
		resp, err := e.Execute(ctx, &engine.Request{Op: engine.OpImportTable, Args: engine.Args{"paths": paths}})
		if err != nil {
			t.Fatal(err)
		}
		if err := resp.Err(); err != nil {
			t.Fatal(err)
		}
		if got, want := resp.Schema.RowKey, []string{"s"}; len(got) != 1 || got[0] != want[0] {
			t.Errorf("got %v, want %v", got, want)
		}
		handles = append(handles, resp.Handle)
	}
	if handles[0] == handles[1] {
		t.Errorf("handles %v are not distinct", handles)
	}
	if got, want := e.Handles(), []string{"import_table-1", "import_table-2"}; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
}
