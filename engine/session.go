// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"fmt"

	"github.com/grailbio/hailexpr/config"
	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/expr"
	"github.com/grailbio/hailexpr/log"
	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/hailexpr/values"
)

// A Session is a connection to an engine, together with the
// configuration and logger of the calls made through it. Every
// call that crosses the engine boundary is made on a session.
type Session struct {
	// Engine is the session's engine.
	Engine Engine
	// Config is the session's configuration.
	Config *config.Config
	// Log is the session's logger.
	Log *log.Logger
}

// NewSession returns a new session on engine e with configuration
// c. If c is nil, the default configuration is used.
func NewSession(e Engine, c *config.Config) *Session {
	if c == nil {
		c = config.Default()
	}
	return &Session{Engine: e, Config: c, Log: c.Logger()}
}

// Execute sends request req to the session's engine. Errors
// carried in the response are returned as errors.
func (s *Session) Execute(ctx context.Context, req *Request) (*Response, error) {
	d := req.Digest()
	s.Log.Debugf("engine: %s %s (%s)", req.Op, req.Dataset, d.Short())
	resp, err := s.Engine.Execute(ctx, req)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		if req.Dataset == "" {
			return nil, errors.E(req.Op, d, err)
		}
		return nil, errors.E(req.Op, req.Dataset, d, err)
	}
	return resp, nil
}

// Eval evaluates expression e, which may not refer to any dataset
// field.
func (s *Session) Eval(ctx context.Context, e *expr.Expr) (values.T, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	if a := expr.Axes(e); a != expr.AxisGlobal {
		return nil, errors.E("eval", errors.Schema, fmt.Errorf("expression is indexed by %v", a))
	}
	if len(expr.Aggregators(e)) > 0 {
		return nil, errors.E("eval", errors.TypeCheck, errors.New("aggregation requires a dataset"))
	}
	return s.evaluate(ctx, OpEval, "", e)
}

// Aggregate evaluates aggregated expression e over the rows of the
// dataset with the provided handle.
func (s *Session) Aggregate(ctx context.Context, handle string, e *expr.Expr) (values.T, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	if a := expr.Axes(e); a != expr.AxisGlobal {
		return nil, errors.E("aggregate", handle, errors.Schema,
			fmt.Errorf("expression is indexed by %v outside of an aggregation", a))
	}
	return s.evaluate(ctx, OpAggregate, handle, e)
}

func (s *Session) evaluate(ctx context.Context, op, handle string, e *expr.Expr) (values.T, error) {
	ast, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}
	resp, err := s.Execute(ctx, &Request{Op: op, Dataset: handle, Type: e.Type.String(), AST: ast})
	if err != nil {
		return nil, err
	}
	t, err := types.Parse(resp.Type)
	if err != nil {
		return nil, errors.E(op, "response type", err)
	}
	if !t.Equal(e.Type) {
		return nil, errors.E(op, errors.TypeCheck,
			fmt.Errorf("engine returned type %v, expected %v", t, e.Type))
	}
	return values.UnmarshalJSON(resp.Value, t)
}
