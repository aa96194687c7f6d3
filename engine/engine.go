// Package engine compiles and executes model-derived graph operations
// against a bound query backend. The engine is built once from a model
// document and is safe for concurrent requests; each request runs on one
// connection and, where the backend supports it, one transaction.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/config"
	"github.com/graphweave/graphweave/ext"
	"github.com/graphweave/graphweave/gwerrors"
	"github.com/graphweave/graphweave/model"
	"github.com/graphweave/graphweave/schema"
)

// Options configures a new engine. Document, Builder, and Pool are
// required; everything else defaults to empty.
type Options struct {
	Document   *config.Document
	Builder    backend.QueryBuilder
	Pool       backend.Pool
	Resolvers  map[string]ext.ResolverFunc
	Validators map[string]ext.ValidatorFunc
	Hooks      *ext.HookBag
	AppData    any
	// Timeout bounds each Execute call. Zero means no engine-imposed
	// deadline; the caller's context still applies.
	Timeout time.Duration
}

// Engine executes derived operations. Immutable after New.
type Engine struct {
	reg        *model.Registry
	catalog    *schema.Catalog
	builder    backend.QueryBuilder
	pool       backend.Pool
	resolvers  map[string]ext.ResolverFunc
	validators map[string]ext.ValidatorFunc
	hooks      *ext.HookBag
	appData    any
	timeout    time.Duration
	log        *logrus.Entry
}

// New validates the model, checks that every resolver and validator key
// named in the document is registered, derives the operation catalog, and
// runs engine-build hooks.
func New(opts Options) (*Engine, error) {
	if opts.Document == nil {
		return nil, &gwerrors.ModelError{Kind: gwerrors.ErrMissingComponent, Item: "document"}
	}
	if opts.Builder == nil {
		return nil, &gwerrors.ModelError{Kind: gwerrors.ErrMissingComponent, Item: "builder"}
	}
	if opts.Pool == nil {
		return nil, &gwerrors.ModelError{Kind: gwerrors.ErrMissingComponent, Item: "pool"}
	}

	reg, err := model.NewRegistry(opts.Document)
	if err != nil {
		return nil, err
	}

	for _, key := range reg.ResolverKeys() {
		if _, ok := opts.Resolvers[key]; !ok {
			return nil, &gwerrors.ModelError{Kind: gwerrors.ErrUnknownResolver, Item: key}
		}
	}
	for _, key := range reg.ValidatorKeys() {
		if _, ok := opts.Validators[key]; !ok {
			return nil, &gwerrors.ModelError{Kind: gwerrors.ErrUnknownValidator, Item: key}
		}
	}

	e := &Engine{
		reg:        reg,
		catalog:    schema.Derive(reg),
		builder:    opts.Builder,
		pool:       opts.Pool,
		resolvers:  opts.Resolvers,
		validators: opts.Validators,
		hooks:      opts.Hooks,
		appData:    opts.AppData,
		timeout:    opts.Timeout,
		log:        logrus.WithField("component", "engine"),
	}

	if err := e.hooks.RunBuild(e.appData); err != nil {
		return nil, err
	}
	return e, nil
}

// Registry exposes the validated model.
func (e *Engine) Registry() *model.Registry { return e.reg }

// Catalog exposes the derived shape and operation catalog.
func (e *Engine) Catalog() *schema.Catalog { return e.catalog }

// Execute runs one named operation. Read and update operations return
// []map[string]any, create returns map[string]any, and deletes return an
// int count of removed entities.
func (e *Engine) Execute(ctx context.Context, opName string, input map[string]any) (any, error) {
	op, ok := e.catalog.Operation(opName)
	if !ok {
		return nil, &gwerrors.CompilationError{Shape: opName, Got: "unknown operation"}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	payload, err := e.hooks.RunBeforeRequest(ctx, e.appData, input)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		m, ok := payload.(map[string]any)
		if !ok {
			return nil, &gwerrors.CompilationError{
				Shape: opName,
				Got:   fmt.Sprintf("before-request rewrite of type %T", payload),
			}
		}
		input = m
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	if err := conn.Begin(ctx); err != nil {
		return nil, err
	}

	r := &request{eng: e, op: op, conn: conn, sg: backend.NewSuffixer()}
	result, err := r.run(ctx, input)
	if err != nil {
		conn.Rollback(ctx)
		return nil, err
	}
	if err := conn.Commit(ctx); err != nil {
		return nil, err
	}

	result, err = e.hooks.RunAfterRequest(ctx, e.appData, result)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"op": opName}).Debug("request complete")
	return result, nil
}

// request carries the per-request execution state.
type request struct {
	eng  *Engine
	op   *schema.Operation
	conn backend.Connection
	sg   *backend.Suffixer
}

func (r *request) run(ctx context.Context, input map[string]any) (any, error) {
	t, ok := r.eng.reg.Type(r.op.TypeName)
	if !ok {
		return nil, &gwerrors.CompilationError{Shape: r.op.TypeName, Got: "unknown type"}
	}

	switch r.op.Kind {
	case schema.OpNodeCreate:
		return r.runNodeCreate(ctx, t, input)
	case schema.OpNodeRead:
		return r.runNodeRead(ctx, t, input)
	case schema.OpNodeUpdate:
		return r.runNodeUpdate(ctx, t, input)
	case schema.OpNodeDelete:
		return r.runNodeDelete(ctx, t, input)
	}

	rel, ok := r.eng.reg.Rel(r.op.TypeName, r.op.RelName)
	if !ok {
		return nil, &gwerrors.CompilationError{Shape: r.op.RelName, Got: "unknown relationship"}
	}
	switch r.op.Kind {
	case schema.OpRelRead:
		return r.runRelRead(ctx, t, rel, input)
	case schema.OpRelCreate:
		return r.runRelCreate(ctx, t, rel, input)
	case schema.OpRelUpdate:
		return r.runRelUpdate(ctx, t, rel, input)
	case schema.OpRelDelete:
		return r.runRelDelete(ctx, t, rel, input)
	}
	return nil, &gwerrors.CompilationError{Shape: r.op.Name, Got: "unknown operation kind"}
}

func (r *request) runNodeCreate(ctx context.Context, t *model.Type, input map[string]any) (any, error) {
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeCreate, t.Name, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	cell, err := r.visitNodeCreateMutationInput(ctx, t, input)
	if err != nil {
		return nil, err
	}
	out, err := r.nodeOutput(ctx, t, cell)
	if err != nil {
		return nil, err
	}
	rows, err := r.eng.hooks.RunAfter(ctx, ext.EventAfterCreate, t.Name, r.eng.appData, []map[string]any{out})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *request) runNodeRead(ctx context.Context, t *model.Type, input map[string]any) (any, error) {
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeRead, t.Name, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	cells, err := r.readNodes(ctx, t, input)
	if err != nil {
		return nil, err
	}
	out, err := r.nodeOutputs(ctx, t, cells)
	if err != nil {
		return nil, err
	}
	return r.eng.hooks.RunAfter(ctx, ext.EventAfterRead, t.Name, r.eng.appData, out)
}

func (r *request) runNodeUpdate(ctx context.Context, t *model.Type, input map[string]any) (any, error) {
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeUpdate, t.Name, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	cells, err := r.visitNodeUpdateInput(ctx, t, input)
	if err != nil {
		return nil, err
	}
	out, err := r.nodeOutputs(ctx, t, cells)
	if err != nil {
		return nil, err
	}
	return r.eng.hooks.RunAfter(ctx, ext.EventAfterUpdate, t.Name, r.eng.appData, out)
}

func (r *request) runNodeDelete(ctx context.Context, t *model.Type, input map[string]any) (any, error) {
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeDelete, t.Name, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	count, cells, err := r.visitNodeDeleteInput(ctx, t, input)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, map[string]any{model.IDProp: c.ID})
	}
	if _, err := r.eng.hooks.RunAfter(ctx, ext.EventAfterDelete, t.Name, r.eng.appData, rows); err != nil {
		return nil, err
	}
	return count, nil
}

// relHookKey scopes relationship hooks: the operation prefix, such as
// ProjectOwner, so hooks on a type and on its relationships never collide.
func relHookKey(t *model.Type, rel *model.Relationship) string {
	return schema.RelReadOpName(t.Name, rel.Name)
}

func (r *request) runRelRead(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any) (any, error) {
	key := relHookKey(t, rel)
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeRead, key, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	cells, err := r.readRels(ctx, t, rel, input, nil)
	if err != nil {
		return nil, err
	}
	out, err := r.relOutputs(ctx, t, rel, cells)
	if err != nil {
		return nil, err
	}
	return r.eng.hooks.RunAfter(ctx, ext.EventAfterRead, key, r.eng.appData, out)
}

func (r *request) runRelCreate(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any) (any, error) {
	key := relHookKey(t, rel)
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeCreate, key, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	cells, err := r.visitRelCreateInput(ctx, t, rel, input)
	if err != nil {
		return nil, err
	}
	out, err := r.relOutputs(ctx, t, rel, cells)
	if err != nil {
		return nil, err
	}
	return r.eng.hooks.RunAfter(ctx, ext.EventAfterCreate, key, r.eng.appData, out)
}

func (r *request) runRelUpdate(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any) (any, error) {
	key := relHookKey(t, rel)
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeUpdate, key, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	cells, err := r.visitRelUpdateInput(ctx, t, rel, input, nil)
	if err != nil {
		return nil, err
	}
	out, err := r.relOutputs(ctx, t, rel, cells)
	if err != nil {
		return nil, err
	}
	return r.eng.hooks.RunAfter(ctx, ext.EventAfterUpdate, key, r.eng.appData, out)
}

func (r *request) runRelDelete(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any) (any, error) {
	key := relHookKey(t, rel)
	input, err := r.eng.hooks.RunBefore(ctx, ext.EventBeforeDelete, key, r.eng.appData, input)
	if err != nil {
		return nil, err
	}
	count, cells, err := r.visitRelDeleteInput(ctx, t, rel, input, nil)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, map[string]any{model.IDProp: c.ID})
	}
	if _, err := r.eng.hooks.RunAfter(ctx, ext.EventAfterDelete, key, r.eng.appData, rows); err != nil {
		return nil, err
	}
	return count, nil
}
