// Package ext is the extension surface: dynamic property resolvers,
// input validators, and lifecycle hooks. Extensions are registered by
// string key or type name at engine build time and dispatched during
// request execution.
package ext

import (
	"context"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/gwerrors"
)

// ResolverFunc computes the value of a dynamic property or dynamic
// relationship at read time. The returned value is spliced into the
// output in place of stored data.
type ResolverFunc func(ctx context.Context, f *Facade) (any, error)

// ValidatorFunc checks one input value before it is written. Returning
// a *gwerrors.ValidationError rejects the whole request.
type ValidatorFunc func(ctx context.Context, value any) error

// Facade is the request-scoped view handed to a resolver: what operation
// is running, which node the dynamic field hangs off, and a way to run
// further queries inside the same request connection.
type Facade struct {
	// Op is the operation name being executed, such as UserCreate.
	Op string
	// TypeName and FieldName locate the dynamic field being resolved.
	TypeName  string
	FieldName string
	// NodeID and NodeProps describe the node the field belongs to.
	NodeID    string
	NodeProps map[string]any
	// Args carries the query input supplied for the dynamic field, if any.
	Args map[string]any
	// AppData is the application value passed in engine options.
	AppData any

	conn backend.Connection
}

// NewFacade is used by the engine; resolvers receive the built value.
func NewFacade(op, typeName, fieldName, nodeID string, props map[string]any, args map[string]any, appData any, conn backend.Connection) *Facade {
	return &Facade{
		Op:        op,
		TypeName:  typeName,
		FieldName: fieldName,
		NodeID:    nodeID,
		NodeProps: props,
		Args:      args,
		AppData:   appData,
		conn:      conn,
	}
}

// Exec runs a statement on the connection serving the current request,
// inside its transaction where the backend supports one.
func (f *Facade) Exec(ctx context.Context, stmt backend.Statement) ([]backend.RawRow, error) {
	return f.conn.Execute(ctx, stmt)
}

// Event names a lifecycle point a hook can attach to.
type Event string

const (
	EventEngineBuild   Event = "engine_build"
	EventBeforeRequest Event = "before_request"
	EventAfterRequest  Event = "after_request"
	EventBeforeCreate  Event = "before_create"
	EventAfterCreate   Event = "after_create"
	EventBeforeRead    Event = "before_read"
	EventAfterRead     Event = "after_read"
	EventBeforeUpdate  Event = "before_update"
	EventAfterUpdate   Event = "after_update"
	EventBeforeDelete  Event = "before_delete"
	EventAfterDelete   Event = "after_delete"
)

// BuildHookFunc runs once while the engine is being constructed, after
// the model is registered and shapes are derived.
type BuildHookFunc func(appData any) error

// RequestHookFunc brackets a whole request. Before hooks may rewrite the
// request input; after hooks may rewrite the result.
type RequestHookFunc func(ctx context.Context, appData any, payload any) (any, error)

// InputHookFunc rewrites the input of one operation on one type before
// it executes.
type InputHookFunc func(ctx context.Context, appData any, input map[string]any) (map[string]any, error)

// OutputHookFunc rewrites the rows an operation produced before they are
// assembled into the response.
type OutputHookFunc func(ctx context.Context, appData any, rows []map[string]any) ([]map[string]any, error)

// HookBag collects hooks. Type-scoped events are keyed by type name for
// node operations and by the operation prefix (ProjectOwner, for the
// owner relationship of Project) for relationship operations. Hooks for
// the same key run in registration order.
type HookBag struct {
	build         []BuildHookFunc
	beforeRequest []RequestHookFunc
	afterRequest  []RequestHookFunc
	beforeInput   map[Event]map[string][]InputHookFunc
	afterOutput   map[Event]map[string][]OutputHookFunc
}

func NewHookBag() *HookBag {
	return &HookBag{
		beforeInput: map[Event]map[string][]InputHookFunc{},
		afterOutput: map[Event]map[string][]OutputHookFunc{},
	}
}

func (h *HookBag) RegisterBuild(fn BuildHookFunc) {
	h.build = append(h.build, fn)
}

func (h *HookBag) RegisterBeforeRequest(fn RequestHookFunc) {
	h.beforeRequest = append(h.beforeRequest, fn)
}

func (h *HookBag) RegisterAfterRequest(fn RequestHookFunc) {
	h.afterRequest = append(h.afterRequest, fn)
}

// RegisterBefore attaches an input hook for a type-scoped before event.
func (h *HookBag) RegisterBefore(ev Event, typeName string, fn InputHookFunc) {
	byType := h.beforeInput[ev]
	if byType == nil {
		byType = map[string][]InputHookFunc{}
		h.beforeInput[ev] = byType
	}
	byType[typeName] = append(byType[typeName], fn)
}

// RegisterAfter attaches an output hook for a type-scoped after event.
func (h *HookBag) RegisterAfter(ev Event, typeName string, fn OutputHookFunc) {
	byType := h.afterOutput[ev]
	if byType == nil {
		byType = map[string][]OutputHookFunc{}
		h.afterOutput[ev] = byType
	}
	byType[typeName] = append(byType[typeName], fn)
}

// RunBuild executes engine-build hooks.
func (h *HookBag) RunBuild(appData any) error {
	if h == nil {
		return nil
	}
	for _, fn := range h.build {
		if err := fn(appData); err != nil {
			return &gwerrors.HookError{Event: string(EventEngineBuild), Err: err}
		}
	}
	return nil
}

// RunBeforeRequest threads the request payload through the before-request
// hooks in order.
func (h *HookBag) RunBeforeRequest(ctx context.Context, appData any, payload any) (any, error) {
	if h == nil {
		return payload, nil
	}
	var err error
	for _, fn := range h.beforeRequest {
		if payload, err = fn(ctx, appData, payload); err != nil {
			return nil, &gwerrors.HookError{Event: string(EventBeforeRequest), Err: err}
		}
	}
	return payload, nil
}

// RunAfterRequest threads the result through the after-request hooks.
func (h *HookBag) RunAfterRequest(ctx context.Context, appData any, result any) (any, error) {
	if h == nil {
		return result, nil
	}
	var err error
	for _, fn := range h.afterRequest {
		if result, err = fn(ctx, appData, result); err != nil {
			return nil, &gwerrors.HookError{Event: string(EventAfterRequest), Err: err}
		}
	}
	return result, nil
}

// RunBefore threads an operation input through the hooks registered for
// the event and type.
func (h *HookBag) RunBefore(ctx context.Context, ev Event, typeName string, appData any, input map[string]any) (map[string]any, error) {
	if h == nil {
		return input, nil
	}
	var err error
	for _, fn := range h.beforeInput[ev][typeName] {
		if input, err = fn(ctx, appData, input); err != nil {
			return nil, &gwerrors.HookError{Event: string(ev), Err: err}
		}
	}
	return input, nil
}

// RunAfter threads operation output rows through the hooks registered
// for the event and type.
func (h *HookBag) RunAfter(ctx context.Context, ev Event, typeName string, appData any, rows []map[string]any) ([]map[string]any, error) {
	if h == nil {
		return rows, nil
	}
	var err error
	for _, fn := range h.afterOutput[ev][typeName] {
		if rows, err = fn(ctx, appData, rows); err != nil {
			return nil, &gwerrors.HookError{Event: string(ev), Err: err}
		}
	}
	return rows, nil
}
