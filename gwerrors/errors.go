// Package gwerrors defines the error taxonomy surfaced by the engine.
// Every failed request terminates in exactly one of these kinds; raw
// backend driver errors are always wrapped, never returned directly.
package gwerrors

import (
	"errors"
	"fmt"
)

// ModelKind categorizes failures detected while building the model registry
// or the engine itself. All of them are fatal at build time.
type ModelKind int

const (
	ErrDuplicateType ModelKind = iota
	ErrDuplicateProperty
	ErrUnknownDestinationType
	ErrReservedName
	ErrUnsupportedVersion
	ErrUnknownResolver
	ErrUnknownValidator
	ErrMissingComponent
)

func (k ModelKind) String() string {
	switch k {
	case ErrDuplicateType:
		return "duplicate type"
	case ErrDuplicateProperty:
		return "duplicate property"
	case ErrUnknownDestinationType:
		return "unknown destination type"
	case ErrReservedName:
		return "reserved name"
	case ErrUnsupportedVersion:
		return "unsupported document version"
	case ErrUnknownResolver:
		return "unknown resolver key"
	case ErrUnknownValidator:
		return "unknown validator key"
	case ErrMissingComponent:
		return "missing engine component"
	}
	return "model error"
}

// ModelError reports a bad declared model or engine configuration.
type ModelError struct {
	Kind ModelKind
	Item string // offending type/property/key name
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model: %s: %s", e.Kind, e.Item)
}

// Is matches any ModelError with the same Kind, so callers can write
// errors.Is(err, &ModelError{Kind: ErrDuplicateType}).
func (e *ModelError) Is(target error) bool {
	t, ok := target.(*ModelError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Item == "" || t.Item == e.Item)
}

// ValidationError reports an input value rejected by a registered validator.
// No writes have been performed for the rejected sub-tree.
type ValidationError struct {
	Key     string // validator key from the model
	Message string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation (%s): %s", e.Key, e.Message)
}

// CardinalityViolation reports more than one destination for a single
// (list=false) relationship.
type CardinalityViolation struct {
	Type string
	Rel  string
}

func (e *CardinalityViolation) Error() string {
	return fmt.Sprintf("cardinality: relationship %s.%s is single but matched multiple destinations", e.Type, e.Rel)
}

// HasRelationshipsError blocks a non-forced delete of a node that still has
// edges. Retrying without force yields the same error deterministically.
type HasRelationshipsError struct {
	Type string
	ID   string
}

func (e *HasRelationshipsError) Error() string {
	return fmt.Sprintf("delete blocked: %s node %s still has relationships (use force to cascade)", e.Type, e.ID)
}

// BackendError wraps a connection, protocol, or timeout failure from the
// bound backend.
type BackendError struct {
	Op      string // primitive operation that failed
	Timeout bool
	Err     error
}

func (e *BackendError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("backend timeout during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend failure during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ResolverError surfaces a dynamic property/relationship resolver failure
// verbatim.
type ResolverError struct {
	Key string
	Err error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolver %s: %v", e.Key, e.Err)
}

func (e *ResolverError) Unwrap() error { return e.Err }

// HookError surfaces a lifecycle hook failure verbatim.
type HookError struct {
	Event string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s: %v", e.Event, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// CompilationError reports a shape/input mismatch inside the compiler. It
// indicates a bug in the engine or a hand-built input that bypassed the
// derived shapes, not a user-recoverable condition.
type CompilationError struct {
	Shape string
	Got   string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation: shape %s: unexpected input %s", e.Shape, e.Got)
}

// IsTimeout reports whether err is a BackendError caused by a deadline.
func IsTimeout(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Timeout
}
