package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/gwerrors"
	"github.com/graphweave/graphweave/model"
	"github.com/graphweave/graphweave/schema"
)

func asMap(shape string, v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &gwerrors.CompilationError{Shape: shape, Got: fmt.Sprintf("%T", v)}
	}
	return m, nil
}

// asSlice normalizes a field value to a slice: a bare value is a
// one-element list.
func asSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

// parseComparison reads one query-input scalar value. A bare scalar means
// equality; a single-entry map keyed by an operator name is an explicit
// comparison.
func parseComparison(shape, field string, v any) (backend.Comparison, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return backend.Comparison{Op: schema.OpEQ, Operand: v}, nil
	}
	if len(m) != 1 {
		return backend.Comparison{}, &gwerrors.CompilationError{
			Shape: shape,
			Got:   fmt.Sprintf("field %s: comparison with %d operators", field, len(m)),
		}
	}
	for op, operand := range m {
		if !schema.ComparisonOps[op] {
			return backend.Comparison{}, &gwerrors.CompilationError{
				Shape: shape,
				Got:   fmt.Sprintf("field %s: unknown operator %q", field, op),
			}
		}
		return backend.Comparison{Op: op, Operand: operand}, nil
	}
	return backend.Comparison{}, nil // unreachable
}

// splitWriteInput separates a create/update mutation input into scalar
// property values and relationship sub-inputs, validating field names
// against the shape and running registered validators on scalar values.
// Required fields are enforced only for creates; updates are partial.
func (r *request) splitWriteInput(ctx context.Context, shape *schema.Shape, input map[string]any, enforceRequired bool) (props map[string]any, rels map[string]any, err error) {
	props = map[string]any{}
	rels = map[string]any{}
	for name, value := range input {
		f, ok := shape.Field(name)
		if !ok {
			return nil, nil, &gwerrors.CompilationError{Shape: shape.Name, Got: "unknown field " + name}
		}
		switch f.Kind {
		case schema.KindScalar:
			if err := r.runValidator(ctx, f.Validator, value); err != nil {
				return nil, nil, err
			}
			props[name] = value
		case schema.KindDynamicScalar:
			// resolver-backed values are computed, never stored
			return nil, nil, &gwerrors.CompilationError{Shape: shape.Name, Got: "write to dynamic field " + name}
		default:
			rels[name] = value
		}
	}
	if !enforceRequired {
		return props, rels, nil
	}
	for _, f := range shape.Fields() {
		if f.Kind == schema.KindScalar && f.Required && f.Name != schema.KeyID {
			if _, present := props[f.Name]; !present {
				return nil, nil, &gwerrors.CompilationError{Shape: shape.Name, Got: "missing required field " + f.Name}
			}
		}
	}
	return props, rels, nil
}

func (r *request) runValidator(ctx context.Context, key string, value any) error {
	if key == "" {
		return nil
	}
	fn, ok := r.eng.validators[key]
	if !ok {
		return &gwerrors.ModelError{Kind: gwerrors.ErrUnknownValidator, Item: key}
	}
	if err := fn(ctx, value); err != nil {
		var ve *gwerrors.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		// plain errors still surface as a validation failure
		return &gwerrors.ValidationError{Key: key, Message: err.Error()}
	}
	return nil
}

// singleBranch extracts the one populated branch of a union-style input.
func singleBranch(shape string, input map[string]any) (string, any, error) {
	if len(input) != 1 {
		return "", nil, &gwerrors.CompilationError{
			Shape: shape,
			Got:   fmt.Sprintf("expected exactly one branch, got %d", len(input)),
		}
	}
	for k, v := range input {
		return k, v, nil
	}
	return "", nil, nil // unreachable
}

func cellIDs(cells []backend.NodeCell) []string {
	ids := make([]string, 0, len(cells))
	for _, c := range cells {
		ids = append(ids, c.ID)
	}
	return ids
}

func relCellIDs(cells []backend.RelCell) []string {
	ids := make([]string, 0, len(cells))
	for _, c := range cells {
		ids = append(ids, c.ID)
	}
	return ids
}

func (r *request) nodeVar(t *model.Type, base string) *backend.NodeVar {
	return backend.NewNodeVar(t.Name, base, r.sg.Next())
}

func (r *request) relVar(rel *model.Relationship, src, dst *backend.NodeVar) *backend.RelVar {
	return backend.NewRelVar(rel.Name, r.sg.Next(), src, dst)
}
