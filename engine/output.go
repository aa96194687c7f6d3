package engine

import (
	"context"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/ext"
	"github.com/graphweave/graphweave/gwerrors"
	"github.com/graphweave/graphweave/model"
	"github.com/graphweave/graphweave/schema"
)

// nodeOutput assembles the output object for one node: id, stored props
// that are output-enabled, and resolver-computed dynamic fields.
func (r *request) nodeOutput(ctx context.Context, t *model.Type, cell backend.NodeCell) (map[string]any, error) {
	out := map[string]any{model.IDProp: cell.ID}

	for _, p := range t.Props {
		if !p.Uses.InOutput() {
			continue
		}
		if p.Dynamic() {
			val, err := r.resolve(ctx, p.Resolver, t.Name, p.Name, cell, nil)
			if err != nil {
				return nil, err
			}
			out[p.Name] = val
			continue
		}
		if val, ok := cell.Props[p.Name]; ok {
			out[p.Name] = val
		}
	}

	for i := range t.Rels {
		rel := &t.Rels[i]
		if !rel.Dynamic() {
			continue
		}
		val, err := r.resolve(ctx, rel.Resolver, t.Name, rel.Name, cell, nil)
		if err != nil {
			return nil, err
		}
		out[rel.Name] = val
	}
	return out, nil
}

func (r *request) nodeOutputs(ctx context.Context, t *model.Type, cells []backend.NodeCell) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(cells))
	for _, c := range cells {
		m, err := r.nodeOutput(ctx, t, c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// relOutputs assembles relationship output objects: id, output-enabled
// props, and fully assembled src and dst node objects.
func (r *request) relOutputs(ctx context.Context, t *model.Type, rel *model.Relationship, cells []backend.RelCell) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(cells))
	for _, c := range cells {
		m := map[string]any{model.IDProp: c.ID}

		if len(rel.Props) > 0 {
			props := map[string]any{}
			for _, p := range rel.Props {
				if !p.Uses.InOutput() {
					continue
				}
				if val, ok := c.Props[p.Name]; ok {
					props[p.Name] = val
				}
			}
			m[schema.KeyProps] = props
		}

		if c.Src != nil {
			src, err := r.nodeOutput(ctx, t, *c.Src)
			if err != nil {
				return nil, err
			}
			m[schema.KeySrc] = src
		}
		if c.Dst != nil {
			dt, ok := r.eng.reg.Type(c.Dst.Label)
			if !ok {
				return nil, &gwerrors.CompilationError{Shape: rel.Name, Got: "destination with unknown label " + c.Dst.Label}
			}
			dst, err := r.nodeOutput(ctx, dt, *c.Dst)
			if err != nil {
				return nil, err
			}
			m[schema.KeyDst] = dst
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *request) resolve(ctx context.Context, key, typeName, fieldName string, cell backend.NodeCell, args map[string]any) (any, error) {
	fn, ok := r.eng.resolvers[key]
	if !ok {
		return nil, &gwerrors.ModelError{Kind: gwerrors.ErrUnknownResolver, Item: key}
	}
	f := ext.NewFacade(r.op.Name, typeName, fieldName, cell.ID, cell.Props, args, r.eng.appData, r.conn)
	val, err := fn(ctx, f)
	if err != nil {
		return nil, &gwerrors.ResolverError{Key: key, Err: err}
	}
	return val, nil
}
