// Package gremlin implements the query-builder contract as Gremlin
// traversal scripts and the client adapter for Apache TinkerPop servers.
package gremlin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/schema"
)

// Builder renders primitive graph operations as Gremlin traversal text
// with request bindings. Fragments carry traversal steps in Match; the
// Where portion is unused in this language.
//
// Gremlin servers apply each submitted traversal independently, so a
// request that fails midway leaves earlier traversals applied. Begin and
// Commit on the client adapter are no-ops; callers that need atomicity
// should target the Cypher backend.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

var _ backend.QueryBuilder = (*Builder)(nil)

var gremlinOps = map[string]string{
	schema.OpEQ:          "eq",
	schema.OpNOTEQ:       "neq",
	schema.OpCONTAINS:    "containing",
	schema.OpNOTCONTAINS: "notContaining",
	schema.OpIN:          "within",
	schema.OpNOTIN:       "without",
	schema.OpGT:          "gt",
	schema.OpGTE:         "gte",
	schema.OpLT:          "lt",
	schema.OpLTE:         "lte",
}

func (b *Builder) CreateNode(v *backend.NodeVar, props map[string]any) (backend.Statement, error) {
	if err := backend.CheckIdentifier("label", v.Label); err != nil {
		return backend.Statement{}, err
	}
	var q strings.Builder
	params := map[string]any{}
	q.WriteString("g.addV('" + v.Label + "')")
	if err := writeProps(&q, v.Suffix, props, params); err != nil {
		return backend.Statement{}, err
	}
	q.WriteString(".elementMap()")
	return backend.Statement{Query: q.String(), Params: params}, nil
}

func (b *Builder) CreateRels(src, dst backend.Fragment, v *backend.RelVar, props map[string]any) (backend.Statement, error) {
	if err := backend.CheckIdentifier("relationship label", v.Label); err != nil {
		return backend.Statement{}, err
	}
	srcAlias := "src" + v.Suffix
	var q strings.Builder
	q.WriteString("g.V()" + src.Match + ".as('" + srcAlias + "')")
	q.WriteString(".V()" + dst.Match)
	q.WriteString(".addE('" + v.Label + "').from('" + srcAlias + "')")
	params := map[string]any{}
	for k, p := range src.Params {
		params[k] = p
	}
	for k, p := range dst.Params {
		params[k] = p
	}
	if err := writeProps(&q, v.Suffix, props, params); err != nil {
		return backend.Statement{}, err
	}
	q.WriteString(projectRel())
	return backend.Statement{Query: q.String(), Params: params}, nil
}

func (b *Builder) NodeReadFragment(relFrags []backend.Fragment, v *backend.NodeVar, props map[string]backend.Comparison, sg *backend.Suffixer) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	var steps strings.Builder
	params := map[string]any{}
	steps.WriteString(".hasLabel('" + v.Label + "')")
	if err := writeHas(&steps, props, params, sg); err != nil {
		return backend.Fragment{}, err
	}
	for _, rf := range relFrags {
		// rel fragments are rooted at the source vertex, so they
		// compose as a filter on the current traverser.
		steps.WriteString(".where(__" + rf.Match + ")")
		for k, p := range rf.Params {
			params[k] = p
		}
	}
	return backend.Fragment{Match: steps.String(), Params: params}, nil
}

func (b *Builder) NodeReadByIDsFragment(v *backend.NodeVar, ids []string) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	key := "id_list" + v.Suffix
	return backend.Fragment{
		Match:  ".hasLabel('" + v.Label + "').has('id', within(" + key + "))",
		Params: map[string]any{key: ids},
	}, nil
}

func (b *Builder) NodeReadStatement(f backend.Fragment, v *backend.NodeVar) (backend.Statement, error) {
	q := "g.V()" + f.Match + ".dedup().elementMap()"
	return backend.Statement{Query: q, Params: copyParams(f.Params)}, nil
}

func (b *Builder) RelReadFragment(srcFrag, dstFrag *backend.Fragment, v *backend.RelVar, props map[string]backend.Comparison, sg *backend.Suffixer) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("relationship label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	var steps strings.Builder
	params := map[string]any{}
	if srcFrag != nil {
		steps.WriteString(srcFrag.Match)
		for k, p := range srcFrag.Params {
			params[k] = p
		}
	}
	steps.WriteString(".outE('" + v.Label + "')")
	if err := writeHas(&steps, props, params, sg); err != nil {
		return backend.Fragment{}, err
	}
	if dstFrag != nil {
		steps.WriteString(".where(inV()" + dstFrag.Match + ")")
		for k, p := range dstFrag.Params {
			params[k] = p
		}
	}
	return backend.Fragment{Match: steps.String(), Params: params}, nil
}

func (b *Builder) RelReadByIDsFragment(v *backend.RelVar, ids []string) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("relationship label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	key := "id_list" + v.Suffix
	return backend.Fragment{
		Match:  ".outE('" + v.Label + "').has('id', within(" + key + "))",
		Params: map[string]any{key: ids},
	}, nil
}

func (b *Builder) RelReadStatement(f backend.Fragment, v *backend.RelVar) (backend.Statement, error) {
	q := "g.V()" + f.Match + ".dedup()" + projectRel()
	return backend.Statement{Query: q, Params: copyParams(f.Params)}, nil
}

func (b *Builder) UpdateNodes(f backend.Fragment, v *backend.NodeVar, props map[string]any) (backend.Statement, error) {
	var q strings.Builder
	q.WriteString("g.V()" + f.Match)
	params := copyParams(f.Params)
	if err := writeProps(&q, v.Suffix, props, params); err != nil {
		return backend.Statement{}, err
	}
	q.WriteString(".dedup().elementMap()")
	return backend.Statement{Query: q.String(), Params: params}, nil
}

func (b *Builder) UpdateRels(f backend.Fragment, v *backend.RelVar, props map[string]any) (backend.Statement, error) {
	var q strings.Builder
	q.WriteString("g.V()" + f.Match)
	params := copyParams(f.Params)
	if err := writeProps(&q, v.Suffix, props, params); err != nil {
		return backend.Statement{}, err
	}
	q.WriteString(".dedup()" + projectRel())
	return backend.Statement{Query: q.String(), Params: params}, nil
}

// DeleteNodes drops matched vertices. Gremlin drop always removes incident
// edges, so the cascade flag does not change the traversal; the engine
// enforces the non-cascade edge check before issuing the delete.
func (b *Builder) DeleteNodes(f backend.Fragment, v *backend.NodeVar, cascade bool) (backend.Statement, error) {
	q := "g.V()" + f.Match + ".sideEffect(drop()).count()"
	return backend.Statement{Query: q, Params: copyParams(f.Params)}, nil
}

func (b *Builder) DeleteRels(f backend.Fragment, v *backend.RelVar) (backend.Statement, error) {
	q := "g.V()" + f.Match + ".sideEffect(drop()).count()"
	return backend.Statement{Query: q, Params: copyParams(f.Params)}, nil
}

func (b *Builder) DecodeNodes(rows []backend.RawRow) ([]backend.NodeCell, error) {
	out := make([]backend.NodeCell, 0, len(rows))
	for _, row := range rows {
		cell, ok := row["value"].(backend.NodeCell)
		if !ok {
			return nil, fmt.Errorf("row missing vertex value: %v", row)
		}
		out = append(out, cell)
	}
	return out, nil
}

func (b *Builder) DecodeRels(rows []backend.RawRow) ([]backend.RelCell, error) {
	out := make([]backend.RelCell, 0, len(rows))
	for _, row := range rows {
		rel, ok := row["rel"].(backend.RelCell)
		if !ok {
			return nil, fmt.Errorf("row missing rel alias: %v", row)
		}
		if src, ok := row["src"].(backend.NodeCell); ok {
			rel.SrcID = src.ID
			rel.Src = &src
		}
		if dst, ok := row["dst"].(backend.NodeCell); ok {
			rel.DstID = dst.ID
			rel.Dst = &dst
		}
		out = append(out, rel)
	}
	return out, nil
}

func (b *Builder) DecodeCount(rows []backend.RawRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	switch c := rows[0]["value"].(type) {
	case int:
		return c, nil
	case int32:
		return int(c), nil
	case int64:
		return int(c), nil
	default:
		return 0, fmt.Errorf("row missing count value: %v", rows[0])
	}
}

func projectRel() string {
	return ".project('src', 'rel', 'dst')" +
		".by(outV().elementMap()).by(elementMap()).by(inV().elementMap())"
}

func writeProps(q *strings.Builder, suffix string, props map[string]any, params map[string]any) error {
	for _, k := range sortedKeys(props) {
		if err := backend.CheckIdentifier("property", k); err != nil {
			return err
		}
		binding := k + suffix
		q.WriteString(".property('" + k + "', " + binding + ")")
		params[binding] = props[k]
	}
	return nil
}

func writeHas(q *strings.Builder, props map[string]backend.Comparison, params map[string]any, sg *backend.Suffixer) error {
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := backend.CheckIdentifier("property", name); err != nil {
			return err
		}
		c := props[name]
		pred, ok := gremlinOps[c.Op]
		if !ok {
			return fmt.Errorf("unsupported comparison operator %q", c.Op)
		}
		binding := name + sg.Next()
		has := pred + "(" + binding + ")"
		if c.Negated {
			has = "not(" + has + ")"
		}
		q.WriteString(".has('" + name + "', " + has + ")")
		params[binding] = c.Operand
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyParams(src map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range src {
		out[k] = v
	}
	return out
}
