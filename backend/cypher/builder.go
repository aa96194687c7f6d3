// Package cypher implements the query-builder contract for Cypher-speaking
// graph databases and the connection adapter for Neo4j.
package cypher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/schema"
)

// Builder renders primitive graph operations as Cypher statements. It is
// stateless and safe for concurrent use.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

var _ backend.QueryBuilder = (*Builder)(nil)

var cypherOps = map[string]string{
	schema.OpEQ:       "=",
	schema.OpNOTEQ:    "<>",
	schema.OpCONTAINS: "CONTAINS",
	schema.OpIN:       "IN",
	schema.OpGT:       ">",
	schema.OpGTE:      ">=",
	schema.OpLT:       "<",
	schema.OpLTE:      "<=",
}

// negated ops render as NOT around the positive form.
var cypherNegOps = map[string]string{
	schema.OpNOTCONTAINS: "CONTAINS",
	schema.OpNOTIN:       "IN",
}

func renderComparison(varName, prop, paramKey string, c backend.Comparison) (string, error) {
	op, negate := cypherOps[c.Op], c.Negated
	if op == "" {
		if op = cypherNegOps[c.Op]; op == "" {
			return "", fmt.Errorf("unsupported comparison operator %q", c.Op)
		}
		negate = !negate
	}
	clause := varName + "." + prop + " " + op + " $" + paramKey
	if negate {
		clause = "NOT (" + clause + ")"
	}
	return clause, nil
}

func sortedCompKeys(m map[string]backend.Comparison) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Builder) CreateNode(v *backend.NodeVar, props map[string]any) (backend.Statement, error) {
	if err := backend.CheckIdentifier("label", v.Label); err != nil {
		return backend.Statement{}, err
	}
	propsKey := "props" + v.Suffix
	q := "CREATE (" + v.Name() + ":" + v.Label + ")\n" +
		"SET " + v.Name() + " += $" + propsKey + "\n" +
		"RETURN " + v.Name() + " as node\n"
	return backend.Statement{
		Query:  q,
		Params: map[string]any{propsKey: props},
	}, nil
}

func (b *Builder) CreateRels(src, dst backend.Fragment, v *backend.RelVar, props map[string]any) (backend.Statement, error) {
	if err := backend.CheckIdentifier("relationship label", v.Label); err != nil {
		return backend.Statement{}, err
	}
	propsKey := "props" + v.Suffix
	var q strings.Builder
	q.WriteString("MATCH " + src.Match + ", " + dst.Match + "\n")
	if w := joinWhere(src.Where, dst.Where); w != "" {
		q.WriteString("WHERE " + w + "\n")
	}
	q.WriteString("CREATE (" + v.Src.Name() + ")-[" + v.Name() + ":" + v.Label + "]->(" + v.Dst.Name() + ")\n")
	q.WriteString("SET " + v.Name() + " += $" + propsKey + "\n")
	q.WriteString(returnRel(v))

	params := mergeParams(src.Params, dst.Params)
	params[propsKey] = props
	return backend.Statement{Query: q.String(), Params: params}, nil
}

func (b *Builder) NodeReadFragment(relFrags []backend.Fragment, v *backend.NodeVar, props map[string]backend.Comparison, sg *backend.Suffixer) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	params := map[string]any{}
	var wheres []string

	for _, name := range sortedCompKeys(props) {
		if err := backend.CheckIdentifier("property", name); err != nil {
			return backend.Fragment{}, err
		}
		c := props[name]
		paramKey := name + sg.Next()
		clause, err := renderComparison(v.Name(), name, paramKey, c)
		if err != nil {
			return backend.Fragment{}, err
		}
		wheres = append(wheres, clause)
		params[paramKey] = c.Operand
	}

	match := "(" + v.Name() + ":" + v.Label + ")"
	for _, rf := range relFrags {
		if rf.Match != "" {
			match += ", " + rf.Match
		}
		if rf.Where != "" {
			wheres = append(wheres, rf.Where)
		}
		params = mergeParams(params, rf.Params)
	}

	return backend.Fragment{
		Match:  match,
		Where:  strings.Join(wheres, " AND "),
		Params: params,
	}, nil
}

func (b *Builder) NodeReadByIDsFragment(v *backend.NodeVar, ids []string) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	key := "id_list" + v.Suffix
	return backend.Fragment{
		Match:  "(" + v.Name() + ":" + v.Label + ")",
		Where:  v.Name() + ".id IN $" + key,
		Params: map[string]any{key: ids},
	}, nil
}

func (b *Builder) NodeReadStatement(f backend.Fragment, v *backend.NodeVar) (backend.Statement, error) {
	var q strings.Builder
	q.WriteString("MATCH " + f.Match + "\n")
	if f.Where != "" {
		q.WriteString("WHERE " + f.Where + "\n")
	}
	q.WriteString("RETURN DISTINCT " + v.Name() + " as node\n")
	return backend.Statement{Query: q.String(), Params: copyParams(f.Params)}, nil
}

func (b *Builder) RelReadFragment(srcFrag, dstFrag *backend.Fragment, v *backend.RelVar, props map[string]backend.Comparison, sg *backend.Suffixer) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("relationship label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	params := map[string]any{}
	var wheres []string

	for _, name := range sortedCompKeys(props) {
		if err := backend.CheckIdentifier("property", name); err != nil {
			return backend.Fragment{}, err
		}
		c := props[name]
		paramKey := name + sg.Next()
		clause, err := renderComparison(v.Name(), name, paramKey, c)
		if err != nil {
			return backend.Fragment{}, err
		}
		wheres = append(wheres, clause)
		params[paramKey] = c.Operand
	}

	match := "(" + v.Src.Name() + srcLabel(v.Src) + ")-[" + v.Name() + ":" + v.Label + "]->(" +
		v.Dst.Name() + srcLabel(v.Dst) + ")"

	// endpoint fragments join on the shared variable names; their match
	// patterns carry any nested constraints.
	if srcFrag != nil {
		if srcFrag.Match != "" {
			match += ", " + srcFrag.Match
		}
		if srcFrag.Where != "" {
			wheres = append(wheres, srcFrag.Where)
		}
		params = mergeParams(params, srcFrag.Params)
	}
	if dstFrag != nil {
		if dstFrag.Match != "" {
			match += ", " + dstFrag.Match
		}
		if dstFrag.Where != "" {
			wheres = append(wheres, dstFrag.Where)
		}
		params = mergeParams(params, dstFrag.Params)
	}

	return backend.Fragment{
		Match:  match,
		Where:  strings.Join(wheres, " AND "),
		Params: params,
	}, nil
}

func (b *Builder) RelReadByIDsFragment(v *backend.RelVar, ids []string) (backend.Fragment, error) {
	if err := backend.CheckIdentifier("relationship label", v.Label); err != nil {
		return backend.Fragment{}, err
	}
	key := "id_list" + v.Suffix
	match := "(" + v.Src.Name() + srcLabel(v.Src) + ")-[" + v.Name() + ":" + v.Label + "]->(" +
		v.Dst.Name() + srcLabel(v.Dst) + ")"
	return backend.Fragment{
		Match:  match,
		Where:  v.Name() + ".id IN $" + key,
		Params: map[string]any{key: ids},
	}, nil
}

func (b *Builder) RelReadStatement(f backend.Fragment, v *backend.RelVar) (backend.Statement, error) {
	var q strings.Builder
	q.WriteString("MATCH " + f.Match + "\n")
	if f.Where != "" {
		q.WriteString("WHERE " + f.Where + "\n")
	}
	q.WriteString(returnRel(v))
	return backend.Statement{Query: q.String(), Params: copyParams(f.Params)}, nil
}

func (b *Builder) UpdateNodes(f backend.Fragment, v *backend.NodeVar, props map[string]any) (backend.Statement, error) {
	propsKey := "props" + v.Suffix
	var q strings.Builder
	q.WriteString("MATCH " + f.Match + "\n")
	if f.Where != "" {
		q.WriteString("WHERE " + f.Where + "\n")
	}
	q.WriteString("SET " + v.Name() + " += $" + propsKey + "\n")
	q.WriteString("RETURN DISTINCT " + v.Name() + " as node\n")
	params := copyParams(f.Params)
	params[propsKey] = props
	return backend.Statement{Query: q.String(), Params: params}, nil
}

func (b *Builder) UpdateRels(f backend.Fragment, v *backend.RelVar, props map[string]any) (backend.Statement, error) {
	propsKey := "props" + v.Suffix
	var q strings.Builder
	q.WriteString("MATCH " + f.Match + "\n")
	if f.Where != "" {
		q.WriteString("WHERE " + f.Where + "\n")
	}
	q.WriteString("SET " + v.Name() + " += $" + propsKey + "\n")
	q.WriteString(returnRel(v))
	params := copyParams(f.Params)
	params[propsKey] = props
	return backend.Statement{Query: q.String(), Params: params}, nil
}

func (b *Builder) DeleteNodes(f backend.Fragment, v *backend.NodeVar, cascade bool) (backend.Statement, error) {
	del := "DELETE"
	if cascade {
		del = "DETACH DELETE"
	}
	var q strings.Builder
	q.WriteString("MATCH " + f.Match + "\n")
	if f.Where != "" {
		q.WriteString("WHERE " + f.Where + "\n")
	}
	q.WriteString(del + " " + v.Name() + "\n")
	q.WriteString("RETURN count(*) as count\n")
	return backend.Statement{Query: q.String(), Params: copyParams(f.Params)}, nil
}

func (b *Builder) DeleteRels(f backend.Fragment, v *backend.RelVar) (backend.Statement, error) {
	var q strings.Builder
	q.WriteString("MATCH " + f.Match + "\n")
	if f.Where != "" {
		q.WriteString("WHERE " + f.Where + "\n")
	}
	q.WriteString("DELETE " + v.Name() + "\n")
	q.WriteString("RETURN count(*) as count\n")
	return backend.Statement{Query: q.String(), Params: copyParams(f.Params)}, nil
}

func (b *Builder) DecodeNodes(rows []backend.RawRow) ([]backend.NodeCell, error) {
	out := make([]backend.NodeCell, 0, len(rows))
	for _, row := range rows {
		cell, ok := row["node"].(backend.NodeCell)
		if !ok {
			return nil, fmt.Errorf("row missing node alias: %v", row)
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
	switch c := rows[0]["count"].(type) {
	case int:
		return c, nil
	case int64:
		return int(c), nil
	case float64:
		return int(c), nil
	default:
		return 0, fmt.Errorf("row missing count alias: %v", rows[0])
	}
}

func returnRel(v *backend.RelVar) string {
	return "RETURN DISTINCT " + v.Src.Name() + " as src, " + v.Name() + " as rel, " + v.Dst.Name() + " as dst\n"
}

func srcLabel(v *backend.NodeVar) string {
	if v.Label == "" {
		return ""
	}
	return ":" + v.Label
}

func joinWhere(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " AND ")
}

func mergeParams(dst map[string]any, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyParams(src map[string]any) map[string]any {
	return mergeParams(map[string]any{}, src)
}
