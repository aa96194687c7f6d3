package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/gwerrors"
	"github.com/graphweave/graphweave/model"
	"github.com/graphweave/graphweave/schema"
)

// --- node reads ---

// visitNodeQueryInput lowers one query input into a backend fragment
// rooted at v. Nested relationship filters become sub-fragments joined on
// the shared variable.
func (r *request) visitNodeQueryInput(ctx context.Context, t *model.Type, input map[string]any, v *backend.NodeVar) (backend.Fragment, error) {
	shapeName := schema.NodeQueryInputName(t.Name)
	shape, _ := r.eng.catalog.Shape(shapeName)

	comps := map[string]backend.Comparison{}
	var relFrags []backend.Fragment

	for name, value := range input {
		f, ok := shape.Field(name)
		if !ok {
			return backend.Fragment{}, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown field " + name}
		}
		switch f.Kind {
		case schema.KindScalar:
			c, err := parseComparison(shapeName, name, value)
			if err != nil {
				return backend.Fragment{}, err
			}
			comps[name] = c
		case schema.KindInput:
			rel, ok := t.RelByName(f.RelName)
			if !ok {
				return backend.Fragment{}, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown relationship " + f.RelName}
			}
			relInput, err := asMap(f.TypeName, value)
			if err != nil {
				return backend.Fragment{}, err
			}
			matches, err := r.visitRelQueryInput(ctx, t, rel, relInput, v)
			if err != nil {
				return backend.Fragment{}, err
			}
			for _, m := range matches {
				relFrags = append(relFrags, m.frag)
			}
		default:
			return backend.Fragment{}, &gwerrors.CompilationError{Shape: shapeName, Got: "unqueryable field " + name}
		}
	}

	return r.eng.builder.NodeReadFragment(relFrags, v, comps, r.sg)
}

func (r *request) readNodes(ctx context.Context, t *model.Type, input map[string]any) ([]backend.NodeCell, error) {
	v := r.nodeVar(t, "node")
	frag, err := r.visitNodeQueryInput(ctx, t, input, v)
	if err != nil {
		return nil, err
	}
	stmt, err := r.eng.builder.NodeReadStatement(frag, v)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return r.eng.builder.DecodeNodes(rows)
}

// --- rel reads ---

// relMatch pairs a lowered relationship fragment with the variables it
// was built around, so statements can reference them.
type relMatch struct {
	frag backend.Fragment
	rv   *backend.RelVar
}

// visitRelQueryInput lowers one relationship query input into fragments
// rooted at srcVar, one per destination branch in play.
func (r *request) visitRelQueryInput(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any, srcVar *backend.NodeVar) ([]relMatch, error) {
	shapeName := schema.RelQueryInputName(t.Name, rel.Name)

	comps := map[string]backend.Comparison{}
	var srcFrag *backend.Fragment
	dstQueries := map[string]map[string]any{} // dst type -> query input

	for name, value := range input {
		switch name {
		case schema.KeyID:
			c, err := parseComparison(shapeName, name, value)
			if err != nil {
				return nil, err
			}
			comps[schema.KeyID] = c
		case schema.KeyProps:
			props, err := asMap(shapeName, value)
			if err != nil {
				return nil, err
			}
			for pn, pv := range props {
				if _, ok := rel.Prop(pn); !ok {
					return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown rel property " + pn}
				}
				c, err := parseComparison(shapeName, pn, pv)
				if err != nil {
					return nil, err
				}
				comps[pn] = c
			}
		case schema.KeySrc:
			srcInput, err := asMap(shapeName, value)
			if err != nil {
				return nil, err
			}
			query, err := asMap(shapeName, srcInput[t.Name])
			if err != nil {
				return nil, err
			}
			f, err := r.visitNodeQueryInput(ctx, t, query, srcVar)
			if err != nil {
				return nil, err
			}
			srcFrag = &f
		case schema.KeyDst:
			dstInput, err := asMap(shapeName, value)
			if err != nil {
				return nil, err
			}
			for branch, bq := range dstInput {
				dt, ok := r.eng.reg.Type(branch)
				if !ok || !relTargets(rel, dt.Name) {
					return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown destination branch " + branch}
				}
				query, err := asMap(shapeName, bq)
				if err != nil {
					return nil, err
				}
				dstQueries[branch] = query
			}
		default:
			return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown field " + name}
		}
	}

	// no destination filter: one fragment, label pinned only when the
	// relationship has a single destination type
	if len(dstQueries) == 0 {
		label := ""
		if !rel.Union() {
			label = rel.Nodes[0]
		}
		dstVar := backend.NewNodeVar(label, "dst", r.sg.Next())
		rv := r.relVar(rel, srcVar, dstVar)
		frag, err := r.eng.builder.RelReadFragment(srcFrag, nil, rv, comps, r.sg)
		if err != nil {
			return nil, err
		}
		return []relMatch{{frag: frag, rv: rv}}, nil
	}

	var matches []relMatch
	for _, branch := range rel.Nodes {
		query, ok := dstQueries[branch]
		if !ok {
			continue
		}
		dt, _ := r.eng.reg.Type(branch)
		dstVar := r.nodeVar(dt, "dst")
		dstFrag, err := r.visitNodeQueryInput(ctx, dt, query, dstVar)
		if err != nil {
			return nil, err
		}
		rv := r.relVar(rel, srcVar, dstVar)
		frag, err := r.eng.builder.RelReadFragment(srcFrag, &dstFrag, rv, comps, r.sg)
		if err != nil {
			return nil, err
		}
		matches = append(matches, relMatch{frag: frag, rv: rv})
	}
	return matches, nil
}

// readRels matches relationships. A non-nil scopeSrcIDs pins the source
// set by injecting an id filter into the source query.
func (r *request) readRels(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any, scopeSrcIDs []string) ([]backend.RelCell, error) {
	if scopeSrcIDs != nil {
		input = scopeRelQuery(input, t.Name, scopeSrcIDs)
	}
	srcVar := r.nodeVar(t, "src")
	matches, err := r.visitRelQueryInput(ctx, t, rel, input, srcVar)
	if err != nil {
		return nil, err
	}

	var cells []backend.RelCell
	for _, m := range matches {
		stmt, err := r.eng.builder.RelReadStatement(m.frag, m.rv)
		if err != nil {
			return nil, err
		}
		rows, err := r.conn.Execute(ctx, stmt)
		if err != nil {
			return nil, err
		}
		decoded, err := r.eng.builder.DecodeRels(rows)
		if err != nil {
			return nil, err
		}
		cells = append(cells, decoded...)
	}
	return cells, nil
}

// --- creates ---

// visitNodeCreateMutationInput creates one node, then its nested
// relationships. The node id is assigned here, never by the database.
func (r *request) visitNodeCreateMutationInput(ctx context.Context, t *model.Type, input map[string]any) (backend.NodeCell, error) {
	shape, _ := r.eng.catalog.Shape(schema.NodeCreateMutationInputName(t.Name))
	props, relInputs, err := r.splitWriteInput(ctx, shape, input, true)
	if err != nil {
		return backend.NodeCell{}, err
	}
	props[model.IDProp] = uuid.NewString()

	v := r.nodeVar(t, "node")
	stmt, err := r.eng.builder.CreateNode(v, props)
	if err != nil {
		return backend.NodeCell{}, err
	}
	rows, err := r.conn.Execute(ctx, stmt)
	if err != nil {
		return backend.NodeCell{}, err
	}
	cells, err := r.eng.builder.DecodeNodes(rows)
	if err != nil {
		return backend.NodeCell{}, err
	}
	if len(cells) != 1 {
		return backend.NodeCell{}, &gwerrors.CompilationError{Shape: shape.Name, Got: "create returned no node"}
	}
	cell := cells[0]

	for name, value := range relInputs {
		rel, ok := t.RelByName(name)
		if !ok {
			return backend.NodeCell{}, &gwerrors.CompilationError{Shape: shape.Name, Got: "unknown relationship " + name}
		}
		creates := asSlice(value)
		if !rel.List && len(creates) > 1 {
			return backend.NodeCell{}, &gwerrors.CardinalityViolation{Type: t.Name, Rel: rel.Name}
		}
		for _, c := range creates {
			cm, err := asMap(schema.RelCreateMutationInputName(t.Name, rel.Name), c)
			if err != nil {
				return backend.NodeCell{}, err
			}
			if _, err := r.visitRelCreateMutationInput(ctx, t, rel, []string{cell.ID}, cm); err != nil {
				return backend.NodeCell{}, err
			}
		}
	}
	return cell, nil
}

// visitRelCreateMutationInput attaches destinations to every source node.
// The destination union must select exactly one branch, and that branch
// either matches existing nodes or creates one.
func (r *request) visitRelCreateMutationInput(ctx context.Context, t *model.Type, rel *model.Relationship, srcIDs []string, input map[string]any) ([]backend.RelCell, error) {
	shapeName := schema.RelCreateMutationInputName(t.Name, rel.Name)

	var relProps map[string]any
	if raw, ok := input[schema.KeyProps]; ok {
		propsInput, err := asMap(shapeName, raw)
		if err != nil {
			return nil, err
		}
		propsShape, ok := r.eng.catalog.Shape(schema.RelPropsInputName(t.Name, rel.Name))
		if !ok {
			return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "props on propertyless relationship"}
		}
		relProps, _, err = r.splitWriteInput(ctx, propsShape, propsInput, true)
		if err != nil {
			return nil, err
		}
	}

	rawDst, ok := input[schema.KeyDst]
	if !ok {
		return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "missing dst"}
	}
	dstUnion, err := asMap(shapeName, rawDst)
	if err != nil {
		return nil, err
	}
	branch, branchVal, err := singleBranch(schema.RelNodesMutationInputUnionName(t.Name, rel.Name), dstUnion)
	if err != nil {
		return nil, err
	}
	dt, ok := r.eng.reg.Type(branch)
	if !ok || !relTargets(rel, branch) {
		return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown destination branch " + branch}
	}

	nodeInput, err := asMap(schema.NodeInputName(branch), branchVal)
	if err != nil {
		return nil, err
	}
	mode, modeVal, err := singleBranch(schema.NodeInputName(branch), nodeInput)
	if err != nil {
		return nil, err
	}

	var dstIDs []string
	switch mode {
	case schema.KeyExisting:
		query, err := asMap(schema.NodeQueryInputName(branch), modeVal)
		if err != nil {
			return nil, err
		}
		dstCells, err := r.readNodes(ctx, dt, query)
		if err != nil {
			return nil, err
		}
		dstIDs = cellIDs(dstCells)
	case schema.KeyNew:
		createInput, err := asMap(schema.NodeCreateMutationInputName(branch), modeVal)
		if err != nil {
			return nil, err
		}
		dstCell, err := r.visitNodeCreateMutationInput(ctx, dt, createInput)
		if err != nil {
			return nil, err
		}
		dstIDs = []string{dstCell.ID}
	default:
		return nil, &gwerrors.CompilationError{Shape: schema.NodeInputName(branch), Got: "unknown branch " + mode}
	}

	if !rel.List {
		if len(dstIDs) > 1 {
			return nil, &gwerrors.CardinalityViolation{Type: t.Name, Rel: rel.Name}
		}
		existing, err := r.readRels(ctx, t, rel, nil, srcIDs)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 && len(dstIDs) > 0 {
			return nil, &gwerrors.CardinalityViolation{Type: t.Name, Rel: rel.Name}
		}
	}

	// one statement per pair so each relationship gets its own id
	var cells []backend.RelCell
	for _, srcID := range srcIDs {
		for _, dstID := range dstIDs {
			srcVar := r.nodeVar(t, "src")
			dstVar := r.nodeVar(dt, "dst")
			srcFrag, err := r.eng.builder.NodeReadByIDsFragment(srcVar, []string{srcID})
			if err != nil {
				return nil, err
			}
			dstFrag, err := r.eng.builder.NodeReadByIDsFragment(dstVar, []string{dstID})
			if err != nil {
				return nil, err
			}
			props := map[string]any{model.IDProp: uuid.NewString()}
			for k, pv := range relProps {
				props[k] = pv
			}
			rv := r.relVar(rel, srcVar, dstVar)
			stmt, err := r.eng.builder.CreateRels(srcFrag, dstFrag, rv, props)
			if err != nil {
				return nil, err
			}
			rows, err := r.conn.Execute(ctx, stmt)
			if err != nil {
				return nil, err
			}
			created, err := r.eng.builder.DecodeRels(rows)
			if err != nil {
				return nil, err
			}
			cells = append(cells, created...)
		}
	}
	return cells, nil
}

// visitRelCreateInput handles the root relationship-create operation:
// match sources, then attach each create input.
func (r *request) visitRelCreateInput(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any) ([]backend.RelCell, error) {
	shapeName := schema.RelCreateInputName(t.Name, rel.Name)
	match, err := asMap(shapeName, input[schema.KeyMatch])
	if err != nil {
		return nil, err
	}
	srcCells, err := r.readNodes(ctx, t, match)
	if err != nil {
		return nil, err
	}
	srcIDs := cellIDs(srcCells)
	if len(srcIDs) == 0 {
		return nil, nil
	}

	creates := asSlice(input[schema.KeyCreate])
	if len(creates) == 0 {
		return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "missing $CREATE"}
	}
	if !rel.List && len(creates) > 1 {
		return nil, &gwerrors.CardinalityViolation{Type: t.Name, Rel: rel.Name}
	}

	var cells []backend.RelCell
	for _, c := range creates {
		cm, err := asMap(schema.RelCreateMutationInputName(t.Name, rel.Name), c)
		if err != nil {
			return nil, err
		}
		created, err := r.visitRelCreateMutationInput(ctx, t, rel, srcIDs, cm)
		if err != nil {
			return nil, err
		}
		cells = append(cells, created...)
	}
	return cells, nil
}

// --- updates ---

func (r *request) visitNodeUpdateInput(ctx context.Context, t *model.Type, input map[string]any) ([]backend.NodeCell, error) {
	shapeName := schema.NodeUpdateInputName(t.Name)
	match, err := asMap(shapeName, input[schema.KeyMatch])
	if err != nil {
		return nil, err
	}
	set, err := asMap(shapeName, input[schema.KeySet])
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "missing $SET"}
	}

	v := r.nodeVar(t, "node")
	frag, err := r.visitNodeQueryInput(ctx, t, match, v)
	if err != nil {
		return nil, err
	}
	return r.applyNodeSet(ctx, t, v, frag, set)
}

// applyNodeSet writes scalar updates for the matched nodes, then walks
// the relationship change inputs scoped to those nodes.
func (r *request) applyNodeSet(ctx context.Context, t *model.Type, v *backend.NodeVar, frag backend.Fragment, set map[string]any) ([]backend.NodeCell, error) {
	shape, _ := r.eng.catalog.Shape(schema.NodeUpdateMutationInputName(t.Name))
	props, relChanges, err := r.splitWriteInput(ctx, shape, set, false)
	if err != nil {
		return nil, err
	}

	var cells []backend.NodeCell
	if len(props) > 0 {
		stmt, err := r.eng.builder.UpdateNodes(frag, v, props)
		if err != nil {
			return nil, err
		}
		rows, err := r.conn.Execute(ctx, stmt)
		if err != nil {
			return nil, err
		}
		cells, err = r.eng.builder.DecodeNodes(rows)
		if err != nil {
			return nil, err
		}
	} else {
		stmt, err := r.eng.builder.NodeReadStatement(frag, v)
		if err != nil {
			return nil, err
		}
		rows, err := r.conn.Execute(ctx, stmt)
		if err != nil {
			return nil, err
		}
		cells, err = r.eng.builder.DecodeNodes(rows)
		if err != nil {
			return nil, err
		}
	}

	ids := cellIDs(cells)
	if len(ids) == 0 {
		return cells, nil
	}

	for name, value := range relChanges {
		rel, ok := t.RelByName(name)
		if !ok {
			return nil, &gwerrors.CompilationError{Shape: shape.Name, Got: "unknown relationship " + name}
		}
		for _, ch := range asSlice(value) {
			change, err := asMap(schema.RelChangeInputName(t.Name, rel.Name), ch)
			if err != nil {
				return nil, err
			}
			if err := r.visitRelChangeInput(ctx, t, rel, ids, change); err != nil {
				return nil, err
			}
		}
	}
	return cells, nil
}

// visitRelChangeInput dispatches one $ADD, $UPDATE, or $DELETE branch of
// a relationship change, scoped to the given source nodes.
func (r *request) visitRelChangeInput(ctx context.Context, t *model.Type, rel *model.Relationship, srcIDs []string, change map[string]any) error {
	shapeName := schema.RelChangeInputName(t.Name, rel.Name)
	branch, value, err := singleBranch(shapeName, change)
	if err != nil {
		return err
	}
	m, err := asMap(shapeName, value)
	if err != nil {
		return err
	}
	switch branch {
	case schema.KeyAdd:
		_, err = r.visitRelCreateMutationInput(ctx, t, rel, srcIDs, m)
	case schema.KeyUpdate:
		_, err = r.visitRelUpdateInput(ctx, t, rel, m, srcIDs)
	case schema.KeyDelete:
		_, _, err = r.visitRelDeleteInput(ctx, t, rel, m, srcIDs)
	default:
		err = &gwerrors.CompilationError{Shape: shapeName, Got: "unknown branch " + branch}
	}
	return err
}

// visitRelUpdateInput updates matched relationship properties and applies
// nested endpoint updates.
func (r *request) visitRelUpdateInput(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any, scopeSrcIDs []string) ([]backend.RelCell, error) {
	shapeName := schema.RelUpdateInputName(t.Name, rel.Name)
	match, err := asMap(shapeName, input[schema.KeyMatch])
	if err != nil {
		return nil, err
	}
	set, err := asMap(shapeName, input[schema.KeySet])
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "missing $SET"}
	}

	cells, err := r.readRels(ctx, t, rel, match, scopeSrcIDs)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}

	if raw, ok := set[schema.KeyProps]; ok {
		propsInput, err := asMap(shapeName, raw)
		if err != nil {
			return nil, err
		}
		propsShape, ok := r.eng.catalog.Shape(schema.RelPropsInputName(t.Name, rel.Name))
		if !ok {
			return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "props on propertyless relationship"}
		}
		props, _, err := r.splitWriteInput(ctx, propsShape, propsInput, false)
		if err != nil {
			return nil, err
		}
		if len(props) > 0 {
			srcVar := r.nodeVar(t, "src")
			rv := backend.NewRelVar(rel.Name, r.sg.Next(), srcVar, backend.NewNodeVar("", "dst", r.sg.Next()))
			frag, err := r.eng.builder.RelReadByIDsFragment(rv, relCellIDs(cells))
			if err != nil {
				return nil, err
			}
			stmt, err := r.eng.builder.UpdateRels(frag, rv, props)
			if err != nil {
				return nil, err
			}
			rows, err := r.conn.Execute(ctx, stmt)
			if err != nil {
				return nil, err
			}
			cells, err = r.eng.builder.DecodeRels(rows)
			if err != nil {
				return nil, err
			}
		}
	}

	if raw, ok := set[schema.KeySrc]; ok {
		srcSet, err := asMap(shapeName, raw)
		if err != nil {
			return nil, err
		}
		nested, err := asMap(shapeName, srcSet[t.Name])
		if err != nil {
			return nil, err
		}
		if nested != nil {
			if _, err := r.updateNodesByIDs(ctx, t, srcIDsOf(cells), nested); err != nil {
				return nil, err
			}
		}
	}
	if raw, ok := set[schema.KeyDst]; ok {
		dstSet, err := asMap(shapeName, raw)
		if err != nil {
			return nil, err
		}
		for branch, bval := range dstSet {
			dt, ok := r.eng.reg.Type(branch)
			if !ok || !relTargets(rel, branch) {
				return nil, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown destination branch " + branch}
			}
			nested, err := asMap(shapeName, bval)
			if err != nil {
				return nil, err
			}
			ids := dstIDsOf(cells, branch)
			if len(ids) == 0 || nested == nil {
				continue
			}
			if _, err := r.updateNodesByIDs(ctx, dt, ids, nested); err != nil {
				return nil, err
			}
		}
	}
	return cells, nil
}

func (r *request) updateNodesByIDs(ctx context.Context, t *model.Type, ids []string, set map[string]any) ([]backend.NodeCell, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	v := r.nodeVar(t, "node")
	frag, err := r.eng.builder.NodeReadByIDsFragment(v, ids)
	if err != nil {
		return nil, err
	}
	return r.applyNodeSet(ctx, t, v, frag, set)
}

// --- deletes ---

func (r *request) visitNodeDeleteInput(ctx context.Context, t *model.Type, input map[string]any) (int, []backend.NodeCell, error) {
	shapeName := schema.NodeDeleteInputName(t.Name)
	match, err := asMap(shapeName, input[schema.KeyMatch])
	if err != nil {
		return 0, nil, err
	}
	del, err := asMap(shapeName, input[schema.KeyDelete])
	if err != nil {
		return 0, nil, err
	}

	cells, err := r.readNodes(ctx, t, match)
	if err != nil {
		return 0, nil, err
	}
	ids := cellIDs(cells)
	if len(ids) == 0 {
		return 0, nil, nil
	}
	count, err := r.deleteNodesByIDs(ctx, t, ids, del)
	if err != nil {
		return 0, nil, err
	}
	return count, cells, nil
}

// deleteNodesByIDs applies a delete mutation input to a pinned node set:
// targeted relationship deletes first, then the edge check unless forced,
// then the node delete itself.
func (r *request) deleteNodesByIDs(ctx context.Context, t *model.Type, ids []string, del map[string]any) (int, error) {
	shapeName := schema.NodeDeleteMutationInputName(t.Name)
	force := false
	if del != nil {
		if f, ok := del[schema.KeyForce].(bool); ok {
			force = f
		}
		for name, value := range del {
			if name == schema.KeyForce {
				continue
			}
			rel, ok := t.RelByName(name)
			if !ok {
				return 0, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown field " + name}
			}
			for _, dv := range asSlice(value) {
				dm, err := asMap(schema.RelDeleteInputName(t.Name, rel.Name), dv)
				if err != nil {
					return 0, err
				}
				if _, _, err := r.visitRelDeleteInput(ctx, t, rel, dm, ids); err != nil {
					return 0, err
				}
			}
		}
	}

	if !force {
		offender, n, err := r.relsTouching(ctx, t, ids)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return 0, &gwerrors.HasRelationshipsError{Type: t.Name, ID: offender}
		}
	}

	v := r.nodeVar(t, "node")
	frag, err := r.eng.builder.NodeReadByIDsFragment(v, ids)
	if err != nil {
		return 0, err
	}
	stmt, err := r.eng.builder.DeleteNodes(frag, v, force)
	if err != nil {
		return 0, err
	}
	rows, err := r.conn.Execute(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return r.eng.builder.DecodeCount(rows)
}

// relsTouching counts edges still attached to any of the nodes, in either
// direction, and names one offending node id.
func (r *request) relsTouching(ctx context.Context, t *model.Type, ids []string) (string, int, error) {
	for i := range t.Rels {
		rel := &t.Rels[i]
		if rel.Dynamic() {
			continue
		}
		cells, err := r.readRels(ctx, t, rel, nil, ids)
		if err != nil {
			return "", 0, err
		}
		if len(cells) > 0 {
			return cells[0].SrcID, len(cells), nil
		}
	}

	for _, st := range r.eng.reg.Types() {
		for i := range st.Rels {
			rel := &st.Rels[i]
			if rel.Dynamic() || !relTargets(rel, t.Name) {
				continue
			}
			query := map[string]any{
				schema.KeyDst: map[string]any{
					t.Name: map[string]any{
						schema.KeyID: map[string]any{schema.OpIN: ids},
					},
				},
			}
			cells, err := r.readRels(ctx, st, rel, query, nil)
			if err != nil {
				return "", 0, err
			}
			if len(cells) > 0 {
				return cells[0].DstID, len(cells), nil
			}
		}
	}
	return "", 0, nil
}

// visitRelDeleteInput deletes matched relationships, then applies nested
// endpoint delete mutations. Returns the number of relationships removed
// along with the matched cells.
func (r *request) visitRelDeleteInput(ctx context.Context, t *model.Type, rel *model.Relationship, input map[string]any, scopeSrcIDs []string) (int, []backend.RelCell, error) {
	shapeName := schema.RelDeleteInputName(t.Name, rel.Name)
	match, err := asMap(shapeName, input[schema.KeyMatch])
	if err != nil {
		return 0, nil, err
	}

	cells, err := r.readRels(ctx, t, rel, match, scopeSrcIDs)
	if err != nil {
		return 0, nil, err
	}
	if len(cells) == 0 {
		return 0, nil, nil
	}

	srcVar := r.nodeVar(t, "src")
	rv := backend.NewRelVar(rel.Name, r.sg.Next(), srcVar, backend.NewNodeVar("", "dst", r.sg.Next()))
	frag, err := r.eng.builder.RelReadByIDsFragment(rv, relCellIDs(cells))
	if err != nil {
		return 0, nil, err
	}
	stmt, err := r.eng.builder.DeleteRels(frag, rv)
	if err != nil {
		return 0, nil, err
	}
	rows, err := r.conn.Execute(ctx, stmt)
	if err != nil {
		return 0, nil, err
	}
	count, err := r.eng.builder.DecodeCount(rows)
	if err != nil {
		return 0, nil, err
	}

	if raw, ok := input[schema.KeySrc]; ok {
		srcDel, err := asMap(shapeName, raw)
		if err != nil {
			return 0, nil, err
		}
		nested, err := asMap(shapeName, srcDel[t.Name])
		if err != nil {
			return 0, nil, err
		}
		if ids := srcIDsOf(cells); nested != nil && len(ids) > 0 {
			if _, err := r.deleteNodesByIDs(ctx, t, ids, nested); err != nil {
				return 0, nil, err
			}
		}
	}
	if raw, ok := input[schema.KeyDst]; ok {
		dstDel, err := asMap(shapeName, raw)
		if err != nil {
			return 0, nil, err
		}
		for branch, bval := range dstDel {
			dt, ok := r.eng.reg.Type(branch)
			if !ok || !relTargets(rel, branch) {
				return 0, nil, &gwerrors.CompilationError{Shape: shapeName, Got: "unknown destination branch " + branch}
			}
			nested, err := asMap(shapeName, bval)
			if err != nil {
				return 0, nil, err
			}
			ids := dstIDsOf(cells, branch)
			if nested == nil || len(ids) == 0 {
				continue
			}
			if _, err := r.deleteNodesByIDs(ctx, dt, ids, nested); err != nil {
				return 0, nil, err
			}
		}
	}
	return count, cells, nil
}

// --- shared ---

func relTargets(rel *model.Relationship, typeName string) bool {
	for _, n := range rel.Nodes {
		if n == typeName {
			return true
		}
	}
	return false
}

func srcIDsOf(cells []backend.RelCell) []string {
	seen := map[string]bool{}
	var ids []string
	for _, c := range cells {
		if c.SrcID != "" && !seen[c.SrcID] {
			seen[c.SrcID] = true
			ids = append(ids, c.SrcID)
		}
	}
	return ids
}

// dstIDsOf returns destination ids whose node label matches the branch.
func dstIDsOf(cells []backend.RelCell, branch string) []string {
	seen := map[string]bool{}
	var ids []string
	for _, c := range cells {
		if c.Dst == nil || c.Dst.Label != branch {
			continue
		}
		if c.DstID != "" && !seen[c.DstID] {
			seen[c.DstID] = true
			ids = append(ids, c.DstID)
		}
	}
	return ids
}

// scopeRelQuery pins the source set of a relationship query to explicit
// node ids without mutating the caller's input.
func scopeRelQuery(input map[string]any, srcType string, ids []string) map[string]any {
	out := map[string]any{}
	for k, v := range input {
		out[k] = v
	}
	src := map[string]any{}
	if raw, ok := out[schema.KeySrc].(map[string]any); ok {
		for k, v := range raw {
			src[k] = v
		}
	}
	query := map[string]any{}
	if raw, ok := src[srcType].(map[string]any); ok {
		for k, v := range raw {
			query[k] = v
		}
	}
	query[schema.KeyID] = map[string]any{schema.OpIN: ids}
	src[srcType] = query
	out[schema.KeySrc] = src
	return out
}
