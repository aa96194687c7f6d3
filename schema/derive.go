package schema

import (
	"github.com/graphweave/graphweave/model"
)

// Derive builds the full operation catalog from a registry. It cannot fail
// given a valid registry: every shape is a pure function of the declared
// types.
func Derive(reg *model.Registry) *Catalog {
	c := &Catalog{
		shapes: make(map[string]*Shape),
		ops:    make(map[string]*Operation),
	}

	for _, t := range reg.Types() {
		c.deriveNodeShapes(t)
		for i := range t.Rels {
			c.deriveRelShapes(t, &t.Rels[i])
		}
		c.deriveNodeOps(t)
		for i := range t.Rels {
			c.deriveRelOps(t, &t.Rels[i])
		}
	}

	return c
}

func (c *Catalog) put(s *Shape) { c.shapes[s.Name] = s }

// scalarFields appends one field per declared property, filtered by use.
// Dynamic properties are excluded from query inputs: they are never matched
// against stored data.
func scalarFields(s *Shape, props []model.Property, include func(model.Property) bool) {
	for _, p := range props {
		if !include(p) {
			continue
		}
		kind := KindScalar
		if p.Dynamic() {
			kind = KindDynamicScalar
		}
		s.add(Field{
			Name:      p.Name,
			Kind:      kind,
			TypeName:  p.Scalar,
			List:      p.List,
			Required:  p.Required,
			Resolver:  p.Resolver,
			Validator: p.Validator,
		})
	}
}

func idField() Field {
	return Field{Name: KeyID, Kind: KindScalar, TypeName: "ID"}
}

func (c *Catalog) deriveNodeShapes(t *model.Type) {
	// Node output object: id, output-enabled props, one field per rel.
	obj := newShape(NodeObjectName(t.Name), ShapeObject)
	obj.add(idField())
	scalarFields(obj, t.Props, func(p model.Property) bool { return p.Uses.InOutput() })
	for _, r := range t.Rels {
		kind := KindRel
		if r.Dynamic() {
			kind = KindDynamicRel
		}
		obj.add(Field{
			Name:     r.Name,
			Kind:     kind,
			TypeName: RelObjectName(t.Name, r.Name),
			List:     r.List,
			Resolver: r.Resolver,
			RelName:  r.Name,
		})
	}
	c.put(obj)

	// QueryInput: id, non-dynamic query-enabled props, rel query inputs.
	qi := newShape(NodeQueryInputName(t.Name), ShapeInput)
	qi.add(idField())
	scalarFields(qi, t.Props, func(p model.Property) bool { return p.Uses.InQuery() && !p.Dynamic() })
	for _, r := range t.Rels {
		if r.Dynamic() {
			continue
		}
		qi.add(Field{Name: r.Name, Kind: KindInput, TypeName: RelQueryInputName(t.Name, r.Name), List: r.List, RelName: r.Name})
	}
	c.put(qi)

	// CreateMutationInput: create-enabled props, rel create inputs.
	cmi := newShape(NodeCreateMutationInputName(t.Name), ShapeInput)
	scalarFields(cmi, t.Props, func(p model.Property) bool { return p.Uses.InCreate() && !p.Dynamic() })
	for _, r := range t.Rels {
		if r.Dynamic() {
			continue
		}
		cmi.add(Field{Name: r.Name, Kind: KindInput, TypeName: RelCreateMutationInputName(t.Name, r.Name), List: r.List, RelName: r.Name})
	}
	c.put(cmi)

	// UpdateMutationInput: update-enabled props, rel change inputs.
	umi := newShape(NodeUpdateMutationInputName(t.Name), ShapeInput)
	scalarFields(umi, t.Props, func(p model.Property) bool { return p.Uses.InUpdate() && !p.Dynamic() })
	for _, r := range t.Rels {
		if r.Dynamic() {
			continue
		}
		umi.add(Field{Name: r.Name, Kind: KindInput, TypeName: RelChangeInputName(t.Name, r.Name), List: r.List, RelName: r.Name})
	}
	c.put(umi)

	// Input: create-or-match union for use as a relationship destination.
	in := newShape(NodeInputName(t.Name), ShapeInput)
	in.add(Field{Name: KeyExisting, Kind: KindInput, TypeName: NodeQueryInputName(t.Name)})
	in.add(Field{Name: KeyNew, Kind: KindInput, TypeName: NodeCreateMutationInputName(t.Name)})
	c.put(in)

	// UpdateInput: $MATCH + $SET.
	ui := newShape(NodeUpdateInputName(t.Name), ShapeInput)
	ui.add(Field{Name: KeyMatch, Kind: KindInput, TypeName: NodeQueryInputName(t.Name)})
	ui.add(Field{Name: KeySet, Kind: KindInput, TypeName: NodeUpdateMutationInputName(t.Name), Required: true})
	c.put(ui)

	// DeleteInput: $MATCH + $DELETE.
	di := newShape(NodeDeleteInputName(t.Name), ShapeInput)
	di.add(Field{Name: KeyMatch, Kind: KindInput, TypeName: NodeQueryInputName(t.Name)})
	di.add(Field{Name: KeyDelete, Kind: KindInput, TypeName: NodeDeleteMutationInputName(t.Name)})
	c.put(di)

	// DeleteMutationInput: force flag + per-rel cascade delete inputs.
	dmi := newShape(NodeDeleteMutationInputName(t.Name), ShapeInput)
	dmi.add(Field{Name: KeyForce, Kind: KindScalar, TypeName: "Boolean"})
	for _, r := range t.Rels {
		if r.Dynamic() {
			continue
		}
		dmi.add(Field{Name: r.Name, Kind: KindInput, TypeName: RelDeleteInputName(t.Name, r.Name), List: r.List, RelName: r.Name})
	}
	c.put(dmi)
}

func (c *Catalog) deriveRelShapes(t *model.Type, r *model.Relationship) {
	tn, rn := t.Name, r.Name

	// Rel output object.
	obj := newShape(RelObjectName(tn, rn), ShapeRel)
	obj.add(idField())
	if len(r.Props) > 0 {
		obj.add(Field{Name: KeyProps, Kind: KindObject, TypeName: RelPropsObjectName(tn, rn)})
	}
	obj.add(Field{Name: KeySrc, Kind: KindObject, TypeName: NodeObjectName(tn), Required: true})
	obj.add(Field{Name: KeyDst, Kind: KindUnion, TypeName: RelNodesUnionName(tn, rn), Required: true})
	c.put(obj)

	if len(r.Props) > 0 {
		po := newShape(RelPropsObjectName(tn, rn), ShapeObject)
		scalarFields(po, r.Props, func(p model.Property) bool { return p.Uses.InOutput() })
		c.put(po)

		pi := newShape(RelPropsInputName(tn, rn), ShapeInput)
		scalarFields(pi, r.Props, func(p model.Property) bool { return !p.Dynamic() })
		c.put(pi)
	}

	// Destination union, tagged by type name.
	union := newShape(RelNodesUnionName(tn, rn), ShapeUnion)
	union.UnionTypes = append(union.UnionTypes, r.Nodes...)
	c.put(union)

	// QueryInput: id, props, src, dst.
	qi := newShape(RelQueryInputName(tn, rn), ShapeInput)
	qi.add(idField())
	if len(r.Props) > 0 {
		qi.add(Field{Name: KeyProps, Kind: KindInput, TypeName: RelPropsInputName(tn, rn)})
	}
	qi.add(Field{Name: KeySrc, Kind: KindInput, TypeName: RelSrcQueryInputName(tn, rn)})
	qi.add(Field{Name: KeyDst, Kind: KindInput, TypeName: RelDstQueryInputName(tn, rn)})
	c.put(qi)

	// Src/dst query inputs, keyed by type name.
	src := newShape(RelSrcQueryInputName(tn, rn), ShapeInput)
	src.add(Field{Name: tn, Kind: KindInput, TypeName: NodeQueryInputName(tn)})
	c.put(src)

	dst := newShape(RelDstQueryInputName(tn, rn), ShapeInput)
	for _, n := range r.Nodes {
		dst.add(Field{Name: n, Kind: KindInput, TypeName: NodeQueryInputName(n)})
	}
	c.put(dst)

	// CreateMutationInput: props + dst union.
	cmi := newShape(RelCreateMutationInputName(tn, rn), ShapeInput)
	if len(r.Props) > 0 {
		cmi.add(Field{Name: KeyProps, Kind: KindInput, TypeName: RelPropsInputName(tn, rn)})
	}
	cmi.add(Field{Name: KeyDst, Kind: KindInput, TypeName: RelNodesMutationInputUnionName(tn, rn), Required: true})
	c.put(cmi)

	// Create-or-match union keyed by destination type name; exactly one
	// branch may be populated per instance.
	miu := newShape(RelNodesMutationInputUnionName(tn, rn), ShapeInput)
	for _, n := range r.Nodes {
		miu.add(Field{Name: n, Kind: KindInput, TypeName: NodeInputName(n)})
	}
	c.put(miu)

	// ChangeInput: $ADD | $UPDATE | $DELETE.
	ch := newShape(RelChangeInputName(tn, rn), ShapeInput)
	ch.add(Field{Name: KeyAdd, Kind: KindInput, TypeName: RelCreateMutationInputName(tn, rn)})
	ch.add(Field{Name: KeyUpdate, Kind: KindInput, TypeName: RelUpdateInputName(tn, rn)})
	ch.add(Field{Name: KeyDelete, Kind: KindInput, TypeName: RelDeleteInputName(tn, rn)})
	c.put(ch)

	// UpdateMutationInput: props + optional src/dst node updates.
	umi := newShape(RelUpdateMutationInputName(tn, rn), ShapeInput)
	if len(r.Props) > 0 {
		umi.add(Field{Name: KeyProps, Kind: KindInput, TypeName: RelPropsInputName(tn, rn)})
	}
	srcU := newShape(RelSrcUpdateMutationInputName(tn, rn), ShapeInput)
	srcU.add(Field{Name: tn, Kind: KindInput, TypeName: NodeUpdateMutationInputName(tn)})
	c.put(srcU)
	dstU := newShape(RelDstUpdateMutationInputName(tn, rn), ShapeInput)
	for _, n := range r.Nodes {
		dstU.add(Field{Name: n, Kind: KindInput, TypeName: NodeUpdateMutationInputName(n)})
	}
	c.put(dstU)
	umi.add(Field{Name: KeySrc, Kind: KindInput, TypeName: RelSrcUpdateMutationInputName(tn, rn)})
	umi.add(Field{Name: KeyDst, Kind: KindInput, TypeName: RelDstUpdateMutationInputName(tn, rn)})
	c.put(umi)

	// Root-level rel create/update/delete inputs.
	ci := newShape(RelCreateInputName(tn, rn), ShapeInput)
	ci.add(Field{Name: KeyMatch, Kind: KindInput, TypeName: NodeQueryInputName(tn)})
	ci.add(Field{Name: KeyCreate, Kind: KindInput, TypeName: RelCreateMutationInputName(tn, rn), List: r.List, Required: true})
	c.put(ci)

	ui := newShape(RelUpdateInputName(tn, rn), ShapeInput)
	ui.add(Field{Name: KeyMatch, Kind: KindInput, TypeName: RelQueryInputName(tn, rn)})
	ui.add(Field{Name: KeySet, Kind: KindInput, TypeName: RelUpdateMutationInputName(tn, rn), Required: true})
	c.put(ui)

	di := newShape(RelDeleteInputName(tn, rn), ShapeInput)
	di.add(Field{Name: KeyMatch, Kind: KindInput, TypeName: RelQueryInputName(tn, rn)})
	srcD := newShape(RelSrcDeleteMutationInputName(tn, rn), ShapeInput)
	srcD.add(Field{Name: tn, Kind: KindInput, TypeName: NodeDeleteMutationInputName(tn)})
	c.put(srcD)
	dstD := newShape(RelDstDeleteMutationInputName(tn, rn), ShapeInput)
	for _, n := range r.Nodes {
		dstD.add(Field{Name: n, Kind: KindInput, TypeName: NodeDeleteMutationInputName(n)})
	}
	c.put(dstD)
	di.add(Field{Name: KeySrc, Kind: KindInput, TypeName: RelSrcDeleteMutationInputName(tn, rn)})
	di.add(Field{Name: KeyDst, Kind: KindInput, TypeName: RelDstDeleteMutationInputName(tn, rn)})
	c.put(di)
}

func (c *Catalog) deriveNodeOps(t *model.Type) {
	if t.Endpoints.ReadEnabled() {
		c.ops[NodeReadOpName(t.Name)] = &Operation{
			Name: NodeReadOpName(t.Name), Kind: OpNodeRead, TypeName: t.Name,
			InputShape: NodeQueryInputName(t.Name), OutputShape: NodeObjectName(t.Name),
		}
	}
	if t.Endpoints.CreateEnabled() {
		c.ops[NodeCreateOpName(t.Name)] = &Operation{
			Name: NodeCreateOpName(t.Name), Kind: OpNodeCreate, TypeName: t.Name,
			InputShape: NodeCreateMutationInputName(t.Name), OutputShape: NodeObjectName(t.Name),
		}
	}
	if t.Endpoints.UpdateEnabled() {
		c.ops[NodeUpdateOpName(t.Name)] = &Operation{
			Name: NodeUpdateOpName(t.Name), Kind: OpNodeUpdate, TypeName: t.Name,
			InputShape: NodeUpdateInputName(t.Name), OutputShape: NodeObjectName(t.Name),
		}
	}
	if t.Endpoints.DeleteEnabled() {
		c.ops[NodeDeleteOpName(t.Name)] = &Operation{
			Name: NodeDeleteOpName(t.Name), Kind: OpNodeDelete, TypeName: t.Name,
			InputShape: NodeDeleteInputName(t.Name),
		}
	}
}

func (c *Catalog) deriveRelOps(t *model.Type, r *model.Relationship) {
	if r.Dynamic() {
		// Resolver-backed relationships have no storage-bound operations.
		return
	}
	tn, rn := t.Name, r.Name
	if r.Endpoints.ReadEnabled() {
		c.ops[RelReadOpName(tn, rn)] = &Operation{
			Name: RelReadOpName(tn, rn), Kind: OpRelRead, TypeName: tn, RelName: rn,
			InputShape: RelQueryInputName(tn, rn), OutputShape: RelObjectName(tn, rn),
		}
	}
	if r.Endpoints.CreateEnabled() {
		c.ops[RelCreateOpName(tn, rn)] = &Operation{
			Name: RelCreateOpName(tn, rn), Kind: OpRelCreate, TypeName: tn, RelName: rn,
			InputShape: RelCreateInputName(tn, rn), OutputShape: RelObjectName(tn, rn),
		}
	}
	if r.Endpoints.UpdateEnabled() {
		c.ops[RelUpdateOpName(tn, rn)] = &Operation{
			Name: RelUpdateOpName(tn, rn), Kind: OpRelUpdate, TypeName: tn, RelName: rn,
			InputShape: RelUpdateInputName(tn, rn), OutputShape: RelObjectName(tn, rn),
		}
	}
	if r.Endpoints.DeleteEnabled() {
		c.ops[RelDeleteOpName(tn, rn)] = &Operation{
			Name: RelDeleteOpName(tn, rn), Kind: OpRelDelete, TypeName: tn, RelName: rn,
			InputShape: RelDeleteInputName(tn, rn),
		}
	}
}
