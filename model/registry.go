// Package model builds the immutable registry of declared types that every
// other component consults. The registry validates cross-type invariants
// that the document loader cannot see on its own: name uniqueness, known
// destination types, and reserved names.
package model

import (
	"github.com/graphweave/graphweave/config"
	"github.com/graphweave/graphweave/gwerrors"
)

// IDProp is the engine-managed identifier property present on every node
// and relationship. It may not be declared in the model.
const IDProp = "id"

// reserved names collide with scalar kinds or the engine's id property.
var reserved = map[string]bool{
	config.ScalarBoolean: true,
	config.ScalarFloat:   true,
	config.ScalarInt:     true,
	config.ScalarString:  true,
	"ID":                 true,
	IDProp:               true,
}

// Registry is the validated, process-lifetime-immutable model. It is safe
// for unlimited concurrent readers; nothing mutates it after NewRegistry.
type Registry struct {
	types map[string]*Type
	order []string
}

// Type is one declared entity kind.
type Type struct {
	Name      string
	Props     []Property
	Rels      []Relationship
	Endpoints config.CrudFilter

	propIndex map[string]int
	relIndex  map[string]int
}

// Property is a scalar field on a type or relationship.
type Property struct {
	Name      string
	Scalar    string
	Required  bool
	List      bool
	Uses      config.UsesFilter
	Resolver  string
	Validator string
}

// Dynamic reports whether the property's value comes from a resolver
// instead of storage. Dynamic properties are never matched against stored
// data.
func (p Property) Dynamic() bool { return p.Resolver != "" }

// Relationship is a directed edge kind owned by a source type.
type Relationship struct {
	Name      string
	Source    string
	Nodes     []string // permissible destination type names, order preserved
	List      bool
	Props     []Property
	Endpoints config.CrudFilter
	Resolver  string

	propIndex map[string]int
}

func (r Relationship) Dynamic() bool { return r.Resolver != "" }

// Union reports whether the relationship has more than one permissible
// destination type.
func (r Relationship) Union() bool { return len(r.Nodes) > 1 }

// Prop looks up an edge property by name.
func (r Relationship) Prop(name string) (Property, bool) {
	i, ok := r.propIndex[name]
	if !ok {
		return Property{}, false
	}
	return r.Props[i], true
}

// NewRegistry validates the document and builds the registry.
func NewRegistry(doc *config.Document) (*Registry, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	reg := &Registry{types: make(map[string]*Type, len(doc.Model))}

	for _, tc := range doc.Model {
		if reserved[tc.Name] {
			return nil, &gwerrors.ModelError{Kind: gwerrors.ErrReservedName, Item: tc.Name}
		}
		if _, dup := reg.types[tc.Name]; dup {
			return nil, &gwerrors.ModelError{Kind: gwerrors.ErrDuplicateType, Item: tc.Name}
		}

		t := &Type{
			Name:      tc.Name,
			Endpoints: tc.Endpoints,
			propIndex: make(map[string]int),
			relIndex:  make(map[string]int),
		}

		for _, pc := range tc.Props {
			if reserved[pc.Name] {
				return nil, &gwerrors.ModelError{Kind: gwerrors.ErrReservedName, Item: tc.Name + "." + pc.Name}
			}
			if _, dup := t.propIndex[pc.Name]; dup {
				return nil, &gwerrors.ModelError{Kind: gwerrors.ErrDuplicateProperty, Item: tc.Name + "." + pc.Name}
			}
			t.propIndex[pc.Name] = len(t.Props)
			t.Props = append(t.Props, newProperty(pc))
		}

		for _, rc := range tc.Rels {
			if _, dup := t.propIndex[rc.Name]; dup {
				return nil, &gwerrors.ModelError{Kind: gwerrors.ErrDuplicateProperty, Item: tc.Name + "." + rc.Name}
			}
			if _, dup := t.relIndex[rc.Name]; dup {
				return nil, &gwerrors.ModelError{Kind: gwerrors.ErrDuplicateProperty, Item: tc.Name + "." + rc.Name}
			}

			rel := Relationship{
				Name:      rc.Name,
				Source:    tc.Name,
				Nodes:     append([]string(nil), rc.Nodes...),
				List:      rc.List,
				Endpoints: rc.Endpoints,
				Resolver:  rc.Resolver,
				propIndex: make(map[string]int),
			}
			for _, pc := range rc.Props {
				if reserved[pc.Name] {
					return nil, &gwerrors.ModelError{Kind: gwerrors.ErrReservedName, Item: tc.Name + "." + rc.Name + "." + pc.Name}
				}
				if _, dup := rel.propIndex[pc.Name]; dup {
					return nil, &gwerrors.ModelError{Kind: gwerrors.ErrDuplicateProperty, Item: tc.Name + "." + rc.Name + "." + pc.Name}
				}
				rel.propIndex[pc.Name] = len(rel.Props)
				rel.Props = append(rel.Props, newProperty(pc))
			}

			t.relIndex[rc.Name] = len(t.Rels)
			t.Rels = append(t.Rels, rel)
		}

		reg.types[t.Name] = t
		reg.order = append(reg.order, t.Name)
	}

	// Destination types must exist, including self-reference.
	for _, name := range reg.order {
		for _, rel := range reg.types[name].Rels {
			for _, dst := range rel.Nodes {
				if _, ok := reg.types[dst]; !ok {
					return nil, &gwerrors.ModelError{Kind: gwerrors.ErrUnknownDestinationType, Item: name + "." + rel.Name + " -> " + dst}
				}
			}
		}
	}

	return reg, nil
}

func newProperty(pc config.PropConfig) Property {
	return Property{
		Name:      pc.Name,
		Scalar:    pc.Type,
		Required:  pc.Required,
		List:      pc.List,
		Uses:      pc.Uses,
		Resolver:  pc.Resolver,
		Validator: pc.Validator,
	}
}

// Type looks up a declared type by name.
func (reg *Registry) Type(name string) (*Type, bool) {
	t, ok := reg.types[name]
	return t, ok
}

// Types returns the declared types in declaration order.
func (reg *Registry) Types() []*Type {
	out := make([]*Type, 0, len(reg.order))
	for _, name := range reg.order {
		out = append(out, reg.types[name])
	}
	return out
}

// Rel looks up a relationship by owning type and name.
func (reg *Registry) Rel(typeName, relName string) (*Relationship, bool) {
	t, ok := reg.types[typeName]
	if !ok {
		return nil, false
	}
	i, ok := t.relIndex[relName]
	if !ok {
		return nil, false
	}
	return &t.Rels[i], true
}

// Prop looks up a scalar property on a type.
func (t *Type) Prop(name string) (Property, bool) {
	i, ok := t.propIndex[name]
	if !ok {
		return Property{}, false
	}
	return t.Props[i], true
}

// RelByName looks up a relationship on a type.
func (t *Type) RelByName(name string) (*Relationship, bool) {
	i, ok := t.relIndex[name]
	if !ok {
		return nil, false
	}
	return &t.Rels[i], true
}

// ResolverKeys returns every resolver key referenced anywhere in the model.
func (reg *Registry) ResolverKeys() []string {
	var keys []string
	for _, name := range reg.order {
		t := reg.types[name]
		for _, p := range t.Props {
			if p.Resolver != "" {
				keys = append(keys, p.Resolver)
			}
		}
		for _, r := range t.Rels {
			if r.Resolver != "" {
				keys = append(keys, r.Resolver)
			}
			for _, p := range r.Props {
				if p.Resolver != "" {
					keys = append(keys, p.Resolver)
				}
			}
		}
	}
	return keys
}

// ValidatorKeys returns every validator key referenced anywhere in the model.
func (reg *Registry) ValidatorKeys() []string {
	var keys []string
	for _, name := range reg.order {
		t := reg.types[name]
		for _, p := range t.Props {
			if p.Validator != "" {
				keys = append(keys, p.Validator)
			}
		}
		for _, r := range t.Rels {
			for _, p := range r.Props {
				if p.Validator != "" {
					keys = append(keys, p.Validator)
				}
			}
		}
	}
	return keys
}
