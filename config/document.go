// Package config defines the versioned model document an operator supplies
// to declare types, properties, and relationships, plus loaders for YAML
// files and environment-driven endpoint settings.
package config

import (
	"fmt"

	"github.com/graphweave/graphweave/gwerrors"
)

// LatestVersion is the newest document format version this engine accepts.
const LatestVersion = 1

// Scalar kinds permitted for property types.
const (
	ScalarBoolean = "Boolean"
	ScalarFloat   = "Float"
	ScalarInt     = "Int"
	ScalarString  = "String"
)

// Document is the root of a declared data model.
type Document struct {
	Version int          `yaml:"version"`
	Model   []TypeConfig `yaml:"model"`
}

// TypeConfig declares one entity kind.
type TypeConfig struct {
	Name      string       `yaml:"name"`
	Props     []PropConfig `yaml:"props,omitempty"`
	Rels      []RelConfig  `yaml:"rels,omitempty"`
	Endpoints CrudFilter   `yaml:"endpoints,omitempty"`
}

// PropConfig declares one scalar property on a type or relationship.
type PropConfig struct {
	Name      string     `yaml:"name"`
	Type      string     `yaml:"type"`
	Required  bool       `yaml:"required,omitempty"`
	List      bool       `yaml:"list,omitempty"`
	Uses      UsesFilter `yaml:"uses,omitempty"`
	Resolver  string     `yaml:"resolver,omitempty"`
	Validator string     `yaml:"validator,omitempty"`
}

// Dynamic reports whether the property is computed by a resolver rather
// than stored.
func (p PropConfig) Dynamic() bool { return p.Resolver != "" }

// RelConfig declares one directed relationship owned by a source type.
type RelConfig struct {
	Name      string       `yaml:"name"`
	Nodes     []string     `yaml:"nodes"`
	List      bool         `yaml:"list,omitempty"`
	Props     []PropConfig `yaml:"props,omitempty"`
	Endpoints CrudFilter   `yaml:"endpoints,omitempty"`
	Resolver  string       `yaml:"resolver,omitempty"`
}

// Dynamic reports whether the whole relationship is resolver-backed.
func (r RelConfig) Dynamic() bool { return r.Resolver != "" }

// CrudFilter enables or disables generated CRUD operations. Fields are
// pointers so that an omitted key defaults to enabled.
type CrudFilter struct {
	Read   *bool `yaml:"read,omitempty"`
	Create *bool `yaml:"create,omitempty"`
	Update *bool `yaml:"update,omitempty"`
	Delete *bool `yaml:"delete,omitempty"`
}

func enabled(b *bool) bool { return b == nil || *b }

func (f CrudFilter) ReadEnabled() bool   { return enabled(f.Read) }
func (f CrudFilter) CreateEnabled() bool { return enabled(f.Create) }
func (f CrudFilter) UpdateEnabled() bool { return enabled(f.Update) }
func (f CrudFilter) DeleteEnabled() bool { return enabled(f.Delete) }

// UsesFilter controls which derived input/output shapes include a property.
// Omitted keys default to included.
type UsesFilter struct {
	Create *bool `yaml:"create,omitempty"`
	Query  *bool `yaml:"query,omitempty"`
	Update *bool `yaml:"update,omitempty"`
	Output *bool `yaml:"output,omitempty"`
}

func (f UsesFilter) InCreate() bool { return enabled(f.Create) }
func (f UsesFilter) InQuery() bool  { return enabled(f.Query) }
func (f UsesFilter) InUpdate() bool { return enabled(f.Update) }
func (f UsesFilter) InOutput() bool { return enabled(f.Output) }

// Validate checks document-level well-formedness: version support, non-empty
// names, and known scalar kinds. Cross-type invariants (duplicate names,
// unknown destinations) are enforced by the model registry.
func (d *Document) Validate() error {
	if d.Version < 1 || d.Version > LatestVersion {
		return &gwerrors.ModelError{Kind: gwerrors.ErrUnsupportedVersion, Item: fmt.Sprintf("%d", d.Version)}
	}
	for _, t := range d.Model {
		if t.Name == "" {
			return fmt.Errorf("config: type with empty name")
		}
		for _, p := range t.Props {
			if err := validateProp(t.Name, p); err != nil {
				return err
			}
		}
		for _, r := range t.Rels {
			if r.Name == "" {
				return fmt.Errorf("config: type %s: relationship with empty name", t.Name)
			}
			if len(r.Nodes) == 0 {
				return fmt.Errorf("config: relationship %s.%s declares no destination types", t.Name, r.Name)
			}
			for _, p := range r.Props {
				if err := validateProp(t.Name+"."+r.Name, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateProp(owner string, p PropConfig) error {
	if p.Name == "" {
		return fmt.Errorf("config: %s: property with empty name", owner)
	}
	switch p.Type {
	case ScalarBoolean, ScalarFloat, ScalarInt, ScalarString:
		return nil
	default:
		return fmt.Errorf("config: %s.%s: unknown scalar type %q", owner, p.Name, p.Type)
	}
}
