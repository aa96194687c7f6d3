// Package schema derives the catalog of operation shapes from a model
// registry. Derivation is a deterministic, total function of the registry;
// the catalog is built once, then shared read-only for the process
// lifetime.
package schema

import (
	"sort"
)

// FieldKind classifies one entry in a shape.
type FieldKind int

const (
	// KindScalar is a stored scalar property.
	KindScalar FieldKind = iota
	// KindDynamicScalar is a resolver-backed scalar property.
	KindDynamicScalar
	// KindInput nests another input shape.
	KindInput
	// KindObject nests another output shape.
	KindObject
	// KindUnion selects one branch of a destination union.
	KindUnion
	// KindRel is a stored relationship field on a node output.
	KindRel
	// KindDynamicRel is a resolver-backed relationship field.
	KindDynamicRel
)

// ShapeKind classifies a shape as a whole.
type ShapeKind int

const (
	ShapeObject ShapeKind = iota
	ShapeInput
	ShapeRel
	ShapeUnion
)

// Field is one named entry in a shape.
type Field struct {
	Name      string
	Kind      FieldKind
	TypeName  string // scalar kind for scalars, target shape name otherwise
	List      bool
	Required  bool
	Resolver  string
	Validator string
	RelName   string // set for KindRel/KindDynamicRel
}

// Shape is one derived input or output structure.
type Shape struct {
	Name       string
	Kind       ShapeKind
	UnionTypes []string // populated for ShapeUnion

	fields []Field
	index  map[string]int
}

func newShape(name string, kind ShapeKind) *Shape {
	return &Shape{Name: name, Kind: kind, index: make(map[string]int)}
}

func (s *Shape) add(f Field) *Shape {
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return s
}

// Field looks up a field by name.
func (s *Shape) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns the fields in declaration order.
func (s *Shape) Fields() []Field { return s.fields }

// OpKind classifies a generated operation.
type OpKind int

const (
	OpNodeRead OpKind = iota
	OpNodeCreate
	OpNodeUpdate
	OpNodeDelete
	OpRelRead
	OpRelCreate
	OpRelUpdate
	OpRelDelete
)

// Operation binds an operation name to its target and input/output shapes.
type Operation struct {
	Name        string
	Kind        OpKind
	TypeName    string
	RelName     string // empty for node operations
	InputShape  string
	OutputShape string // empty for deletes, which return a count
}

// Catalog holds every derived shape and operation, keyed by name.
type Catalog struct {
	shapes map[string]*Shape
	ops    map[string]*Operation
}

// Shape looks up a shape by name.
func (c *Catalog) Shape(name string) (*Shape, bool) {
	s, ok := c.shapes[name]
	return s, ok
}

// Operation looks up an operation by name.
func (c *Catalog) Operation(name string) (*Operation, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// Operations returns all operation names, sorted.
func (c *Catalog) Operations() []string {
	names := make([]string, 0, len(c.ops))
	for n := range c.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ShapeNames returns all shape names, sorted.
func (c *Catalog) ShapeNames() []string {
	names := make([]string, 0, len(c.shapes))
	for n := range c.shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Comparison operators accepted in query inputs. A bare scalar in a query
// input means EQ.
const (
	OpEQ          = "EQ"
	OpNOTEQ       = "NOTEQ"
	OpCONTAINS    = "CONTAINS"
	OpNOTCONTAINS = "NOTCONTAINS"
	OpIN          = "IN"
	OpNOTIN       = "NOTIN"
	OpGT          = "GT"
	OpGTE         = "GTE"
	OpLT          = "LT"
	OpLTE         = "LTE"
)

// ComparisonOps lists the recognized comparison operator keys.
var ComparisonOps = map[string]bool{
	OpEQ: true, OpNOTEQ: true,
	OpCONTAINS: true, OpNOTCONTAINS: true,
	OpIN: true, OpNOTIN: true,
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
}
