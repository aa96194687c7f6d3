// Package backend defines the contract between the operation compiler and a
// query-language backend. A builder translates one primitive graph
// operation at a time into an executable statement; it never sees the
// recursive request tree. All values travel as bound parameters — no
// untrusted value is ever interpolated into query text.
package backend

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// Statement is one executable query: templated text plus bound parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// Fragment is a partial query produced while lowering nested query inputs:
// a match portion, a where/filter portion, and the parameters both bind.
// The two query languages divide work between the portions differently;
// callers treat fragments as opaque and only recombine them through the
// builder that produced them.
type Fragment struct {
	Match  string
	Where  string
	Params map[string]any
}

// RawRow is one decoded result row: result alias to normalized value. The
// connection adapters normalize driver-native entities into NodeCell and
// RelCell values before rows reach the builder's Decode methods.
type RawRow = map[string]any

// NodeCell is the core's intermediate record for one node.
type NodeCell struct {
	ID    string
	Label string
	Props map[string]any
}

// RelCell is the core's intermediate record for one relationship. Src and
// Dst carry the endpoint nodes when the statement returned them.
type RelCell struct {
	ID    string
	Label string
	SrcID string
	DstID string
	Props map[string]any
	Src   *NodeCell
	Dst   *NodeCell
}

// Comparison is one scalar predicate in a query input.
type Comparison struct {
	Op      string // schema.OpEQ et al.
	Operand any
	Negated bool
}

// EQ wraps a bare scalar as an equality comparison.
func EQ(v any) Comparison { return Comparison{Op: "EQ", Operand: v} }

// NodeVar names one node variable inside a query under construction.
// Label may be empty when the node's concrete type is not yet known
// (union destinations before branch selection).
type NodeVar struct {
	Label  string
	Base   string
	Suffix string
}

func NewNodeVar(label, base, suffix string) *NodeVar {
	return &NodeVar{Label: label, Base: base, Suffix: suffix}
}

// Name returns the query-variable name.
func (v *NodeVar) Name() string { return v.Base + v.Suffix }

// RelVar names one relationship variable plus its endpoint variables.
type RelVar struct {
	Label  string // relationship type label
	Suffix string
	Src    *NodeVar
	Dst    *NodeVar
}

func NewRelVar(label, suffix string, src, dst *NodeVar) *RelVar {
	return &RelVar{Label: label, Suffix: suffix, Src: src, Dst: dst}
}

func (v *RelVar) Name() string { return "rel" + v.Suffix }

// Suffixer hands out unique variable suffixes within one request, so that
// self-referential types recurse on identity rather than by name.
type Suffixer struct {
	n int
}

func NewSuffixer() *Suffixer { return &Suffixer{} }

func (s *Suffixer) Next() string {
	s.n++
	return "_" + strconv.Itoa(s.n)
}

// QueryBuilder translates primitive graph operations into statements for
// one target query language and decodes result rows back into cells.
// Implementations hold no per-request state; one instance serves all
// requests concurrently.
type QueryBuilder interface {
	CreateNode(v *NodeVar, props map[string]any) (Statement, error)
	CreateRels(src, dst Fragment, v *RelVar, props map[string]any) (Statement, error)

	NodeReadFragment(relFrags []Fragment, v *NodeVar, props map[string]Comparison, sg *Suffixer) (Fragment, error)
	NodeReadByIDsFragment(v *NodeVar, ids []string) (Fragment, error)
	NodeReadStatement(f Fragment, v *NodeVar) (Statement, error)

	RelReadFragment(srcFrag, dstFrag *Fragment, v *RelVar, props map[string]Comparison, sg *Suffixer) (Fragment, error)
	RelReadByIDsFragment(v *RelVar, ids []string) (Fragment, error)
	RelReadStatement(f Fragment, v *RelVar) (Statement, error)

	UpdateNodes(f Fragment, v *NodeVar, props map[string]any) (Statement, error)
	UpdateRels(f Fragment, v *RelVar, props map[string]any) (Statement, error)

	DeleteNodes(f Fragment, v *NodeVar, cascade bool) (Statement, error)
	DeleteRels(f Fragment, v *RelVar) (Statement, error)

	DecodeNodes(rows []RawRow) ([]NodeCell, error)
	DecodeRels(rows []RawRow) ([]RelCell, error)
	DecodeCount(rows []RawRow) (int, error)
}

// Connection is one session against the backing database, exclusively
// owned by a single request for its lifetime. Begin/Commit/Rollback are
// honored where the backend supports multi-statement transactions and are
// no-ops otherwise; the adapter documents which.
type Connection interface {
	Execute(ctx context.Context, stmt Statement) ([]RawRow, error)
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// Pool hands out connections. Sizing, health checking, and retry policy
// live behind this boundary, outside the engine.
type Pool interface {
	Acquire(ctx context.Context) (Connection, error)
	Close(ctx context.Context) error
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to splice into query text as a
// label or property key. Parameter values never go through this path.
func ValidIdentifier(s string) bool {
	return identRE.MatchString(s)
}

// CheckIdentifier returns an error for identifiers that fail validation.
func CheckIdentifier(kind, s string) error {
	if !ValidIdentifier(s) {
		return fmt.Errorf("invalid %s %q: must be alphanumeric or underscore", kind, s)
	}
	return nil
}
