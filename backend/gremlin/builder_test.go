package gremlin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/schema"
)

func TestCreateNode(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User", "node", "_1")

	stmt, err := b.CreateNode(v, map[string]any{"email": "a@b.co", "id": "u1"})
	require.NoError(t, err)

	// bindings render in sorted key order
	assert.Equal(t, "g.addV('User').property('email', email_1).property('id', id_1).elementMap()", stmt.Query)
	assert.Equal(t, "a@b.co", stmt.Params["email_1"])
	assert.Equal(t, "u1", stmt.Params["id_1"])
}

func TestCreateNodeRejectsBadLabel(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User').drop(); //", "node", "_1")
	_, err := b.CreateNode(v, nil)
	assert.Error(t, err)
}

func TestNodeReadFragmentAndStatement(t *testing.T) {
	b := NewBuilder()
	sg := backend.NewSuffixer()
	v := backend.NewNodeVar("User", "node", sg.Next())

	frag, err := b.NodeReadFragment(nil, v, map[string]backend.Comparison{
		"email": backend.EQ("a@b.co"),
	}, sg)
	require.NoError(t, err)

	assert.Equal(t, ".hasLabel('User').has('email', eq(email_2))", frag.Match)
	assert.Equal(t, "a@b.co", frag.Params["email_2"])

	stmt, err := b.NodeReadStatement(frag, v)
	require.NoError(t, err)
	assert.Equal(t, "g.V().hasLabel('User').has('email', eq(email_2)).dedup().elementMap()", stmt.Query)
}

func TestComparisonPredicates(t *testing.T) {
	tests := []struct {
		name string
		comp backend.Comparison
		want string
	}{
		{"eq", backend.Comparison{Op: schema.OpEQ, Operand: 1}, ".has('age', eq(age_2))"},
		{"noteq", backend.Comparison{Op: schema.OpNOTEQ, Operand: 1}, ".has('age', neq(age_2))"},
		{"gt", backend.Comparison{Op: schema.OpGT, Operand: 1}, ".has('age', gt(age_2))"},
		{"in", backend.Comparison{Op: schema.OpIN, Operand: []int{1}}, ".has('age', within(age_2))"},
		{"notin", backend.Comparison{Op: schema.OpNOTIN, Operand: []int{1}}, ".has('age', without(age_2))"},
		{"negated", backend.Comparison{Op: schema.OpEQ, Operand: 1, Negated: true}, ".has('age', not(eq(age_2)))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			sg := backend.NewSuffixer()
			v := backend.NewNodeVar("User", "node", sg.Next())
			frag, err := b.NodeReadFragment(nil, v, map[string]backend.Comparison{"age": tt.comp}, sg)
			require.NoError(t, err)
			assert.Equal(t, ".hasLabel('User')"+tt.want, frag.Match)
		})
	}
}

func TestRelFilterComposesAsWhere(t *testing.T) {
	b := NewBuilder()
	sg := backend.NewSuffixer()
	v := backend.NewNodeVar("Project", "node", sg.Next())

	relFrag := backend.Fragment{Match: ".outE('owner').where(inV().hasLabel('User'))"}
	frag, err := b.NodeReadFragment([]backend.Fragment{relFrag}, v, nil, sg)
	require.NoError(t, err)

	assert.Equal(t, ".hasLabel('Project').where(__.outE('owner').where(inV().hasLabel('User')))", frag.Match)
}

func TestCreateRels(t *testing.T) {
	b := NewBuilder()
	src := backend.NewNodeVar("Project", "src", "_1")
	dst := backend.NewNodeVar("User", "dst", "_2")
	rv := backend.NewRelVar("owner", "_3", src, dst)

	srcFrag, err := b.NodeReadByIDsFragment(src, []string{"p1"})
	require.NoError(t, err)
	dstFrag, err := b.NodeReadByIDsFragment(dst, []string{"u1"})
	require.NoError(t, err)

	stmt, err := b.CreateRels(srcFrag, dstFrag, rv, map[string]any{"id": "r1"})
	require.NoError(t, err)

	assert.Equal(t,
		"g.V().hasLabel('Project').has('id', within(id_list_1)).as('src_3')"+
			".V().hasLabel('User').has('id', within(id_list_2))"+
			".addE('owner').from('src_3').property('id', id_3)"+
			".project('src', 'rel', 'dst').by(outV().elementMap()).by(elementMap()).by(inV().elementMap())",
		stmt.Query)
	assert.Equal(t, "r1", stmt.Params["id_3"])
}

func TestRelReadFragmentAndStatement(t *testing.T) {
	b := NewBuilder()
	sg := backend.NewSuffixer()
	src := backend.NewNodeVar("Project", "src", sg.Next())
	dst := backend.NewNodeVar("User", "dst", sg.Next())
	rv := backend.NewRelVar("owner", sg.Next(), src, dst)

	srcFrag := backend.Fragment{Match: ".hasLabel('Project')"}
	dstFrag := backend.Fragment{Match: ".hasLabel('User')"}

	frag, err := b.RelReadFragment(&srcFrag, &dstFrag, rv, map[string]backend.Comparison{
		"since": backend.EQ(2020),
	}, sg)
	require.NoError(t, err)

	assert.Equal(t,
		".hasLabel('Project').outE('owner').has('since', eq(since_4)).where(inV().hasLabel('User'))",
		frag.Match)

	stmt, err := b.RelReadStatement(frag, rv)
	require.NoError(t, err)
	assert.Contains(t, stmt.Query, ".project('src', 'rel', 'dst')")
}

func TestDeleteTraversals(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User", "node", "_1")
	frag, err := b.NodeReadByIDsFragment(v, []string{"u1"})
	require.NoError(t, err)

	stmt, err := b.DeleteNodes(frag, v, true)
	require.NoError(t, err)
	assert.Equal(t, "g.V().hasLabel('User').has('id', within(id_list_1)).sideEffect(drop()).count()", stmt.Query)
}

func TestDecodeNodesAndCount(t *testing.T) {
	b := NewBuilder()

	cells, err := b.DecodeNodes([]backend.RawRow{
		{"value": backend.NodeCell{ID: "u1", Label: "User"}},
	})
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "u1", cells[0].ID)

	n, err := b.DecodeCount([]backend.RawRow{{"value": int64(2)}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNormalizeElementMaps(t *testing.T) {
	vertex := map[any]any{
		tToken("id"):    int64(42),
		tToken("label"): "User",
		"id":            "u1",
		"email":         "a@b.co",
	}
	cell, ok := normalize(vertex).(backend.NodeCell)
	require.True(t, ok)
	assert.Equal(t, "u1", cell.ID)
	assert.Equal(t, "User", cell.Label)
	assert.Equal(t, "a@b.co", cell.Props["email"])

	edge := map[any]any{
		tToken("id"):    int64(7),
		tToken("label"): "owner",
		tToken("IN"):    map[any]any{},
		tToken("OUT"):   map[any]any{},
		"id":            "r1",
	}
	rel, ok := normalize(edge).(backend.RelCell)
	require.True(t, ok)
	assert.Equal(t, "r1", rel.ID)
	assert.Equal(t, "owner", rel.Label)
}

func TestToRowWrapsAndProjects(t *testing.T) {
	row := toRow(int64(5))
	assert.Equal(t, int64(5), row["value"])

	proj := toRow(map[string]any{
		"src": map[any]any{tToken("label"): "Project", "id": "p1"},
		"rel": map[any]any{tToken("label"): "owner", tToken("IN"): map[any]any{}, "id": "r1"},
		"dst": map[any]any{tToken("label"): "User", "id": "u1"},
	})
	src, ok := proj["src"].(backend.NodeCell)
	require.True(t, ok)
	assert.Equal(t, "p1", src.ID)
	rel, ok := proj["rel"].(backend.RelCell)
	require.True(t, ok)
	assert.Equal(t, "r1", rel.ID)
}

// tToken stands in for the driver's non-string element-map keys.
type tToken string

func (t tToken) String() string { return string(t) }
