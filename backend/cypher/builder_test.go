package cypher

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

	assert.Equal(t, "CREATE (node_1:User)\nSET node_1 += $props_1\nRETURN node_1 as node\n", stmt.Query)
	assert.Equal(t, map[string]any{"email": "a@b.co", "id": "u1"}, stmt.Params["props_1"])
}

func TestCreateNodeRejectsBadLabel(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User) DETACH DELETE n //", "node", "_1")

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

	assert.Equal(t, "(node_1:User)", frag.Match)
	assert.Equal(t, "node_1.email = $email_2", frag.Where)
	assert.Equal(t, "a@b.co", frag.Params["email_2"])

	stmt, err := b.NodeReadStatement(frag, v)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (node_1:User)\nWHERE node_1.email = $email_2\nRETURN DISTINCT node_1 as node\n", stmt.Query)
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		name string
		comp backend.Comparison
		want string
	}{
		{"eq", backend.Comparison{Op: schema.OpEQ, Operand: 1}, "node_1.age = $age_2"},
		{"noteq", backend.Comparison{Op: schema.OpNOTEQ, Operand: 1}, "node_1.age <> $age_2"},
		{"gt", backend.Comparison{Op: schema.OpGT, Operand: 1}, "node_1.age > $age_2"},
		{"lte", backend.Comparison{Op: schema.OpLTE, Operand: 1}, "node_1.age <= $age_2"},
		{"contains", backend.Comparison{Op: schema.OpCONTAINS, Operand: "x"}, "node_1.age CONTAINS $age_2"},
		{"in", backend.Comparison{Op: schema.OpIN, Operand: []string{"a"}}, "node_1.age IN $age_2"},
		{"notin", backend.Comparison{Op: schema.OpNOTIN, Operand: []string{"a"}}, "NOT (node_1.age IN $age_2)"},
		{"negated eq", backend.Comparison{Op: schema.OpEQ, Operand: 1, Negated: true}, "NOT (node_1.age = $age_2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			sg := backend.NewSuffixer()
			v := backend.NewNodeVar("User", "node", sg.Next())
			frag, err := b.NodeReadFragment(nil, v, map[string]backend.Comparison{"age": tt.comp}, sg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, frag.Where)
		})
	}
}

func TestNodeReadByIDsFragment(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User", "node", "_3")

	frag, err := b.NodeReadByIDsFragment(v, []string{"u1", "u2"})
	require.NoError(t, err)

	assert.Equal(t, "(node_3:User)", frag.Match)
	assert.Equal(t, "node_3.id IN $id_list_3", frag.Where)
	assert.Equal(t, []string{"u1", "u2"}, frag.Params["id_list_3"])
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
		"MATCH (src_1:Project), (dst_2:User)\n"+
			"WHERE src_1.id IN $id_list_1 AND dst_2.id IN $id_list_2\n"+
			"CREATE (src_1)-[rel_3:owner]->(dst_2)\n"+
			"SET rel_3 += $props_3\n"+
			"RETURN DISTINCT src_1 as src, rel_3 as rel, dst_2 as dst\n",
		stmt.Query)
	assert.Equal(t, map[string]any{"id": "r1"}, stmt.Params["props_3"])
}

func TestRelReadFragmentAndStatement(t *testing.T) {
	b := NewBuilder()
	sg := backend.NewSuffixer()
	src := backend.NewNodeVar("Project", "src", sg.Next())
	dst := backend.NewNodeVar("User", "dst", sg.Next())
	rv := backend.NewRelVar("owner", sg.Next(), src, dst)

	frag, err := b.RelReadFragment(nil, nil, rv, map[string]backend.Comparison{
		"since": backend.EQ(2020),
	}, sg)
	require.NoError(t, err)

	assert.Equal(t, "(src_1:Project)-[rel_3:owner]->(dst_2:User)", frag.Match)
	assert.Equal(t, "rel_3.since = $since_4", frag.Where)

	stmt, err := b.RelReadStatement(frag, rv)
	require.NoError(t, err)
	assert.Contains(t, stmt.Query, "RETURN DISTINCT src_1 as src, rel_3 as rel, dst_2 as dst")
}

func TestRelReadFragmentUnlabeledDst(t *testing.T) {
	b := NewBuilder()
	sg := backend.NewSuffixer()
	src := backend.NewNodeVar("Project", "src", sg.Next())
	dst := backend.NewNodeVar("", "dst", sg.Next())
	rv := backend.NewRelVar("stakeholders", sg.Next(), src, dst)

	frag, err := b.RelReadFragment(nil, nil, rv, nil, sg)
	require.NoError(t, err)
	assert.Equal(t, "(src_1:Project)-[rel_3:stakeholders]->(dst_2)", frag.Match)
}

func TestUpdateNodes(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User", "node", "_1")
	frag, err := b.NodeReadByIDsFragment(v, []string{"u1"})
	require.NoError(t, err)

	stmt, err := b.UpdateNodes(frag, v, map[string]any{"email": "new@b.co"})
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (node_1:User)\nWHERE node_1.id IN $id_list_1\nSET node_1 += $props_1\nRETURN DISTINCT node_1 as node\n",
		stmt.Query)
}

func TestDeleteNodes(t *testing.T) {
	b := NewBuilder()
	v := backend.NewNodeVar("User", "node", "_1")
	frag, err := b.NodeReadByIDsFragment(v, []string{"u1"})
	require.NoError(t, err)

	plain, err := b.DeleteNodes(frag, v, false)
	require.NoError(t, err)
	assert.Contains(t, plain.Query, "DELETE node_1\n")
	assert.NotContains(t, plain.Query, "DETACH")
	assert.Contains(t, plain.Query, "RETURN count(*) as count\n")

	cascade, err := b.DeleteNodes(frag, v, true)
	require.NoError(t, err)
	assert.Contains(t, cascade.Query, "DETACH DELETE node_1\n")
}

func TestDecodeNodes(t *testing.T) {
	b := NewBuilder()
	rows := []backend.RawRow{
		{"node": backend.NodeCell{ID: "u1", Label: "User", Props: map[string]any{"id": "u1"}}},
	}
	cells, err := b.DecodeNodes(rows)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "u1", cells[0].ID)

	_, err = b.DecodeNodes([]backend.RawRow{{"other": 1}})
	assert.Error(t, err)
}

func TestDecodeRelsStitchesEndpoints(t *testing.T) {
	b := NewBuilder()
	rows := []backend.RawRow{{
		"src": backend.NodeCell{ID: "p1", Label: "Project"},
		"rel": backend.RelCell{ID: "r1", Label: "owner"},
		"dst": backend.NodeCell{ID: "u1", Label: "User"},
	}}
	cells, err := b.DecodeRels(rows)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "p1", cells[0].SrcID)
	assert.Equal(t, "u1", cells[0].DstID)
	require.NotNil(t, cells[0].Dst)
	assert.Equal(t, "User", cells[0].Dst.Label)
}

func TestDecodeCount(t *testing.T) {
	b := NewBuilder()

	n, err := b.DecodeCount([]backend.RawRow{{"count": int64(3)}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.DecodeCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
