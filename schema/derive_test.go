package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave/config"
	"github.com/graphweave/graphweave/model"
)

func boolPtr(b bool) *bool { return &b }

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg, err := model.NewRegistry(&config.Document{
		Version: 1,
		Model: []config.TypeConfig{
			{
				Name: "User",
				Props: []config.PropConfig{
					{Name: "email", Type: config.ScalarString, Required: true},
					{Name: "hash", Type: config.ScalarString, Uses: config.UsesFilter{
						Query:  boolPtr(false),
						Output: boolPtr(false),
					}},
					{Name: "karma", Type: config.ScalarInt, Resolver: "compute_karma"},
				},
			},
			{Name: "Team"},
			{
				Name: "Project",
				Props: []config.PropConfig{
					{Name: "title", Type: config.ScalarString},
				},
				Rels: []config.RelConfig{
					{Name: "owner", Nodes: []string{"User"}},
					{
						Name: "stakeholders", Nodes: []string{"User", "Team"}, List: true,
						Props: []config.PropConfig{
							{Name: "role", Type: config.ScalarString},
						},
					},
					{Name: "related", Nodes: []string{"Project"}, List: true, Resolver: "find_related"},
				},
				Endpoints: config.CrudFilter{Delete: boolPtr(false)},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

func TestDeriveNodeOperations(t *testing.T) {
	c := Derive(testRegistry(t))

	for _, name := range []string{"User", "UserCreate", "UserUpdate", "UserDelete", "Project", "ProjectCreate", "ProjectUpdate"} {
		_, ok := c.Operation(name)
		assert.True(t, ok, "missing operation %s", name)
	}

	// Project deletes are disabled in the model.
	_, ok := c.Operation("ProjectDelete")
	assert.False(t, ok)
}

func TestDeriveRelOperations(t *testing.T) {
	c := Derive(testRegistry(t))

	for _, name := range []string{"ProjectOwner", "ProjectOwnerCreate", "ProjectOwnerUpdate", "ProjectOwnerDelete", "ProjectStakeholders", "ProjectStakeholdersCreate"} {
		_, ok := c.Operation(name)
		assert.True(t, ok, "missing operation %s", name)
	}

	// Dynamic relationships get no storage-bound operations.
	for _, name := range []string{"ProjectRelated", "ProjectRelatedCreate", "ProjectRelatedUpdate", "ProjectRelatedDelete"} {
		_, ok := c.Operation(name)
		assert.False(t, ok, "unexpected operation %s", name)
	}
}

func TestNodeObjectShape(t *testing.T) {
	c := Derive(testRegistry(t))

	user, ok := c.Shape("User")
	require.True(t, ok)
	assert.Equal(t, ShapeObject, user.Kind)

	id, ok := user.Field("id")
	require.True(t, ok)
	assert.Equal(t, KindScalar, id.Kind)

	// hash is excluded from output
	_, ok = user.Field("hash")
	assert.False(t, ok)

	karma, ok := user.Field("karma")
	require.True(t, ok)
	assert.Equal(t, KindDynamicScalar, karma.Kind)
	assert.Equal(t, "compute_karma", karma.Resolver)
}

func TestQueryInputExcludesDynamicAndFilteredProps(t *testing.T) {
	c := Derive(testRegistry(t))

	qi, ok := c.Shape("UserQueryInput")
	require.True(t, ok)

	_, ok = qi.Field("email")
	assert.True(t, ok)
	_, ok = qi.Field("hash")
	assert.False(t, ok)
	_, ok = qi.Field("karma")
	assert.False(t, ok)
}

func TestRelShapes(t *testing.T) {
	c := Derive(testRegistry(t))

	rel, ok := c.Shape("ProjectStakeholdersRel")
	require.True(t, ok)
	assert.Equal(t, ShapeRel, rel.Kind)

	dst, ok := rel.Field("dst")
	require.True(t, ok)
	assert.Equal(t, KindUnion, dst.Kind)
	assert.Equal(t, "ProjectStakeholdersNodesUnion", dst.TypeName)

	union, ok := c.Shape("ProjectStakeholdersNodesUnion")
	require.True(t, ok)
	assert.Equal(t, []string{"User", "Team"}, union.UnionTypes)

	// single-destination rel still goes through a one-branch union
	ownerUnion, ok := c.Shape("ProjectOwnerNodesUnion")
	require.True(t, ok)
	assert.Equal(t, []string{"User"}, ownerUnion.UnionTypes)
}

func TestChangeInputGrammar(t *testing.T) {
	c := Derive(testRegistry(t))

	ch, ok := c.Shape("ProjectStakeholdersChangeInput")
	require.True(t, ok)
	for _, key := range []string{KeyAdd, KeyUpdate, KeyDelete} {
		_, ok := ch.Field(key)
		assert.True(t, ok, "missing branch %s", key)
	}

	ui, ok := c.Shape("ProjectUpdateInput")
	require.True(t, ok)
	set, ok := ui.Field(KeySet)
	require.True(t, ok)
	assert.True(t, set.Required)
	assert.Equal(t, "ProjectUpdateMutationInput", set.TypeName)
}

func TestDeleteMutationInputHasForce(t *testing.T) {
	c := Derive(testRegistry(t))

	dmi, ok := c.Shape("UserDeleteMutationInput")
	require.True(t, ok)
	force, ok := dmi.Field(KeyForce)
	require.True(t, ok)
	assert.Equal(t, "Boolean", force.TypeName)
}

func TestMutationInputUnionBranches(t *testing.T) {
	c := Derive(testRegistry(t))

	miu, ok := c.Shape("ProjectStakeholdersNodesMutationInputUnion")
	require.True(t, ok)
	for _, branch := range []string{"User", "Team"} {
		f, ok := miu.Field(branch)
		require.True(t, ok)
		assert.Equal(t, branch+"Input", f.TypeName)
	}
}

func TestNodeInputBranches(t *testing.T) {
	c := Derive(testRegistry(t))

	in, ok := c.Shape("UserInput")
	require.True(t, ok)
	existing, ok := in.Field(KeyExisting)
	require.True(t, ok)
	assert.Equal(t, "UserQueryInput", existing.TypeName)
	fresh, ok := in.Field(KeyNew)
	require.True(t, ok)
	assert.Equal(t, "UserCreateMutationInput", fresh.TypeName)
}
