package kinship_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/vanshavalibackend/kinship"
)

func childSerNos(n *kinship.TreeNode) []int64 {
	out := make([]int64, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.SerNo
	}
	return out
}

func TestDescendantTree(t *testing.T) {
	g := kinship.NewGraph(familyFixture())

	tree, anomalies, err := kinship.DescendantTree(g, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, anomalies)

	assert.Equal(t, int64(1), tree.SerNo)
	assert.Equal(t, "Ramchandra", tree.FirstName)
	require.Len(t, tree.Spouses, 1)
	assert.Equal(t, int64(2), tree.Spouses[0].SerNo)
	assert.Equal(t, []int64{3, 5}, childSerNos(tree))

	vishnu := tree.Children[0]
	assert.Equal(t, []int64{7, 12}, childSerNos(vishnu))
	arjun := vishnu.Children[0]
	assert.Equal(t, []int64{14}, childSerNos(arjun), "children listed only through childrenSerNos are included")
	assert.Empty(t, arjun.Children[0].Children)
	assert.False(t, arjun.Truncated)

	kamala := tree.Children[1]
	assert.Equal(t, []int64{13}, childSerNos(kamala))
}

func TestDescendantTree_Depth(t *testing.T) {
	g := kinship.NewGraph(familyFixture())

	tree, _, err := kinship.DescendantTree(g, 1, 1)
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)
	assert.Empty(t, tree.Children[0].Children)
	assert.True(t, tree.Children[0].Truncated)
	assert.False(t, tree.Truncated)
}

func TestDescendantTree_CycleIsCut(t *testing.T) {
	// 1 -> 2 -> 3 -> 1
	g := kinship.NewGraph([]kinship.Member{
		{SerNo: 1, FirstName: "A", FatherSerNo: ptr(3)},
		{SerNo: 2, FirstName: "B", FatherSerNo: ptr(1)},
		{SerNo: 3, FirstName: "C", FatherSerNo: ptr(2)},
	})

	tree, anomalies, err := kinship.DescendantTree(g, 1, 50)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	var ig *kinship.InconsistentGraphError
	require.True(t, errors.As(anomalies[0], &ig))
	assert.Equal(t, int64(3), ig.SerNo)
	assert.Equal(t, int64(1), ig.Ref)

	assert.Equal(t, []int64{2}, childSerNos(tree))
	assert.Equal(t, []int64{3}, childSerNos(tree.Children[0]))
	assert.Empty(t, tree.Children[0].Children[0].Children)
}

func TestDescendantTree_NotFound(t *testing.T) {
	g := kinship.NewGraph(familyFixture())
	_, _, err := kinship.DescendantTree(g, 99, 0)
	assert.True(t, errors.Is(err, kinship.ErrNotFound))
}

func TestParentSet(t *testing.T) {
	g := kinship.NewGraph(append(familyFixture(),
		kinship.Member{SerNo: 30, FirstName: "Unknown"},
		kinship.Member{SerNo: 31, FirstName: "Child", FatherSerNo: ptr(30)},
	))

	ps := g.ParentSet(7)
	require.NotNil(t, ps.Father)
	require.NotNil(t, ps.Mother)
	assert.Equal(t, int64(3), ps.Father.SerNo)
	assert.Equal(t, int64(4), ps.Mother.SerNo)
	assert.Empty(t, ps.Other)

	ps = g.ParentSet(31)
	assert.Nil(t, ps.Father)
	assert.Nil(t, ps.Mother)
	require.Len(t, ps.Other, 1)
	assert.Equal(t, int64(30), ps.Other[0].SerNo)

	ps = g.ParentSet(1)
	assert.Nil(t, ps.Father)
	assert.Empty(t, ps.Other)
}
