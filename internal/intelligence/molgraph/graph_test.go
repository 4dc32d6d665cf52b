package molgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/MolGraph/internal/domain/molecule"
)

var (
	dimer    = []molecule.Vec3{{0, 0, 0}, {1, 0, 0}}
	triangle = []molecule.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
)

func TestBuildNeighborGraph_Dimer(t *testing.T) {
	m := BuildNeighborGraph(dimer, 1.5)
	assert.Equal(t, []int{0, 1, 2}, m.RowPtr)
	assert.Equal(t, []int{1, 0}, m.Col)
}

func TestBuildNeighborGraph_InclusiveBoundary(t *testing.T) {
	pair := []molecule.Vec3{{0, 0, 0}, {0, 0, 2}}
	assert.Equal(t, 2, BuildNeighborGraph(pair, 2).NNZ())
	assert.Zero(t, BuildNeighborGraph(pair, 1.999).NNZ())
}

func TestBuildNeighborGraph_IsolatedAtom(t *testing.T) {
	m := BuildNeighborGraph([]molecule.Vec3{{0, 0, 0}, {1, 0, 0}, {50, 0, 0}}, 1.5)
	assert.Equal(t, 3, m.Rows())
	assert.Empty(t, m.Row(2))
	assert.Equal(t, 2, m.NNZ())
}

func TestBuildNeighborGraph_CoincidentAtomsAreNeighbours(t *testing.T) {
	m := BuildNeighborGraph([]molecule.Vec3{{1, 1, 1}, {1, 1, 1}}, 0.1)
	assert.Equal(t, []int{1, 0}, m.Col)
}

func TestBuildNeighborGraph_Empty(t *testing.T) {
	m := BuildNeighborGraph(nil, 5)
	assert.Zero(t, m.Rows())
	assert.Equal(t, []int{0}, m.RowPtr)
}

func TestEdgeIndex_Triangle(t *testing.T) {
	x := NewEdgeIndex(BuildNeighborGraph(triangle, 1.5))

	assert.Equal(t, 6, x.Len())
	assert.Equal(t, 3, x.Atoms())
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, x.Target)
	assert.Equal(t, []int{1, 2, 0, 2, 0, 1}, x.Source)

	first, sources := x.EdgesWithTarget(1)
	assert.Equal(t, 2, first)
	assert.Equal(t, []int{0, 2}, sources)
	assert.Equal(t, 2, x.Degree(2))
}

func TestEnumerateTriplets_Dimer(t *testing.T) {
	tr := EnumerateTriplets(NewEdgeIndex(BuildNeighborGraph(dimer, 1.5)))
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.ExpandKJ)
}

func TestEnumerateTriplets_Triangle(t *testing.T) {
	tr := EnumerateTriplets(NewEdgeIndex(BuildNeighborGraph(triangle, 1.5)))

	assert.Equal(t, 6, tr.Len())
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, tr.I)
	assert.Equal(t, []int{1, 2, 0, 2, 0, 1}, tr.J)
	assert.Equal(t, []int{2, 1, 2, 0, 1, 0}, tr.K)
	assert.Equal(t, []int{3, 5, 1, 4, 0, 2}, tr.ExpandKJ)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, tr.ReduceJI)
}

func TestEnumerateTriplets_Chain(t *testing.T) {
	// 0 - 1 - 2 in a line: 0 and 2 are out of range of each other.
	chain := []molecule.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	x := NewEdgeIndex(BuildNeighborGraph(chain, 1.2))
	assert.Equal(t, []int{0, 1, 1, 2}, x.Target)
	assert.Equal(t, []int{1, 0, 2, 1}, x.Source)

	tr := EnumerateTriplets(x)
	// Only chains through the middle atom survive: 2->1->0 and 0->1->2.
	assert.Equal(t, []int{0, 2}, tr.I)
	assert.Equal(t, []int{1, 1}, tr.J)
	assert.Equal(t, []int{2, 0}, tr.K)
	assert.Equal(t, []int{2, 1}, tr.ExpandKJ)
	assert.Equal(t, []int{0, 3}, tr.ReduceJI)
}
