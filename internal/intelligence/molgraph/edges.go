package molgraph

// EdgeIndex numbers the edges of an assembled relation.  Edge e points from
// Source[e] to Target[e]; ids follow row-major order, so Target is
// non-decreasing and Source ascends within each run of equal targets.
type EdgeIndex struct {
	Target []int
	Source []int

	adj CSR
}

// NewEdgeIndex assigns dense zero-based ids to the edges of adj.
func NewEdgeIndex(adj CSR) *EdgeIndex {
	target, source := adj.Nonzero()
	return &EdgeIndex{Target: target, Source: source, adj: adj}
}

// Len returns the number of edges.
func (x *EdgeIndex) Len() int { return len(x.Target) }

// Atoms returns the number of atoms spanned by the relation.
func (x *EdgeIndex) Atoms() int { return x.adj.Rows() }

// EdgesWithTarget returns the edges ending at atom j: their ids are
// first, first+1, ... and sources[k] is the source of edge first+k.  The
// lookup costs O(1) plus the caller's O(degree) iteration.
func (x *EdgeIndex) EdgesWithTarget(j int) (first int, sources []int) {
	return x.adj.RowPtr[j], x.adj.Row(j)
}

// Degree returns the number of edges ending at atom j.
func (x *EdgeIndex) Degree(j int) int {
	return x.adj.RowPtr[j+1] - x.adj.RowPtr[j]
}
