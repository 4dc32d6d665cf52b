package molgraph

// Triplets holds the three-body chains k -> j -> i of a batch as parallel
// arrays.  ExpandKJ[t] is the id of edge (k, j) and ReduceJI[t] the id of
// edge (j, i).
type Triplets struct {
	I        []int
	J        []int
	K        []int
	ExpandKJ []int
	ReduceJI []int
}

// Len returns the number of triplets.
func (t Triplets) Len() int { return len(t.I) }

// EnumerateTriplets derives every chain k -> j -> i with k != i.  Edges e =
// (i <- j) are visited in id order; for each, the edges ending at j are
// visited in the order EdgesWithTarget returns them.  The back-and-forth
// chain k == i is always dropped.
func EnumerateTriplets(edges *EdgeIndex) Triplets {
	total := 0
	for _, j := range edges.Source {
		total += edges.Degree(j)
	}
	// Symmetric relations contribute exactly one k == i candidate per edge.
	capacity := total - edges.Len()
	if capacity < 0 {
		capacity = 0
	}

	t := Triplets{
		I:        make([]int, 0, capacity),
		J:        make([]int, 0, capacity),
		K:        make([]int, 0, capacity),
		ExpandKJ: make([]int, 0, capacity),
		ReduceJI: make([]int, 0, capacity),
	}
	for e := range edges.Target {
		i, j := edges.Target[e], edges.Source[e]
		first, sources := edges.EdgesWithTarget(j)
		for off, k := range sources {
			if k == i {
				continue
			}
			t.I = append(t.I, i)
			t.J = append(t.J, j)
			t.K = append(t.K, k)
			t.ExpandKJ = append(t.ExpandKJ, first+off)
			t.ReduceJI = append(t.ReduceJI, e)
		}
	}
	return t
}
