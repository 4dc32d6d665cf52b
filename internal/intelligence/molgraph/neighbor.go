package molgraph

import (
	"math"

	"github.com/turtacn/MolGraph/internal/domain/molecule"
)

// BuildNeighborGraph returns the cutoff-radius adjacency of one molecule.
// Atoms i != j are neighbours iff their Euclidean distance is <= cutoff; ties
// at exactly cutoff count.  An atom with no neighbour gets an empty row.
//
// The n*n distance buffer lives only for the duration of the call.
func BuildNeighborGraph(positions []molecule.Vec3, cutoff float64) CSR {
	n := len(positions)
	if n == 0 {
		return NewCSR()
	}

	dist := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := distance(positions[i], positions[j])
			dist[i*n+j] = d
			dist[j*n+i] = d
		}
	}
	return BuildFromThreshold(n, dist, cutoff)
}

func distance(a, b molecule.Vec3) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
