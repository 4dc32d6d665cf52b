package molgraph

// CSR is a compressed-row boolean adjacency relation.  Row i holds the
// source atoms of every edge whose target is i, in ascending order:
// Col[RowPtr[i]:RowPtr[i+1]].
type CSR struct {
	RowPtr []int
	Col    []int
}

// NewCSR returns an empty relation with zero rows.
func NewCSR() CSR {
	return CSR{RowPtr: []int{0}, Col: []int{}}
}

// BuildFromThreshold builds the relation over n atoms from a dense row-major
// n*n distance buffer.  Entry (i, j) is kept iff i != j and dist <= cutoff.
// The diagonal is skipped while building, never removed afterwards.
func BuildFromThreshold(n int, dist []float64, cutoff float64) CSR {
	m := CSR{RowPtr: make([]int, n+1), Col: make([]int, 0, n)}
	for i := 0; i < n; i++ {
		row := dist[i*n : (i+1)*n]
		for j, d := range row {
			if j == i {
				continue
			}
			if d <= cutoff {
				m.Col = append(m.Col, j)
			}
		}
		m.RowPtr[i+1] = len(m.Col)
	}
	return m
}

// Rows returns the number of atoms the relation spans.
func (m CSR) Rows() int {
	if len(m.RowPtr) == 0 {
		return 0
	}
	return len(m.RowPtr) - 1
}

// NNZ returns the number of stored edges.
func (m CSR) NNZ() int { return len(m.Col) }

// Row returns the ascending source atoms of row i.  The slice aliases the
// relation and must not be modified.
func (m CSR) Row(i int) []int {
	return m.Col[m.RowPtr[i]:m.RowPtr[i+1]]
}

// AppendBlock appends block on the diagonal: its rows follow the existing
// rows, its columns are shifted by the existing row count and its row
// pointers by the existing edge count.  Column order inside a row is kept.
func (m *CSR) AppendBlock(block CSR) {
	if len(block.RowPtr) == 0 {
		return
	}
	if len(m.RowPtr) == 0 {
		m.RowPtr = []int{0}
	}
	colOffset := m.Rows()
	nnzOffset := len(m.Col)

	for _, p := range block.RowPtr[1:] {
		m.RowPtr = append(m.RowPtr, p+nnzOffset)
	}
	for _, c := range block.Col {
		m.Col = append(m.Col, c+colOffset)
	}
}

// Nonzero enumerates the edges in row-major order and returns the parallel
// (row, column) arrays.
func (m CSR) Nonzero() (rows, cols []int) {
	rows = make([]int, len(m.Col))
	cols = make([]int, len(m.Col))
	copy(cols, m.Col)
	for i := 0; i < m.Rows(); i++ {
		for p := m.RowPtr[i]; p < m.RowPtr[i+1]; p++ {
			rows[p] = i
		}
	}
	return rows, cols
}
