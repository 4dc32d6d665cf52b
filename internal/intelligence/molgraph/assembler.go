package molgraph

// AssembleBlockDiagonal merges per-molecule relations, in order, into one
// relation over batch-global atom ids.  Molecule k's atoms are offset by the
// atom count of molecules 0..k-1.  Runs in O(total atoms + total edges).
func AssembleBlockDiagonal(blocks []CSR) CSR {
	rows, nnz := 0, 0
	for _, b := range blocks {
		rows += b.Rows()
		nnz += b.NNZ()
	}

	out := CSR{RowPtr: make([]int, 1, rows+1), Col: make([]int, 0, nnz)}
	for _, b := range blocks {
		if b.Rows() == 0 {
			continue
		}
		out.AppendBlock(b)
	}
	return out
}
