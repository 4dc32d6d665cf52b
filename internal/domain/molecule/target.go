package molecule

// TargetColumn is one target property of the store: either present with a
// value per molecule, or absent.  Absent columns are replaced with a fill
// value when a batch is gathered.
type TargetColumn struct {
	Key     TargetKey
	values  []float64
	present bool
}

// PresentColumn wraps the per-molecule values of key.
func PresentColumn(key TargetKey, values []float64) TargetColumn {
	return TargetColumn{Key: key, values: values, present: true}
}

// AbsentColumn marks key as unavailable in the store.
func AbsentColumn(key TargetKey) TargetColumn {
	return TargetColumn{Key: key}
}

// Present reports whether the archive supplied this property.
func (c TargetColumn) Present() bool { return c.present }

// Len returns the number of stored values, 0 for an absent column.
func (c TargetColumn) Len() int { return len(c.values) }

// Gather returns one value per selected molecule.  An absent column yields
// len(indices) copies of fill.  Indices must already be range checked.
func (c TargetColumn) Gather(indices []int, fill float64) []float64 {
	out := make([]float64, len(indices))
	if !c.present {
		for i := range out {
			out[i] = fill
		}
		return out
	}
	for i, idx := range indices {
		out[i] = c.values[idx]
	}
	return out
}
