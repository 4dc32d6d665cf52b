package npz

import (
	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// ToArrays extracts the molecule columns from an archive.  Members named
// after neither a feature nor a target key are ignored.
//
// Expected shapes: R (M, A, 3), Z (M, A), N, id and targets (M,).
func ToArrays(a *Archive) (molecule.Arrays, error) {
	var out molecule.Arrays

	r, err := a.Array(string(molecule.FeaturePositions))
	if err != nil {
		return out, errors.New(errors.ErrCodeMissingPositions, "archive has no positions").WithCause(err)
	}
	if len(r.Shape) != 3 || r.Shape[2] != 3 {
		return out, shapeError(r, "(molecules, atoms, 3)")
	}
	out.Count = r.Shape[0]
	out.MaxAtoms = r.Shape[1]
	out.R = r.Float64s()

	if arr, ok := a.arrays[string(molecule.FeatureAtomCount)]; ok {
		if len(arr.Shape) != 1 {
			return out, shapeError(arr, "(molecules,)")
		}
		if out.N, err = arr.Ints(); err != nil {
			return out, err
		}
	}
	if arr, ok := a.arrays[string(molecule.FeatureAtomicNum)]; ok {
		if len(arr.Shape) != 2 {
			return out, shapeError(arr, "(molecules, atoms)")
		}
		if out.Z, err = arr.Ints(); err != nil {
			return out, err
		}
	}
	if arr, ok := a.arrays[string(molecule.FeatureID)]; ok {
		if len(arr.Shape) != 1 {
			return out, shapeError(arr, "(molecules,)")
		}
		if out.ID, err = arr.Int64s(); err != nil {
			return out, err
		}
	}

	for _, key := range molecule.TargetKeys {
		arr, ok := a.arrays[string(key)]
		if !ok {
			continue
		}
		if len(arr.Shape) != 1 {
			return out, shapeError(arr, "(molecules,)")
		}
		if out.Targets == nil {
			out.Targets = make(map[molecule.TargetKey][]float64)
		}
		out.Targets[key] = arr.Float64s()
	}
	return out, nil
}

// LoadStore reads the archive at path into a molecule store.
func LoadStore(path string, opts ...molecule.StoreOption) (*molecule.Store, error) {
	a, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewStore(a, opts...)
}

// NewStore builds a molecule store from a decoded archive.
func NewStore(a *Archive, opts ...molecule.StoreOption) (*molecule.Store, error) {
	arrays, err := ToArrays(a)
	if err != nil {
		return nil, err
	}
	return molecule.NewStore(arrays, opts...)
}

func shapeError(arr *Array, want string) error {
	return errors.New(errors.ErrCodeShapeMismatch, "unexpected array shape").
		WithDetailf("%s has shape %v, want %s", arr.Name, arr.Shape, want)
}
