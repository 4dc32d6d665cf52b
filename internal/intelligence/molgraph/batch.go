package molgraph

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// ---------------------------------------------------------------------------
// JSON-safe float arrays
// ---------------------------------------------------------------------------

// FloatArray is a float64 slice whose JSON form writes non-finite values as
// null and reads null back as NaN.
type FloatArray []float64

// MarshalJSON implements json.Marshaler.
func (a FloatArray) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(a)*8)
	buf = append(buf, '[')
	for i, v := range a {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendFloat(buf, v)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *FloatArray) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FloatArray, len(raw))
	for i, p := range raw {
		out[i] = nanIfNil(p)
	}
	*a = out
	return nil
}

// Positions is the per-atom coordinate array R.
type Positions []molecule.Vec3

// MarshalJSON implements json.Marshaler.
func (p Positions) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(p)*24)
	buf = append(buf, '[')
	for i, v := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '[')
		buf = appendFloat(buf, v[0])
		buf = append(buf, ',')
		buf = appendFloat(buf, v[1])
		buf = append(buf, ',')
		buf = appendFloat(buf, v[2])
		buf = append(buf, ']')
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Positions) UnmarshalJSON(data []byte) error {
	var raw [][3]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Positions, len(raw))
	for i, r := range raw {
		out[i] = molecule.Vec3{nanIfNil(r[0]), nanIfNil(r[1]), nanIfNil(r[2])}
	}
	*p = out
	return nil
}

func appendFloat(buf []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, v, 'g', -1, 64)
}

func nanIfNil(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// ---------------------------------------------------------------------------
// IndexBatch
// ---------------------------------------------------------------------------

// IndexBatch is the index record of one batch.  Atoms are numbered globally
// across the batch, molecules concatenated in selection order.
type IndexBatch struct {
	// N is the atom count per selected molecule.
	N []int
	// BatchSeg maps each atom to its molecule's position in the batch.
	BatchSeg []int
	// Z is the atomic number per atom, zero where the archive has none.
	Z []int
	// R is the position per atom.
	R Positions

	// EdgeI and EdgeJ are the target and source atom of every edge.
	EdgeI []int
	EdgeJ []int

	TripletI []int
	TripletJ []int
	TripletK []int
	ExpandKJ []int
	ReduceJI []int

	// Targets holds one value per molecule for every target key.
	Targets map[molecule.TargetKey]FloatArray
}

// Molecules returns the batch size.
func (b *IndexBatch) Molecules() int { return len(b.N) }

// Atoms returns the total atom count.
func (b *IndexBatch) Atoms() int { return len(b.BatchSeg) }

// Edges returns the edge count.
func (b *IndexBatch) Edges() int { return len(b.EdgeI) }

// Triplets returns the triplet count.
func (b *IndexBatch) Triplets() int { return len(b.TripletI) }

// Index returns the index array stored under key, nil for an unknown key.
func (b *IndexBatch) Index(key molecule.IndexKey) []int {
	if p := b.indexField(key); p != nil {
		return *p
	}
	return nil
}

// Target returns the values of a target property.
func (b *IndexBatch) Target(key molecule.TargetKey) FloatArray {
	return b.Targets[key]
}

func (b *IndexBatch) indexField(key molecule.IndexKey) *[]int {
	switch key {
	case molecule.IndexBatchSeg:
		return &b.BatchSeg
	case molecule.IndexEdgeI:
		return &b.EdgeI
	case molecule.IndexEdgeJ:
		return &b.EdgeJ
	case molecule.IndexExpandKJ:
		return &b.ExpandKJ
	case molecule.IndexReduceJI:
		return &b.ReduceJI
	case molecule.IndexTripletI:
		return &b.TripletI
	case molecule.IndexTripletJ:
		return &b.TripletJ
	case molecule.IndexTripletK:
		return &b.TripletK
	}
	return nil
}

// CheckShapes verifies the length relations between the arrays: per-atom
// arrays agree with sum(N), edge and triplet arrays agree pairwise and every
// target has one value per molecule.
func (b *IndexBatch) CheckShapes() error {
	total := 0
	for _, n := range b.N {
		total += n
	}
	mismatch := func(format string, args ...interface{}) error {
		return errors.New(errors.ErrCodeShapeMismatch, "inconsistent batch").WithDetailf(format, args...)
	}
	if len(b.BatchSeg) != total || len(b.Z) != total || len(b.R) != total {
		return mismatch("sum(N)=%d batch_seg=%d Z=%d R=%d", total, len(b.BatchSeg), len(b.Z), len(b.R))
	}
	if len(b.EdgeI) != len(b.EdgeJ) {
		return mismatch("idnb_i=%d idnb_j=%d", len(b.EdgeI), len(b.EdgeJ))
	}
	t := len(b.TripletI)
	if len(b.TripletJ) != t || len(b.TripletK) != t || len(b.ExpandKJ) != t || len(b.ReduceJI) != t {
		return mismatch("triplet arrays %d/%d/%d/%d/%d",
			t, len(b.TripletJ), len(b.TripletK), len(b.ExpandKJ), len(b.ReduceJI))
	}
	for _, key := range molecule.TargetKeys {
		if got := len(b.Targets[key]); got != len(b.N) {
			return mismatch("%s has %d values for %d molecules", key, got, len(b.N))
		}
	}
	return nil
}

// MarshalJSON writes the record as one flat object keyed by the feature,
// index and target names.  Keys are sorted so equal batches encode to equal
// bytes.
func (b IndexBatch) MarshalJSON() ([]byte, error) {
	fields := make(map[string]interface{}, 3+len(molecule.IndexKeys)+len(molecule.TargetKeys))
	fields[string(molecule.FeatureAtomCount)] = ints(b.N)
	fields[string(molecule.FeatureAtomicNum)] = ints(b.Z)
	fields[string(molecule.FeaturePositions)] = b.R
	for _, key := range molecule.IndexKeys {
		fields[string(key)] = ints(b.Index(key))
	}
	for _, key := range molecule.TargetKeys {
		fields[string(key)] = b.Targets[key]
	}
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.  Unknown keys are rejected.
func (b *IndexBatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := IndexBatch{Targets: make(map[molecule.TargetKey]FloatArray, len(molecule.TargetKeys))}
	for name, msg := range raw {
		var dst interface{}
		switch name {
		case string(molecule.FeatureAtomCount):
			dst = &out.N
		case string(molecule.FeatureAtomicNum):
			dst = &out.Z
		case string(molecule.FeaturePositions):
			dst = &out.R
		default:
			if p := out.indexField(molecule.IndexKey(name)); p != nil {
				dst = p
			} else if key := molecule.TargetKey(name); key.IsValid() {
				var values FloatArray
				if err := json.Unmarshal(msg, &values); err != nil {
					return err
				}
				out.Targets[key] = values
				continue
			} else {
				return errors.New(errors.ErrCodeUnknownKey, "unknown batch field").WithDetail(name)
			}
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			return err
		}
	}
	*b = out
	return nil
}

func ints(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
