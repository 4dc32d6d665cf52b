// Package molecule holds the raw molecular dataset and exposes selection of
// molecules by index.  The store is built once at load time and is read-only
// afterwards, so it is safe for concurrent use.
package molecule

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"

	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// ---------------------------------------------------------------------------
// Value objects
// ---------------------------------------------------------------------------

// Vec3 is a Cartesian position.
type Vec3 [3]float64

// Molecule is one selected molecule, truncated to its true atom count.
type Molecule struct {
	// Index is the molecule's position in the store.
	Index int
	// ID is the archive identifier, -1 when the archive has no id column.
	ID int64
	// N is the atom count.
	N int
	// Positions has exactly N entries.
	Positions []Vec3
	// AtomicNumbers has N entries, or is nil when the archive has no Z column.
	AtomicNumbers []int
}

// Arrays is the raw column set handed over by a dataset loader.  Per-atom
// columns are flattened in C order with MaxAtoms slots per molecule; only the
// first N[i] slots of molecule i are meaningful.
type Arrays struct {
	Count    int
	MaxAtoms int

	// R holds Count*MaxAtoms*3 coordinates.  Required.
	R []float64
	// N holds Count atom counts.  Optional.
	N []int
	// Z holds Count*MaxAtoms atomic numbers.  Optional.
	Z []int
	// ID holds Count identifiers.  Optional.
	ID []int64
	// Targets holds Count values per available property.
	Targets map[TargetKey][]float64
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store is the MoleculeStore: the long-lived owner of the raw dataset.
type Store struct {
	count    int
	maxAtoms int
	r        []float64
	n        []int
	z        []int
	id       []int64
	targets  map[TargetKey]TargetColumn
	logger   logging.Logger

	fpOnce      sync.Once
	fingerprint string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l logging.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore validates arrays and builds a Store.  Missing positions are fatal.
// A missing atom count column is not: every molecule then has zero atoms and
// a warning is logged.
func NewStore(arrays Arrays, opts ...StoreOption) (*Store, error) {
	s := &Store{
		count:    arrays.Count,
		maxAtoms: arrays.MaxAtoms,
		r:        arrays.R,
		n:        arrays.N,
		z:        arrays.Z,
		id:       arrays.ID,
		targets:  make(map[TargetKey]TargetColumn, len(TargetKeys)),
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if arrays.R == nil {
		return nil, errors.New(errors.ErrCodeMissingPositions, "dataset has no positions")
	}
	if arrays.Count < 0 || arrays.MaxAtoms < 0 {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "negative dataset dimensions").
			WithDetailf("count=%d max_atoms=%d", arrays.Count, arrays.MaxAtoms)
	}
	if want := arrays.Count * arrays.MaxAtoms * 3; len(arrays.R) != want {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "positions length mismatch").
			WithDetailf("got %d, want %d", len(arrays.R), want)
	}

	if arrays.N == nil {
		s.logger.Warn("dataset has no atom counts, every molecule is treated as empty",
			logging.Int("molecules", arrays.Count))
	} else {
		if len(arrays.N) != arrays.Count {
			return nil, errors.New(errors.ErrCodeShapeMismatch, "atom count length mismatch").
				WithDetailf("got %d, want %d", len(arrays.N), arrays.Count)
		}
		for i, n := range arrays.N {
			if n < 0 || n > arrays.MaxAtoms {
				return nil, errors.New(errors.ErrCodeShapeMismatch, "atom count out of range").
					WithDetailf("molecule %d has N=%d, max atoms %d", i, n, arrays.MaxAtoms)
			}
		}
	}

	if arrays.Z != nil && len(arrays.Z) != arrays.Count*arrays.MaxAtoms {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "atomic number length mismatch").
			WithDetailf("got %d, want %d", len(arrays.Z), arrays.Count*arrays.MaxAtoms)
	}
	if arrays.ID != nil && len(arrays.ID) != arrays.Count {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "id length mismatch").
			WithDetailf("got %d, want %d", len(arrays.ID), arrays.Count)
	}

	for key, values := range arrays.Targets {
		if !key.IsValid() {
			return nil, errors.New(errors.ErrCodeUnknownKey, "unknown target property").WithDetail(string(key))
		}
		if values == nil {
			continue
		}
		if len(values) != arrays.Count {
			return nil, errors.New(errors.ErrCodeShapeMismatch, "target length mismatch").
				WithDetailf("%s: got %d, want %d", key, len(values), arrays.Count)
		}
	}
	for _, key := range TargetKeys {
		if values, ok := arrays.Targets[key]; ok && values != nil {
			s.targets[key] = PresentColumn(key, values)
		} else {
			s.targets[key] = AbsentColumn(key)
		}
	}

	s.logger.Debug("molecule store ready",
		logging.Int("molecules", s.count),
		logging.Int("max_atoms", s.maxAtoms),
		logging.Strings("targets", targetNames(s.PresentTargets())))
	return s, nil
}

// Len returns the number of molecules.
func (s *Store) Len() int { return s.count }

// MaxAtoms returns the per-molecule slot count of the per-atom columns.
func (s *Store) MaxAtoms() int { return s.maxAtoms }

// HasAtomCounts reports whether the archive supplied N.
func (s *Store) HasAtomCounts() bool { return s.n != nil }

// HasAtomicNumbers reports whether the archive supplied Z.
func (s *Store) HasAtomicNumbers() bool { return s.z != nil }

// HasIDs reports whether the archive supplied id.
func (s *Store) HasIDs() bool { return s.id != nil }

// AtomCount returns N for molecule i.  The caller range checks i.
func (s *Store) AtomCount(i int) int {
	if s.n == nil {
		return 0
	}
	return s.n[i]
}

// TotalAtoms returns the atom count summed over the dataset.
func (s *Store) TotalAtoms() int {
	total := 0
	for _, n := range s.n {
		total += n
	}
	return total
}

// Target returns the column for key.  Unknown keys yield an absent column.
func (s *Store) Target(key TargetKey) TargetColumn {
	if c, ok := s.targets[key]; ok {
		return c
	}
	return AbsentColumn(key)
}

// PresentTargets returns the available target keys in output order.
func (s *Store) PresentTargets() []TargetKey {
	var out []TargetKey
	for _, key := range TargetKeys {
		if s.targets[key].Present() {
			out = append(out, key)
		}
	}
	return out
}

// CheckIndices validates every index against [0, Len()).
func (s *Store) CheckIndices(indices []int) error {
	for pos, idx := range indices {
		if idx < 0 || idx >= s.count {
			return errors.New(errors.ErrCodeIndexOutOfRange, "molecule index out of range").
				WithDetailf("indices[%d]=%d, dataset has %d molecules", pos, idx, s.count)
		}
	}
	return nil
}

// Select returns the molecules at indices, in order.  Duplicates are allowed.
// If any index is out of range nothing is returned.
func (s *Store) Select(indices []int) ([]Molecule, error) {
	if err := s.CheckIndices(indices); err != nil {
		return nil, err
	}

	out := make([]Molecule, len(indices))
	for i, idx := range indices {
		out[i] = s.molecule(idx)
	}
	return out, nil
}

func (s *Store) molecule(idx int) Molecule {
	n := s.AtomCount(idx)
	m := Molecule{Index: idx, ID: -1, N: n, Positions: make([]Vec3, n)}

	base := idx * s.maxAtoms * 3
	for a := 0; a < n; a++ {
		off := base + a*3
		m.Positions[a] = Vec3{s.r[off], s.r[off+1], s.r[off+2]}
	}
	if s.z != nil {
		m.AtomicNumbers = make([]int, n)
		copy(m.AtomicNumbers, s.z[idx*s.maxAtoms:idx*s.maxAtoms+n])
	}
	if s.id != nil {
		m.ID = s.id[idx]
	}
	return m
}

// Fingerprint returns a stable SHA-256 digest of the stored arrays.  Cache
// keys include it so a reloaded dataset never serves stale batches.
func (s *Store) Fingerprint() string {
	s.fpOnce.Do(func() {
		h := sha256.New()
		var buf [8]byte
		putInt := func(v int64) {
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			h.Write(buf[:])
		}
		putFloat := func(v float64) {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
		section := func(name string, present bool) {
			h.Write([]byte(name))
			if present {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}

		putInt(int64(s.count))
		putInt(int64(s.maxAtoms))
		section(string(FeaturePositions), true)
		for _, v := range s.r {
			putFloat(v)
		}
		section(string(FeatureAtomCount), s.n != nil)
		for _, v := range s.n {
			putInt(int64(v))
		}
		section(string(FeatureAtomicNum), s.z != nil)
		for _, v := range s.z {
			putInt(int64(v))
		}
		section(string(FeatureID), s.id != nil)
		for _, v := range s.id {
			putInt(v)
		}
		for _, key := range TargetKeys {
			col := s.targets[key]
			section(string(key), col.Present())
			for _, v := range col.values {
				putFloat(v)
			}
		}
		s.fingerprint = hex.EncodeToString(h.Sum(nil))
	})
	return s.fingerprint
}

func targetNames(keys []TargetKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
