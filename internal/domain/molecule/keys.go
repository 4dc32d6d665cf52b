package molecule

import (
	"strings"

	"github.com/turtacn/MolGraph/pkg/errors"
)

// ---------------------------------------------------------------------------
// Key schemas
// ---------------------------------------------------------------------------

// FeatureKey names a per-molecule input column of the raw archive.
type FeatureKey string

const (
	FeatureID        FeatureKey = "id"
	FeatureAtomicNum FeatureKey = "Z"
	FeaturePositions FeatureKey = "R"
	FeatureAtomCount FeatureKey = "N"
)

// FeatureKeys lists every recognised input column.
var FeatureKeys = [...]FeatureKey{FeatureID, FeatureAtomicNum, FeaturePositions, FeatureAtomCount}

// TargetKey names a molecule-level scalar property.
type TargetKey string

const (
	TargetMu    TargetKey = "mu"
	TargetAlpha TargetKey = "alpha"
	TargetHOMO  TargetKey = "homo"
	TargetLUMO  TargetKey = "lumo"
	TargetGap   TargetKey = "gap"
	TargetR2    TargetKey = "r2"
	TargetZPVE  TargetKey = "zpve"
	TargetU0    TargetKey = "U0"
	TargetU     TargetKey = "U"
	TargetH     TargetKey = "H"
	TargetG     TargetKey = "G"
	TargetCv    TargetKey = "Cv"
)

// TargetKeys lists every target property in output order.
var TargetKeys = [...]TargetKey{
	TargetMu, TargetAlpha, TargetHOMO, TargetLUMO, TargetGap, TargetR2,
	TargetZPVE, TargetU0, TargetU, TargetH, TargetG, TargetCv,
}

// IndexKey names an index array of a built batch.
type IndexKey string

const (
	IndexBatchSeg IndexKey = "batch_seg"
	IndexEdgeI    IndexKey = "idnb_i"
	IndexEdgeJ    IndexKey = "idnb_j"
	IndexExpandKJ IndexKey = "id_expand_kj"
	IndexReduceJI IndexKey = "id_reduce_ji"
	IndexTripletI IndexKey = "id3dnb_i"
	IndexTripletJ IndexKey = "id3dnb_j"
	IndexTripletK IndexKey = "id3dnb_k"
)

// IndexKeys lists every index array in output order.
var IndexKeys = [...]IndexKey{
	IndexBatchSeg, IndexEdgeI, IndexEdgeJ, IndexExpandKJ,
	IndexReduceJI, IndexTripletI, IndexTripletJ, IndexTripletK,
}

// IsValid reports whether k is one of the recognised target properties.
func (k TargetKey) IsValid() bool {
	for _, t := range TargetKeys {
		if t == k {
			return true
		}
	}
	return false
}

// IsValid reports whether k is one of the recognised input columns.
func (k FeatureKey) IsValid() bool {
	for _, f := range FeatureKeys {
		if f == k {
			return true
		}
	}
	return false
}

// ParseTargetKey resolves a target property name.  Names are case-sensitive
// ("U" and "u" are different properties) but surrounding whitespace is ignored.
func ParseTargetKey(s string) (TargetKey, error) {
	k := TargetKey(strings.TrimSpace(s))
	if !k.IsValid() {
		return "", errors.New(errors.ErrCodeUnknownKey, "unknown target property").WithDetail(s)
	}
	return k, nil
}

// TargetNames returns the target keys as plain strings.
func TargetNames() []string {
	return targetNames(TargetKeys[:])
}
