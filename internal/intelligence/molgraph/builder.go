// Package molgraph turns a selection of molecules into the index arrays a
// directional message-passing network consumes: neighbour edges within a
// cutoff radius and the three-body triplets chained from them.
package molgraph

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// MoleculeSource is the read side of the molecule store.
type MoleculeSource interface {
	Len() int
	Select(indices []int) ([]molecule.Molecule, error)
	Target(key molecule.TargetKey) molecule.TargetColumn
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// BuilderOption configures a BatchBuilder.
type BuilderOption func(*BatchBuilder)

// WithWorkers bounds concurrent per-molecule graph construction.  Values
// below 1 are ignored.
func WithWorkers(n int) BuilderOption {
	return func(b *BatchBuilder) {
		if n >= 1 {
			b.workers = n
		}
	}
}

// WithFillValue sets the value used for absent target properties.
func WithFillValue(v float64) BuilderOption {
	return func(b *BatchBuilder) { b.fill = v }
}

// WithMaxBatchSize rejects selections longer than n.  0 disables the limit.
func WithMaxBatchSize(n int) BuilderOption {
	return func(b *BatchBuilder) {
		if n >= 0 {
			b.maxBatchSize = n
		}
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l logging.Logger) BuilderOption {
	return func(b *BatchBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the builder's metrics sink.
func WithMetrics(m Metrics) BuilderOption {
	return func(b *BatchBuilder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// ---------------------------------------------------------------------------
// BatchBuilder
// ---------------------------------------------------------------------------

// BatchBuilder builds IndexBatch records from a MoleculeSource with a fixed
// cutoff.  It holds no mutable state and is safe for concurrent use.
type BatchBuilder struct {
	source       MoleculeSource
	cutoff       float64
	workers      int
	fill         float64
	maxBatchSize int
	logger       logging.Logger
	metrics      Metrics
}

// NewBatchBuilder validates cutoff and returns a builder.  The cutoff must be
// positive and finite.
func NewBatchBuilder(source MoleculeSource, cutoff float64, opts ...BuilderOption) (*BatchBuilder, error) {
	if source == nil {
		return nil, errors.New(errors.ErrCodeValidation, "molecule source is required")
	}
	if math.IsNaN(cutoff) || math.IsInf(cutoff, 0) || cutoff <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCutoff, "cutoff must be positive and finite").
			WithDetailf("got %v", cutoff)
	}

	b := &BatchBuilder{
		source:  source,
		cutoff:  cutoff,
		workers: 1,
		fill:    math.NaN(),
		logger:  logging.NewNopLogger(),
		metrics: NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Cutoff returns the neighbour radius.
func (b *BatchBuilder) Cutoff() float64 { return b.cutoff }

// FillValue returns the value used for absent targets.
func (b *BatchBuilder) FillValue() float64 { return b.fill }

// BuildBatch selects the molecules at indices and derives their edge and
// triplet indices.  Any invalid index fails the whole call.  Per-molecule
// graphs are built concurrently; offset assembly and numbering run once all
// of them are known.
func (b *BatchBuilder) BuildBatch(ctx context.Context, indices []int) (*IndexBatch, error) {
	start := time.Now()
	batch, err := b.build(ctx, indices)
	elapsed := time.Since(start)

	if err != nil {
		b.metrics.ObserveBatch(StatusError, len(indices), 0, 0, 0, elapsed)
		b.logger.Warn("batch build failed",
			logging.Int("molecules", len(indices)),
			logging.String("code", string(errors.GetCode(err))),
			logging.Err(err))
		return nil, err
	}

	b.metrics.ObserveBatch(StatusOK, batch.Molecules(), batch.Atoms(), batch.Edges(), batch.Triplets(), elapsed)
	b.logger.Debug("batch built",
		logging.Int("molecules", batch.Molecules()),
		logging.Int("atoms", batch.Atoms()),
		logging.Int("edges", batch.Edges()),
		logging.Int("triplets", batch.Triplets()),
		logging.Duration("elapsed", elapsed))
	return batch, nil
}

func (b *BatchBuilder) build(ctx context.Context, indices []int) (*IndexBatch, error) {
	if len(indices) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyBatch, "batch selects no molecules")
	}
	if b.maxBatchSize > 0 && len(indices) > b.maxBatchSize {
		return nil, errors.New(errors.ErrCodeValidation, "batch too large").
			WithDetailf("%d molecules, limit %d", len(indices), b.maxBatchSize)
	}

	mols, err := b.source.Select(indices)
	if err != nil {
		return nil, err
	}

	blocks := make([]CSR, len(mols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range mols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			blocks[i] = BuildNeighborGraph(mols[i].Positions, b.cutoff)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch build interrupted")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch build interrupted")
	}

	adj := AssembleBlockDiagonal(blocks)
	edges := NewEdgeIndex(adj)
	triplets := EnumerateTriplets(edges)

	batch := assembleAtoms(mols)
	batch.EdgeI = edges.Target
	batch.EdgeJ = edges.Source
	batch.TripletI = triplets.I
	batch.TripletJ = triplets.J
	batch.TripletK = triplets.K
	batch.ExpandKJ = triplets.ExpandKJ
	batch.ReduceJI = triplets.ReduceJI

	batch.Targets = make(map[molecule.TargetKey]FloatArray, len(molecule.TargetKeys))
	for _, key := range molecule.TargetKeys {
		batch.Targets[key] = b.source.Target(key).Gather(indices, b.fill)
	}
	return batch, nil
}

// assembleAtoms concatenates the per-atom arrays in selection order.
func assembleAtoms(mols []molecule.Molecule) *IndexBatch {
	total := 0
	for _, m := range mols {
		total += m.N
	}

	batch := &IndexBatch{
		N:        make([]int, len(mols)),
		BatchSeg: make([]int, 0, total),
		Z:        make([]int, 0, total),
		R:        make(Positions, 0, total),
	}
	for seg, m := range mols {
		batch.N[seg] = m.N
		for a := 0; a < m.N; a++ {
			batch.BatchSeg = append(batch.BatchSeg, seg)
			if m.AtomicNumbers != nil {
				batch.Z = append(batch.Z, m.AtomicNumbers[a])
			} else {
				batch.Z = append(batch.Z, 0)
			}
		}
		batch.R = append(batch.R, m.Positions...)
	}
	return batch
}
