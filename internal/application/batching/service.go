// Package batching is the application service in front of the batch builder.
// It adds a read-through cache of built batches, dataset introspection and
// export of batches to object storage.
package batching

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolGraph/internal/intelligence/molgraph"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// Service defines the batch application operations.
type Service interface {
	BuildBatch(ctx context.Context, indices []int) (*molgraph.IndexBatch, error)
	ExportBatch(ctx context.Context, input *ExportInput) (*ExportResult, error)
	DatasetInfo() *DatasetInfo
}

// Builder is the batch construction dependency.
type Builder interface {
	BuildBatch(ctx context.Context, indices []int) (*molgraph.IndexBatch, error)
	Cutoff() float64
	FillValue() float64
}

// Dataset is the introspection side of the molecule store.
type Dataset interface {
	Len() int
	MaxAtoms() int
	TotalAtoms() int
	HasAtomCounts() bool
	HasAtomicNumbers() bool
	HasIDs() bool
	PresentTargets() []molecule.TargetKey
	CheckIndices(indices []int) error
	Fingerprint() string
}

// Cache is the read-through cache used for built batches.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// Uploader stores exported batches.
type Uploader interface {
	Upload(ctx context.Context, req *minio.UploadRequest) (*minio.UploadResult, error)
}

// ExportInput selects the batch to export and where to put it.
type ExportInput struct {
	Indices []int
	// Bucket overrides the service's export bucket.
	Bucket string
	// ObjectKey defaults to a key derived from the dataset and selection.
	ObjectKey string
}

// ExportResult describes an uploaded batch.
type ExportResult struct {
	URI       string `json:"uri"`
	Size      int64  `json:"size"`
	Molecules int    `json:"molecules"`
	Atoms     int    `json:"atoms"`
	Edges     int    `json:"edges"`
	Triplets  int    `json:"triplets"`
}

// DatasetInfo summarises the loaded dataset.
type DatasetInfo struct {
	Molecules        int      `json:"molecules"`
	MaxAtoms         int      `json:"max_atoms"`
	TotalAtoms       int      `json:"total_atoms"`
	HasAtomCounts    bool     `json:"has_atom_counts"`
	HasAtomicNumbers bool     `json:"has_atomic_numbers"`
	HasIDs           bool     `json:"has_ids"`
	Targets          []string `json:"targets"`
	Fingerprint      string   `json:"fingerprint"`
	Cutoff           float64  `json:"cutoff"`
}

// Option configures the service.
type Option func(*serviceImpl)

// WithCache enables caching of built batches for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithExporter enables ExportBatch, writing to bucket by default.
func WithExporter(u Uploader, bucket string) Option {
	return func(s *serviceImpl) {
		s.uploader = u
		s.bucket = bucket
	}
}

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) Option {
	return func(s *serviceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

type serviceImpl struct {
	builder  Builder
	dataset  Dataset
	cache    Cache
	cacheTTL time.Duration
	uploader Uploader
	bucket   string
	logger   logging.Logger
}

// NewService creates the batch service.
func NewService(builder Builder, dataset Dataset, opts ...Option) Service {
	s := &serviceImpl{
		builder: builder,
		dataset: dataset,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildBatch returns the batch for indices, from the cache when possible.
// Invalid selections never reach the cache.
func (s *serviceImpl) BuildBatch(ctx context.Context, indices []int) (*molgraph.IndexBatch, error) {
	if s.cache == nil || len(indices) == 0 || s.dataset.CheckIndices(indices) != nil {
		return s.builder.BuildBatch(ctx, indices)
	}

	var batch molgraph.IndexBatch
	err := s.cache.GetOrSet(ctx, s.cacheKey(indices), &batch, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.builder.BuildBatch(ctx, indices)
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (s *serviceImpl) ExportBatch(ctx context.Context, input *ExportInput) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "batch export is not configured")
	}
	if input == nil {
		return nil, errors.New(errors.ErrCodeValidation, "export input is required")
	}

	batch, err := s.BuildBatch(ctx, input.Indices)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode batch")
	}

	bucket := input.Bucket
	if bucket == "" {
		bucket = s.bucket
	}
	key := input.ObjectKey
	if key == "" {
		key = s.exportKey(input.Indices)
	}

	res, err := s.uploader.Upload(ctx, &minio.UploadRequest{
		Bucket:      bucket,
		ObjectKey:   key,
		Data:        data,
		ContentType: "application/json",
		Metadata: map[string]string{
			"dataset-fingerprint": s.dataset.Fingerprint(),
			"cutoff":              strconv.FormatFloat(s.builder.Cutoff(), 'g', -1, 64),
			"molecules":           strconv.Itoa(batch.Molecules()),
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Batch exported",
		logging.String("uri", res.URI),
		logging.Int("molecules", batch.Molecules()),
		logging.Int64("bytes", res.Size))

	return &ExportResult{
		URI:       res.URI,
		Size:      res.Size,
		Molecules: batch.Molecules(),
		Atoms:     batch.Atoms(),
		Edges:     batch.Edges(),
		Triplets:  batch.Triplets(),
	}, nil
}

func (s *serviceImpl) DatasetInfo() *DatasetInfo {
	targets := s.dataset.PresentTargets()
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return &DatasetInfo{
		Molecules:        s.dataset.Len(),
		MaxAtoms:         s.dataset.MaxAtoms(),
		TotalAtoms:       s.dataset.TotalAtoms(),
		HasAtomCounts:    s.dataset.HasAtomCounts(),
		HasAtomicNumbers: s.dataset.HasAtomicNumbers(),
		HasIDs:           s.dataset.HasIDs(),
		Targets:          names,
		Fingerprint:      s.dataset.Fingerprint(),
		Cutoff:           s.builder.Cutoff(),
	}
}

// cacheKey identifies a batch by dataset content, builder parameters and
// the ordered selection.
func (s *serviceImpl) cacheKey(indices []int) string {
	return "batch:" + s.datasetTag() + ":" + SelectionDigest(indices)
}

func (s *serviceImpl) exportKey(indices []int) string {
	return "batches/" + s.datasetTag() + "/" + SelectionDigest(indices) + ".json"
}

func (s *serviceImpl) datasetTag() string {
	fp := s.dataset.Fingerprint()
	if len(fp) > 16 {
		fp = fp[:16]
	}
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s.builder.Cutoff()))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s.builder.FillValue()))
	h.Write(buf[:])
	return fp + "-" + hex.EncodeToString(h.Sum(nil))[:8]
}

// SelectionDigest is a hex digest of an ordered index list.  Order and
// duplicates matter.
func SelectionDigest(indices []int) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(indices)))
	h.Write(buf[:])
	for _, idx := range indices {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(idx)))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
