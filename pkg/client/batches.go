package client

import (
	"context"
	"encoding/json"
	"math"
)

// Batch is the index record returned by the API.  Atoms are numbered
// globally across the batch.  Null values of the wire format decode as NaN.
type Batch struct {
	N        []int
	Z        []int
	R        [][3]float64
	BatchSeg []int

	IdnbI []int
	IdnbJ []int

	IDExpandKJ []int
	IDReduceJI []int
	ID3dnbI    []int
	ID3dnbJ    []int
	ID3dnbK    []int

	// Targets holds one value per molecule keyed by property name.
	Targets map[string][]float64
}

// Edges returns the number of directed edges.
func (b *Batch) Edges() int { return len(b.IdnbI) }

// Triplets returns the number of edge triplets.
func (b *Batch) Triplets() int { return len(b.ID3dnbI) }

// UnmarshalJSON decodes the flat wire object.  Keys other than the feature
// and index arrays are targets.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Batch{Targets: make(map[string][]float64)}
	ints := map[string]*[]int{
		"N": &out.N, "Z": &out.Z, "batch_seg": &out.BatchSeg,
		"idnb_i": &out.IdnbI, "idnb_j": &out.IdnbJ,
		"id_expand_kj": &out.IDExpandKJ, "id_reduce_ji": &out.IDReduceJI,
		"id3dnb_i": &out.ID3dnbI, "id3dnb_j": &out.ID3dnbJ, "id3dnb_k": &out.ID3dnbK,
	}
	for name, msg := range raw {
		if dst, ok := ints[name]; ok {
			if err := json.Unmarshal(msg, dst); err != nil {
				return err
			}
			continue
		}
		if name == "R" {
			var rows [][3]*float64
			if err := json.Unmarshal(msg, &rows); err != nil {
				return err
			}
			out.R = make([][3]float64, len(rows))
			for i, r := range rows {
				out.R[i] = [3]float64{orNaN(r[0]), orNaN(r[1]), orNaN(r[2])}
			}
			continue
		}
		var values []*float64
		if err := json.Unmarshal(msg, &values); err != nil {
			return err
		}
		col := make([]float64, len(values))
		for i, v := range values {
			col[i] = orNaN(v)
		}
		out.Targets[name] = col
	}
	*b = out
	return nil
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// ExportRequest selects a batch to upload to object storage.
type ExportRequest struct {
	Indices   []int  `json:"indices"`
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
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

// DatasetInfo summarises the dataset served by the API.
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

// BuildBatch builds the batch of the given molecules, in order.
func (c *Client) BuildBatch(ctx context.Context, indices []int) (*Batch, error) {
	var batch Batch
	if err := c.post(ctx, "/api/v1/batches", map[string][]int{"indices": nonNil(indices)}, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ExportBatch builds a batch server side and uploads it.
func (c *Client) ExportBatch(ctx context.Context, req *ExportRequest) (*ExportResult, error) {
	body := *req
	body.Indices = nonNil(body.Indices)
	var res ExportResult
	if err := c.post(ctx, "/api/v1/batches/export", &body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Dataset returns the dataset summary.
func (c *Client) Dataset(ctx context.Context) (*DatasetInfo, error) {
	var info DatasetInfo
	if err := c.get(ctx, "/api/v1/dataset", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ready reports nil when the server's readiness probe passes.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/readyz", nil)
}

// nonNil encodes an empty selection as [] rather than null.
func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
