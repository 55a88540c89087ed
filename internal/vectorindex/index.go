// Package vectorindex holds the in-memory similarity index over the corpus.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/askme/internal/domain"
)

// Searcher is implemented by every index backend.
type Searcher interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]domain.Hit, error)
	Len() int
}

// Index is a brute-force cosine index. It is immutable after Build and safe
// for concurrent reads.
type Index struct {
	records []domain.Record
	vectors [][]float64 // L2-normalised
	dim     int
}

// Build pairs records with their embeddings.
func Build(records []domain.Record, embeddings [][]float32) (*Index, error) {
	dim, err := validate(records, embeddings)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		records: slices.Clone(records),
		vectors: make([][]float64, len(embeddings)),
		dim:     dim,
	}
	for i, e := range embeddings {
		idx.vectors[i] = normalize(e)
	}
	return idx, nil
}

// Nearest returns up to k records ordered by cosine similarity, highest first.
// Equal scores keep corpus order.
func (x *Index) Nearest(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k=%d: %w", k, domain.ErrInvalidK)
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(vector), x.dim, domain.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("nearest: %w", err)
	}

	q := normalize(vector)
	hits := make([]domain.Hit, len(x.records))
	for i, v := range x.vectors {
		hits[i] = domain.Hit{Record: x.records[i], Score: dot(q, v)}
	}
	sortHits(hits)

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (x *Index) Len() int { return len(x.records) }

// Dimensions returns the embedding width.
func (x *Index) Dimensions() int { return x.dim }

func validate(records []domain.Record, embeddings [][]float32) (int, error) {
	if len(records) != len(embeddings) {
		return 0, fmt.Errorf("%d records, %d embeddings: %w",
			len(records), len(embeddings), domain.ErrDimensionMismatch)
	}
	if len(embeddings) == 0 {
		return 0, fmt.Errorf("no embeddings: %w", domain.ErrDimensionMismatch)
	}
	dim := len(embeddings[0])
	for i, e := range embeddings {
		if len(e) == 0 {
			return 0, fmt.Errorf("embedding %d is empty: %w", i, domain.ErrDimensionMismatch)
		}
		if len(e) != dim {
			return 0, fmt.Errorf("embedding %d has %d dimensions, want %d: %w",
				i, len(e), dim, domain.ErrDimensionMismatch)
		}
	}
	return dim, nil
}

func sortHits(hits []domain.Hit) {
	slices.SortStableFunc(hits, func(a, b domain.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Record.Ordinal - b.Record.Ordinal
	})
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for i, f := range v {
		out[i] = float64(f)
		sum += out[i] * out[i]
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
