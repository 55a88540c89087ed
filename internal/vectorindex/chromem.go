package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/askme/internal/domain"
)

const collectionName = "knowledge-base"

var errNoEmbeddingFunc = errors.New("chromem index embeds nothing itself")

// ChromemIndex keeps the corpus in an in-memory chromem-go collection.
// Document IDs are record ordinals.
type ChromemIndex struct {
	collection *chromem.Collection
	records    []domain.Record
	dim        int
}

// BuildChromem loads records and their embeddings into a new in-memory collection.
func BuildChromem(ctx context.Context, records []domain.Record, embeddings [][]float32) (*ChromemIndex, error) {
	dim, err := validate(records, embeddings)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	c, err := db.CreateCollection(collectionName, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   r.Text,
			Embedding: embeddings[i],
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	recs := make([]domain.Record, len(records))
	for i, r := range records {
		recs[i] = domain.Record{Ordinal: i, Text: r.Text}
	}
	return &ChromemIndex{collection: c, records: recs, dim: dim}, nil
}

// Nearest queries the collection and orders hits the same way Index does.
// The whole collection is ranked so boundary ties resolve by corpus order.
func (x *ChromemIndex) Nearest(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k=%d: %w", k, domain.ErrInvalidK)
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(vector), x.dim, domain.ErrDimensionMismatch)
	}

	results, err := x.collection.QueryEmbedding(ctx, vector, x.collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]domain.Hit, 0, len(results))
	for _, r := range results {
		ord, err := strconv.Atoi(r.ID)
		if err != nil || ord < 0 || ord >= len(x.records) {
			return nil, fmt.Errorf("unexpected document id %q", r.ID)
		}
		hits = append(hits, domain.Hit{Record: x.records[ord], Score: similarity(r.Similarity)})
	}
	sortHits(hits)

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (x *ChromemIndex) Len() int { return x.collection.Count() }

// similarity maps the NaN chromem-go yields for zero-norm vectors to 0,
// the score Index gives them.
func similarity(s float32) float64 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	return float64(s)
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}
