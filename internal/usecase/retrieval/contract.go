package retrieval

import (
	"context"

	"github.com/kailas-cloud/askme/internal/domain"
)

// Embedder vectorizes the query with the same chain that embedded the corpus.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index finds the records nearest to a query vector.
type Index interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]domain.Hit, error)
}
