// Package retrieval finds the knowledge-base records most relevant to a question.
package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/askme/internal/domain"
)

// Service embeds a query and searches the index.
type Service struct {
	embed Embedder
	index Index
}

// New creates a retrieval service.
func New(embed Embedder, index Index) *Service {
	return &Service{embed: embed, index: index}
}

// Search returns the texts of the k most similar records, best first.
func (s *Service) Search(ctx context.Context, query string, k int) ([]string, error) {
	hits, err := s.SearchHits(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return domain.Texts(hits), nil
}

// SearchHits is Search with scores.
func (s *Service) SearchHits(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k=%d: %w", k, domain.ErrInvalidK)
	}

	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Nearest(ctx, res.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}
