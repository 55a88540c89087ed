package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/askme/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, m.err
}

type mockIndex struct {
	hits  []domain.Hit
	err   error
	lastK int
	lastV []float32
}

func (m *mockIndex) Nearest(_ context.Context, v []float32, k int) ([]domain.Hit, error) {
	m.lastK = k
	m.lastV = v
	return m.hits, m.err
}

// --- Tests ---

func TestSearch(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1, 0.9}}
	idx := &mockIndex{hits: []domain.Hit{
		{Record: domain.Record{Ordinal: 2, Text: "best"}, Score: 0.9},
		{Record: domain.Record{Ordinal: 0, Text: "next"}, Score: 0.4},
	}}

	got, err := New(emb, idx).Search(context.Background(), "who are you?", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "best" || got[1] != "next" {
		t.Errorf("unexpected texts: %v", got)
	}
	if idx.lastK != 4 {
		t.Errorf("expected k=4, got %d", idx.lastK)
	}
	if len(idx.lastV) != 2 || idx.lastV[1] != 0.9 {
		t.Errorf("query vector not passed through: %v", idx.lastV)
	}
}

func TestSearch_InvalidK(t *testing.T) {
	emb := &mockEmbedder{}
	_, err := New(emb, &mockIndex{}).Search(context.Background(), "q", 0)
	if !errors.Is(err, domain.ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called for invalid k")
	}
}

func TestSearch_EmbedError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	_, err := New(emb, &mockIndex{}).Search(context.Background(), "q", 4)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestSearch_IndexError(t *testing.T) {
	idx := &mockIndex{err: domain.ErrDimensionMismatch}
	_, err := New(&mockEmbedder{vec: []float32{1}}, idx).Search(context.Background(), "q", 4)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
