package domain

import "context"

// Completion is the generated text and its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Answer is the result of one question. It is never persisted.
type Answer struct {
	ID      string
	Text    string
	Context []string
	Usage   Usage
}

type usageKey struct{}

// Usage collects token consumption for a single question.
// The pipeline puts a mutable pointer into the context; the embedding and
// completion paths add to it.
type Usage struct {
	EmbeddingTokens  int
	CompletionTokens int
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records tokens spent on query embedding.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
	}
}

// AddCompletionTokens records tokens spent on generation.
func (u *Usage) AddCompletionTokens(n int) {
	if u != nil {
		u.CompletionTokens += n
	}
}

// Total returns all tokens consumed.
func (u Usage) Total() int {
	return u.EmbeddingTokens + u.CompletionTokens
}
