package answer

import (
	"context"

	"github.com/kailas-cloud/askme/internal/domain"
	"github.com/kailas-cloud/askme/internal/prompt"
)

// Retriever returns the record texts most relevant to a question, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// PromptBuilder renders the completion prompt.
type PromptBuilder interface {
	Build(question string, context []string) prompt.Prompt
}

// Completer generates the answer text.
type Completer interface {
	Generate(ctx context.Context, prompt string) (domain.Completion, error)
}

// BudgetChecker enforces the shared token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}
