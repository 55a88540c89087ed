// Package prompt assembles the completion prompt from a template, the
// question and the retrieved context.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/kailas-cloud/askme/internal/domain"
)

// Placeholders recognised in templates.
const (
	PlaceholderPersona      = "{persona}"
	PlaceholderQuestion     = "{question}"
	PlaceholderRelevantData = "{relevant_data}"
)

// Prompt is the fully rendered text sent to the completion model.
type Prompt string

func (p Prompt) String() string { return string(p) }

// Assembler renders prompts from a validated template. It holds no mutable
// state and is safe for concurrent use.
type Assembler struct {
	template string
}

// New substitutes persona into template and checks that the question and
// context placeholders are present.
func New(template, persona string) (*Assembler, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("prompt template is empty: %w", domain.ErrConfiguration)
	}
	if strings.Contains(template, PlaceholderPersona) && strings.TrimSpace(persona) == "" {
		return nil, fmt.Errorf("template uses %s but no persona is set: %w",
			PlaceholderPersona, domain.ErrConfiguration)
	}
	for _, p := range []string{PlaceholderQuestion, PlaceholderRelevantData} {
		if !strings.Contains(template, p) {
			return nil, fmt.Errorf("template is missing %s: %w", p, domain.ErrConfiguration)
		}
	}

	return &Assembler{
		template: strings.ReplaceAll(template, PlaceholderPersona, strings.TrimSpace(persona)),
	}, nil
}

// NewVariant builds an Assembler from a built-in template.
func NewVariant(v Variant, persona string) (*Assembler, error) {
	t, ok := builtin[v]
	if !ok {
		return nil, fmt.Errorf("unknown prompt variant %q: %w", v, domain.ErrConfiguration)
	}
	return New(t, persona)
}

// LoadTemplateFile reads a custom template from disk.
func LoadTemplateFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template %s: %w: %w", path, domain.ErrConfiguration, err)
	}
	return string(data), nil
}

// Build renders the prompt. Context entries are joined by a blank line in the
// given order. Substitution is single-pass, so placeholder text inside the
// question or context is left as is.
func (a *Assembler) Build(question string, context []string) Prompt {
	r := strings.NewReplacer(
		PlaceholderQuestion, question,
		PlaceholderRelevantData, strings.Join(context, domain.ContextSeparator),
	)
	return Prompt(r.Replace(a.template))
}
