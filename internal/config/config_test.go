package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		OpenAI: OpenAIConfig{APIKey: "test-key"},
		Prompt: PromptConfig{Persona: "Ada"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAI.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestValidate_MissingPersona(t *testing.T) {
	cfg := validConfig()
	cfg.Prompt.Persona = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing persona")
	}
}

func TestValidate_Enums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"variant", func(c *Config) { c.Prompt.Variant = "shouty" }},
		{"backend", func(c *Config) { c.Index.Backend = "faiss" }},
		{"on_embedding_failure", func(c *Config) { c.Index.OnEmbeddingFailure = "ignore" }},
		{"cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"cache without addrs", func(c *Config) { c.Cache.Driver = "valkey" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Embedding.Model != "text-embedding-ada-002" {
		t.Errorf("expected ada-002 embedding model, got %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Retry.MaxAttempts != 10 {
		t.Errorf("expected MaxAttempts=10, got %d", cfg.Embedding.Retry.MaxAttempts)
	}
	if cfg.Embedding.Retry.InitialWaitMS != 1000 {
		t.Errorf("expected InitialWaitMS=1000, got %d", cfg.Embedding.Retry.InitialWaitMS)
	}
	if cfg.Completion.Model != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini, got %q", cfg.Completion.Model)
	}
	if cfg.Index.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Index.TopK)
	}
	if cfg.Index.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Index.Backend)
	}
	if cfg.Index.OnEmbeddingFailure != "abort" {
		t.Errorf("expected abort, got %q", cfg.Index.OnEmbeddingFailure)
	}
	if cfg.Pipeline.MaxInFlight != 1 {
		t.Errorf("expected MaxInFlight=1, got %d", cfg.Pipeline.MaxInFlight)
	}
	if cfg.Prompt.Variant != "conversational" {
		t.Errorf("expected conversational, got %q", cfg.Prompt.Variant)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Embedding: EmbeddingConfig{Retry: RetryConfig{MaxAttempts: 3, InitialWaitMS: 50}},
		Index:     IndexConfig{TopK: 2, Backend: "chromem"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Embedding.Retry.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", cfg.Embedding.Retry.MaxAttempts)
	}
	if cfg.Index.TopK != 2 {
		t.Errorf("expected TopK=2, got %d", cfg.Index.TopK)
	}
	if cfg.Index.Backend != "chromem" {
		t.Errorf("expected chromem, got %q", cfg.Index.Backend)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("ASKME_TEST_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
openai:
  api_key: ${ASKME_TEST_KEY}
prompt:
  persona: ${ASKME_TEST_PERSONA:-Grace}
index:
  top_k: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("expected api key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Prompt.Persona != "Grace" {
		t.Errorf("expected default persona, got %q", cfg.Prompt.Persona)
	}
	if cfg.Index.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Index.TopK)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
