package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the askme configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Index      IndexConfig      `yaml:"index"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Cache      CacheConfig      `yaml:"cache"`
	Budget     BudgetConfig     `yaml:"budget"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig points at the knowledge file.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// OpenAIConfig holds the provider credentials shared by embedding and completion.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// RetryConfig holds the rate-limit backoff policy.
type RetryConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	InitialWaitMS int `yaml:"initial_wait_ms"`
	MaxWaitMS     int `yaml:"max_wait_ms"` // 0 = no ceiling
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model      string      `yaml:"model"`
	Dimensions int         `yaml:"dimensions"` // 0 = model default
	Retry      RetryConfig `yaml:"retry"`
}

// CompletionConfig holds chat completion settings. Temperature is always 0.
type CompletionConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"` // 0 = provider default
}

// PromptConfig selects the persona template.
type PromptConfig struct {
	Variant      string `yaml:"variant"` // conversational, concise
	Persona      string `yaml:"persona"`
	TemplateFile string `yaml:"template_file"` // overrides variant
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Backend            string `yaml:"backend"` // memory, chromem
	TopK               int    `yaml:"top_k"`
	OnEmbeddingFailure string `yaml:"on_embedding_failure"` // abort, degrade
}

// PipelineConfig holds per-question execution limits.
type PipelineConfig struct {
	MaxInFlight        int `yaml:"max_in_flight"`
	QuestionTimeoutSec int `yaml:"question_timeout_sec"`
}

// CacheConfig holds the optional embedding cache connection.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // "" (disabled), redis, valkey
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLHours         int      `yaml:"ttl_hours"` // 0 = no expiry
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.Path == "" {
		c.Corpus.Path = "data.csv"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-ada-002"
	}
	if c.Embedding.Retry.MaxAttempts <= 0 {
		c.Embedding.Retry.MaxAttempts = 10
	}
	if c.Embedding.Retry.InitialWaitMS <= 0 {
		c.Embedding.Retry.InitialWaitMS = 1000
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "gpt-4o-mini"
	}
	if c.Prompt.Variant == "" {
		c.Prompt.Variant = "conversational"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "memory"
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 4
	}
	if c.Index.OnEmbeddingFailure == "" {
		c.Index.OnEmbeddingFailure = "abort"
	}
	if c.Pipeline.MaxInFlight <= 0 {
		c.Pipeline.MaxInFlight = 1
	}
	if c.Pipeline.QuestionTimeoutSec <= 0 {
		c.Pipeline.QuestionTimeoutSec = 90
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Prompt.Persona == "" {
		return fmt.Errorf("prompt.persona is required")
	}
	switch c.Prompt.Variant {
	case "conversational", "concise":
	default:
		return fmt.Errorf("prompt.variant must be \"conversational\" or \"concise\", got %q", c.Prompt.Variant)
	}
	switch c.Index.Backend {
	case "memory", "chromem":
	default:
		return fmt.Errorf("index.backend must be \"memory\" or \"chromem\", got %q", c.Index.Backend)
	}
	switch c.Index.OnEmbeddingFailure {
	case "abort", "degrade":
	default:
		return fmt.Errorf(
			"index.on_embedding_failure must be \"abort\" or \"degrade\", got %q", c.Index.OnEmbeddingFailure,
		)
	}
	switch c.Cache.Driver {
	case "":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be empty, \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	switch c.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("budget.action must be \"warn\" or \"reject\", got %q", c.Budget.Action)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
