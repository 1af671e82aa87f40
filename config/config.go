package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the assistant.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Generation   GenerationConfig   `yaml:"generation"`
	Retrieve     RetrieveConfig     `yaml:"retrieve"`
	Answer       AnswerConfig       `yaml:"answer"`
	Conversation ConversationConfig `yaml:"conversation"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// StoreConfig holds document store configuration.
type StoreConfig struct {
	Path string `yaml:"path"` // bolt database file; empty means <dir>/.tekbot/store.db
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable holding the API key
	BaseURL   string `yaml:"base_url"`    // override for OpenAI-compatible endpoints
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// GenerationConfig holds text generation configuration.
type GenerationConfig struct {
	Provider       string  `yaml:"provider"` // "openai", "ollama"
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // candidates below this similarity are dropped
}

// AnswerConfig holds the answer-selection policy configuration.
type AnswerConfig struct {
	// DirectThreshold is the similarity above which a stored answer is
	// returned verbatim without invoking the generator.
	DirectThreshold float64 `yaml:"direct_threshold"`
	// ContinuationMode decides what a follow-up question feeds the prompt:
	// "replace" swaps knowledge exemplars for conversation history,
	// "augment" includes both.
	ContinuationMode string `yaml:"continuation_mode"`
}

// ConversationConfig holds session history configuration.
type ConversationConfig struct {
	HistoryLimit    int `yaml:"history_limit"`     // turns kept in memory
	RenderLimit     int `yaml:"render_limit"`      // turns rendered into prompts
	CharBudget      int `yaml:"char_budget"`       // rendered history size cap
	SessionRecencyH int `yaml:"session_recency_h"` // restore window in hours
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 768,
			BatchSize: 100,
		},
		Generation: GenerationConfig{
			Provider:       "ollama",
			Model:          "llama3",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0.7,
			MaxTokens:      256,
			TimeoutSeconds: 60,
		},
		Retrieve: RetrieveConfig{
			TopK:     5,
			MinScore: 0.6,
		},
		Answer: AnswerConfig{
			DirectThreshold:  0.92,
			ContinuationMode: "replace",
		},
		Conversation: ConversationConfig{
			HistoryLimit:    10,
			RenderLimit:     5,
			CharBudget:      1500,
			SessionRecencyH: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Recognized environment variables override the
// file in either case.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads tekbot.yaml from the given directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "tekbot.yaml"))
}

// applyEnv overrides config values from the environment.
func (c *Config) applyEnv() {
	if v, ok := envFloat("MINIMUM_RELEVANCE_THRESHOLD"); ok {
		c.Retrieve.MinScore = v
	}
	if v, ok := envFloat("HIGH_CONFIDENCE_THRESHOLD"); ok {
		c.Answer.DirectThreshold = v
	}
	if v, ok := envInt("TOP_K"); ok {
		c.Retrieve.TopK = v
	}
	if v, ok := envInt("HISTORY_LIMIT"); ok {
		c.Conversation.HistoryLimit = v
	}
	if v, ok := envInt("CONTEXT_CHAR_BUDGET"); ok {
		c.Conversation.CharBudget = v
	}
	if v, ok := envInt("SESSION_RECENCY_HOURS"); ok {
		c.Conversation.SessionRecencyH = v
	}
}

// Validate checks for values that would misconfigure the pipeline.
func (c *Config) Validate() error {
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.MinScore < -1 || c.Retrieve.MinScore > 1 {
		return fmt.Errorf("retrieve.min_score must be in [-1,1], got %g", c.Retrieve.MinScore)
	}
	if c.Answer.DirectThreshold < 0 || c.Answer.DirectThreshold > 1 {
		return fmt.Errorf("answer.direct_threshold must be in [0,1], got %g", c.Answer.DirectThreshold)
	}
	switch c.Answer.ContinuationMode {
	case "replace", "augment":
	default:
		return fmt.Errorf("answer.continuation_mode must be \"replace\" or \"augment\", got %q", c.Answer.ContinuationMode)
	}
	if c.Conversation.HistoryLimit <= 0 {
		return fmt.Errorf("conversation.history_limit must be positive, got %d", c.Conversation.HistoryLimit)
	}
	return nil
}

func envFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// StorePath returns the path to the document store database.
func StorePath(dir string) string {
	return filepath.Join(dir, ".tekbot", "store.db")
}

// EnsureDataDir ensures the .tekbot directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".tekbot"), 0755)
}
