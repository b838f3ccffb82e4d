// Package config loads the assistant's settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how pages are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	// Type is "ollama" or "hash" (offline, no model server).
	Type        string `yaml:"type"`
	Host        string `yaml:"host,omitempty"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	Concurrency int    `yaml:"concurrency"`
	Dimension   int    `yaml:"dimension,omitempty"`
}

// LLMConfig configures the generation model.
type LLMConfig struct {
	Host        string  `yaml:"host,omitempty"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RetrievalConfig controls how much context is fetched and when it is trusted.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	// Type is "memory" or "postgres".
	Type  string `yaml:"type"`
	DSN   string `yaml:"dsn,omitempty"`
	Table string `yaml:"table,omitempty"`
}

// HistoryConfig locates the interaction log.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root application configuration structure.
type Config struct {
	PDFDir      string            `yaml:"pdf_dir"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	History     HistoryConfig     `yaml:"history"`
	Log         LogConfig         `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PDFDir:  "pdf-dataset",
		Chunker: ChunkerConfig{Size: 500, Overlap: 50},
		Embedder: EmbedderConfig{
			Type:        "ollama",
			Model:       "all-minilm",
			TimeoutSecs: 30,
			MaxRetries:  3,
			Concurrency: 3,
		},
		LLM: LLMConfig{
			Model:       "deepseek-r1",
			TimeoutSecs: 120,
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Retrieval:   RetrievalConfig{TopK: 4, RelevanceThreshold: 0.4},
		VectorStore: VectorStoreConfig{Type: "memory"},
		History:     HistoryConfig{Path: "chat_history.jsonl"},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a config from path over the defaults, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err == nil {
		// fields absent from the file keep their defaults
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries ./pdfqa.yaml first, then ~/.config/pdfqa/config.yaml.
// If neither exists it returns the defaults with environment overrides and an empty path.
func LoadDefault() (*Config, string, error) {
	cwdPath := "pdfqa.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}

	userPath, err := DefaultUserConfigPath()
	if err == nil {
		if _, statErr := os.Stat(userPath); statErr == nil {
			cfg, err := Load(userPath)
			return cfg, userPath, err
		}
	}

	cfg := Default()
	applyEnv(cfg)
	return cfg, "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/pdfqa/config.yaml
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfqa", "config.yaml"), nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.PDFDir == "":
		return errors.New("pdf_dir must be set")
	case c.Chunker.Size <= 0:
		return fmt.Errorf("chunker.size must be positive, got %d", c.Chunker.Size)
	case c.Chunker.Overlap < 0:
		return fmt.Errorf("chunker.overlap must not be negative, got %d", c.Chunker.Overlap)
	case c.Chunker.Overlap >= c.Chunker.Size:
		return fmt.Errorf("chunker.overlap (%d) must be smaller than chunker.size (%d)", c.Chunker.Overlap, c.Chunker.Size)
	case c.Retrieval.TopK <= 0:
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	case c.Retrieval.RelevanceThreshold < -1 || c.Retrieval.RelevanceThreshold > 1:
		return fmt.Errorf("retrieval.relevance_threshold must be within [-1, 1], got %g", c.Retrieval.RelevanceThreshold)
	}

	switch c.Embedder.Type {
	case "ollama", "hash":
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}

	switch c.VectorStore.Type {
	case "memory":
	case "postgres":
		if c.VectorStore.DSN == "" {
			return errors.New("vector_store.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown vector store type %q", c.VectorStore.Type)
	}

	return nil
}

// EmbedTimeout returns the per-request embedding timeout
func (c *Config) EmbedTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

// GenerateTimeout returns the per-request generation timeout
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

func applyConfigDefaults(cfg *Config) {
	def := Default()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.TimeoutSecs <= 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Embedder.Concurrency <= 0 {
		cfg.Embedder.Concurrency = def.Embedder.Concurrency
	}
	if cfg.LLM.TimeoutSecs <= 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.History.Path == "" {
		cfg.History.Path = def.History.Path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

func applyEnv(cfg *Config) {
	cfg.PDFDir = envOrDefault("PDFQA_PDF_DIR", cfg.PDFDir)
	cfg.LLM.Model = envOrDefault("PDFQA_LLM_MODEL", cfg.LLM.Model)
	cfg.Embedder.Model = envOrDefault("PDFQA_EMBED_MODEL", cfg.Embedder.Model)
	cfg.Retrieval.RelevanceThreshold = envOrDefaultFloat("PDFQA_RELEVANCE_THRESHOLD", cfg.Retrieval.RelevanceThreshold)
	cfg.Retrieval.TopK = envOrDefaultInt("PDFQA_TOP_K", cfg.Retrieval.TopK)
	cfg.History.Path = envOrDefault("PDFQA_HISTORY_PATH", cfg.History.Path)
	cfg.Log.Level = envOrDefault("PDFQA_LOG_LEVEL", cfg.Log.Level)

	if dsn := os.Getenv("PDFQA_PG_DSN"); dsn != "" {
		cfg.VectorStore.DSN = dsn
		cfg.VectorStore.Type = "postgres"
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("ignoring invalid integer", "key", key, "value", v)
			return fallback
		}
		return n
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("ignoring invalid number", "key", key, "value", v)
			return fallback
		}
		return f
	}
	return fallback
}
