package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"securerag/internal/domain"
)

// DocumentConfig points at the document to answer questions about.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// ChunkerConfig configures how pages are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IndexConfig configures where the vector index lives and how it is built.
type IndexConfig struct {
	Path         string `yaml:"path"`
	ForceRebuild bool   `yaml:"force_rebuild"`
	BatchSize    int    `yaml:"batch_size"`
	Concurrency  int    `yaml:"concurrency"`
}

// RetrievalConfig configures top-k retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ScannerConfig toggles sensitive-data scanning of retrieved chunks.
type ScannerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HashingEmbedderConfig configures the local hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// OpenAIGeneratorConfig holds configuration for the chat completion model.
type OpenAIGeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// ExtractiveGeneratorConfig configures the offline extractive answerer.
type ExtractiveGeneratorConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type       string                     `yaml:"type"`
	OpenAI     *OpenAIGeneratorConfig     `yaml:"openai,omitempty"`
	Extractive *ExtractiveGeneratorConfig `yaml:"extractive,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuditConfig configures the query audit log. An empty DSN means SQLite at
// data/audit.db; postgres:// DSNs select PostgreSQL.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// ServerConfig configures the HTTP API. When Enabled, the binary serves the
// API instead of starting the TUI.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Document  DocumentConfig  `yaml:"document"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Log       LogConfig       `yaml:"log"`
	Audit     AuditConfig     `yaml:"audit"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/securerag/config.yaml.
// If neither exists, it writes defaults to ~/.config/securerag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks values that defaults cannot repair.
func (c *AppConfig) Validate() error {
	if c.Chunker.Size <= 0 {
		return fmt.Errorf("%w: chunker.size must be positive", domain.ErrInvalidConfig)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("%w: chunker.overlap must be in [0, %d)", domain.ErrInvalidConfig, c.Chunker.Size)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidConfig)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required when the server is enabled", domain.ErrInvalidConfig)
	}
	switch c.Embedder.Type {
	case "openai", "hashing":
	default:
		return fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, c.Embedder.Type)
	}
	switch c.Generator.Type {
	case "openai", "extractive":
	default:
		return fmt.Errorf("%w: unknown generator %q", domain.ErrInvalidConfig, c.Generator.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "securerag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Document:  DocumentConfig{Path: "data/sample_security_policy.pdf"},
		Chunker:   ChunkerConfig{Size: 1000, Overlap: 200},
		Index:     IndexConfig{Path: "vectorstore"},
		Retrieval: RetrievalConfig{TopK: 4},
		Embedder:  EmbedderConfig{Type: "openai"},
		Generator: GeneratorConfig{Type: "openai"},
		Log:       LogConfig{Level: "info", Format: "console"},
		Server:    ServerConfig{Addr: ":8080"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Document.Path == "" {
		cfg.Document.Path = "data/sample_security_policy.pdf"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "vectorstore"
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 64
	}
	if cfg.Index.Concurrency == 0 {
		cfg.Index.Concurrency = 4
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 512
		}
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		if cfg.Generator.OpenAI.BaseURL == "" {
			cfg.Generator.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Generator.OpenAI.APIKeyEnv == "" {
			cfg.Generator.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generator.OpenAI.Model == "" {
			cfg.Generator.OpenAI.Model = "gpt-4o"
		}
		if cfg.Generator.OpenAI.TimeoutSecs == 0 {
			cfg.Generator.OpenAI.TimeoutSecs = 60
		}
	}
	if cfg.Generator.Type == "extractive" {
		if cfg.Generator.Extractive == nil {
			cfg.Generator.Extractive = &ExtractiveGeneratorConfig{}
		}
		if cfg.Generator.Extractive.MaxSentences == 0 {
			cfg.Generator.Extractive.MaxSentences = 3
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
