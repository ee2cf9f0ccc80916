// Package config provides configuration management for the quicknotes
// command-line tool. It supports loading configuration from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/store"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatMarkdown is markdown output for notes tools.
	OutputFormatMarkdown OutputFormat = "markdown"
)

// Default configuration values.
const (
	DefaultWhisperURL    = "http://localhost:8000"
	DefaultWhisperModel  = "base"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultGenerateModel = "llama3"
	DefaultEmbedModel    = "nomic-embed-text"
	DefaultRedisAddr     = "localhost:6379"
	DefaultConfigDir     = ".quicknotes"
	DefaultConfigFile    = "config.yaml"
)

// ModelsConfig selects the local model backends.
type ModelsConfig struct {
	// WhisperURL is the base URL of the speech-to-text server.
	WhisperURL string `yaml:"whisper_url"`

	// WhisperModel is the transcription model name.
	WhisperModel string `yaml:"whisper_model"`

	// OllamaURL is the base URL of the generation/embedding server.
	OllamaURL string `yaml:"ollama_url"`

	// GenerateModel is used for summaries and answers.
	GenerateModel string `yaml:"generate_model"`

	// EmbedModel is used for index embeddings.
	EmbedModel string `yaml:"embed_model"`

	// LanguageHint forces a transcription language; empty auto-detects.
	LanguageHint string `yaml:"language_hint"`
}

// RedisConfig holds the reindex queue connection settings.
type RedisConfig struct {
	// Addr is host:port of the Redis server. Empty disables the queue.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IndexConfig tunes chunking and retrieval.
type IndexConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	// TopK is the default number of chunks retrieved per question.
	TopK int `yaml:"top_k"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the full CLI configuration.
type Config struct {
	Models   ModelsConfig          `yaml:"models"`
	Database *store.PostgresConfig `yaml:"database"`
	Redis    RedisConfig           `yaml:"redis"`
	Index    IndexConfig           `yaml:"index"`
	Logging  LoggingConfig         `yaml:"logging"`

	// Output is the default result format.
	Output OutputFormat `yaml:"output"`

	// MemoryStore uses the in-memory store instead of PostgreSQL. Data
	// does not survive the process; intended for trials and tests.
	MemoryStore bool `yaml:"memory_store"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			WhisperURL:    DefaultWhisperURL,
			WhisperModel:  DefaultWhisperModel,
			OllamaURL:     DefaultOllamaURL,
			GenerateModel: DefaultGenerateModel,
			EmbedModel:    DefaultEmbedModel,
		},
		Database: store.DefaultPostgresConfig(),
		Redis:    RedisConfig{Addr: DefaultRedisAddr},
		Index:    IndexConfig{ChunkSize: 500, ChunkOverlap: 50, TopK: 5},
		Logging:  LoggingConfig{Level: "info"},
		Output:   OutputFormatText,
	}
}

// ConfigDir returns the quicknotes configuration directory
// (~/.quicknotes), creating nothing.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load reads configuration in precedence order: defaults, then the config
// file if present, then environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err == nil {
		if loadErr := loadFromFile(cfg, path); loadErr != nil {
			return nil, loadErr
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from an explicit file path plus
// environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, err
	}
	loadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Environment variables override file values:
//
//	QUICKNOTES_WHISPER_URL, QUICKNOTES_OLLAMA_URL,
//	QUICKNOTES_GENERATE_MODEL, QUICKNOTES_EMBED_MODEL,
//	QUICKNOTES_DB_HOST, QUICKNOTES_DB_PORT, QUICKNOTES_DB_NAME,
//	QUICKNOTES_DB_USER, QUICKNOTES_DB_PASSWORD,
//	QUICKNOTES_REDIS_ADDR, QUICKNOTES_LOG_LEVEL, QUICKNOTES_OUTPUT
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("QUICKNOTES_WHISPER_URL"); v != "" {
		cfg.Models.WhisperURL = v
	}
	if v := os.Getenv("QUICKNOTES_OLLAMA_URL"); v != "" {
		cfg.Models.OllamaURL = v
	}
	if v := os.Getenv("QUICKNOTES_GENERATE_MODEL"); v != "" {
		cfg.Models.GenerateModel = v
	}
	if v := os.Getenv("QUICKNOTES_EMBED_MODEL"); v != "" {
		cfg.Models.EmbedModel = v
	}
	if v := os.Getenv("QUICKNOTES_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("QUICKNOTES_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("QUICKNOTES_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("QUICKNOTES_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("QUICKNOTES_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("QUICKNOTES_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QUICKNOTES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUICKNOTES_OUTPUT"); v != "" {
		cfg.Output = OutputFormat(strings.ToLower(v))
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Models.WhisperURL == "" {
		return fmt.Errorf("models.whisper_url is required")
	}
	if c.Models.OllamaURL == "" {
		return fmt.Errorf("models.ollama_url is required")
	}
	if c.Models.GenerateModel == "" {
		return fmt.Errorf("models.generate_model is required")
	}
	if c.Models.EmbedModel == "" {
		return fmt.Errorf("models.embed_model is required")
	}
	if !c.Output.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Output)
	}
	if !c.MemoryStore {
		if c.Database == nil {
			return fmt.Errorf("database configuration is required")
		}
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize && c.Index.ChunkSize > 0 {
		return fmt.Errorf("index.chunk_overlap must be smaller than index.chunk_size")
	}
	return nil
}

// IsValid reports whether the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatMarkdown:
		return true
	}
	return false
}

func (f OutputFormat) String() string {
	return string(f)
}

// Save writes the configuration to the config file, creating the directory
// if needed.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
