// Package config loads process configuration from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the YAML config path.
const EnvConfigPath = "INTAKE_CONFIG"

// OpenAIConfig holds credentials for the OpenAI-compatible API.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LLMConfig configures the chat model.
type LLMConfig struct {
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "openai" or "hash"
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// QdrantConfig contains connection details for Qdrant.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Type   string       `yaml:"type"` // "qdrant" or "memory"
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// DatabaseConfig locates the SQLite records database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// ServerConfig configures the MCP server binary.
type ServerConfig struct {
	Port       string `yaml:"port"`
	ServerMode bool   `yaml:"server_mode"` // serve MCP over HTTP instead of stdio
}

// QAConfig configures question answering.
type QAConfig struct {
	TopK int `yaml:"top_k"`
}

// IndexConfig configures what the indexer emits.
type IndexConfig struct {
	Summaries bool `yaml:"summaries"` // add a model-written summary chunk per encounter
}

// Config is the root configuration, built once at startup and passed down.
type Config struct {
	OpenAI      OpenAIConfig      `yaml:"openai"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	QA          QAConfig          `yaml:"qa"`
	Index       IndexConfig       `yaml:"index"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{BaseURL: "https://api.openai.com/v1"},
		LLM:    LLMConfig{Model: "gpt-4o-mini", Timeout: 60 * time.Second},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "text-embedding-3-small",
			Dimension: 384,
			BatchSize: 500,
			Timeout:   30 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			Type: "qdrant",
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "patient_chunks",
			},
		},
		Database: DatabaseConfig{Path: "data/intake.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Server:   ServerConfig{Port: "8080"},
		QA:       QAConfig{TopK: 5},
	}
}

// Load builds the configuration. path names an optional YAML file; when
// empty, INTAKE_CONFIG is consulted. Variables from ./.env fill in anything
// the process environment does not set.
func Load(path string) (*Config, error) {
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	return load(path, lookup)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}
	flag := func(key string, dst *bool) error {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}

	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	str("VECTOR_STORE", &cfg.VectorStore.Type)
	str("QDRANT_HOST", &cfg.VectorStore.Qdrant.Host)
	str("QDRANT_API_KEY", &cfg.VectorStore.Qdrant.APIKey)
	str("QDRANT_COLLECTION", &cfg.VectorStore.Qdrant.Collection)
	str("DATABASE_PATH", &cfg.Database.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("PORT", &cfg.Server.Port)

	return errors.Join(
		dur("LLM_TIMEOUT", &cfg.LLM.Timeout),
		num("EMBEDDING_DIM", &cfg.Embedding.Dimension),
		dur("EMBEDDING_TIMEOUT", &cfg.Embedding.Timeout),
		num("QDRANT_PORT", &cfg.VectorStore.Qdrant.Port),
		flag("QDRANT_USE_TLS", &cfg.VectorStore.Qdrant.UseTLS),
		flag("SERVER_MODE", &cfg.Server.ServerMode),
		num("QA_TOP_K", &cfg.QA.TopK),
		flag("INDEX_SUMMARIES", &cfg.Index.Summaries),
	)
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.VectorStore.Type {
	case "qdrant", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector store %q", c.VectorStore.Type))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension))
	}
	if c.QA.TopK <= 0 {
		errs = append(errs, fmt.Errorf("qa top_k must be positive, got %d", c.QA.TopK))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Embedding.Provider == "openai" && c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai embedding provider"))
	}
	return errors.Join(errs...)
}

// Logger builds a slog.Logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
