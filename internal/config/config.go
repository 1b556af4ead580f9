// Package config loads and validates the Vellum configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Vellum configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" json:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Summarize  SummarizeConfig  `yaml:"summarize" json:"summarize"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// StoreConfig configures the PostgreSQL connection.
type StoreConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn" json:"dsn"`

	// MaxConns is the pool upper bound (default: 10).
	MaxConns int `yaml:"max_conns" json:"max_conns"`

	// MinConns is the pool lower bound (default: 2).
	MinConns int `yaml:"min_conns" json:"min_conns"`
}

// EmbeddingsConfig configures the external embedding provider.
type EmbeddingsConfig struct {
	// Endpoint is the embedder HTTP endpoint (e.g., http://localhost:11434).
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// APIKey is sent as a bearer token when non-empty.
	APIKey string `yaml:"api_key" json:"api_key"`

	// Model is the embedding model identifier.
	Model string `yaml:"model" json:"model"`

	// Dimensions is the vector dimension D the corpus is indexed with.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// BatchSize is the number of texts per embed call (default: 16).
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// MaxRetries is the retry budget for transient failures (default: 3).
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// RetryBaseDelay is the initial backoff delay (default: 1s).
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`

	// CacheSize is the LRU embedding cache capacity (0 disables caching).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures hybrid search defaults.
type SearchConfig struct {
	// Alpha is the vector-channel weight in [0,1] (default: 0.7).
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// RRFConstant is the RRF dampening constant k (default: 60).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// DefaultLimit is the default result count (default: 10).
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit is the maximum result count (default: 100).
	MaxLimit int `yaml:"max_limit" json:"max_limit"`

	// MinQueryLen and MaxQueryLen bound accepted query lengths.
	MinQueryLen int `yaml:"min_query_len" json:"min_query_len"`
	MaxQueryLen int `yaml:"max_query_len" json:"max_query_len"`

	// Timeout is the per-query deadline (default: 10s).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ChunkingConfig configures the markdown chunker.
type ChunkingConfig struct {
	// TargetSize is the character budget per chunk (default: 2000).
	TargetSize int `yaml:"target_size" json:"target_size"`

	// Overlap is the character overlap between size-split chunks (default: 200).
	Overlap int `yaml:"overlap" json:"overlap"`

	// HeadingLevels are the markdown heading levels that open chunks
	// (default: [1, 2, 3]).
	HeadingLevels []int `yaml:"heading_levels" json:"heading_levels"`
}

// SummarizeConfig configures the optional answer-phrasing LLM.
type SummarizeConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	APIKey   string `yaml:"api_key" json:"api_key"`
	Model    string `yaml:"model" json:"model"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`

	// FilePath is the log file path. Empty means stderr only.
	FilePath string `yaml:"file_path" json:"file_path"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:      "postgres://localhost:5432/vellum?sslmode=disable",
			MaxConns: 10,
			MinConns: 2,
		},
		Embeddings: EmbeddingsConfig{
			Endpoint:       "http://localhost:11434",
			Model:          "bge-m3",
			Dimensions:     1024,
			BatchSize:      16,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
			CacheSize:      1000,
		},
		Search: SearchConfig{
			Alpha:        0.7,
			RRFConstant:  60,
			DefaultLimit: 10,
			MaxLimit:     100,
			MinQueryLen:  2,
			MaxQueryLen:  1000,
			Timeout:      10 * time.Second,
		},
		Chunking: ChunkingConfig{
			TargetSize:    2000,
			Overlap:       200,
			HeadingLevels: []int{1, 2, 3},
		},
		Summarize: SummarizeConfig{
			Endpoint: "http://localhost:11434",
			Model:    "qwen2.5:7b",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (if it exists), applies environment
// overrides, validates, and returns the result. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("VELLUM_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("VELLUM_EMBED_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("VELLUM_EMBED_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("VELLUM_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("VELLUM_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("VELLUM_LLM_ENDPOINT"); v != "" {
		c.Summarize.Endpoint = v
	}
	if v := os.Getenv("VELLUM_LLM_API_KEY"); v != "" {
		c.Summarize.APIKey = v
	}
	if v := os.Getenv("VELLUM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks invariants the rest of the system assumes.
func (c *Config) Validate() error {
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be in [0,1], got %g", c.Search.Alpha)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.MinQueryLen < 1 || c.Search.MaxQueryLen < c.Search.MinQueryLen {
		return fmt.Errorf("invalid query length bounds [%d, %d]", c.Search.MinQueryLen, c.Search.MaxQueryLen)
	}
	if c.Chunking.TargetSize < 100 {
		return fmt.Errorf("chunking.target_size must be at least 100, got %d", c.Chunking.TargetSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.TargetSize {
		return fmt.Errorf("chunking.overlap must be in [0, target_size), got %d", c.Chunking.Overlap)
	}
	for _, l := range c.Chunking.HeadingLevels {
		if l < 1 || l > 6 {
			return fmt.Errorf("chunking.heading_levels entries must be in 1..6, got %d", l)
		}
	}
	return nil
}
