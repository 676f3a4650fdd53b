// Package config loads and persists docdex configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDataDir is the directory docdex keeps its state in, relative
	// to the project root.
	DefaultDataDir = ".docdex"
	// DefaultConfigFile is the config filename inside the data dir.
	DefaultConfigFile = "config.yaml"
	// DefaultSnapshotFile is the index snapshot filename inside the data dir.
	DefaultSnapshotFile = "index.json"
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "DOCDEX"
)

// FindRoot walks up from the working directory looking for a data
// directory and returns the containing project root.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		dataDir := filepath.Join(dir, DefaultDataDir)
		if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a docdex project (no %s directory found)", DefaultDataDir)
		}
		dir = parent
	}
}

// Config holds the application configuration.
type Config struct {
	// DocsDir is the directory of reference documents to index.
	DocsDir string `mapstructure:"docs_dir" yaml:"docs_dir,omitempty"`
	// DataDir is the directory where docdex stores its data.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`

	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding,omitempty"`
	Indexing  IndexingConfig  `mapstructure:"indexing" yaml:"indexing,omitempty"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search,omitempty"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server,omitempty"`
	Log       LogConfig       `mapstructure:"log" yaml:"log,omitempty"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Backend is the embedding backend: "hash", "ollama", or "openai".
	Backend string `mapstructure:"backend" yaml:"backend,omitempty"`
	// Model is the embedding model name for model-backed backends.
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// Dimensions is the embedding vector size.
	Dimensions int `mapstructure:"dimensions" yaml:"dimensions,omitempty"`
	// OllamaURL is the Ollama API URL.
	OllamaURL string `mapstructure:"ollama_url" yaml:"ollama_url,omitempty"`
	// OpenAIAPIKey is the API key for the OpenAI-compatible backend
	// (also via DOCDEX_EMBEDDING_OPENAI_API_KEY or OPENAI_API_KEY).
	OpenAIAPIKey string `mapstructure:"openai_api_key" yaml:"openai_api_key,omitempty"`
	// OpenAIBaseURL overrides the OpenAI-compatible endpoint.
	OpenAIBaseURL string `mapstructure:"openai_base_url" yaml:"openai_base_url,omitempty"`
	// CacheSize is the LRU embedding cache size; zero disables caching.
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size,omitempty"`
}

// IndexingConfig holds chunking and document scanning settings.
type IndexingConfig struct {
	// WindowSize is the chunk window size in runes.
	WindowSize int `mapstructure:"window_size" yaml:"window_size,omitempty"`
	// Overlap is the overlap between consecutive chunks in runes.
	Overlap int `mapstructure:"overlap" yaml:"overlap,omitempty"`
	// VectorIndex selects the vector index: "flat" (exact) or "hnsw".
	VectorIndex string `mapstructure:"vector_index" yaml:"vector_index,omitempty"`
	// MaxFileSize is the maximum document size to index in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size,omitempty"`
	// IgnorePatterns are gitignore-style patterns skipped while scanning.
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns,omitempty"`
}

// SearchConfig holds query-time defaults.
type SearchConfig struct {
	// TopK is the default number of results per query.
	TopK int `mapstructure:"top_k" yaml:"top_k,omitempty"`
	// ScoreThreshold drops results scoring below it when positive.
	ScoreThreshold float64 `mapstructure:"score_threshold" yaml:"score_threshold,omitempty"`
}

// ServerConfig holds serve-mode settings.
type ServerConfig struct {
	// Host is the HTTP bind address.
	Host string `mapstructure:"host" yaml:"host,omitempty"`
	// Port is the HTTP port; zero disables the HTTP API.
	Port int `mapstructure:"port" yaml:"port,omitempty"`
	// Watch enables the docs-dir watcher during serve.
	Watch bool `mapstructure:"watch" yaml:"watch,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level,omitempty"`
	// JSON switches to JSON log output.
	JSON bool `mapstructure:"json" yaml:"json,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DocsDir: "docs",
		DataDir: DefaultDataDir,
		Embedding: EmbeddingConfig{
			Backend:    "hash",
			Dimensions: 64,
			OllamaURL:  "http://localhost:11434",
			CacheSize:  1000,
		},
		Indexing: IndexingConfig{
			WindowSize:  1200,
			Overlap:     200,
			VectorIndex: "flat",
			MaxFileSize: 1024 * 1024, // 1MB
			IgnorePatterns: []string{
				".git/**",
				".docdex/**",
				"*.tmp",
				"*~",
			},
		},
		Search: SearchConfig{
			TopK: 3,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration for the given project root, layering the config
// file (if present) and DOCDEX_* environment variables over defaults.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	path := filepath.Join(root, DefaultDataDir, DefaultConfigFile)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Embedding.OpenAIAPIKey == "" {
		cfg.Embedding.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// Save writes the configuration as YAML into the project's data dir.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, DefaultDataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// SnapshotPath returns the index snapshot location for the project root.
func (c *Config) SnapshotPath(root string) string {
	return filepath.Join(root, c.DataDir, DefaultSnapshotFile)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("docs_dir", cfg.DocsDir)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("embedding.backend", cfg.Embedding.Backend)
	v.SetDefault("embedding.dimensions", cfg.Embedding.Dimensions)
	v.SetDefault("embedding.ollama_url", cfg.Embedding.OllamaURL)
	v.SetDefault("embedding.cache_size", cfg.Embedding.CacheSize)
	v.SetDefault("indexing.window_size", cfg.Indexing.WindowSize)
	v.SetDefault("indexing.overlap", cfg.Indexing.Overlap)
	v.SetDefault("indexing.vector_index", cfg.Indexing.VectorIndex)
	v.SetDefault("indexing.max_file_size", cfg.Indexing.MaxFileSize)
	v.SetDefault("indexing.ignore_patterns", cfg.Indexing.IgnorePatterns)
	v.SetDefault("search.top_k", cfg.Search.TopK)
	v.SetDefault("search.score_threshold", cfg.Search.ScoreThreshold)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.watch", cfg.Server.Watch)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
}
