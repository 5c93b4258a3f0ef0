package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the profilesearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
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

// CorpusConfig describes the profile CSV.
type CorpusConfig struct {
	Path          string `yaml:"path"`
	Encoding      string `yaml:"encoding"`       // utf-8 (default), latin-1
	MissingMarker string `yaml:"missing_marker"` // default: "nan"
}

// IndexConfig selects the index backing.
type IndexConfig struct {
	Backend        string `yaml:"backend"`         // memory (default), sqlite
	RestoreOnStart bool   `yaml:"restore_on_start"` // sqlite only: serve the persisted generation without re-embedding
}

// StorageConfig holds persisted index settings.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	// KeepGenerations is how many of the newest index generations survive a write.
	KeepGenerations int `yaml:"keep_generations"`
	// RetentionSec protects younger generations from pruning, for processes
	// sharing the file that still serve them.
	RetentionSec int `yaml:"retention_sec"`
}

// CacheConfig holds the optional Redis embedding cache. Empty Addrs disables it.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// RateLimitConfig caps outbound provider calls.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey     string          `yaml:"api_key"`
	BaseURL    string          `yaml:"base_url"`
	TimeoutSec int             `yaml:"timeout_sec"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// Instruction is prepended to every text (corpus and queries alike).
	Instruction string `yaml:"instruction"`
}

// Vectorizer returns the single configured vectorizer and its provider.
// Names are iterated in sorted order so the choice is stable.
func (c *Config) Vectorizer() (string, VectorizerConfig, ProviderConfig) {
	names := make([]string, 0, len(c.Embedding.Vectorizers))
	for name := range c.Embedding.Vectorizers {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", VectorizerConfig{}, ProviderConfig{}
	}
	sort.Strings(names)
	vc := c.Embedding.Vectorizers[names[0]]
	return names[0], vc, c.Embedding.Providers[vc.Provider]
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Reload re-embeds the whole corpus inside the request.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.Encoding == "" {
		c.Corpus.Encoding = "utf-8"
	}
	if c.Corpus.MissingMarker == "" {
		c.Corpus.MissingMarker = "nan"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "memory"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/profiles.db"
	}
	if c.Storage.KeepGenerations == 0 {
		c.Storage.KeepGenerations = 3
	}
	if c.Storage.RetentionSec == 0 {
		c.Storage.RetentionSec = 600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	for name, p := range c.Embedding.Providers {
		if p.TimeoutSec <= 0 {
			p.TimeoutSec = 30
		}
		c.Embedding.Providers[name] = p
	}
	for name, v := range c.Embedding.Vectorizers {
		if v.BatchSize <= 0 {
			v.BatchSize = 64
		}
		c.Embedding.Vectorizers[name] = v
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	switch strings.ToLower(c.Corpus.Encoding) {
	case "utf-8", "utf8", "latin-1", "latin1", "iso-8859-1":
	default:
		return fmt.Errorf("corpus.encoding must be \"utf-8\" or \"latin-1\", got %q", c.Corpus.Encoding)
	}
	switch c.Index.Backend {
	case "memory":
		if c.Index.RestoreOnStart {
			return fmt.Errorf("index.restore_on_start requires index.backend \"sqlite\"")
		}
	case "sqlite":
	default:
		return fmt.Errorf("index.backend must be \"memory\" or \"sqlite\", got %q", c.Index.Backend)
	}
	if c.Storage.KeepGenerations < 2 {
		return fmt.Errorf("storage.keep_generations must be at least 2, got %d", c.Storage.KeepGenerations)
	}
	if c.Storage.RetentionSec < 0 {
		return fmt.Errorf("storage.retention_sec must not be negative")
	}
	if len(c.Embedding.Vectorizers) != 1 {
		return fmt.Errorf("exactly one embedding.vectorizers entry is required, got %d", len(c.Embedding.Vectorizers))
	}
	for name, v := range c.Embedding.Vectorizers {
		if v.Model == "" {
			return fmt.Errorf("embedding.vectorizers.%s.model is required", name)
		}
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s.provider %q is not defined", name, v.Provider)
		}
		if v.Dimensions < 0 {
			return fmt.Errorf("embedding.vectorizers.%s.dimensions must not be negative", name)
		}
	}
	for name, p := range c.Embedding.Providers {
		if p.BaseURL == "" {
			return fmt.Errorf("embedding.providers.%s.base_url is required", name)
		}
		if p.RateLimit.RequestsPerSecond < 0 {
			return fmt.Errorf("embedding.providers.%s.rate_limit.requests_per_second must not be negative", name)
		}
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative")
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
