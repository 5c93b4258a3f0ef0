package profilesearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	backend    string // "memory" or "sqlite"
	sqlitePath string

	embedder Embedder

	model            string
	vectorDimensions int
	missingMarker    string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMemoryIndex keeps vectors in process memory (default).
// Scores are squared Euclidean distances, lower is better.
func WithMemoryIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "memory"
		c.sqlitePath = ""
	})
}

// WithSQLite persists vectors in a SQLite file at path (":memory:" for a
// private in-memory database). Scores are cosine similarities, higher is better.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "sqlite"
		c.sqlitePath = path
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithModel names the embedding model. Restore refuses a persisted
// generation built with a different model.
func WithModel(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = name
	})
}

// WithVectorDimensions requires every embedding to have dim components.
// Zero (default) accepts whatever dimension the embedder returns.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithMissingMarker sets the text stored for empty cells. Default: "nan".
func WithMissingMarker(marker string) Option {
	return optionFunc(func(c *clientConfig) {
		c.missingMarker = marker
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
