package timeline

import (
	"log/slog"
	"time"

	"github.com/aretw0/timeline/internal/platform"
	"github.com/aretw0/timeline/pkg/core"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

type (
	// Service builds change timelines.
	Service = core.Service
	// Request describes one timeline query.
	Request = core.Request
	// ChangeTransaction is one semantically versioned change.
	ChangeTransaction = core.ChangeTransaction
	// ChangeEvent is one unit of change inside a transaction.
	ChangeEvent = core.ChangeEvent
	// Category groups aspects into one kind of meaningful change.
	Category = core.Category
	// Severity ranks the compatibility impact of a change.
	Severity = core.Severity
	// Store is the aspect history port.
	Store = core.Store
	// AspectWriter is implemented by stores that accept new aspect versions.
	AspectWriter = core.AspectWriter
	// Config is the declarative category and differ registry.
	Config = platform.Config
)

// Categories known by the default registry.
const (
	CategoryTag             = core.CategoryTag
	CategoryOwnership       = core.CategoryOwnership
	CategoryDocumentation   = core.CategoryDocumentation
	CategoryGlossaryTerm    = core.CategoryGlossaryTerm
	CategoryTechnicalSchema = core.CategoryTechnicalSchema
)

// UnspecifiedStart selects "end minus lookback" as the window start.
const UnspecifiedStart = core.UnspecifiedStart

// --- Configuration ---

// Option defines a functional option for configuring the service.
type Option = platform.Option

// WithLogger sets the logger for the service and its store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom store implementation.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter selects the store adapter by name ("fs", "sql", "memory").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithConfigFile loads the registry from a YAML file.
func WithConfigFile(path string) Option {
	return platform.WithConfigFile(path)
}

// WithConfig injects a parsed registry.
func WithConfig(cfg *Config) Option {
	return platform.WithConfig(cfg)
}

// WithLookback sets the window used when a request has no start time.
func WithLookback(d time.Duration) Option {
	return platform.WithLookback(d)
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return platform.WithClock(clock)
}

// WithReadOnly rejects writes through the store.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithWatch keeps the fs adapter cache coherent with external edits.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithMustExist requires the fs root directory to exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithDialect forces the sql dialect.
func WithDialect(name string) Option {
	return platform.WithDialect(name)
}

// WithWatcherErrorHandler receives asynchronous watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New creates a timeline Service over the store addressed by uri.
func New(uri string, opts ...Option) (*core.Service, error) {
	return platform.New(uri, opts...)
}

// Open returns the store addressed by uri without building a service.
func Open(uri string, opts ...Option) (core.Store, error) {
	return platform.Open(uri, opts...)
}

// DefaultConfig returns the embedded registry.
func DefaultConfig() (*Config, error) {
	return platform.DefaultConfig()
}

// LoadConfig reads a registry from a YAML file.
func LoadConfig(path string) (*Config, error) {
	return platform.LoadConfig(path)
}

// FindConfig looks upwards from startDir for a timeline.yaml.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}
