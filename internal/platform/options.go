package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/timeline/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterMemory = "memory"
	AdapterFS     = "fs"
	AdapterSQL    = "sql"
)

// options holds the internal configuration for the timeline service.
type options struct {
	store      core.Store
	logger     *slog.Logger
	adapter    string
	config     map[string]interface{}
	configFile string
	timeline   *Config
	lookback   time.Duration
	clock      func() time.Time
}

// Option defines a functional option for configuring the timeline service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		config:  make(map[string]interface{}),
	}
}

// WithLogger sets the logger for the service and the store adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom store. If provided, the adapter selection is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter selects the store adapter by name ("fs", "sql" or "memory").
// Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithConfigFile loads the registry from a YAML file instead of the embedded default.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithConfig injects an already parsed registry. It takes precedence over WithConfigFile.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.timeline = cfg
	}
}

// WithLookback overrides the window used when a request has no start time.
func WithLookback(d time.Duration) Option {
	return func(o *options) {
		o.lookback = d
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. PutAspect returns ErrReadOnly.
// 2. The fs adapter does not create the root directory.
// 3. The sql adapter does not migrate the schema.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithWatch starts the fs adapter watcher, which evicts cached version files
// edited by other processes. Service.Close stops it. Ignored by other adapters.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.config["watch"] = enabled
	}
}

// WithMustExist ensures the fs root directory already exists.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithDialect forces the sql dialect ("postgres" or "sqlite"). By default it is
// inferred from the URI.
func WithDialect(name string) Option {
	return func(o *options) {
		o.config["dialect"] = name
	}
}

// WithWatcherErrorHandler registers a callback for asynchronous watcher failures,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}
