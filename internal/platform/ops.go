package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/timeline/pkg/adapters/fs"
	"github.com/aretw0/timeline/pkg/adapters/memory"
	"github.com/aretw0/timeline/pkg/adapters/sql"
	"github.com/aretw0/timeline/pkg/core"
)

// New builds a timeline service: it opens the store, loads the registry and
// wires both into core.Service.
// The URI argument is adapter-specific (directory for "fs", DSN for "sql",
// ignored for "memory").
func New(uri string, opts ...Option) (*core.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}
	categories, differs, err := cfg.Registries()
	if err != nil {
		return nil, err
	}
	lookback, err := cfg.LookbackDuration()
	if err != nil {
		return nil, err
	}
	if o.lookback > 0 {
		lookback = o.lookback
	}

	store, err := open(uri, o)
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Debug("timeline service ready",
			"adapter", o.adapter,
			"entity_types", categories.EntityTypes(),
			"differ_bindings", differs.Len(),
		)
	}

	return core.NewService(core.Config{
		Store:      store,
		Categories: categories,
		Differs:    differs,
		Logger:     o.logger,
		Lookback:   lookback,
		Clock:      o.clock,
	}), nil
}

// Open returns the store selected by the options without building a service.
func Open(uri string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return open(uri, o)
}

func (o *options) resolveConfig() (*Config, error) {
	switch {
	case o.timeline != nil:
		if err := o.timeline.Validate(); err != nil {
			return nil, err
		}
		return o.timeline, nil
	case o.configFile != "":
		return LoadConfig(o.configFile)
	default:
		return DefaultConfig()
	}
}

func open(uri string, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}

	switch o.adapter {
	case AdapterMemory:
		return memory.New(), nil
	case AdapterFS, "":
		return openFS(uri, o)
	case AdapterSQL:
		return openSQL(uri, o)
	default:
		return nil, fmt.Errorf("%w: unknown adapter: %s", core.ErrInvalidConfig, o.adapter)
	}
}

// openFS handles the initialization logic for the filesystem adapter.
func openFS(path string, o *options) (core.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: fs adapter needs a directory", core.ErrInvalidConfig)
	}
	readOnly, _ := o.config["read_only"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	watch, _ := o.config["watch"].(bool)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	store := fs.New(fs.Config{
		Path:         path,
		MustExist:    mustExist,
		ReadOnly:     readOnly,
		Logger:       o.logger,
		ErrorHandler: errorHandler,
	})
	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}

	if watch {
		// Lives until Service.Close (fs.Store.Close) cancels it.
		if err := store.Watch(context.Background()); err != nil {
			return nil, err
		}
		if o.logger != nil {
			o.logger.Debug("fs watcher started", "path", path)
		}
	}
	return store, nil
}

// openSQL handles the initialization logic for the sql adapter.
func openSQL(dsn string, o *options) (core.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: sql adapter needs a dsn", core.ErrInvalidConfig)
	}
	readOnly, _ := o.config["read_only"].(bool)
	dialect, _ := o.config["dialect"].(string)
	if dialect == "" {
		dialect = InferDialect(dsn)
	}

	return sql.Open(sql.Config{
		Dialect:  dialect,
		DSN:      dsn,
		Migrate:  !readOnly,
		ReadOnly: readOnly,
		Logger:   o.logger,
	})
}

// InferDialect picks postgres for URL or key/value DSNs that look like
// libpq connection strings and sqlite for everything else (file paths, ":memory:").
func InferDialect(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return sql.DialectPostgres
	case strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return sql.DialectPostgres
	default:
		return sql.DialectSQLite
	}
}
