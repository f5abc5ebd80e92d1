package sql

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Dialect         string `json:"dialect"`
	ReadOnly        bool   `json:"read_only"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	state := StoreState{
		Dialect:  s.dialect,
		ReadOnly: s.IsReadOnly(),
	}
	if sqlDB, err := s.db.DB(); err == nil {
		stats := sqlDB.Stats()
		state.OpenConnections = stats.OpenConnections
		state.InUse = stats.InUse
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sql-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
