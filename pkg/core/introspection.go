package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	EntityTypes    []string `json:"entity_types"`
	DifferBindings int      `json:"differ_bindings"`
	Lookback       string   `json:"lookback"`
	StoreType      string   `json:"store_type"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	storeType := "unknown"
	if s.store != nil {
		storeType = "store"
		if comp, ok := s.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}

	return ServiceState{
		EntityTypes:    s.categories.EntityTypes(),
		DifferBindings: s.differs.Len(),
		Lookback:       s.lookback.String(),
		StoreType:      storeType,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "timeline-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
