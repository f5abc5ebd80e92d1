// Package typed provides type-safe views over aspect payloads.
package typed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/timeline/pkg/core"
)

// Aspect wraps a raw core.AspectRow with a typed payload.
type Aspect[T any] struct {
	Name      string
	Version   int64
	CreatedAt time.Time
	Data      T
}

// Decode unmarshals the payload of row into T.
// The baseline row and empty payloads decode to the zero value.
func Decode[T any](row core.AspectRow) (T, error) {
	var data T
	if row.IsBaseline() || len(row.Payload) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(row.Payload, &data); err != nil {
		return data, fmt.Errorf("unmarshal aspect %s version %d: %w", row.Aspect, row.Version, err)
	}
	return data, nil
}

// FromRow converts a row into its typed view.
func FromRow[T any](row core.AspectRow) (*Aspect[T], error) {
	data, err := Decode[T](row)
	if err != nil {
		return nil, err
	}
	return &Aspect[T]{
		Name:      row.Aspect,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		Data:      data,
	}, nil
}

// Store wraps a core.Store to provide typed access to one aspect.
type Store[T any] struct {
	store  core.Store
	aspect string
}

// NewStore creates a typed wrapper reading and writing aspect through store.
func NewStore[T any](store core.Store, aspect string) *Store[T] {
	return &Store[T]{store: store, aspect: aspect}
}

// Get retrieves one version of the aspect and decodes it.
func (s *Store[T]) Get(ctx context.Context, entityID string, version int64) (*Aspect[T], error) {
	row, err := s.store.GetAspect(ctx, entityID, s.aspect, version)
	if err != nil {
		return nil, err
	}
	return FromRow[T](row)
}

// Latest retrieves the current value of the aspect.
func (s *Store[T]) Latest(ctx context.Context, entityID string) (*Aspect[T], error) {
	return s.Get(ctx, entityID, core.LatestVersion)
}

// Put records data as the new current value. The underlying store must
// implement core.AspectWriter.
func (s *Store[T]) Put(ctx context.Context, entityID string, data T, at time.Time) (int64, error) {
	w, ok := s.store.(core.AspectWriter)
	if !ok {
		return 0, fmt.Errorf("%w: store does not accept writes", core.ErrReadOnly)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	return w.PutAspect(ctx, entityID, s.aspect, payload, at)
}
