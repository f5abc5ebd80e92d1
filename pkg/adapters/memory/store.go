// Package memory implements core.Store in memory. It backs tests, examples
// and the "memory" adapter of the CLI.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/timeline/pkg/core"
)

type rowKey struct {
	entityID string
	aspect   string
}

// Store keeps aspect versions per (entity, aspect), keyed by version.
type Store struct {
	mu   sync.RWMutex
	rows map[rowKey]map[int64]core.AspectRow
}

// New creates an empty store.
func New() *Store {
	return &Store{rows: make(map[rowKey]map[int64]core.AspectRow)}
}

// Insert stores rows verbatim, replacing rows with the same version.
// It bypasses the latest-at-zero discipline of PutAspect and is meant for
// seeding fixtures.
func (s *Store) Insert(entityID string, rows ...core.AspectRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		k := rowKey{entityID: entityID, aspect: r.Aspect}
		if s.rows[k] == nil {
			s.rows[k] = make(map[int64]core.AspectRow)
		}
		r.Payload = append([]byte(nil), r.Payload...)
		s.rows[k][r.Version] = r
	}
}

// GetAspectsInRange implements core.Store.
func (s *Store) GetAspectsInRange(ctx context.Context, entityID string, aspects []string, start, end time.Time) ([]core.AspectRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.AspectRow
	for _, aspect := range aspects {
		for _, r := range s.rows[rowKey{entityID: entityID, aspect: aspect}] {
			if r.CreatedAt.Before(start) || r.CreatedAt.After(end) {
				continue
			}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Aspect != out[j].Aspect {
			return out[i].Aspect < out[j].Aspect
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// GetNextVersions implements core.Store.
func (s *Store) GetNextVersions(ctx context.Context, entityID string, aspects []string) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(aspects))
	for _, aspect := range aspects {
		versions := s.rows[rowKey{entityID: entityID, aspect: aspect}]
		if len(versions) == 0 {
			continue
		}
		out[aspect] = nextVersion(versions)
	}
	return out, nil
}

// GetAspect implements core.Store.
func (s *Store) GetAspect(ctx context.Context, entityID, aspect string, version int64) (core.AspectRow, error) {
	if err := ctx.Err(); err != nil {
		return core.AspectRow{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[rowKey{entityID: entityID, aspect: aspect}][version]
	if !ok {
		return core.AspectRow{}, fmt.Errorf("%s/%s@%d: %w", entityID, aspect, version, core.ErrAspectNotFound)
	}
	return r, nil
}

// PutAspect implements core.AspectWriter.
func (s *Store) PutAspect(ctx context.Context, entityID, aspect string, payload []byte, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := rowKey{entityID: entityID, aspect: aspect}
	versions := s.rows[k]
	if versions == nil {
		versions = make(map[int64]core.AspectRow)
		s.rows[k] = versions
	}

	var archived int64
	if current, ok := versions[core.LatestVersion]; ok {
		archived = nextVersion(versions)
		current.Version = archived
		versions[archived] = current
	}

	versions[core.LatestVersion] = core.AspectRow{
		Aspect:    aspect,
		Version:   core.LatestVersion,
		CreatedAt: at,
		Payload:   append([]byte(nil), payload...),
	}
	return archived, nil
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory-store"
}

func nextVersion(versions map[int64]core.AspectRow) int64 {
	var max int64
	for v := range versions {
		if v > max {
			max = v
		}
	}
	return max + 1
}

var _ core.Store = (*Store)(nil)
var _ core.AspectWriter = (*Store)(nil)
