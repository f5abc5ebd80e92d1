package core

import (
	"context"
	"fmt"
	"time"
)

// Store defines the contract for reading aspect version history.
// Adhering to this interface keeps the engine independent of the
// underlying storage mechanism (memory, filesystem, SQL).
type Store interface {
	// GetAspectsInRange returns every row of the given aspects whose creation
	// time falls within [start, end], inclusive on both ends, in any order.
	GetAspectsInRange(ctx context.Context, entityID string, aspects []string, start, end time.Time) ([]AspectRow, error)

	// GetNextVersions returns, per aspect, the next version number the store
	// would assign. Aspects never written are absent from the map.
	GetNextVersions(ctx context.Context, entityID string, aspects []string) (map[string]int64, error)

	// GetAspect returns one exact version of an aspect.
	// It fails with ErrAspectNotFound when the version does not exist.
	GetAspect(ctx context.Context, entityID, aspect string, version int64) (AspectRow, error)
}

// AspectWriter is implemented by stores that accept new aspect versions.
//
// Writes follow the latest-at-zero discipline: the current value always lives
// at version 0, and each write first copies the previous version 0 row (with
// its own creation time) to the next free version number.
type AspectWriter interface {
	// PutAspect records payload as the new current value of aspect and returns
	// the version number the previous value was archived under (0 if none).
	PutAspect(ctx context.Context, entityID, aspect string, payload []byte, at time.Time) (int64, error)
}

// AspectChange reports that a stored aspect version changed outside the
// engine's control. Adapters able to observe their backing storage emit it so
// callers can rebuild affected timelines.
type AspectChange struct {
	EntityID string    `json:"entityId"`
	Aspect   string    `json:"aspect"`
	Version  int64     `json:"version"`
	Removed  bool      `json:"removed,omitempty"`
	At       time.Time `json:"at"`
}

func (c AspectChange) String() string {
	op := "changed"
	if c.Removed {
		op = "removed"
	}
	return fmt.Sprintf("%s/%s@%d %s", c.EntityID, c.Aspect, c.Version, op)
}
