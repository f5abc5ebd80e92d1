// Package lifecycle exposes store change notifications as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/timeline/pkg/core"
)

// ChangeSource relays aspect changes as lifecycle events. AspectChange
// satisfies lifecycle.Event through its String method.
type ChangeSource struct {
	in     <-chan core.AspectChange
	events chan lifecycle.Event
}

// NewSource wraps a change feed such as fs.Store.Changes.
func NewSource(changes <-chan core.AspectChange) lifecycle.Source {
	return &ChangeSource{in: changes, events: make(chan lifecycle.Event)}
}

// Events is closed once the relay stops.
func (s *ChangeSource) Events() <-chan lifecycle.Event {
	return s.events
}

// Start runs the relay in a supervised goroutine until ctx is done or the
// feed closes.
func (s *ChangeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, s.relay)
	return nil
}

func (s *ChangeSource) relay(ctx context.Context) error {
	defer close(s.events)
	for {
		var change core.AspectChange
		select {
		case <-ctx.Done():
			return nil
		case c, open := <-s.in:
			if !open {
				return nil
			}
			change = c
		}

		select {
		case s.events <- change:
		case <-ctx.Done():
			return nil
		}
	}
}
