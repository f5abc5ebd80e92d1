// Package timeline is the Composition Root for the timeline engine.
//
// It connects the core engine (pkg/core) with the store adapters
// (pkg/adapters/...) and the declarative registry (internal/platform) using
// the Hexagonal Architecture pattern.
//
// The engine reads the per-aspect version history of an entity and rebuilds
// the sequence of meaningful changes as semantically versioned transactions:
// every category change (tags, ownership, documentation, glossary terms,
// technical schema) becomes a ChangeTransaction carrying a severity, a
// computed version such as "1.2.0-computed" and human readable events.
//
// Features:
//
//   - **Gap-filled history**: each aspect is extended back to a real or synthetic baseline.
//   - **Pluggable differs**: a generic JSON Patch differ and a schema-aware differ, bound per
//     (entity type, category, aspect) from YAML.
//   - **Contained failures**: a failing differ yields an EXCEPTIONAL transaction instead of an error.
//   - **Adapters**: filesystem (JSON/YAML version files), SQL (postgres, sqlite) and in-memory stores.
//
// Usage:
//
//	svc, err := timeline.New("./history",
//		timeline.WithLogger(logger),
//	)
//
//	txs, err := svc.GetTimeline(ctx, timeline.Request{
//		EntityType:      "dataset",
//		EntityID:        urn,
//		Categories:      []timeline.Category{timeline.CategoryOwnership},
//		StartTimeMillis: timeline.UnspecifiedStart,
//	})
package timeline
