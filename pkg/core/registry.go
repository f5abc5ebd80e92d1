package core

import (
	"fmt"
	"sort"
)

// CategoryRegistry maps entity type -> category -> aspect names.
// It is built once and never mutated, so concurrent reads need no locking.
type CategoryRegistry struct {
	entities map[string]map[Category][]string
}

// NewCategoryRegistry copies table into an immutable registry.
func NewCategoryRegistry(table map[string]map[Category][]string) *CategoryRegistry {
	entities := make(map[string]map[Category][]string, len(table))
	for entityType, categories := range table {
		cats := make(map[Category][]string, len(categories))
		for category, aspects := range categories {
			cats[category] = append([]string(nil), aspects...)
		}
		entities[entityType] = cats
	}
	return &CategoryRegistry{entities: entities}
}

// Expand resolves the aspect names backing the requested categories.
// The result is sorted and free of duplicates. Categories without a mapping
// contribute nothing.
func (r *CategoryRegistry) Expand(entityType string, categories []Category) ([]string, error) {
	cats, ok := r.entities[entityType]
	if !ok {
		return nil, fmt.Errorf("entity type %q: %w", entityType, ErrUnsupportedEntityType)
	}

	seen := make(map[string]bool)
	var aspects []string
	for _, c := range categories {
		for _, a := range cats[c] {
			if !seen[a] {
				seen[a] = true
				aspects = append(aspects, a)
			}
		}
	}
	sort.Strings(aspects)
	return aspects, nil
}

// EntityTypes lists the registered entity types, sorted.
func (r *CategoryRegistry) EntityTypes() []string {
	types := make([]string, 0, len(r.entities))
	for t := range r.entities {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Categories lists the categories registered for an entity type, sorted.
func (r *CategoryRegistry) Categories(entityType string) []Category {
	cats := r.entities[entityType]
	out := make([]Category, 0, len(cats))
	for c := range cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DifferKey identifies a differ binding.
type DifferKey struct {
	EntityType string
	Category   Category
	Aspect     string
}

// DifferRegistry maps (entity type, category, aspect) to a differ.
// Like CategoryRegistry it is immutable after construction.
type DifferRegistry struct {
	differs map[DifferKey]Differ
}

// NewDifferRegistry copies bindings into an immutable registry.
func NewDifferRegistry(bindings map[DifferKey]Differ) *DifferRegistry {
	differs := make(map[DifferKey]Differ, len(bindings))
	for k, d := range bindings {
		differs[k] = d
	}
	return &DifferRegistry{differs: differs}
}

// Lookup returns the differ bound to the key. A missing binding is not an error.
func (r *DifferRegistry) Lookup(entityType string, category Category, aspect string) (Differ, bool) {
	d, ok := r.differs[DifferKey{EntityType: entityType, Category: category, Aspect: aspect}]
	return d, ok
}

// Len returns the number of bindings.
func (r *DifferRegistry) Len() int {
	return len(r.differs)
}
