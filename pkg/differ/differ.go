package differ

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/timeline/pkg/core"
)

// Kind names a differ variant in configuration.
type Kind string

const (
	KindGeneric Kind = "generic"
	KindSchema  Kind = "schema"
)

// Options carries the policy data of a binding.
type Options struct {
	// Paths restricts the generic differ to operations whose JSON Pointer path
	// matches one of these doublestar patterns. Empty means every operation.
	Paths []string
	// Severities overrides the default severity per operation type (generic)
	// or per field change (schema).
	Severities map[string]core.Severity
}

// New builds the differ variant named by kind.
func New(kind Kind, opts Options) (core.Differ, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindGeneric, "":
		return NewGeneric(GenericPolicy{Paths: opts.Paths, Severities: opts.Severities})
	case KindSchema:
		return NewSchema(SchemaPolicy{Severities: opts.Severities})
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownDiffer, kind)
	}
}

// formatValue renders a JSON value for a change description.
func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	const max = 120
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}

// pathSegments splits a JSON Pointer into unescaped segments.
func pathSegments(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}
