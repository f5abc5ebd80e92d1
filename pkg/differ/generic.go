package differ

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/wI2L/jsondiff"

	"github.com/aretw0/timeline/pkg/core"
)

// DefaultOperationSeverities ranks structural operations: additions are
// MINOR, removals MAJOR, in-place replacements PATCH.
func DefaultOperationSeverities() map[string]core.Severity {
	return map[string]core.Severity{
		jsondiff.OperationAdd:     core.SeverityMinor,
		jsondiff.OperationRemove:  core.SeverityMajor,
		jsondiff.OperationReplace: core.SeverityPatch,
		jsondiff.OperationMove:    core.SeverityPatch,
		jsondiff.OperationCopy:    core.SeverityMinor,
	}
}

// GenericPolicy configures the generic differ.
type GenericPolicy struct {
	Paths      []string
	Severities map[string]core.Severity
}

// Generic reports every structural operation as one change event.
type Generic struct {
	paths      []string
	severities map[string]core.Severity
}

// NewGeneric validates the policy and builds a generic differ.
func NewGeneric(p GenericPolicy) (*Generic, error) {
	for _, pattern := range p.Paths {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid path pattern %q", core.ErrInvalidConfig, pattern)
		}
	}

	severities := DefaultOperationSeverities()
	for op, s := range p.Severities {
		if _, ok := severities[op]; !ok {
			return nil, fmt.Errorf("%w: unknown patch operation %q", core.ErrInvalidConfig, op)
		}
		severities[op] = s
	}

	return &Generic{
		paths:      append([]string(nil), p.Paths...),
		severities: severities,
	}, nil
}

// Diff implements core.Differ.
func (g *Generic) Diff(in core.DiffInput) (core.ChangeTransaction, error) {
	tx := core.ChangeTransaction{Severity: core.SeverityNone}

	for _, op := range in.Patch {
		path := string(op.Path)
		if !g.matches(path) {
			continue
		}

		severity, ok := g.severities[op.Type]
		if !ok {
			severity = core.SeverityNone
		}
		tx.Severity = core.MaxSeverity(tx.Severity, severity)

		event := core.ChangeEvent{
			Description: describe(in, op),
			Category:    in.Category,
			Target:      in.Target,
		}
		if in.IncludeRawDiff {
			event.RawDiff = core.Patch{op}
		}
		tx.ChangeEvents = append(tx.ChangeEvents, event)
	}

	return tx, nil
}

func (g *Generic) matches(path string) bool {
	if len(g.paths) == 0 {
		return true
	}
	for _, pattern := range g.paths {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func describe(in core.DiffInput, op core.Operation) string {
	path := string(op.Path)
	if path == "" {
		path = "/"
	}
	aspect := in.Current.Aspect

	switch op.Type {
	case jsondiff.OperationAdd:
		return fmt.Sprintf("Added %s to %s: %s", path, aspect, formatValue(op.Value))
	case jsondiff.OperationRemove:
		return fmt.Sprintf("Removed %s from %s", path, aspect)
	case jsondiff.OperationReplace:
		return fmt.Sprintf("Changed %s in %s to %s", path, aspect, formatValue(op.Value))
	case jsondiff.OperationMove, jsondiff.OperationCopy:
		return fmt.Sprintf("%s %s to %s in %s", capitalize(op.Type), string(op.From), path, aspect)
	default:
		return fmt.Sprintf("%s %s in %s", op.Type, path, aspect)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
