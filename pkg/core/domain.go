// Package core holds the timeline domain: aspect version rows, change categories,
// severities, change transactions and the engine that turns raw aspect history
// into semantically versioned transactions.
package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wI2L/jsondiff"
)

// BaselineVersion marks the synthetic row standing for "nothing existed before".
// It is never persisted.
const BaselineVersion int64 = -1

// LatestVersion is the version number of the current value of an aspect.
const LatestVersion int64 = 0

// AspectRow is a read-only snapshot of one version of one aspect of an entity.
type AspectRow struct {
	Aspect    string
	Version   int64
	CreatedAt time.Time
	// Payload is the JSON document stored for this version. Nil for the baseline row.
	Payload json.RawMessage
}

// IsBaseline reports whether the row is the synthetic baseline.
func (r AspectRow) IsBaseline() bool {
	return r.Version == BaselineVersion
}

// Baseline builds the synthetic baseline row for an aspect.
func Baseline(aspect string) AspectRow {
	return AspectRow{
		Aspect:    aspect,
		Version:   BaselineVersion,
		CreatedAt: time.Unix(0, 0).UTC(),
	}
}

// Category is a user-facing grouping of aspects that represent one kind of change.
type Category string

const (
	CategoryTag             Category = "TAG"
	CategoryOwnership       Category = "OWNERSHIP"
	CategoryDocumentation   Category = "DOCUMENTATION"
	CategoryGlossaryTerm    Category = "GLOSSARY_TERM"
	CategoryTechnicalSchema Category = "TECHNICAL_SCHEMA"
)

// ParseCategory normalizes a user supplied category name.
func ParseCategory(s string) Category {
	return Category(strings.ToUpper(strings.TrimSpace(s)))
}

// ChangeType tells whether a pair compares against the baseline or a real prior version.
type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpsert ChangeType = "UPSERT"
)

// Patch is an RFC 6902 structural diff between two aspect payloads.
type Patch = jsondiff.Patch

// Operation is a single structural diff operation.
type Operation = jsondiff.Operation

// ChangeEvent is one human and machine readable unit of change.
type ChangeEvent struct {
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Target      string   `json:"target"`
	// RawDiff holds the operations the event was derived from. Only set when requested.
	RawDiff Patch `json:"rawDiff,omitempty"`
}

// ChangeTransaction is the result of one differ invocation on one version pair for one category.
type ChangeTransaction struct {
	Timestamp       time.Time     `json:"timestamp"`
	SemanticVersion string        `json:"semVer,omitempty"`
	Severity        Severity      `json:"semVerChange"`
	ChangeType      ChangeType    `json:"changeType"`
	Aspect          string        `json:"aspect"`
	Category        Category      `json:"category"`
	ChangeEvents    []ChangeEvent `json:"changeEvents"`
}

// BuildComputed is the build tag attached to every computed semantic version.
const BuildComputed = "computed"

// SemanticVersion is a major.minor.patch triple with a build tag.
type SemanticVersion struct {
	Major int
	Minor int
	Patch int
	Build string
}

// String renders the version as "major.minor.patch-build".
func (v SemanticVersion) String() string {
	if v.Build == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.Build)
}

// Less compares the (major, minor, patch) triple lexicographically.
func (v SemanticVersion) Less(o SemanticVersion) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// ParseSemanticVersion parses "major.minor.patch[-build]".
func ParseSemanticVersion(s string) (SemanticVersion, error) {
	var v SemanticVersion
	core, build, _ := strings.Cut(s, "-")
	if _, err := fmt.Sscanf(core, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch); err != nil {
		return SemanticVersion{}, fmt.Errorf("invalid semantic version %q: %w", s, err)
	}
	v.Build = build
	return v, nil
}
