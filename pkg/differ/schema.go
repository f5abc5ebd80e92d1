package differ

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/wI2L/jsondiff"

	"github.com/aretw0/timeline/pkg/core"
	"github.com/aretw0/timeline/pkg/typed"
)

// Field change kinds understood by the schema differ. They are also the keys
// of SchemaPolicy.Severities.
const (
	FieldRemoved         = "fieldRemoved"
	FieldAdded           = "fieldAdded"
	FieldTypeChanged     = "fieldTypeChanged"
	FieldNullableChanged = "fieldNullableChanged"
	FieldDocChanged      = "fieldDocChanged"
	FieldOtherChanged    = "fieldOtherChanged"
	SchemaOtherChanged   = "schemaOtherChanged"
)

// DefaultFieldSeverities is the field compatibility policy: removals and type
// changes break readers, additions extend the schema, documentation is cosmetic.
func DefaultFieldSeverities() map[string]core.Severity {
	return map[string]core.Severity{
		FieldRemoved:         core.SeverityMajor,
		FieldAdded:           core.SeverityMinor,
		FieldTypeChanged:     core.SeverityMajor,
		FieldNullableChanged: core.SeverityMinor,
		FieldDocChanged:      core.SeverityPatch,
		FieldOtherChanged:    core.SeverityPatch,
		SchemaOtherChanged:   core.SeverityPatch,
	}
}

// SchemaField is one column of a schema aspect.
type SchemaField struct {
	FieldPath      string         `json:"fieldPath"`
	NativeDataType string         `json:"nativeDataType,omitempty"`
	Type           map[string]any `json:"type,omitempty"`
	Nullable       bool           `json:"nullable,omitempty"`
	Description    string         `json:"description,omitempty"`
	GlobalTags     map[string]any `json:"globalTags,omitempty"`
	GlossaryTerms  map[string]any `json:"glossaryTerms,omitempty"`
}

// SchemaMetadata is the part of a schema aspect the differ interprets.
type SchemaMetadata struct {
	SchemaName string        `json:"schemaName,omitempty"`
	Platform   string        `json:"platform,omitempty"`
	Fields     []SchemaField `json:"fields"`
}

// SchemaPolicy configures the schema differ.
type SchemaPolicy struct {
	Severities map[string]core.Severity
}

// Schema interprets a diff against the field model of a schema aspect.
type Schema struct {
	severities map[string]core.Severity
}

// NewSchema builds a schema differ, rejecting unknown change kinds.
func NewSchema(p SchemaPolicy) (*Schema, error) {
	severities := DefaultFieldSeverities()
	for kind, s := range p.Severities {
		if _, ok := severities[kind]; !ok {
			return nil, fmt.Errorf("%w: unknown schema change kind %q", core.ErrInvalidConfig, kind)
		}
		severities[kind] = s
	}
	return &Schema{severities: severities}, nil
}

type fieldChange struct {
	kind        string
	fieldPath   string
	description string
}

// Diff implements core.Differ.
func (s *Schema) Diff(in core.DiffInput) (core.ChangeTransaction, error) {
	prev, err := typed.Decode[SchemaMetadata](in.Previous)
	if err != nil {
		return core.ChangeTransaction{}, &core.DiffError{Kind: "SchemaDecodeError", Message: err.Error(), Err: err}
	}
	curr, err := typed.Decode[SchemaMetadata](in.Current)
	if err != nil {
		return core.ChangeTransaction{}, &core.DiffError{Kind: "SchemaDecodeError", Message: err.Error(), Err: err}
	}

	changes := compareFields(prev.Fields, curr.Fields)
	if prev.SchemaName != curr.SchemaName || prev.Platform != curr.Platform {
		changes = append(changes, fieldChange{
			kind:        SchemaOtherChanged,
			description: fmt.Sprintf("Schema attributes of %s changed", in.Current.Aspect),
		})
	}

	var owned map[string]core.Patch
	if in.IncludeRawDiff {
		prevRaw, err := typed.Decode[rawSchema](in.Previous)
		if err != nil {
			return core.ChangeTransaction{}, &core.DiffError{Kind: "SchemaDecodeError", Message: err.Error(), Err: err}
		}
		currRaw, err := typed.Decode[rawSchema](in.Current)
		if err != nil {
			return core.ChangeTransaction{}, &core.DiffError{Kind: "SchemaDecodeError", Message: err.Error(), Err: err}
		}
		owned = operationsByField(in.Patch, prevRaw.Fields, currRaw.Fields)
	}

	tx := core.ChangeTransaction{Severity: core.SeverityNone}
	for _, c := range changes {
		tx.Severity = core.MaxSeverity(tx.Severity, s.severities[c.kind])
		event := core.ChangeEvent{
			Description: c.description,
			Category:    in.Category,
			Target:      in.Target,
		}
		if in.IncludeRawDiff {
			event.RawDiff = owned[c.fieldPath]
		}
		tx.ChangeEvents = append(tx.ChangeEvents, event)
	}
	return tx, nil
}

// compareFields matches fields by path. Removals come first in previous
// order, then additions and modifications in current order.
func compareFields(prev, curr []SchemaField) []fieldChange {
	prevByPath := make(map[string]SchemaField, len(prev))
	for _, f := range prev {
		prevByPath[f.FieldPath] = f
	}
	currByPath := make(map[string]SchemaField, len(curr))
	for _, f := range curr {
		currByPath[f.FieldPath] = f
	}

	var changes []fieldChange
	for _, f := range prev {
		if _, ok := currByPath[f.FieldPath]; !ok {
			changes = append(changes, fieldChange{
				kind:        FieldRemoved,
				fieldPath:   f.FieldPath,
				description: fmt.Sprintf("Field '%s' removed", f.FieldPath),
			})
		}
	}

	for _, f := range curr {
		old, ok := prevByPath[f.FieldPath]
		if !ok {
			changes = append(changes, fieldChange{
				kind:        FieldAdded,
				fieldPath:   f.FieldPath,
				description: fmt.Sprintf("Field '%s' added with type %s", f.FieldPath, fieldType(f)),
			})
			continue
		}
		changes = append(changes, modifications(old, f)...)
	}
	return changes
}

func modifications(old, f SchemaField) []fieldChange {
	var out []fieldChange
	if fieldType(old) != fieldType(f) {
		out = append(out, fieldChange{
			kind:        FieldTypeChanged,
			fieldPath:   f.FieldPath,
			description: fmt.Sprintf("Field '%s' type changed from %s to %s", f.FieldPath, fieldType(old), fieldType(f)),
		})
	}
	if old.Nullable != f.Nullable {
		out = append(out, fieldChange{
			kind:        FieldNullableChanged,
			fieldPath:   f.FieldPath,
			description: fmt.Sprintf("Field '%s' nullable changed to %t", f.FieldPath, f.Nullable),
		})
	}
	if old.Description != f.Description {
		out = append(out, fieldChange{
			kind:        FieldDocChanged,
			fieldPath:   f.FieldPath,
			description: fmt.Sprintf("Field '%s' description changed", f.FieldPath),
		})
	}
	if !reflect.DeepEqual(old.GlobalTags, f.GlobalTags) || !reflect.DeepEqual(old.GlossaryTerms, f.GlossaryTerms) {
		out = append(out, fieldChange{
			kind:        FieldOtherChanged,
			fieldPath:   f.FieldPath,
			description: fmt.Sprintf("Field '%s' annotations changed", f.FieldPath),
		})
	}
	return out
}

func fieldType(f SchemaField) string {
	if f.NativeDataType != "" {
		return f.NativeDataType
	}
	if len(f.Type) > 0 {
		return formatValue(f.Type)
	}
	return "unknown"
}

// rawSchema keeps every field attribute, including the ones SchemaField drops.
type rawSchema struct {
	Fields []map[string]any `json:"fields"`
}

// operationsByField computes the operations of each field by matching fields
// on fieldPath, so a field shifting position in the list is not reported as
// changed. Indexes point into the current list, or into the previous list for
// removals. Operations outside /fields are kept under the empty path.
func operationsByField(patch core.Patch, prev, curr []map[string]any) map[string]core.Patch {
	owned := make(map[string]core.Patch)
	for _, op := range patch {
		if segs := pathSegments(string(op.Path)); len(segs) == 0 || segs[0] != "fields" {
			owned[""] = append(owned[""], op)
		}
	}

	prevIdx := indexFields(prev)
	currIdx := indexFields(curr)
	for path, pi := range prevIdx {
		if _, ok := currIdx[path]; !ok {
			owned[path] = core.Patch{{Type: jsondiff.OperationRemove, Path: "/fields/" + strconv.Itoa(pi)}}
		}
	}
	for path, ci := range currIdx {
		prefix := "/fields/" + strconv.Itoa(ci)
		pi, ok := prevIdx[path]
		if !ok {
			owned[path] = core.Patch{{Type: jsondiff.OperationAdd, Path: prefix, Value: curr[ci]}}
			continue
		}
		ops, err := jsondiff.Compare(prev[pi], curr[ci])
		if err != nil {
			continue
		}
		for _, op := range ops {
			op.Path = prefix + op.Path
			if op.From != "" {
				op.From = prefix + op.From
			}
			owned[path] = append(owned[path], op)
		}
	}
	return owned
}

func indexFields(fields []map[string]any) map[string]int {
	out := make(map[string]int, len(fields))
	for i, f := range fields {
		if path, ok := f["fieldPath"].(string); ok {
			out[path] = i
		}
	}
	return out
}
