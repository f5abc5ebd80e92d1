package core

import (
	"fmt"
	"strings"
)

// Severity is the ordinal impact of a change. Higher values win.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityPatch
	SeverityMinor
	SeverityMajor
	// SeverityExceptional flags a change whose diff could not be computed.
	// It ranks above MAJOR so failures are never masked by a sibling.
	SeverityExceptional
)

var severityNames = map[Severity]string{
	SeverityNone:        "NONE",
	SeverityPatch:       "PATCH",
	SeverityMinor:       "MINOR",
	SeverityMajor:       "MAJOR",
	SeverityExceptional: "EXCEPTIONAL",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity resolves a severity by name, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range severityNames {
		if n == want {
			return s, nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MaxSeverity returns the highest of the given severities, NONE when empty.
func MaxSeverity(levels ...Severity) Severity {
	highest := SeverityNone
	for _, l := range levels {
		if l > highest {
			highest = l
		}
	}
	return highest
}
