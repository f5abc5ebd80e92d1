package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextVersion(t *testing.T) {
	base := &SemanticVersion{Major: 1, Minor: 2, Patch: 3, Build: BuildComputed}

	tests := []struct {
		name    string
		current *SemanticVersion
		sev     Severity
		want    string
	}{
		{"first group", nil, SeverityMajor, "0.0.0-computed"},
		{"major", base, SeverityMajor, "2.0.0-computed"},
		{"minor", base, SeverityMinor, "1.3.0-computed"},
		{"patch", base, SeverityPatch, "1.2.4-computed"},
		{"none", base, SeverityNone, "1.2.3-computed"},
		{"exceptional", base, SeverityExceptional, "1.2.3-computed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextVersion(tc.current, tc.sev).String())
		})
	}
}

func TestAssignVersions(t *testing.T) {
	groups := []*txGroup{
		{at: time.Unix(1, 0), transactions: []ChangeTransaction{{Severity: SeverityMinor}}},
		{at: time.Unix(2, 0), transactions: []ChangeTransaction{{Severity: SeverityPatch}, {Severity: SeverityNone}}},
		{at: time.Unix(3, 0), transactions: []ChangeTransaction{{Severity: SeverityMinor}, {Severity: SeverityMajor}}},
		{at: time.Unix(4, 0), transactions: []ChangeTransaction{{Severity: SeverityNone}}},
		{at: time.Unix(5, 0), transactions: []ChangeTransaction{{Severity: SeverityMinor}}},
	}

	assignVersions(groups)

	want := []string{"0.0.0-computed", "0.0.1-computed", "1.0.0-computed", "1.0.0-computed", "1.1.0-computed"}
	for i, g := range groups {
		for _, tx := range g.transactions {
			assert.Equal(t, want[i], tx.SemanticVersion, "group %d", i)
		}
	}
}

func TestSemanticVersion(t *testing.T) {
	v, err := ParseSemanticVersion("3.10.2-computed")
	assert.NoError(t, err)
	assert.Equal(t, SemanticVersion{Major: 3, Minor: 10, Patch: 2, Build: "computed"}, v)
	assert.True(t, SemanticVersion{Major: 3, Minor: 9, Patch: 9}.Less(v))
	assert.False(t, v.Less(v))

	_, err = ParseSemanticVersion("latest")
	assert.Error(t, err)
}

func TestSeverityOrdering(t *testing.T) {
	assert.Equal(t, SeverityExceptional, MaxSeverity(SeverityMajor, SeverityExceptional, SeverityPatch))
	assert.Equal(t, SeverityNone, MaxSeverity())

	s, err := ParseSeverity("minor")
	assert.NoError(t, err)
	assert.Equal(t, SeverityMinor, s)

	text, err := SeverityMajor.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "MAJOR", string(text))

	var parsed Severity
	assert.Error(t, parsed.UnmarshalText([]byte("CRITICAL")))
}
