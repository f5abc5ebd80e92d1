package platform_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/timeline/internal/platform"
	"github.com/aretw0/timeline/pkg/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := platform.DefaultConfig()
	require.NoError(t, err)

	lookback, err := cfg.LookbackDuration()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, lookback)

	categories, differs, err := cfg.Registries()
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset"}, categories.EntityTypes())
	assert.Equal(t, 9, differs.Len())

	aspects, err := categories.Expand("dataset", []core.Category{core.CategoryTag})
	require.NoError(t, err)
	assert.Equal(t, []string{"editableSchemaMetadata", "globalTags", "schemaMetadata"}, aspects)

	aspects, err = categories.Expand("dataset", []core.Category{core.CategoryTechnicalSchema, core.CategoryDocumentation})
	require.NoError(t, err)
	assert.Equal(t, []string{"datasetProperties", "editableDatasetProperties", "institutionalMemory", "schemaMetadata"}, aspects)

	_, ok := differs.Lookup("dataset", core.CategoryTechnicalSchema, "schemaMetadata")
	assert.True(t, ok)
	_, ok = differs.Lookup("dataset", core.CategoryOwnership, "schemaMetadata")
	assert.False(t, ok)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown differ", "entities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n        differ: semantic\n"},
		{"unknown severity", "entities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n        severities:\n          add: HUGE\n"},
		{"empty aspect", "entities:\n  dataset:\n    TAG:\n      - differ: generic\n"},
		{"duplicate aspect", "entities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n      - aspect: globalTags\n"},
		{"bad lookback", "lookback: soon\nentities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n"},
		{"negative lookback", "lookback: -1h\nentities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n"},
		{"unknown field", "entity:\n  dataset: {}\n"},
		{"no entities", "lookback: 1h\n"},
		{"bad path pattern", "entities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n        paths: ['/tags/[']\n"},
		{"generic severity operation", "entities:\n  dataset:\n    TAG:\n      - aspect: globalTags\n        severities:\n          remvoe: MINOR\n"},
		{"schema severity kind", "entities:\n  dataset:\n    TECHNICAL_SCHEMA:\n      - aspect: schemaMetadata\n        differ: schema\n        severities:\n          columnDropped: MAJOR\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := platform.ParseConfig([]byte(tc.yaml))
			if err == nil {
				_, _, err = cfg.Registries()
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}

func TestParseConfig_Overrides(t *testing.T) {
	cfg, err := platform.ParseConfig([]byte(`
lookback: 30m
entities:
  chart:
    ownership:
      - aspect: ownership
        differ: generic
        severities:
          remove: MINOR
`))
	require.NoError(t, err)

	lookback, err := cfg.LookbackDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, lookback)

	categories, _, err := cfg.Registries()
	require.NoError(t, err)
	aspects, err := categories.Expand("chart", []core.Category{core.CategoryOwnership})
	require.NoError(t, err, "category keys are case-insensitive")
	assert.Equal(t, []string{"ownership"}, aspects)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), platform.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("entities:\n  dataset:\n    OWNERSHIP:\n      - aspect: ownership\n"), 0644))

	cfg, err := platform.LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Entities["dataset"][core.CategoryOwnership], 1)

	_, err = platform.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
