package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortRows(t *testing.T) {
	t1 := time.Unix(100, 0)
	t2 := time.Unix(200, 0)

	rows := []AspectRow{
		{Aspect: "a", Version: 0, CreatedAt: t2},
		{Aspect: "a", Version: 3, CreatedAt: t2},
		{Aspect: "a", Version: 2, CreatedAt: t1},
		{Aspect: "a", Version: 1, CreatedAt: t1},
	}
	sortRows(rows)

	var versions []int64
	for _, r := range rows {
		versions = append(versions, r.Version)
	}
	assert.Equal(t, []int64{1, 2, 3, 0}, versions)
}

func TestStructuralDiff(t *testing.T) {
	prev := Baseline("ownership")
	curr := AspectRow{Aspect: "ownership", Version: 1, Payload: []byte(`{"owners":[]}`)}

	patch, err := structuralDiff(prev, curr)
	require.NoError(t, err)
	require.Len(t, patch, 1)
	assert.Equal(t, "add", patch[0].Type)
	assert.Equal(t, "/owners", string(patch[0].Path))

	t.Run("null payload is empty", func(t *testing.T) {
		patch, err := structuralDiff(curr, AspectRow{Aspect: "ownership", Payload: []byte("null")})
		require.NoError(t, err)
		require.Len(t, patch, 1)
		assert.Equal(t, "remove", patch[0].Type)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := structuralDiff(curr, AspectRow{Aspect: "ownership", Version: 2, Payload: []byte(`{`)})
		assert.ErrorIs(t, err, ErrPayloadMalformed)
	})
}

func TestCategoryRegistry(t *testing.T) {
	reg := NewCategoryRegistry(map[string]map[Category][]string{
		"dataset": {
			CategoryTag:             {"schemaMetadata", "globalTags"},
			CategoryTechnicalSchema: {"schemaMetadata"},
		},
	})

	aspects, err := reg.Expand("dataset", []Category{CategoryTechnicalSchema, CategoryTag, CategoryOwnership})
	require.NoError(t, err)
	assert.Equal(t, []string{"globalTags", "schemaMetadata"}, aspects)

	_, err = reg.Expand("chart", []Category{CategoryTag})
	assert.ErrorIs(t, err, ErrUnsupportedEntityType)

	assert.Equal(t, []string{"dataset"}, reg.EntityTypes())
	assert.Equal(t, []Category{CategoryTag, CategoryTechnicalSchema}, reg.Categories("dataset"))
}
