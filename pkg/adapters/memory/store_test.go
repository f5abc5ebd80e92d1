package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/timeline/pkg/adapters/memory"
	"github.com/aretw0/timeline/pkg/core"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStore_PutAspectArchivesLatest(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	archived, err := s.PutAspect(ctx, "urn:1", "ownership", []byte(`{"owners":[]}`), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), archived)

	archived, err = s.PutAspect(ctx, "urn:1", "ownership", []byte(`{"owners":["a"]}`), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)

	v1, err := s.GetAspect(ctx, "urn:1", "ownership", 1)
	require.NoError(t, err)
	assert.Equal(t, t0, v1.CreatedAt, "archived row keeps its own creation time")
	assert.JSONEq(t, `{"owners":[]}`, string(v1.Payload))

	latest, err := s.GetAspect(ctx, "urn:1", "ownership", core.LatestVersion)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owners":["a"]}`, string(latest.Payload))

	next, err := s.GetNextVersions(ctx, "urn:1", []string{"ownership", "globalTags"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ownership": 2}, next)
}

func TestStore_GetAspectsInRange(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Insert("urn:1",
		core.AspectRow{Aspect: "ownership", Version: 1, CreatedAt: t0},
		core.AspectRow{Aspect: "ownership", Version: 2, CreatedAt: t0.Add(time.Hour)},
		core.AspectRow{Aspect: "ownership", Version: 0, CreatedAt: t0.Add(2 * time.Hour)},
		core.AspectRow{Aspect: "globalTags", Version: 0, CreatedAt: t0.Add(time.Hour)},
	)
	s.Insert("urn:2", core.AspectRow{Aspect: "ownership", Version: 0, CreatedAt: t0})

	rows, err := s.GetAspectsInRange(ctx, "urn:1", []string{"ownership"}, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2, "both bounds are inclusive")
	assert.Equal(t, int64(1), rows[0].Version)
	assert.Equal(t, int64(2), rows[1].Version)

	rows, err = s.GetAspectsInRange(ctx, "urn:1", []string{"ownership", "globalTags"}, t0.Add(time.Minute), t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestStore_GetAspectNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.GetAspect(context.Background(), "urn:1", "ownership", 3)
	assert.ErrorIs(t, err, core.ErrAspectNotFound)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := memory.New()
	_, err := s.GetAspectsInRange(ctx, "urn:1", []string{"ownership"}, t0, t0)
	assert.ErrorIs(t, err, context.Canceled)
}
