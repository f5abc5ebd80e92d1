package sql_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/timeline/pkg/adapters/sql"
	"github.com/aretw0/timeline/pkg/core"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sql.Store {
	t.Helper()

	store, err := sql.Open(sql.Config{
		Dialect: sql.DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "timeline.db"),
		Migrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := sql.Open(sql.Config{Dialect: "oracle"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestPutAspect_LatestAtZero(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	archived, err := store.PutAspect(ctx, "urn:1", "ownership", []byte(`{"owners":[]}`), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), archived)

	archived, err = store.PutAspect(ctx, "urn:1", "ownership", []byte(`{"owners":["a"]}`), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)

	v1, err := store.GetAspect(ctx, "urn:1", "ownership", 1)
	require.NoError(t, err)
	assert.True(t, t0.Equal(v1.CreatedAt))
	assert.JSONEq(t, `{"owners":[]}`, string(v1.Payload))

	latest, err := store.GetAspect(ctx, "urn:1", "ownership", core.LatestVersion)
	require.NoError(t, err)
	assert.True(t, t0.Add(time.Hour).Equal(latest.CreatedAt))
	assert.JSONEq(t, `{"owners":["a"]}`, string(latest.Payload))

	next, err := store.GetNextVersions(ctx, "urn:1", []string{"ownership", "globalTags"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ownership": 2}, next)
}

func TestGetAspectsInRange(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Insert(ctx, "urn:1",
		core.AspectRow{Aspect: "ownership", Version: 1, CreatedAt: t0, Payload: []byte(`{}`)},
		core.AspectRow{Aspect: "ownership", Version: 2, CreatedAt: t0.Add(time.Hour), Payload: []byte(`{}`)},
		core.AspectRow{Aspect: "ownership", Version: 0, CreatedAt: t0.Add(2 * time.Hour), Payload: []byte(`{}`)},
		core.AspectRow{Aspect: "globalTags", Version: 0, CreatedAt: t0.Add(time.Hour)},
	))
	require.NoError(t, store.Insert(ctx, "urn:2",
		core.AspectRow{Aspect: "ownership", Version: 0, CreatedAt: t0},
	))

	rows, err := store.GetAspectsInRange(ctx, "urn:1", []string{"ownership"}, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2, "both bounds are inclusive")
	assert.Equal(t, int64(1), rows[0].Version)
	assert.Equal(t, int64(2), rows[1].Version)

	rows, err = store.GetAspectsInRange(ctx, "urn:1", []string{"ownership", "globalTags"}, t0.Add(time.Minute), t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "globalTags", rows[0].Aspect)
	assert.JSONEq(t, `{}`, string(rows[0].Payload))

	rows, err = store.GetAspectsInRange(ctx, "urn:1", nil, t0, t0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetAspect_NotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.GetAspect(context.Background(), "urn:1", "ownership", 4)
	assert.ErrorIs(t, err, core.ErrAspectNotFound)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	store.SetReadOnly(true)

	_, err := store.PutAspect(ctx, "urn:1", "ownership", []byte(`{}`), t0)
	assert.ErrorIs(t, err, core.ErrReadOnly)
	assert.ErrorIs(t, store.Insert(ctx, "urn:1", core.AspectRow{Aspect: "ownership"}), core.ErrReadOnly)

	state := store.State().(sql.StoreState)
	assert.True(t, state.ReadOnly)
	assert.Equal(t, sql.DialectSQLite, state.Dialect)
}

func TestTimelineOverSQL(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.PutAspect(ctx, "urn:1", "ownership", []byte(`{"owners":[]}`), t0)
	require.NoError(t, err)
	_, err = store.PutAspect(ctx, "urn:1", "ownership", []byte(`{"owners":[{"owner":"ana"}]}`), t0.Add(time.Hour))
	require.NoError(t, err)

	svc := core.NewService(core.Config{
		Store: store,
		Categories: core.NewCategoryRegistry(map[string]map[core.Category][]string{
			"dataset": {core.CategoryOwnership: {"ownership"}},
		}),
		Differs: core.NewDifferRegistry(map[core.DifferKey]core.Differ{
			{EntityType: "dataset", Category: core.CategoryOwnership, Aspect: "ownership"}: core.DifferFunc(
				func(in core.DiffInput) (core.ChangeTransaction, error) {
					return core.ChangeTransaction{Severity: core.SeverityMinor}, nil
				}),
		}),
		Clock: func() time.Time { return t0.Add(24 * time.Hour) },
	})

	txs, err := svc.GetTimeline(ctx, core.Request{
		EntityType:      "dataset",
		EntityID:        "urn:1",
		Categories:      []core.Category{core.CategoryOwnership},
		StartTimeMillis: core.UnspecifiedStart,
	})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.ChangeCreate, txs[0].ChangeType)
	assert.Equal(t, "0.0.0-computed", txs[0].SemanticVersion)
	assert.Equal(t, "0.1.0-computed", txs[1].SemanticVersion)
}
