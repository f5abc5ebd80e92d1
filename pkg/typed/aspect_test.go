package typed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/timeline/pkg/adapters/memory"
	"github.com/aretw0/timeline/pkg/core"
	"github.com/aretw0/timeline/pkg/typed"
)

type Ownership struct {
	Owners []Owner `json:"owners"`
}

type Owner struct {
	Owner string `json:"owner"`
	Type  string `json:"type"`
}

func TestStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := typed.NewStore[Ownership](memory.New(), "ownership")

	_, err := store.Put(ctx, "urn:1", Ownership{Owners: []Owner{{Owner: "urn:li:corpuser:ana", Type: "DATAOWNER"}}}, at)
	require.NoError(t, err)
	archived, err := store.Put(ctx, "urn:1", Ownership{}, at.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), archived)

	latest, err := store.Latest(ctx, "urn:1")
	require.NoError(t, err)
	assert.Equal(t, "ownership", latest.Name)
	assert.Empty(t, latest.Data.Owners)

	first, err := store.Get(ctx, "urn:1", 1)
	require.NoError(t, err)
	require.Len(t, first.Data.Owners, 1)
	assert.Equal(t, "urn:li:corpuser:ana", first.Data.Owners[0].Owner)
	assert.Equal(t, at, first.CreatedAt)
}

func TestDecode(t *testing.T) {
	data, err := typed.Decode[Ownership](core.Baseline("ownership"))
	require.NoError(t, err)
	assert.Nil(t, data.Owners)

	_, err = typed.Decode[Ownership](core.AspectRow{Aspect: "ownership", Version: 1, Payload: []byte(`{"owners":1}`)})
	assert.Error(t, err)
}

type readOnlyStore struct{ core.Store }

func TestStore_PutRequiresWriter(t *testing.T) {
	store := typed.NewStore[Ownership](readOnlyStore{memory.New()}, "ownership")
	_, err := store.Put(context.Background(), "urn:1", Ownership{}, time.Now())
	assert.ErrorIs(t, err, core.ErrReadOnly)
}
