package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/timeline/pkg/adapters/lifecycle"
	"github.com/aretw0/timeline/pkg/core"
)

func TestSource_Forwards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan core.AspectChange, 1)
	src := lifecycle.NewSource(changes)
	require.NoError(t, src.Start(ctx))

	changes <- core.AspectChange{EntityID: "urn:1", Aspect: "ownership", Version: 0}

	select {
	case e := <-src.Events():
		assert.Equal(t, "urn:1/ownership@0 changed", e.String())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	close(changes)
	select {
	case _, ok := <-src.Events():
		assert.False(t, ok, "output closes with the input")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}
