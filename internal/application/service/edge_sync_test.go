package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLocalEdges(t *testing.T) {
	ctx := context.Background()
	backend := seededBackend()

	local := newFakeLocalEdges()
	for _, e := range DemoEdges() {
		require.NoError(t, local.Put(ctx, e))
	}
	require.NoError(t, local.Put(ctx, entity.Edge{ID: "tmp-1-1", Source: "dave.eth", Target: "alice.eth", CreatedAt: time.Now()}))
	require.NoError(t, local.Put(ctx, entity.Edge{ID: "tmp-1-2", Source: "alice.eth", Target: "bob.eth", CreatedAt: time.Now()}))

	result, err := SyncLocalEdges(ctx, local, backend, false, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 1, Skipped: 1}, result)

	edges, err := backend.List(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, "dave.eth", edges[2].Source)

	// A second run finds the pair already copied
	result, err = SyncLocalEdges(ctx, local, backend, true, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Skipped: 2, Pruned: 2}, result)

	remaining, _, err := local.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, len(DemoEdges()))
}

func TestSyncLocalEdges_NeverInitialized(t *testing.T) {
	backend := seededBackend()
	result, err := SyncLocalEdges(context.Background(), newFakeLocalEdges(), backend, true, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, result)
	assert.Equal(t, 0, backend.listCalls)
}

func TestSyncLocalEdges_BackendFailure(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocalEdges()
	require.NoError(t, local.Put(ctx, entity.Edge{ID: "tmp-1-1", Source: "dave.eth", Target: "alice.eth"}))

	backend := seededBackend()
	backend.createErr = errors.New("insert failed")

	_, err := SyncLocalEdges(ctx, local, backend, true, logger.NewNop())
	assert.ErrorContains(t, err, "insert failed")

	remaining, _, err := local.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
