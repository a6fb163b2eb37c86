package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDBEdgeRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := &config.LocalConfig{Path: filepath.Join(t.TempDir(), "edges")}
	repo := NewLevelDBEdgeRepository(cfg, logger.NewNop())

	edges, initialized, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
	assert.False(t, initialized)

	first := entity.Edge{ID: "tmp-1", Source: "a.eth", Target: "b.eth", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	second := entity.Edge{ID: "tmp-2", Source: "b.eth", Target: "c.eth", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Put(ctx, first))
	require.NoError(t, repo.Put(ctx, second))

	edges, initialized, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)
	assert.Equal(t, []entity.Edge{second, first}, edges)

	require.NoError(t, repo.Remove(ctx, "tmp-2"))
	require.NoError(t, repo.Remove(ctx, "missing"))
	require.NoError(t, repo.Close())

	// reopen from disk
	reopened := NewLevelDBEdgeRepository(cfg, logger.NewNop())
	defer reopened.Close()
	edges, _, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.Edge{first}, edges)

	// emptied storage stays initialized
	require.NoError(t, reopened.Remove(ctx, "tmp-1"))
	edges, initialized, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
	assert.True(t, initialized)
}

func TestLevelDBEdgeRepository_Unavailable(t *testing.T) {
	ctx := context.Background()

	// a regular file where the database directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	repo := NewLevelDBEdgeRepository(&config.LocalConfig{Path: filepath.Join(blocker, "edges")}, logger.NewNop())

	_, _, err := repo.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrNotConnected)
	assert.ErrorIs(t, repo.Put(ctx, entity.Edge{ID: "x"}), repository.ErrNotConnected)
	assert.NoError(t, repo.Close())
}
