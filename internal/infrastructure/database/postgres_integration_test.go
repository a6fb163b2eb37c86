//go:build integration

package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	postgresUser     = "ensgraph"
	postgresPassword = "password"
	postgresDatabase = "ensgraph"

	// this version should stay in sync with the one used in production
	postgresVersion = "16-alpine"
)

var testClient *PostgresClient

func TestMain(m *testing.M) {
	cfg, cleanup, err := setupPostgresContainer()
	if err != nil {
		log.Fatalf("failed to setup postgres container: %v", err)
	}

	testClient = NewPostgresClient(cfg, logger.NewNop())
	if err := testClient.Connect(context.Background()); err != nil {
		cleanup()
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	code := m.Run()
	testClient.Close()
	cleanup()

	os.Exit(code)
}

// setupPostgresContainer starts a disposable PostgreSQL and waits until it accepts connections.
// The returned cleanup MUST be called to remove the container.
func setupPostgresContainer() (*config.PostgresConfig, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, err
	}

	// there can be only 1 container with the same name
	containerName := "postgres-integration-tests-" + uuid.NewString()[:8]
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       containerName,
		Repository: "postgres",
		Tag:        postgresVersion,
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDatabase,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("failed to purge resource: %v", err)
		}
	}

	cfg := &config.PostgresConfig{
		URL: fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable",
			postgresUser, postgresPassword, resource.GetPort("5432/tcp"), postgresDatabase),
		MaxConns:        4,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute,
		ConnectTimeout:  5 * time.Second,
	}

	pool.MaxWait = time.Minute
	err = pool.Retry(func() error {
		candidate := NewPostgresClient(cfg, logger.NewNop())
		if err := candidate.Connect(context.Background()); err != nil {
			return err
		}
		candidate.Close()
		return nil
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return cfg, cleanup, nil
}

func TestPostgresEdgeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresEdgeRepository(testClient, logger.NewNop())

	first, err := repo.Create(ctx, "alice.eth", "bob.eth")
	require.NoError(t, err)
	second, err := repo.Create(ctx, "bob.eth", "carol.eth")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	edges, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, edges, first)
	assert.Contains(t, edges, second)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), repository.ErrEdgeNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "tmp-1-1"), repository.ErrEdgeNotFound)

	edges, err = repo.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, edges, first)
}

func TestPostgresActivityRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresActivityRepository(testClient, logger.NewNop())

	_, err := repo.Get(ctx, "0xmissing")
	assert.ErrorIs(t, err, repository.ErrActivityNotFound)

	record := &entity.ActivityRecord{
		Address:     "0xabc",
		DailyCounts: []entity.DailyCount{{Date: "2026-03-14", Count: 0}, {Date: "2026-03-15", Count: 4}},
		MaxCount:    4,
		UpdatedAt:   time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Upsert(ctx, record))

	got, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	// Upsert fully replaces the row
	record.DailyCounts[1].Count = 9
	record.MaxCount = 9
	record.UpdatedAt = record.UpdatedAt.Add(24 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, record))

	got, err = repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 9, got.MaxCount)
	assert.Equal(t, record.UpdatedAt, got.UpdatedAt)

	require.NoError(t, repo.Delete(ctx, "0xabc"))
	_, err = repo.Get(ctx, "0xabc")
	assert.ErrorIs(t, err, repository.ErrActivityNotFound)
}
