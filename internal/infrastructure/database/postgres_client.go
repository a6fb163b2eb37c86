package database

import (
	"context"
	"fmt"

	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor is implemented by both *pgxpool.Pool and pgx.Tx
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresClient handles PostgreSQL connection pooling and schema setup
type PostgresClient struct {
	pool   *pgxpool.Pool
	exec   Executor
	config *config.PostgresConfig
	logger *logger.Logger
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(cfg *config.PostgresConfig, logger *logger.Logger) *PostgresClient {
	return &PostgresClient{
		config: cfg,
		logger: logger.WithComponent("postgres-client"),
	}
}

// Connect opens the connection pool, verifies it and creates the schema
func (p *PostgresClient) Connect(ctx context.Context) error {
	p.logger.Info("Connecting to PostgreSQL", zap.Int32("max_conns", p.config.MaxConns))

	poolConfig, err := pgxpool.ParseConfig(p.config.URL)
	if err != nil {
		return fmt.Errorf("failed to parse postgres url: %w", err)
	}

	// Each request handler uses at most one connection at a time
	poolConfig.MaxConns = p.config.MaxConns
	poolConfig.MinConns = p.config.MinConns
	poolConfig.MaxConnLifetime = p.config.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = p.config.ConnMaxIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, p.config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		p.logger.Error("Failed to verify PostgreSQL connectivity", zap.Error(err))
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := setupPostgresSchema(connectCtx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("failed to setup schema: %w", err)
	}

	p.pool = pool
	p.exec = pool
	p.logger.Info("Successfully connected to PostgreSQL")
	return nil
}

// Close closes the connection pool
func (p *PostgresClient) Close() {
	if p.pool != nil {
		p.logger.Info("Closing PostgreSQL pool")
		p.pool.Close()
		p.pool = nil
	}
	p.exec = nil
}

// Executor returns the pool, or ErrNotConnected when Connect has not succeeded
func (p *PostgresClient) Executor() (Executor, error) {
	if p.exec == nil {
		return nil, repository.ErrNotConnected
	}
	return p.exec, nil
}

// IsConnected checks if the pool is usable
func (p *PostgresClient) IsConnected(ctx context.Context) bool {
	if p.pool == nil {
		return false
	}
	return p.pool.Ping(ctx) == nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS edges (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS edges_created_at ON edges (created_at)`,
	`CREATE TABLE IF NOT EXISTS activity_cache (
		address TEXT PRIMARY KEY,
		daily_counts JSONB NOT NULL,
		max_count INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

func setupPostgresSchema(ctx context.Context, exec Executor) error {
	for _, stmt := range postgresSchema {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
