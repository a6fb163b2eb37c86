package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// PostgresEdgeRepository implements EdgeRepository on the edges table
type PostgresEdgeRepository struct {
	client *PostgresClient
	logger *logger.Logger
}

// NewPostgresEdgeRepository creates a new PostgreSQL edge repository
func NewPostgresEdgeRepository(client *PostgresClient, logger *logger.Logger) *PostgresEdgeRepository {
	return &PostgresEdgeRepository{
		client: client,
		logger: logger.WithComponent("postgres-edge-repo"),
	}
}

// List retrieves all edges ordered by creation time
func (r *PostgresEdgeRepository) List(ctx context.Context) ([]entity.Edge, error) {
	exec, err := r.client.Executor()
	if err != nil {
		return nil, err
	}

	rows, err := exec.Query(ctx, `SELECT id, source, target, created_at FROM edges ORDER BY created_at, id`)
	if err != nil {
		r.logger.Error("Failed to query edges", zap.Error(err))
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	edges := make([]entity.Edge, 0)
	for rows.Next() {
		var (
			id        int64
			edge      entity.Edge
			createdAt time.Time
		)
		if err := rows.Scan(&id, &edge.Source, &edge.Target, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge.ID = strconv.FormatInt(id, 10)
		edge.CreatedAt = createdAt.UTC()
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}

	return edges, nil
}

// Create persists a new edge and returns it with its serial id
func (r *PostgresEdgeRepository) Create(ctx context.Context, source, target string) (entity.Edge, error) {
	exec, err := r.client.Executor()
	if err != nil {
		return entity.Edge{}, err
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = exec.QueryRow(ctx,
		`INSERT INTO edges (source, target) VALUES ($1, $2) RETURNING id, created_at`,
		source, target,
	).Scan(&id, &createdAt)
	if err != nil {
		r.logger.Error("Failed to insert edge",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err))
		return entity.Edge{}, fmt.Errorf("failed to create edge: %w", err)
	}

	return entity.Edge{
		ID:        strconv.FormatInt(id, 10),
		Source:    source,
		Target:    target,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// Delete removes an edge by id
func (r *PostgresEdgeRepository) Delete(ctx context.Context, id string) error {
	exec, err := r.client.Executor()
	if err != nil {
		return err
	}

	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid edge id %q: %w", id, repository.ErrEdgeNotFound)
	}

	tag, err := exec.Exec(ctx, `DELETE FROM edges WHERE id = $1`, numericID)
	if err != nil {
		r.logger.Error("Failed to delete edge", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug("Edge not found", zap.String("id", id))
		return fmt.Errorf("edge %s: %w", id, repository.ErrEdgeNotFound)
	}

	return nil
}
