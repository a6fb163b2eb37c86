package database

import (
	"context"
	"fmt"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4JEdgeRepository implements EdgeRepository as RELATES_TO relationships between Identity nodes
type Neo4JEdgeRepository struct {
	client *Neo4JClient
	logger *logger.Logger
	now    func() time.Time
}

// NewNeo4JEdgeRepository creates a new Neo4J edge repository
func NewNeo4JEdgeRepository(client *Neo4JClient, logger *logger.Logger) *Neo4JEdgeRepository {
	return &Neo4JEdgeRepository{
		client: client,
		logger: logger.WithComponent("neo4j-edge-repo"),
		now:    time.Now,
	}
}

// List retrieves all edges ordered by creation time
func (r *Neo4JEdgeRepository) List(ctx context.Context) ([]entity.Edge, error) {
	session, err := r.client.Session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	query := `
		MATCH (s:Identity)-[r:RELATES_TO]->(t:Identity)
		RETURN r.id, s.name, t.name, r.created_at
		ORDER BY r.created_at, r.id
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		edges := make([]entity.Edge, 0)
		for records.Next(ctx) {
			edge, err := edgeFromValues(records.Record().Values)
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
		return edges, records.Err()
	})
	if err != nil {
		r.logger.Error("Failed to query edges", zap.Error(err))
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	return result.([]entity.Edge), nil
}

// Create persists a new RELATES_TO relationship, merging both identities
func (r *Neo4JEdgeRepository) Create(ctx context.Context, source, target string) (entity.Edge, error) {
	session, err := r.client.Session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return entity.Edge{}, err
	}
	defer session.Close(ctx)

	query := `
		MERGE (s:Identity {name: $source})
		MERGE (t:Identity {name: $target})
		CREATE (s)-[r:RELATES_TO {id: $id, created_at: datetime($created_at)}]->(t)
		RETURN r.id, s.name, t.name, r.created_at
	`

	params := map[string]interface{}{
		"id":         uuid.NewString(),
		"source":     source,
		"target":     target,
		"created_at": r.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := records.Single(ctx)
		if err != nil {
			return nil, err
		}
		return edgeFromValues(record.Values)
	})
	if err != nil {
		r.logger.Error("Failed to create relationship",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err))
		return entity.Edge{}, fmt.Errorf("failed to create edge: %w", err)
	}

	return result.(entity.Edge), nil
}

// Delete removes a relationship by id
func (r *Neo4JEdgeRepository) Delete(ctx context.Context, id string) error {
	session, err := r.client.Session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	query := `
		MATCH ()-[r:RELATES_TO {id: $id}]->()
		DELETE r
		RETURN count(r)
	`

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		record, err := records.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record.Values[0], nil
	})
	if err != nil {
		r.logger.Error("Failed to delete relationship", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	if deleted, _ := result.(int64); deleted == 0 {
		return fmt.Errorf("edge %s: %w", id, repository.ErrEdgeNotFound)
	}
	return nil
}

func edgeFromValues(values []any) (entity.Edge, error) {
	if len(values) < 4 {
		return entity.Edge{}, fmt.Errorf("unexpected edge record width %d", len(values))
	}

	id, _ := values[0].(string)
	source, _ := values[1].(string)
	target, _ := values[2].(string)

	edge := entity.Edge{ID: id, Source: source, Target: target}
	switch createdAt := values[3].(type) {
	case time.Time:
		edge.CreatedAt = createdAt.UTC()
	case neo4j.LocalDateTime:
		edge.CreatedAt = createdAt.Time().UTC()
	}

	return edge, nil
}
