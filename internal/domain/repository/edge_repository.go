package repository

import (
	"context"

	"ens-identity-graph/internal/domain/entity"
)

// EdgeRepository defines the durable backend for relationship edges
type EdgeRepository interface {
	// List retrieves all edges ordered by creation time
	List(ctx context.Context) ([]entity.Edge, error)

	// Create persists a new edge and returns it with the store-assigned id and created_at
	Create(ctx context.Context, source, target string) (entity.Edge, error)

	// Delete removes an edge by id
	Delete(ctx context.Context, id string) error
}

// LocalEdgeRepository persists edges on the local machine when no durable backend is reachable
type LocalEdgeRepository interface {
	// Load retrieves every locally stored edge. initialized is false when nothing
	// has ever been written, as opposed to every edge having been removed.
	Load(ctx context.Context) (edges []entity.Edge, initialized bool, err error)

	// Put stores or replaces an edge
	Put(ctx context.Context, edge entity.Edge) error

	// Remove deletes an edge by id
	Remove(ctx context.Context, id string) error
}
