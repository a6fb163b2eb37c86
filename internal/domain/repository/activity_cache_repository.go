package repository

import (
	"context"

	"ens-identity-graph/internal/domain/entity"
)

// ActivityCacheRepository defines the persistent cache of activity histograms
type ActivityCacheRepository interface {
	// Get retrieves the cached record for a normalized address.
	// Returns ErrActivityNotFound when the address has never been cached.
	Get(ctx context.Context, address string) (*entity.ActivityRecord, error)

	// Upsert inserts or fully replaces the record keyed by its address
	Upsert(ctx context.Context, record *entity.ActivityRecord) error

	// Delete removes the cached record, if any
	Delete(ctx context.Context, address string) error
}
