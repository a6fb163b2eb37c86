package service

import (
	"context"

	"ens-identity-graph/internal/domain/entity"
)

// ActivityService defines the interface for address activity operations
type ActivityService interface {
	// GetActivity returns the daily activity histogram for an address.
	// It never fails: upstream or cache failures degrade to stale or demo data.
	GetActivity(ctx context.Context, address string) *entity.ActivityResult

	// Invalidate drops the cached histogram for an address
	Invalidate(ctx context.Context, address string) error
}

// TransactionSource fetches an address's transaction history from a block explorer
type TransactionSource interface {
	// FetchTransactions retrieves normal or internal transactions for an address
	FetchTransactions(ctx context.Context, address string, kind entity.TxKind) ([]entity.ExplorerTx, error)
}

// NameResolver resolves ENS names against the chain
type NameResolver interface {
	// Resolver returns the resolver contract address for a name
	Resolver(ctx context.Context, name string) (string, error)

	// Address returns the address record of a name
	Address(ctx context.Context, name string) (string, error)

	// Text returns a text record of a name
	Text(ctx context.Context, name, key string) (string, error)
}

// NameSearcher looks up full ENS names by prefix
type NameSearcher interface {
	// SearchNames returns up to limit names starting with prefix
	SearchNames(ctx context.Context, prefix string, limit int) ([]string, error)
}

// EdgeEventPublisher announces confirmed edge mutations
type EdgeEventPublisher interface {
	PublishEdgeEvent(ctx context.Context, event entity.EdgeEvent) error
}
