package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	domain_service "ens-identity-graph/internal/domain/service"
	"ens-identity-graph/internal/infrastructure/cache"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"go.uber.org/zap"
)

const (
	// MinSearchQueryLength is the shortest query sent to the search index
	MinSearchQueryLength = 3

	// MaxSearchResults caps the number of names returned
	MaxSearchResults = 10
)

// SearchApplicationService completes partial names against the search index.
// It never fails: short queries and upstream errors yield an empty list.
type SearchApplicationService struct {
	searcher domain_service.NameSearcher
	results  *cache.Memory[[]string]
	logger   *logger.Logger
}

// NewSearchApplicationService creates a new search service
func NewSearchApplicationService(cfg *config.SearchConfig, searcher domain_service.NameSearcher, logger *logger.Logger) *SearchApplicationService {
	return &SearchApplicationService{
		searcher: searcher,
		results:  cache.NewMemory[[]string](cfg.CacheTTL),
		logger:   logger.WithComponent("search-service"),
	}
}

// Search returns up to MaxSearchResults names starting with query, sorted
func (s *SearchApplicationService) Search(ctx context.Context, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(query) < MinSearchQueryLength {
		return []string{}
	}

	if names, ok := s.results.Get(query); ok {
		return append([]string(nil), names...)
	}

	names, err := s.searcher.SearchNames(ctx, query, MaxSearchResults)
	if err != nil {
		s.logger.Warn("Name search failed", zap.String("query", query), zap.Error(err))
		return []string{}
	}

	names = append([]string(nil), names...)
	sort.Strings(names)
	if len(names) > MaxSearchResults {
		names = names[:MaxSearchResults]
	}

	s.results.Set(query, names)
	return append([]string(nil), names...)
}
