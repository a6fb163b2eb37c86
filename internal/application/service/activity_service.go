package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	domain_service "ens-identity-graph/internal/domain/service"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"
	"ens-identity-graph/internal/infrastructure/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const upstreamUnavailableMessage = "activity source unavailable"

// ActivityApplicationService implements ActivityService: a TTL cache in front of the
// block explorer that serves stale or zeroed data instead of failing
type ActivityApplicationService struct {
	cache           repository.ActivityCacheRepository
	source          domain_service.TransactionSource
	ttl             time.Duration
	windowDays      int
	upstreamTimeout time.Duration
	now             func() time.Time
	refreshes       singleflight.Group
	logger          *logger.Logger
}

// NewActivityApplicationService creates a new activity service. cache may be nil,
// in which case every request refreshes from the source.
func NewActivityApplicationService(
	cfg *config.ActivityConfig,
	cache repository.ActivityCacheRepository,
	source domain_service.TransactionSource,
	logger *logger.Logger,
) *ActivityApplicationService {
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = entity.ActivityWindowDays
	}
	return &ActivityApplicationService{
		cache:           cache,
		source:          source,
		ttl:             cfg.TTL,
		windowDays:      windowDays,
		upstreamTimeout: cfg.UpstreamLimit,
		now:             time.Now,
		logger:          logger.WithComponent("activity-service"),
	}
}

// NormalizeAddress returns the cache key for an address
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// GetActivity returns the daily histogram for address
func (s *ActivityApplicationService) GetActivity(ctx context.Context, address string) *entity.ActivityResult {
	address = NormalizeAddress(address)
	log := s.logger.WithAddress(address)

	cached := s.readCache(ctx, address)
	if cached != nil {
		age := s.now().Sub(cached.UpdatedAt)
		if age < s.ttl {
			if age < 0 {
				age = 0
			}
			metrics.RecordActivityRequest("cached")
			return &entity.ActivityResult{
				ActivityRecord:  copyRecord(cached),
				Cached:          true,
				CacheAgeMinutes: int64(age / time.Minute),
			}
		}
	}

	// Concurrent refreshes of one address share a single upstream round trip
	v, err, shared := s.refreshes.Do(address, func() (interface{}, error) {
		return s.refresh(ctx, address)
	})
	if err == nil {
		metrics.RecordActivityRequest("refreshed")
		log.Debug("Served refreshed activity", zap.Bool("shared", shared))
		return &entity.ActivityResult{ActivityRecord: copyRecord(v.(*entity.ActivityRecord))}
	}

	if cached != nil {
		log.Warn("Activity refresh failed, serving stale cache",
			zap.Time("updated_at", cached.UpdatedAt),
			zap.Error(err))
		metrics.RecordActivityRequest("stale")
		return &entity.ActivityResult{
			ActivityRecord: copyRecord(cached),
			Stale:          true,
		}
	}

	log.Warn("Activity refresh failed with no cache, serving placeholder", zap.Error(err))
	metrics.RecordActivityRequest("demo")
	return &entity.ActivityResult{
		ActivityRecord: entity.ActivityRecord{
			Address:     address,
			DailyCounts: domain_service.EmptyHistogram(s.now(), s.windowDays),
			MaxCount:    1,
		},
		Demo:  true,
		Error: upstreamUnavailableMessage,
	}
}

// Invalidate drops the cached histogram for address
func (s *ActivityApplicationService) Invalidate(ctx context.Context, address string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, NormalizeAddress(address))
}

// refresh fetches both transaction histories, rebuilds the histogram and writes it back.
// The upstream pair is bounded by upstreamTimeout but detached from the caller's
// cancellation so a shared refresh is not cut short by one abandoned request.
func (s *ActivityApplicationService) refresh(ctx context.Context, address string) (*entity.ActivityRecord, error) {
	ctx = context.WithoutCancel(ctx)
	if s.upstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.upstreamTimeout)
		defer cancel()
	}

	var normal, internal []entity.ExplorerTx
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.source.FetchTransactions(gctx, address, entity.TxKindNormal)
		normal = txs
		return err
	})
	g.Go(func() error {
		txs, err := s.source.FetchTransactions(gctx, address, entity.TxKindInternal)
		internal = txs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	txs := make([]entity.ExplorerTx, 0, len(normal)+len(internal))
	txs = append(txs, normal...)
	txs = append(txs, internal...)
	series, maxCount := domain_service.BuildDailyHistogram(txs, now, s.windowDays)

	record := &entity.ActivityRecord{
		Address:     address,
		DailyCounts: series,
		MaxCount:    maxCount,
		UpdatedAt:   now.UTC(),
	}
	s.writeCache(ctx, record)

	s.logger.Info("Refreshed activity",
		zap.String("address", address),
		zap.Int("normal_txs", len(normal)),
		zap.Int("internal_txs", len(internal)),
		zap.Int("max_count", maxCount))

	return record, nil
}

// readCache returns the cache entry for address, or nil when there is none or
// the cache cannot be read
func (s *ActivityApplicationService) readCache(ctx context.Context, address string) *entity.ActivityRecord {
	if s.cache == nil {
		return nil
	}

	record, err := s.cache.Get(ctx, address)
	if errors.Is(err, repository.ErrActivityNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("Activity cache unavailable, treating as miss",
			zap.String("address", address),
			zap.Error(err))
		return nil
	}
	if record == nil {
		return nil
	}

	if !domain_service.IsWellFormedHistogram(record.DailyCounts, s.windowDays) || record.MaxCount < 1 {
		s.logger.Warn("Ignoring malformed activity cache entry",
			zap.String("address", address),
			zap.Int("days", len(record.DailyCounts)))
		return nil
	}
	return record
}

func (s *ActivityApplicationService) writeCache(ctx context.Context, record *entity.ActivityRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Upsert(ctx, record); err != nil {
		s.logger.Warn("Failed to write activity cache",
			zap.String("address", record.Address),
			zap.Error(err))
	}
}

func copyRecord(record *entity.ActivityRecord) entity.ActivityRecord {
	out := *record
	out.DailyCounts = append([]entity.DailyCount(nil), record.DailyCounts...)
	return out
}
