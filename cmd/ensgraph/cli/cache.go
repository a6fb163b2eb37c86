package cli

import (
	"context"
	"fmt"
	"time"

	app_service "ens-identity-graph/internal/application/service"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/blockchain"
	"ens-identity-graph/internal/infrastructure/cache"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/database"
	"ens-identity-graph/internal/infrastructure/logger"
	"ens-identity-graph/internal/infrastructure/messaging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const invalidateTimeout = 30 * time.Second

// CacheCmd groups activity cache maintenance commands
func CacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Activity cache maintenance",
	}
	cmd.AddCommand(invalidateCmd())
	return cmd
}

// invalidateCmd drops the cached histogram of an address.
// ./ensgraph cache invalidate 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --config config.yaml
func invalidateCmd() *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   "invalidate [address]",
		Short: "Drop the cached activity histogram of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invalidate(cmd.Context(), args[0], direct)
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "delete from the configured cache instead of broadcasting over NATS")

	return cmd
}

func invalidate(ctx context.Context, address string, direct bool) error {
	if !blockchain.IsValidAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	address = app_service.NormalizeAddress(address)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	if direct {
		return invalidateDirect(ctx, cfg, address, log)
	}
	return invalidateBroadcast(ctx, cfg, address, log)
}

func invalidateBroadcast(ctx context.Context, cfg *config.Config, address string, log *logger.Logger) error {
	if !cfg.NATS.Enabled {
		return fmt.Errorf("nats is disabled, use --direct to delete from the cache")
	}

	nc := messaging.NewNATSClient(&cfg.NATS, log)
	if err := nc.Connect(ctx); err != nil {
		return err
	}
	defer nc.Disconnect()

	if err := nc.PublishInvalidation(ctx, address); err != nil {
		return err
	}
	log.Info("Published cache invalidation", zap.String("address", address))
	return nil
}

func invalidateDirect(ctx context.Context, cfg *config.Config, address string, log *logger.Logger) error {
	var repo repository.ActivityCacheRepository

	switch cfg.Activity.CacheBackend {
	case config.BackendPostgres:
		pg := database.NewPostgresClient(&cfg.Postgres, log)
		if err := pg.Connect(ctx); err != nil {
			return err
		}
		defer pg.Close()
		repo = database.NewPostgresActivityRepository(pg, log)
	case config.BackendRedis:
		rdb := cache.NewRedisClient(&cfg.Redis, log)
		if err := rdb.Connect(ctx); err != nil {
			return err
		}
		defer rdb.Close()
		repo = cache.NewRedisActivityRepository(rdb)
	default:
		log.Info("Activity cache disabled, nothing to invalidate")
		return nil
	}

	if err := repo.Delete(ctx, address); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", address, err)
	}
	log.Info("Deleted cached activity", zap.String("address", address))
	return nil
}
