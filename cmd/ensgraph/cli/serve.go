package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "ens-identity-graph/internal/application/service"
	"ens-identity-graph/internal/domain/repository"
	domain_service "ens-identity-graph/internal/domain/service"
	"ens-identity-graph/internal/infrastructure/blockchain"
	"ens-identity-graph/internal/infrastructure/cache"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/database"
	"ens-identity-graph/internal/infrastructure/explorer"
	"ens-identity-graph/internal/infrastructure/local"
	"ens-identity-graph/internal/infrastructure/logger"
	"ens-identity-graph/internal/infrastructure/messaging"
	"ens-identity-graph/internal/infrastructure/metrics"
	"ens-identity-graph/internal/infrastructure/search"
	"ens-identity-graph/internal/interfaces/rest"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// ServeCmd starts the HTTP API
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the ENS identity graph HTTP API",
		Args:  cobra.ExactArgs(0),
		RunE:  serve,
	}

	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.Postgres),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.Redis),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Ethereum),
		fx.Supply(&cfg.Explorer),
		fx.Supply(&cfg.Search),
		fx.Supply(&cfg.Activity),
		fx.Supply(&cfg.Local),
		fx.Supply(&cfg.Profile),

		// Infrastructure providers
		fx.Provide(
			database.NewPostgresClient,
			database.NewNeo4JClient,
			cache.NewRedisClient,
			local.NewLevelDBEdgeRepository,
			messaging.NewNATSClient,
			blockchain.NewEthereumClient,
			explorer.NewEtherscanClient,
			search.NewSubgraphClient,
			provideEdgeRepository,
			provideActivityCache,
		),

		// Domain bindings
		fx.Provide(
			func(c *explorer.EtherscanClient) domain_service.TransactionSource { return c },
			func(c *blockchain.EthereumClient) domain_service.NameResolver { return c },
			func(c *search.SubgraphClient) domain_service.NameSearcher { return c },
			func(c *messaging.NATSClient) domain_service.EdgeEventPublisher { return c },
			func(r *local.LevelDBEdgeRepository) repository.LocalEdgeRepository { return r },
		),

		// Application providers
		fx.Provide(
			app_service.NewActivityApplicationService,
			app_service.NewEdgeStore,
			app_service.NewProfileApplicationService,
			app_service.NewSearchApplicationService,
			newController,
		),

		// Lifecycle hooks
		fx.Invoke(connectBackends),
		fx.Invoke(loadEdges),
		fx.Invoke(subscribeInvalidations),
		fx.Invoke(startHTTPServer),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		return err
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	// Stop the application
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		return err
	}

	log.Info("Application stopped successfully")
	return nil
}

// provideEdgeRepository selects the durable edge backend. A nil repository puts
// the edge store in local mode from the start.
func provideEdgeRepository(
	cfg *config.Config,
	pg *database.PostgresClient,
	neo *database.Neo4JClient,
	log *logger.Logger,
) repository.EdgeRepository {
	switch cfg.Edges.Backend {
	case config.BackendPostgres:
		return database.NewPostgresEdgeRepository(pg, log)
	case config.BackendNeo4J:
		return database.NewNeo4JEdgeRepository(neo, log)
	default:
		return nil
	}
}

// provideActivityCache selects the activity cache backend; nil disables caching
func provideActivityCache(
	cfg *config.Config,
	pg *database.PostgresClient,
	rdb *cache.RedisClient,
	log *logger.Logger,
) repository.ActivityCacheRepository {
	switch cfg.Activity.CacheBackend {
	case config.BackendPostgres:
		return database.NewPostgresActivityRepository(pg, log)
	case config.BackendRedis:
		return cache.NewRedisActivityRepository(rdb)
	default:
		return nil
	}
}

func newController(
	cfg *config.Config,
	edges *app_service.EdgeStore,
	activity *app_service.ActivityApplicationService,
	profiles *app_service.ProfileApplicationService,
	names *app_service.SearchApplicationService,
	log *logger.Logger,
) *rest.Controller {
	c := rest.NewController(edges, activity, profiles, names, log)
	c.Metrics = cfg.Metrics.Enabled
	return c
}

// connectBackends connects every configured backend. Connection failures are
// logged and leave the dependent component degraded rather than stopping startup.
func connectBackends(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	pg *database.PostgresClient,
	neo *database.Neo4JClient,
	rdb *cache.RedisClient,
	leveldb *local.LevelDBEdgeRepository,
	nc *messaging.NATSClient,
	eth *blockchain.EthereumClient,
	log *logger.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Metrics.Enabled {
				metrics.Init()
			}

			if cfg.UsesPostgres() {
				if err := pg.Connect(ctx); err != nil {
					log.Warn("PostgreSQL unavailable", zap.Error(err))
				}
			}
			if cfg.Edges.Backend == config.BackendNeo4J {
				if err := neo.Connect(ctx); err != nil {
					log.Warn("Neo4J unavailable", zap.Error(err))
				}
			}
			if cfg.Activity.CacheBackend == config.BackendRedis {
				if err := rdb.Connect(ctx); err != nil {
					log.Warn("Redis unavailable", zap.Error(err))
				}
			}
			if err := nc.Connect(ctx); err != nil {
				log.Warn("NATS unavailable, edge events will not be published", zap.Error(err))
			}
			if err := eth.Connect(ctx); err != nil {
				log.Warn("Ethereum RPC unavailable, name resolution will fail", zap.Error(err))
			}

			log.Info("Backends initialized",
				zap.String("edges_backend", cfg.Edges.Backend),
				zap.String("activity_cache", cfg.Activity.CacheBackend),
				zap.Bool("nats_enabled", cfg.NATS.Enabled))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := nc.Disconnect(); err != nil {
				log.Error("Failed to disconnect from NATS", zap.Error(err))
			}
			eth.Close()
			if err := rdb.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
			if err := neo.Close(ctx); err != nil {
				log.Error("Failed to close Neo4J connection", zap.Error(err))
			}
			if err := leveldb.Close(); err != nil {
				log.Error("Failed to close local edge storage", zap.Error(err))
			}
			pg.Close()
			return nil
		},
	})
}

// loadEdges settles the edge store mode before the API starts serving
func loadEdges(lifecycle fx.Lifecycle, edges *app_service.EdgeStore, log *logger.Logger) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loaded := edges.ListEdges(ctx)
			log.Info("Edge store ready",
				zap.String("mode", edges.Mode().String()),
				zap.Int("edges", len(loaded)))
			return nil
		},
	})
}

// subscribeInvalidations drops cached histograms when another instance or the CLI asks for it
func subscribeInvalidations(
	lifecycle fx.Lifecycle,
	nc *messaging.NATSClient,
	activity *app_service.ActivityApplicationService,
	log *logger.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := nc.SubscribeInvalidations(context.Background(), activity.Invalidate); err != nil {
				log.Warn("Cache invalidation subscription failed", zap.Error(err))
			}
			return nil
		},
	})
}

// startHTTPServer serves the REST API
func startHTTPServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	controller *rest.Controller,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           controller.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting HTTP server...", zap.Int("port", cfg.App.HTTPPort))

			// Start server in background
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
