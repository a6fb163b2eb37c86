package cli

import (
	"context"
	"fmt"
	"time"

	app_service "ens-identity-graph/internal/application/service"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/database"
	"ens-identity-graph/internal/infrastructure/local"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/spf13/cobra"
)

const syncTimeout = 10 * time.Minute

// EdgesCmd groups edge storage maintenance commands
func EdgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edges",
		Short: "Edge storage maintenance",
	}
	cmd.AddCommand(syncLocalCmd())
	return cmd
}

// syncLocalCmd copies edges saved locally while the durable backend was down.
// Run it with the service stopped, since LevelDB allows a single process:
// ./ensgraph edges sync-local --prune --config config.yaml
func syncLocalCmd() *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "sync-local",
		Short: "Copy locally stored edges into the durable backend",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return syncLocal(cmd.Context(), prune)
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "remove copied edges from local storage")

	return cmd
}

func syncLocal(ctx context.Context, prune bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	backend, closeBackend, err := connectEdgeBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	store := local.NewLevelDBEdgeRepository(&cfg.Local, log)
	defer store.Close()

	result, err := app_service.SyncLocalEdges(ctx, store, backend, prune, log)
	if err != nil {
		return err
	}

	fmt.Printf("created=%d skipped=%d pruned=%d\n", result.Created, result.Skipped, result.Pruned)
	return nil
}

func connectEdgeBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.EdgeRepository, func(), error) {
	switch cfg.Edges.Backend {
	case config.BackendPostgres:
		pg := database.NewPostgresClient(&cfg.Postgres, log)
		if err := pg.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return database.NewPostgresEdgeRepository(pg, log), pg.Close, nil
	case config.BackendNeo4J:
		neo := database.NewNeo4JClient(&cfg.Neo4J, log)
		if err := neo.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return database.NewNeo4JEdgeRepository(neo, log), func() { neo.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("edges.backend is %q, nothing to sync into", cfg.Edges.Backend)
	}
}
