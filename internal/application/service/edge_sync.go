package service

import (
	"context"
	"fmt"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// SyncResult counts what SyncLocalEdges did
type SyncResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Pruned  int `json:"pruned"`
}

// SyncLocalEdges copies edges recorded in local storage during a fallback session
// into the durable backend. Pairs already present in the backend are skipped and
// demo edges are never copied. With prune set, copied and skipped edges are removed
// from local storage.
func SyncLocalEdges(
	ctx context.Context,
	local repository.LocalEdgeRepository,
	backend repository.EdgeRepository,
	prune bool,
	logger *logger.Logger,
) (SyncResult, error) {
	var result SyncResult
	log := logger.WithComponent("edge-sync")

	localEdges, initialized, err := local.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load local edges: %w", err)
	}
	if !initialized {
		log.Info("Local edge storage was never used, nothing to sync")
		return result, nil
	}

	existing, err := backend.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list backend edges: %w", err)
	}

	seen := make(map[[2]string]bool, len(existing))
	for _, e := range existing {
		seen[edgePair(e)] = true
	}
	demo := make(map[string]bool)
	for _, e := range DemoEdges() {
		demo[e.ID] = true
	}

	for _, edge := range localEdges {
		if demo[edge.ID] {
			continue
		}

		if seen[edgePair(edge)] {
			result.Skipped++
		} else {
			created, err := backend.Create(ctx, edge.Source, edge.Target)
			if err != nil {
				return result, fmt.Errorf("failed to create edge %s -> %s: %w", edge.Source, edge.Target, err)
			}
			seen[edgePair(created)] = true
			result.Created++
			log.Debug("Copied local edge",
				zap.String("local_id", edge.ID),
				zap.String("id", created.ID))
		}

		if prune {
			if err := local.Remove(ctx, edge.ID); err != nil {
				return result, fmt.Errorf("failed to prune local edge %s: %w", edge.ID, err)
			}
			result.Pruned++
		}
	}

	log.Info("Local edge sync complete",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("pruned", result.Pruned))
	return result, nil
}

func edgePair(e entity.Edge) [2]string {
	return [2]string{e.Source, e.Target}
}
