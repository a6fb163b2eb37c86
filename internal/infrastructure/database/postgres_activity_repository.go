package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PostgresActivityRepository implements ActivityCacheRepository on the activity_cache table
type PostgresActivityRepository struct {
	client *PostgresClient
	logger *logger.Logger
}

// NewPostgresActivityRepository creates a new PostgreSQL activity cache repository
func NewPostgresActivityRepository(client *PostgresClient, logger *logger.Logger) *PostgresActivityRepository {
	return &PostgresActivityRepository{
		client: client,
		logger: logger.WithComponent("postgres-activity-repo"),
	}
}

// Get retrieves the cached record for an address
func (r *PostgresActivityRepository) Get(ctx context.Context, address string) (*entity.ActivityRecord, error) {
	exec, err := r.client.Executor()
	if err != nil {
		return nil, err
	}

	var (
		raw       []byte
		maxCount  int
		updatedAt time.Time
	)
	err = exec.QueryRow(ctx,
		`SELECT daily_counts, max_count, updated_at FROM activity_cache WHERE address = $1`,
		address,
	).Scan(&raw, &maxCount, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrActivityNotFound
	}
	if err != nil {
		r.logger.Error("Failed to query activity", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	var days []entity.DailyCount
	if err := json.Unmarshal(raw, &days); err != nil {
		r.logger.Warn("Malformed cached activity", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to decode daily counts: %w", err)
	}

	return &entity.ActivityRecord{
		Address:     address,
		DailyCounts: days,
		MaxCount:    maxCount,
		UpdatedAt:   updatedAt.UTC(),
	}, nil
}

// Upsert inserts or fully replaces the record keyed by address
func (r *PostgresActivityRepository) Upsert(ctx context.Context, record *entity.ActivityRecord) error {
	exec, err := r.client.Executor()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(record.DailyCounts)
	if err != nil {
		return fmt.Errorf("failed to encode daily counts: %w", err)
	}

	_, err = exec.Exec(ctx, `
		INSERT INTO activity_cache (address, daily_counts, max_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			daily_counts = EXCLUDED.daily_counts,
			max_count = EXCLUDED.max_count,
			updated_at = EXCLUDED.updated_at
	`, record.Address, raw, record.MaxCount, record.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert activity", zap.String("address", record.Address), zap.Error(err))
		return fmt.Errorf("failed to upsert activity: %w", err)
	}

	return nil
}

// Delete removes the cached record, if any
func (r *PostgresActivityRepository) Delete(ctx context.Context, address string) error {
	exec, err := r.client.Executor()
	if err != nil {
		return err
	}

	if _, err := exec.Exec(ctx, `DELETE FROM activity_cache WHERE address = $1`, address); err != nil {
		r.logger.Error("Failed to delete activity", zap.String("address", address), zap.Error(err))
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}
