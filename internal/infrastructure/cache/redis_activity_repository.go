package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient wraps the Redis connection used for the activity cache
type RedisClient struct {
	client *redis.Client
	config *config.RedisConfig
	logger *logger.Logger
}

// NewRedisClient creates a new Redis client; Connect must be called before use
func NewRedisClient(cfg *config.RedisConfig, logger *logger.Logger) *RedisClient {
	return &RedisClient{
		config: cfg,
		logger: logger.WithComponent("redis-client"),
	}
}

// Connect creates the client and verifies the server answers
func (c *RedisClient) Connect(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:         c.config.Addr,
		Password:     c.config.Password,
		DB:           c.config.DB,
		PoolSize:     c.config.PoolSize,
		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", c.config.Addr, err)
	}

	c.client = rdb
	c.logger.Info("Connected to Redis", zap.String("addr", c.config.Addr), zap.Int("db", c.config.DB))
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// RedisActivityRepository implements ActivityCacheRepository with one JSON value per address.
// Keys never expire: stale entries are still served when the explorer is down.
type RedisActivityRepository struct {
	redis  *RedisClient
	prefix string
}

// NewRedisActivityRepository creates a new Redis activity cache repository
func NewRedisActivityRepository(client *RedisClient) *RedisActivityRepository {
	return &RedisActivityRepository{
		redis:  client,
		prefix: client.config.KeyPrefix,
	}
}

func (r *RedisActivityRepository) key(address string) string {
	return r.prefix + address
}

// Get retrieves the cached record for an address
func (r *RedisActivityRepository) Get(ctx context.Context, address string) (*entity.ActivityRecord, error) {
	if r.redis.client == nil {
		return nil, repository.ErrNotConnected
	}

	raw, err := r.redis.client.Get(ctx, r.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	return DecodeActivityRecord(raw)
}

// Upsert fully replaces the record keyed by its address
func (r *RedisActivityRepository) Upsert(ctx context.Context, record *entity.ActivityRecord) error {
	if r.redis.client == nil {
		return repository.ErrNotConnected
	}

	raw, err := EncodeActivityRecord(record)
	if err != nil {
		return err
	}

	if err := r.redis.client.Set(ctx, r.key(record.Address), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to set activity: %w", err)
	}
	return nil
}

// Delete removes the cached record, if any
func (r *RedisActivityRepository) Delete(ctx context.Context, address string) error {
	if r.redis.client == nil {
		return repository.ErrNotConnected
	}

	if err := r.redis.client.Del(ctx, r.key(address)).Err(); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

// EncodeActivityRecord serializes a record for blob storage
func EncodeActivityRecord(record *entity.ActivityRecord) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity: %w", err)
	}
	return raw, nil
}

// DecodeActivityRecord parses a record written by EncodeActivityRecord
func DecodeActivityRecord(raw []byte) (*entity.ActivityRecord, error) {
	var record entity.ActivityRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}
	if record.Address == "" {
		return nil, fmt.Errorf("failed to decode activity: missing address")
	}
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}
