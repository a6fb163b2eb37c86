package cache

import (
	"context"
	"testing"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRecordCodec(t *testing.T) {
	record := &entity.ActivityRecord{
		Address:     "0xabc",
		DailyCounts: []entity.DailyCount{{Date: "2026-01-01", Count: 2}, {Date: "2026-01-02", Count: 0}},
		MaxCount:    2,
		UpdatedAt:   time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}

	raw, err := EncodeActivityRecord(record)
	require.NoError(t, err)

	decoded, err := DecodeActivityRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestDecodeActivityRecord_Invalid(t *testing.T) {
	_, err := DecodeActivityRecord([]byte("{"))
	assert.Error(t, err)

	_, err = DecodeActivityRecord([]byte(`{"max_count":1}`))
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory[[]string](time.Minute)

	_, ok := m.Get("vit")
	assert.False(t, ok)

	m.Set("vit", []string{"vitalik.eth"})
	got, ok := m.Get("vit")
	require.True(t, ok)
	assert.Equal(t, []string{"vitalik.eth"}, got)

	m.Delete("vit")
	_, ok = m.Get("vit")
	assert.False(t, ok)

	m.Set("a", nil)
	m.Flush()
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestMemory_Disabled(t *testing.T) {
	m := NewMemory[string](0)
	m.Set("k", "v")
	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestRedisActivityRepository_NotConnected(t *testing.T) {
	ctx := context.Background()
	client := NewRedisClient(&config.RedisConfig{KeyPrefix: "ensgraph:activity:"}, logger.NewNop())
	repo := NewRedisActivityRepository(client)

	assert.Equal(t, "ensgraph:activity:0xabc", repo.key("0xabc"))

	_, err := repo.Get(ctx, "0xabc")
	assert.ErrorIs(t, err, repository.ErrNotConnected)
	assert.ErrorIs(t, repo.Upsert(ctx, &entity.ActivityRecord{Address: "0xabc"}), repository.ErrNotConnected)
	assert.ErrorIs(t, repo.Delete(ctx, "0xabc"), repository.ErrNotConnected)
	assert.NoError(t, client.Close())
}
