package service

import (
	"testing"
	"time"

	"ens-identity-graph/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailyHistogram_WindowShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

	series, maxCount := BuildDailyHistogram(nil, now, entity.ActivityWindowDays)

	require.Len(t, series, entity.ActivityWindowDays)
	assert.Equal(t, "2026-03-01", series[len(series)-1].Date)
	assert.Equal(t, "2025-09-03", series[0].Date)
	assert.Equal(t, 1, maxCount)
	assert.True(t, IsWellFormedHistogram(series, entity.ActivityWindowDays))
	for _, day := range series {
		assert.Zero(t, day.Count)
	}
}

func TestBuildDailyHistogram_BucketsByUTCDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	est := time.FixedZone("EST", -5*60*60)

	txs := []entity.ExplorerTx{
		{Hash: "a", Timestamp: time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC)},
		{Hash: "b", Timestamp: time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC)},
		// 2026-02-28 22:00 EST is 2026-03-01 03:00 UTC
		{Hash: "c", Timestamp: time.Date(2026, 2, 28, 22, 0, 0, 0, est)},
		{Hash: "d", Timestamp: time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)},
		// outside the window
		{Hash: "e", Timestamp: time.Date(2025, 9, 2, 23, 59, 59, 0, time.UTC)},
		{Hash: "f", Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{Hash: "g"},
	}

	series, maxCount := BuildDailyHistogram(txs, now, entity.ActivityWindowDays)

	require.Len(t, series, entity.ActivityWindowDays)
	last := series[len(series)-1]
	assert.Equal(t, "2026-03-01", last.Date)
	assert.Equal(t, 3, last.Count)
	assert.Equal(t, 0, series[len(series)-2].Count)
	assert.Equal(t, 1, series[len(series)-3].Count)
	assert.Equal(t, 3, maxCount)

	total := 0
	for _, day := range series {
		total += day.Count
	}
	assert.Equal(t, 4, total)
}

func TestBuildDailyHistogram_FirstDayOfWindowCounts(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []entity.ExplorerTx{
		{Timestamp: time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)},
	}

	series, _ := BuildDailyHistogram(txs, now, entity.ActivityWindowDays)

	assert.Equal(t, 1, series[0].Count)
}

func TestEmptyHistogram_DefaultsWindow(t *testing.T) {
	series := EmptyHistogram(time.Now(), 0)
	assert.Len(t, series, entity.ActivityWindowDays)
}

func TestIsWellFormedHistogram(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	series := EmptyHistogram(now, 3)

	assert.True(t, IsWellFormedHistogram(series, 3))
	assert.False(t, IsWellFormedHistogram(series, 4))

	gap := []entity.DailyCount{{Date: "2026-01-08"}, {Date: "2026-01-10"}, {Date: "2026-01-11"}}
	assert.False(t, IsWellFormedHistogram(gap, 3))

	bad := []entity.DailyCount{{Date: "not-a-date"}, {Date: "2026-01-10"}, {Date: "2026-01-11"}}
	assert.False(t, IsWellFormedHistogram(bad, 3))
}
