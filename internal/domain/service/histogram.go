package service

import (
	"time"

	"ens-identity-graph/internal/domain/entity"
)

const dayLayout = "2006-01-02"

// BuildDailyHistogram buckets transactions by UTC calendar day into a zero-filled
// series of windowDays entries ending on the day of now. Transactions outside the
// window are ignored. The returned max count is never below 1.
func BuildDailyHistogram(txs []entity.ExplorerTx, now time.Time, windowDays int) ([]entity.DailyCount, int) {
	series := EmptyHistogram(now, windowDays)

	index := make(map[string]int, len(series))
	for i, day := range series {
		index[day.Date] = i
	}

	for _, tx := range txs {
		if tx.Timestamp.IsZero() {
			continue
		}
		i, ok := index[tx.Timestamp.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		series[i].Count++
	}

	maxCount := 1
	for _, day := range series {
		if day.Count > maxCount {
			maxCount = day.Count
		}
	}

	return series, maxCount
}

// EmptyHistogram returns an all-zero series of windowDays entries, oldest first,
// whose last entry is the UTC day of now
func EmptyHistogram(now time.Time, windowDays int) []entity.DailyCount {
	if windowDays <= 0 {
		windowDays = entity.ActivityWindowDays
	}

	today := truncateDay(now)
	start := today.AddDate(0, 0, -(windowDays - 1))

	series := make([]entity.DailyCount, windowDays)
	for i := range series {
		series[i] = entity.DailyCount{Date: start.AddDate(0, 0, i).Format(dayLayout)}
	}
	return series
}

// IsWellFormedHistogram reports whether a series is exactly windowDays consecutive days
func IsWellFormedHistogram(series []entity.DailyCount, windowDays int) bool {
	if len(series) != windowDays {
		return false
	}
	var prev time.Time
	for i, day := range series {
		d, err := time.Parse(dayLayout, day.Date)
		if err != nil || day.Count < 0 {
			return false
		}
		if i > 0 && !d.Equal(prev.AddDate(0, 0, 1)) {
			return false
		}
		prev = d
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
