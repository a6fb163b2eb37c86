package entity

import (
	"time"
)

// ActivityWindowDays is the canonical length of the activity histogram
const ActivityWindowDays = 180

// DailyCount is the number of transactions seen on one UTC calendar day
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ActivityRecord is the cached activity histogram for one address
type ActivityRecord struct {
	Address     string       `json:"address"`
	DailyCounts []DailyCount `json:"daily_counts"`
	MaxCount    int          `json:"max_count"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ActivityResult is an ActivityRecord plus the cache metadata returned to callers
type ActivityResult struct {
	ActivityRecord
	Cached          bool   `json:"cached"`
	CacheAgeMinutes int64  `json:"cache_age_minutes"`
	Stale           bool   `json:"stale,omitempty"`
	Demo            bool   `json:"demo,omitempty"`
	Error           string `json:"error,omitempty"`
}
