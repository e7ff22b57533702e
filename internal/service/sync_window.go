package service

import (
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

const (
	// InitialSyncDays is the window of a provider's first sync
	InitialSyncDays = 60

	// IncrementalSyncDays is the window once a sync has succeeded before
	IncrementalSyncDays = 7
)

// ResolveSyncDays picks how many days to sync. An explicit request is clamped to [1, max].
func ResolveSyncDays(requested *int, lastSyncAt *time.Time, max int) int {
	if requested != nil {
		days := *requested
		if days < 1 {
			days = 1
		}
		if days > max {
			days = max
		}
		return days
	}
	if lastSyncAt == nil {
		return InitialSyncDays
	}
	return IncrementalSyncDays
}

// BuildDateRange returns days calendar dates ending with today, oldest first
func BuildDateRange(today time.Time, days int) []time.Time {
	today = domain.DateOnly(today)
	dates := make([]time.Time, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, today.AddDate(0, 0, -i))
	}
	return dates
}
