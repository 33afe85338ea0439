// Package common provides shared utilities for StockPit
package common

import "time"

// Staleness thresholds for served data
const (
	// FreshnessReport: a cached portfolio report older than this is flagged
	// stale when served, so consumers know a cycle has not completed recently.
	FreshnessReport = 15 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
