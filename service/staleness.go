package service

import "time"

// StalenessPolicy decides when a cached record is due for a background
// refresh. Two independent thresholds, both counted from lastUpdated: a coarse
// one for records served out of search results and a tighter one for direct
// single-record lookups. Staleness never blocks serving.
type StalenessPolicy struct {
	SearchRefreshAfter time.Duration
	RecordRefreshAfter time.Duration
}

// IsStale reports whether age since lastUpdated strictly exceeds the
// threshold. The boundary is exclusive: a record exactly at the threshold is
// still fresh.
func IsStale(lastUpdated time.Time, threshold time.Duration, now time.Time) bool {
	return now.Sub(lastUpdated) > threshold
}

// StaleForSearch applies the coarse search-context threshold.
func (p StalenessPolicy) StaleForSearch(lastUpdated time.Time, now time.Time) bool {
	return IsStale(lastUpdated, p.SearchRefreshAfter, now)
}

// StaleForRecord applies the tighter single-record threshold.
func (p StalenessPolicy) StaleForRecord(lastUpdated time.Time, now time.Time) bool {
	return IsStale(lastUpdated, p.RecordRefreshAfter, now)
}
