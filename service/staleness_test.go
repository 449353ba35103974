package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStaleBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	threshold := 24 * time.Hour

	testCases := []struct {
		name        string
		lastUpdated time.Time
		stale       bool
	}{
		{name: "well within threshold", lastUpdated: now.Add(-time.Hour), stale: false},
		{name: "exactly at threshold is fresh", lastUpdated: now.Add(-threshold), stale: false},
		{name: "one millisecond past is stale", lastUpdated: now.Add(-threshold - time.Millisecond), stale: true},
		{name: "long past", lastUpdated: now.Add(-30 * 24 * time.Hour), stale: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.stale, IsStale(tc.lastUpdated, threshold, now))
		})
	}
}

func TestStalenessPolicyThresholdsAreIndependent(t *testing.T) {
	now := time.Now().UTC()
	policy := StalenessPolicy{
		SearchRefreshAfter: 7 * 24 * time.Hour,
		RecordRefreshAfter: 24 * time.Hour,
	}

	twoDaysOld := now.Add(-48 * time.Hour)
	assert.False(t, policy.StaleForSearch(twoDaysOld, now))
	assert.True(t, policy.StaleForRecord(twoDaysOld, now))

	eightDaysOld := now.Add(-8 * 24 * time.Hour)
	assert.True(t, policy.StaleForSearch(eightDaysOld, now))
	assert.True(t, policy.StaleForRecord(eightDaysOld, now))
}
