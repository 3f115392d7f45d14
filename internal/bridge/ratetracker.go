package bridge

import (
	"sync"
	"time"
)

const (
	defaultRampupInterval = 20 * time.Second
	bucketWidth           = 100 * time.Millisecond
)

// RateTracker estimates participants recently allocated to a bridge but not
// yet reflected in its self-reported stats. It accumulates Add() calls into
// fixed-width buckets over a sliding window and decays old buckets away, the
// same bucketed-sliding-window shape pkg/ratelimit/memory.go uses for request
// rate limiting.
type RateTracker struct {
	mu      sync.Mutex
	window  time.Duration
	buckets []rateBucket
}

type rateBucket struct {
	start time.Time
	count int
}

// NewRateTracker creates a tracker with the given sliding window. A zero or
// negative window falls back to the 20s default from the configuration
// surface (participantRampupInterval).
func NewRateTracker(window time.Duration) *RateTracker {
	if window <= 0 {
		window = defaultRampupInterval
	}
	return &RateTracker{window: window}
}

// Add records one new endpoint at now.
func (t *RateTracker) Add(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.decayLocked(now)

	bucketStart := now.Truncate(bucketWidth)
	if n := len(t.buckets); n > 0 && t.buckets[n-1].start.Equal(bucketStart) {
		t.buckets[n-1].count++
		return
	}
	t.buckets = append(t.buckets, rateBucket{start: bucketStart, count: 1})
}

// Count returns the number of endpoints still within the sliding window as of
// now.
func (t *RateTracker) Count(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.decayLocked(now)

	total := 0
	for _, b := range t.buckets {
		total += b.count
	}
	return total
}

func (t *RateTracker) decayLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.buckets) && t.buckets[i].start.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.buckets = t.buckets[i:]
	}
}
