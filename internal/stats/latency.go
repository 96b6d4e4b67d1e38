// Package stats tracks per-session command execution statistics.
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Latency accumulates command durations into a streaming t-digest so
// percentiles stay cheap regardless of how many commands a session runs.
type Latency struct {
	mu     sync.Mutex // TDigest is not thread-safe
	digest *tdigest.TDigest
	count  int64
	sum    time.Duration
	max    time.Duration
}

// NewLatency creates an empty latency tracker.
func NewLatency() *Latency {
	return &Latency{
		digest: tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
	}
}

// Observe records one command duration.
func (l *Latency) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.digest.Add(float64(d.Nanoseconds()), 1)
	l.count++
	l.sum += d
	if d > l.max {
		l.max = d
	}
}

// Quantile returns the duration at quantile q (0.0–1.0).
func (l *Latency) Quantile(q float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return 0
	}
	return time.Duration(l.digest.Quantile(q))
}

// Count returns the number of observations.
func (l *Latency) Count() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// LatencySummary is a point-in-time snapshot of the tracker.
type LatencySummary struct {
	Count int64
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// Snapshot returns the current percentiles and aggregates.
func (l *Latency) Snapshot() LatencySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := LatencySummary{Count: l.count, Max: l.max}
	if l.count == 0 {
		return s
	}
	s.Mean = l.sum / time.Duration(l.count)
	s.P50 = time.Duration(l.digest.Quantile(0.50))
	s.P95 = time.Duration(l.digest.Quantile(0.95))
	s.P99 = time.Duration(l.digest.Quantile(0.99))
	return s
}
