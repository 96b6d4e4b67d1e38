package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Session aggregates everything the exit summary needs: command counts by
// outcome, job activity, and the latency digest.
type Session struct {
	Latency *Latency

	mu         sync.Mutex
	started    time.Time
	commands   int64
	failures   int64 // non-zero exits
	timeouts   int64
	cancels    int64
	jobStarts  int64
	jobKills   int64
	oracleTurn int64
}

// NewSession creates a session tracker starting now.
func NewSession() *Session {
	return &Session{
		Latency: NewLatency(),
		started: time.Now(),
	}
}

// CommandFinished records one foreground command execution.
func (s *Session) CommandFinished(d time.Duration, failed, timedOut, cancelled bool) {
	s.Latency.Observe(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands++
	if failed {
		s.failures++
	}
	if timedOut {
		s.timeouts++
	}
	if cancelled {
		s.cancels++
	}
}

// JobStarted records one background job start.
func (s *Session) JobStarted() {
	s.mu.Lock()
	s.jobStarts++
	s.mu.Unlock()
}

// JobKilled records one kill request.
func (s *Session) JobKilled() {
	s.mu.Lock()
	s.jobKills++
	s.mu.Unlock()
}

// OracleTurn records one completed oracle round trip.
func (s *Session) OracleTurn() {
	s.mu.Lock()
	s.oracleTurn++
	s.mu.Unlock()
}

// Summary is a snapshot for rendering.
type Summary struct {
	Uptime      time.Duration
	Commands    int64
	Failures    int64
	Timeouts    int64
	Cancels     int64
	JobStarts   int64
	JobKills    int64
	OracleTurns int64
	Latency     LatencySummary
}

// Snapshot returns the current session totals.
func (s *Session) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Summary{
		Uptime:      time.Since(s.started),
		Commands:    s.commands,
		Failures:    s.failures,
		Timeouts:    s.timeouts,
		Cancels:     s.cancels,
		JobStarts:   s.jobStarts,
		JobKills:    s.jobKills,
		OracleTurns: s.oracleTurn,
		Latency:     s.Latency.Snapshot(),
	}
}

// FormatExitSummary formats session totals for display at program exit.
func FormatExitSummary(sum Summary) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("───────────────────────────────────────────────\n")
	b.WriteString("                letsgo session\n")
	b.WriteString("───────────────────────────────────────────────\n")
	fmt.Fprintf(&b, "  Uptime:           %s\n", FormatDuration(sum.Uptime))
	fmt.Fprintf(&b, "  Commands:         %d (%d failed, %d timed out, %d cancelled)\n",
		sum.Commands, sum.Failures, sum.Timeouts, sum.Cancels)
	fmt.Fprintf(&b, "  Background jobs:  %d started, %d killed\n", sum.JobStarts, sum.JobKills)
	if sum.OracleTurns > 0 {
		fmt.Fprintf(&b, "  Oracle turns:     %d\n", sum.OracleTurns)
	}
	if sum.Latency.Count > 0 {
		fmt.Fprintf(&b, "  Command latency:  p50 %s  p95 %s  p99 %s  max %s\n",
			FormatDuration(sum.Latency.P50),
			FormatDuration(sum.Latency.P95),
			FormatDuration(sum.Latency.P99),
			FormatDuration(sum.Latency.Max),
		)
	}
	return b.String()
}

// FormatDuration renders a duration with millisecond precision for short
// values and second precision beyond a minute.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
