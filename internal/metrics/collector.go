// Package metrics provides Prometheus metrics for letsgo.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	letsgoInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "letsgo_info",
			Help: "Information about the console session (value always 1)",
		},
		[]string{"version", "session_id", "shell"},
	)

	letsgoSessionUptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "letsgo_session_uptime_seconds",
			Help: "Seconds since the session started",
		},
	)

	letsgoCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letsgo_commands_total",
			Help: "Foreground commands by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "timed_out", "cancelled", "spawn_failed"
	)

	letsgoCommandDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "letsgo_command_duration_seconds",
			Help: "Foreground command duration distribution",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05, 0.1,
				0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0,
			},
		},
	)

	letsgoJobStartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "letsgo_job_starts_total",
			Help: "Total background job starts",
		},
	)

	letsgoJobExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letsgo_job_exits_total",
			Help: "Background job exits by category",
		},
		[]string{"category"}, // "success", "error", "signal"
	)

	letsgoJobKillsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "letsgo_job_kills_total",
			Help: "Total kill requests against background jobs",
		},
	)

	letsgoActiveJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "letsgo_active_jobs",
			Help: "Currently tracked background jobs",
		},
	)

	letsgoJobLinesPolledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "letsgo_job_lines_polled_total",
			Help: "Background job output lines delivered by poll",
		},
	)

	letsgoOracleTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letsgo_oracle_turns_total",
			Help: "Oracle round trips by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	letsgoTranscriptDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "letsgo_transcript_drops_total",
			Help: "Session transcript events dropped under backpressure",
		},
	)
)

// Collector manages all Prometheus metrics for a console session.
type Collector struct {
	startTime time.Time

	mu        sync.Mutex
	prevDrops int64
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version   string
	SessionID string
	Shell     string
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{startTime: time.Now()}

	registry.MustRegister(
		letsgoInfo,
		letsgoSessionUptimeSeconds,
		letsgoCommandsTotal,
		letsgoCommandDurationSeconds,
		letsgoJobStartsTotal,
		letsgoJobExitsTotal,
		letsgoJobKillsTotal,
		letsgoActiveJobs,
		letsgoJobLinesPolledTotal,
		letsgoOracleTurnsTotal,
		letsgoTranscriptDropsTotal,
	)

	letsgoInfo.WithLabelValues(cfg.Version, cfg.SessionID, cfg.Shell).Set(1)
	return c
}

// RecordCommand records one foreground command execution.
func (c *Collector) RecordCommand(outcome string, d time.Duration) {
	letsgoCommandsTotal.WithLabelValues(outcome).Inc()
	letsgoCommandDurationSeconds.Observe(d.Seconds())
	letsgoSessionUptimeSeconds.Set(time.Since(c.startTime).Seconds())
}

// JobStarted records a background job start.
func (c *Collector) JobStarted() {
	letsgoJobStartsTotal.Inc()
}

// JobExited records a background job exit.
func (c *Collector) JobExited(exitCode int) {
	category := "error"
	switch {
	case exitCode == 0:
		category = "success"
	case exitCode < 0 || exitCode > 128:
		category = "signal"
	}
	letsgoJobExitsTotal.WithLabelValues(category).Inc()
}

// JobKilled records a kill request.
func (c *Collector) JobKilled() {
	letsgoJobKillsTotal.Inc()
}

// SetActiveJobs updates the tracked-jobs gauge.
func (c *Collector) SetActiveJobs(n int) {
	letsgoActiveJobs.Set(float64(n))
}

// JobLinesPolled records lines delivered by one poll.
func (c *Collector) JobLinesPolled(n int) {
	if n > 0 {
		letsgoJobLinesPolledTotal.Add(float64(n))
	}
}

// OracleTurn records one oracle round trip.
func (c *Collector) OracleTurn(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	letsgoOracleTurnsTotal.WithLabelValues(result).Inc()
}

// SetTranscriptDrops updates the drop counter from the session log's
// cumulative total.
func (c *Collector) SetTranscriptDrops(total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if delta := total - c.prevDrops; delta > 0 {
		letsgoTranscriptDropsTotal.Add(float64(delta))
		c.prevDrops = total
	}
}
