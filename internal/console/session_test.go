package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ariannacore/letsgo/internal/config"
	"github.com/ariannacore/letsgo/internal/jobs"
	"github.com/ariannacore/letsgo/internal/runner"
	"github.com/ariannacore/letsgo/internal/stats"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSession builds a plain-mode session writing to the returned buffer.
func testSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Plain = true
	cfg.LogDir = t.TempDir()
	cfg.Timeout = 5 * time.Second
	cfg.OracleCommand = `echo ">>"; while read line; do echo "oracle says: $line"; echo ">>"; done`

	logger := newTestLogger()
	out := &bytes.Buffer{}
	table := jobs.NewTable(cfg.Shell, logger, jobs.Callbacks{})
	t.Cleanup(func() { table.Shutdown(context.Background()) })

	session := NewSession(Options{
		Config:   cfg,
		Logger:   logger,
		Executor: runner.NewExecutor(runner.New(cfg.Shell, logger), logger),
		Table:    table,
		Tracker:  stats.NewSession(),
		Out:      out,
	})
	t.Cleanup(session.CloseOracle)
	return session, out
}

// =============================================================================
// Built-ins
// =============================================================================

func TestDispatch_EchoFallback(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "what is this")
	if got != "echo: what is this" {
		t.Errorf("Dispatch = %q, want echo fallback", got)
	}
}

func TestDispatch_EmptyInput(t *testing.T) {
	s, _ := testSession(t)

	if got := s.Dispatch(context.Background(), "   "); got != "" {
		t.Errorf("Dispatch(blank) = %q, want empty", got)
	}
}

func TestDispatch_Help(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/help")
	if !strings.Contains(got, "/run") || !strings.Contains(got, "/oracle") {
		t.Errorf("help = %q, want command list", got)
	}
}

func TestDispatch_Time(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/time")
	if _, err := time.Parse(time.RFC3339, got); err != nil {
		t.Errorf("/time = %q, not RFC3339: %v", got, err)
	}
}

func TestDispatch_Status(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/status")
	if !strings.Contains(got, "CPU cores:") {
		t.Errorf("/status = %q, want host metrics", got)
	}
}

func TestDispatch_MetricsDisabled(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/metrics")
	if !strings.Contains(got, "metrics disabled") {
		t.Errorf("/metrics = %q, want disabled notice", got)
	}
}

func TestDispatch_WatchUnavailable(t *testing.T) {
	s, _ := testSession(t)

	if got := s.Dispatch(context.Background(), "/watch"); got != "watch unavailable" {
		t.Errorf("/watch = %q, want unavailable notice", got)
	}
}

// =============================================================================
// /run
// =============================================================================

func TestDispatch_Run(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/run echo hello")
	if got != "hello" {
		t.Errorf("/run = %q, want %q", got, "hello")
	}
}

func TestDispatch_RunNonZeroExit(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/run exit 4")
	if !strings.Contains(got, "exit 4") {
		t.Errorf("/run exit 4 = %q, want exit trailer", got)
	}
}

func TestDispatch_RunUsage(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/run")
	if !strings.Contains(got, "Usage:") {
		t.Errorf("/run without command = %q, want usage", got)
	}
}

func TestDispatch_RunStream(t *testing.T) {
	s, out := testSession(t)

	reply := s.Dispatch(context.Background(), "/run -stream echo one; echo two")
	if reply != "" {
		t.Errorf("stream reply = %q, want empty trailer on success", reply)
	}
	got := out.String()
	if !strings.Contains(got, "one") || !strings.Contains(got, "two") {
		t.Errorf("streamed output = %q, want both lines", got)
	}
}

func TestDispatch_RunTimeout(t *testing.T) {
	s, _ := testSession(t)
	s.cfg.Timeout = 200 * time.Millisecond

	got := s.Dispatch(context.Background(), "/run sleep 10")
	if !strings.Contains(got, "timed out") {
		t.Errorf("/run sleep = %q, want timeout trailer", got)
	}
}

// =============================================================================
// Background Jobs
// =============================================================================

func TestDispatch_BackgroundJobLifecycle(t *testing.T) {
	s, _ := testSession(t)
	ctx := context.Background()

	reply := s.Dispatch(ctx, "/run -bg echo background line")
	var id int
	if _, err := fmt.Sscanf(reply, "started job %d", &id); err != nil {
		t.Fatalf("start reply = %q: %v", reply, err)
	}

	listed := s.Dispatch(ctx, "/jobs")
	if !strings.Contains(listed, fmt.Sprint(id)) {
		t.Errorf("/jobs = %q, want job %d listed", listed, id)
	}

	// Poll until the output shows up and the job is reclaimed.
	deadline := time.Now().Add(5 * time.Second)
	var sawLine bool
	for time.Now().Before(deadline) {
		polled := s.Dispatch(ctx, "/poll")
		if strings.Contains(polled, "background line") {
			sawLine = true
		}
		if sawLine && s.Dispatch(ctx, "/jobs") == "no jobs" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %d output never delivered and reclaimed (sawLine=%v)", id, sawLine)
}

func TestDispatch_PollEmpty(t *testing.T) {
	s, _ := testSession(t)

	if got := s.Dispatch(context.Background(), "/poll"); got != "(no output)" {
		t.Errorf("/poll = %q, want placeholder", got)
	}
}

func TestDispatch_KillErrors(t *testing.T) {
	s, _ := testSession(t)
	ctx := context.Background()

	if got := s.Dispatch(ctx, "/kill"); !strings.Contains(got, "Usage:") {
		t.Errorf("/kill = %q, want usage", got)
	}
	if got := s.Dispatch(ctx, "/kill abc"); !strings.Contains(got, "invalid job id") {
		t.Errorf("/kill abc = %q, want invalid id", got)
	}
	if got := s.Dispatch(ctx, "/kill 999999"); got != "no such job: 999999" {
		t.Errorf("/kill 999999 = %q, want no such job", got)
	}
}

func TestDispatch_KillRunningJob(t *testing.T) {
	s, _ := testSession(t)
	ctx := context.Background()

	reply := s.Dispatch(ctx, "/run -bg sleep 30")
	var id int
	if _, err := fmt.Sscanf(reply, "started job %d", &id); err != nil {
		t.Fatalf("start reply = %q: %v", reply, err)
	}

	got := s.Dispatch(ctx, fmt.Sprintf("/kill %d", id))
	if got != fmt.Sprintf("kill requested for job %d", id) {
		t.Errorf("/kill = %q", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.Dispatch(ctx, "/poll")
		if s.Dispatch(ctx, "/jobs") == "no jobs" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("killed job was never reclaimed")
}

// =============================================================================
// Oracle
// =============================================================================

func TestDispatch_OracleRoundTrip(t *testing.T) {
	s, _ := testSession(t)

	got := s.Dispatch(context.Background(), "/oracle hello there")
	if got != "oracle says: hello there" {
		t.Errorf("/oracle = %q, want round-tripped reply", got)
	}

	// Second turn reuses the running subprocess.
	got = s.Dispatch(context.Background(), "/oracle again")
	if got != "oracle says: again" {
		t.Errorf("second /oracle = %q", got)
	}
}

func TestDispatch_OracleUsage(t *testing.T) {
	s, _ := testSession(t)

	if got := s.Dispatch(context.Background(), "/oracle"); !strings.Contains(got, "Usage:") {
		t.Errorf("/oracle = %q, want usage", got)
	}
}

func TestDispatch_OracleRestartsAfterDeath(t *testing.T) {
	s, _ := testSession(t)
	s.cfg.OracleCommand = `echo ">>"; read line; exit 0`

	got := s.Dispatch(context.Background(), "/oracle die")
	if !strings.Contains(got, "oracle") {
		t.Errorf("/oracle on dying process = %q, want error", got)
	}

	// The next turn starts a fresh subprocess instead of failing forever.
	s.cfg.OracleCommand = `echo ">>"; while read line; do echo "back"; echo ">>"; done`
	got = s.Dispatch(context.Background(), "/oracle anyone")
	if got != "back" {
		t.Errorf("/oracle after restart = %q, want %q", got, "back")
	}
}

// =============================================================================
// Argument Parsing
// =============================================================================

func TestParseSummarizeArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantTerm  string
		wantLimit int
	}{
		{"empty", nil, "", defaultSummarizeLimit},
		{"term only", []string{"error"}, "error", defaultSummarizeLimit},
		{"term and limit", []string{"error", "10"}, "error", 10},
		{"limit only", []string{"3"}, "", 3},
		{"multi-word term", []string{"disk", "full", "7"}, "disk full", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, limit := parseSummarizeArgs(tt.args)
			if term != tt.wantTerm || limit != tt.wantLimit {
				t.Errorf("parseSummarizeArgs(%v) = (%q, %d), want (%q, %d)",
					tt.args, term, limit, tt.wantTerm, tt.wantLimit)
			}
		})
	}
}
