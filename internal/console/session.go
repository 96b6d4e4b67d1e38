package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ariannacore/letsgo/internal/config"
	"github.com/ariannacore/letsgo/internal/jobs"
	"github.com/ariannacore/letsgo/internal/metrics"
	"github.com/ariannacore/letsgo/internal/oracle"
	"github.com/ariannacore/letsgo/internal/runner"
	"github.com/ariannacore/letsgo/internal/stats"
)

// Options holds the collaborators a Session needs.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Executor *runner.Executor
	Table    *jobs.Table

	// Collector may be nil when metrics are disabled.
	Collector *metrics.Collector
	Tracker   *stats.Session

	// Out receives streamed lines and, from the loop, prompts and replies.
	Out io.Writer

	// Watch runs the live dashboard and returns when the user leaves it.
	// Nil disables /watch.
	Watch func() error
}

// Session dispatches console input: built-in commands, foreground and
// background shell execution, and oracle delegation. Unknown input is
// echoed back, matching the original console's behavior.
type Session struct {
	cfg       *config.Config
	logger    *slog.Logger
	executor  *runner.Executor
	table     *jobs.Table
	collector *metrics.Collector
	tracker   *stats.Session
	out       io.Writer
	watch     func() error
	theme     Theme

	pipe *oracle.Pipe // lazily started on first /oracle
}

// NewSession creates a session from its collaborators.
func NewSession(opts Options) *Session {
	return &Session{
		cfg:       opts.Config,
		logger:    opts.Logger,
		executor:  opts.Executor,
		table:     opts.Table,
		collector: opts.Collector,
		tracker:   opts.Tracker,
		out:       opts.Out,
		watch:     opts.Watch,
		theme:     NewTheme(opts.Config.Plain),
	}
}

// HelpText lists the built-in commands.
const HelpText = "Commands: /status, /time, /run [-stream|-bg] <cmd>, /jobs, /poll, /kill <id>, /summarize [term [limit]], /oracle <line>, /metrics, /watch, /help"

// Dispatch handles one line of input and returns the reply to print.
// Streamed output (for `/run -stream`) is written to Out as it arrives and
// is not repeated in the reply.
func (s *Session) Dispatch(ctx context.Context, input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	parts := strings.Fields(trimmed)
	name := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	switch name {
	case "status":
		return Status()
	case "time":
		return CurrentTime()
	case "help":
		return HelpText
	case "run":
		return s.runCommand(ctx, args)
	case "jobs":
		return s.listJobs()
	case "poll":
		return s.pollJobs()
	case "kill":
		return s.killJob(args)
	case "summarize":
		term, limit := parseSummarizeArgs(args)
		return Summarize(s.cfg.LogDir, term, limit)
	case "oracle":
		return s.oracleTurn(args)
	case "metrics":
		return s.metricsSummary(ctx)
	case "watch":
		return s.runWatch()
	default:
		return "echo: " + trimmed
	}
}

// runCommand handles `/run [-stream|-bg] <cmd>`.
func (s *Session) runCommand(ctx context.Context, args []string) string {
	stream, background := false, false
	for len(args) > 0 {
		switch args[0] {
		case "-stream":
			stream = true
		case "-bg":
			background = true
		default:
			goto parsed
		}
		args = args[1:]
	}
parsed:
	command := strings.Join(args, " ")
	if command == "" {
		return "Usage: /run [-stream|-bg] <command>"
	}

	if background {
		id, err := s.table.Start(command)
		if err != nil {
			return s.theme.Error("start failed: " + err.Error())
		}
		s.tracker.JobStarted()
		s.syncJobGauge()
		return fmt.Sprintf("started job %d", id)
	}

	var sink chan string
	var streamed chan struct{}
	if stream {
		sink = make(chan string, 16)
		streamed = make(chan struct{})
		go func() {
			defer close(streamed)
			for line := range sink {
				fmt.Fprintln(s.out, line)
			}
		}()
	}

	text, result, err := s.executor.Execute(ctx, command, s.cfg.Timeout, sink)
	if stream {
		<-streamed
	}
	if err != nil {
		if s.collector != nil {
			s.collector.RecordCommand("spawn_failed", 0)
		}
		return s.theme.Error("spawn failed: " + err.Error())
	}

	s.tracker.CommandFinished(result.Duration, result.Failed(), result.TimedOut(), result.Cancelled())
	if s.collector != nil {
		s.collector.RecordCommand(outcomeLabel(result), result.Duration)
	}

	return s.formatResult(text, result, stream)
}

// formatResult renders a finished command. In stream mode the lines were
// already printed, so only the status trailer is returned.
func (s *Session) formatResult(text string, result runner.Result, streamed bool) string {
	var trailer string
	switch {
	case result.TimedOut():
		trailer = s.theme.Warn(fmt.Sprintf("timed out after %s", stats.FormatDuration(result.Duration)))
	case result.Cancelled():
		trailer = s.theme.Warn("cancelled")
	case result.Failed():
		trailer = s.theme.Error(fmt.Sprintf("exit %d", result.ExitCode))
	}

	if streamed {
		return trailer
	}
	if trailer == "" {
		return text
	}
	if text == "" {
		return trailer
	}
	return text + "\n" + trailer
}

// outcomeLabel maps a Result onto the commands_total outcome label.
func outcomeLabel(r runner.Result) string {
	if r.Failed() {
		return "failed"
	}
	return r.Outcome.String()
}

// listJobs renders /jobs.
func (s *Session) listJobs() string {
	infos := s.table.List()
	if len(infos) == 0 {
		return "no jobs"
	}
	var b strings.Builder
	for i, info := range infos {
		state := "running"
		if !info.Running {
			state = "exited"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d  %-7s  %s", info.ID, state, info.Command)
	}
	return b.String()
}

// pollJobs renders /poll and reclaims finished jobs as a side effect.
func (s *Session) pollJobs() string {
	lines := s.table.Poll()
	if s.collector != nil {
		s.collector.JobLinesPolled(len(lines))
	}
	s.syncJobGauge()
	if len(lines) == 0 {
		return "(no output)"
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s", line.JobID, line.Text)
	}
	return b.String()
}

// killJob renders /kill <id>.
func (s *Session) killJob(args []string) string {
	if len(args) != 1 {
		return "Usage: /kill <id>"
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return s.theme.Error("invalid job id: " + args[0])
	}
	if err := s.table.Kill(id); err != nil {
		if errors.Is(err, jobs.ErrNoSuchJob) {
			return fmt.Sprintf("no such job: %d", id)
		}
		return s.theme.Error(err.Error())
	}
	s.tracker.JobKilled()
	if s.collector != nil {
		s.collector.JobKilled()
	}
	return fmt.Sprintf("kill requested for job %d", id)
}

// oracleTurn delegates one line to the oracle subprocess, starting it on
// first use or after it has died.
func (s *Session) oracleTurn(args []string) string {
	if len(args) == 0 {
		return "Usage: /oracle <line>"
	}

	if s.pipe == nil || s.pipe.State() == oracle.StateDead {
		s.pipe = oracle.New(s.cfg.Shell, s.cfg.OracleCommand, s.cfg.Sentinel, s.logger)
		if err := s.pipe.Start(); err != nil {
			s.pipe = nil
			return s.theme.Error("oracle start failed: " + err.Error())
		}
		s.logger.Info("oracle_session_started", "command", s.cfg.OracleCommand)
	}

	reply, err := s.pipe.Send(strings.Join(args, " "))
	if s.collector != nil {
		s.collector.OracleTurn(err)
	}
	if err != nil {
		return s.theme.Error("oracle: " + err.Error())
	}
	s.tracker.OracleTurn()
	return reply
}

// metricsSummary renders /metrics by self-scraping the metrics endpoint.
func (s *Session) metricsSummary(ctx context.Context) string {
	if s.cfg.MetricsAddr == "" {
		return "metrics disabled (run with -metrics host:port)"
	}
	snap, err := metrics.Scrape(ctx, "http://"+s.cfg.MetricsAddr+"/metrics")
	if err != nil {
		return s.theme.Error("scrape failed: " + err.Error())
	}
	out := snap.Format("letsgo_")
	if out == "" {
		return "(no letsgo metrics yet)"
	}
	return out
}

// runWatch enters the live dashboard until the user leaves it.
func (s *Session) runWatch() string {
	if s.watch == nil {
		return "watch unavailable"
	}
	if err := s.watch(); err != nil {
		return s.theme.Error("watch failed: " + err.Error())
	}
	return ""
}

// CloseOracle shuts the oracle subprocess down if one was started.
func (s *Session) CloseOracle() {
	if s.pipe != nil {
		s.pipe.Close()
	}
}

// syncJobGauge pushes the tracked-job count to the collector.
func (s *Session) syncJobGauge() {
	if s.collector != nil {
		s.collector.SetActiveJobs(s.table.Len())
	}
}

// parseSummarizeArgs parses `/summarize [term] [limit]`; a trailing number
// is the limit, everything before it the term.
func parseSummarizeArgs(args []string) (term string, limit int) {
	limit = defaultSummarizeLimit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[len(args)-1]); err == nil {
			limit = n
			args = args[:len(args)-1]
		}
	}
	return strings.Join(args, " "), limit
}
