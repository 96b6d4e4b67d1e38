// Package main provides the letsgo CLI entry point.
//
// letsgo is an interactive command console: it runs shell commands in the
// foreground or as background jobs, keeps a per-session transcript, and can
// delegate input lines to an oracle subprocess over a sentinel protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariannacore/letsgo/internal/config"
	"github.com/ariannacore/letsgo/internal/console"
	"github.com/ariannacore/letsgo/internal/jobs"
	"github.com/ariannacore/letsgo/internal/logging"
	"github.com/ariannacore/letsgo/internal/metrics"
	"github.com/ariannacore/letsgo/internal/runner"
	"github.com/ariannacore/letsgo/internal/stats"
	"github.com/ariannacore/letsgo/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/letsgo
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("letsgo %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Interactive output and structured logs share stderr, so logs stay at
	// warn unless -v is given.
	var logger *slog.Logger
	if cfg.Plain {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "warn", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// The console is its own default oracle: a child copy in plain mode
	// speaks the sentinel protocol over stdin/stdout.
	if cfg.OracleCommand == "" {
		exe, err := os.Executable()
		if err != nil {
			exe = os.Args[0]
		}
		cfg.OracleCommand = exe + " -plain -no-history"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := logging.NewSessionID()
	transcript, err := logging.NewSessionLog(cfg.LogDir, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Session log error: %v\n", err)
		return 1
	}
	transcript.Record("session_start id=" + sessionID)

	logger.Info("starting",
		"version", version,
		"session_id", sessionID,
		"shell", cfg.Shell,
		"timeout", cfg.Timeout,
		"log_dir", cfg.LogDir,
		"metrics_addr", cfg.MetricsAddr,
	)

	tracker := stats.NewSession()

	// Metrics are optional; everything downstream tolerates a nil collector.
	var collector *metrics.Collector
	var server *metrics.Server
	if cfg.MetricsAddr != "" {
		collector = metrics.NewCollector(metrics.CollectorConfig{
			Version:   version,
			SessionID: sessionID,
			Shell:     cfg.Shell,
		})
		server = metrics.NewServer(cfg.MetricsAddr, logger)
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Metrics server error: %v\n", err)
			return 1
		}
	}

	table := jobs.NewTable(cfg.Shell, logger, jobs.Callbacks{
		OnStart: func(id int) {
			if collector != nil {
				collector.JobStarted()
			}
		},
		OnExit: func(id int, exitCode int, uptime time.Duration) {
			if collector != nil {
				collector.JobExited(exitCode)
			}
			transcript.Record(fmt.Sprintf("job_exit id=%d exit=%d uptime=%s",
				id, exitCode, stats.FormatDuration(uptime)))
		},
	})

	session := console.NewSession(console.Options{
		Config:    cfg,
		Logger:    logger,
		Executor:  runner.NewExecutor(runner.New(cfg.Shell, logger), logger),
		Table:     table,
		Collector: collector,
		Tracker:   tracker,
		Out:       os.Stdout,
		Watch: func() error {
			return tui.Run(tui.Config{
				SessionID:   sessionID,
				Shell:       cfg.Shell,
				MetricsAddr: cfg.MetricsAddr,
				StatsSource: tracker,
				JobSource:   table,
			})
		},
	})

	// Sample slow-moving gauges while the session runs.
	if collector != nil {
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_, dropped := transcript.Stats()
					collector.SetTranscriptDrops(dropped)
					collector.SetActiveJobs(table.Len())
				}
			}
		}()
	}

	var history *console.History
	if cfg.History {
		history = console.OpenHistory(cfg.LogDir)
		defer history.Close()
	}

	if !cfg.NoBanner {
		printBanner(cfg, sessionID)
	}

	loop := console.NewLoop(cfg, logger, session, transcript, history, os.Stdin, os.Stdout)
	loopErr := loop.Run(ctx)

	// Shutdown order: oracle and jobs first so their exits still reach the
	// transcript, then the transcript writer, then the metrics server.
	session.CloseOracle()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := table.Shutdown(shutdownCtx); err != nil {
		logger.Warn("job_shutdown_incomplete", "error", err)
	}

	written, dropped := transcript.Stats()
	transcript.Record(fmt.Sprintf("session_end written=%d dropped=%d", written, dropped))
	transcript.Close()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics_shutdown_failed", "error", err)
		}
	}

	if !cfg.Plain {
		fmt.Print(stats.FormatExitSummary(tracker.Snapshot()))
	}

	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		logger.Error("session_failed", "error", loopErr)
		return 1
	}
	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config, sessionID string) {
	theme := console.NewTheme(cfg.Plain)
	fmt.Println()
	fmt.Println(theme.Banner("  letsgo interactive command console"))
	fmt.Println()
	fmt.Printf("  Session:  %s\n", sessionID)
	fmt.Printf("  Shell:    %s\n", cfg.Shell)
	fmt.Printf("  Timeout:  %s\n", cfg.Timeout)
	fmt.Printf("  Logs:     %s\n", cfg.LogDir)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:  http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("  Type /help for commands, exit to leave.")
	fmt.Println()
}
