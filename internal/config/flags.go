package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// defaultLogDir returns the per-user session log directory.
func defaultLogDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "letsgo", "log")
	}
	return filepath.Join(os.TempDir(), "letsgo-log")
}

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `letsgo - interactive command console with background jobs and a subprocess oracle

Usage:
  letsgo [flags]

Execution Flags:
`)
		printFlagCategory([]string{"shell", "timeout"})

		fmt.Fprintf(os.Stderr, "\nSession:\n")
		printFlagCategory([]string{"logdir", "no-history"})

		fmt.Fprintf(os.Stderr, "\nOracle:\n")
		printFlagCategory([]string{"oracle", "sentinel"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "v", "log-format"})

		fmt.Fprintf(os.Stderr, "\nPresentation:\n")
		printFlagCategory([]string{"plain", "no-banner"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Interactive session with default 10s command timeout
  letsgo

  # Expose Prometheus metrics while running
  letsgo -metrics 127.0.0.1:17092

  # Drive another console as an oracle
  letsgo -oracle "letsgo -plain"

`)
	}

	// Execution flags
	flag.StringVar(&cfg.Shell, "shell", cfg.Shell, "Shell used to run commands")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Foreground command deadline")

	// Session flags
	flag.StringVar(&cfg.LogDir, "logdir", cfg.LogDir, "Directory for session logs and history")
	noHistory := flag.Bool("no-history", false, "Do not persist input history")

	// Oracle flags
	flag.StringVar(&cfg.OracleCommand, "oracle", cfg.OracleCommand, "Command for the /oracle subprocess (default: this binary with -plain)")
	flag.StringVar(&cfg.Sentinel, "sentinel", cfg.Sentinel, "End-of-reply marker used by the console prompt and the oracle protocol")

	// Observability flags
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics listen address (empty = disabled)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose (debug) logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Presentation flags
	flag.BoolVar(&cfg.Plain, "plain", cfg.Plain, "Plain mode: no color, no banner (for driving as an oracle)")
	flag.BoolVar(&cfg.NoBanner, "no-banner", cfg.NoBanner, "Suppress the startup banner")

	flag.Parse()

	cfg.History = !*noHistory
	if cfg.Plain {
		cfg.NoBanner = true
	}

	return cfg, nil
}

// printFlagCategory prints usage lines for the named flags, in order.
func printFlagCategory(names []string) {
	for _, name := range names {
		f := flag.Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "  -%-12s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" {
			fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(os.Stderr)
	}
}
