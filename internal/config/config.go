// Package config provides configuration management for letsgo.
package config

import "time"

// Config holds all configuration options for the console.
type Config struct {
	// Execution
	Shell   string        `json:"shell"`
	Timeout time.Duration `json:"timeout"` // foreground command deadline

	// Session
	LogDir  string `json:"log_dir"`
	History bool   `json:"history"`

	// Oracle
	OracleCommand string `json:"oracle_command"` // empty = self ("-plain")
	Sentinel      string `json:"sentinel"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text

	// Presentation
	Plain    bool `json:"plain"` // no color, no banner (oracle-friendly)
	NoBanner bool `json:"no_banner"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Execution
		Shell:   "/bin/sh",
		Timeout: 10 * time.Second,

		// Session
		LogDir:  defaultLogDir(),
		History: true,

		// Oracle
		Sentinel: ">>",

		// Observability
		MetricsAddr: "",
		Verbose:     false,
		LogFormat:   "json",
	}
}
