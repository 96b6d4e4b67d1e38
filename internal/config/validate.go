package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Shell is required
	if cfg.Shell == "" {
		errs = append(errs, ValidationError{
			Field:   "shell",
			Message: "shell is required",
		})
	}

	// Timeout must be positive
	if cfg.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must be positive",
		})
	}

	// Log directory is required
	if cfg.LogDir == "" {
		errs = append(errs, ValidationError{
			Field:   "logdir",
			Message: "log directory is required",
		})
	}

	// Sentinel must be a single non-empty token with no whitespace; the
	// oracle protocol compares whole trimmed lines against it.
	if strings.TrimSpace(cfg.Sentinel) == "" {
		errs = append(errs, ValidationError{
			Field:   "sentinel",
			Message: "must not be empty",
		})
	} else if strings.ContainsAny(cfg.Sentinel, " \t\n") {
		errs = append(errs, ValidationError{
			Field:   "sentinel",
			Message: "must not contain whitespace",
		})
	}

	// Metrics address must be host:port if provided
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics",
				Message: fmt.Sprintf("must be host:port (got %q)", cfg.MetricsAddr),
			})
		}
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
