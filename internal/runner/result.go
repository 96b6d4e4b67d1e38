// Package runner executes shell commands with streaming output, a hard
// wall-clock timeout, and cooperative cancellation.
package runner

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// Outcome classifies how a command execution ended.
type Outcome int

const (
	// OutcomeCompleted means the process exited on its own.
	// The exit code may still be non-zero; that is a normal outcome,
	// not an error.
	OutcomeCompleted Outcome = iota

	// OutcomeTimedOut means the wall-clock deadline elapsed and the
	// process was terminated.
	OutcomeTimedOut

	// OutcomeCancelled means the caller aborted the run and the
	// process was terminated.
	OutcomeCancelled
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result captures the outcome of a single command execution.
// Exactly one Result is produced per Run call; it is immutable once returned.
type Result struct {
	Outcome  Outcome
	ExitCode int  // meaningless when Killed is true
	Killed   bool // process was terminated by signal, no exit status exists
	Output   string
	Lines    int
	Duration time.Duration
}

// TimedOut reports whether the deadline elapsed.
func (r Result) TimedOut() bool { return r.Outcome == OutcomeTimedOut }

// Cancelled reports whether the caller aborted the run.
func (r Result) Cancelled() bool { return r.Outcome == OutcomeCancelled }

// Failed reports a normal exit with a non-zero code.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeCompleted && !r.Killed && r.ExitCode != 0
}

// extractExitCode converts a Wait error into an exit code and a killed flag.
// A signalled process has no exit status; Killed is set instead.
func extractExitCode(err error) (code int, killed bool) {
	if err == nil {
		return 0, false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return -1, true
		}
		return exitErr.ExitCode(), false
	}
	return -1, true
}
