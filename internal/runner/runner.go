package runner

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const (
	// maxLineSize bounds a single output line; longer lines are split by
	// the scanner's buffer growth limit.
	maxLineSize = 64 * 1024

	maxScanBuffer = 1024 * 1024
)

// Runner spawns one OS process per command through the host shell,
// merging stderr into stdout and delivering output line by line.
type Runner struct {
	shell  string
	logger *slog.Logger
}

// New creates a Runner that executes commands via `shell -c`.
func New(shell string, logger *slog.Logger) *Runner {
	return &Runner{shell: shell, logger: logger}
}

// Run executes command and blocks until it exits, the timeout elapses, or
// ctx is cancelled. A timeout of 0 means no deadline.
//
// If onLine is non-nil it is invoked synchronously with each output line in
// arrival order, before the line is appended to the accumulated output. The
// callback blocks further reads, so it must not block indefinitely.
//
// Timeout and cancellation terminate the process group; the partial output
// captured so far is still returned. The only error Run returns is a spawn
// failure; every other condition is reported inside the Result.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration, onLine func(string)) (Result, error) {
	if strings.TrimSpace(command) == "" {
		// Nothing to spawn; deterministic empty result.
		return Result{Outcome: OutcomeCompleted}, nil
	}

	cmd := exec.Command(r.shell, "-c", command)

	// Own process group so timeout/cancel kills shell children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	// Merge stderr into the same stream, preserving arrival order.
	cmd.Stderr = cmd.Stdout

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("spawn %q: %w", command, err)
	}
	pid := cmd.Process.Pid

	r.logger.Debug("command_started", "pid", pid, "command", command)

	// One dedicated reader turns the byte stream into lines. It exits when
	// the stream closes, which is guaranteed once the process group is dead.
	var lines []string
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, maxLineSize), maxScanBuffer)
		for scanner.Scan() {
			line := scanner.Text()
			if onLine != nil {
				onLine(line)
			}
			lines = append(lines, line)
		}
	}()

	// Wait only after the reader has drained the pipe; Wait closes it.
	waitDone := make(chan error, 1)
	go func() {
		<-readDone
		waitDone <- cmd.Wait()
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	result := Result{Outcome: OutcomeCompleted}
	select {
	case waitErr := <-waitDone:
		result.ExitCode, result.Killed = extractExitCode(waitErr)
	case <-deadline:
		result.Outcome = OutcomeTimedOut
		result.Killed = true
		killGroup(pid)
		<-waitDone
	case <-ctx.Done():
		result.Outcome = OutcomeCancelled
		result.Killed = true
		killGroup(pid)
		<-waitDone
	}

	result.Duration = time.Since(start)
	result.Lines = len(lines)
	result.Output = strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n")

	r.logger.Debug("command_finished",
		"pid", pid,
		"outcome", result.Outcome.String(),
		"exit_code", result.ExitCode,
		"lines", result.Lines,
		"duration", result.Duration.String(),
	)

	return result, nil
}

// killGroup hard-terminates the process group rooted at pid. SIGKILL is
// used so the timeout bound stays deterministic even for commands that
// ignore SIGTERM.
func killGroup(pid int) {
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		syscall.Kill(pid, syscall.SIGKILL)
	}
}
