package jobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrNoSuchJob is returned when an id does not name a tracked job.
var ErrNoSuchJob = errors.New("no such job")

const (
	// killGrace is how long Kill waits after SIGTERM before escalating
	// to SIGKILL.
	killGrace = 2 * time.Second

	maxLineSize   = 64 * 1024
	maxScanBuffer = 1024 * 1024
)

// Callbacks contains optional callback functions for table events.
type Callbacks struct {
	// OnStart is called when a job process starts.
	OnStart func(id int)

	// OnExit is called when a job process exits.
	OnExit func(id int, exitCode int, uptime time.Duration)

	// OnReclaim is called when a finished job is removed from the table.
	OnReclaim func(id int)
}

// Table is a registry of background jobs keyed by pid.
//
// Start inserts, Poll drains and reclaims, Kill terminates. All table
// operations share one mutex; per-job output buffers have their own lock
// so the reader goroutines never contend on the table itself.
type Table struct {
	shell     string
	logger    *slog.Logger
	callbacks Callbacks

	mu    sync.Mutex
	jobs  map[int]*Job
	order []int // insertion order, for deterministic List/Poll

	wg sync.WaitGroup
}

// NewTable creates an empty job table executing commands via `shell -c`.
func NewTable(shell string, logger *slog.Logger, callbacks Callbacks) *Table {
	return &Table{
		shell:     shell,
		logger:    logger,
		callbacks: callbacks,
		jobs:      make(map[int]*Job),
	}
}

// Start spawns command in the background and registers it. It returns the
// job id (the pid) immediately; output is collected asynchronously by a
// dedicated reader goroutine. Background jobs have no timeout; they run
// until they exit or are killed.
func (t *Table) Start(command string) (int, error) {
	if strings.TrimSpace(command) == "" {
		return 0, errors.New("empty command")
	}

	cmd := exec.Command(t.shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn %q: %w", command, err)
	}

	job := &Job{
		id:        cmd.Process.Pid,
		command:   command,
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	t.mu.Lock()
	if _, exists := t.jobs[job.id]; exists {
		// A pid can only be reused after the previous job was reclaimed;
		// seeing it here means the old job is still tracked.
		t.mu.Unlock()
		killGroup(job.id)
		go cmd.Wait() // reap
		return 0, fmt.Errorf("job id %d still tracked", job.id)
	}
	t.jobs[job.id] = job
	t.order = append(t.order, job.id)
	t.mu.Unlock()

	t.logger.Debug("job_started", "id", job.id, "command", command)
	if t.callbacks.OnStart != nil {
		t.callbacks.OnStart(job.id)
	}

	// Single producer: read lines until EOF, then reap the process, then
	// close done. Poll relies on this ordering: once done is closed, no
	// further line can appear in the buffer.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, maxLineSize), maxScanBuffer)
		for scanner.Scan() {
			job.append(scanner.Text())
		}
		waitErr := cmd.Wait()
		job.exitCode, job.killed = extractExitCode(waitErr)
		close(job.done)

		uptime := time.Since(job.startedAt)
		t.logger.Debug("job_exited",
			"id", job.id,
			"exit_code", job.exitCode,
			"uptime", uptime.String(),
		)
		if t.callbacks.OnExit != nil {
			t.callbacks.OnExit(job.id, job.exitCode, uptime)
		}
	}()

	return job.id, nil
}

// Poll drains all currently buffered output of every tracked job, in each
// job's arrival order, tagged by job id. It never blocks. Jobs whose
// process has exited, whose reader has finished, and whose buffer is empty
// after the drain are reclaimed (removed from the table).
func (t *Table) Poll() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Line
	kept := t.order[:0]
	for _, id := range t.order {
		job := t.jobs[id]

		// Snapshot the finished flag before draining: if the reader was
		// already done, the drain below is guaranteed to be final.
		finished := !job.Running()

		for _, text := range job.drain() {
			out = append(out, Line{JobID: id, Text: text})
		}

		if finished {
			delete(t.jobs, id)
			t.logger.Debug("job_reclaimed", "id", id)
			if t.callbacks.OnReclaim != nil {
				t.callbacks.OnReclaim(id)
			}
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return out
}

// List returns a snapshot of tracked jobs in start order. A job stays
// listed after exit until a Poll has delivered its remaining output.
func (t *Table) List() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	infos := make([]Info, 0, len(t.order))
	for _, id := range t.order {
		job := t.jobs[id]
		infos = append(infos, Info{
			ID:        id,
			Command:   job.command,
			Running:   job.Running(),
			StartedAt: job.startedAt,
		})
	}
	return infos
}

// Kill requests termination of a job's process group: SIGTERM first, then
// SIGKILL after a short grace period. The job is not removed here; removal
// follows the usual drain-then-reclaim rule in Poll.
func (t *Table) Kill(id int) error {
	t.mu.Lock()
	job, ok := t.jobs[id]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("kill %d: %w", id, ErrNoSuchJob)
	}

	termGroup(id)
	go func() {
		select {
		case <-job.done:
		case <-time.After(killGrace):
			t.logger.Warn("job_force_killed", "id", id)
			killGroup(id)
		}
	}()

	t.logger.Debug("job_kill_requested", "id", id)
	return nil
}

// Len returns the number of currently tracked jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Shutdown kills every tracked job and waits for all readers to finish,
// or until ctx expires.
func (t *Table) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	ids := append([]int(nil), t.order...)
	t.mu.Unlock()

	for _, id := range ids {
		killGroup(id)
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.logger.Warn("job_table_shutdown_timeout", "jobs", len(ids))
		return ctx.Err()
	}
}

// termGroup sends SIGTERM to the process group rooted at pid.
func termGroup(pid int) {
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		syscall.Kill(pid, syscall.SIGTERM)
	}
}

// killGroup sends SIGKILL to the process group rooted at pid.
func killGroup(pid int) {
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		syscall.Kill(pid, syscall.SIGKILL)
	}
}

// extractExitCode converts a Wait error into an exit code and killed flag.
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
