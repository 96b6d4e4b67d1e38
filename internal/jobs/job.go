// Package jobs tracks background commands and buffers their output for
// non-blocking collection.
package jobs

import (
	"os/exec"
	"sync"
	"time"
)

// Job is one background command. Its output buffer is fed by a single
// reader goroutine and drained by Table.Poll; the done channel is closed
// only after the reader has finished and the process has been reaped, so
// a drained-and-done job can never still produce output.
type Job struct {
	id        int // OS pid; unique among currently tracked jobs
	command   string
	cmd       *exec.Cmd
	startedAt time.Time

	mu  sync.Mutex
	buf []string

	done     chan struct{}
	exitCode int
	killed   bool
}

// ID returns the job identifier (the process id).
func (j *Job) ID() int { return j.id }

// Command returns the command string the job was started with.
func (j *Job) Command() string { return j.command }

// Running reports whether the job's process and reader are still active.
func (j *Job) Running() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// append adds one output line to the buffer. Called only by the reader.
func (j *Job) append(line string) {
	j.mu.Lock()
	j.buf = append(j.buf, line)
	j.mu.Unlock()
}

// drain removes and returns all buffered lines in arrival order.
func (j *Job) drain() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.buf) == 0 {
		return nil
	}
	out := j.buf
	j.buf = nil
	return out
}

// Info is a point-in-time snapshot of a tracked job.
type Info struct {
	ID        int
	Command   string
	Running   bool
	StartedAt time.Time
}

// Line is one output line tagged with the job that produced it.
type Line struct {
	JobID int
	Text  string
}
