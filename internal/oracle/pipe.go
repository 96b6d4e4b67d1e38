package oracle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// ErrNotRunning is returned when Send is called before Start, after the
// subprocess died, or after Close.
var ErrNotRunning = errors.New("oracle process not running")

// ErrAlreadyStarted is returned by Start on a pipe that is not NotStarted.
var ErrAlreadyStarted = errors.New("oracle already started")

const maxReplyLineSize = 1024 * 1024

// Pipe owns a single interactive subprocess and serializes request/response
// turns over its pipes. The subprocess is expected to print the sentinel on
// its own line when (and only when) it is ready for the next input, the
// way a console prints its prompt.
//
// Known protocol limitation: an output line that happens to equal the
// sentinel is indistinguishable from the real end-of-reply marker and will
// terminate the turn early. There is deliberately no escaping scheme.
type Pipe struct {
	shell    string
	command  string
	sentinel string
	logger   *slog.Logger

	// turnMu enforces the single-flight discipline: at most one Send may
	// be in flight per pipe. Concurrent callers queue here.
	turnMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Scanner
}

// New creates a pipe that will run command via `shell -c`.
func New(shell, command, sentinel string, logger *slog.Logger) *Pipe {
	return &Pipe{
		shell:    shell,
		command:  command,
		sentinel: sentinel,
		logger:   logger,
		state:    StateNotStarted,
	}
}

// Start spawns the subprocess and consumes its startup banner up to and
// including the first sentinel line, leaving the pipe Ready.
func (p *Pipe) Start() error {
	if p.State() != StateNotStarted {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(p.shell, "-c", p.command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn oracle %q: %w", p.command, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.out = bufio.NewScanner(stdout)
	p.out.Buffer(make([]byte, 64*1024), maxReplyLineSize)

	p.logger.Debug("oracle_started", "pid", cmd.Process.Pid, "command", p.command)

	// Discard everything before the first sentinel: the subprocess's own
	// startup banner and initial prompt.
	if !p.readUntilSentinel(nil) {
		p.die()
		return fmt.Errorf("waiting for ready sentinel: %w", ErrNotRunning)
	}

	p.setState(StateReady)
	return nil
}

// Send writes one command line to the subprocess and reads its reply up to
// the next sentinel. Lines echoed with a "sentinel + space" prefix have the
// prefix stripped; all other lines are kept verbatim. The reply is the
// accumulated lines joined by newlines and trimmed.
//
// Send serializes concurrent callers; only one turn is ever in flight.
func (p *Pipe) Send(command string) (string, error) {
	p.turnMu.Lock()
	defer p.turnMu.Unlock()

	if p.State() != StateReady {
		return "", ErrNotRunning
	}
	p.setState(StateBusy)

	if _, err := io.WriteString(p.stdin, command+"\n"); err != nil {
		p.die()
		return "", fmt.Errorf("write to oracle: %w", ErrNotRunning)
	}

	var lines []string
	if !p.readUntilSentinel(&lines) {
		// Stream closed before the sentinel reappeared: the process died
		// mid-turn. The pipe cannot be reused without a fresh Start.
		p.die()
		return "", ErrNotRunning
	}

	p.setState(StateReady)
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// readUntilSentinel reads lines until one equals the sentinel (after
// trimming). When lines is non-nil, each preceding line is appended to it,
// with an inline "sentinel + space" prefix stripped. Returns false if the
// stream closed first.
func (p *Pipe) readUntilSentinel(lines *[]string) bool {
	for p.out.Scan() {
		line := p.out.Text()
		if strings.TrimSpace(line) == p.sentinel {
			return true
		}
		if lines != nil {
			// The subprocess may echo its prompt inline with the first
			// output line.
			line = strings.TrimPrefix(line, p.sentinel+" ")
			*lines = append(*lines, line)
		}
	}
	// Empty read means stream closure, not "no data yet".
	return false
}

// Close shuts the pipe down: closes stdin, terminates the process group,
// and reaps the subprocess. The pipe ends up Dead.
func (p *Pipe) Close() error {
	p.turnMu.Lock()
	defer p.turnMu.Unlock()

	if p.State() == StateNotStarted || p.State() == StateDead {
		p.setState(StateDead)
		return nil
	}
	p.die()
	return nil
}

// die kills the subprocess, reaps it, and marks the pipe Dead.
func (p *Pipe) die() {
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		pid := p.cmd.Process.Pid
		if pgid, err := syscall.Getpgid(pid); err == nil {
			syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			syscall.Kill(pid, syscall.SIGKILL)
		}
		p.cmd.Wait()
	}
	p.setState(StateDead)
	p.logger.Debug("oracle_closed")
}

// State returns the current lifecycle state.
func (p *Pipe) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// setState updates the lifecycle state. Dead is terminal.
func (p *Pipe) setState(s State) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.state == StateDead {
		return
	}
	p.state = s
}
