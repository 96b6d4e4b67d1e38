package runner

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Executor wraps a Runner to stream each output line to a sink channel as
// it arrives, while still returning the full text at the end.
//
// The invariant callers may rely on: when a sink is supplied, the returned
// text equals the newline-join of exactly the lines that were sent to the
// sink, under normal completion, timeout, and cancellation alike.
type Executor struct {
	runner *Runner
	logger *slog.Logger
}

// NewExecutor creates an Executor on top of the given Runner.
func NewExecutor(r *Runner, logger *slog.Logger) *Executor {
	return &Executor{runner: r, logger: logger}
}

// Execute runs command, streaming lines into sink if it is non-nil.
//
// Execute owns the producing side of sink and closes it before returning,
// so a consumer can simply range over it. Cancelling ctx terminates the
// process and yields the Cancelled outcome; no further lines are delivered
// to the sink after cancellation.
//
// The returned error is non-nil only when the process could not be spawned.
func (e *Executor) Execute(ctx context.Context, command string, timeout time.Duration, sink chan<- string) (string, Result, error) {
	if sink == nil {
		result, err := e.runner.Run(ctx, command, timeout, nil)
		if err != nil {
			return "", result, err
		}
		return result.Output, result, nil
	}
	defer close(sink)

	// Lines delivered to the sink. Appended only by the runner's reader
	// goroutine; Run's return happens-after the reader has finished, so
	// reading it afterwards is safe.
	var delivered []string
	onLine := func(line string) {
		select {
		case sink <- line:
			delivered = append(delivered, line)
		case <-ctx.Done():
			// Caller abandoned interest; stop delivering.
		}
	}

	result, err := e.runner.Run(ctx, command, timeout, onLine)
	if err != nil {
		return "", result, err
	}

	// Rebuild the output from the delivered lines so that streamed and
	// final text stay equal even when cancellation cut delivery short.
	result.Output = strings.TrimRight(strings.Join(delivered, "\n"), " \t\r\n")
	result.Lines = len(delivered)
	return result.Output, result, nil
}
