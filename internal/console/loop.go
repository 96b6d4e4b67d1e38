package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ariannacore/letsgo/internal/config"
	"github.com/ariannacore/letsgo/internal/logging"
)

// Loop reads input lines, dispatches them through a Session, and records
// both sides of the exchange in the transcript.
type Loop struct {
	cfg        *config.Config
	logger     *slog.Logger
	session    *Session
	transcript *logging.SessionLog
	history    *History
	in         io.Reader
	out        io.Writer
	theme      Theme
}

// NewLoop wires a loop around a session. transcript and history may be nil.
func NewLoop(cfg *config.Config, logger *slog.Logger, session *Session, transcript *logging.SessionLog, history *History, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		cfg:        cfg,
		logger:     logger,
		session:    session,
		transcript: transcript,
		history:    history,
		in:         in,
		out:        out,
		theme:      NewTheme(cfg.Plain),
	}
}

// Run reads input until EOF, "exit"/"quit", or context cancellation.
func (l *Loop) Run(ctx context.Context) error {
	prompt := l.theme.Prompt(l.cfg.Sentinel + " ")
	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if l.cfg.Plain {
			// Plain mode is line oriented so a driving process can detect
			// readiness: the sentinel is printed on its own line.
			fmt.Fprintln(l.out, l.cfg.Sentinel)
		} else {
			fmt.Fprint(l.out, prompt)
		}
		if !scanner.Scan() {
			fmt.Fprintln(l.out)
			return scanner.Err()
		}
		input := scanner.Text()

		if input == "exit" || input == "quit" {
			return nil
		}

		l.record("user: " + input)
		if l.history != nil {
			l.history.Append(input)
		}

		reply := l.session.Dispatch(ctx, input)
		if reply != "" {
			fmt.Fprintln(l.out, reply)
		}
		l.record("letsgo: " + reply)
	}
}

func (l *Loop) record(event string) {
	if l.transcript != nil {
		l.transcript.Record(event)
	}
}
