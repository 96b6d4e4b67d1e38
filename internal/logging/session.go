package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// sessionBufferSize is the channel buffer for pending transcript events.
	sessionBufferSize = 256

	// MaxEventLength is the maximum length of a single transcript event
	// before truncation.
	MaxEventLength = 4096
)

// SessionLog appends timestamped events to a per-session transcript file.
//
// Record never blocks the caller: events go through a bounded channel to a
// dedicated writer goroutine, and are dropped (counted) when the writer
// cannot keep up. A slow disk must never stall command execution.
type SessionLog struct {
	id   string
	path string
	file *os.File

	events    chan string
	closeOnce sync.Once
	done      chan struct{}

	dropped atomic.Int64
	written atomic.Int64
}

// NewSessionID returns a session identifier derived from the current UTC time.
func NewSessionID() string {
	return time.Now().UTC().Format("20060102-150405")
}

// NewSessionLog creates the log directory if needed and opens a transcript
// file named <id>.log inside it.
func NewSessionLog(dir, id string) (*SessionLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, id+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	s := &SessionLog{
		id:     id,
		path:   path,
		file:   file,
		events: make(chan string, sessionBufferSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// run is the single writer goroutine. It exits when the event channel is
// closed and all buffered events have been flushed.
func (s *SessionLog) run() {
	defer close(s.done)
	for event := range s.events {
		line := time.Now().UTC().Format(time.RFC3339) + " " + event + "\n"
		if _, err := s.file.WriteString(line); err == nil {
			s.written.Add(1)
		}
	}
	s.file.Close()
}

// Record queues one event for the transcript. It never blocks and never
// returns an error; events are dropped if the writer is behind or the log
// has been closed.
func (s *SessionLog) Record(event string) {
	if len(event) > MaxEventLength {
		event = event[:MaxEventLength] + "...(truncated)"
	}
	defer func() {
		// Send on closed channel after Close; treat as a drop.
		if recover() != nil {
			s.dropped.Add(1)
		}
	}()
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Close stops accepting events and waits for buffered events to reach disk.
func (s *SessionLog) Close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
	<-s.done
}

// ID returns the session identifier.
func (s *SessionLog) ID() string { return s.id }

// Path returns the transcript file path.
func (s *SessionLog) Path() string { return s.path }

// Stats returns (written, dropped) event counts.
func (s *SessionLog) Stats() (written, dropped int64) {
	return s.written.Load(), s.dropped.Load()
}
