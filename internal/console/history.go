package console

import (
	"os"
	"path/filepath"
)

// History appends input lines to a history file, best effort. A broken
// history file must never break the session, so errors are swallowed after
// open.
type History struct {
	file *os.File
}

// OpenHistory opens (or creates) the history file in dir.
// Returns an inert History on failure.
func OpenHistory(dir string) *History {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &History{}
	}
	file, err := os.OpenFile(filepath.Join(dir, "history"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &History{}
	}
	return &History{file: file}
}

// Append records one input line.
func (h *History) Append(line string) {
	if h.file == nil || line == "" {
		return
	}
	h.file.WriteString(line + "\n")
}

// Close flushes and closes the history file.
func (h *History) Close() {
	if h.file != nil {
		h.file.Close()
	}
}
