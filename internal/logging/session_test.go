package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSessionID_Format(t *testing.T) {
	id := NewSessionID()
	if len(id) != len("20060102-150405") {
		t.Errorf("session id %q has unexpected length", id)
	}
}

func TestSessionLog_WritesEvents(t *testing.T) {
	dir := t.TempDir()
	log, err := NewSessionLog(dir, "test-session")
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}

	log.Record("user: hello")
	log.Record("letsgo: echo: hello")
	log.Close()

	data, err := os.ReadFile(filepath.Join(dir, "test-session.log"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "user: hello") {
		t.Errorf("transcript %q missing first event", content)
	}
	if !strings.Contains(content, "letsgo: echo: hello") {
		t.Errorf("transcript %q missing second event", content)
	}

	// Each line starts with an RFC3339 timestamp.
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if len(line) < 20 || line[4] != '-' || line[7] != '-' {
			t.Errorf("line %q does not start with a timestamp", line)
		}
	}

	written, dropped := log.Stats()
	if written != 2 || dropped != 0 {
		t.Errorf("Stats() = (%d, %d), want (2, 0)", written, dropped)
	}
}

func TestSessionLog_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	log, err := NewSessionLog(dir, "s1")
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}
	log.Close()

	if _, err := os.Stat(filepath.Join(dir, "s1.log")); err != nil {
		t.Errorf("transcript file missing: %v", err)
	}
}

func TestSessionLog_RecordAfterCloseIsDropped(t *testing.T) {
	log, err := NewSessionLog(t.TempDir(), "closed")
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}
	log.Close()

	// Must not panic; the event is counted as dropped.
	log.Record("too late")
	if _, dropped := log.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestSessionLog_TruncatesOversizedEvents(t *testing.T) {
	log, err := NewSessionLog(t.TempDir(), "big")
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}

	log.Record(strings.Repeat("x", MaxEventLength+100))
	log.Close()

	data, err := os.ReadFile(log.Path())
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "...(truncated)") {
		t.Error("oversized event was not truncated")
	}
}

func TestSessionLog_CloseIsIdempotent(t *testing.T) {
	log, err := NewSessionLog(t.TempDir(), "twice")
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}
	log.Close()
	log.Close()
}
