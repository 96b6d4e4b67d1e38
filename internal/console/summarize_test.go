package console

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, dir, name string, lines []string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSummarize_MissingDir(t *testing.T) {
	got := Summarize(filepath.Join(t.TempDir(), "nope"), "", 5)
	if got != "no logs" {
		t.Errorf("Summarize = %q, want %q", got, "no logs")
	}
}

func TestSummarize_EmptyDir(t *testing.T) {
	got := Summarize(t.TempDir(), "", 5)
	if got != "no logs" {
		t.Errorf("Summarize = %q, want %q", got, "no logs")
	}
}

func TestSummarize_NoMatches(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "20240101-000000.log", []string{"user: hello", "letsgo: echo: hello"})

	got := Summarize(dir, "zebra", 5)
	if got != "no matches" {
		t.Errorf("Summarize = %q, want %q", got, "no matches")
	}
}

func TestSummarize_FiltersByTerm(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "20240101-000000.log", []string{
		"user: /run true",
		"user: /run false",
		"letsgo: exit 1",
	})

	got := Summarize(dir, "exit", 5)
	if got != "letsgo: exit 1" {
		t.Errorf("Summarize = %q, want the single matching line", got)
	}
}

func TestSummarize_KeepsOnlyTail(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "20240101-000000.log", []string{"m1", "m2", "m3", "m4", "m5"})

	got := Summarize(dir, "m", 2)
	if got != "m4\nm5" {
		t.Errorf("Summarize = %q, want last 2 matches", got)
	}
}

func TestSummarize_SpansSessionsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "20240101-000000.log", []string{"older match"})
	writeLog(t, dir, "20240102-000000.log", []string{"newer match"})

	got := Summarize(dir, "match", 5)
	if got != "older match\nnewer match" {
		t.Errorf("Summarize = %q, want session order", got)
	}
}
