package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newScrapeServer exposes an isolated registry over HTTP.
func newScrapeServer(t *testing.T) (*Collector, *httptest.Server) {
	t.Helper()
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{
		Version:   "test",
		SessionID: "20240101-000000",
		Shell:     "/bin/sh",
	}, registry)
	srv := httptest.NewServer(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)
	return c, srv
}

func TestScrape_ReadsExposition(t *testing.T) {
	c, srv := newScrapeServer(t)
	c.RecordCommand("completed", 25*time.Millisecond)
	c.SetActiveJobs(2)

	snap, err := Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	if v, ok := snap.Value("letsgo_info"); !ok || v != 1 {
		t.Errorf("letsgo_info = %v (ok=%v), want 1", v, ok)
	}
	if v, ok := snap.Value("letsgo_active_jobs"); !ok || v != 2 {
		t.Errorf("letsgo_active_jobs = %v (ok=%v), want 2", v, ok)
	}
	if v, ok := snap.Value("letsgo_commands_total"); !ok || v < 1 {
		t.Errorf("letsgo_commands_total = %v (ok=%v), want >= 1", v, ok)
	}
}

func TestScrape_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := Scrape(context.Background(), srv.URL); err == nil {
		t.Fatal("Scrape() error = nil, want status error")
	}
}

func TestScrape_UnreachableTarget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := Scrape(ctx, "http://127.0.0.1:1/metrics"); err == nil {
		t.Fatal("Scrape() error = nil, want connection error")
	}
}

func TestSnapshot_Format(t *testing.T) {
	snap := &Snapshot{Values: map[string]float64{
		"letsgo_commands_total": 3,
		"letsgo_active_jobs":    1,
		"go_goroutines":         42,
	}}

	out := snap.Format("letsgo_")
	if strings.Contains(out, "go_goroutines") {
		t.Errorf("Format leaked non-prefixed family:\n%s", out)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("Format returned %d lines, want 2:\n%s", len(lines), out)
	}
	// Sorted by name.
	if !strings.HasPrefix(lines[0], "letsgo_active_jobs") {
		t.Errorf("first line = %q, want sorted order", lines[0])
	}
}
