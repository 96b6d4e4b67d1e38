package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Snapshot is a flat view of a Prometheus text exposition: one value per
// label-less counter/gauge family. Labelled families are summed.
type Snapshot struct {
	Values    map[string]float64
	ScrapedAt time.Time
}

// Scrape fetches url and decodes the exposition into a Snapshot.
func Scrape(ctx context.Context, url string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	// Parse Prometheus text format
	decoder := expfmt.NewDecoder(resp.Body, expfmt.FmtText)
	snap := &Snapshot{
		Values:    make(map[string]float64),
		ScrapedAt: time.Now(),
	}

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		snap.Values[mf.GetName()] += familyValue(&mf)
	}

	return snap, nil
}

// familyValue sums the scalar values of a metric family. Histograms and
// summaries contribute their sample count.
func familyValue(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			total += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			total += m.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			total += float64(m.GetHistogram().GetSampleCount())
		case dto.MetricType_SUMMARY:
			total += float64(m.GetSummary().GetSampleCount())
		case dto.MetricType_UNTYPED:
			total += m.GetUntyped().GetValue()
		}
	}
	return total
}

// Value returns the value for a metric family name.
func (s *Snapshot) Value(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// Format renders families whose name starts with prefix, sorted by name,
// one per line.
func (s *Snapshot) Format(prefix string) string {
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s %g\n", name, s.Values[name])
	}
	return strings.TrimRight(b.String(), "\n")
}
