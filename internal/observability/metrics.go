package observability

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts analyzer outcomes and provider calls and renders them in
// the Prometheus text exposition format.
type Metrics struct {
	mu       sync.Mutex
	outcomes map[[2]string]uint64 // {analyzer, outcome}
	requests map[string]uint64
	errors   map[string]uint64
	tokens   map[string]uint64
	rewrites map[string]uint64 // by result
	latency  *Histogram
	inFlight atomic.Int64
}

// NewMetrics creates an empty metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		outcomes: make(map[[2]string]uint64),
		requests: make(map[string]uint64),
		errors:   make(map[string]uint64),
		tokens:   make(map[string]uint64),
		rewrites: make(map[string]uint64),
		latency:  NewHistogram(DefaultBuckets()),
	}
}

// RecordOutcome counts one analyzer result.
func (m *Metrics) RecordOutcome(analyzer, outcome string) {
	m.mu.Lock()
	m.outcomes[[2]string{analyzer, outcome}]++
	m.mu.Unlock()
}

// Outcome returns how many results of the given kind were recorded.
func (m *Metrics) Outcome(analyzer, outcome string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[[2]string{analyzer, outcome}]
}

// RecordLLMRequest records one provider call.
func (m *Metrics) RecordLLMRequest(provider string, d time.Duration, tokens int, err error) {
	m.mu.Lock()
	m.requests[provider]++
	m.tokens[provider] += uint64(tokens)
	if err != nil {
		m.errors[provider]++
	}
	m.mu.Unlock()
	m.latency.Observe(d.Seconds())
}

// RecordRewrite counts one string rewrite by status.
func (m *Metrics) RecordRewrite(result string) {
	m.mu.Lock()
	m.rewrites[result]++
	m.mu.Unlock()
}

// Requests returns the number of provider calls recorded for provider.
func (m *Metrics) Requests(provider string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[provider]
}

// TrackInFlight marks one analysis as running; call the returned func when done.
func (m *Metrics) TrackInFlight() func() {
	m.inFlight.Add(1)
	return func() { m.inFlight.Add(-1) }
}

// InFlight returns the number of running analyses.
func (m *Metrics) InFlight() int64 { return m.inFlight.Load() }

// Handler returns an HTTP handler serving the metrics.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.WriteTo(w)
	})
}

// WriteTo writes all metrics in Prometheus text format, sorted by label.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	m.mu.Lock()
	header(cw, "lodestone_analyses_total", "counter", "Analyzer results by outcome")
	keys := make([][2]string, 0, len(m.outcomes))
	for k := range m.outcomes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		fmt.Fprintf(cw, "lodestone_analyses_total{analyzer=%q,outcome=%q} %d\n", k[0], k[1], m.outcomes[k])
	}

	writeByLabel(cw, "lodestone_llm_requests_total", "Provider calls", "provider", m.requests)
	writeByLabel(cw, "lodestone_llm_errors_total", "Failed provider calls", "provider", m.errors)
	writeByLabel(cw, "lodestone_llm_tokens_total", "Tokens reported by providers", "provider", m.tokens)
	writeByLabel(cw, "lodestone_rewrites_total", "String rewrites by result", "result", m.rewrites)
	m.mu.Unlock()

	header(cw, "lodestone_analyses_in_flight", "gauge", "Analyses currently running")
	fmt.Fprintf(cw, "lodestone_analyses_in_flight %d\n", m.inFlight.Load())

	m.latency.write(cw, "lodestone_llm_request_duration_seconds", "Provider call latency")
	return cw.n, cw.err
}

func header(w io.Writer, name, kind, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func writeByLabel(w io.Writer, name, help, label string, values map[string]uint64) {
	header(w, name, "counter", help)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

// Histogram tracks a distribution of values over fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// NewHistogram creates a histogram with the given upper bounds.
func NewHistogram(buckets []float64) *Histogram {
	return &Histogram{buckets: buckets, counts: make([]uint64, len(buckets))}
}

// DefaultBuckets returns latency buckets in seconds sized for chat completions.
func DefaultBuckets() []float64 {
	return []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
			break
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) write(w io.Writer, name, help string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	header(w, name, "histogram", help)
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'g', -1, 64), cumulative)
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", name, h.count)
	fmt.Fprintf(w, "%s_sum %s\n", name, strconv.FormatFloat(h.sum, 'g', -1, 64))
	fmt.Fprintf(w, "%s_count %d\n", name, h.count)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
