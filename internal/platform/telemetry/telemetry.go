// Package telemetry records HTTP server metrics and exposes them in the
// Prometheus text exposition format. It intentionally avoids the
// OpenTelemetry SDK; the metric names follow its HTTP semantic conventions.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// defaultDurationBuckets are request latency boundaries in seconds.
var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	cum := make([]int64, len(h.bucketCounts))
	var running int64
	for i, c := range h.bucketCounts {
		running += c
		cum[i] = running
	}
	return cum
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// GaugeFunc is sampled each time metrics are scraped.
type GaugeFunc func() int64

type gauge struct {
	name string
	help string
	fn   GaugeFunc
}

// Registry holds the HTTP metrics of one server process.
type Registry struct {
	mu        sync.RWMutex
	durations map[labels]*histogram
	requests  map[labels]*int64
	active    int64
	gauges    []gauge
	now       func() time.Time
}

type labels struct {
	method string
	route  string
	status string
}

func (l labels) String() string {
	return fmt.Sprintf("method=%q,route=%q,status_code=%q", l.method, l.route, l.status)
}

func NewRegistry() *Registry {
	return &Registry{
		durations: make(map[labels]*histogram),
		requests:  make(map[labels]*int64),
		now:       time.Now,
	}
}

// RegisterGauge adds a gauge whose value is read from fn at scrape time.
func (r *Registry) RegisterGauge(name, help string, fn GaugeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges = append(r.gauges, gauge{name: name, help: help, fn: fn})
}

func (r *Registry) observe(l labels, seconds float64) {
	r.mu.RLock()
	h, ok := r.durations[l]
	n := r.requests[l]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if h, ok = r.durations[l]; !ok {
			h = newHistogram(defaultDurationBuckets)
			n = new(int64)
			r.durations[l] = h
			r.requests[l] = n
		} else {
			n = r.requests[l]
		}
		r.mu.Unlock()
	}

	h.Observe(seconds)
	atomic.AddInt64(n, 1)
}

// RequestCount returns how many requests matched the given labels.
func (r *Registry) RequestCount(method, route string, status int) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.requests[labels{method, route, strconv.Itoa(status)}]
	if !ok {
		return 0
	}
	return atomic.LoadInt64(n)
}

// ActiveRequests returns the number of requests currently in flight.
func (r *Registry) ActiveRequests() int64 {
	return atomic.LoadInt64(&r.active)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// Middleware records request counts and durations keyed by method, route
// pattern and response status. Requests that matched no route are recorded
// under "unmatched" so that arbitrary paths do not grow the label set.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&r.active, 1)
			defer atomic.AddInt64(&r.active, -1)
			start := r.now()

			if err := next(c); err != nil {
				// Let the error handler write the response so the recorded
				// status is the one the client sees.
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if status == http.StatusNotFound && (route == "" || route == "/" || strings.HasSuffix(route, "/*")) {
				route = "unmatched"
			}
			r.observe(labels{c.Request().Method, route, strconv.Itoa(status)}, r.now().Sub(start).Seconds())
			return nil
		}
	}
}

// ---------------------------------------------------------------------------
// Exposition
// ---------------------------------------------------------------------------

// Handler serves all metrics in Prometheus text format.
func (r *Registry) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
		return c.String(http.StatusOK, r.Render())
	}
}

// Render returns the current metrics in Prometheus text format, with series
// sorted by label set.
func (r *Registry) Render() string {
	r.mu.RLock()
	keys := make([]labels, 0, len(r.durations))
	for l := range r.durations {
		keys = append(keys, l)
	}
	gauges := append([]gauge(nil), r.gauges...)
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var b strings.Builder

	b.WriteString("# HELP http_server_requests_total Total HTTP requests.\n")
	b.WriteString("# TYPE http_server_requests_total counter\n")
	for _, l := range keys {
		fmt.Fprintf(&b, "http_server_requests_total{%s} %d\n", l, r.RequestCount(l.method, l.route, atoiOrZero(l.status)))
	}
	b.WriteByte('\n')

	b.WriteString("# HELP http_server_request_duration_seconds Duration of HTTP requests in seconds.\n")
	b.WriteString("# TYPE http_server_request_duration_seconds histogram\n")
	for _, l := range keys {
		r.mu.RLock()
		h := r.durations[l]
		r.mu.RUnlock()
		writeHistogram(&b, "http_server_request_duration_seconds", l.String(), h)
	}
	b.WriteByte('\n')

	b.WriteString("# HELP http_server_active_requests Number of active HTTP requests.\n")
	b.WriteString("# TYPE http_server_active_requests gauge\n")
	fmt.Fprintf(&b, "http_server_active_requests %d\n\n", r.ActiveRequests())

	for _, g := range gauges {
		fmt.Fprintf(&b, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(&b, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(&b, "%s %d\n\n", g.name, g.fn())
	}
	return b.String()
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	total := h.Count()
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
