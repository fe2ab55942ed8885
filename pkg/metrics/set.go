package metrics

import (
	"runtime"
	"strconv"
	"time"
)

// Namespace prefixes every chessinsight metric.
const Namespace = "chessinsight"

// Bucket layouts in seconds. Engine searches run much longer than plain
// HTTP handlers, so they get their own.
var (
	HTTPBuckets     = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	AnalysisBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60}
)

// Set is the metrics chessinsight exposes.
type Set struct {
	Registry *Registry

	HTTPRequests     *Counter   // method, route, status
	HTTPDuration     *Histogram // route
	Analyses         *Counter   // outcome
	AnalysisDuration *Histogram
	EngineUp         *Gauge
	Uptime           *Gauge
	Goroutines       *Gauge
	HeapAlloc        *Gauge
	GCCycles         *Gauge

	started time.Time
}

// NewSet registers the chessinsight metrics on a fresh registry. engineUp
// is sampled on every scrape; it may be nil.
func NewSet(engineUp func() bool) *Set {
	r := NewRegistry()
	s := &Set{
		Registry: r,
		HTTPRequests: r.NewCounter(Namespace+"_http_requests_total",
			"HTTP requests by method, route pattern and status code.", "method", "route", "status"),
		HTTPDuration: r.NewHistogram(Namespace+"_http_request_duration_seconds",
			"HTTP request latency by route pattern.", HTTPBuckets, "route"),
		Analyses: r.NewCounter(Namespace+"_analyses_total",
			"Position analyses by outcome: ok or an error code.", "outcome"),
		AnalysisDuration: r.NewHistogram(Namespace+"_analysis_duration_seconds",
			"Time spent waiting for the engine, including queueing behind other requests.", AnalysisBuckets),
		EngineUp: r.NewGauge(Namespace+"_engine_up",
			"1 while the engine process is running."),
		Uptime: r.NewGauge(Namespace+"_uptime_seconds",
			"Seconds since the server started."),
		Goroutines: r.NewGauge("go_goroutines",
			"Number of goroutines that currently exist."),
		HeapAlloc: r.NewGauge("go_memstats_heap_alloc_bytes",
			"Heap bytes allocated and still in use."),
		GCCycles: r.NewGauge("go_gc_cycles_total",
			"Completed GC cycles."),
		started: time.Now(),
	}

	r.OnScrape(func() {
		if engineUp != nil {
			up := 0.0
			if engineUp() {
				up = 1
			}
			s.EngineUp.With().Set(up)
		}
		s.Uptime.With().Set(time.Since(s.started).Seconds())

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		s.Goroutines.With().Set(float64(runtime.NumGoroutine()))
		s.HeapAlloc.With().Set(float64(mem.HeapAlloc))
		s.GCCycles.With().Set(float64(mem.NumGC))
	})
	return s
}

// ObserveAnalysis records one analysis and how long it took.
func (s *Set) ObserveAnalysis(outcome string, d time.Duration) {
	s.Analyses.With(outcome).Inc()
	s.AnalysisDuration.With().Observe(d.Seconds())
}

// ObserveRequest records one HTTP request. An empty route is reported as
// "unmatched" so unknown paths cannot blow up the label space.
func (s *Set) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	s.HTTPRequests.With(method, route, strconv.Itoa(status)).Inc()
	s.HTTPDuration.With(route).Observe(d.Seconds())
}
