// Package metrics collects counters, gauges and histograms and serves them
// in the Prometheus text exposition format (version 0.0.4).
//
// A Registry owns a set of metric families. Families may declare label
// names; With returns the series for one combination of label values and
// creates it on first use. All operations are safe for concurrent use.
//
//	reg := metrics.NewRegistry()
//	analyses := reg.NewCounter("analyses_total", "Analyses by outcome", "outcome")
//	analyses.With("ok").Inc()
//	http.Handle("GET /metrics", reg.Handler())
//
// NewSet registers the chessinsight metrics on a registry.
package metrics
