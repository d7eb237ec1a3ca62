// Package metrics exposes Prometheus collectors for the analysis engine,
// grounded on DaveintDBN-luno's cmd/bot/api/server.go metrics block:
// package-level collector vars registered once, tolerating
// AlreadyRegisteredError so repeated construction in tests doesn't panic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pattern_engine_analyses_total",
		Help: "Total number of Analyze calls, partitioned by outcome.",
	}, []string{"outcome"})

	AnalysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pattern_engine_analysis_duration_seconds",
		Help:    "Wall-clock duration of a full Analyze call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	PatternsDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pattern_engine_patterns_detected_total",
		Help: "Patterns surviving the acceptance pipeline, partitioned by kind.",
	}, []string{"kind"})

	DetectorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pattern_engine_detector_duration_seconds",
		Help:    "Duration of one detector family's dispatch call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"family"})
)

// Register adds every collector to the default registry, tolerating a
// collector that's already registered (repeated construction in tests).
func Register() {
	for _, c := range []prometheus.Collector{AnalysesTotal, AnalysisDuration, PatternsDetected, DetectorDuration} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
