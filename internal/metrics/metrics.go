// Package metrics holds the Prometheus collectors for analysis runs and source lookups.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics provides observability for analyses and screenings.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	AnalysisRuns      *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	FlaggedPairs      prometheus.Counter
	FlaggedValue      prometheus.Counter
	PatternsDetected  *prometheus.CounterVec
	LookupDuration    *prometheus.HistogramVec
	LookupOutcomes    *prometheus.CounterVec
	LookupCacheHits   prometheus.Counter
	ScreeningsByLevel *prometheus.CounterVec
	AlertsReviewed    prometheus.Counter
}

// New creates a Metrics instance registered on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnalysisRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_analysis_runs_total",
			Help: "Analysis runs by outcome",
		}, []string{"outcome"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosscheck_analysis_duration_seconds",
			Help:    "Duration of a full analysis run",
			Buckets: durationBuckets,
		}),
		FlaggedPairs: f.NewCounter(prometheus.CounterOpts{
			Name: "crosscheck_flagged_pairs_total",
			Help: "Contract and sanction pairs flagged across all runs",
		}),
		FlaggedValue: f.NewCounter(prometheus.CounterOpts{
			Name: "crosscheck_flagged_value_total",
			Help: "Sum of contract values in flagged pairs",
		}),
		PatternsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_patterns_detected_total",
			Help: "Suspicious patterns by kind",
		}, []string{"kind"}),
		LookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosscheck_source_lookup_duration_seconds",
			Help:    "Latency of one source lookup",
			Buckets: durationBuckets,
		}, []string{"source"}),
		LookupOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_source_lookups_total",
			Help: "Source lookups by outcome (ok or error kind)",
		}, []string{"source", "outcome"}),
		LookupCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "crosscheck_source_lookup_cache_hits_total",
			Help: "Source lookups answered from cache",
		}),
		ScreeningsByLevel: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_screenings_total",
			Help: "Document screenings by resulting risk level",
		}, []string{"level"}),
		AlertsReviewed: f.NewCounter(prometheus.CounterOpts{
			Name: "crosscheck_alerts_reviewed_total",
			Help: "Integrity alerts marked as reviewed",
		}),
	}
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAnalysis records a finished analysis run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveAnalysis(start time.Time, err error, flagged int, flaggedValue float64) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.AnalysisRuns.WithLabelValues("error").Inc()
		return
	}
	m.AnalysisRuns.WithLabelValues("ok").Inc()
	m.FlaggedPairs.Add(float64(flagged))
	m.FlaggedValue.Add(flaggedValue)
}

// IncrementPattern records one detected pattern
func (m *Metrics) IncrementPattern(kind string) {
	if m == nil {
		return
	}
	m.PatternsDetected.WithLabelValues(kind).Inc()
}

// ObserveLookup records one source lookup. outcome is "ok" or an error kind.
func (m *Metrics) ObserveLookup(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(source).Observe(d.Seconds())
	m.LookupOutcomes.WithLabelValues(source, outcome).Inc()
}

// IncrementCacheHit records a lookup served from cache
func (m *Metrics) IncrementCacheHit() {
	if m == nil {
		return
	}
	m.LookupCacheHits.Inc()
}

// IncrementScreening records a finished screening
func (m *Metrics) IncrementScreening(level string) {
	if m == nil {
		return
	}
	m.ScreeningsByLevel.WithLabelValues(level).Inc()
}

// IncrementAlertReviewed records an alert review
func (m *Metrics) IncrementAlertReviewed() {
	if m == nil {
		return
	}
	m.AlertsReviewed.Inc()
}
