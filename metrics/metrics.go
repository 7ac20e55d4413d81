// Package metrics exposes Prometheus instrumentation for scrape runs.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "projectscraper"

// Metrics holds the collectors updated by the engine and the run service.
type Metrics struct {
	FetchAttempts  *prometheus.CounterVec
	RecordsTotal   *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	LastRunQuality prometheus.Gauge
	LastRunRecords prometheus.Gauge
}

// New creates and registers the collectors on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fetch_attempts_total",
			Help:      "Page fetch attempts by outcome",
		}, []string{"outcome"}),
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "records_total",
			Help:      "Raw records produced by extraction status",
		}, []string{"status"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Completed runs by result",
		}, []string{"result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of a full fetch-normalize-export-notify run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRunQuality: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_average_quality_score",
			Help:      "Average data quality score of the last exported batch",
		}),
		LastRunRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_records",
			Help:      "Normalized records in the last batch",
		}),
	}
}

func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRecord(status string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(status).Inc()
}

// ObserveRun records a finished run. result is "success" or "failure".
func (m *Metrics) ObserveRun(result string, d time.Duration, records int, avgQuality float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.LastRunRecords.Set(float64(records))
	m.LastRunQuality.Set(avgQuality)
}
