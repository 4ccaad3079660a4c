// Package metrics exposes prometheus collectors for the extraction service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "purchase_worker"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	ExtractionsTotal *prometheus.CounterVec   // source, type
	StageDuration    *prometheus.HistogramVec // stage
	LLMCallsTotal    *prometheus.CounterVec   // outcome
	CacheLookups     *prometheus.CounterVec   // result
	DuplicatesTotal  prometheus.Counter
	NeedsReviewTotal prometheus.Counter
	StreamInFlight   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Processed emails by winning source and email type",
			},
			[]string{"source", "type"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of extraction stages",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
			},
			[]string{"stage"},
		),
		LLMCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "LLM extraction attempts by outcome",
			},
			[]string{"outcome"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by result",
			},
			[]string{"result"},
		),
		DuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_duplicates_total",
			Help:      "Inbound stream messages skipped as duplicates",
		}),
		NeedsReviewTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "needs_review_total",
			Help:      "Results flagged for manual review",
		}),
		StreamInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_in_flight",
			Help:      "Stream messages currently being processed",
		}),
	}
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
