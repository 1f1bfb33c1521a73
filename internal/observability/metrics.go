// Package observability provides Prometheus metrics for the settlement engine.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roundsettle"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Indexer
	EventsFound      prometheus.Counter
	EventsInserted   prometheus.Counter
	EventsDuplicate  prometheus.Counter
	IndexErrors      *prometheus.CounterVec
	IndexedHeight    *prometheus.GaugeVec
	IndexRunDuration prometheus.Histogram

	// Finalize
	FinalizeOutcomes *prometheus.CounterVec
	FinalizeErrors   *prometheus.CounterVec
	StaleFinalize    prometheus.Gauge

	// Post-finalize
	SetupAttempts *prometheus.CounterVec
	SetupFailures *prometheus.CounterVec
	RoundsSettled prometheus.Counter

	// Outbox
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
}

// NewMetrics registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		EventsFound: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "indexer",
			Name: "events_found_total", Help: "Contributed events returned by log scans.",
		}),
		EventsInserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "indexer",
			Name: "events_inserted_total", Help: "Contributions written to the ledger.",
		}),
		EventsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "indexer",
			Name: "events_duplicate_total", Help: "Events skipped because the tx hash was already recorded.",
		}),
		IndexErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "indexer",
			Name: "errors_total", Help: "Indexer errors by stage.",
		}, []string{"stage"}),
		IndexedHeight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "indexer",
			Name: "checkpoint_block", Help: "Last fully indexed block per round.",
		}, []string{"round_id"}),
		IndexRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "indexer",
			Name: "run_duration_seconds", Help: "Duration of one indexing pass.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		FinalizeOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "finalize",
			Name: "outcomes_total", Help: "Finalize results by outcome.",
		}, []string{"result", "replayed"}),
		FinalizeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "finalize",
			Name: "errors_total", Help: "Finalize errors by kind.",
		}, []string{"kind"}),
		StaleFinalize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "finalize",
			Name: "stale_broadcast_requests", Help: "Broadcast finalize requests older than the stale threshold.",
		}),

		SetupAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "post_finalize",
			Name: "attempts_total", Help: "Setup sub-task attempts.",
		}, []string{"task"}),
		SetupFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "post_finalize",
			Name: "failures_total", Help: "Setup sub-task failures.",
		}, []string{"task"}),
		RoundsSettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "post_finalize",
			Name: "rounds_settled_total", Help: "Rounds that passed the success gate.",
		}),

		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "outbox",
			Name: "published_total", Help: "Outbox messages confirmed by the broker.",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "outbox",
			Name: "failed_total", Help: "Outbox publish failures.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IndexedEvents(found, inserted, duplicates int) {
	if m == nil {
		return
	}
	m.EventsFound.Add(float64(found))
	m.EventsInserted.Add(float64(inserted))
	m.EventsDuplicate.Add(float64(duplicates))
}

func (m *Metrics) IndexError(stage string) {
	if m == nil {
		return
	}
	m.IndexErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) Checkpoint(roundID string, block uint64) {
	if m == nil {
		return
	}
	m.IndexedHeight.WithLabelValues(roundID).Set(float64(block))
}

func (m *Metrics) IndexRun(seconds float64) {
	if m == nil {
		return
	}
	m.IndexRunDuration.Observe(seconds)
}

func (m *Metrics) FinalizeOutcome(result string, replayed bool) {
	if m == nil {
		return
	}
	r := "false"
	if replayed {
		r = "true"
	}
	m.FinalizeOutcomes.WithLabelValues(result, r).Inc()
}

func (m *Metrics) FinalizeError(kind string) {
	if m == nil {
		return
	}
	m.FinalizeErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) StaleFinalizeRequests(n int) {
	if m == nil {
		return
	}
	m.StaleFinalize.Set(float64(n))
}

func (m *Metrics) SetupAttempt(task string, failed bool) {
	if m == nil {
		return
	}
	m.SetupAttempts.WithLabelValues(task).Inc()
	if failed {
		m.SetupFailures.WithLabelValues(task).Inc()
	}
}

func (m *Metrics) RoundSettled() {
	if m == nil {
		return
	}
	m.RoundsSettled.Inc()
}

func (m *Metrics) OutboxResult(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.OutboxPublished.Inc()
	} else {
		m.OutboxFailed.Inc()
	}
}
