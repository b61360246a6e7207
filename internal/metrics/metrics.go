// Package metrics exposes pipeline counters and the document status gauges
// to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "edinet"

	stageLabel   = "stage"
	statusLabel  = "status"
	outcomeLabel = "outcome"
)

var stageTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_transitions_total",
		Help:      "Substage status transitions written by the pipeline.",
	},
	[]string{stageLabel, statusLabel},
)

var documentsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_processed_total",
		Help:      "Documents driven through one pipeline pass, by outcome.",
	},
	[]string{outcomeLabel},
)

var processDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "document_process_seconds",
		Help:      "Time spent on one pipeline pass of a document.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60},
	},
)

var documentsIngested = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_ingested_total",
		Help:      "Documents newly registered from registry listings.",
	},
)

var valuesStored = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "financial_values_total",
		Help:      "Financial values extracted, by statement stage.",
	},
	[]string{stageLabel},
)

// Document pass outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeRemoved = "removed"
	OutcomeFailed  = "failed"
)

// RecordStage counts a substage status write.
func RecordStage(stage, status string) {
	stageTransitions.With(prometheus.Labels{stageLabel: stage, statusLabel: status}).Inc()
}

// RecordDocument counts a finished pipeline pass and its duration.
func RecordDocument(outcome string, seconds float64) {
	documentsProcessed.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
	processDuration.Observe(seconds)
}

// RecordIngested counts newly registered documents.
func RecordIngested(n int) {
	documentsIngested.Add(float64(n))
}

// RecordValues counts stored financial values of a statement.
func RecordValues(stage string, n int) {
	valuesStored.With(prometheus.Labels{stageLabel: stage}).Add(float64(n))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(stageTransitions)
	prometheus.MustRegister(documentsProcessed)
	prometheus.MustRegister(processDuration)
	prometheus.MustRegister(documentsIngested)
	prometheus.MustRegister(valuesStored)
}
