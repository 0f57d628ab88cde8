// Package prometheus provides Prometheus metrics exporters for flowforge pipeline runs.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowforge"

var (
	// runDuration is a histogram of total run execution duration.
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Histogram of total pipeline run execution duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"status"}, // status: success, error
	)

	// runsActive is a gauge of currently active pipeline runs.
	runsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of currently active pipeline runs",
		},
	)

	// stepDuration is a histogram of step processing duration in seconds.
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Histogram of step processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// stepElementsTotal is a counter of items processed by a step.
	stepElementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_elements_total",
			Help:      "Total number of items processed by step",
		},
		[]string{"step", "status"}, // status: success, error
	)

	// stepRetriesTotal is a counter of retry attempts per step.
	stepRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_retries_total",
			Help:      "Total number of retry attempts per step",
		},
		[]string{"step"},
	)

	// stepInFlight is a gauge of items currently in flight for a step.
	stepInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_in_flight",
			Help:      "Number of items currently in flight for a step",
		},
		[]string{"step"},
	)

	// backpressureBufferDepth is a gauge of the current backpressure buffer depth per step.
	backpressureBufferDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backpressure_buffer_depth",
			Help:      "Current backpressure buffer depth per step",
		},
		[]string{"step"},
	)

	// backpressureItemsDroppedTotal is a counter of items dropped under backpressure.
	backpressureItemsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_items_dropped_total",
			Help:      "Total number of items dropped by a DROP backpressure strategy",
		},
		[]string{"step"},
	)

	// itemsConsumedTotal is a counter of items consumed by a run.
	itemsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_consumed_total",
			Help:      "Total number of items consumed by a pipeline run",
		},
		[]string{"status"},
	)

	// itemsProducedTotal is a counter of items produced by a run.
	itemsProducedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_produced_total",
			Help:      "Total number of items produced by a pipeline run",
		},
		[]string{"status"},
	)

	// itemSuccessTotal is an item-level success/failure SLO counter.
	itemSuccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_success_total",
			Help:      "Total number of items that completed the pipeline successfully or were dropped",
		},
		[]string{"step", "outcome"}, // outcome: success, failed, dropped
	)

	// cacheDecisionsTotal is a counter of cache policy enforcement decisions.
	cacheDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_decisions_total",
			Help:      "Total number of cache policy enforcement decisions",
		},
		[]string{"step", "policy", "hit"},
	)

	// killSwitchTriggeredTotal is a counter of retry-amplification kill-switch triggers.
	killSwitchTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kill_switch_triggered_total",
			Help:      "Total number of times the retry-amplification kill-switch triggered",
		},
		[]string{"step", "mode"}, // mode: fail-fast, log-only
	)

	// healthTransitionsTotal is a counter of health-gate state transitions.
	healthTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_transitions_total",
			Help:      "Total number of health-gate state transitions",
		},
		[]string{"step", "from", "to"},
	)

	// allMetrics is the list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		runDuration,
		runsActive,
		stepDuration,
		stepElementsTotal,
		stepRetriesTotal,
		stepInFlight,
		backpressureBufferDepth,
		backpressureItemsDroppedTotal,
		itemsConsumedTotal,
		itemsProducedTotal,
		itemSuccessTotal,
		cacheDecisionsTotal,
		killSwitchTriggeredTotal,
		healthTransitionsTotal,
	}
)

// RecordRunStart records the start of a pipeline run.
func RecordRunStart() {
	runsActive.Inc()
}

// RecordRunEnd records the completion of a pipeline run.
func RecordRunEnd(status string, durationSeconds float64) {
	runsActive.Dec()
	runDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordStepDuration records the duration of one step invocation.
func RecordStepDuration(step string, durationSeconds float64) {
	stepDuration.WithLabelValues(step).Observe(durationSeconds)
}

// RecordStepElement records one item processed by a step.
func RecordStepElement(step, status string) {
	stepElementsTotal.WithLabelValues(step, status).Inc()
}

// RecordStepRetry records one retry attempt for a step.
func RecordStepRetry(step string) {
	stepRetriesTotal.WithLabelValues(step).Inc()
}

// SetStepInFlight sets the current in-flight item count for a step.
func SetStepInFlight(step string, n float64) {
	stepInFlight.WithLabelValues(step).Set(n)
}

// SetBackpressureBufferDepth sets the current backpressure buffer depth for a step.
func SetBackpressureBufferDepth(step string, depth float64) {
	backpressureBufferDepth.WithLabelValues(step).Set(depth)
}

// RecordBackpressureItemsDropped records items dropped by a DROP backpressure strategy.
func RecordBackpressureItemsDropped(step string, n int) {
	if n > 0 {
		backpressureItemsDroppedTotal.WithLabelValues(step).Add(float64(n))
	}
}

// RecordItemsConsumed records items consumed by a run.
func RecordItemsConsumed(status string, n int) {
	if n > 0 {
		itemsConsumedTotal.WithLabelValues(status).Add(float64(n))
	}
}

// RecordItemsProduced records items produced by a run.
func RecordItemsProduced(status string, n int) {
	if n > 0 {
		itemsProducedTotal.WithLabelValues(status).Add(float64(n))
	}
}

// RecordItemOutcome records one item's terminal outcome for a step, for SLO tracking.
func RecordItemOutcome(step, outcome string) {
	itemSuccessTotal.WithLabelValues(step, outcome).Inc()
}

// RecordCacheDecision records one cache policy enforcement decision.
func RecordCacheDecision(step, policy string, hit bool) {
	hitLabel := "false"
	if hit {
		hitLabel = "true"
	}
	cacheDecisionsTotal.WithLabelValues(step, policy, hitLabel).Inc()
}

// RecordKillSwitchTriggered records a retry-amplification kill-switch trigger.
func RecordKillSwitchTriggered(step, mode string) {
	killSwitchTriggeredTotal.WithLabelValues(step, mode).Inc()
}

// RecordHealthTransition records a health-gate state transition.
func RecordHealthTransition(step, from, to string) {
	healthTransitionsTotal.WithLabelValues(step, from, to).Inc()
}
