package replay

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus metrics for replay engines.
//
// Metrics exposed (all namespaced with "algoreplay_"):
//
// 1. passes_total (counter): Replay passes by outcome.
// Labels: outcome (complete, rewind, fatal, cancelled).
//
// 2. steps_total (counter): Suspension points reached.
// Labels: kind (historical, skipped, live).
// Use: Ratio of historical to live steps shows how much work each rewind costs.
//
// 3. rewinds_total (counter): Accepted RewindSignals.
// Labels: trigger (step-backward, fast-backward, configure).
//
// 4. pass_latency_ms (histogram): Wall time of one pass, including time spent
// waiting at live suspension points.
//
// 5. log_length (gauge): Number of actions in the ActionLog after the last pass.
//
// 6. replay_mismatches_total (counter): Actions that completed with a step
// count different from their finalized stop.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := replay.NewPrometheusMetrics(registry)
//	engine, _ := replay.New(newScene, replay.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// A nil *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	passes     *prometheus.CounterVec
	steps      *prometheus.CounterVec
	rewinds    *prometheus.CounterVec
	mismatches prometheus.Counter

	passLatency prometheus.Histogram
	logLength   prometheus.Gauge

	registry prometheus.Registerer

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers the engine metrics with registry. A nil
// registry uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.passes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "algoreplay",
		Name:      "passes_total",
		Help:      "Replay passes over the action log by outcome",
	}, []string{"outcome"})

	pm.steps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "algoreplay",
		Name:      "steps_total",
		Help:      "Suspension points reached by kind",
	}, []string{"kind"}) // kind: historical, skipped, live

	pm.rewinds = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "algoreplay",
		Name:      "rewinds_total",
		Help:      "Rewind signals accepted by trigger",
	}, []string{"trigger"})

	pm.mismatches = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "algoreplay",
		Name:      "replay_mismatches_total",
		Help:      "Actions whose live step count differed from the finalized stop",
	})

	pm.passLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "algoreplay",
		Name:      "pass_latency_ms",
		Help:      "Replay pass duration in milliseconds, including live waits",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
	})

	pm.logLength = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "algoreplay",
		Name:      "log_length",
		Help:      "Number of actions in the action log",
	})

	return pm
}

func (pm *PrometheusMetrics) on() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordPass records the outcome and duration of one pass.
func (pm *PrometheusMetrics) RecordPass(outcome string, latency time.Duration) {
	if !pm.on() {
		return
	}
	pm.passes.WithLabelValues(outcome).Inc()
	pm.passLatency.Observe(float64(latency.Milliseconds()))
}

// IncrementSteps counts one suspension point of the given kind.
func (pm *PrometheusMetrics) IncrementSteps(kind string) {
	if !pm.on() {
		return
	}
	pm.steps.WithLabelValues(kind).Inc()
}

// IncrementRewinds counts one accepted rewind.
func (pm *PrometheusMetrics) IncrementRewinds(trigger Trigger) {
	if !pm.on() {
		return
	}
	pm.rewinds.WithLabelValues(trigger.String()).Inc()
}

// IncrementMismatches counts one replay mismatch.
func (pm *PrometheusMetrics) IncrementMismatches() {
	if !pm.on() {
		return
	}
	pm.mismatches.Inc()
}

// UpdateLogLength sets the action log length gauge.
func (pm *PrometheusMetrics) UpdateLogLength(n int) {
	if !pm.on() {
		return
	}
	pm.logLength.Set(float64(n))
}

// Disable stops recording. Useful in tests.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes recording.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Reset zeroes the gauges. Counters are cumulative and are not reset.
func (pm *PrometheusMetrics) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.logLength.Set(0)
}
