// Package metrics exposes Prometheus collectors for the HTTP surface and the
// sequence reconciliation runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "relay"

// Triggers label how a run was started.
const (
	TriggerHTTP      = "http"
	TriggerQueue     = "queue"
	TriggerScheduled = "scheduled"
)

// Collector is a prometheus.Collector with every relay metric.
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	appliedValues *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewCollector returns a Collector. Register it before use.
func NewCollector() *Collector {
	return &Collector{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route", "status"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_inflight_requests",
				Help:      "Number of HTTP requests currently being served.",
			},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_runs_total",
				Help:      "Reconciliation runs by trigger and batch status (success, partial, failed, error).",
			}, []string{"trigger", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconciliation_duration_seconds",
				Help:      "Wall time of a reconciliation run.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			}, []string{"trigger"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_outcomes_total",
				Help:      "Per-sequence outcomes by status and failure kind.",
			}, []string{"status", "failure_kind"},
		),
		appliedValues: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sequence_applied_value",
				Help:      "Last counter value written for each sequence.",
			}, []string{"sequence"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reconciliation_last_run_timestamp_seconds",
				Help:      "Unix time at which the last reconciliation run finished.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.httpInFlight.Describe(ch)
	c.runs.Describe(ch)
	c.runDuration.Describe(ch)
	c.outcomes.Describe(ch)
	c.appliedValues.Describe(ch)
	c.lastRun.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.httpInFlight.Collect(ch)
	c.runs.Collect(ch)
	c.runDuration.Collect(ch)
	c.outcomes.Collect(ch)
	c.appliedValues.Collect(ch)
	c.lastRun.Collect(ch)
}

// NewRegistry returns a registry holding c plus the Go runtime and process
// collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RequestStarted marks one more in-flight request and returns the func that
// records it once the response status is known.
func (c *Collector) RequestStarted(method string) func(route string, status int) {
	start := time.Now()
	c.httpInFlight.Inc()
	return func(route string, status int) {
		c.httpInFlight.Dec()
		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		c.httpRequests.With(labels).Inc()
		c.httpDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// ObserveBatch records a finished run.
func (c *Collector) ObserveBatch(trigger string, result *model.BatchResult) {
	c.runs.WithLabelValues(trigger, string(result.Status())).Inc()
	c.runDuration.WithLabelValues(trigger).Observe(result.Duration().Seconds())
	c.lastRun.Set(float64(result.FinishedAt.Unix()))

	for _, o := range result.Outcomes {
		c.outcomes.WithLabelValues(string(o.Status), string(o.FailureKind)).Inc()
		if o.Status == model.OutcomeApplied && o.AppliedValue != nil {
			c.appliedValues.WithLabelValues(o.SequenceName).Set(float64(*o.AppliedValue))
		}
	}
}

// ObserveOrchestrationError records a run that could not start.
func (c *Collector) ObserveOrchestrationError(trigger string) {
	c.runs.WithLabelValues(trigger, "error").Inc()
}
