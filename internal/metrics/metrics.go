package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// SolveRuns counts solve outcomes by status (done, failed, invalid).
	SolveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solve_runs_total", Help: "Solve runs by outcome."},
		[]string{"status"},
	)
	// SolveDuration tracks wall-clock solving time in seconds.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solve wall-clock duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}},
	)
	// SolveUnassigned observes how many tasks each run left unassigned.
	SolveUnassigned = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_unassigned_tasks", Help: "Unassigned tasks per solve run.", Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100}},
	)
	// RepairOutcomes counts budget-repair route outcomes.
	RepairOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "budget_repair_routes_total", Help: "Budget repair route outcomes."},
		[]string{"outcome"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds.
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveRuns)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolveUnassigned)
		Registry.MustRegister(RepairOutcomes)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
