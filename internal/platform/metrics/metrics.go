// Package metrics holds the prometheus collectors for the cross-post engine
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crossposter"

// Metrics owns a registry and every collector on it
// A nil *Metrics is valid and records nothing
type Metrics struct {
	Registry *prometheus.Registry

	Approvals      *prometheus.CounterVec
	Dispatches     prometheus.Counter
	PublishResults *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec
	SweepExpired   prometheus.Counter
	SweepPruned    prometheus.Counter
	TrackedPosts   prometheus.Gauge
	BreakerState   *prometheus.GaugeVec
	HTTPRequests   *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "approvals_total",
			Help: "Approval events by gate result",
		}, []string{"result"}),
		Dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dispatches_total",
			Help: "Dispatches started",
		}),
		PublishResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "publish_results_total",
			Help: "Publisher outcomes by destination",
		}, []string{"destination", "outcome"}),
		PublishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "publish_duration_seconds",
			Help:    "Publisher call latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"destination"}),
		SweepExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweep_expired_total",
			Help: "Pending posts expired and removed by the sweeper",
		}),
		SweepPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweep_pruned_total",
			Help: "Published posts pruned after retention",
		}),
		TrackedPosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tracked_posts",
			Help: "Posts currently held by the registry",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state",
			Help: "Circuit breaker state per client (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Approvals, m.Dispatches, m.PublishResults, m.PublishLatency,
		m.SweepExpired, m.SweepPruned, m.TrackedPosts, m.BreakerState, m.HTTPRequests,
	)
	return m
}

// Approval counts one gate result
func (m *Metrics) Approval(result string) {
	if m == nil {
		return
	}
	m.Approvals.WithLabelValues(result).Inc()
}

// Dispatch counts one dispatch start
func (m *Metrics) Dispatch() {
	if m == nil {
		return
	}
	m.Dispatches.Inc()
}

// Publish records one publisher outcome
func (m *Metrics) Publish(destination string, ok bool, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.PublishResults.WithLabelValues(destination, outcome).Inc()
	m.PublishLatency.WithLabelValues(destination).Observe(took.Seconds())
}

// Swept records one sweep pass
func (m *Metrics) Swept(expired, pruned, remaining int) {
	if m == nil {
		return
	}
	m.SweepExpired.Add(float64(expired))
	m.SweepPruned.Add(float64(pruned))
	m.TrackedPosts.Set(float64(remaining))
}

// Tracked sets the registry size gauge
func (m *Metrics) Tracked(n int) {
	if m == nil {
		return
	}
	m.TrackedPosts.Set(float64(n))
}

// Breaker records a circuit breaker state (0 closed, 1 half-open, 2 open)
func (m *Metrics) Breaker(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by chi route pattern so ids do not explode cardinality
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
	})
}
