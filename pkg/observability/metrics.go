package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "partplan"

// Metrics holds the Prometheus collectors for table events and HTTP
// traffic. It implements [TableHooks], so a table built with
// partition.WithHooks(m) feeds the counters directly.
//
// Collectors are registered on a private registry; expose them with
// [Metrics.Handler].
type Metrics struct {
	registry *prometheus.Registry

	relayouts       prometheus.Counter
	moved           prometheus.Counter
	resizeAttempts  *prometheus.CounterVec
	resizes         *prometheus.CounterVec
	evictions       prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		relayouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "relayouts_total",
			Help:      "Total number of reordering and offset passes",
		}),
		moved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "partitions_moved_total",
			Help:      "Total number of table positions changed by reordering",
		}),
		resizeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resize_candidates_total",
			Help:      "Candidate sizes tried by the resize search",
		}, []string{"fits"}),
		resizes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resizes_total",
			Help:      "Resize calls by outcome",
		}, []string{"result"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "evictions_total",
			Help:      "Partitions evicted by capacity or table location changes",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.relayouts, m.moved, m.resizeAttempts, m.resizes, m.evictions,
		m.requests, m.requestDuration,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) OnRelayout(_, moved int) {
	m.relayouts.Inc()
	m.moved.Add(float64(moved))
}

func (m *Metrics) OnResizeAttempt(_ string, _ int64, fits bool) {
	m.resizeAttempts.WithLabelValues(strconv.FormatBool(fits)).Inc()
}

func (m *Metrics) OnResizeComplete(_ string, _, _ int64, err error) {
	result := "ok"
	if err != nil {
		result = "rolled_back"
	}
	m.resizes.WithLabelValues(result).Inc()
}

func (m *Metrics) OnEvict(string, int64, int64) {
	m.evictions.Inc()
}
