package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	// routeOutcomes counts /route and /route/nearest results by outcome
	routeOutcomes *prometheus.CounterVec
	incidents     prometheus.Counter
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "saferoute_http_requests_total",
			Help: "HTTP requests by handler, method and status code",
		}, []string{"handler", "method", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saferoute_http_request_duration_seconds",
			Help:    "HTTP request latency by handler",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"handler", "method", "code"}),
		routeOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "saferoute_route_outcomes_total",
			Help: "Route requests by outcome",
		}, []string{"outcome"}),
		incidents: f.NewCounter(prometheus.CounterOpts{
			Name: "saferoute_incidents_recorded_total",
			Help: "Incidents accepted through the API",
		}),
	}
}

// instrument wraps h with request counting and latency tracking under name.
func (m *httpMetrics) instrument(name string, h http.HandlerFunc) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), h))
}

func (m *httpMetrics) outcome(o string) {
	m.routeOutcomes.WithLabelValues(o).Inc()
}
