// Package monitoring holds the Prometheus metrics and the model artifact
// staleness watcher.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the service's Prometheus metrics on a private registry
// so the default Go collectors do not leak into the scrape.
type Metrics struct {
	registry *prometheus.Registry

	predictionsTotal    *prometheus.CounterVec
	predictionLatency   prometheus.Histogram
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		predictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcast",
			Name:      "predictions_total",
			Help:      "Predictions served, by winning team.",
		}, []string{"winner"}),
		predictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchcast",
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end latency of the predict pipeline.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcast",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "matchcast",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// ObservePrediction records one served prediction and its latency.
func (m *Metrics) ObservePrediction(winner string, duration time.Duration) {
	m.predictionsTotal.WithLabelValues(winner).Inc()
	m.predictionLatency.Observe(duration.Seconds())
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
