package server

import (
	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docrect_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docrect_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Rectification metrics
	rectifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docrect_rectify_requests_total",
			Help: "Total number of rectification requests",
		},
		[]string{"source", "status"}, // source: http, websocket, batch, detect
	)

	rectifyOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docrect_rectify_outcomes_total",
			Help: "Rectification results by method and fallback reason",
		},
		[]string{"method", "reason"},
	)

	rectifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docrect_rectify_duration_seconds",
			Help:    "Time spent rectifying one document",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	detectionConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docrect_detection_confidence",
			Help:    "Fraction of quadrants with a strong corner",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 1},
		},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docrect_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docrect_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docrect_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docrect_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// observeOutput records the outcome metrics of one processed document.
func observeOutput(source string, out *pipeline.Output) {
	rectifyRequestsTotal.WithLabelValues(source, "success").Inc()
	rectifyOutcomesTotal.WithLabelValues(string(out.Method), out.Reason).Inc()
	rectifyDuration.WithLabelValues(source).Observe(out.Duration.Seconds())
	detectionConfidence.Observe(out.Confidence)
}
