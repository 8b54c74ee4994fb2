package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "barloc"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by method, endpoint and status code.",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "http",
		Name:    "request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// type is one of image, pdf, batch, websocket.
	locateRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "locate_requests_total",
		Help:      "Localization requests by input type and outcome.",
	}, []string{"type", "status"})

	locateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "locate_duration_seconds",
		Help:      "Time spent localizing one request.",
		Buckets:   prometheus.ExponentialBucketsRange(0.005, 10, 11),
	}, []string{"type"})

	regionsFound = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "regions_found",
		Help:      "Candidate regions returned per request.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
	}, []string{"type"})

	// type is one of minute, hour, requests, data.
	rateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rate_limit_hits_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"type"})

	uploadSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "upload_size_bytes",
		Help:      "Size of uploaded files.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 9),
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "websocket",
		Name: "active_connections",
		Help: "Open WebSocket connections.",
	})

	// direction is sent or received.
	websocketMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "websocket",
		Name: "messages_total",
		Help: "WebSocket messages.",
	}, []string{"direction"})
)
