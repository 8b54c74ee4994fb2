package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	s, err := NewServer(Config{
		CORSOrigin:     "*",
		TimeoutSec:     15,
		Pipeline:       pipeline.DefaultConfig(),
		OverlayEnabled: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, s.pipeline)
	assert.Equal(t, int64(50), s.maxUploadMB)
	assert.Equal(t, "15s", s.timeout.String())
	assert.Nil(t, s.rateLimiter)
	assert.NotNil(t, s.overlayColor)
}

func TestNewServer_RateLimit(t *testing.T) {
	s, err := NewServer(Config{
		Pipeline:  pipeline.DefaultConfig(),
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerMinute: 2},
	})
	require.NoError(t, err)
	require.NotNil(t, s.rateLimiter)
	assert.Equal(t, 2, s.rateLimiter.requestsPerMinute)
}

func TestNewServer_Errors(t *testing.T) {
	bad := pipeline.DefaultConfig()
	bad.Detector.BinWidth = 7
	_, err := NewServer(Config{Pipeline: bad})
	require.ErrorIs(t, err, detector.ErrInvalidConfig)

	_, err = NewServer(Config{Pipeline: pipeline.DefaultConfig(), OverlayColor: "#12"})
	require.Error(t, err)
}

func TestSetupRoutes(t *testing.T) {
	h := newTestServer(&mockLocator{}).Handler()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/locate/image", http.StatusMethodNotAllowed},
		{http.MethodGet, "/locate/pdf", http.StatusMethodNotAllowed},
		{http.MethodGet, "/locate/batch", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/locate/image", http.StatusOK},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&mockLocator{}).Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "barloc_http_requests_total")
}
