package server

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// locator defines the methods needed by the server from a pipeline.
type locator interface {
	ProcessImageContext(ctx context.Context, img image.Image) (*pipeline.ImageResult, error)
	ProcessPDFContext(ctx context.Context, filename string, pageRange string) (*pipeline.PDFResult, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline       locator
	corsOrigin     string
	maxUploadMB    int64
	timeout        time.Duration
	overlayEnabled bool
	overlayColor   color.Color
	rateLimiter    *RateLimiter
	version        string
	logger         *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	Pipeline       pipeline.Config
	OverlayEnabled bool
	OverlayColor   string
	RateLimit      RateLimitConfig
	Version        string
	Logger         *slog.Logger
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// LocateResponse wraps the result of a localization request.
type LocateResponse struct {
	Success bool                  `json:"success"`
	Image   *pipeline.ImageResult `json:"image,omitempty"`
	PDF     *pipeline.PDFResult   `json:"pdf,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// NewServer creates a new localization server instance.
func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pl, err := pipeline.New(config.Pipeline, pipeline.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	colorStr := config.OverlayColor
	if colorStr == "" {
		colorStr = pipeline.DefaultOverlayColor
	}
	col, err := pipeline.ParseColor(colorStr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		pipeline:       pl,
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		overlayEnabled: config.OverlayEnabled,
		overlayColor:   col,
		version:        config.Version,
		logger:         logger,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/locate/image", s.corsMiddleware(s.rateLimitMiddleware(s.locateImageHandler)))
	mux.HandleFunc("/locate/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.locatePDFHandler)))
	mux.HandleFunc("/locate/batch", s.corsMiddleware(s.rateLimitMiddleware(s.locateBatchHandler)))
	mux.HandleFunc("/ws/locate", s.rateLimitMiddleware(s.locateWebSocketHandler))
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// requestContext applies the configured request timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) uploadLimit() int64 { return s.maxUploadMB * 1024 * 1024 }
