package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/barloc/internal/server"
	"github.com/MeKo-Tech/barloc/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the localization API",
	Long: `Start an HTTP server that provides REST API endpoints for candidate localization.

The server provides the following endpoints:
  POST /locate/image - Locate candidates in an uploaded image
  POST /locate/pdf   - Locate candidates in images embedded in an uploaded PDF
  POST /locate/batch - Locate candidates in up to 10 base64 encoded images
  GET  /ws/locate    - WebSocket endpoint for streaming images
  GET  /health       - Health check endpoint
  GET  /metrics      - Prometheus metrics

Examples:
  barloc serve
  barloc serve --port 8080 --kind linear
  barloc serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

// serverConfigFromFlags resolves the server configuration with CLI flag overrides.
func serverConfigFromFlags(cmd *cobra.Command) (server.Config, int, error) {
	cfg := GetConfig()
	flags := cmd.Flags()

	host := cfg.Server.Host
	if flags.Changed("host") {
		host, _ = flags.GetString("host")
	}

	port := cfg.Server.Port
	if flags.Changed("port") {
		port, _ = flags.GetInt("port")
	}
	if port < 1 || port > 65535 {
		return server.Config{}, 0, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	corsOrigin := cfg.Server.CORSOrigin
	if flags.Changed("cors-origin") {
		corsOrigin, _ = flags.GetString("cors-origin")
	}

	maxUploadSize := cfg.Server.MaxUploadMB
	if flags.Changed("max-upload-size") {
		maxUploadSize, _ = flags.GetInt("max-upload-size")
	}

	timeout := cfg.Server.TimeoutSec
	if flags.Changed("timeout") {
		timeout, _ = flags.GetInt("timeout")
	}
	if timeout <= 0 {
		return server.Config{}, 0, fmt.Errorf("invalid timeout: %d (must be positive)", timeout)
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if flags.Changed("shutdown-timeout") {
		shutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}

	overlayEnable := cfg.Server.OverlayEnabled
	if flags.Changed("overlay-enable") {
		overlayEnable, _ = flags.GetBool("overlay-enable")
	}

	overlayColor := cfg.Output.OverlayColor
	if flags.Changed("overlay-color") {
		overlayColor, _ = flags.GetString("overlay-color")
	}

	rl := cfg.Server.RateLimit
	if flags.Changed("rate-limit-enabled") {
		rl.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		rl.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		rl.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		rl.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		rl.MaxDataPerDayMB, _ = flags.GetInt("max-data-per-day")
	}

	pCfg, _, err := resolvePipelineConfig(cmd, cfg)
	if err != nil {
		return server.Config{}, 0, err
	}

	return server.Config{
		Host:           host,
		Port:           port,
		CORSOrigin:     corsOrigin,
		MaxUploadMB:    int64(maxUploadSize),
		TimeoutSec:     timeout,
		Pipeline:       pCfg,
		OverlayEnabled: overlayEnable,
		OverlayColor:   overlayColor,
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * 1024 * 1024,
		},
		Version: version.Version,
		Logger:  slog.Default(),
	}, shutdownTimeout, nil
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	serverConfig, shutdownTimeout, err := serverConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting localization server", "host", serverConfig.Host, "port", serverConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDetectorFlags(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("overlay-enable", true, "enable overlay image responses")
	serveCmd.Flags().String("overlay-color", "#ff0000", "overlay outline color (hex or SVG name)")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int("max-data-per-day", 100, "maximum upload volume per day per client (MB)")
}
