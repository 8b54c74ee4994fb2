package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Detector: defaultDetectorConfig(),
		Output: OutputConfig{
			Format:       "text",
			OverlayColor: pipeline.DefaultOverlayColor,
		},
		Batch: BatchConfig{
			Workers: runtime.NumCPU(),
			Include: []string{"*.png", "*.jpg", "*.jpeg", "*.bmp"},
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDayMB:   100,
			},
		},
		Diagnostics: DiagnosticsConfig{
			Dir: "diagnostics",
			CSV: true,
			PNG: true,
		},
	}
}

// defaultDetectorConfig returns default detector configuration.
// Kind-dependent thresholds are left unset.
func defaultDetectorConfig() DetectorConfig {
	cfg := detector.DefaultConfig(detector.KindMatrix)
	return DetectorConfig{
		Kind:             cfg.Kind.String(),
		MaxRows:          cfg.MaxRows,
		SmallElementSize: cfg.SmallElementSize,
		LargeElementSize: cfg.LargeElementSize,
		BinWidth:         cfg.BinWidth,
		MinAreaFraction:  cfg.MinAreaFraction,
		WindowFraction:   cfg.WindowFraction,
		MagnitudeFloor:   int(cfg.MagnitudeFloor),
		OnCropFailure:    cfg.OnCropFailure.String(),
		Workers:          runtime.NumCPU(),
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if _, err := pipeline.ParseColor(c.Output.OverlayColor); err != nil {
		return fmt.Errorf("invalid output.overlay_color: %w", err)
	}

	if c.Detector.MagnitudeFloor < 0 || c.Detector.MagnitudeFloor > 255 {
		return fmt.Errorf("invalid detector.magnitude_floor: %d (must be between 0 and 255)", c.Detector.MagnitudeFloor)
	}
	if _, err := c.ToDetectorConfig(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("invalid server.rate_limit: limits must not be negative")
	}
	if c.Detector.Workers <= 0 {
		return fmt.Errorf("invalid detector workers: %d (must be positive)", c.Detector.Workers)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Diagnostics.Enabled && c.Diagnostics.Dir == "" {
		return errors.New("diagnostics enabled without a directory")
	}

	return nil
}

// ToDetectorConfig converts the detector section to detector.Config.
func (c *Config) ToDetectorConfig() (detector.Config, error) {
	kind, err := detector.ParseKind(c.Detector.Kind)
	if err != nil {
		return detector.Config{}, err
	}
	policy, err := detector.ParseCropFailurePolicy(c.Detector.OnCropFailure)
	if err != nil {
		return detector.Config{}, err
	}

	cfg := detector.DefaultConfig(kind)
	cfg.OnCropFailure = policy
	cfg.MaxRows = c.Detector.MaxRows
	cfg.SmallElementSize = c.Detector.SmallElementSize
	cfg.LargeElementSize = c.Detector.LargeElementSize
	cfg.BinWidth = c.Detector.BinWidth
	cfg.MinAreaFraction = c.Detector.MinAreaFraction
	cfg.WindowFraction = c.Detector.WindowFraction
	cfg.MagnitudeFloor = uint8(min(max(c.Detector.MagnitudeFloor, 0), 255))
	if c.Detector.RectangularityThreshold != nil {
		cfg.RectangularityThreshold = *c.Detector.RectangularityThreshold
	}
	if c.Detector.EdgeDensity != nil {
		cfg.EdgeDensity = *c.Detector.EdgeDensity
	}
	if err := cfg.Validate(); err != nil {
		return detector.Config{}, err
	}
	return cfg, nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	det, err := c.ToDetectorConfig()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Detector: det,
		Parallel: pipeline.ParallelConfig{MaxWorkers: c.Detector.Workers},
	}, nil
}
