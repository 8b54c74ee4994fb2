//nolint:lll
package config

// Config represents the complete configuration for the barloc application.
// It includes settings for all commands (image, pdf, serve, batch) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Localization settings
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// PDF input configuration
	PDF PDFConfig `mapstructure:"pdf" yaml:"pdf" json:"pdf"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Intermediate matrix dumps
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics" json:"diagnostics"`
}

// DetectorConfig contains the localization tunables.
// RectangularityThreshold and EdgeDensity fall back to the defaults of the
// selected kind when unset.
type DetectorConfig struct {
	Kind                    string   `mapstructure:"kind" yaml:"kind" json:"kind"`
	MaxRows                 int      `mapstructure:"max_rows" yaml:"max_rows" json:"max_rows"`
	RectangularityThreshold *float64 `mapstructure:"rectangularity_threshold" yaml:"rectangularity_threshold,omitempty" json:"rectangularity_threshold,omitempty"`
	EdgeDensity             *float64 `mapstructure:"edge_density" yaml:"edge_density,omitempty" json:"edge_density,omitempty"`
	SmallElementSize        int      `mapstructure:"small_element_size" yaml:"small_element_size" json:"small_element_size"`
	LargeElementSize        int      `mapstructure:"large_element_size" yaml:"large_element_size" json:"large_element_size"`
	BinWidth                int      `mapstructure:"bin_width" yaml:"bin_width" json:"bin_width"`
	MinAreaFraction         float64  `mapstructure:"min_area_fraction" yaml:"min_area_fraction" json:"min_area_fraction"`
	WindowFraction          float64  `mapstructure:"window_fraction" yaml:"window_fraction" json:"window_fraction"`
	MagnitudeFloor          int      `mapstructure:"magnitude_floor" yaml:"magnitude_floor" json:"magnitude_floor"`
	OnCropFailure           string   `mapstructure:"on_crop_failure" yaml:"on_crop_failure" json:"on_crop_failure"`
	Workers                 int      `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	File         string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir   string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
	CropDir      string `mapstructure:"crop_dir" yaml:"crop_dir" json:"crop_dir"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// PDFConfig contains PDF extraction settings.
type PDFConfig struct {
	Pages string `mapstructure:"pages" yaml:"pages" json:"pages"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool   `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits for the server.
// Zero disables the corresponding limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// DiagnosticsConfig controls intermediate matrix dumps.
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir" json:"dir"`
	CSV     bool   `mapstructure:"csv" yaml:"csv" json:"csv"`
	PNG     bool   `mapstructure:"png" yaml:"png" json:"png"`
}
