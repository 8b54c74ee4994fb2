package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/MeKo-Tech/barloc/internal/testutil"
	"github.com/spf13/viper"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil || loader.v == nil {
		t.Fatal("NewLoader() returned an unusable loader")
	}
	if NewLoaderWithViper(nil).v == nil {
		t.Error("NewLoaderWithViper(nil) should create a viper instance")
	}
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Detector.MaxRows != 300 {
		t.Errorf("Expected default max rows 300, got %d", cfg.Detector.MaxRows)
	}
	if !slices.Contains(cfg.Batch.Include, "*.png") {
		t.Errorf("Expected default include patterns, got %v", cfg.Batch.Include)
	}
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	dir := t.TempDir()
	configFile := testutil.WriteYAML(t, dir, "barloc.yaml", map[string]any{
		"log_level": debugLevel,
		"verbose":   true,
		"detector": map[string]any{
			"kind":                     "linear",
			"max_rows":                 200,
			"rectangularity_threshold": 0.55,
			"on_crop_failure":          "skip",
		},
		"batch": map[string]any{
			"recursive": true,
			"exclude":   []string{"*_overlay.png"},
		},
		"server": map[string]any{"host": "0.0.0.0", "port": 9090},
	})

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level '%s', got %s", debugLevel, cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be true")
	}
	if cfg.Detector.Kind != "linear" || cfg.Detector.MaxRows != 200 {
		t.Errorf("Detector section not loaded: %+v", cfg.Detector)
	}
	if cfg.Detector.RectangularityThreshold == nil || *cfg.Detector.RectangularityThreshold != 0.55 {
		t.Errorf("Expected rectangularity 0.55, got %v", cfg.Detector.RectangularityThreshold)
	}
	if cfg.Detector.EdgeDensity != nil {
		t.Errorf("Expected edge density unset, got %v", *cfg.Detector.EdgeDensity)
	}
	if !cfg.Batch.Recursive || !slices.Equal(cfg.Batch.Exclude, []string{"*_overlay.png"}) {
		t.Errorf("Batch section not loaded: %+v", cfg.Batch)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server section not loaded: %+v", cfg.Server)
	}

	det, err := cfg.ToDetectorConfig()
	if err != nil {
		t.Fatalf("ToDetectorConfig() unexpected error: %v", err)
	}
	if det.EdgeDensity != 0.2 {
		t.Errorf("Expected linear edge density 0.2, got %v", det.EdgeDensity)
	}
}

// TestLoadSearchesWorkingDirectory tests discovery of barloc.yaml in the current directory.
func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	testutil.WriteYAML(t, dir, "barloc.yaml", map[string]any{"output": map[string]any{"format": "csv"}})

	loader := newTestLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Output.Format != "csv" {
		t.Errorf("Expected format csv, got %s", cfg.Output.Format)
	}
	if filepath.Base(loader.GetConfigFileUsed()) != "barloc.yaml" {
		t.Errorf("Unexpected config file used: %s", loader.GetConfigFileUsed())
	}
}

// TestLoadWithEnvironment tests environment variable overrides.
func TestLoadWithEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BARLOC_LOG_LEVEL", "warn")
	t.Setenv("BARLOC_SERVER_PORT", "7070")
	t.Setenv("BARLOC_DETECTOR_KIND", "linear")
	t.Setenv("BARLOC_DETECTOR_EDGE_DENSITY", "0.4")

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.LogLevel)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Detector.Kind != "linear" {
		t.Errorf("Expected kind linear, got %s", cfg.Detector.Kind)
	}
	if cfg.Detector.EdgeDensity == nil || *cfg.Detector.EdgeDensity != 0.4 {
		t.Errorf("Expected edge density 0.4, got %v", cfg.Detector.EdgeDensity)
	}
}

// TestLoadErrors tests missing and invalid files.
func TestLoadErrors(t *testing.T) {
	if _, err := newTestLoader().LoadWithFile("/non/existent/barloc.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}

	dir := t.TempDir()
	bad := testutil.WriteYAML(t, dir, "bad.yaml", map[string]any{"log_level": "loud"})
	if _, err := newTestLoader().LoadWithFile(bad); err == nil {
		t.Error("Expected validation error")
	}
	if _, err := newTestLoader().LoadWithFileWithoutValidation(bad); err != nil {
		t.Errorf("LoadWithFileWithoutValidation() unexpected error: %v", err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("detector: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestLoader().LoadWithFile(broken); err == nil {
		t.Error("Expected parse error")
	}
}

// TestGenerateDefaultConfigFile tests writing and re-reading the defaults.
func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barloc.yaml")
	if err := GenerateDefaultConfigFile(path); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() unexpected error: %v", err)
	}
	cfg, err := newTestLoader().LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.Detector.BinWidth != 15 {
		t.Errorf("Expected bin width 15, got %d", cfg.Detector.BinWidth)
	}
}

// TestGetConfigSearchPaths tests the search path list.
func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	for _, want := range []string{".", "/etc/barloc", filepath.Join("/xdg", "barloc")} {
		if !slices.Contains(paths, want) {
			t.Errorf("Expected %s in search paths %v", want, paths)
		}
	}
}

// TestRegisterKeys tests that every leaf of the default config is known to viper.
func TestRegisterKeys(t *testing.T) {
	v := viper.New()
	NewLoaderWithViper(v).registerKeys()

	for _, key := range []string{"detector.bin_width", "server.rate_limit.requests_per_hour", "diagnostics.png", "batch.include"} {
		if !v.IsSet(key) {
			t.Errorf("Expected default for %s", key)
		}
	}
	if v.IsSet("detector.edge_density") {
		t.Error("Kind-dependent edge density should have no default")
	}
	if got := v.GetInt("server.rate_limit.requests_per_minute"); got != DefaultConfig().Server.RateLimit.RequestsPerMinute {
		t.Errorf("Unexpected requests_per_minute default %d", got)
	}
}
