package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_InvalidPort(t *testing.T) {
	_, err := executeCommand(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number: 70000")
}

func TestServeCommand_InvalidTimeout(t *testing.T) {
	_, err := executeCommand(t, "serve", "--timeout", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestServerConfigFromFlags(t *testing.T) {
	t.Cleanup(func() {
		resetFlags(rootCmd)
		globalConfig = nil
	})
	globalConfig = nil

	flags := serveCmd.Flags()
	require.NoError(t, flags.Set("host", "0.0.0.0"))
	require.NoError(t, flags.Set("port", "9090"))
	require.NoError(t, flags.Set("max-upload-size", "5"))
	require.NoError(t, flags.Set("overlay-enable", "false"))
	require.NoError(t, flags.Set("rate-limit-enabled", "true"))
	require.NoError(t, flags.Set("max-data-per-day", "2"))
	require.NoError(t, flags.Set("kind", "linear"))

	cfg, shutdown, err := serverConfigFromFlags(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, int64(5), cfg.MaxUploadMB)
	assert.False(t, cfg.OverlayEnabled)
	assert.Equal(t, 10, shutdown)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, int64(2*1024*1024), cfg.RateLimit.MaxDataPerDay)

	assert.Equal(t, "linear", cfg.Pipeline.Detector.Kind.String())
}

func TestServerConfigFromFlags_Defaults(t *testing.T) {
	t.Cleanup(func() { globalConfig = nil })
	resetFlags(rootCmd)
	globalConfig = nil

	cfg, _, err := serverConfigFromFlags(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(50), cfg.MaxUploadMB)
	assert.True(t, cfg.OverlayEnabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "matrix", cfg.Pipeline.Detector.Kind.String())
}
