package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/barloc/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigShow(t *testing.T) {
	out, err := executeCommand(t, "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "matrix", cfg.Detector.Kind)
	assert.Equal(t, 300, cfg.Detector.MaxRows)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barloc.yaml")

	out, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	loaded, err := config.NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "matrix", loaded.Detector.Kind)

	_, err = executeCommand(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(t, "config", "init", path, "--force")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}
