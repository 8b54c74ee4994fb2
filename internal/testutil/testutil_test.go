package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}

func TestWriteYAMLAndListFiles(t *testing.T) {
	dir := t.TempDir()
	path := WriteYAML(t, dir, "cfg.yaml", map[string]any{"detector": map[string]int{"max_rows": 200}})
	assert.True(t, FileExists(path))
	assert.Equal(t, []string{"cfg.yaml"}, ListFiles(t, dir))
}

func TestCheckerboardScene(t *testing.T) {
	patch := image.Rect(10, 10, 30, 30)
	img := CheckerboardScene(50, 40, patch, 5)

	assert.Equal(t, image.Rect(0, 0, 50, 40), img.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(color.Black), img.At(10, 10))
	assert.Equal(t, color.RGBAModel.Convert(color.White), img.At(15, 10))
	assert.Equal(t, color.RGBAModel.Convert(color.White), img.At(10, 15))
	assert.Equal(t, color.RGBAModel.Convert(color.Black), img.At(15, 15))
	assert.Equal(t, color.RGBAModel.Convert(Background), img.At(0, 0))
}

func TestBarsScene(t *testing.T) {
	img := BarsScene(40, 20, image.Rect(5, 5, 17, 15), 3)
	assert.Equal(t, color.RGBAModel.Convert(color.Black), img.At(7, 5))
	assert.Equal(t, color.RGBAModel.Convert(color.White), img.At(8, 14))
	assert.Equal(t, color.RGBAModel.Convert(Background), img.At(5, 15))
}

func TestUpscale(t *testing.T) {
	img := CheckerboardScene(20, 10, image.Rect(0, 0, 10, 10), 5)
	up := Upscale(img, 2)
	assert.Equal(t, image.Rect(0, 0, 40, 20), up.Bounds())

	r, _, _, _ := up.At(1, 1).RGBA()
	assert.Zero(t, r)
}

func TestSaveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scene.png")
	SaveImage(t, CreateTestImage(4, 4, color.White), path)
	assert.True(t, FileExists(path))
}
