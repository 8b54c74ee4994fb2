package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// Background is the paper colour of the synthetic scenes.
var Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// CreateTestImage creates a simple test image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// DrawCheckerboard paints r with black and white cells of the given size,
// starting with black in the top-left cell.
func DrawCheckerboard(dst draw.Image, r image.Rectangle, cell int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.White
			if ((x-r.Min.X)/cell+(y-r.Min.Y)/cell)%2 == 0 {
				c = color.Black
			}
			dst.Set(x, y, c)
		}
	}
}

// DrawBars paints r with vertical black and white bars of the given width,
// starting with black.
func DrawBars(dst draw.Image, r image.Rectangle, bar int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.White
			if ((x-r.Min.X)/bar)%2 == 0 {
				c = color.Black
			}
			dst.Set(x, y, c)
		}
	}
}

// CheckerboardScene returns a w x h image with a single checkerboard patch.
func CheckerboardScene(w, h int, patch image.Rectangle, cell int) *image.RGBA {
	img := CreateTestImage(w, h, Background)
	DrawCheckerboard(img, patch, cell)
	return img
}

// BarsScene returns a w x h image with a single patch of vertical bars.
func BarsScene(w, h int, patch image.Rectangle, bar int) *image.RGBA {
	img := CreateTestImage(w, h, Background)
	DrawBars(img, patch, bar)
	return img
}

// Upscale resizes img by an integer factor with nearest-neighbour sampling.
func Upscale(img image.Image, factor int) *image.NRGBA {
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.NearestNeighbor)
}

// SaveImage saves an image as PNG to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)), "Failed to create directory for %s", path)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}
