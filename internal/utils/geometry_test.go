package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBox(t *testing.T) {
	assert.Equal(t, Box{}, BoundingBox(nil))

	b := BoundingBox([]Point{{0, 0}, {10, 5}, {3, 7}})
	assert.Equal(t, Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 7}, b)
	assert.InDelta(t, 10.0, b.Width(), 1e-12)
	assert.InDelta(t, 7.0, b.Height(), 1e-12)
}

func TestBoxClamp(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		r    image.Rectangle
		want Box
	}{
		{"inside", Box{1, 2, 3, 4}, image.Rect(0, 0, 10, 10), Box{1, 2, 3, 4}},
		{"overhang", Box{-3, 1.7, 12.5, 8.2}, image.Rect(0, 0, 10, 10), Box{0, 1.7, 10, 8.2}},
		{"offset bounds", Box{0, 0, 5, 5}, image.Rect(2, 3, 20, 20), Box{2, 3, 5, 5}},
		{"outside", Box{30, 30, 40, 40}, image.Rect(0, 0, 10, 10), Box{10, 10, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.box.Clamp(tt.r))
		})
	}
}

func TestPointSub(t *testing.T) {
	assert.Equal(t, Point{X: 1, Y: -2}, Point{X: 4, Y: 3}.Sub(Point{X: 3, Y: 5}))
}

func TestDrawPolygon(t *testing.T) {
	blue := color.RGBA{B: 255, A: 255}
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	DrawPolygon(img, []Point{{12, 2}, {18, 2}, {18, 8}, {12, 8}}, blue, 1)

	assert.Equal(t, blue, img.RGBAAt(12, 2))
	assert.Equal(t, blue, img.RGBAAt(18, 5))
	assert.Equal(t, blue, img.RGBAAt(15, 8))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(15, 5), "interior stays untouched")
}

func TestDrawPolygon_ThickClipped(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	assert.NotPanics(t, func() {
		DrawPolygon(img, []Point{{0, 0}, {5, 0}, {5, 5}, {0, 5}}, red, 3)
	})
	assert.Equal(t, red, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(3, 3))
}

func TestDrawPolygon_TooFewPoints(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	DrawPolygon(img, []Point{{1, 1}}, color.White, 1)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(1, 1))
}
