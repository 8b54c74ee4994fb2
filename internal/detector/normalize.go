package detector

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/barloc/internal/utils"
)

// ErrDegenerateRegion is returned when a rectangle cannot be materialized.
var ErrDegenerateRegion = errors.New("degenerate region")

// maxRegionPixels bounds the size of a single normalized region.
const maxRegionPixels = 1 << 26

// NormalizeRegion de-rotates rect and crops it from src into an upright
// image of round(Width) x round(Height) pixels. Output pixel (x, y) samples
// src at center + (x-(W-1)/2)*u + (y-(H-1)/2)*v with bilinear interpolation
// and replicated borders, where u and v are the rectangle's axes.
func NormalizeRegion(src *image.NRGBA, rect utils.RotatedRect) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if math.IsNaN(rect.Center.X) || math.IsNaN(rect.Center.Y) || math.IsNaN(rect.Angle) {
		return nil, fmt.Errorf("%w: non-finite rectangle", ErrDegenerateRegion)
	}
	w := int(math.Round(rect.Width))
	h := int(math.Round(rect.Height))
	if w < 1 || h < 1 || w*h > maxRegionPixels {
		return nil, fmt.Errorf("%w: size %dx%d", ErrDegenerateRegion, w, h)
	}

	u, v := rect.Axes()
	ox := rect.Center.X - float64(w-1)/2*u.X - float64(h-1)/2*v.X
	oy := rect.Center.Y - float64(w-1)/2*u.Y - float64(h-1)/2*v.Y

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			sx := ox + float64(x)*u.X + float64(y)*v.X
			sy := oy + float64(x)*u.Y + float64(y)*v.Y
			i := out.PixOffset(x, y)
			bilinearSample(src, sx, sy, out.Pix[i:i+4])
		}
	}
	return out, nil
}

// bilinearSample writes the interpolated NRGBA value at (x, y) into dst,
// clamping coordinates to the image.
func bilinearSample(src *image.NRGBA, x, y float64, dst []uint8) {
	b := src.Bounds()
	x = clampFloat(x, float64(b.Min.X), float64(b.Max.X-1))
	y = clampFloat(y, float64(b.Min.Y), float64(b.Max.Y-1))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, b.Max.X-1), min(y0+1, b.Max.Y-1)
	fx, fy := x-float64(x0), y-float64(y0)

	p00 := src.PixOffset(x0, y0)
	p10 := src.PixOffset(x1, y0)
	p01 := src.PixOffset(x0, y1)
	p11 := src.PixOffset(x1, y1)
	for c := range 4 {
		top := lerp(float64(src.Pix[p00+c]), float64(src.Pix[p10+c]), fx)
		bot := lerp(float64(src.Pix[p01+c]), float64(src.Pix[p11+c]), fx)
		dst[c] = uint8(lerp(top, bot, fy) + 0.5)
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
