package detector

import (
	"math"

	"github.com/MeKo-Tech/barloc/internal/mempool"
)

// FoldAngle maps a direction in degrees onto an undirected orientation in
// [0,180). Angles above 170 snap to 0 so one orientation does not straddle
// the histogram wrap.
func FoldAngle(deg float64) float64 {
	a := math.Mod(deg, 180)
	if a < 0 {
		a += 180
	}
	if a > 170 {
		return 0
	}
	return a
}

// Scharr returns the horizontal and vertical derivatives of p using the
// 3x3 Scharr kernels with reflect-101 borders.
func Scharr(p Plane) (gx, gy Plane) {
	gx, gy = NewPlane(p.Width, p.Height), NewPlane(p.Width, p.Height)
	scharrInto(p, gx.Pix, gy.Pix)
	return gx, gy
}

// scharrInto writes the Scharr derivatives of p into dx and dy, which must
// hold Width*Height samples each.
func scharrInto(p Plane, dx, dy []float32) {
	w, h := p.Width, p.Height
	at := func(x, y int) float32 {
		return p.Pix[reflect101(y, h)*w+reflect101(x, w)]
	}
	for y := range h {
		for x := range w {
			tl, t, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			l, r := at(x-1, y), at(x+1, y)
			bl, b, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)
			dx[y*w+x] = 3*(tr-tl) + 10*(r-l) + 3*(br-bl)
			dy[y*w+x] = 3*(bl-tl) + 10*(b-t) + 3*(br-tr)
		}
	}
}

// reflect101 mirrors i into [0,n) without repeating the edge sample.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// ComputeGradient derives the normalized magnitude, the edge mask and the
// quantized direction field of p. A pixel is an edge when its normalized
// magnitude exceeds both the Otsu level and floor.
func ComputeGradient(p Plane, floor uint8) GradientField {
	w, h := p.Width, p.Height
	gx, gy, mag := mempool.GetFloat32(w*h), mempool.GetFloat32(w*h), mempool.GetFloat32(w*h)
	defer func() {
		mempool.PutFloat32(gx)
		mempool.PutFloat32(gy)
		mempool.PutFloat32(mag)
	}()
	scharrInto(p, gx, gy)

	dir := make([]int16, w*h)
	for i := range mag {
		x, y := float64(gx[i]), float64(gy[i])
		mag[i] = float32(math.Hypot(x, y))
		deg := math.Atan2(y, x) * 180 / math.Pi
		if deg < 0 {
			deg += 360
		}
		dir[i] = int16(math.Round(FoldAngle(deg)))
	}

	norm := normalizeToByte(mag)
	t := max(OtsuThreshold(norm), floor)
	edges := binarizeAbove(norm, w, h, t)
	for i, v := range edges.Pix {
		if v == 0 {
			dir[i] = NoDirection
		}
	}

	magnitude := NewPlane(w, h)
	for i, v := range norm {
		magnitude.Pix[i] = float32(v)
	}

	return GradientField{
		Width:     w,
		Height:    h,
		Magnitude: magnitude,
		Edges:     edges,
		Direction: dir,
		Threshold: t,
	}
}
