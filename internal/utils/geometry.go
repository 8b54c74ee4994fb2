package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Point is a sub-pixel image coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p translated by -q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Box is an axis-aligned rectangle in image coordinates.
type Box struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Clamp limits b to the image rectangle r.
func (b Box) Clamp(r image.Rectangle) Box {
	lx, ly := float64(r.Min.X), float64(r.Min.Y)
	hx, hy := float64(r.Max.X), float64(r.Max.Y)
	return Box{
		MinX: min(max(b.MinX, lx), hx),
		MinY: min(max(b.MinY, ly), hy),
		MaxX: min(max(b.MaxX, lx), hx),
		MaxY: min(max(b.MaxY, ly), hy),
	}
}

// BoundingBox returns the smallest Box holding every point. Empty input
// yields the zero Box.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	b := Box{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		b.MinX = min(b.MinX, p.X)
		b.MinY = min(b.MinY, p.Y)
		b.MaxX = max(b.MaxX, p.X)
		b.MaxY = max(b.MaxY, p.Y)
	}
	return b
}

// DrawPolygon strokes the closed outline through pts onto dst. Points are
// rounded to the pixel grid; the stroke is a square pen of the given width.
func DrawPolygon(dst draw.Image, pts []Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	pen := max(thickness, 1)
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		strokeSegment(dst, roundPoint(a), roundPoint(b), col, pen)
	}
}

func roundPoint(p Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// strokeSegment walks the segment with Bresenham steps.
func strokeSegment(dst draw.Image, a, b image.Point, col color.Color, pen int) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	e := dx + dy
	for p := a; ; {
		stamp(dst, p, col, pen)
		if p == b {
			return
		}
		if 2*e >= dy {
			e += dy
			p.X += sx
		}
		if 2*e <= dx {
			e += dx
			p.Y += sy
		}
	}
}

func stamp(dst draw.Image, c image.Point, col color.Color, pen int) {
	r := (pen - 1) / 2
	area := image.Rect(c.X-r, c.Y-r, c.X+r+1, c.Y+r+1).Intersect(dst.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			dst.Set(x, y, col)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
