package utils

import "math"

// RotatedRect is a rectangle at an arbitrary orientation. Angle is the
// direction of the Width side in degrees, measured from the +x axis towards
// +y (image coordinates), and is kept in [-45, 45].
type RotatedRect struct {
	Center Point   `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

// Area returns Width*Height.
func (r RotatedRect) Area() float64 { return r.Width * r.Height }

// Axes returns the unit vectors along the Width and Height sides.
func (r RotatedRect) Axes() (u, v Point) {
	rad := r.Angle * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return Point{X: c, Y: s}, Point{X: -s, Y: c}
}

// Corners returns the four corners in the rectangle's own frame order:
// top-left, top-right, bottom-right, bottom-left.
func (r RotatedRect) Corners() [4]Point {
	u, v := r.Axes()
	hw, hh := r.Width/2, r.Height/2
	at := func(su, sv float64) Point {
		return Point{
			X: r.Center.X + su*hw*u.X + sv*hh*v.X,
			Y: r.Center.Y + su*hw*u.Y + sv*hh*v.Y,
		}
	}
	return [4]Point{at(-1, -1), at(1, -1), at(1, 1), at(-1, 1)}
}

// BoundingBox returns the axis-aligned box enclosing the rectangle.
func (r RotatedRect) BoundingBox() Box {
	c := r.Corners()
	return BoundingBox(c[:])
}

// ScaleXY maps the rectangle through x' = sx*x, y' = sy*y. With sx != sy a
// rotated rectangle becomes a parallelogram; the result keeps the images of
// the Width side and the centre exactly and takes Height from the image of
// the Height side.
func (r RotatedRect) ScaleXY(sx, sy float64) RotatedRect {
	u, v := r.Axes()
	ux, uy := u.X*sx, u.Y*sy
	return RotatedRect{
		Center: Point{X: r.Center.X * sx, Y: r.Center.Y * sy},
		Width:  r.Width * math.Hypot(ux, uy),
		Height: r.Height * math.Hypot(v.X*sx, v.Y*sy),
		Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
	}
}

// PolygonArea returns the absolute area enclosed by a closed polygon
// using the shoelace formula. The closing edge is implicit.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order without
// duplicating the first point at the end.
func ConvexHull(pts []Point) []Point {
	n := len(pts)
	if n <= 1 {
		return append([]Point(nil), pts...)
	}
	p := make([]Point, n)
	copy(p, pts)
	sortPoints(p)
	p = removeDuplicatePoints(p)
	n = len(p)
	if n <= 1 {
		return append([]Point(nil), p...)
	}
	lower := buildLowerHull(p)
	upper := buildUpperHull(p)
	// last point of each chain is the first of the other
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func removeDuplicatePoints(p []Point) []Point {
	q := p[:0]
	for i, pt := range p {
		if i == 0 || pt != q[len(q)-1] {
			q = append(q, pt)
		}
	}
	return q
}

func buildLowerHull(p []Point) []Point {
	lower := make([]Point, 0, len(p))
	for _, pt := range p {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], pt) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, pt)
	}
	return lower
}

func buildUpperHull(p []Point) []Point {
	upper := make([]Point, 0, len(p))
	for i := len(p) - 1; i >= 0; i-- {
		pt := p[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], pt) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, pt)
	}
	return upper
}

func sortPoints(p []Point) {
	// insertion sort; contours are mostly sorted runs already
	for i := 1; i < len(p); i++ {
		v := p[i]
		j := i - 1
		for j >= 0 && (p[j].X > v.X || (p[j].X == v.X && p[j].Y > v.Y)) {
			p[j+1] = p[j]
			j--
		}
		p[j+1] = v
	}
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MinAreaRect computes the minimum-area enclosing rectangle of a point set
// with rotating calipers over its convex hull. A single point yields a
// zero-size rectangle and collinear points a zero-height one.
func MinAreaRect(pts []Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: hull[0]}
	case 2:
		return rectForSegment(hull[0], hull[1])
	}
	return canonicalRect(findMinimumAreaRectangle(hull))
}

func rectForSegment(a, b Point) RotatedRect {
	dx, dy := b.X-a.X, b.Y-a.Y
	return canonicalRect(RotatedRect{
		Center: Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
		Width:  math.Hypot(dx, dy),
		Angle:  math.Atan2(dy, dx) * 180 / math.Pi,
	})
}

func findMinimumAreaRectangle(hull []Point) RotatedRect {
	bestArea := math.Inf(1)
	var best RotatedRect
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		dx := b.X - a.X
		dy := b.Y - a.Y
		L := math.Hypot(dx, dy)
		if L == 0 {
			continue
		}
		ux, uy := dx/L, dy/L
		vx, vy := -uy, ux
		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*ux + p.Y*uy
			t := p.X*vx + p.Y*vy
			minS = math.Min(minS, s)
			maxS = math.Max(maxS, s)
			minT = math.Min(minT, t)
			maxT = math.Max(maxT, t)
		}
		area := (maxS - minS) * (maxT - minT)
		if area < bestArea {
			bestArea = area
			ms, mt := (minS+maxS)/2, (minT+maxT)/2
			best = RotatedRect{
				Center: Point{X: ux*ms + vx*mt, Y: uy*ms + vy*mt},
				Width:  maxS - minS,
				Height: maxT - minT,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best
}

// canonicalRect folds the angle into [-45, 45], swapping sides when the
// rectangle is turned by a quarter.
func canonicalRect(r RotatedRect) RotatedRect {
	for r.Angle > 90 {
		r.Angle -= 180
	}
	for r.Angle <= -90 {
		r.Angle += 180
	}
	if r.Angle > 45 {
		r.Angle -= 90
		r.Width, r.Height = r.Height, r.Width
	} else if r.Angle < -45 {
		r.Angle += 90
		r.Width, r.Height = r.Height, r.Width
	}
	// snap float noise so axis-aligned rects report exactly 0
	if math.Abs(r.Angle) < 1e-9 {
		r.Angle = 0
	}
	return r
}
