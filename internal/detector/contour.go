package detector

import "github.com/MeKo-Tech/barloc/internal/utils"

// Clockwise 8-neighbourhood in image coordinates: E, SE, S, SW, W, NW, N, NE.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// traceContourMoore returns the outer boundary of the labeled region as
// pixel-centre points in clockwise order, starting at its raster-first pixel.
// It uses Moore-neighbour tracing restricted to the region's box. Runs of
// collinear points are collapsed.
func traceContourMoore(labels []int32, w, h int, label int32, st compStats) []utils.Point {
	if label <= 0 || len(labels) != w*h {
		return nil
	}

	sx, sy := findStartingBoundaryPixel(labels, w, h, label, st)
	if sx == -1 {
		return nil
	}

	pts := make([]utils.Point, 0, 64)
	addPoint := func(x, y int) {
		p := utils.Point{X: float64(x), Y: float64(y)}
		n := len(pts)
		if n >= 2 {
			a := pts[n-2]
			b := pts[n-1]
			v1x, v1y := b.X-a.X, b.Y-a.Y
			v2x, v2y := p.X-b.X, p.Y-b.Y
			if v1x*v2y-v1y*v2x == 0 && v1x*v2x+v1y*v2y > 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}
	addPoint(sx, sy)

	// the raster-first pixel has no labeled neighbour to its west
	cx, cy := sx, sy
	bx, by := sx-1, sy
	firstX, firstY := -1, -1
	maxSteps := 4*st.count + 8

	for step := 0; step < maxSteps; step++ {
		nx, ny, found := findNextBoundaryPixel(labels, w, h, label, cx, cy, bx, by)
		if !found {
			break
		}
		if step == 0 {
			firstX, firstY = nx, ny
		} else if cx == sx && cy == sy && nx == firstX && ny == firstY {
			break
		}
		bx, by = cx, cy
		cx, cy = nx, ny
		if shouldAddPoint(pts, cx, cy) {
			addPoint(cx, cy)
		}
	}

	removeDuplicateClosingPoint(&pts)
	return pts
}

// removeDuplicateClosingPoint drops the last point when it repeats the first.
func removeDuplicateClosingPoint(pts *[]utils.Point) {
	if len(*pts) >= 2 && (*pts)[0] == (*pts)[len(*pts)-1] {
		*pts = (*pts)[:len(*pts)-1]
	}
}

func shouldAddPoint(pts []utils.Point, x, y int) bool {
	if len(pts) == 0 {
		return true
	}
	last := pts[len(pts)-1]
	return last.X != float64(x) || last.Y != float64(y)
}

// findStartingBoundaryPixel returns the first label pixel in raster order
// within the component's box, which always lies on the outer boundary.
func findStartingBoundaryPixel(labels []int32, w, h int, label int32, st compStats) (int, int) {
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if isLabelPixel(labels, w, h, label, x, y) {
				return x, y
			}
		}
	}
	return -1, -1
}

func isLabelPixel(labels []int32, w, h int, label int32, x, y int) bool {
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	return labels[y*w+x] == label
}

// findNextBoundaryPixel scans the neighbours of (cx, cy) clockwise, starting
// just after the backtrack pixel (bx, by).
func findNextBoundaryPixel(labels []int32, w, h int, label int32, cx, cy, bx, by int) (int, int, bool) {
	start := 0
	dx, dy := bx-cx, by-cy
	for i := range 8 {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			start = (i + 1) % 8
			break
		}
	}

	for k := range 8 {
		i := (start + k) % 8
		tx, ty := cx+mooreDX[i], cy+mooreDY[i]
		if isLabelPixel(labels, w, h, label, tx, ty) {
			return tx, ty, true
		}
	}
	return 0, 0, false
}
