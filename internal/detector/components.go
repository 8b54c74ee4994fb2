package detector

import "github.com/MeKo-Tech/barloc/internal/mempool"

// compStats holds the pixel count and bounding box of a connected component.
type compStats struct {
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
}

var (
	neighbours8 = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	neighbours4 = [][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
)

// connectedComponents labels the 8-connected foreground components of m in
// raster discovery order. Label k (1-based) corresponds to comps[k-1].
// The label slice comes from mempool; callers may release it with PutInt32.
func connectedComponents(m Mask) ([]compStats, []int32) {
	return labelRegions(m, true, neighbours8)
}

// holeComponents labels the 4-connected background regions of m in raster
// discovery order. Regions touching the image border are labeled too; see
// touchesBorder.
func holeComponents(m Mask) ([]compStats, []int32) {
	return labelRegions(m, false, neighbours4)
}

func labelRegions(m Mask, foreground bool, nbrs [][2]int) ([]compStats, []int32) {
	w, h := m.Width, m.Height
	labels := mempool.GetInt32(w * h)
	var comps []compStats
	queue := make([]int, 0, 256)
	label := int32(1)

	for y := range h {
		for x := range w {
			idx := y*w + x
			if (m.Pix[idx] != 0) == foreground && labels[idx] == 0 {
				comps = append(comps, floodRegion(m, labels, queue, x, y, label, nbrs))
				label++
			}
		}
	}
	return comps, labels
}

// floodRegion labels every pixel reachable from the seed through nbrs that
// has the seed's foreground state.
func floodRegion(m Mask, labels []int32, queue []int, sx, sy int, label int32, nbrs [][2]int) compStats {
	w, h := m.Width, m.Height
	want := m.Pix[sy*w+sx] != 0
	st := compStats{minX: sx, minY: sy, maxX: sx, maxY: sy}

	queue = append(queue[:0], sy*w+sx)
	labels[sy*w+sx] = label
	for len(queue) > 0 {
		ci := queue[0]
		queue = queue[1:]
		cx, cy := ci%w, ci/w
		st.count++
		st.minX, st.maxX = min(st.minX, cx), max(st.maxX, cx)
		st.minY, st.maxY = min(st.minY, cy), max(st.maxY, cy)

		for _, d := range nbrs {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			ni := ny*w + nx
			if labels[ni] == 0 && (m.Pix[ni] != 0) == want {
				labels[ni] = label
				queue = append(queue, ni)
			}
		}
	}
	return st
}

// touchesBorder reports whether the component's box reaches the image edge.
func (st compStats) touchesBorder(w, h int) bool {
	return st.minX == 0 || st.minY == 0 || st.maxX == w-1 || st.maxY == h-1
}
