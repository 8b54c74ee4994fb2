package detector

import (
	"github.com/MeKo-Tech/barloc/internal/mempool"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// Consolidate closes the candidate mask with the small element to merge
// nearby detections, then opens it with the large element to drop small
// blobs.
func Consolidate(m Mask, cfg Config) Mask {
	closed := CloseMask(m, EllipseElement(cfg.SmallElementSize, cfg.SmallElementSize))
	return OpenMask(closed, EllipseElement(cfg.LargeElementSize, cfg.LargeElementSize))
}

// Contours returns every closed boundary of m: the outer boundary of each
// 8-connected foreground region and the boundary of each enclosed 4-connected
// background region (hole). Hole boundaries run through the hole's own pixel
// centres. Contours are ordered by the raster position of their first pixel.
// m is not modified.
func Contours(m Mask) [][]utils.Point {
	outer := traceRegions(m, connectedComponents, false)
	holes := traceRegions(m, holeComponents, true)

	out := make([][]utils.Point, 0, len(outer)+len(holes))
	for len(outer) > 0 && len(holes) > 0 {
		if rasterBefore(holes[0][0], outer[0][0]) {
			out, holes = append(out, holes[0]), holes[1:]
		} else {
			out, outer = append(out, outer[0]), outer[1:]
		}
	}
	out = append(out, outer...)
	return append(out, holes...)
}

// traceRegions traces every labeled region in discovery order. With
// enclosedOnly, regions touching the image border are skipped.
func traceRegions(m Mask, label func(Mask) ([]compStats, []int32), enclosedOnly bool) [][]utils.Point {
	comps, labels := label(m)
	defer mempool.PutInt32(labels)

	var out [][]utils.Point
	for i, st := range comps {
		if enclosedOnly && st.touchesBorder(m.Width, m.Height) {
			continue
		}
		if pts := traceContourMoore(labels, m.Width, m.Height, int32(i+1), st); len(pts) > 0 {
			out = append(out, pts)
		}
	}
	return out
}

func rasterBefore(a, b utils.Point) bool {
	return a.Y < b.Y || (a.Y == b.Y && a.X < b.X)
}

// Rejection explains why a contour did not become a candidate.
type Rejection struct {
	Contour        int
	Area           float64
	Rectangularity float64
	Reason         string
}

// ExtractCandidates turns the contours of the cleaned mask into candidates.
// A contour is kept when its area reaches the minimum area and its
// area/rect-area ratio exceeds the rectangularity threshold. Candidates keep
// contour discovery order. Rejections are reported for diagnostics.
func ExtractCandidates(cleaned Mask, p Params, cfg Config) ([]Candidate, []Rejection) {
	var (
		cands    []Candidate
		rejected []Rejection
	)
	for i, contour := range Contours(cleaned.Clone()) {
		area := utils.PolygonArea(contour)
		if area < p.MinArea {
			rejected = append(rejected, Rejection{Contour: i, Area: area, Reason: "area"})
			continue
		}
		rect := utils.MinAreaRect(contour)
		rectArea := rect.Area()
		if rectArea <= 0 {
			rejected = append(rejected, Rejection{Contour: i, Area: area, Reason: "degenerate"})
			continue
		}
		ratio := area / rectArea
		if ratio <= cfg.RectangularityThreshold {
			rejected = append(rejected, Rejection{Contour: i, Area: area, Rectangularity: ratio, Reason: "rectangularity"})
			continue
		}
		cands = append(cands, Candidate{
			Index:          len(cands),
			Rect:           rect,
			Area:           area,
			Rectangularity: ratio,
			Contour:        contour,
		})
	}
	return cands, rejected
}
