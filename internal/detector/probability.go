package detector

import (
	"context"
	"math"
)

// Window is a half-open pixel rectangle [X0,X1) x [Y0,Y1).
type Window struct {
	X0, Y0, X1, Y1 int
}

// WindowAt returns the sliding window for pixel (x, y), clipped to a w x h
// image. The window reaches one pixel further up and left than down and
// right.
func WindowAt(x, y, w, h int, p Params) Window {
	return Window{
		X0: max(x-p.WindowWidth/2-1, 0),
		Y0: max(y-p.WindowHeight/2-1, 0),
		X1: min(x+p.WindowWidth/2, w),
		Y1: min(y+p.WindowHeight/2, h),
	}
}

// TopTwoBins returns the indices and counts of the two highest bins. The
// lowest index wins ties for both places.
func TopTwoBins(hist []int) (i1, c1, i2, c2 int) {
	i1, i2 = -1, -1
	for i, c := range hist {
		if i1 < 0 || c > c1 {
			i1, c1 = i, c
		}
	}
	for i, c := range hist {
		if i == i1 {
			continue
		}
		if i2 < 0 || c > c2 {
			i2, c2 = i, c
		}
	}
	return i1, c1, i2, c2
}

// MatrixProbability scores two dominant orientations d degrees apart with
// counts c1 and c2. It is 1 for balanced orthogonal orientations.
func MatrixProbability(d float64, c1, c2 int) float64 {
	if c1+c2 == 0 {
		return 0
	}
	return (1 - math.Abs(d-90)/90) * (2 * float64(min(c1, c2)) / float64(c1+c2))
}

// LinearProbability scores how much the dominant orientation outweighs the
// runner-up. It is 1 when a single orientation holds every edge pixel.
func LinearProbability(c1, c2 int) float64 {
	if c1 == 0 {
		return 0
	}
	return float64(c1-c2) / float64(c1)
}

// ScoreHistogram applies the kind's orientation score to a histogram.
func ScoreHistogram(kind Kind, hist []int, binWidth int) float64 {
	if len(hist) < 2 {
		return 0
	}
	i1, c1, i2, c2 := TopTwoBins(hist)
	if kind == KindLinear {
		return LinearProbability(c1, c2)
	}
	d := float64(abs(i1-i2) * binWidth)
	return MatrixProbability(d, c1, c2)
}

// integral is a summed-area table with one extra leading row and column.
type integral struct {
	w   int
	sum []int32
}

func newIntegral(w, h int, set func(i int) bool) integral {
	stride := w + 1
	t := integral{w: w, sum: make([]int32, stride*(h+1))}
	for y := range h {
		var row int32
		for x := range w {
			if set(y*w + x) {
				row++
			}
			t.sum[(y+1)*stride+x+1] = t.sum[y*stride+x+1] + row
		}
	}
	return t
}

func (t integral) count(win Window) int {
	stride := t.w + 1
	return int(t.sum[win.Y1*stride+win.X1] - t.sum[win.Y0*stride+win.X1] -
		t.sum[win.Y1*stride+win.X0] + t.sum[win.Y0*stride+win.X0])
}

// BuildProbabilityMap computes the per-pixel barcode likelihood in [0,1].
// Pixels off the edge mask, and pixels whose window holds fewer edge pixels
// than the edge threshold, score 0. Each window histogram is read from
// per-bin summed-area tables, which gives the same counts as scanning the
// window. ctx is checked once per row.
func BuildProbabilityMap(ctx context.Context, gf GradientField, p Params, cfg Config) (Plane, error) {
	w, h := gf.Width, gf.Height
	bins := cfg.Bins()
	prob := NewPlane(w, h)

	edges := newIntegral(w, h, func(i int) bool { return gf.Edges.Pix[i] != 0 })
	perBin := make([]integral, bins)
	for b := range bins {
		perBin[b] = newIntegral(w, h, func(i int) bool {
			d := gf.Direction[i]
			return d != NoDirection && binOf(d, cfg.BinWidth, bins) == b
		})
	}

	hist := make([]int, bins)
	for y := range h {
		if err := ctx.Err(); err != nil {
			return Plane{}, err
		}
		for x := range w {
			if gf.Edges.Pix[y*w+x] == 0 {
				continue
			}
			win := WindowAt(x, y, w, h, p)
			if float64(edges.count(win)) < p.EdgeThreshold {
				continue
			}
			for b := range bins {
				hist[b] = perBin[b].count(win)
			}
			prob.Pix[y*w+x] = float32(ScoreHistogram(cfg.Kind, hist, cfg.BinWidth))
		}
	}
	return prob, nil
}

// binOf maps a direction in [0,180) to its histogram bin.
func binOf(d int16, binWidth, bins int) int {
	b := int(d) / binWidth
	if b >= bins {
		b = bins - 1
	}
	return b
}

// CandidateMask rescales the probability map to 0..255 and binarizes it at
// the Otsu level. The rescaled map and the level are returned alongside.
func CandidateMask(prob Plane) (Mask, []uint8, uint8) {
	scaled := normalizeToByte(prob.Pix)
	t := OtsuThreshold(scaled)
	return binarizeAbove(scaled, prob.Width, prob.Height, t), scaled, t
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
