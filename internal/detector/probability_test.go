package detector

import (
	"context"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histWith(bins int, counts map[int]int) []int {
	h := make([]int, bins)
	for i, c := range counts {
		h[i] = c
	}
	return h
}

func TestScoreHistogram_Matrix(t *testing.T) {
	tests := []struct {
		name   string
		counts map[int]int
		want   float64
	}{
		{"orthogonal and balanced", map[int]int{0: 10, 6: 10}, 1.0},
		{"45 degrees apart", map[int]int{0: 10, 3: 10}, 0.5},
		{"orthogonal but unbalanced", map[int]int{2: 30, 8: 10}, 0.5},
		{"single orientation", map[int]int{4: 25}, 0},
		{"empty", map[int]int{}, 0},
		{"165 degrees apart", map[int]int{0: 5, 11: 5}, 1 - 75.0/90.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreHistogram(KindMatrix, histWith(12, tt.counts), 15)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestScoreHistogram_Linear(t *testing.T) {
	assert.InDelta(t, 1.0, ScoreHistogram(KindLinear, histWith(12, map[int]int{3: 40}), 15), 1e-12)
	assert.InDelta(t, 0.0, ScoreHistogram(KindLinear, histWith(12, map[int]int{0: 10, 6: 10}), 15), 1e-12)
	assert.InDelta(t, 0.75, ScoreHistogram(KindLinear, histWith(12, map[int]int{1: 20, 7: 5}), 15), 1e-12)
	assert.Zero(t, ScoreHistogram(KindLinear, make([]int, 12), 15))
}

func TestTopTwoBins_TieBreak(t *testing.T) {
	tests := []struct {
		name           string
		hist           []int
		i1, c1, i2, c2 int
	}{
		{"distinct", []int{1, 9, 3, 7}, 1, 9, 3, 7},
		{"tie for first", []int{3, 5, 5, 1}, 1, 5, 2, 5},
		{"three way tie", []int{4, 0, 4, 4}, 0, 4, 2, 4},
		{"tie for second", []int{2, 8, 2, 2}, 1, 8, 0, 2},
		{"all zero", []int{0, 0, 0}, 0, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i1, c1, i2, c2 := TopTwoBins(tt.hist)
			assert.Equal(t, []int{tt.i1, tt.c1, tt.i2, tt.c2}, []int{i1, c1, i2, c2})
		})
	}
}

func TestMatrixProbability_Range(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("probability in [0,1]", prop.ForAll(
		func(steps, c1, c2 int) bool {
			p := MatrixProbability(float64(steps*15), c1, c2)
			return p >= 0 && p <= 1
		},
		gen.IntRange(0, 11),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.Property("balanced orthogonal counts score 1", prop.ForAll(
		func(c int) bool {
			return MatrixProbability(90, c, c) == 1
		},
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

func TestWindowAt(t *testing.T) {
	p := Params{WindowWidth: 10, WindowHeight: 6}
	assert.Equal(t, Window{X0: 14, Y0: 16, X1: 25, Y1: 23}, WindowAt(20, 20, 100, 100, p))
	assert.Equal(t, Window{X0: 0, Y0: 0, X1: 5, Y1: 3}, WindowAt(0, 0, 100, 100, p))
	assert.Equal(t, Window{X0: 93, Y0: 95, X1: 100, Y1: 100}, WindowAt(99, 99, 100, 100, p))
}

// naiveProbabilityMap recomputes every window histogram from scratch.
func naiveProbabilityMap(gf GradientField, p Params, cfg Config) Plane {
	w, h := gf.Width, gf.Height
	bins := cfg.Bins()
	prob := NewPlane(w, h)
	for y := range h {
		for x := range w {
			if gf.Edges.Pix[y*w+x] == 0 {
				continue
			}
			win := WindowAt(x, y, w, h, p)
			edges := 0
			hist := make([]int, bins)
			for wy := win.Y0; wy < win.Y1; wy++ {
				for wx := win.X0; wx < win.X1; wx++ {
					i := wy*w + wx
					if gf.Edges.Pix[i] != 0 {
						edges++
					}
					if d := gf.Direction[i]; d != NoDirection {
						hist[int(d)/cfg.BinWidth]++
					}
				}
			}
			if float64(edges) < p.EdgeThreshold {
				continue
			}
			prob.Pix[y*w+x] = float32(ScoreHistogram(cfg.Kind, hist, cfg.BinWidth))
		}
	}
	return prob
}

func randomField(seed int64, w, h int) GradientField {
	rng := rand.New(rand.NewSource(seed))
	gf := GradientField{Width: w, Height: h, Edges: NewMask(w, h), Direction: make([]int16, w*h)}
	for i := range gf.Direction {
		if rng.Intn(3) > 0 {
			gf.Edges.Pix[i] = 255
			gf.Direction[i] = int16(rng.Intn(171))
		} else {
			gf.Direction[i] = NoDirection
		}
	}
	return gf
}

func TestBuildProbabilityMap_MatchesNaive(t *testing.T) {
	for _, kind := range []Kind{KindMatrix, KindLinear} {
		t.Run(kind.String(), func(t *testing.T) {
			cfg := DefaultConfig(kind)
			gf := randomField(7, 53, 41)
			p := DeriveParams(53, 41, cfg)

			got, err := BuildProbabilityMap(context.Background(), gf, p, cfg)
			require.NoError(t, err)
			want := naiveProbabilityMap(gf, p, cfg)
			assert.Equal(t, want.Pix, got.Pix)
		})
	}
}

func TestBuildProbabilityMap_SparseWindowsScoreZero(t *testing.T) {
	cfg := DefaultConfig(KindMatrix)
	gf := GradientField{Width: 40, Height: 40, Edges: NewMask(40, 40), Direction: make([]int16, 1600)}
	for i := range gf.Direction {
		gf.Direction[i] = NoDirection
	}
	gf.Edges.Pix[20*40+20] = 255
	gf.Direction[20*40+20] = 0

	p := DeriveParams(40, 40, cfg)
	prob, err := BuildProbabilityMap(context.Background(), gf, p, cfg)
	require.NoError(t, err)
	for _, v := range prob.Pix {
		require.Zero(t, v)
	}
}

func TestBuildProbabilityMap_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultConfig(KindMatrix)
	_, err := BuildProbabilityMap(ctx, randomField(1, 10, 10), DeriveParams(10, 10, cfg), cfg)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCandidateMask(t *testing.T) {
	prob := NewPlane(4, 2)
	prob.Pix[1] = 0.9
	prob.Pix[2] = 0.8
	m, scaled, thr := CandidateMask(prob)
	assert.Equal(t, uint8(255), scaled[1])
	assert.Less(t, thr, scaled[2])
	assert.Equal(t, 2, m.CountNonZero())

	blank, _, _ := CandidateMask(NewPlane(5, 5))
	assert.Zero(t, blank.CountNonZero())
}
