package detector

import (
	"testing"

	"github.com/MeKo-Tech/barloc/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRect(m Mask, x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Pix[y*m.Width+x] = 255
		}
	}
}

func TestConnectedComponents_EightConnected(t *testing.T) {
	m := maskFromRows(
		"#.....",
		".#....",
		"......",
		"....##",
	)
	comps, labels := connectedComponents(m)
	require.Len(t, comps, 2)
	assert.Equal(t, 2, comps[0].count)
	assert.Equal(t, int32(1), labels[0])
	assert.Equal(t, int32(1), labels[1*6+1])
	assert.Equal(t, int32(2), labels[3*6+4])
	assert.Equal(t, compStats{count: 2, minX: 4, minY: 3, maxX: 5, maxY: 3}, comps[1])
}

func TestTraceContourMoore_Square(t *testing.T) {
	m := NewMask(8, 8)
	fillRect(m, 2, 2, 5, 5)
	comps, labels := connectedComponents(m)
	require.Len(t, comps, 1)

	contour := traceContourMoore(labels, 8, 8, 1, comps[0])
	assert.Equal(t, []utils.Point{{X: 2, Y: 2}, {X: 5, Y: 2}, {X: 5, Y: 5}, {X: 2, Y: 5}}, contour)
	assert.InDelta(t, 9, utils.PolygonArea(contour), 1e-9)
}

func TestTraceContourMoore_SinglePixel(t *testing.T) {
	m := NewMask(5, 5)
	m.Pix[2*5+2] = 255
	comps, labels := connectedComponents(m)

	contour := traceContourMoore(labels, 5, 5, 1, comps[0])
	assert.Equal(t, []utils.Point{{X: 2, Y: 2}}, contour)
}

func TestTraceContourMoore_LShapeArea(t *testing.T) {
	m := maskFromRows(
		"........",
		".#......",
		".#......",
		".#......",
		".#......",
		".#####..",
		"........",
	)
	comps, labels := connectedComponents(m)
	contour := traceContourMoore(labels, m.Width, m.Height, 1, comps[0])
	require.NotEmpty(t, contour)
	// one-pixel-wide shapes enclose no area
	assert.InDelta(t, 0, utils.PolygonArea(contour), 1e-9)
	for _, p := range contour {
		assert.Equal(t, uint8(255), m.Pix[int(p.Y)*m.Width+int(p.X)])
	}
}

func TestTraceContourMoore_OuterBoundaryOnly(t *testing.T) {
	m := NewMask(10, 10)
	fillRect(m, 1, 1, 8, 8)
	fillRectValue(m, 4, 4, 5, 5, 0)
	comps, labels := connectedComponents(m)
	require.Len(t, comps, 1)

	contour := traceContourMoore(labels, 10, 10, 1, comps[0])
	assert.InDelta(t, 49, utils.PolygonArea(contour), 1e-9)
}

func TestTraceContourMoore_InvalidInput(t *testing.T) {
	labels := make([]int32, 100)
	st := compStats{minX: 0, maxX: 9, minY: 0, maxY: 9}

	assert.Nil(t, traceContourMoore(labels, 10, 10, 0, st))
	assert.Nil(t, traceContourMoore(labels, 5, 5, 1, st))
	assert.Nil(t, traceContourMoore(labels, 10, 10, 1, st))
}

func fillRectValue(m Mask, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Pix[y*m.Width+x] = v
		}
	}
}

func TestHoleComponents_FourConnected(t *testing.T) {
	m := maskFromRows(
		"######",
		"#..###",
		"###.##",
		"######",
		"....##",
	)
	comps, labels := holeComponents(m)
	require.Len(t, comps, 3, "diagonal background pixels are separate regions")
	assert.Equal(t, compStats{count: 2, minX: 1, minY: 1, maxX: 2, maxY: 1}, comps[0])
	assert.False(t, comps[0].touchesBorder(6, 5))
	assert.False(t, comps[1].touchesBorder(6, 5))
	assert.True(t, comps[2].touchesBorder(6, 5))
	assert.Equal(t, int32(2), labels[2*6+3])
}
