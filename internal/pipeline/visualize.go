package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/MeKo-Tech/barloc/internal/utils"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// DefaultOverlayColor is used when no colour is configured.
const DefaultOverlayColor = "#ff0000"

// ParseColor parses an SVG colour name such as "lime" (case-insensitive) or a
// hex colour such as "#00ff00" or "0f0".
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultOverlayColor
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// RenderOverlay draws the rotated rectangle of every region over a copy of img.
// Region coordinates are in the coordinate space of img.
func RenderOverlay(img image.Image, res *ImageResult, col color.Color, thickness int) *image.NRGBA {
	if img == nil {
		return nil
	}
	dst := imaging.Clone(img)
	if res == nil {
		return dst
	}
	if thickness < 1 {
		thickness = 1
	}
	origin := img.Bounds().Min
	off := utils.Point{X: float64(origin.X), Y: float64(origin.Y)}
	for _, r := range res.Regions {
		pts := make([]utils.Point, len(r.Corners))
		for i, c := range r.Corners {
			pts[i] = c.Sub(off)
		}
		utils.DrawPolygon(dst, pts, col, thickness)
	}
	return dst
}
