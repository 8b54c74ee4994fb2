package detector

import "github.com/MeKo-Tech/barloc/internal/utils"

// Plane is a single-channel float matrix in row-major order.
type Plane struct {
	Width  int
	Height int
	Pix    []float32
}

// NewPlane allocates a zeroed w x h plane.
func NewPlane(w, h int) Plane {
	return Plane{Width: w, Height: h, Pix: make([]float32, w*h)}
}

// At returns the value at (x, y).
func (p Plane) At(x, y int) float32 { return p.Pix[y*p.Width+x] }

// Mask is a binary matrix holding 0 or 255 per pixel.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an empty w x h mask.
func NewMask(w, h int) Mask {
	return Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// Clone returns a deep copy.
func (m Mask) Clone() Mask {
	return Mask{Width: m.Width, Height: m.Height, Pix: append([]uint8(nil), m.Pix...)}
}

// CountNonZero returns the number of set pixels.
func (m Mask) CountNonZero() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// NoDirection marks pixels outside the edge mask in a direction field.
const NoDirection int16 = -1

// GradientField is the output of the gradient stage.
type GradientField struct {
	Width  int
	Height int
	// Magnitude is min-max normalized to 0..255.
	Magnitude Plane
	// Edges is the binarized magnitude.
	Edges Mask
	// Direction holds whole degrees in [0,180) on edge pixels and NoDirection elsewhere.
	Direction []int16
	// Threshold is the effective magnitude binarization threshold.
	Threshold uint8
}

// Params are the scalars derived from the working image size.
type Params struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// ScaleX and ScaleY are working/original per axis. They differ when the
	// downscaled width was truncated.
	ScaleX        float64 `json:"scale_x"`
	ScaleY        float64 `json:"scale_y"`
	MinArea       float64 `json:"min_area"`
	WindowWidth   int     `json:"window_width"`
	WindowHeight  int     `json:"window_height"`
	EdgeThreshold float64 `json:"edge_threshold"`
}

// Candidate is an accepted region in working-image coordinates.
type Candidate struct {
	Index          int
	Rect           utils.RotatedRect
	Area           float64
	Rectangularity float64
	Contour        []utils.Point
}
