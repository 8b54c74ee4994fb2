package detector

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/barloc/internal/utils"
)

// ErrEmptyImage is returned for nil or zero-area input.
var ErrEmptyImage = errors.New("empty image")

// Preprocessed is the output of the preprocessing stage.
type Preprocessed struct {
	// Working is the (possibly downscaled) color image every later stage
	// and the region normalizer refer to.
	Working *image.NRGBA
	// Gray is the BT.601 luma of Working with whole-number values.
	Gray Plane
	// Enhanced is the black-hat transform of Gray.
	Enhanced Plane
	Params   Params
}

// Preprocess downscales img to the row cap, converts it to grayscale,
// applies the black-hat transform and derives the size-dependent thresholds.
func Preprocess(img image.Image, cfg Config) (*Preprocessed, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, b.Dx(), b.Dy())
	}

	working, err := utils.ResizeToMaxRows(img, cfg.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("downscale: %w", err)
	}

	gray := Grayscale(working)
	enhanced := BlackHat(gray, EllipseElement(cfg.SmallElementSize, cfg.SmallElementSize))

	params := DeriveParams(gray.Width, gray.Height, cfg)
	params.ScaleX = float64(gray.Width) / float64(b.Dx())
	params.ScaleY = float64(gray.Height) / float64(b.Dy())
	return &Preprocessed{
		Working:  working,
		Gray:     gray,
		Enhanced: enhanced,
		Params:   params,
	}, nil
}

// DeriveParams computes the thresholds that depend on the working size.
// Both scales are 1; Preprocess fills them in.
func DeriveParams(w, h int, cfg Config) Params {
	ww := int(cfg.WindowFraction * float64(w))
	wh := int(cfg.WindowFraction * float64(h))
	return Params{
		Width:         w,
		Height:        h,
		ScaleX:        1,
		ScaleY:        1,
		MinArea:       cfg.MinAreaFraction * float64(w) * float64(h),
		WindowWidth:   ww,
		WindowHeight:  wh,
		EdgeThreshold: float64(ww) * float64(wh) * cfg.EdgeDensity,
	}
}

// Grayscale converts an NRGBA image to a plane of rounded BT.601 luma values.
// Alpha is ignored.
func Grayscale(img *image.NRGBA) Plane {
	b := img.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := range p.Height {
		row := img.Pix[y*img.Stride : y*img.Stride+p.Width*4]
		for x := range p.Width {
			r, g, bl := float64(row[x*4]), float64(row[x*4+1]), float64(row[x*4+2])
			p.Pix[y*p.Width+x] = float32(math.Round(0.299*r + 0.587*g + 0.114*bl))
		}
	}
	return p
}
