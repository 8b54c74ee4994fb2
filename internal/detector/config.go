package detector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// Kind selects the barcode family the pipeline is tuned for. It decides the
// orientation score used by the probability map and the default thresholds.
type Kind int

const (
	// KindMatrix targets 2D matrix codes: two strong, near-orthogonal orientations.
	KindMatrix Kind = iota
	// KindLinear targets 1D bar codes: one dominant orientation.
	KindLinear
)

// String returns the config name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMatrix:
		return "matrix"
	case KindLinear:
		return "linear"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "matrix", "2d":
		return KindMatrix, nil
	case "linear", "1d":
		return KindLinear, nil
	default:
		return KindMatrix, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, s)
	}
}

// CropFailurePolicy decides what happens to an image's remaining candidates
// when one of them cannot be materialized.
type CropFailurePolicy int

const (
	// CropAbort drops every result of the image and reports the failure.
	CropAbort CropFailurePolicy = iota
	// CropSkip drops the failing candidate and keeps going.
	CropSkip
)

func (p CropFailurePolicy) String() string {
	if p == CropSkip {
		return "skip"
	}
	return "abort"
}

// ParseCropFailurePolicy maps "abort" or "skip" to a policy.
func ParseCropFailurePolicy(s string) (CropFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return CropAbort, nil
	case "skip":
		return CropSkip, nil
	default:
		return CropAbort, fmt.Errorf("%w: unknown crop failure policy %q", ErrInvalidConfig, s)
	}
}

// Config holds every tunable of the localization pipeline.
type Config struct {
	Kind Kind

	// MaxRows is the row cap; taller images are downscaled. Zero disables it.
	MaxRows int

	// RectangularityThreshold is the minimum contour-area / rect-area ratio (exclusive).
	RectangularityThreshold float64

	// SmallElementSize is used by the black-hat transform and the closing.
	SmallElementSize int
	// LargeElementSize is used by the opening.
	LargeElementSize int

	// BinWidth is the orientation histogram bin width in degrees; must divide 180.
	BinWidth int

	// EdgeDensity is the fraction of the window area that must be edge pixels.
	EdgeDensity float64

	// MinAreaFraction is the minimum candidate area as a fraction of W*H.
	MinAreaFraction float64

	// WindowFraction sizes the sliding window relative to W and H.
	WindowFraction float64

	// MagnitudeFloor is the lowest binarization threshold for the normalized magnitude.
	MagnitudeFloor uint8

	OnCropFailure CropFailurePolicy
}

// DefaultConfig returns the defaults for the given kind.
func DefaultConfig(kind Kind) Config {
	cfg := Config{
		Kind:                    kind,
		MaxRows:                 300,
		RectangularityThreshold: 0.6,
		SmallElementSize:        10,
		LargeElementSize:        12,
		BinWidth:                15,
		EdgeDensity:             0.3,
		MinAreaFraction:         0.02,
		WindowFraction:          0.1,
		MagnitudeFloor:          50,
		OnCropFailure:           CropAbort,
	}
	if kind == KindLinear {
		cfg.RectangularityThreshold = 0.5
		cfg.EdgeDensity = 0.2
	}
	return cfg
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.Kind != KindMatrix && c.Kind != KindLinear:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidConfig, int(c.Kind))
	case c.MaxRows < 0:
		return fmt.Errorf("%w: max rows must be >= 0, got %d", ErrInvalidConfig, c.MaxRows)
	case c.RectangularityThreshold < 0 || c.RectangularityThreshold >= 1:
		return fmt.Errorf("%w: rectangularity threshold must be in [0,1), got %g",
			ErrInvalidConfig, c.RectangularityThreshold)
	case c.SmallElementSize < 1 || c.LargeElementSize < 1:
		return fmt.Errorf("%w: structuring element sizes must be >= 1, got %d/%d",
			ErrInvalidConfig, c.SmallElementSize, c.LargeElementSize)
	case c.BinWidth < 1 || c.BinWidth > 90 || 180%c.BinWidth != 0:
		return fmt.Errorf("%w: bin width must divide 180 and be in [1,90], got %d", ErrInvalidConfig, c.BinWidth)
	case c.EdgeDensity < 0 || c.EdgeDensity > 1:
		return fmt.Errorf("%w: edge density must be in [0,1], got %g", ErrInvalidConfig, c.EdgeDensity)
	case c.MinAreaFraction < 0 || c.MinAreaFraction > 1:
		return fmt.Errorf("%w: min area fraction must be in [0,1], got %g", ErrInvalidConfig, c.MinAreaFraction)
	case c.WindowFraction <= 0 || c.WindowFraction > 1:
		return fmt.Errorf("%w: window fraction must be in (0,1], got %g", ErrInvalidConfig, c.WindowFraction)
	case c.OnCropFailure != CropAbort && c.OnCropFailure != CropSkip:
		return fmt.Errorf("%w: unknown crop failure policy %d", ErrInvalidConfig, int(c.OnCropFailure))
	}
	return nil
}

// Bins returns the number of orientation histogram bins.
func (c Config) Bins() int { return 180 / c.BinWidth }
