package pipeline

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// Region is one localized candidate.
type Region struct {
	Index int `json:"index"`
	// Rect is the candidate in original-image coordinates.
	Rect utils.RotatedRect `json:"rect"`
	// WorkingRect is the candidate in working-image coordinates.
	WorkingRect utils.RotatedRect `json:"working_rect"`
	// Corners of Rect, clockwise from top-left.
	Corners [4]utils.Point `json:"corners"`
	// Box is the axis-aligned bounds of Rect, clipped to the image.
	Box            utils.Box `json:"box"`
	Area           float64   `json:"area"`
	Rectangularity float64   `json:"rectangularity"`

	// Image is the de-rotated crop at working resolution.
	Image *image.NRGBA `json:"-"`
}

// ImageResult is the per-image localization output.
type ImageResult struct {
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Kind    string          `json:"kind"`
	Params  detector.Params `json:"params"`
	Regions []Region        `json:"regions"`
	// Skipped counts candidates dropped under the skip crop policy.
	Skipped    int `json:"skipped,omitempty"`
	Processing struct {
		PreprocessNs  int64 `json:"preprocess_ns"`
		GradientNs    int64 `json:"gradient_ns"`
		ProbabilityNs int64 `json:"probability_ns"`
		ExtractNs     int64 `json:"extract_ns"`
		NormalizeNs   int64 `json:"normalize_ns"`
		TotalNs       int64 `json:"total_ns"`
	} `json:"processing"`
}

// MaterializeError reports a candidate that could not be cropped.
type MaterializeError struct {
	Index int
	Err   error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize region %d: %v", e.Index, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// PDFResult represents the localization result for a PDF document.
type PDFResult struct {
	Filename   string          `json:"filename"`
	TotalPages int             `json:"total_pages"`
	Pages      []PDFPageResult `json:"pages"`
	Processing struct {
		ExtractionNs int64 `json:"extraction_ns"`
		TotalNs      int64 `json:"total_ns"`
	} `json:"processing"`
}

// PDFPageResult represents results for a single PDF page.
type PDFPageResult struct {
	PageNumber int              `json:"page_number"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Images     []PDFImageResult `json:"images"`
	Processing struct {
		TotalNs int64 `json:"total_ns"`
	} `json:"processing"`
}

// PDFImageResult represents results for a single image embedded in a PDF page.
type PDFImageResult struct {
	ImageIndex int      `json:"image_index"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Regions    []Region `json:"regions"`
	Skipped    int      `json:"skipped,omitempty"`
}
