package utils

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ResizeToMaxRows downscales img so that its height does not exceed maxRows,
// preserving aspect ratio with area-averaging (box) interpolation. The new
// width is truncated, never rounded, so the horizontal and vertical ratios
// can differ slightly. Images already within the cap are only converted to
// NRGBA.
func ResizeToMaxRows(img image.Image, maxRows int) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid image dimensions: %dx%d", w, h),
		}
	}
	if maxRows <= 0 || h <= maxRows {
		return imaging.Clone(img), nil
	}
	newW := max(w*maxRows/h, 1)
	return imaging.Resize(img, newW, maxRows, imaging.Box), nil
}

// SaveImage encodes img to path, creating parent directories. The format is
// chosen from the file extension.
func SaveImage(path string, img image.Image) error {
	if img == nil {
		return &ImageProcessingError{Operation: "save", Err: errors.New("input image is nil")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	if err := imaging.Save(img, path); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	return nil
}
