package utils

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
)

// SupportedImageExtensions lists the file extensions the loaders accept.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

// IsSupportedImage reports whether path carries a supported extension.
// The comparison ignores case.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageMetadata describes a loaded image file.
type ImageMetadata struct {
	Path        string  `json:"path"`
	Format      string  `json:"format"`
	SizeBytes   int64   `json:"size_bytes"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

func loadError(err error) error {
	return &ImageProcessingError{Operation: "load", Err: err}
}

// LoadImage decodes the image file at path. Failures to open the file are
// reported with Operation "load", undecodable content with "decode".
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	switch {
	case path == "":
		return nil, ImageMetadata{}, loadError(errors.New("empty path"))
	case !IsSupportedImage(path):
		return nil, ImageMetadata{}, loadError(fmt.Errorf("unsupported format: %s", filepath.Ext(path)))
	}

	f, err := os.Open(path) //nolint:gosec // G304: caller-selected input file
	if err != nil {
		return nil, ImageMetadata{}, loadError(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close image file", "path", path, "error", cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, ImageMetadata{}, loadError(err)
	}
	img, format, err := DecodeImage(f)
	if err != nil {
		return nil, ImageMetadata{}, err
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	return img, ImageMetadata{
		Path:        path,
		Format:      format,
		SizeBytes:   info.Size(),
		Width:       w,
		Height:      h,
		AspectRatio: float64(w) / float64(h),
	}, nil
}

// DecodeImage decodes an image stream such as an upload body. Zero-area
// images are rejected.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: err}
	}
	if b := img.Bounds(); b.Empty() {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: errors.New("empty image")}
	}
	return img, format, nil
}
