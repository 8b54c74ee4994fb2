package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/barloc/internal/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ToJSONImage serializes a single ImageResult to pretty JSON.
func ToJSONImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONImages serializes multiple ImageResult entries to pretty JSON.
func ToJSONImages(results []*ImageResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CSVHeader is the header row written by ToCSVImage.
var CSVHeader = []string{
	"index", "center_x", "center_y", "width", "height", "angle",
	"box_x", "box_y", "box_w", "box_h", "area", "rectangularity",
}

// CSVRow formats one region as a CSV record matching CSVHeader.
func CSVRow(r Region) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		strconv.Itoa(r.Index),
		f(r.Rect.Center.X),
		f(r.Rect.Center.Y),
		f(r.Rect.Width),
		f(r.Rect.Height),
		f(r.Rect.Angle),
		f(r.Box.MinX),
		f(r.Box.MinY),
		f(r.Box.Width()),
		f(r.Box.Height()),
		f(r.Area),
		strconv.FormatFloat(r.Rectangularity, 'f', 3, 64),
	}
}

// ToCSVImage exports per-region geometry as CSV with header.
func ToCSVImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(CSVHeader)
	for _, r := range res.Regions {
		_ = w.Write(CSVRow(r))
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToPlainTextImage renders one line per region in discovery order.
func ToPlainTextImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	kind := cases.Title(language.English).String(res.Kind)
	if len(res.Regions) == 0 {
		return fmt.Sprintf("No %s candidates found", strings.ToLower(kind)), nil
	}
	lines := make([]string, 0, len(res.Regions))
	for _, r := range res.Regions {
		lines = append(lines, fmt.Sprintf("%s #%d: center (%.1f, %.1f) size %.1fx%.1f angle %.1f° box [%.0f,%.0f %.0fx%.0f]",
			kind, r.Index,
			r.Rect.Center.X, r.Rect.Center.Y,
			r.Rect.Width, r.Rect.Height, r.Rect.Angle,
			r.Box.MinX, r.Box.MinY, r.Box.Width(), r.Box.Height()))
	}
	return strings.Join(lines, "\n"), nil
}

// ToPlainTextPDF renders a page/image/region outline of a PDF result.
func ToPlainTextPDF(res *PDFResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var out strings.Builder

	fmt.Fprintf(&out, "File: %s\n", res.Filename)
	fmt.Fprintf(&out, "Total Pages: %d\n\n", res.TotalPages)

	for _, page := range res.Pages {
		fmt.Fprintf(&out, "Page %d (%dx%d):\n", page.PageNumber, page.Width, page.Height)
		for _, img := range page.Images {
			fmt.Fprintf(&out, "  Image %d (%dx%d): %d region(s)\n", img.ImageIndex, img.Width, img.Height, len(img.Regions))
			for _, region := range img.Regions {
				fmt.Fprintf(&out, "    #%d center=(%.1f,%.1f) size=%.1fx%.1f angle=%.1f\n",
					region.Index, region.Rect.Center.X, region.Rect.Center.Y,
					region.Rect.Width, region.Rect.Height, region.Rect.Angle)
			}
		}
		out.WriteString("\n")
	}
	return out.String(), nil
}

// validateRegionBox checks if a region's bounding box lies within the image.
func validateRegionBox(r Region, imageWidth, imageHeight int, regionIndex int) error {
	if r.Box.Width() < 0 || r.Box.Height() < 0 {
		return fmt.Errorf("region %d has negative size", regionIndex)
	}
	if r.Box.MinX < 0 || r.Box.MinY < 0 {
		return fmt.Errorf("region %d has negative coords", regionIndex)
	}
	if r.Box.MaxX > float64(imageWidth) {
		return fmt.Errorf("region %d exceeds image width", regionIndex)
	}
	if r.Box.MaxY > float64(imageHeight) {
		return fmt.Errorf("region %d exceeds image height", regionIndex)
	}
	return nil
}

// validateRegionShape checks the area and rectangularity fields.
func validateRegionShape(r Region, regionIndex int) error {
	if r.Rect.Width <= 0 || r.Rect.Height <= 0 || math.IsNaN(r.Rect.Angle) {
		return fmt.Errorf("region %d has a degenerate rectangle", regionIndex)
	}
	if r.Rectangularity <= 0 || r.Rectangularity > 1+1e-9 {
		return fmt.Errorf("region %d rectangularity out of range", regionIndex)
	}
	return nil
}

// ValidateImageResult performs simple consistency checks.
func ValidateImageResult(res *ImageResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", res.Width, res.Height)
	}
	for i, r := range res.Regions {
		if i > 0 && r.Index <= res.Regions[i-1].Index {
			return fmt.Errorf("region %d out of discovery order", i)
		}
		if err := validateRegionBox(r, res.Width, res.Height, i); err != nil {
			return err
		}
		if err := validateRegionShape(r, i); err != nil {
			return err
		}
	}
	return nil
}

// SaveCrops writes every region image to dir as <base>_<index>.png and
// returns the written paths.
func SaveCrops(dir, base string, res *ImageResult) ([]string, error) {
	if res == nil {
		return nil, errors.New("nil result")
	}
	paths := make([]string, 0, len(res.Regions))
	for _, r := range res.Regions {
		if r.Image == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%02d.png", base, r.Index))
		if err := utils.SaveImage(path, r.Image); err != nil {
			return paths, fmt.Errorf("save region %d: %w", r.Index, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
