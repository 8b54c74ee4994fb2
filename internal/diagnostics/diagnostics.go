// Package diagnostics writes intermediate pipeline matrices to disk as CSV
// tables and PNG previews.
package diagnostics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/lucasb-eyer/go-colorful"
)

// FileDiagnostics is a pipeline.Diagnostics sink that writes one CSV and one
// PNG per checkpoint into a directory. It is safe for concurrent use.
type FileDiagnostics struct {
	dir    string
	csv    bool
	png    bool
	logger *slog.Logger

	mu      sync.Mutex
	err     error
	written []string
}

// Option configures a FileDiagnostics.
type Option func(*FileDiagnostics)

// WithLogger sets the logger used to report write failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *FileDiagnostics) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithCSV toggles CSV tables.
func WithCSV(enabled bool) Option { return func(d *FileDiagnostics) { d.csv = enabled } }

// WithPNG toggles PNG previews.
func WithPNG(enabled bool) Option { return func(d *FileDiagnostics) { d.png = enabled } }

// New creates the directory if needed and returns a sink writing into it.
func New(dir string, opts ...Option) (*FileDiagnostics, error) {
	if dir == "" {
		return nil, errors.New("diagnostics directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create diagnostics directory: %w", err)
	}
	d := &FileDiagnostics{dir: dir, csv: true, png: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dir returns the output directory.
func (d *FileDiagnostics) Dir() string { return d.dir }

// Err returns the first write error, if any.
func (d *FileDiagnostics) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Written returns the paths written so far.
func (d *FileDiagnostics) Written() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.written...)
}

// Matrix writes <image>_<checkpoint>.csv and .png.
func (d *FileDiagnostics) Matrix(s pipeline.Snapshot) {
	if len(s.Values) != s.Width*s.Height {
		d.fail(fmt.Errorf("snapshot %s/%s: %d values for %dx%d", s.Image, s.Checkpoint, len(s.Values), s.Width, s.Height))
		return
	}
	base := filepath.Join(d.dir, sanitize(s.Image)+"_"+string(s.Checkpoint))
	if d.csv {
		d.record(base+".csv", writeMatrixCSV(base+".csv", s))
	}
	if d.png {
		d.record(base+".png", imgio.Save(base+".png", Render(s), imgio.PNGEncoder()))
	}
}

// Candidates writes <image>_candidates.csv listing accepted and rejected contours.
func (d *FileDiagnostics) Candidates(img string, accepted []detector.Candidate, rejected []detector.Rejection) {
	if !d.csv {
		return
	}
	path := filepath.Join(d.dir, sanitize(img)+"_candidates.csv")
	d.record(path, writeCandidatesCSV(path, accepted, rejected))
}

func (d *FileDiagnostics) record(path string, err error) {
	if err != nil {
		d.fail(fmt.Errorf("write %s: %w", path, err))
		return
	}
	d.mu.Lock()
	d.written = append(d.written, path)
	d.mu.Unlock()
}

func (d *FileDiagnostics) fail(err error) {
	d.logger.Warn("Diagnostics write failed", "error", err)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}

func writeMatrixCSV(path string, s pipeline.Snapshot) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is built inside the diagnostics directory
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	row := make([]string, s.Width)
	for y := range s.Height {
		for x := range s.Width {
			row[x] = strconv.FormatFloat(float64(s.Values[y*s.Width+x]), 'g', -1, 32)
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var candidateHeader = []string{
	"status", "index", "center_x", "center_y", "width", "height", "angle", "area", "rectangularity", "reason",
}

func writeCandidatesCSV(path string, accepted []detector.Candidate, rejected []detector.Rejection) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is built inside the diagnostics directory
	if err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	w := csv.NewWriter(f)
	_ = w.Write(candidateHeader)
	for _, c := range accepted {
		_ = w.Write([]string{
			"accepted", strconv.Itoa(c.Index),
			ff(c.Rect.Center.X), ff(c.Rect.Center.Y), ff(c.Rect.Width), ff(c.Rect.Height), ff(c.Rect.Angle),
			ff(c.Area), ff(c.Rectangularity), "",
		})
	}
	for _, r := range rejected {
		_ = w.Write([]string{
			"rejected", strconv.Itoa(r.Contour), "", "", "", "", "",
			ff(r.Area), ff(r.Rectangularity), r.Reason,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Render converts a snapshot into a preview image. Intensity and unit
// matrices become grayscale; the direction field is drawn in false colour
// with hue following the angle, and pixels without direction stay black.
func Render(s pipeline.Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := range s.Height {
		for x := range s.Width {
			img.SetRGBA(x, y, pixelColor(s.Scale, float64(s.Values[y*s.Width+x])))
		}
	}
	return img
}

func pixelColor(scale pipeline.Scale, v float64) color.RGBA {
	switch scale {
	case pipeline.ScaleDegrees:
		if v < 0 {
			return color.RGBA{A: 255}
		}
		// 180 degrees of orientation span the full hue circle.
		r, g, b := colorful.Hsv(math.Mod(2*v, 360), 1, 1).RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}
	case pipeline.ScaleUnit:
		v *= 255
	}
	g := uint8(math.Round(math.Max(0, math.Min(255, v))))
	return color.RGBA{R: g, G: g, B: g, A: 255}
}

// sanitize keeps labels usable as file names.
func sanitize(label string) string {
	if label == "" {
		return "image"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, label)
}
