package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// Config holds configuration for the localization pipeline.
type Config struct {
	Detector detector.Config

	// Parallel processing configuration
	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config for matrix codes.
func DefaultConfig() Config {
	return Config{
		Detector: detector.DefaultConfig(detector.KindMatrix),
		Parallel: DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg  Config
	opts []Option
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithDetectorConfig replaces the whole detector configuration.
func (b *Builder) WithDetectorConfig(cfg detector.Config) *Builder {
	b.cfg.Detector = cfg
	return b
}

// WithKind switches to the defaults of another barcode kind.
func (b *Builder) WithKind(kind detector.Kind) *Builder {
	policy := b.cfg.Detector.OnCropFailure
	b.cfg.Detector = detector.DefaultConfig(kind)
	b.cfg.Detector.OnCropFailure = policy
	return b
}

// WithMaxRows sets the row cap. Zero disables downscaling.
func (b *Builder) WithMaxRows(rows int) *Builder {
	if rows >= 0 {
		b.cfg.Detector.MaxRows = rows
	}
	return b
}

// WithRectangularity sets the minimum contour/rect area ratio.
func (b *Builder) WithRectangularity(th float64) *Builder {
	if th > 0 {
		b.cfg.Detector.RectangularityThreshold = th
	}
	return b
}

// WithCropFailurePolicy selects abort or skip on materialization failures.
func (b *Builder) WithCropFailurePolicy(p detector.CropFailurePolicy) *Builder {
	b.cfg.Detector.OnCropFailure = p
	return b
}

// WithParallelWorkers sets the number of parallel workers for batch processing.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for batch processing.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithLogger sets the logger used for debug output.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(l))
	return b
}

// WithDiagnostics installs a diagnostics sink.
func (b *Builder) WithDiagnostics(d Diagnostics) *Builder {
	b.opts = append(b.opts, WithDiagnostics(d))
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration.
func (b *Builder) Validate() error { return b.cfg.Detector.Validate() }

// Build validates the configuration and creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) { return New(b.cfg, b.opts...) }

// Option customizes a Pipeline at construction.
type Option func(*Pipeline)

// WithLogger sets the logger used for debug output. Nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDiagnostics installs a diagnostics sink. Nil keeps NopDiagnostics.
func WithDiagnostics(d Diagnostics) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.diag = d
		}
	}
}

// normalizeFunc materializes one candidate from the working image.
type normalizeFunc func(src *image.NRGBA, rect utils.RotatedRect) (*image.NRGBA, error)

// Pipeline runs the localization stages on images. It is immutable after
// construction and safe for concurrent use; every call owns its run state.
type Pipeline struct {
	cfg       Config
	logger    *slog.Logger
	diag      Diagnostics
	normalize normalizeFunc
}

// New validates cfg and creates a pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Detector.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	p := &Pipeline{
		cfg:       cfg,
		logger:    slog.Default(),
		diag:      NopDiagnostics{},
		normalize: detector.NormalizeRegion,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// errNotInitialized is returned by methods called on a nil or zero Pipeline.
var errNotInitialized = errors.New("pipeline not initialized")

func (p *Pipeline) ready() error {
	if p == nil || p.normalize == nil {
		return errNotInitialized
	}
	return nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]interface{} {
	d := p.cfg.Detector
	_, nop := p.diag.(NopDiagnostics)
	return map[string]interface{}{
		"kind":                     d.Kind.String(),
		"max_rows":                 d.MaxRows,
		"rectangularity_threshold": d.RectangularityThreshold,
		"small_element":            d.SmallElementSize,
		"large_element":            d.LargeElementSize,
		"bin_width":                d.BinWidth,
		"edge_density":             d.EdgeDensity,
		"min_area_fraction":        d.MinAreaFraction,
		"window_fraction":          d.WindowFraction,
		"magnitude_floor":          d.MagnitudeFloor,
		"on_crop_failure":          d.OnCropFailure.String(),
		"diagnostics":              !nop,
		"parallel": map[string]interface{}{
			"max_workers":           p.cfg.Parallel.MaxWorkers,
			"has_progress_callback": p.cfg.Parallel.ProgressCallback != nil,
		},
	}
}
