package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/barloc/internal/common"
	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// runState carries one invocation's intermediate results through the stages.
// It is created per call and never shared.
type runState struct {
	label string
	cfg   detector.Config
	diag  bool

	src        image.Rectangle
	pre        *detector.Preprocessed
	gradient   detector.GradientField
	prob       detector.Plane
	candidates detector.Mask
	cleaned    detector.Mask
	accepted   []detector.Candidate
	rejected   []detector.Rejection

	result *ImageResult
}

// ProcessImage localizes barcode candidates in a single image.
func (p *Pipeline) ProcessImage(img image.Image) (*ImageResult, error) {
	return p.ProcessImageContext(context.Background(), img)
}

// ProcessImageContext is like ProcessImage but allows cancellation via context.
// The probability map stage checks ctx once per row.
func (p *Pipeline) ProcessImageContext(ctx context.Context, img image.Image) (*ImageResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, detector.ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, nop := p.diag.(NopDiagnostics)
	st := &runState{
		label:  ImageLabel(ctx),
		cfg:    p.cfg.Detector,
		diag:   !nop,
		src:    img.Bounds(),
		result: &ImageResult{Width: img.Bounds().Dx(), Height: img.Bounds().Dy(), Kind: p.cfg.Detector.Kind.String()},
	}
	p.logger.Debug("Starting image processing", "image", st.label, "width", st.result.Width, "height", st.result.Height)
	total := common.NewNamedTimer("total")

	if err := p.preprocess(st, img); err != nil {
		return nil, err
	}
	p.computeGradient(st)
	if err := p.buildProbability(ctx, st); err != nil {
		return nil, err
	}
	p.extract(st)
	if err := p.materialize(st); err != nil {
		return nil, err
	}

	st.result.Processing.TotalNs = total.StopNs()
	p.logger.Debug("Image processing completed",
		"image", st.label,
		"regions", len(st.result.Regions),
		"skipped", st.result.Skipped,
		"duration_ms", st.result.Processing.TotalNs/1000000)
	return st.result, nil
}

func (p *Pipeline) preprocess(st *runState, img image.Image) error {
	timer := common.NewNamedTimer("preprocess")
	pre, err := detector.Preprocess(img, st.cfg)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	st.pre = pre
	st.result.Params = pre.Params
	st.result.Processing.PreprocessNs = timer.StopNs()

	p.logger.Debug("Preprocessing completed",
		"image", st.label,
		"working_width", pre.Params.Width,
		"working_height", pre.Params.Height,
		"scale_x", pre.Params.ScaleX,
		"scale_y", pre.Params.ScaleY,
		"min_area", pre.Params.MinArea,
		"window", fmt.Sprintf("%dx%d", pre.Params.WindowWidth, pre.Params.WindowHeight),
		"edge_threshold", pre.Params.EdgeThreshold)

	if st.diag {
		p.diag.Matrix(planeSnapshot(st.label, CheckpointGrayscale, ScaleIntensity, pre.Gray))
		p.diag.Matrix(planeSnapshot(st.label, CheckpointEnhanced, ScaleIntensity, pre.Enhanced))
	}
	return nil
}

func (p *Pipeline) computeGradient(st *runState) {
	timer := common.NewNamedTimer("gradient")
	st.gradient = detector.ComputeGradient(st.pre.Enhanced, st.cfg.MagnitudeFloor)
	st.result.Processing.GradientNs = timer.StopNs()
	p.logger.Debug("Gradient field computed",
		"image", st.label,
		"edge_threshold", st.gradient.Threshold,
		"edge_pixels", st.gradient.Edges.CountNonZero())

	if st.diag {
		g := st.gradient
		p.diag.Matrix(planeSnapshot(st.label, CheckpointMagnitude, ScaleIntensity, g.Magnitude))
		p.diag.Matrix(maskSnapshot(st.label, CheckpointEdges, g.Width, g.Height, g.Edges.Pix))
		p.diag.Matrix(directionSnapshot(st.label, g))
	}
}

func (p *Pipeline) buildProbability(ctx context.Context, st *runState) error {
	timer := common.NewNamedTimer("probability")
	prob, err := detector.BuildProbabilityMap(ctx, st.gradient, st.pre.Params, st.cfg)
	if err != nil {
		return fmt.Errorf("probability map: %w", err)
	}
	st.prob = prob
	mask, _, level := detector.CandidateMask(prob)
	st.candidates = mask
	st.result.Processing.ProbabilityNs = timer.StopNs()
	p.logger.Debug("Probability map built",
		"image", st.label,
		"otsu_level", level,
		"candidate_pixels", mask.CountNonZero(),
		"duration_ms", st.result.Processing.ProbabilityNs/1000000)

	if st.diag {
		p.diag.Matrix(planeSnapshot(st.label, CheckpointProbability, ScaleUnit, prob))
		p.diag.Matrix(maskSnapshot(st.label, CheckpointCandidateMask, mask.Width, mask.Height, mask.Pix))
	}
	return nil
}

func (p *Pipeline) extract(st *runState) {
	timer := common.NewNamedTimer("extract")
	st.cleaned = detector.Consolidate(st.candidates, st.cfg)
	st.accepted, st.rejected = detector.ExtractCandidates(st.cleaned, st.pre.Params, st.cfg)
	st.result.Processing.ExtractNs = timer.StopNs()
	p.logger.Debug("Candidates extracted",
		"image", st.label,
		"accepted", len(st.accepted),
		"rejected", len(st.rejected))

	if st.diag {
		p.diag.Matrix(maskSnapshot(st.label, CheckpointConsolidated, st.cleaned.Width, st.cleaned.Height, st.cleaned.Pix))
		p.diag.Candidates(st.label, st.accepted, st.rejected)
	}
}

// materialize crops every accepted candidate. Under CropAbort the first
// failure discards all regions of the image.
func (p *Pipeline) materialize(st *runState) error {
	timer := common.NewNamedTimer("normalize")
	regions := make([]Region, 0, len(st.accepted))
	for _, c := range st.accepted {
		crop, err := p.normalize(st.pre.Working, c.Rect)
		if err != nil {
			merr := &MaterializeError{Index: c.Index, Err: err}
			if st.cfg.OnCropFailure == detector.CropAbort {
				return merr
			}
			p.logger.Warn("Skipping region", "image", st.label, "error", merr)
			st.result.Skipped++
			continue
		}
		regions = append(regions, p.toRegion(st, c, crop))
	}
	st.result.Regions = regions
	st.result.Processing.NormalizeNs = timer.StopNs()
	return nil
}

// toOriginal maps a working-image rectangle into the source image whose
// bounds start at origin. Pixel centres are matched per axis: working x maps
// to (x+0.5)/ScaleX-0.5.
func toOriginal(r utils.RotatedRect, params detector.Params, origin image.Point) utils.RotatedRect {
	ix, iy := 1/params.ScaleX, 1/params.ScaleY
	orig := r.ScaleXY(ix, iy)
	orig.Center.X = (r.Center.X+0.5)*ix - 0.5 + float64(origin.X)
	orig.Center.Y = (r.Center.Y+0.5)*iy - 0.5 + float64(origin.Y)
	return orig
}

func (p *Pipeline) toRegion(st *runState, c detector.Candidate, crop *image.NRGBA) Region {
	orig := toOriginal(c.Rect, st.pre.Params, st.src.Min)
	return Region{
		Index:          c.Index,
		Rect:           orig,
		WorkingRect:    c.Rect,
		Corners:        orig.Corners(),
		Box:            orig.BoundingBox().Clamp(st.src),
		Area:           c.Area,
		Rectangularity: c.Rectangularity,
		Image:          crop,
	}
}

// IsMaterializeError reports whether err carries a MaterializeError.
func IsMaterializeError(err error) bool {
	var merr *MaterializeError
	return errors.As(err, &merr)
}
