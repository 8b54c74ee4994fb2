package pipeline

import (
	"context"

	"github.com/MeKo-Tech/barloc/internal/detector"
)

// Checkpoint names a stage output exposed to diagnostics.
type Checkpoint string

// Checkpoints in pipeline order.
const (
	CheckpointGrayscale     Checkpoint = "grayscale"
	CheckpointEnhanced      Checkpoint = "enhanced"
	CheckpointMagnitude     Checkpoint = "magnitude"
	CheckpointEdges         Checkpoint = "edges"
	CheckpointDirection     Checkpoint = "direction"
	CheckpointProbability   Checkpoint = "probability"
	CheckpointCandidateMask Checkpoint = "candidate_mask"
	CheckpointConsolidated  Checkpoint = "consolidated"
)

// Checkpoints lists every matrix checkpoint in the order they are emitted.
var Checkpoints = []Checkpoint{
	CheckpointGrayscale, CheckpointEnhanced, CheckpointMagnitude, CheckpointEdges,
	CheckpointDirection, CheckpointProbability, CheckpointCandidateMask, CheckpointConsolidated,
}

// Scale tells a sink how to read snapshot values.
type Scale int

const (
	// ScaleIntensity values lie in 0..255.
	ScaleIntensity Scale = iota
	// ScaleUnit values lie in 0..1.
	ScaleUnit
	// ScaleDegrees values are angles in [0,180) or -1 for "no direction".
	ScaleDegrees
)

// Snapshot is a copy of one intermediate matrix. Sinks may keep it.
type Snapshot struct {
	Image      string
	Checkpoint Checkpoint
	Scale      Scale
	Width      int
	Height     int
	Values     []float32
}

// Diagnostics receives intermediate results of a run. Implementations must be
// safe for concurrent use when the pipeline processes images in parallel.
// Diagnostics never influence the results.
type Diagnostics interface {
	Matrix(s Snapshot)
	Candidates(image string, accepted []detector.Candidate, rejected []detector.Rejection)
}

// NopDiagnostics discards everything. The pipeline recognizes it and skips
// building snapshots.
type NopDiagnostics struct{}

func (NopDiagnostics) Matrix(Snapshot) {}

func (NopDiagnostics) Candidates(string, []detector.Candidate, []detector.Rejection) {}

type imageLabelKey struct{}

// WithImageLabel attaches a label to ctx that diagnostics use to name the
// current image.
func WithImageLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, imageLabelKey{}, label)
}

// ImageLabel returns the label attached by WithImageLabel, or "image".
func ImageLabel(ctx context.Context) string {
	if v, ok := ctx.Value(imageLabelKey{}).(string); ok && v != "" {
		return v
	}
	return "image"
}

func planeSnapshot(label string, cp Checkpoint, scale Scale, p detector.Plane) Snapshot {
	return Snapshot{
		Image: label, Checkpoint: cp, Scale: scale,
		Width: p.Width, Height: p.Height,
		Values: append([]float32(nil), p.Pix...),
	}
}

func maskSnapshot(label string, cp Checkpoint, w, h int, pix []uint8) Snapshot {
	vals := make([]float32, len(pix))
	for i, v := range pix {
		vals[i] = float32(v)
	}
	return Snapshot{Image: label, Checkpoint: cp, Scale: ScaleIntensity, Width: w, Height: h, Values: vals}
}

func directionSnapshot(label string, gf detector.GradientField) Snapshot {
	vals := make([]float32, len(gf.Direction))
	for i, d := range gf.Direction {
		vals[i] = float32(d)
	}
	return Snapshot{
		Image: label, Checkpoint: CheckpointDirection, Scale: ScaleDegrees,
		Width: gf.Width, Height: gf.Height, Values: vals,
	}
}
