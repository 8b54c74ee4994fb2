package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/barloc/internal/diagnostics"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Localization settings
	Pipeline pipeline.Config

	// Output settings
	Format       string
	OutputFile   string
	OverlayDir   string
	OverlayColor string
	CropDir      string

	// DiagnosticsDir enables intermediate matrix dumps when set.
	DiagnosticsDir     string
	DiagnosticsOptions []diagnostics.Option

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer

	Logger *slog.Logger
}

// DefaultConfig returns a batch configuration for matrix codes.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		Format:           "text",
		OverlayColor:     pipeline.DefaultOverlayColor,
		Workers:          pipeline.DefaultParallelConfig().MaxWorkers,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// FileResult is the outcome for one input file.
type FileResult struct {
	File   string                `json:"file"`
	Result *pipeline.ImageResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
	// Overlay and Crops list the files written for this input.
	Overlay string   `json:"overlay,omitempty"`
	Crops   []string `json:"crops,omitempty"`
}

// Result holds the result of batch processing.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// ImageResults returns the per-file results in input order; failed files are nil.
func (r *Result) ImageResults() []*pipeline.ImageResult {
	out := make([]*pipeline.ImageResult, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.Result
	}
	return out
}

// Stats summarizes the run.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.ImageResults(), r.Duration, r.WorkerCount)
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Files, format)
}

// SaveResults writes the formatted results to outputFile, or to w when outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, _ = fmt.Fprintln(w, output)
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Regions: %d\n", stats.TotalRegions)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
