// Package batch localizes candidates across many image files.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/barloc/internal/diagnostics"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
)

// ProcessBatch processes a batch of images with the given configuration.
func ProcessBatch(ctx context.Context, imagePaths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	files, err := discoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	pl, err := buildPipeline(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	col, err := pipeline.ParseColor(config.OverlayColor)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{config.OverlayDir, config.CropDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	workers := config.Workers
	if workers <= 0 {
		workers = pipeline.DefaultParallelConfig().MaxWorkers
	}
	workers = min(workers, len(files))

	config.Logger.Info("Starting batch", "files", len(files), "workers", workers)
	startTime := time.Now()
	results, err := runWorkers(ctx, &processor{pl: pl, cfg: config, overlayCol: col}, files, workers, progressCallback(config))
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{
		Files:       results,
		Duration:    time.Since(startTime),
		WorkerCount: workers,
	}, nil
}

// buildPipeline creates the localization pipeline from the batch configuration.
func buildPipeline(config *Config) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{pipeline.WithLogger(config.Logger)}
	if config.DiagnosticsDir != "" {
		diagOpts := append([]diagnostics.Option{diagnostics.WithLogger(config.Logger)}, config.DiagnosticsOptions...)
		diag, err := diagnostics.New(config.DiagnosticsDir, diagOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithDiagnostics(diag))
	}
	return pipeline.New(config.Pipeline, opts...)
}

// progressCallback draws a console bar when progress is requested. Otherwise
// progress goes to the batch logger at debug level.
func progressCallback(config *Config) pipeline.ProgressCallback {
	if !config.ShowProgress || config.Quiet {
		if config.Logger == nil {
			return pipeline.NoOpProgressCallback{}
		}
		return pipeline.NewLogProgressCallback(config.Logger, slog.LevelDebug, 10)
	}
	w := config.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	return pipeline.NewConsoleProgressCallback(w, "Processing: ").WithUpdateInterval(config.ProgressInterval)
}

type fileJob struct {
	index int
	path  string
}

// runWorkers processes files with a fixed worker pool. Results keep input
// order. Unless ContinueOnError is set, the first failure cancels the rest.
func runWorkers(ctx context.Context, p *processor, files []string, workers int,
	progress pipeline.ProgressCallback) ([]FileResult, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan fileJob)
	done := make(chan int, len(files))
	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results[job.index] = p.processFile(ctx, job.path)
				done <- job.index
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- fileJob{index: i, path: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	progress.OnStart(len(files))
	defer progress.OnComplete()

	var firstErr error
	processed := 0
	for i := range done {
		processed++
		if msg := results[i].Error; msg != "" {
			progress.OnError(processed, errors.New(msg))
			p.cfg.Logger.Warn("Image failed", "file", results[i].File, "error", msg)
			if !p.cfg.ContinueOnError && firstErr == nil {
				firstErr = errors.New(msg)
				cancel()
			}
		}
		progress.OnProgress(processed, len(files))
	}

	if err := parent.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
