package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                           // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback              // Optional progress reporting
	ErrorHandler     func(int, image.Image, error) // Optional per-image error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// imageResult carries one finished run back to the collector.
type imageResult struct {
	index  int
	result *ImageResult
	err    error
}

// ProcessImages processes multiple images sequentially. Results keep input
// order; a failed image leaves a nil entry and the first failure is returned.
func (p *Pipeline) ProcessImages(images []image.Image) ([]*ImageResult, error) {
	return p.ProcessImagesContext(context.Background(), images)
}

// ProcessImagesContext is ProcessImages with context cancellation support.
func (p *Pipeline) ProcessImagesContext(ctx context.Context, images []image.Image) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if err := p.ready(); err != nil {
		return nil, err
	}
	results := make([]*ImageResult, len(images))
	var firstErr error
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessImageContext(labelFor(ctx, i), img)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("image %d: %w", i, err)
			}
			continue
		}
		results[i] = res
	}
	return results, firstErr
}

// ProcessImagesParallel processes multiple images in parallel using a worker pool.
// Returns results in the same order as input images.
func (p *Pipeline) ProcessImagesParallel(images []image.Image, config ParallelConfig) ([]*ImageResult, error) {
	return p.ProcessImagesParallelContext(context.Background(), images, config)
}

// ProcessImagesParallelContext processes images in parallel with context
// cancellation support. Every image gets its own run; a failure in one image
// never affects the others.
func (p *Pipeline) ProcessImagesParallelContext(ctx context.Context, images []image.Image, config ParallelConfig) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if err := p.ready(); err != nil {
		return nil, err
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(images))
		defer config.ProgressCallback.OnComplete()
	}

	results := p.runWorkers(ctx, images, min(config.MaxWorkers, len(images)))

	ordered := make([]*ImageResult, len(images))
	errs := make([]error, len(images))
	done := 0
	for r := range results {
		ordered[r.index], errs[r.index] = r.result, r.err
		done++
		if cb := config.ProgressCallback; cb != nil {
			if r.err != nil {
				cb.OnError(done, r.err)
			}
			cb.OnProgress(done, len(images))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstError error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if firstError == nil {
			firstError = fmt.Errorf("image %d: %w", i, err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, images[i], err)
		}
	}
	return ordered, firstError
}

// runWorkers fans the image indices out to n workers. The returned channel
// is closed once every worker has stopped; on cancellation some indices are
// never reported.
func (p *Pipeline) runWorkers(ctx context.Context, images []image.Image, n int) <-chan imageResult {
	indices := make(chan int)
	results := make(chan imageResult, len(images))

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for i := range indices {
				res, err := p.ProcessImageContext(labelFor(ctx, i), images[i])
				results <- imageResult{index: i, result: res, err: err}
			}
		})
	}

	go func() {
		defer close(indices)
		for i := range images {
			select {
			case indices <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// labelFor derives a per-image diagnostics label from the caller's label.
func labelFor(ctx context.Context, i int) context.Context {
	return WithImageLabel(ctx, fmt.Sprintf("%s_%03d", ImageLabel(ctx), i))
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	TotalRegions     int           `json:"total_regions"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats calculates performance statistics for parallel processing.
func CalculateParallelStats(results []*ImageResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r == nil {
			stats.FailedImages++
			continue
		}
		stats.ProcessedImages++
		stats.TotalRegions += len(r.Regions)
	}
	if stats.ProcessedImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ProcessedImages)
		stats.ThroughputPerSec = float64(stats.ProcessedImages) / duration.Seconds()
	}
	return stats
}
