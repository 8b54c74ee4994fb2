package batch

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// loadImage loads an image after checking the extension.
func loadImage(path string) (image.Image, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, nil
}

// baseName strips directory and extension from a path.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// saveOverlay renders the regions over img and writes <base>_overlay.png.
func saveOverlay(img image.Image, res *pipeline.ImageResult, col color.Color, path, overlayDir string) (string, error) {
	ov := pipeline.RenderOverlay(img, res, col, 2)
	if ov == nil {
		return "", nil
	}
	outPath := filepath.Join(overlayDir, baseName(path)+"_overlay.png")
	if err := utils.SaveImage(outPath, ov); err != nil {
		return "", err
	}
	return outPath, nil
}

// processor holds what every worker needs for one batch run.
type processor struct {
	pl         *pipeline.Pipeline
	cfg        *Config
	overlayCol color.Color
}

// processFile loads, localizes and writes the side outputs for one file.
func (p *processor) processFile(ctx context.Context, path string) FileResult {
	fr := FileResult{File: path}
	start := time.Now()
	defer func() {
		batchImageDuration.Observe(time.Since(start).Seconds())
		if fr.Error != "" {
			batchImagesTotal.WithLabelValues("error").Inc()
			return
		}
		batchImagesTotal.WithLabelValues("success").Inc()
		batchRegionsTotal.Add(float64(len(fr.Result.Regions)))
	}()

	img, err := loadImage(path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}

	res, err := p.pl.ProcessImageContext(pipeline.WithImageLabel(ctx, baseName(path)), img)
	if err != nil {
		fr.Error = fmt.Sprintf("localization failed for %s: %v", path, err)
		return fr
	}
	fr.Result = res

	if p.cfg.OverlayDir != "" {
		out, err := saveOverlay(img, res, p.overlayCol, path, p.cfg.OverlayDir)
		if err != nil {
			p.cfg.Logger.Warn("Failed to save overlay", "file", path, "error", err)
		}
		fr.Overlay = out
	}
	if p.cfg.CropDir != "" {
		crops, err := pipeline.SaveCrops(p.cfg.CropDir, baseName(path), res)
		if err != nil {
			p.cfg.Logger.Warn("Failed to save crops", "file", path, "error", err)
		}
		fr.Crops = crops
	}
	return fr
}
