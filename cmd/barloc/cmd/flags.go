package cmd

import (
	"github.com/MeKo-Tech/barloc/internal/batch"
	"github.com/MeKo-Tech/barloc/internal/config"
	"github.com/MeKo-Tech/barloc/internal/diagnostics"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/spf13/cobra"
)

// addDetectorFlags registers the localization tunables shared by all commands.
func addDetectorFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", "matrix", "barcode kind to locate: matrix or linear")
	cmd.Flags().Int("max-rows", 300, "working image height cap in rows")
	cmd.Flags().Float64("rectangularity", 0, "minimum area/rectangle ratio (default depends on --kind)")
	cmd.Flags().Float64("edge-density", 0, "probability cut-off (default depends on --kind)")
	cmd.Flags().Int("magnitude-floor", 50, "lowest gradient magnitude threshold")
	cmd.Flags().String("on-crop-failure", "abort", "crop failure policy: abort or skip")
	cmd.Flags().Int("detector-workers", 0, "parallel workers for multi-image inputs (default from config)")
}

// addDiagnosticsFlags registers the intermediate matrix dump flags.
func addDiagnosticsFlags(cmd *cobra.Command) {
	cmd.Flags().String("diagnostics-dir", "", "write intermediate matrices to this directory")
	cmd.Flags().Bool("diagnostics-csv", true, "write CSV tables with diagnostics")
	cmd.Flags().Bool("diagnostics-png", true, "write PNG previews with diagnostics")
}

// applyDetectorFlags copies explicitly set detector flags onto cfg.
func applyDetectorFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("kind") {
		cfg.Detector.Kind, _ = flags.GetString("kind")
	}
	if flags.Changed("max-rows") {
		cfg.Detector.MaxRows, _ = flags.GetInt("max-rows")
	}
	if flags.Changed("rectangularity") {
		v, _ := flags.GetFloat64("rectangularity")
		cfg.Detector.RectangularityThreshold = &v
	}
	if flags.Changed("edge-density") {
		v, _ := flags.GetFloat64("edge-density")
		cfg.Detector.EdgeDensity = &v
	}
	if flags.Changed("magnitude-floor") {
		cfg.Detector.MagnitudeFloor, _ = flags.GetInt("magnitude-floor")
	}
	if flags.Changed("on-crop-failure") {
		cfg.Detector.OnCropFailure, _ = flags.GetString("on-crop-failure")
	}
	if flags.Changed("detector-workers") {
		cfg.Detector.Workers, _ = flags.GetInt("detector-workers")
	}
	if flags.Changed("diagnostics-dir") {
		cfg.Diagnostics.Dir, _ = flags.GetString("diagnostics-dir")
		cfg.Diagnostics.Enabled = cfg.Diagnostics.Dir != ""
	}
	if flags.Changed("diagnostics-csv") {
		cfg.Diagnostics.CSV, _ = flags.GetBool("diagnostics-csv")
	}
	if flags.Changed("diagnostics-png") {
		cfg.Diagnostics.PNG, _ = flags.GetBool("diagnostics-png")
	}
}

// resolvePipelineConfig applies the detector flags to a copy of cfg and
// converts the result.
func resolvePipelineConfig(cmd *cobra.Command, cfg *config.Config) (pipeline.Config, config.Config, error) {
	resolved := *cfg
	applyDetectorFlags(cmd, &resolved)
	pCfg, err := resolved.ToPipelineConfig()
	return pCfg, resolved, err
}

// configToBatchConfig maps centralized configuration to batch.Config.
// Flags a command does not define are never reported as changed.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) (*batch.Config, error) {
	pCfg, resolved, err := resolvePipelineConfig(cmd, cfg)
	if err != nil {
		return nil, err
	}

	batchConfig := batch.DefaultConfig()
	batchConfig.Pipeline = pCfg

	if resolved.Diagnostics.Enabled {
		batchConfig.DiagnosticsDir = resolved.Diagnostics.Dir
		batchConfig.DiagnosticsOptions = []diagnostics.Option{
			diagnostics.WithCSV(resolved.Diagnostics.CSV),
			diagnostics.WithPNG(resolved.Diagnostics.PNG),
		}
	}

	flags := cmd.Flags()

	batchConfig.Format = cfg.Output.Format
	if flags.Changed("format") {
		batchConfig.Format, _ = flags.GetString("format")
	}

	batchConfig.OutputFile = cfg.Output.File
	if flags.Changed("output") {
		batchConfig.OutputFile, _ = flags.GetString("output")
	}

	batchConfig.OverlayDir = cfg.Output.OverlayDir
	if flags.Changed("overlay-dir") {
		batchConfig.OverlayDir, _ = flags.GetString("overlay-dir")
	}

	batchConfig.OverlayColor = cfg.Output.OverlayColor
	if flags.Changed("overlay-color") {
		batchConfig.OverlayColor, _ = flags.GetString("overlay-color")
	}

	batchConfig.CropDir = cfg.Output.CropDir
	if flags.Changed("crop-dir") {
		batchConfig.CropDir, _ = flags.GetString("crop-dir")
	}

	batchConfig.Workers = cfg.Batch.Workers
	if flags.Changed("workers") {
		batchConfig.Workers, _ = flags.GetInt("workers")
	}

	batchConfig.Recursive = cfg.Batch.Recursive
	if flags.Changed("recursive") {
		batchConfig.Recursive, _ = flags.GetBool("recursive")
	}

	batchConfig.IncludePatterns = cfg.Batch.Include
	if flags.Changed("include") {
		batchConfig.IncludePatterns, _ = flags.GetStringSlice("include")
	}

	batchConfig.ExcludePatterns = cfg.Batch.Exclude
	if flags.Changed("exclude") {
		batchConfig.ExcludePatterns, _ = flags.GetStringSlice("exclude")
	}

	batchConfig.ContinueOnError = cfg.Batch.ContinueOnError
	if flags.Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = flags.GetBool("continue-on-error")
	}

	batchConfig.ShowProgress, _ = flags.GetBool("progress")
	batchConfig.Quiet, _ = flags.GetBool("quiet")

	return batchConfig, nil
}

// addOutputFlags registers the output flags shared by image and batch.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("overlay-dir", "", "directory to write overlay images with candidate outlines")
	cmd.Flags().String("overlay-color", pipeline.DefaultOverlayColor, "overlay outline color (hex or SVG name)")
	cmd.Flags().String("crop-dir", "", "directory to write normalized candidate crops")
}
