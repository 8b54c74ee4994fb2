package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/barloc/internal/batch"
	"github.com/MeKo-Tech/barloc/internal/utils"
	"github.com/spf13/cobra"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [files...]",
	Short: "Locate barcode candidates in image files",
	Long: `Locate matrix or linear barcode candidates in one or more image files.

Supported formats: JPEG, PNG, BMP, TIFF, WebP, GIF

Examples:
  barloc image label.png
  barloc image a.png b.jpg --format json --output regions.json
  barloc image shelf.jpg --kind linear --overlay-dir overlays/
  barloc image label.png --crop-dir crops/ --on-crop-failure skip`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runImageCommand,
}

func runImageCommand(cmd *cobra.Command, args []string) error {
	for _, f := range args {
		if !utils.IsSupportedImage(f) {
			return fmt.Errorf("unsupported image format: %s", f)
		}
	}

	batchConfig, err := configToBatchConfig(GetConfig(), cmd)
	if err != nil {
		return err
	}
	// explicit files bypass the batch include/exclude filters
	batchConfig.IncludePatterns, batchConfig.ExcludePatterns = nil, nil
	batchConfig.Quiet = true
	batchConfig.Logger = slog.Default()

	result, err := batch.ProcessBatch(cmd.Context(), args, batchConfig)
	if err != nil {
		return err
	}
	return result.SaveResults(cmd.OutOrStdout(), batchConfig.Format, batchConfig.OutputFile, false)
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addOutputFlags(imageCmd)
	addDetectorFlags(imageCmd)
	addDiagnosticsFlags(imageCmd)
}
