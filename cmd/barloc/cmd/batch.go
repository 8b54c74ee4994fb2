package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/MeKo-Tech/barloc/internal/batch"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Locate barcode candidates in many images in parallel",
	Long: `Locate barcode candidates in image files and directories using a pool of
parallel workers. Results are reported in input order regardless of the order
in which workers finish.

Examples:
  barloc batch *.png
  barloc batch scans/ --recursive --workers 8
  barloc batch scans/ --include "*.jpg" --exclude "*_thumb.*"
  barloc batch scans/ --format csv --output regions.csv --stats`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	batchConfig, err := configToBatchConfig(GetConfig(), cmd)
	if err != nil {
		return err
	}
	batchConfig.ProgressWriter = cmd.ErrOrStderr()
	batchConfig.Logger = slog.Default()

	result, err := batch.ProcessBatch(cmd.Context(), args, batchConfig)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := result.SaveResults(out, batchConfig.Format, batchConfig.OutputFile, batchConfig.Quiet); err != nil {
		return err
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats && !batchConfig.Quiet {
		result.PrintStats(out)
	}

	stats := result.Stats()
	if stats.FailedImages > 0 && !batchConfig.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d images failed\n", stats.FailedImages, stats.TotalImages)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addOutputFlags(batchCmd)
	addDetectorFlags(batchCmd)
	addDiagnosticsFlags(batchCmd)

	batchCmd.Flags().IntP("workers", "w", runtime.NumCPU(), "number of parallel workers")
	batchCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "file patterns to include (e.g. *.jpg,*.png)")
	batchCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	batchCmd.Flags().Bool("continue-on-error", false, "continue processing when an image fails")
	batchCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
}
