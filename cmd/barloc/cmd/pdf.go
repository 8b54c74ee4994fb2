package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MeKo-Tech/barloc/internal/diagnostics"
	"github.com/MeKo-Tech/barloc/internal/pdf"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Locate barcode candidates in images embedded in PDFs",
	Long: `Extract the images embedded in PDF pages and locate barcode candidates in each.

Examples:
  barloc pdf invoice.pdf
  barloc pdf invoice.pdf --pages 1-3 --format json
  barloc pdf locked.pdf --password secret`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runPDFCommand,
}

func runPDFCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	pCfg, resolved, err := resolvePipelineConfig(cmd, cfg)
	if err != nil {
		return err
	}

	format := "text"
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format: %s (must be text or json)", format)
	}

	opts := []pipeline.Option{pipeline.WithLogger(slog.Default())}
	if resolved.Diagnostics.Enabled {
		diag, err := diagnostics.New(resolved.Diagnostics.Dir,
			diagnostics.WithLogger(slog.Default()),
			diagnostics.WithCSV(resolved.Diagnostics.CSV),
			diagnostics.WithPNG(resolved.Diagnostics.PNG))
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithDiagnostics(diag))
	}
	pl, err := pipeline.New(pCfg, opts...)
	if err != nil {
		return err
	}

	pdfOpts := pdf.Options{Pages: cfg.PDF.Pages}
	if cmd.Flags().Changed("pages") {
		pdfOpts.Pages, _ = cmd.Flags().GetString("pages")
	}
	pdfOpts.UserPassword, _ = cmd.Flags().GetString("password")
	pdfOpts.OwnerPassword, _ = cmd.Flags().GetString("owner-password")

	results := make([]*pipeline.PDFResult, 0, len(args))
	for _, file := range args {
		res, err := pl.ProcessPDFWithOptions(cmd.Context(), file, pdfOpts)
		if err != nil {
			if pdf.IsPasswordError(err) {
				return fmt.Errorf("%s is encrypted, supply --password or --owner-password: %w", file, err)
			}
			return fmt.Errorf("%s: %w", file, err)
		}
		results = append(results, res)
	}

	output, err := formatPDFResults(results, format)
	if err != nil {
		return err
	}

	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", outputFile)
	return nil
}

// formatPDFResults renders one result as an object and several as an array.
func formatPDFResults(results []*pipeline.PDFResult, format string) (string, error) {
	if format == "json" {
		var v any = results
		if len(results) == 1 {
			v = results[0]
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var sb strings.Builder
	for _, res := range results {
		text, err := pipeline.ToPlainTextPDF(res)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addDetectorFlags(pdfCmd)
	addDiagnosticsFlags(pdfCmd)

	pdfCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	pdfCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	pdfCmd.Flags().String("pages", "", "page range, e.g. 1-5 or 1,3,5 (default: all pages)")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}
