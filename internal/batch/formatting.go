package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(files []FileResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(files)
	case "csv":
		return formatCSV(files)
	case "text", "":
		return formatText(files)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats results as JSON.
func formatJSON(files []FileResult) (string, error) {
	batchResult := struct {
		Images []FileResult `json:"images"`
	}{Images: files}

	bts, err := json.MarshalIndent(batchResult, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV, one row per region. Files without
// regions get a single row with only the file name, failed files carry the error.
func formatCSV(files []FileResult) (string, error) {
	header := append([]string{"file"}, pipeline.CSVHeader...)
	header = append(header, "error")
	empty := make([]string, len(pipeline.CSVHeader))

	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(header); err != nil {
		return "", err
	}

	for _, f := range files {
		if f.Result == nil || len(f.Result.Regions) == 0 {
			row := append([]string{f.File}, empty...)
			if err := writer.Write(append(row, f.Error)); err != nil {
				return "", err
			}
			continue
		}
		for _, region := range f.Result.Regions {
			row := append([]string{f.File}, pipeline.CSVRow(region)...)
			if err := writer.Write(append(row, "")); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as plain text.
func formatText(files []FileResult) (string, error) {
	var output strings.Builder
	for i, f := range files {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", f.File))
		if f.Result == nil {
			output.WriteString(fmt.Sprintf("Error: %s\n", f.Error))
			continue
		}
		text, err := pipeline.ToPlainTextImage(f.Result)
		if err != nil {
			return "", err
		}
		output.WriteString(text)
		output.WriteString("\n")
	}
	return output.String(), nil
}
