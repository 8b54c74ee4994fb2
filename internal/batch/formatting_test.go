package batch

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFiles() []FileResult {
	region := pipeline.Region{
		Index: 0,
		Rect: utils.RotatedRect{
			Center: utils.Point{X: 60, Y: 65},
			Width:  40,
			Height: 30,
		},
		Box:            utils.Box{MinX: 40, MinY: 50, MaxX: 80, MaxY: 80},
		Rectangularity: 0.9,
	}
	return []FileResult{
		{File: "a.png", Result: &pipeline.ImageResult{Width: 200, Height: 100, Kind: "matrix", Regions: []pipeline.Region{region}}},
		{File: "b.png", Result: &pipeline.ImageResult{Width: 200, Height: 100, Kind: "matrix"}},
		{File: "c.png", Error: "failed to load c.png"},
	}
}

func TestFormatBatchResults_JSON(t *testing.T) {
	out, err := formatBatchResults(sampleFiles(), "json")
	require.NoError(t, err)

	var decoded struct {
		Images []struct {
			File   string          `json:"file"`
			Result json.RawMessage `json:"result"`
			Error  string          `json:"error"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Images, 3)
	assert.Equal(t, "a.png", decoded.Images[0].File)
	assert.NotEmpty(t, decoded.Images[0].Result)
	assert.Empty(t, decoded.Images[2].Result)
	assert.Equal(t, "failed to load c.png", decoded.Images[2].Error)
}

func TestFormatBatchResults_CSV(t *testing.T) {
	out, err := formatBatchResults(sampleFiles(), "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	width := len(pipeline.CSVHeader) + 2
	assert.Equal(t, "file", records[0][0])
	assert.Equal(t, "error", records[0][width-1])
	for _, rec := range records {
		assert.Len(t, rec, width)
	}
	assert.Equal(t, "a.png", records[1][0])
	assert.Equal(t, "0", records[1][1])
	assert.Equal(t, "b.png", records[2][0])
	assert.Empty(t, records[2][1])
	assert.Equal(t, "failed to load c.png", records[3][width-1])
}

func TestFormatBatchResults_Text(t *testing.T) {
	out, err := formatBatchResults(sampleFiles(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "# a.png\nMatrix #0: center (60.0, 65.0)")
	assert.Contains(t, out, "# b.png\nNo matrix candidates found")
	assert.Contains(t, out, "# c.png\nError: failed to load c.png")

	def, err := formatBatchResults(sampleFiles(), "")
	require.NoError(t, err)
	assert.Equal(t, out, def)
}

func TestFormatBatchResults_Unknown(t *testing.T) {
	_, err := formatBatchResults(sampleFiles(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
