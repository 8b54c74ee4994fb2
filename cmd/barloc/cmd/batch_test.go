package cmd

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommand_Directory(t *testing.T) {
	dir := t.TempDir()
	writeChecker(t, dir, "a.png")
	writeBlank(t, dir, "b.png")
	results := filepath.Join(t.TempDir(), "regions.csv")

	out, err := executeCommand(t, "batch", dir, "--format", "csv", "--output", results, "--workers", "2", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to "+results)
	assert.Contains(t, out, "Processing Statistics:")
	assert.Contains(t, out, "Total images: 2")

	f, err := os.Open(results)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "file", rows[0][0])
	assert.True(t, strings.HasSuffix(rows[1][0], "a.png"))
	assert.True(t, strings.HasSuffix(rows[2][0], "b.png"))
}

func TestBatchCommand_Filters(t *testing.T) {
	dir := t.TempDir()
	writeChecker(t, dir, "keep.png")
	writeChecker(t, dir, "skip_thumb.png")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	writeChecker(t, sub, "deep.png")

	out, err := executeCommand(t, "batch", dir, "--exclude", "*_thumb.*", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "keep.png")
	assert.NotContains(t, out, "skip_thumb.png")
	assert.NotContains(t, out, "deep.png")

	out, err = executeCommand(t, "batch", dir, "--recursive", "--include", "deep.png", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "deep.png")
	assert.NotContains(t, out, "keep.png")
}

func TestBatchCommand_ContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeChecker(t, dir, "a.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o600))

	_, err := executeCommand(t, "batch", dir, "--quiet")
	require.Error(t, err)

	out, err := executeCommand(t, "batch", dir, "--continue-on-error", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "Matrix #0")
}

func TestBatchCommand_Errors(t *testing.T) {
	_, err := executeCommand(t, "batch")
	require.Error(t, err)

	_, err = executeCommand(t, "batch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")
}
