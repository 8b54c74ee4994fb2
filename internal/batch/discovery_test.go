package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := discoverImageFiles([]string{}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_SingleFiles(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "b.png")
	jpg := filepath.Join(dir, "a.jpg")
	txt := filepath.Join(dir, "notes.txt")
	for _, f := range []string{png, jpg, txt} {
		touch(t, f)
	}

	files, err := discoverImageFiles([]string{png, jpg, txt, png}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png, jpg}, files, "argument order kept, duplicates and unsupported files dropped")
}

func TestDiscoverImageFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "z.png"))
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "sub", "deep.png"))

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{"flat default", false, nil, nil, []string{"a.jpg", "z.png"}},
		{"recursive", true, nil, nil, []string{"a.jpg", "sub/deep.png", "z.png"}},
		{"include png", true, []string{"*.png"}, nil, []string{"sub/deep.png", "z.png"}},
		{"exclude wins", true, []string{"*.png"}, []string{"deep*"}, []string{"z.png"}},
		{"include txt", false, []string{"*.txt"}, nil, []string{"notes.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := discoverImageFiles([]string{dir}, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(dir, filepath.FromSlash(w))
			}
			assert.Equal(t, want, files)
		})
	}
}

func TestDiscoverImageFiles_Missing(t *testing.T) {
	_, err := discoverImageFiles([]string{"/non/existent"}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestFileFilter(t *testing.T) {
	tests := []struct {
		name             string
		path             string
		include, exclude []string
		want             bool
	}{
		{"supported default", "/x/a.PNG", nil, nil, true},
		{"unsupported default", "/x/a.tiff", nil, nil, false},
		{"excluded", "/x/a.png", nil, []string{"a.*"}, false},
		{"included by pattern", "/x/a.tiff", []string{"*.tiff"}, nil, true},
		{"directory part ignored", "/scans/a.png", []string{"scans*"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileFilter{include: tt.include, exclude: tt.exclude}.accepts(tt.path))
		})
	}
	assert.False(t, globMatch("a.png", nil))
}

func TestDiscoverImageFiles_ExcludedDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "keep.png"))
	touch(t, filepath.Join(dir, "overlays", "keep_overlay.png"))

	files, err := discoverImageFiles([]string{dir}, true, nil, []string{"overlays"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "keep.png")}, files)
}
