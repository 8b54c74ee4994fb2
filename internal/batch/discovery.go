package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/MeKo-Tech/barloc/internal/utils"
)

// fileFilter selects inputs by base-name glob. Exclusion wins over inclusion;
// with no include patterns every supported image format is accepted.
type fileFilter struct {
	include []string
	exclude []string
}

func (f fileFilter) accepts(path string) bool {
	name := filepath.Base(path)
	if globMatch(name, f.exclude) {
		return false
	}
	if len(f.include) == 0 {
		return utils.IsSupportedImage(name)
	}
	return globMatch(name, f.include)
}

func globMatch(name string, patterns []string) bool {
	return slices.ContainsFunc(patterns, func(p string) bool {
		ok, _ := filepath.Match(p, name)
		return ok
	})
}

// discoverImageFiles expands the command line arguments into the list of
// images to process. Explicit files keep argument order and directory
// listings are sorted. Each path appears once.
func discoverImageFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	filter := fileFilter{include: includePatterns, exclude: excludePatterns}
	seen := make(map[string]struct{})
	var out []string
	add := func(paths ...string) {
		for _, p := range paths {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if filter.accepts(arg) {
				add(arg)
			}
			continue
		}
		files, err := filter.scan(arg, recursive)
		if err != nil {
			return nil, err
		}
		add(files...)
	}
	return out, nil
}

// scan lists the accepted files below root. Subdirectories are entered only
// when recursive is set and their name is not excluded.
func (f fileFilter) scan(root string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (!recursive || globMatch(d.Name(), f.exclude)) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.accepts(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}
