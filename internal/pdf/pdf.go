package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
)

// Options controls image extraction.
type Options struct {
	// Pages selects pages like "1-5" or "1,3,5". Empty means all pages.
	Pages string
	// UserPassword and OwnerPassword unlock encrypted documents.
	UserPassword  string
	OwnerPassword string
}

// ExtractImages extracts the embedded images of the selected pages, keyed by page number.
func ExtractImages(ctx context.Context, filename string, pageRange string) (map[int][]image.Image, error) {
	return ExtractImagesWithOptions(ctx, filename, Options{Pages: pageRange})
}

// ExtractImagesWithOptions is ExtractImages with password support.
func ExtractImagesWithOptions(ctx context.Context, filename string, opts Options) (map[int][]image.Image, error) {
	pageNumbers, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "barloc-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, newConfiguration(opts)); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	result, err := collectExtractedImages(ctx, tempDir, base)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// PageCount returns the number of pages of a PDF file.
func PageCount(filename string) (int, error) {
	if _, err := os.Stat(filename); err != nil {
		return 0, err
	}
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}

func newConfiguration(opts Options) *model.Configuration {
	if opts.UserPassword == "" && opts.OwnerPassword == "" {
		return nil
	}
	conf := model.NewDefaultConfiguration()
	conf.UserPW = opts.UserPassword
	conf.OwnerPW = opts.OwnerPassword
	return conf
}

// IsPasswordError reports whether err looks like an encryption or password failure.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: files come from our own temp directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	return img, err
}

// collectExtractedImages groups the decodable images in dir by page number.
// Entries are visited in name order so images keep a stable order within
// their page. Files outside the naming scheme or that fail to decode are
// skipped.
func collectExtractedImages(ctx context.Context, dir, base string) (map[int][]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	pages := make(map[int][]image.Image)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		page, err := parsePageFromFilename(base, e.Name())
		if err != nil {
			continue
		}
		img, err := decodeFile(filepath.Join(dir, e.Name()))
		if err != nil || img == nil {
			continue
		}
		pages[page] = append(pages[page], img)
	}
	return pages, nil
}

// parsePageFromFilename reads the page number from an extracted image name
// of the form <base>_<page>_<name>.<ext>. A "page_" prefix is accepted in
// place of the base name.
func parsePageFromFilename(base, filename string) (int, error) {
	rest, ok := "", false
	if base != "" {
		rest, ok = strings.CutPrefix(filename, base+"_")
	}
	if !ok {
		rest, ok = strings.CutPrefix(filename, "page_")
	}
	if !ok {
		return 0, errors.New("not a page file")
	}

	token, _, found := strings.Cut(rest, "_")
	if !found || token == "" {
		return 0, errors.New("invalid filename format")
	}
	page, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return page, nil
}

// parsePageRange expands a selection like "1-3,7" into page numbers in the
// order given. Blank input selects every page and yields nil.
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for part := range strings.SplitSeq(pageRange, ",") {
		first, last, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for p := first; p <= last; p++ {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

// parseRangeToken parses "3" or "1-5" into an inclusive page interval.
func parseRangeToken(tok string) (int, int, error) {
	lo, hi, isRange := strings.Cut(tok, "-")
	if !isRange {
		page, err := strconv.Atoi(tok)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page number: %s", tok)
		}
		return page, page, nil
	}
	if strings.Contains(hi, "-") {
		return 0, 0, fmt.Errorf("invalid range format: %s", tok)
	}
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start page: %s", lo)
	}
	last, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end page: %s", hi)
	}
	if first < 1 || first > last {
		return 0, 0, fmt.Errorf("invalid page range %d-%d", first, last)
	}
	return first, last, nil
}
