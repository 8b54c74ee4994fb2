package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pdf"
)

// ProcessPDF localizes candidates in the images embedded in a PDF file.
func (p *Pipeline) ProcessPDF(filename string, pageRange string) (*PDFResult, error) {
	return p.ProcessPDFContext(context.Background(), filename, pageRange)
}

// ProcessPDFContext processes a PDF file with context cancellation support.
// Pages are processed in ascending page order.
func (p *Pipeline) ProcessPDFContext(ctx context.Context, filename string, pageRange string) (*PDFResult, error) {
	return p.ProcessPDFWithOptions(ctx, filename, pdf.Options{Pages: pageRange})
}

// ProcessPDFWithOptions is ProcessPDFContext with passwords for encrypted files.
func (p *Pipeline) ProcessPDFWithOptions(ctx context.Context, filename string, opts pdf.Options) (*PDFResult, error) {
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}
	if err := p.ready(); err != nil {
		return nil, err
	}

	totalStart := time.Now()

	extractStart := time.Now()
	pageImages, err := pdf.ExtractImagesWithOptions(ctx, filename, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	extractNs := time.Since(extractStart).Nanoseconds()

	pages, err := p.ProcessPages(ctx, pageImages)
	if err != nil {
		return nil, err
	}

	result := &PDFResult{Filename: filename, TotalPages: len(pages), Pages: pages}
	result.Processing.ExtractionNs = extractNs
	result.Processing.TotalNs = time.Since(totalStart).Nanoseconds()
	return result, nil
}

// ProcessPages localizes candidates in already extracted page images keyed by page number.
func (p *Pipeline) ProcessPages(ctx context.Context, pageImages map[int][]image.Image) ([]PDFPageResult, error) {
	nums := make([]int, 0, len(pageImages))
	for n := range pageImages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	pages := make([]PDFPageResult, 0, len(nums))
	for _, n := range nums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := p.processPDFPage(WithImageLabel(ctx, fmt.Sprintf("page%03d", n)), n, pageImages[n])
		if err != nil {
			return nil, fmt.Errorf("failed to process page %d: %w", n, err)
		}
		pages = append(pages, *page)
	}
	return pages, nil
}

// processPDFPage processes all images from a single PDF page.
func (p *Pipeline) processPDFPage(ctx context.Context, pageNum int, images []image.Image) (*PDFPageResult, error) {
	pageStart := time.Now()

	imageResults := make([]PDFImageResult, 0, len(images))
	var pageWidth, pageHeight int

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b := img.Bounds()
		pageWidth = max(pageWidth, b.Dx())
		pageHeight = max(pageHeight, b.Dy())

		res, err := p.ProcessImageContext(labelFor(ctx, i), img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}

		imageResults = append(imageResults, PDFImageResult{
			ImageIndex: i,
			Width:      b.Dx(),
			Height:     b.Dy(),
			Regions:    res.Regions,
			Skipped:    res.Skipped,
		})
	}

	page := &PDFPageResult{
		PageNumber: pageNum,
		Width:      pageWidth,
		Height:     pageHeight,
		Images:     imageResults,
	}
	page.Processing.TotalNs = time.Since(pageStart).Nanoseconds()
	return page, nil
}
