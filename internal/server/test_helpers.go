package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/testutil"
	"github.com/MeKo-Tech/barloc/internal/utils"
	"github.com/stretchr/testify/require"
)

// mockLocator records calls and returns canned results.
type mockLocator struct {
	mu sync.Mutex

	imageResult *pipeline.ImageResult
	imageErr    error
	pdfResult   *pipeline.PDFResult
	pdfErr      error

	imageCalls int
	pdfPages   string
	pdfContent []byte
}

func (m *mockLocator) ProcessImageContext(_ context.Context, img image.Image) (*pipeline.ImageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageCalls++
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	if m.imageResult != nil {
		return m.imageResult, nil
	}
	b := img.Bounds()
	return &pipeline.ImageResult{Width: b.Dx(), Height: b.Dy(), Kind: "matrix", Regions: []pipeline.Region{mockRegion()}}, nil
}

func (m *mockLocator) ProcessPDFContext(_ context.Context, filename string, pageRange string) (*pipeline.PDFResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdfPages = pageRange
	m.pdfContent, _ = os.ReadFile(filename) //nolint:gosec // test reads the spooled upload
	if m.pdfErr != nil {
		return nil, m.pdfErr
	}
	if m.pdfResult != nil {
		return m.pdfResult, nil
	}
	return &pipeline.PDFResult{
		Filename:   filename,
		TotalPages: 1,
		Pages: []pipeline.PDFPageResult{{
			PageNumber: 1,
			Width:      300,
			Height:     200,
			Images: []pipeline.PDFImageResult{{
				ImageIndex: 0,
				Width:      300,
				Height:     200,
				Regions:    []pipeline.Region{mockRegion()},
			}},
		}},
	}, nil
}

func mockRegion() pipeline.Region {
	rect := utils.RotatedRect{Center: utils.Point{X: 150, Y: 100}, Width: 100, Height: 100}
	return pipeline.Region{
		Index:          0,
		Rect:           rect,
		WorkingRect:    rect,
		Corners:        rect.Corners(),
		Box:            rect.BoundingBox(),
		Area:           10000,
		Rectangularity: 0.95,
	}
}

// newTestServer builds a server around loc without constructing a pipeline.
func newTestServer(loc locator) *Server {
	col, _ := pipeline.ParseColor(pipeline.DefaultOverlayColor)
	return &Server{
		pipeline:       loc,
		corsOrigin:     "*",
		maxUploadMB:    10,
		timeout:        5 * time.Second,
		overlayEnabled: true,
		overlayColor:   col,
		version:        "test",
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// checkerPNG encodes a 300x200 scene with one 100x100 checkerboard patch.
func checkerPNG(t *testing.T) []byte {
	t.Helper()
	img := testutil.CheckerboardScene(300, 200, image.Rect(100, 50, 200, 150), 5)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with one file field and extra form fields.
func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
