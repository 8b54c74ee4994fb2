package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/barloc/internal/detector"
	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateImageHandler_RealPipeline(t *testing.T) {
	s, err := NewServer(Config{Pipeline: pipeline.DefaultConfig(), OverlayEnabled: true, TimeoutSec: 30})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.locateImageHandler(rec, multipartRequest(t, "/locate/image", "image", "scene.png", checkerPNG(t), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LocateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Image)
	assert.Equal(t, 300, resp.Image.Width)
	require.Len(t, resp.Image.Regions, 1)
	assert.InDelta(t, 150, resp.Image.Regions[0].Rect.Center.X, 6)
	assert.InDelta(t, 100, resp.Image.Regions[0].Rect.Center.Y, 6)
}

func TestLocateImageHandler_Formats(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[string]string
		wantCode    int
		contentType string
		check       func(t *testing.T, body []byte)
	}{
		{
			name:        "csv",
			fields:      map[string]string{"format": "csv"},
			wantCode:    http.StatusOK,
			contentType: "text/csv",
			check: func(t *testing.T, body []byte) {
				records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
				require.NoError(t, err)
				require.Len(t, records, 2)
				assert.Equal(t, pipeline.CSVHeader, records[0])
			},
		},
		{
			name:        "text",
			fields:      map[string]string{"format": "text"},
			wantCode:    http.StatusOK,
			contentType: "text/plain; charset=utf-8",
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "Matrix #0: center (150.0, 100.0)")
			},
		},
		{
			name:        "overlay",
			fields:      map[string]string{"format": "overlay", "color": "#00FF00"},
			wantCode:    http.StatusOK,
			contentType: "image/png",
			check: func(t *testing.T, body []byte) {
				img, err := png.Decode(bytes.NewReader(body))
				require.NoError(t, err)
				assert.Equal(t, 300, img.Bounds().Dx())
			},
		},
		{
			name:     "overlay bad colour",
			fields:   map[string]string{"format": "overlay", "color": "nope"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unsupported",
			fields:   map[string]string{"format": "xml"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockLocator{})
			rec := httptest.NewRecorder()
			s.locateImageHandler(rec, multipartRequest(t, "/locate/image", "image", "scene.png", checkerPNG(t), tt.fields))

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

func TestLocateImageHandler_OverlayDisabled(t *testing.T) {
	s := newTestServer(&mockLocator{})
	s.overlayEnabled = false

	rec := httptest.NewRecorder()
	s.locateImageHandler(rec, multipartRequest(t, "/locate/image?format=overlay", "image", "a.png", checkerPNG(t), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLocateImageHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		loc      *mockLocator
		req      func(t *testing.T) *http.Request
		wantCode int
		wantMsg  string
	}{
		{
			name:     "no file",
			loc:      &mockLocator{},
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/locate/image", "", "", nil, nil) },
			wantCode: http.StatusBadRequest,
			wantMsg:  "No image file provided",
		},
		{
			name: "not multipart",
			loc:  &mockLocator{},
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/locate/image", bytes.NewBufferString("x"))
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Failed to parse form data",
		},
		{
			name: "invalid image",
			loc:  &mockLocator{},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/locate/image", "image", "a.png", []byte("not an image"), nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid image format",
		},
		{
			name: "pipeline failure",
			loc:  &mockLocator{imageErr: errors.New("boom")},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/locate/image", "image", "a.png", checkerPNG(t), nil)
			},
			wantCode: http.StatusInternalServerError,
			wantMsg:  "localization failed: boom",
		},
		{
			name: "empty image",
			loc:  &mockLocator{imageErr: fmt.Errorf("preprocess: %w", detector.ErrEmptyImage)},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/locate/image", "image", "a.png", checkerPNG(t), nil)
			},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.loc)
			rec := httptest.NewRecorder()
			s.locateImageHandler(rec, tt.req(t))

			require.Equal(t, tt.wantCode, rec.Code)
			var resp LocateResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.False(t, resp.Success)
			if tt.wantMsg != "" {
				assert.Contains(t, resp.Error, tt.wantMsg)
			}
		})
	}
}

func TestLocateImageHandler_TooLarge(t *testing.T) {
	s := newTestServer(&mockLocator{})
	s.maxUploadMB = 1

	big := make([]byte, 2*1024*1024)
	rec := httptest.NewRecorder()
	s.locateImageHandler(rec, multipartRequest(t, "/locate/image", "image", "big.png", big, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLocateImageHandler_MethodNotAllowed(t *testing.T) {
	loc := &mockLocator{}
	s := newTestServer(loc)
	rec := httptest.NewRecorder()
	s.locateImageHandler(rec, httptest.NewRequest(http.MethodGet, "/locate/image", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, loc.imageCalls)
}
