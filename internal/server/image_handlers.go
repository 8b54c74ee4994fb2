package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// locateImageHandler processes single-image localization requests.
func (s *Server) locateImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, err := s.parseImageRequest(w, r)
	if err != nil {
		locateRequestsTotal.WithLabelValues("image", "error").Inc()
		return // error already written
	}

	if s.pipeline == nil {
		s.writeErrorResponse(w, "localization pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.pipeline.ProcessImageContext(pipeline.WithImageLabel(ctx, "upload"), img)
	duration := time.Since(start)
	if err != nil {
		locateRequestsTotal.WithLabelValues("image", "error").Inc()
		s.logger.Error("Localization failed", "error", err)
		s.writeErrorResponse(w, fmt.Sprintf("localization failed: %v", err), statusForError(err))
		return
	}

	locateRequestsTotal.WithLabelValues("image", "success").Inc()
	locateDuration.WithLabelValues("image").Observe(duration.Seconds())
	regionsFound.WithLabelValues("image").Observe(float64(len(res.Regions)))
	s.logger.Info("Image localized", "regions", len(res.Regions), "duration", duration)

	s.writeImageResponse(w, r, img, res)
}

// parseImageRequest reads and decodes the multipart "image" field.
func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())

	if err := r.ParseMultipartForm(s.uploadLimit()); err != nil {
		s.handleFormParseError(w, err)
		return nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.uploadLimit() {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, fmt.Errorf("upload of %d bytes exceeds limit", header.Size)
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, err
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, err
	}
	return img, nil
}

func (s *Server) writeImageResponse(w http.ResponseWriter, r *http.Request, img image.Image, res *pipeline.ImageResult) {
	switch requestFormat(r) {
	case formatCSV:
		out, err := pipeline.ToCSVImage(res)
		s.writeText(w, "text/csv", out, err)
	case formatText:
		out, err := pipeline.ToPlainTextImage(res)
		s.writeText(w, "text/plain; charset=utf-8", out, err)
	case formatOverlay:
		s.handleOverlayOutput(w, r, img, res)
	case formatJSON:
		s.writeJSON(w, http.StatusOK, LocateResponse{Success: true, Image: res})
	default:
		s.writeErrorResponse(w, "unsupported format: "+requestFormat(r), http.StatusBadRequest)
	}
}

func (s *Server) writeText(w http.ResponseWriter, contentType, body string, err error) {
	if err != nil {
		http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(body))
}

// handleOverlayOutput renders the candidate rectangles over the upload as PNG.
func (s *Server) handleOverlayOutput(w http.ResponseWriter, r *http.Request, img image.Image, res *pipeline.ImageResult) {
	if !s.overlayEnabled {
		s.writeErrorResponse(w, "overlay output disabled", http.StatusForbidden)
		return
	}

	col := s.overlayColor
	if v := r.FormValue("color"); v != "" {
		c, err := pipeline.ParseColor(v)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		col = c
	}

	ov := pipeline.RenderOverlay(img, res, col, 2)
	if ov == nil {
		s.writeErrorResponse(w, "overlay failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, ov); err != nil {
		s.logger.Error("Failed to encode overlay", "error", err)
	}
}
