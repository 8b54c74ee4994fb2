package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
)

// locatePDFHandler localizes candidates in the images embedded in an uploaded PDF.
func (s *Server) locatePDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := s.parsePDFRequest(w, r)
	if err != nil {
		locateRequestsTotal.WithLabelValues("pdf", "error").Inc()
		return // error already written
	}
	defer func() { _ = file.Close() }()

	if s.pipeline == nil {
		s.writeErrorResponse(w, "localization pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	tmpPath, err := spoolUpload(file)
	if err != nil {
		locateRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.Remove(tmpPath) }()

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.pipeline.ProcessPDFContext(ctx, tmpPath, r.FormValue("pages"))
	duration := time.Since(start)
	if err != nil {
		locateRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.logger.Error("PDF localization failed", "file", header.Filename, "error", err)
		s.writeErrorResponse(w, fmt.Sprintf("localization failed: %v", err), statusForError(err))
		return
	}
	res.Filename = header.Filename

	regions := 0
	for _, page := range res.Pages {
		for _, img := range page.Images {
			regions += len(img.Regions)
		}
	}
	locateRequestsTotal.WithLabelValues("pdf", "success").Inc()
	locateDuration.WithLabelValues("pdf").Observe(duration.Seconds())
	regionsFound.WithLabelValues("pdf").Observe(float64(regions))
	s.logger.Info("PDF localized", "file", header.Filename, "pages", res.TotalPages, "regions", regions)

	switch requestFormat(r) {
	case formatText:
		text, err := pipeline.ToPlainTextPDF(res)
		s.writeText(w, "text/plain; charset=utf-8", text, err)
	case formatJSON:
		s.writeJSON(w, http.StatusOK, LocateResponse{Success: true, PDF: res})
	default:
		s.writeErrorResponse(w, "unsupported format: "+requestFormat(r), http.StatusBadRequest)
	}
}

func (s *Server) parsePDFRequest(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())

	if err := r.ParseMultipartForm(s.uploadLimit()); err != nil {
		s.handleFormParseError(w, err)
		return nil, nil, err
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return nil, nil, err
	}

	if header.Size > s.uploadLimit() {
		_ = file.Close()
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, nil, fmt.Errorf("upload of %d bytes exceeds limit", header.Size)
	}
	uploadSizeBytes.Observe(float64(header.Size))
	return file, header, nil
}

// spoolUpload copies an upload to a temporary file for the PDF extractor.
func spoolUpload(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "barloc-upload-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
