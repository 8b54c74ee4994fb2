package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/utils"
)

// maxBatchItems caps the number of images in one batch request.
const maxBatchItems = 10

// BatchLocateRequest is the JSON body of /locate/batch.
type BatchLocateRequest struct {
	Images []BatchImageRequest `json:"images"`
}

// BatchImageRequest is a single image in a batch request.
// Data is base64 encoded in JSON.
type BatchImageRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchLocateResponse is the response for batch localization.
type BatchLocateResponse struct {
	Success bool                   `json:"success"`
	Results []BatchLocateResult    `json:"results,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Summary BatchProcessingSummary `json:"summary"`
}

// BatchLocateResult is a single result in batch processing.
type BatchLocateResult struct {
	Name     string                `json:"name"`
	Success  bool                  `json:"success"`
	Result   *pipeline.ImageResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
	Duration float64               `json:"duration_seconds"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalRegions  int     `json:"total_regions"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// locateBatchHandler processes a JSON batch of images. Items fail independently.
func (s *Server) locateBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())
	var req BatchLocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		locateRequestsTotal.WithLabelValues("batch", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}

	if len(req.Images) == 0 {
		s.writeErrorResponse(w, "No images provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Images) > maxBatchItems {
		s.writeErrorResponse(w, fmt.Sprintf("Batch size too large (maximum %d items)", maxBatchItems), http.StatusBadRequest)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, "localization pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	results, summary := s.processBatchRequest(ctx, req)
	total := time.Since(start)

	summary.TotalDuration = total.Seconds()
	summary.AvgItemTime = summary.TotalDuration / float64(summary.TotalItems)

	locateRequestsTotal.WithLabelValues("batch", "success").Inc()
	locateDuration.WithLabelValues("batch").Observe(total.Seconds())
	regionsFound.WithLabelValues("batch").Observe(float64(summary.TotalRegions))

	s.writeJSON(w, http.StatusOK, BatchLocateResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	})
}

func (s *Server) processBatchRequest(ctx context.Context, req BatchLocateRequest) ([]BatchLocateResult, BatchProcessingSummary) {
	results := make([]BatchLocateResult, 0, len(req.Images))
	summary := BatchProcessingSummary{TotalItems: len(req.Images)}

	for i, item := range req.Images {
		name := item.Name
		if name == "" {
			name = fmt.Sprintf("image_%d", i)
		}
		res := s.processBatchImage(ctx, name, item.Data)
		if res.Success {
			summary.Successful++
			summary.TotalRegions += len(res.Result.Regions)
		} else {
			summary.Failed++
		}
		results = append(results, res)
	}
	return results, summary
}

func (s *Server) processBatchImage(ctx context.Context, name string, data []byte) (out BatchLocateResult) {
	start := time.Now()
	out.Name = name
	defer func() { out.Duration = time.Since(start).Seconds() }()

	if len(data) == 0 {
		out.Error = "no image data provided"
		return out
	}
	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		out.Error = fmt.Sprintf("invalid image: %v", err)
		return out
	}
	res, err := s.pipeline.ProcessImageContext(pipeline.WithImageLabel(ctx, name), img)
	if err != nil {
		out.Error = fmt.Sprintf("localization failed: %v", err)
		return out
	}
	out.Success = true
	out.Result = res
	return out
}
