package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
)

// BatchRectifyRequest is the body of POST /rectify/batch. Image data is base64
// encoded in JSON.
type BatchRectifyRequest struct {
	Images      []BatchImageRequest `json:"images"`
	StopOnError bool                `json:"stop_on_error,omitempty"`
}

// BatchImageRequest represents a single image in a batch request.
type BatchImageRequest struct {
	Name   string `json:"name"`
	Data   []byte `json:"data"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// BatchRectifyResponse represents the response for batch processing.
type BatchRectifyResponse struct {
	Success   bool                `json:"success"`
	RequestID string              `json:"request_id"`
	Results   []BatchRectifyItem  `json:"results"`
	Summary   pipeline.BatchStats `json:"summary"`
	Duration  float64             `json:"duration_seconds"`
}

// BatchRectifyItem is the outcome for one image, in request order.
type BatchRectifyItem struct {
	Index   int              `json:"index"`
	Name    string           `json:"name"`
	Success bool             `json:"success"`
	Result  *pipeline.Output `json:"result,omitempty"`
	Image   []byte           `json:"image,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// batchHandler rectifies several base64 encoded images in parallel.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, r, "Rectification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}
	if limit := s.uploadLimit(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var req BatchRectifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			s.writeErrorResponse(w, r, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, r, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		s.writeErrorResponse(w, r, "No images provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Images) > s.maxBatch {
		s.writeErrorResponse(w, r, fmt.Sprintf("Batch size too large (maximum %d items)", s.maxBatch), http.StatusBadRequest)
		return
	}

	inputs := make([]pipeline.Input, len(req.Images))
	for i, img := range req.Images {
		inputs[i] = pipeline.Input{Data: img.Data, Width: img.Width, Height: img.Height, Name: img.Name}
		uploadSizeBytes.Observe(float64(len(img.Data)))
	}

	start := time.Now()
	items, err := s.pipeline.ProcessBatch(r.Context(), inputs, pipeline.ParallelConfig{
		MaxWorkers:  s.batchWorkers,
		StopOnError: req.StopOnError,
	})
	if err != nil {
		s.writeErrorResponse(w, r, "Batch interrupted: "+err.Error(), statusForError(err))
		return
	}

	results := make([]BatchRectifyItem, len(items))
	for i, it := range items {
		results[i] = BatchRectifyItem{Index: it.Index, Name: it.Name}
		if it.Err != nil {
			results[i].Error = it.Err.Error()
			rectifyRequestsTotal.WithLabelValues("batch", "error").Inc()
			continue
		}
		results[i].Success = true
		results[i].Result = it.Output
		results[i].Image = it.Output.Data
		observeOutput("batch", it.Output)
	}

	summary := pipeline.CalculateBatchStats(items)
	s.writeJSON(w, BatchRectifyResponse{
		Success:   summary.Failed == 0,
		RequestID: RequestID(r.Context()),
		Results:   results,
		Summary:   summary,
		Duration:  time.Since(start).Seconds(),
	})
}
