package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

const (
	formatJSON = "json"

	defaultMaxBatchItems = 16
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// rectifyHandler corrects one uploaded document. The result is returned as
// image bytes, or as JSON with the image base64 encoded when format=json.
func (s *Server) rectifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, r, "Rectification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	in, uerr := s.readUpload(w, r)
	if uerr != nil {
		s.writeErrorResponse(w, r, uerr.message, uerr.status)
		return
	}

	var (
		out *pipeline.Output
		err error
	)
	if corners := formOrQuery(r, "corners"); corners != "" {
		quad, perr := utils.ParseQuad(corners)
		if perr != nil {
			s.writeErrorResponse(w, r, "Invalid corners: "+perr.Error(), http.StatusBadRequest)
			return
		}
		out, err = s.pipeline.ProcessQuad(in, quad)
	} else {
		out, err = s.pipeline.ProcessContext(r.Context(), in)
	}
	if err != nil {
		rectifyRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, r, err.Error(), statusForError(err))
		return
	}
	observeOutput("http", out)

	setRectifyHeaders(w, out)
	if formOrQuery(r, "format") == formatJSON {
		s.writeJSON(w, RectifyResponse{Success: true, RequestID: RequestID(r.Context()), Result: out, Image: out.Data})
		return
	}

	w.Header().Set("Content-Type", utils.ContentType(out.Format))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	if _, err := w.Write(out.Data); err != nil {
		slog.Error("Failed to write rectified image", "error", err)
	}
}

// detectHandler runs detection only and returns the corners as JSON.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, r, "Rectification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	in, uerr := s.readUpload(w, r)
	if uerr != nil {
		s.writeErrorResponse(w, r, uerr.message, uerr.status)
		return
	}

	det, err := s.pipeline.Detect(in)
	if err != nil {
		rectifyRequestsTotal.WithLabelValues("detect", "error").Inc()
		s.writeErrorResponse(w, r, err.Error(), statusForError(err))
		return
	}
	rectifyRequestsTotal.WithLabelValues("detect", "success").Inc()
	detectionConfidence.Observe(det.Confidence)

	s.writeJSON(w, DetectResponse{Success: true, RequestID: RequestID(r.Context()), Result: det})
}

// uploadError is a client-facing upload failure and its HTTP status.
type uploadError struct {
	status  int
	message string
}

func (e *uploadError) Error() string { return e.message }

// readUpload reads the image either from the multipart field "image" or from
// the raw request body, plus the optional declared width and height.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Input, *uploadError) {
	limit := s.uploadLimit()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var in pipeline.Input
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			if isTooLarge(err) {
				return in, &uploadError{http.StatusRequestEntityTooLarge, "File too large"}
			}
			return in, &uploadError{http.StatusBadRequest, "Failed to parse form data"}
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return in, &uploadError{http.StatusBadRequest, "No image file provided"}
		}
		defer func() { _ = file.Close() }()
		if in.Data, err = io.ReadAll(file); err != nil {
			return in, &uploadError{http.StatusInternalServerError, "Failed to read image data"}
		}
		in.Name = header.Filename
	} else {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			if isTooLarge(err) {
				return in, &uploadError{http.StatusRequestEntityTooLarge, "File too large"}
			}
			return in, &uploadError{http.StatusBadRequest, "Failed to read request body"}
		}
		in.Data = data
		in.Name = r.URL.Query().Get("name")
	}
	if len(in.Data) == 0 {
		return in, &uploadError{http.StatusBadRequest, "No image data provided"}
	}
	uploadSizeBytes.Observe(float64(len(in.Data)))

	var err error
	if in.Width, err = intParam(r, "width"); err != nil {
		return in, &uploadError{http.StatusBadRequest, err.Error()}
	}
	if in.Height, err = intParam(r, "height"); err != nil {
		return in, &uploadError{http.StatusBadRequest, err.Error()}
	}
	return in, nil
}

// isTooLarge distinguishes body-too-large from generic read errors. The
// multipart reader does not always wrap *http.MaxBytesError.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// formOrQuery reads a parameter from a parsed multipart form or, for raw
// uploads, from the query string.
func formOrQuery(r *http.Request, key string) string {
	if r.MultipartForm != nil {
		if v := r.MultipartForm.Value[key]; len(v) > 0 {
			return v[0]
		}
	}
	return r.URL.Query().Get(key)
}

func intParam(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(formOrQuery(r, key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

// statusForError maps pipeline errors onto HTTP status codes.
func statusForError(err error) int {
	var de *pipeline.DecodeError
	switch {
	case errors.As(err, &de):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func setRectifyHeaders(w http.ResponseWriter, out *pipeline.Output) {
	w.Header().Set("X-Rectify-Method", string(out.Method))
	w.Header().Set("X-Rectify-Confidence", strconv.FormatFloat(out.Confidence, 'f', 2, 64))
	if out.Reason != "" {
		w.Header().Set("X-Rectify-Reason", out.Reason)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "status", statusCode, "error", message,
			"request_id", RequestID(r.Context()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success:   false,
		Error:     message,
		RequestID: RequestID(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
