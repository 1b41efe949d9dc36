package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsTypeRectify  = "rectify"
	wsTypeDetect   = "detect"
	wsTypeResponse = "rectify_response"
	wsTypeError    = "error"

	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second

	// wsFrameSlack covers base64 inflation and JSON fields of text frames.
	wsFrameSlack = 64 << 10
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketRequest is a JSON text frame. When Image is empty the options
// apply to the next binary frame, which carries the raw image bytes.
type WebSocketRequest struct {
	Type    string `json:"type"` // "rectify" (default) or "detect"
	Name    string `json:"name,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Corners string `json:"corners,omitempty"`
	Image   []byte `json:"image,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is sent as a JSON text frame. A completed rectification
// is followed by one binary frame holding the encoded image.
type WebSocketResponse struct {
	Type      string `json:"type"`
	Status    string `json:"status"` // "processing", "completed", "error"
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// rectifyWebSocketHandler handles WebSocket connections for streaming rectification.
func (s *Server) rectifyWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn, getClientIP(r))
}

// handleWebSocketConnection processes messages until the client disconnects.
// Every image counts against the rate limiter of client.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn, client string) {
	if limit := s.uploadLimit(); limit > 0 {
		conn.SetReadLimit(limit*4/3 + wsFrameSlack)
	}
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	pending := WebSocketRequest{Type: wsTypeRectify}
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				// gorilla has already sent CloseMessageTooBig
				slog.Warn("WebSocket frame exceeds upload limit", "client", client)
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch messageType {
		case websocket.TextMessage:
			var req WebSocketRequest
			if err := json.Unmarshal(data, &req); err != nil {
				s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
				continue
			}
			if len(req.Image) == 0 {
				pending = req
				continue
			}
			if s.admitWebSocketImage(conn, client, len(req.Image)) {
				s.handleWebSocketImage(conn, req, req.Image)
			}
		case websocket.BinaryMessage:
			if s.admitWebSocketImage(conn, client, len(data)) {
				s.handleWebSocketImage(conn, pending, data)
			}
			pending = WebSocketRequest{Type: wsTypeRectify}
		}
	}
}

// admitWebSocketImage applies the per-client limits to one image of size
// bytes and reports a rejection as an error frame.
func (s *Server) admitWebSocketImage(conn WebSocketConnWriter, client string, size int) bool {
	if s.rateLimiter == nil {
		return true
	}
	err := s.rateLimiter.Allow(client, int64(size))
	if err == nil {
		return true
	}

	errorType := "rate_limited"
	var rle *RateLimitError
	var qe *QuotaExceededError
	switch {
	case errors.As(err, &rle):
		rateLimitHits.WithLabelValues(rle.Type).Inc()
	case errors.As(err, &qe):
		rateLimitHits.WithLabelValues(qe.Type).Inc()
		errorType = "quota_exceeded"
	}
	s.sendWebSocketError(conn, "", errorType, err.Error())
	return false
}

// handleWebSocketImage processes one image according to req and writes the
// status frames and, for rectification, the result image.
func (s *Server) handleWebSocketImage(conn WebSocketConnWriter, req WebSocketRequest, data []byte) {
	requestID := uuid.NewString()
	if len(data) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	if limit := s.uploadLimit(); limit > 0 && int64(len(data)) > limit {
		s.sendWebSocketError(conn, requestID, "too_large",
			fmt.Sprintf("Image of %d bytes exceeds the %d MB upload limit", len(data), s.maxUploadMB))
		return
	}
	if s.pipeline == nil {
		s.sendWebSocketError(conn, requestID, "unavailable", "Rectification pipeline not initialized")
		return
	}

	in := pipeline.Input{Data: data, Width: req.Width, Height: req.Height, Name: req.Name}
	uploadSizeBytes.Observe(float64(len(data)))

	s.sendWebSocketResponse(conn, WebSocketResponse{Type: wsTypeResponse, Status: "processing", RequestID: requestID})

	switch req.Type {
	case "", wsTypeRectify:
		out, err := s.rectifyWebSocket(in, req.Corners)
		if err != nil {
			rectifyRequestsTotal.WithLabelValues("websocket", "error").Inc()
			s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
			return
		}
		observeOutput("websocket", out)
		s.sendWebSocketResponse(conn, WebSocketResponse{Type: wsTypeResponse, Status: "completed", Result: out, RequestID: requestID})
		if err := conn.WriteMessage(websocket.BinaryMessage, out.Data); err != nil {
			slog.Error("Failed to send WebSocket image", "error", err)
			return
		}
		websocketMessagesTotal.WithLabelValues("sent").Inc()
	case wsTypeDetect:
		det, err := s.pipeline.Detect(in)
		if err != nil {
			rectifyRequestsTotal.WithLabelValues("detect", "error").Inc()
			s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
			return
		}
		rectifyRequestsTotal.WithLabelValues("detect", "success").Inc()
		s.sendWebSocketResponse(conn, WebSocketResponse{Type: wsTypeResponse, Status: "completed", Result: det, RequestID: requestID})
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

func (s *Server) rectifyWebSocket(in pipeline.Input, corners string) (*pipeline.Output, error) {
	if corners != "" {
		quad, err := utils.ParseQuad(corners)
		if err != nil {
			return nil, fmt.Errorf("invalid corners: %w", err)
		}
		return s.pipeline.ProcessQuad(in, quad)
	}
	ctx := context.Background()
	if d := s.requestTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return s.pipeline.ProcessContext(ctx, in)
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      wsTypeError,
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
