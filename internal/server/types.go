package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pipelineInterface defines the methods needed by the server from a pipeline.
type pipelineInterface interface {
	ProcessContext(ctx context.Context, in pipeline.Input) (*pipeline.Output, error)
	ProcessQuad(in pipeline.Input, quad utils.Quad) (*pipeline.Output, error)
	Detect(in pipeline.Input) (*pipeline.Detection, error)
	ProcessBatch(ctx context.Context, inputs []pipeline.Input, config pipeline.ParallelConfig) ([]pipeline.BatchItem, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline     pipelineInterface
	corsOrigin   string
	maxUploadMB  int64
	timeoutSec   int
	batchWorkers int
	maxBatch     int
	version      string
	rateLimiter  *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	PipelineConfig pipeline.Config
	BatchWorkers   int
	MaxBatchItems  int
	Version        string
	RateLimit      *Limits
}

// Address returns the listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// RectifyResponse is returned by POST /rectify?format=json. Image holds the
// encoded result and is base64 encoded by encoding/json.
type RectifyResponse struct {
	Success   bool             `json:"success"`
	RequestID string           `json:"request_id"`
	Result    *pipeline.Output `json:"result"`
	Image     []byte           `json:"image"`
}

// DetectResponse is returned by POST /detect.
type DetectResponse struct {
	Success   bool                `json:"success"`
	RequestID string              `json:"request_id"`
	Result    *pipeline.Detection `json:"result"`
}

// NewServer creates a server with a pipeline built from config.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, err
	}
	return newServer(config, pl), nil
}

func newServer(config Config, pl pipelineInterface) *Server {
	s := &Server{
		pipeline:     pl,
		corsOrigin:   config.CORSOrigin,
		maxUploadMB:  config.MaxUploadMB,
		timeoutSec:   config.TimeoutSec,
		batchWorkers: config.BatchWorkers,
		maxBatch:     config.MaxBatchItems,
		version:      config.Version,
	}
	if s.maxBatch <= 0 {
		s.maxBatch = defaultMaxBatchItems
	}
	if config.RateLimit != nil {
		s.rateLimiter = NewRateLimiter(*config.RateLimit)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/rectify", s.wrap(s.rectifyHandler))
	mux.HandleFunc("/rectify/batch", s.wrap(s.batchHandler))
	mux.HandleFunc("/detect", s.wrap(s.detectHandler))
	// limits apply per image on the socket, see admitWebSocketImage
	mux.HandleFunc("/ws/rectify", s.rectifyWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// wrap applies the middleware chain shared by the processing endpoints.
func (s *Server) wrap(h http.HandlerFunc) http.HandlerFunc {
	return s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(s.timeoutMiddleware(h))))
}

func (s *Server) requestTimeout() time.Duration {
	if s.timeoutSec <= 0 {
		return 0
	}
	return time.Duration(s.timeoutSec) * time.Second
}

// uploadLimit is the largest accepted image in bytes, zero for unlimited.
func (s *Server) uploadLimit() int64 {
	if s.maxUploadMB <= 0 {
		return 0
	}
	return s.maxUploadMB << 20
}
