package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/stretchr/testify/require"
)

// mockPipeline lets tests control each pipeline call.
type mockPipeline struct {
	processFn func(ctx context.Context, in pipeline.Input) (*pipeline.Output, error)
	quadFn    func(in pipeline.Input, quad utils.Quad) (*pipeline.Output, error)
	detectFn  func(in pipeline.Input) (*pipeline.Detection, error)
	batchFn   func(ctx context.Context, inputs []pipeline.Input, cfg pipeline.ParallelConfig) ([]pipeline.BatchItem, error)
}

func (m *mockPipeline) ProcessContext(ctx context.Context, in pipeline.Input) (*pipeline.Output, error) {
	return m.processFn(ctx, in)
}

func (m *mockPipeline) ProcessQuad(in pipeline.Input, quad utils.Quad) (*pipeline.Output, error) {
	return m.quadFn(in, quad)
}

func (m *mockPipeline) Detect(in pipeline.Input) (*pipeline.Detection, error) {
	return m.detectFn(in)
}

func (m *mockPipeline) ProcessBatch(ctx context.Context, inputs []pipeline.Input, cfg pipeline.ParallelConfig) ([]pipeline.BatchItem, error) {
	return m.batchFn(ctx, inputs, cfg)
}

// newTestServer builds a server around the real pipeline with default settings.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	pl, err := pipeline.New(pipeline.DefaultConfig())
	require.NoError(t, err)
	return newServer(Config{CORSOrigin: "*", MaxUploadMB: 5, TimeoutSec: 30, BatchWorkers: 2, Version: "test"}, pl)
}

// cardPNG returns the encoded reference card.
func cardPNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.CardImage())
}

// createMultipartFormRequest creates a multipart form request with an image.
func createMultipartFormRequest(t *testing.T, target string, imageData []byte, filename string, extraFields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(imageData)
	require.NoError(t, err)

	for key, value := range extraFields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// serve runs req through the full route table.
func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}
