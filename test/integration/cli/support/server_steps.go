package support

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/server"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) startServer(limits *server.Limits) error {
	srv, err := server.NewServer(server.Config{
		Host:           "127.0.0.1",
		CORSOrigin:     "*",
		MaxUploadMB:    1,
		TimeoutSec:     30,
		PipelineConfig: pipeline.DefaultConfig(),
		BatchWorkers:   2,
		Version:        "integration",
		RateLimit:      limits,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.Server = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) theRectificationServerIsRunning() error {
	return testCtx.startServer(nil)
}

func (testCtx *TestContext) theServerIsRunningWithARateLimit(perMinute int) error {
	return testCtx.startServer(&server.Limits{RequestsPerMinute: perMinute})
}

func (testCtx *TestContext) do(req *http.Request) error {
	if testCtx.Server == nil {
		return errors.New("server is not running")
	}
	resp, err := testCtx.Server.Client().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastResponse, testCtx.LastBody = resp, body
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	if testCtx.Server == nil {
		return errors.New("server is not running")
	}
	req, err := http.NewRequest(http.MethodGet, testCtx.Server.URL+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iUploadTo posts name as the multipart field "image".
func (testCtx *TestContext) iUploadTo(name, path string) error {
	if testCtx.Server == nil {
		return errors.New("server is not running")
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.Server.URL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadBytesTo(size int, path string) error {
	if testCtx.Server == nil {
		return errors.New("server is not running")
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.Server.URL+path, bytes.NewReader(make([]byte, size)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastResponse == nil {
		return errors.New("no response received")
	}
	if testCtx.LastResponse.StatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, testCtx.LastResponse.StatusCode, testCtx.LastBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if testCtx.LastResponse == nil {
		return errors.New("no response received")
	}
	if got := testCtx.LastResponse.Header.Get(name); got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(testCtx.LastBody), expected) {
		return fmt.Errorf("response body does not contain %q: %s", expected, testCtx.LastBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, expected string) error {
	return compareField(testCtx.LastBody, path, expected)
}

func (testCtx *TestContext) theResponseImageShouldBe(w, h int) error {
	img, _, err := decodeImage(testCtx.LastBody)
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("expected a %dx%d image, got %dx%d", w, h, b.Dx(), b.Dy())
	}
	return nil
}

// RegisterServerSteps registers the HTTP service steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the rectification server is running$`, testCtx.theRectificationServerIsRunning)
	sc.Step(`^the rectification server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithARateLimit)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload (\d+) bytes to "([^"]*)"$`, testCtx.iUploadBytesTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, testCtx.theResponseBodyShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response image should be (\d+)x(\d+) pixels$`, testCtx.theResponseImageShouldBe)
}
