package support

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/docrect/cmd/docrect/cmd"
)

// TestContext holds the state of one scenario. Commands run in-process
// inside WorkDir, which is also the first config search path.
type TestContext struct {
	// Command execution state
	LastCommand string
	LastStdout  string
	LastStderr  string
	LastError   error

	// Test environment
	WorkDir string
	prevDir string
	prevEnv map[string]*string

	// HTTP state
	Server       *httptest.Server
	LastResponse *http.Response
	LastBody     []byte
}

// NewTestContext creates a scratch directory and makes it the working directory.
func NewTestContext() (*TestContext, error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	dir, err := os.MkdirTemp("", "docrect-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	return &TestContext{WorkDir: dir, prevDir: prev, prevEnv: map[string]*string{}}, nil
}

// Cleanup stops the server, restores the environment and removes WorkDir.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
	for name, old := range testCtx.prevEnv {
		if old == nil {
			errs = append(errs, os.Unsetenv(name))
		} else {
			errs = append(errs, os.Setenv(name, *old))
		}
	}
	errs = append(errs, os.Chdir(testCtx.prevDir), os.RemoveAll(testCtx.WorkDir))
	return errors.Join(errs...)
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, seen := testCtx.prevEnv[name]; !seen {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.prevEnv[name] = &old
		} else {
			testCtx.prevEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Path resolves name relative to WorkDir.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.WorkDir, name)
}

// WriteFile writes data to name below WorkDir, creating parent directories.
func (testCtx *TestContext) WriteFile(name string, data []byte) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// RunCLI executes a fresh docrect command tree with args.
func (testCtx *TestContext) RunCLI(args []string) {
	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	testCtx.LastError = root.Execute()
	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
}
