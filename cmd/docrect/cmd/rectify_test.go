package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNGFile(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRectifyCommand_Card(t *testing.T) {
	dir, card, _ := fixtures(t)

	out, _, err := executeCommand(t, "rectify", card)
	require.NoError(t, err)

	dst := filepath.Join(dir, "card_rectified.png")
	assert.Equal(t, card+" -> "+dst+"  rectified  180x230  confidence=1.00\n", out)
	assert.Equal(t, image.Rect(0, 0, 180, 230), decodePNGFile(t, dst).Bounds())
}

func TestRectifyCommand_FallbackKeepsJPEG(t *testing.T) {
	dir, _, flat := fixtures(t)
	dst := filepath.Join(dir, "page.jpg")

	out, _, err := executeCommand(t, "rectify", flat, "-o", dst, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Input  string          `json:"input"`
		Output string          `json:"output"`
		Result pipeline.Output `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, flat, report.Input)
	assert.Equal(t, dst, report.Output)
	assert.Equal(t, "basic_crop", string(report.Result.Method))
	assert.Equal(t, "low_confidence", report.Result.Reason)
	assert.Equal(t, "jpeg", report.Result.Format)

	data, err := os.ReadFile(dst) //nolint:gosec
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 90, 54), img.Bounds())
}

func TestRectifyCommand_OutputExtensionPicksEncoding(t *testing.T) {
	dir, card, flat := fixtures(t)

	dst := filepath.Join(dir, "page.png")
	_, _, err := executeCommand(t, "rectify", flat, "-o", dst)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 90, 54), decodePNGFile(t, dst).Bounds())

	dst = filepath.Join(dir, "card.JPEG")
	_, _, err = executeCommand(t, "rectify", card, "-o", dst)
	require.NoError(t, err)
	data, err := os.ReadFile(dst) //nolint:gosec
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 180, 230), img.Bounds())
}

func TestRectifyCommand_ManualCorners(t *testing.T) {
	dir, card, _ := fixtures(t)
	dst := filepath.Join(dir, "manual.png")

	out, _, err := executeCommand(t, "rectify", card, "-o", dst, "--corners", "10,10,190,10,190,240,10,240")
	require.NoError(t, err)
	assert.Contains(t, out, "rectified  180x230")
	assert.Equal(t, image.Rect(0, 0, 180, 230), decodePNGFile(t, dst).Bounds())
}

func TestRectifyCommand_Stdout(t *testing.T) {
	_, card, _ := fixtures(t)

	out, _, err := executeCommand(t, "rectify", card, "-o", "-")
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 180, img.Bounds().Dx())
}

func TestRectifyCommand_SuffixFromEnvironment(t *testing.T) {
	dir, card, _ := fixtures(t)
	t.Setenv("DOCRECT_OUTPUT_SUFFIX", "_fixed")

	_, _, err := executeCommand(t, "rectify", card)
	require.NoError(t, err)
	assert.True(t, testutil.FileExists(filepath.Join(dir, "card_fixed.png")))

	_, _, err = executeCommand(t, "rectify", card, "--suffix", "_flag")
	require.NoError(t, err)
	assert.True(t, testutil.FileExists(filepath.Join(dir, "card_flag.png")))
}

func TestRectifyCommand_Errors(t *testing.T) {
	dir, card, _ := fixtures(t)
	broken := testutil.WriteFile(t, dir, "broken.png", []byte("not an image"))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"rectify"}, "accepts 1 arg"},
		{"missing file", []string{"rectify", filepath.Join(dir, "nope.png")}, "failed to read"},
		{"undecodable", []string{"rectify", broken}, "decode"},
		{"bad corners", []string{"rectify", card, "--corners", "1,2,3"}, "invalid --corners"},
		{"bad format", []string{"rectify", card, "--format", "xml"}, "invalid output format"},
		{"bad margin", []string{"rectify", card, "--margin", "0.7"}, "invalid pipeline settings"},
		{"unknown output extension", []string{"rectify", card, "-o", filepath.Join(dir, "x.gif")}, `unsupported output extension ".gif"`},
		{"unwritable output", []string{"rectify", card, "-o", filepath.Join(dir, "missing", "x.png")}, "failed to write"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDetectCommand(t *testing.T) {
	_, card, flat := fixtures(t)

	out, _, err := executeCommand(t, "detect", card)
	require.NoError(t, err)
	var det pipeline.Detection
	require.NoError(t, json.Unmarshal([]byte(out), &det))
	assert.Equal(t, 200, det.Width)
	assert.Equal(t, 250, det.Height)
	assert.InDelta(t, 1.0, det.Confidence, 1e-9)
	require.NotNil(t, det.Quad)

	out, _, err = executeCommand(t, "detect", card, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "corners=10,10,190,10,190,240,10,240")

	out, _, err = executeCommand(t, "detect", flat, "-f", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "no document found")
}
