package pipeline

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/rectify"
	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// debugKinds returns the sorted kind suffixes of the debug files in dir.
func debugKinds(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var kinds []string
	for _, e := range entries {
		stem := strings.TrimSuffix(e.Name(), ".png")
		require.True(t, strings.HasPrefix(stem, "rect_"), e.Name())
		kinds = append(kinds, stem[strings.LastIndex(stem, "_")+1:])
	}
	sort.Strings(kinds)
	return kinds
}

func debugPipeline(t *testing.T, dir string) *Pipeline {
	t.Helper()

	p, err := NewBuilder().WithDebugDir(dir).Build()
	require.NoError(t, err)
	return p
}

func TestDebugDump_Rectified(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	p := debugPipeline(t, dir)

	out, err := p.Process(Input{Data: testutil.EncodePNG(t, testutil.CardImage())})
	require.NoError(t, err)
	require.True(t, out.Rectified())
	assert.Equal(t, []string{"compare", "edges", "mask", "overlay"}, debugKinds(t, dir))
}

func TestDebugDump_Fallback(t *testing.T) {
	dir := t.TempDir()
	p := debugPipeline(t, dir)

	out, err := p.Process(Input{Data: testutil.EncodePNG(t, testutil.FlatImage(60, 40, color.White))})
	require.NoError(t, err)
	assert.Equal(t, rectify.MethodBasicCrop, out.Method)
	assert.Equal(t, []string{"edges", "mask", "overlay"}, debugKinds(t, dir))
}

func TestDebugDump_ManualQuad(t *testing.T) {
	dir := t.TempDir()
	p := debugPipeline(t, dir)

	out, err := p.ProcessQuad(Input{Data: testutil.EncodePNG(t, testutil.CardImage())}, testutil.CardCorners)
	require.NoError(t, err)
	require.True(t, out.Rectified())
	assert.Equal(t, []string{"compare", "overlay"}, debugKinds(t, dir))
}

func TestDebugDump_WriteFailureKeepsResult(t *testing.T) {
	// a regular file where the directory should be
	blocked := testutil.WriteFile(t, t.TempDir(), "debug", []byte("x"))
	p := debugPipeline(t, blocked)

	out, err := p.Process(Input{Data: testutil.EncodePNG(t, testutil.CardImage())})
	require.NoError(t, err)
	assert.True(t, out.Rectified())
}

func TestWritePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "a.png")
	require.NoError(t, writePNG(path, testutil.FlatImage(4, 3, color.Black)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, _, err := utils.DecodeImage(data, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	blocked := testutil.WriteFile(t, dir, "file", []byte("x"))
	require.Error(t, writePNG(filepath.Join(blocked, "b.png"), testutil.FlatImage(1, 1, color.Black)))
}

func TestCompareImage(t *testing.T) {
	src := testutil.Buffer(t, testutil.CardImage())
	dst := testutil.Buffer(t, testutil.FlatImage(90, 115, color.White))

	img := compareImage(src, testutil.CardCorners, dst)
	// scaled to the source height after a 10px gap
	assert.Equal(t, 200+10+180, img.Bounds().Dx())
	assert.Equal(t, 250, img.Bounds().Dy())
}
