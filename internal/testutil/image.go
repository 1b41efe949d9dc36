package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/raster"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/stretchr/testify/require"
)

// Reference card scene: a white card whose corners sit at (10,10), (190,10),
// (190,240) and (10,240) on a 200x250 black canvas.
const (
	CardCanvasWidth  = 200
	CardCanvasHeight = 250
)

// CardCorners are the ground-truth corners of the reference card.
var CardCorners = utils.Quad{{X: 10, Y: 10}, {X: 190, Y: 10}, {X: 190, Y: 240}, {X: 10, Y: 240}}

// CardImage renders the reference card scene.
func CardImage() *image.RGBA {
	return RectImage(CardCanvasWidth, CardCanvasHeight, image.Rect(10, 10, 191, 241), color.White, color.Black)
}

// RectImage renders a filled rectangle r (half-open) on a uniform background.
func RectImage(w, h int, r image.Rectangle, fg, bg color.Color) *image.RGBA {
	img := FlatImage(w, h, bg)
	draw.Draw(img, r, &image.Uniform{C: fg}, image.Point{}, draw.Src)
	return img
}

// QuadImage renders a filled convex quad on a uniform background. A pixel is
// filled when its centre lies inside q.
func QuadImage(w, h int, q utils.Quad, fg, bg color.Color) *image.RGBA {
	img := FlatImage(w, h, bg)
	for y := range h {
		for x := range w {
			if insideConvex(q, float64(x)+0.5, float64(y)+0.5) {
				img.Set(x, y, fg)
			}
		}
	}
	return img
}

func insideConvex(q utils.Quad, px, py float64) bool {
	sign := 0.0
	for i := range 4 {
		a, b := q[i], q[(i+1)%4]
		c := (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
		if c == 0 {
			continue
		}
		if sign == 0 {
			sign = c
		} else if (c > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// FlatImage returns a uniformly coloured image.
func FlatImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// NoiseImage returns an opaque image with reproducible random pixels.
func NoiseImage(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: deterministic test data
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

// Buffer converts img into a raster.Buffer, failing the test on error.
func Buffer(t *testing.T, img image.Image) *raster.Buffer {
	t.Helper()

	buf, err := raster.FromImage(img)
	require.NoError(t, err)
	return buf
}

// EncodePNG returns img encoded as PNG.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var b bytes.Buffer
	require.NoError(t, png.Encode(&b, img))
	return b.Bytes()
}

// EncodeJPEG returns img encoded as JPEG at the given quality.
func EncodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()

	var b bytes.Buffer
	require.NoError(t, jpeg.Encode(&b, img, &jpeg.Options{Quality: quality}))
	return b.Bytes()
}

// MaxChannelDiff returns the largest per-channel difference between two
// buffers of equal size, or -1 if their dimensions differ.
func MaxChannelDiff(a, b *raster.Buffer) int {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return -1
	}
	pa, pb := a.Pix(), b.Pix()
	maxDiff := 0
	for i := range pa {
		d := int(pa[i]) - int(pb[i])
		if d < 0 {
			d = -d
		}
		maxDiff = max(maxDiff, d)
	}
	return maxDiff
}
