package rectify

import (
	"image/color"
	"math"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/raster"
	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleBilinear_IntegerCoordinates(t *testing.T) {
	buf := testutil.Buffer(t, testutil.NoiseImage(9, 7, 42))
	for y := range buf.Height() {
		for x := range buf.Width() {
			assert.Equal(t, buf.At(x, y), SampleBilinear(buf, float64(x), float64(y)), "(%d,%d)", x, y)
		}
	}
}

func TestSampleBilinear_Midpoint(t *testing.T) {
	buf, err := raster.New(2, 1, []uint8{0, 0, 0, 255, 255, 255, 255, 255})
	require.NoError(t, err)

	px := SampleBilinear(buf, 0.5, 0)
	for ch := range 3 {
		assert.GreaterOrEqual(t, px[ch], uint8(126))
		assert.LessOrEqual(t, px[ch], uint8(129))
	}
	assert.Equal(t, uint8(255), px[3])
}

func TestSampleBilinear_Clamping(t *testing.T) {
	buf := testutil.Buffer(t, testutil.NoiseImage(5, 4, 1))

	assert.Equal(t, buf.At(0, 0), SampleBilinear(buf, -3, -0.5))
	assert.Equal(t, buf.At(4, 3), SampleBilinear(buf, 100, 100))
	assert.Equal(t, buf.At(4, 0), SampleBilinear(buf, math.Inf(1), math.Inf(-1)))
	assert.Equal(t, buf.At(0, 0), SampleBilinear(buf, math.NaN(), math.NaN()))
}

func TestWarp_Identity(t *testing.T) {
	buf := testutil.Buffer(t, testutil.NoiseImage(31, 17, 5))
	out, err := Warp(buf, Identity, OutputSize{Width: 31, Height: 17}, 4)
	require.NoError(t, err)
	assert.True(t, out.Equal(buf))
}

func TestWarp_Translation(t *testing.T) {
	buf := testutil.Buffer(t, testutil.CardImage())
	m := Matrix{1, 0, 10, 0, 1, 10, 0, 0, 1}
	out, err := Warp(buf, m, OutputSize{Width: 180, Height: 230}, 0)
	require.NoError(t, err)

	white := testutil.Buffer(t, testutil.FlatImage(180, 230, color.White))
	assert.True(t, out.Equal(white))
}

func TestWarp_InvalidInput(t *testing.T) {
	buf := testutil.Buffer(t, testutil.NoiseImage(4, 4, 1))
	_, err := Warp(buf, Identity, OutputSize{Width: 0, Height: 3}, 1)
	require.ErrorIs(t, err, raster.ErrDimensions)
	_, err = Warp(nil, Identity, OutputSize{Width: 3, Height: 3}, 1)
	require.Error(t, err)
}
