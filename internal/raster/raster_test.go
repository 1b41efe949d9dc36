package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesDimensions(t *testing.T) {
	_, err := New(0, 10, nil)
	require.ErrorIs(t, err, ErrDimensions)

	_, err = New(2, 2, make([]uint8, 15))
	require.ErrorIs(t, err, ErrDimensions)

	b, err := New(2, 2, make([]uint8, 16))
	require.NoError(t, err)
	assert.Equal(t, 2, b.Width())
	assert.Equal(t, 2, b.Height())
}

func TestNew_CopiesInput(t *testing.T) {
	pix := []uint8{1, 2, 3, 4}
	b, err := New(1, 1, pix)
	require.NoError(t, err)

	pix[0] = 99
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, b.At(0, 0))

	out := b.Pix()
	out[1] = 99
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, b.At(0, 0))
}

func TestFromImage_TranslatesOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 8, 7))
	img.Set(5, 5, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(7, 6, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	b, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Width())
	assert.Equal(t, 2, b.Height())
	assert.Equal(t, [4]uint8{10, 20, 30, 255}, b.At(0, 0))
	assert.Equal(t, [4]uint8{40, 50, 60, 255}, b.At(2, 1))
}

func TestFromImage_Errors(t *testing.T) {
	_, err := FromImage(nil)
	require.Error(t, err)

	_, err = FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	require.ErrorIs(t, err, ErrDimensions)
}

func TestGenerate_FillsEveryRow(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		b := Generate(7, 11, workers, func(y int, row []uint8) {
			for x := range 7 {
				row[x*Channels] = uint8(y)
				row[x*Channels+1] = uint8(x)
				row[x*Channels+3] = 255
			}
		})
		for y := range 11 {
			for x := range 7 {
				p := b.At(x, y)
				require.Equal(t, uint8(y), p[0], "workers=%d", workers)
				require.Equal(t, uint8(x), p[1], "workers=%d", workers)
			}
		}
	}
}

func TestCrop(t *testing.T) {
	b := Generate(10, 8, 1, func(y int, row []uint8) {
		for x := range 10 {
			row[x*Channels] = uint8(x)
			row[x*Channels+1] = uint8(y)
		}
	})

	c, err := b.Crop(image.Rect(2, 3, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, 4, c.Width())
	assert.Equal(t, 2, c.Height())
	assert.Equal(t, uint8(2), c.At(0, 0)[0])
	assert.Equal(t, uint8(3), c.At(0, 0)[1])
	assert.Equal(t, uint8(5), c.At(3, 1)[0])
	assert.Equal(t, uint8(4), c.At(3, 1)[1])

	_, err = b.Crop(image.Rect(20, 20, 30, 30))
	require.ErrorIs(t, err, ErrDimensions)
}

func TestImageRoundTrip(t *testing.T) {
	b := Generate(4, 3, 2, func(y int, row []uint8) {
		for i := range row {
			row[i] = uint8(i + y)
		}
	})
	again, err := FromImage(b.Image())
	require.NoError(t, err)
	assert.True(t, b.Equal(again))
}

func TestMask(t *testing.T) {
	m, err := NewMask(3, 2, []uint8{0, 255, 0, 255, 255, 0})
	require.NoError(t, err)
	assert.Equal(t, uint8(255), m.At(1, 0))
	assert.Equal(t, 3, m.Count(255))
	assert.Equal(t, []uint8{255, 255, 0}, m.Row(1))

	g := m.Gray()
	assert.Equal(t, uint8(255), g.GrayAt(0, 1).Y)

	_, err = NewMask(3, 2, []uint8{0})
	require.ErrorIs(t, err, ErrDimensions)
}
