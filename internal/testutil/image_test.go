package testutil

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestCardImage(t *testing.T) {
	img := CardImage()
	assert.Equal(t, image.Rect(0, 0, CardCanvasWidth, CardCanvasHeight), img.Bounds())

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	for _, p := range CardCorners {
		assert.Equal(t, white, img.RGBAAt(int(p.X), int(p.Y)), p.String())
	}
	assert.Equal(t, black, img.RGBAAt(9, 9))
	assert.Equal(t, black, img.RGBAAt(191, 241))
}

func TestQuadImage(t *testing.T) {
	q := utils.Quad{{X: 20, Y: 10}, {X: 80, Y: 20}, {X: 70, Y: 90}, {X: 10, Y: 80}}
	img := QuadImage(100, 100, q, color.White, color.Black)
	assert.Equal(t, uint8(255), img.RGBAAt(45, 50).R)
	assert.Equal(t, uint8(0), img.RGBAAt(2, 2).R)
	assert.Equal(t, uint8(0), img.RGBAAt(95, 95).R)
}

func TestMaxChannelDiff(t *testing.T) {
	a := Buffer(t, FlatImage(4, 4, color.RGBA{R: 10, A: 255}))
	b := Buffer(t, FlatImage(4, 4, color.RGBA{R: 13, A: 255}))
	c := Buffer(t, FlatImage(3, 4, color.Black))

	assert.Equal(t, 0, MaxChannelDiff(a, a))
	assert.Equal(t, 3, MaxChannelDiff(a, b))
	assert.Equal(t, -1, MaxChannelDiff(a, c))
	assert.Equal(t, NoiseImage(5, 5, 7).Pix, NoiseImage(5, 5, 7).Pix)
}
