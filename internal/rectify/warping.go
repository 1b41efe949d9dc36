package rectify

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/docrect/internal/raster"
)

// Warp resamples src into a new buffer of the given size. Every destination
// pixel (x, y) is mapped through m (destination to source) and bilinearly
// sampled. Rows are processed in parallel bands.
func Warp(src *raster.Buffer, m Matrix, size OutputSize, workers int) (*raster.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", raster.ErrDimensions)
	}
	if size.Width < 1 || size.Height < 1 {
		return nil, fmt.Errorf("%w: output size %dx%d", raster.ErrDimensions, size.Width, size.Height)
	}
	return raster.Generate(size.Width, size.Height, workers, func(y int, row []uint8) {
		for x := range size.Width {
			sx, sy := m.Apply(float64(x), float64(y))
			px := SampleBilinear(src, sx, sy)
			copy(row[x*raster.Channels:], px[:])
		}
	}), nil
}

// SampleBilinear interpolates src at the fractional coordinate (x, y) from its
// four surrounding pixels. Coordinates are clamped to the buffer; non-finite
// coordinates clamp to 0.
func SampleBilinear(src *raster.Buffer, x, y float64) [4]uint8 {
	x = clampCoord(x, src.Width()-1)
	y = clampCoord(y, src.Height()-1)

	x0, y0 := int(x), int(y)
	x1 := min(x0+1, src.Width()-1)
	y1 := min(y0+1, src.Height()-1)
	fx, fy := x-float64(x0), y-float64(y0)

	c00, c10 := src.At(x0, y0), src.At(x1, y0)
	c01, c11 := src.At(x0, y1), src.At(x1, y1)
	var out [4]uint8
	for ch := range raster.Channels {
		top := lerp(float64(c00[ch]), float64(c10[ch]), fx)
		bottom := lerp(float64(c01[ch]), float64(c11[ch]), fx)
		out[ch] = uint8(lerp(top, bottom, fy) + 0.5)
	}
	return out
}

func clampCoord(v float64, hi int) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(hi) {
		return float64(hi)
	}
	return v
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
