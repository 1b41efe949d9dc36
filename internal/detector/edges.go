package detector

import (
	"math"

	"github.com/MeKo-Tech/docrect/internal/raster"
)

// EdgeMagnitude applies the 3x3 Sobel operator to m and returns
// min(255, sqrt(gx^2 + gy^2)) per pixel. The one-pixel border stays 0.
func EdgeMagnitude(m *raster.Mask, workers int) *raster.Mask {
	w, h := m.Width(), m.Height()
	return raster.GenerateMask(w, h, workers, func(y int, row []uint8) {
		if y == 0 || y == h-1 || w < 3 {
			return
		}
		up, mid, down := m.Row(y-1), m.Row(y), m.Row(y+1)
		for x := 1; x < w-1; x++ {
			gx := -int(up[x-1]) + int(up[x+1]) -
				2*int(mid[x-1]) + 2*int(mid[x+1]) -
				int(down[x-1]) + int(down[x+1])
			gy := -int(up[x-1]) - 2*int(up[x]) - int(up[x+1]) +
				int(down[x-1]) + 2*int(down[x]) + int(down[x+1])
			row[x] = clampMagnitude(gx, gy)
		}
	})
}

func clampMagnitude(gx, gy int) uint8 {
	sq := gx*gx + gy*gy
	if sq >= 255*255 {
		return 255
	}
	return uint8(math.Sqrt(float64(sq)))
}
