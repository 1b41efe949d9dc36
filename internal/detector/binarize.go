package detector

import (
	"math"

	"github.com/MeKo-Tech/docrect/internal/mempool"
	"github.com/MeKo-Tech/docrect/internal/raster"
)

// Mask values produced by Binarize.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// Luminance returns round(0.299R + 0.587G + 0.114B) clamped to [0,255].
func Luminance(r, g, b uint8) uint8 {
	l := math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
	if l < 0 {
		return 0
	}
	if l > 255 {
		return 255
	}
	return uint8(l)
}

// Grayscale reduces an RGBA buffer to its luminance plane. Alpha is ignored.
func Grayscale(buf *raster.Buffer, workers int) *raster.Mask {
	return raster.GenerateMask(buf.Width(), buf.Height(), workers, func(y int, row []uint8) {
		src := buf.Row(y)
		for x := range row {
			i := x * raster.Channels
			row[x] = Luminance(src[i], src[i+1], src[i+2])
		}
	})
}

// integralImage holds exact prefix sums with a zero first row and column:
// sum[(y+1)*(w+1)+(x+1)] is the total of all pixels in [0..x]x[0..y].
type integralImage struct {
	w, h int
	sum  []int64
}

func newIntegralImage(m *raster.Mask) integralImage {
	w, h := m.Width(), m.Height()
	stride := w + 1
	// Pooled buffers are dirty; row 0 and column 0 are zeroed explicitly.
	sum := mempool.Int64.Get(stride * (h + 1))
	clear(sum[:stride])
	for y := range h {
		var rowSum int64
		row := m.Row(y)
		sum[(y+1)*stride] = 0
		for x := range w {
			rowSum += int64(row[x])
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
		}
	}
	return integralImage{w: w, h: h, sum: sum}
}

func (ii integralImage) release() {
	mempool.Int64.Put(ii.sum)
}

// windowMean returns the exact arithmetic mean over [x0,x1]x[y0,y1] (inclusive).
func (ii integralImage) windowMean(x0, y0, x1, y1 int) float64 {
	stride := ii.w + 1
	total := ii.sum[(y1+1)*stride+x1+1] - ii.sum[y0*stride+x1+1] - ii.sum[(y1+1)*stride+x0] + ii.sum[y0*stride+x0]
	count := int64(x1-x0+1) * int64(y1-y0+1)
	return float64(total) / float64(count)
}

// Binarize applies adaptive mean thresholding to a luminance plane. A pixel
// becomes Foreground when its luminance exceeds the mean of the square window
// of half-extent radius around it (clamped at the borders) minus c, and
// Background otherwise. Uniform images yield a uniform mask.
func Binarize(gray *raster.Mask, radius int, c float64, workers int) *raster.Mask {
	w, h := gray.Width(), gray.Height()
	ii := newIntegralImage(gray)
	defer ii.release()
	return raster.GenerateMask(w, h, workers, func(y int, row []uint8) {
		y0, y1 := max(y-radius, 0), min(y+radius, h-1)
		src := gray.Row(y)
		for x := range row {
			x0, x1 := max(x-radius, 0), min(x+radius, w-1)
			if float64(src[x]) > ii.windowMean(x0, y0, x1, y1)-c {
				row[x] = Foreground
			} else {
				row[x] = Background
			}
		}
	})
}
