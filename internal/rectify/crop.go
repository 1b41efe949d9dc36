package rectify

import (
	"image"
	"math"

	"github.com/MeKo-Tech/docrect/internal/raster"
)

// CropRect returns the centred region left after removing round(w*fraction)
// columns and round(h*fraction) rows from each side. A margin that would
// consume the whole dimension is dropped.
func CropRect(w, h int, fraction float64) image.Rectangle {
	mx := cropMargin(w, fraction)
	my := cropMargin(h, fraction)
	return image.Rect(mx, my, w-mx, h-my)
}

func cropMargin(n int, fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	m := int(math.Round(float64(n) * fraction))
	if 2*m >= n {
		return 0
	}
	return m
}

// BasicCrop copies the CropRect region of src without resampling.
func BasicCrop(src *raster.Buffer, fraction float64) (*raster.Buffer, error) {
	return src.Crop(CropRect(src.Width(), src.Height(), fraction))
}
