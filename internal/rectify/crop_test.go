package rectify

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropRect(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		fraction float64
		want     image.Rectangle
	}{
		{"default margin", 200, 100, 0.05, image.Rect(10, 5, 190, 95)},
		{"rounding", 30, 11, 0.05, image.Rect(2, 1, 28, 10)},
		{"zero fraction", 50, 40, 0, image.Rect(0, 0, 50, 40)},
		{"margin eats dimension", 1, 1, 0.49, image.Rect(0, 0, 1, 1)},
		{"one thin side", 3, 100, 0.4, image.Rect(1, 40, 2, 60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CropRect(tt.w, tt.h, tt.fraction))
		})
	}
}

func TestBasicCrop_CopiesPixels(t *testing.T) {
	buf := testutil.Buffer(t, testutil.NoiseImage(40, 20, 9))
	out, err := BasicCrop(buf, 0.05)
	require.NoError(t, err)

	require.Equal(t, 36, out.Width())
	require.Equal(t, 18, out.Height())
	for y := range out.Height() {
		for x := range out.Width() {
			require.Equal(t, buf.At(x+2, y+1), out.At(x, y))
		}
	}
}

// TestCropRect_Bounds verifies the crop is centred, inside the image and never empty.
func TestCropRect_Bounds(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("crop stays centred inside bounds", prop.ForAll(
		func(w, h int, fraction float64) bool {
			r := CropRect(w, h, fraction)
			return !r.Empty() &&
				r.In(image.Rect(0, 0, w, h)) &&
				r.Min.X == w-r.Max.X &&
				r.Min.Y == h-r.Max.Y
		},
		gen.IntRange(1, 2000),
		gen.IntRange(1, 2000),
		gen.Float64Range(0, 0.49),
	))
	properties.TestingRun(t)
}
