// Package raster provides the immutable pixel buffers shared by every stage of
// the rectification pipeline.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Channels is the number of bytes per pixel in a Buffer (RGBA).
const Channels = 4

// ErrDimensions is returned when a buffer is constructed with invalid dimensions.
var ErrDimensions = errors.New("invalid raster dimensions")

// Buffer is an immutable width x height grid of 8-bit RGBA pixels stored
// row-major. Stages never modify a Buffer; they produce a new one.
type Buffer struct {
	width  int
	height int
	pix    []uint8
}

// New copies pix into a new Buffer. len(pix) must equal width*height*4.
func New(width, height int, pix []uint8) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	if len(pix) != width*height*Channels {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrDimensions, len(pix), width*height*Channels)
	}
	cp := make([]uint8, len(pix))
	copy(cp, pix)
	return &Buffer{width: width, height: height, pix: cp}, nil
}

// FromImage converts any image.Image into a Buffer. The image origin is
// translated to (0,0).
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, b.Dx(), b.Dy())
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	// rgba is private to this call, so its pixels can be adopted without a copy.
	return &Buffer{width: b.Dx(), height: b.Dy(), pix: rgba.Pix}, nil
}

// Generate allocates a width x height buffer and lets fill write each row.
// Rows are split into contiguous bands processed concurrently by up to
// workers goroutines (workers <= 0 uses GOMAXPROCS). fill must only write to
// the row slice it receives.
func Generate(width, height, workers int, fill func(y int, row []uint8)) *Buffer {
	pix := make([]uint8, width*height*Channels)
	forEachRow(height, workers, func(y int) {
		off := y * width * Channels
		fill(y, pix[off:off+width*Channels])
	})
	return &Buffer{width: width, height: height, pix: pix}
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// Bounds returns the buffer rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// At returns the RGBA value at (x, y). Coordinates must be in range.
func (b *Buffer) At(x, y int) [4]uint8 {
	i := (y*b.width + x) * Channels
	return [4]uint8{b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3]}
}

// Row returns a read-only view of row y. Callers must not modify it.
func (b *Buffer) Row(y int) []uint8 {
	off := y * b.width * Channels
	return b.pix[off : off+b.width*Channels]
}

// Pix returns a copy of the raw RGBA bytes.
func (b *Buffer) Pix() []uint8 {
	cp := make([]uint8, len(b.pix))
	copy(cp, b.pix)
	return cp
}

// Crop returns a copy of the pixels inside rect. rect is clipped to the buffer.
func (b *Buffer) Crop(rect image.Rectangle) (*Buffer, error) {
	rect = rect.Intersect(b.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty crop region", ErrDimensions)
	}
	w, h := rect.Dx(), rect.Dy()
	pix := make([]uint8, w*h*Channels)
	for y := range h {
		src := b.Row(rect.Min.Y + y)[rect.Min.X*Channels : rect.Max.X*Channels]
		copy(pix[y*w*Channels:(y+1)*w*Channels], src)
	}
	return &Buffer{width: w, height: h, pix: pix}, nil
}

// Image returns the buffer as a standalone *image.RGBA.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{Pix: b.Pix(), Stride: b.width * Channels, Rect: b.Bounds()}
}

// Equal reports whether two buffers have identical dimensions and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// Mask is an immutable single-channel 8-bit plane. It carries luminance,
// binary masks (0/255) and edge magnitudes.
type Mask struct {
	width  int
	height int
	pix    []uint8
}

// NewMask copies pix into a new Mask. len(pix) must equal width*height.
func NewMask(width, height int, pix []uint8) (*Mask, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrDimensions, width, height, len(pix))
	}
	cp := make([]uint8, len(pix))
	copy(cp, pix)
	return &Mask{width: width, height: height, pix: cp}, nil
}

// GenerateMask is the single-channel counterpart of Generate.
func GenerateMask(width, height, workers int, fill func(y int, row []uint8)) *Mask {
	pix := make([]uint8, width*height)
	forEachRow(height, workers, func(y int) {
		fill(y, pix[y*width:(y+1)*width])
	})
	return &Mask{width: width, height: height, pix: pix}
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// At returns the value at (x, y).
func (m *Mask) At(x, y int) uint8 { return m.pix[y*m.width+x] }

// Row returns a read-only view of row y.
func (m *Mask) Row(y int) []uint8 { return m.pix[y*m.width : (y+1)*m.width] }

// Gray returns the mask as a standalone *image.Gray.
func (m *Mask) Gray() *image.Gray {
	pix := make([]uint8, len(m.pix))
	copy(pix, m.pix)
	return &image.Gray{Pix: pix, Stride: m.width, Rect: image.Rect(0, 0, m.width, m.height)}
}

// Count returns how many pixels equal v.
func (m *Mask) Count(v uint8) int {
	n := 0
	for _, p := range m.pix {
		if p == v {
			n++
		}
	}
	return n
}

// forEachRow calls fn for every row in [0, height), splitting the rows into
// contiguous bands run on separate goroutines.
func forEachRow(height, workers int, fn func(y int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		for y := range height {
			fn(y)
		}
		return
	}

	band := (height + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < height; start += band {
		end := min(start+band, height)
		g.Go(func() error {
			for y := start; y < end; y++ {
				fn(y)
			}
			return nil
		})
	}
	_ = g.Wait()
}
