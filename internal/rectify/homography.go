package rectify

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/docrect/internal/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateGeometry is returned when four correspondences do not define a
// unique projective transform (collapsed or collinear corners).
var ErrDegenerateGeometry = errors.New("degenerate geometry")

const (
	// pivotTolerance is the smallest pivot magnitude accepted during elimination.
	pivotTolerance = 1e-9
	// detTolerance rejects solved matrices that are numerically singular.
	detTolerance = 1e-12
)

// Matrix is a row-major 3x3 projective transform with m[8] fixed at 1.
type Matrix [9]float64

// Identity is the identity transform.
var Identity = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// OutputSize is the size of the rectified image.
type OutputSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SizeFor derives the output size from a quad: the longer of the two
// horizontal edges gives the width and the longer vertical edge the height.
func SizeFor(q utils.Quad) OutputSize {
	return OutputSize{
		Width:  int(math.Round(math.Max(q.TopEdge(), q.BottomEdge()))),
		Height: int(math.Round(math.Max(q.LeftEdge(), q.RightEdge()))),
	}
}

// DestinationQuad returns the rectangle (0,0),(W,0),(W,H),(0,H).
func (s OutputSize) DestinationQuad() utils.Quad {
	return utils.RectQuad(float64(s.Width), float64(s.Height))
}

// ComputeHomography returns the transform mapping the destination rectangle of
// size onto src, i.e. destination pixel coordinates to source coordinates.
func ComputeHomography(src utils.Quad, size OutputSize) (Matrix, error) {
	if size.Width < 1 || size.Height < 1 {
		return Matrix{}, fmt.Errorf("%w: output size %dx%d", ErrDegenerateGeometry, size.Width, size.Height)
	}
	return SolveHomography(size.DestinationQuad(), src)
}

// SolveHomography computes H with H*from[i] ~ to[i] for all four corners.
func SolveHomography(from, to [4]utils.Point) (Matrix, error) {
	// Build 8x8 system A*h = b for the 8 unknowns h0..h7, h8 = 1.
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := from[i].X, from[i].Y
		x, y := to[i].X, to[i].Y
		r := 2 * i
		// x = (h0 X + h1 Y + h2)/(h6 X + h7 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x
		// y = (h3 X + h4 Y + h5)/(h6 X + h7 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, err := solve8x8(a, b)
	if err != nil {
		return Matrix{}, err
	}
	m := Matrix{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Matrix{}, fmt.Errorf("%w: non-finite coefficient", ErrDegenerateGeometry)
		}
	}
	if det := m.Determinant(); math.Abs(det) < detTolerance {
		return Matrix{}, fmt.Errorf("%w: determinant %g", ErrDegenerateGeometry, det)
	}
	return m, nil
}

// solve8x8 solves a*x = b by Gaussian elimination with partial pivoting
// followed by back substitution.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, error) {
	for col := range 8 {
		pivotRow := findPivotRow(a, col)
		if pivotRow < 0 {
			return [8]float64{}, fmt.Errorf("%w: singular system at column %d", ErrDegenerateGeometry, col)
		}
		if pivotRow != col {
			swapRows(&a, &b, col, pivotRow)
		}
		eliminateBelow(&a, &b, col)
	}
	return backSubstitute(a, b), nil
}

// findPivotRow returns the row at or below col with the largest magnitude in
// column col, or -1 when that magnitude is below pivotTolerance.
func findPivotRow(a [8][8]float64, col int) int {
	maxAbs := math.Abs(a[col][col])
	pivotRow := col
	for r := col + 1; r < 8; r++ {
		if v := math.Abs(a[r][col]); v > maxAbs {
			maxAbs = v
			pivotRow = r
		}
	}
	if maxAbs < pivotTolerance {
		return -1
	}
	return pivotRow
}

func swapRows(a *[8][8]float64, b *[8]float64, r1, r2 int) {
	a[r1], a[r2] = a[r2], a[r1]
	b[r1], b[r2] = b[r2], b[r1]
}

func eliminateBelow(a *[8][8]float64, b *[8]float64, col int) {
	for r := col + 1; r < 8; r++ {
		factor := a[r][col] / a[col][col]
		if factor == 0 {
			continue
		}
		for c := col; c < 8; c++ {
			a[r][c] -= factor * a[col][c]
		}
		b[r] -= factor * b[col]
	}
}

func backSubstitute(a [8][8]float64, b [8]float64) [8]float64 {
	var x [8]float64
	for r := 7; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < 8; c++ {
			s -= a[r][c] * x[c]
		}
		x[r] = s / a[r][r]
	}
	return x
}

// Apply maps (x, y) through the transform. A point on the line at infinity
// yields NaN coordinates.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	w := m[6]*x + m[7]*y + m[8]
	if w == 0 {
		return math.NaN(), math.NaN()
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w
}

// Determinant returns det(m).
func (m Matrix) Determinant() float64 {
	return mat.Det(mat.NewDense(3, 3, m[:]))
}
