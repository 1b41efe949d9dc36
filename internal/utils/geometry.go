package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func (p Point) String() string { return fmt.Sprintf("(%.2f,%.2f)", p.X, p.Y) }

// Corner indices into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// CornerNames labels Quad indices in order.
var CornerNames = [4]string{"top_left", "top_right", "bottom_right", "bottom_left"}

// Quad is a quadrilateral whose corners are always stored in the order
// TopLeft, TopRight, BottomRight, BottomLeft. Downstream stages rely on this
// ordering and never permute it.
type Quad [4]Point

// RectQuad returns the axis-aligned quad spanning (0,0)-(w,h).
func RectQuad(w, h float64) Quad {
	return Quad{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// ParseQuad parses eight comma-separated numbers "x0,y0,x1,y1,x2,y2,x3,y3"
// in TopLeft, TopRight, BottomRight, BottomLeft order.
func ParseQuad(s string) (Quad, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 8 {
		return Quad{}, fmt.Errorf("expected 8 coordinates, got %d", len(fields))
	}
	var q Quad
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Quad{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Quad{}, fmt.Errorf("coordinate %d is not finite", i)
		}
		if i%2 == 0 {
			q[i/2].X = v
		} else {
			q[i/2].Y = v
		}
	}
	return q, nil
}

// String formats q in the form accepted by ParseQuad.
func (q Quad) String() string {
	parts := make([]string, 0, 8)
	for _, p := range q {
		parts = append(parts, strconv.FormatFloat(p.X, 'g', -1, 64), strconv.FormatFloat(p.Y, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

// Points returns the corners as a slice, e.g. for drawing.
func (q Quad) Points() []Point { return q[:] }

// TopEdge returns the length of the TopLeft-TopRight edge.
func (q Quad) TopEdge() float64 { return q[TopLeft].Distance(q[TopRight]) }

// BottomEdge returns the length of the BottomLeft-BottomRight edge.
func (q Quad) BottomEdge() float64 { return q[BottomLeft].Distance(q[BottomRight]) }

// LeftEdge returns the length of the TopLeft-BottomLeft edge.
func (q Quad) LeftEdge() float64 { return q[TopLeft].Distance(q[BottomLeft]) }

// RightEdge returns the length of the TopRight-BottomRight edge.
func (q Quad) RightEdge() float64 { return q[TopRight].Distance(q[BottomRight]) }

// Area returns the signed shoelace area. It is positive for the clockwise
// (in image coordinates, y pointing down) TopLeft..BottomLeft ordering.
func (q Quad) Area() float64 {
	var s float64
	for i := range 4 {
		a, b := q[i], q[(i+1)%4]
		s += a.X*b.Y - b.X*a.Y
	}
	return s / 2
}

// IsConvex reports whether the quad is strictly convex with a consistent
// winding. Self-intersecting ("bow-tie") and collapsed quads are not convex.
func (q Quad) IsConvex() bool {
	sign := 0
	for i := range 4 {
		c := cross(q[i], q[(i+1)%4], q[(i+2)%4])
		if c == 0 {
			return false
		}
		s := 1
		if c < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// BoundingBox returns the axis-aligned bounds of the quad.
func (q Quad) BoundingBox() Box {
	return BoundingBox(q[:])
}

// cross returns the z component of (a-o) x (b-o).
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Box represents an axis-aligned bounding box in float coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// BoundingBox returns the axis-aligned bounds of pts.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}
