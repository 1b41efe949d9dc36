package detector

import (
	"github.com/MeKo-Tech/docrect/internal/raster"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// CornerHit describes the outcome of searching one quadrant.
type CornerHit struct {
	Point  utils.Point `json:"point"`
	Score  uint8       `json:"score"`
	Strong bool        `json:"strong"`
}

// Result is the outcome of corner detection. Quad is nil when no quadrant
// produced a strong edge response (Confidence 0).
type Result struct {
	Quad       *utils.Quad  `json:"quad,omitempty"`
	Confidence float64      `json:"confidence"`
	Corners    [4]CornerHit `json:"corners"`
}

// Found reports whether a document candidate was detected.
func (r Result) Found() bool { return r.Quad != nil && r.Confidence > 0 }

// quadrant is a half-open search region plus the image corner it points at.
type quadrant struct {
	x0, y0, x1, y1 int
	outer          utils.Point
}

func quadrants(w, h int) [4]quadrant {
	mx, my := w/2, h/2
	right, bottom := float64(w-1), float64(h-1)
	return [4]quadrant{
		utils.TopLeft:     {0, 0, mx, my, utils.Point{X: 0, Y: 0}},
		utils.TopRight:    {mx, 0, w, my, utils.Point{X: right, Y: 0}},
		utils.BottomRight: {mx, my, w, h, utils.Point{X: right, Y: bottom}},
		utils.BottomLeft:  {0, my, mx, h, utils.Point{X: 0, Y: bottom}},
	}
}

// LocateCorners splits the edge map at its midlines and picks, per quadrant,
// the strongest pixel on the stride grid anchored at the quadrant origin.
// Equal scores resolve to the pixel closest to the quadrant's outer image
// corner, so a saturated document border yields its actual corner rather than
// the first border pixel scanned. Quadrants whose best score is below
// cfg.MinStrength fall back to their outer image corner.
func LocateCorners(edges *raster.Mask, cfg Config) Result {
	stride := max(cfg.Stride, 1)
	var res Result
	var quad utils.Quad
	strong := 0

	for i, q := range quadrants(edges.Width(), edges.Height()) {
		hit := searchQuadrant(edges, q, stride)
		if int(hit.Score) >= cfg.MinStrength && q.x1 > q.x0 && q.y1 > q.y0 {
			hit.Strong = true
			strong++
		} else {
			hit.Point = q.outer
			hit.Strong = false
		}
		res.Corners[i] = hit
		quad[i] = hit.Point
	}

	res.Confidence = float64(strong) / 4
	if strong > 0 {
		res.Quad = &quad
	}
	return res
}

func searchQuadrant(edges *raster.Mask, q quadrant, stride int) CornerHit {
	best := CornerHit{Point: q.outer}
	bestDist := -1.0
	for y := q.y0; y < q.y1; y += stride {
		row := edges.Row(y)
		for x := q.x0; x < q.x1; x += stride {
			v := row[x]
			if v < best.Score {
				continue
			}
			p := utils.Point{X: float64(x), Y: float64(y)}
			d := squaredDistance(p, q.outer)
			if v > best.Score || bestDist < 0 || d < bestDist {
				best = CornerHit{Point: p, Score: v}
				bestDist = d
			}
		}
	}
	return best
}

func squaredDistance(a, b utils.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
