package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/docrect/internal/detector"
	"github.com/MeKo-Tech/docrect/internal/raster"
	"github.com/MeKo-Tech/docrect/internal/rectify"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

var (
	quadColor   = color.RGBA{255, 0, 0, 255}
	strongColor = color.RGBA{0, 200, 0, 255}
	weakColor   = color.RGBA{255, 160, 0, 255}
	frameColor  = color.RGBA{0, 255, 0, 255}
)

// dumpDebug writes the intermediate images of one invocation into dir. The
// files of a run share a random id so they sort together. Write failures are
// logged and never affect the result.
func dumpDebug(dir string, src *raster.Buffer, res *rectify.Result) {
	id := uuid.NewString()
	save := func(kind string, img image.Image) {
		path := filepath.Join(dir, fmt.Sprintf("rect_%s_%s.png", id, kind))
		if err := writePNG(path, img); err != nil {
			slog.Warn("Failed to write debug image", "kind", kind, "error", err)
		}
	}

	if res.Planes != nil {
		save("mask", res.Planes.Binary.Gray())
		save("edges", res.Planes.Edges.Gray())
	}
	save("overlay", overlayImage(src, res.Detection))
	if res.Method == rectify.MethodRectified && res.Detection.Quad != nil {
		save("compare", compareImage(src, *res.Detection.Quad, res.Image))
	}
}

// overlayImage draws the candidate quad and colour-codes each corner by
// whether its quadrant produced a strong edge.
func overlayImage(src *raster.Buffer, res detector.Result) *image.RGBA {
	canvas := src.Image()
	if res.Quad != nil {
		utils.DrawPolygon(canvas, res.Quad.Points(), quadColor, 2)
	}
	for _, c := range res.Corners {
		col := weakColor
		if c.Strong {
			col = strongColor
		}
		utils.DrawMarker(canvas, c.Point, col, 4)
	}
	return canvas
}

// compareImage places the source with its quad on the left and the result,
// scaled to the source height, on the right.
func compareImage(src *raster.Buffer, quad utils.Quad, dst *raster.Buffer) *image.NRGBA {
	left := src.Image()
	utils.DrawPolygon(left, quad.Points(), quadColor, 2)

	right := dst.Image()
	if dst.Height() != src.Height() {
		w := max(1, dst.Width()*src.Height()/dst.Height())
		scaled := image.NewRGBA(image.Rect(0, 0, w, src.Height()))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), right, right.Bounds(), xdraw.Src, nil)
		right = scaled
	}
	utils.DrawRect(right, right.Bounds(), frameColor, 2)

	const gap = 10
	canvas := imaging.New(left.Bounds().Dx()+gap+right.Bounds().Dx(), left.Bounds().Dy(), color.White)
	canvas = imaging.Paste(canvas, left, image.Pt(0, 0))
	return imaging.Paste(canvas, right, image.Pt(left.Bounds().Dx()+gap, 0))
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: path is built from a uuid inside the debug directory
	if err != nil {
		return err
	}
	if err := utils.EncodeImage(f, img, utils.FormatPNG, 0); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
