// Package detector locates the four corners of a document in a photograph.
//
// Detection runs three pure stages over an immutable raster.Buffer:
// luminance reduction with adaptive mean thresholding, Sobel edge magnitude,
// and a quadrant-maximum corner search. Every stage is deterministic and
// parallelised across rows.
package detector

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/docrect/internal/raster"
)

// Detection bundles the corner result with the intermediate planes so callers
// can dump them for debugging.
type Detection struct {
	Result
	Gray     *raster.Mask
	Binary   *raster.Mask
	Edges    *raster.Mask
	Duration time.Duration
}

// Detector runs the detection stages with a fixed configuration.
type Detector struct {
	cfg Config
}

// New creates a Detector after validating cfg.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	return &Detector{cfg: cfg}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect binarizes buf, computes its edge magnitude and searches for corners.
func (d *Detector) Detect(buf *raster.Buffer) *Detection {
	start := time.Now()
	gray := Grayscale(buf, d.cfg.Workers)
	binary := Binarize(gray, d.cfg.ThresholdRadius, d.cfg.ThresholdC, d.cfg.Workers)
	edges := EdgeMagnitude(binary, d.cfg.Workers)
	res := LocateCorners(edges, d.cfg)

	det := &Detection{
		Result:   res,
		Gray:     gray,
		Binary:   binary,
		Edges:    edges,
		Duration: time.Since(start),
	}
	slog.Debug("Corner detection finished",
		"width", buf.Width(), "height", buf.Height(),
		"confidence", res.Confidence,
		"duration_ms", det.Duration.Milliseconds())
	return det
}
