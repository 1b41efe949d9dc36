// Package rectify turns a detected document quadrilateral into an upright,
// fronto-parallel image, falling back to a plain margin crop whenever the
// geometry cannot be trusted.
package rectify

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/docrect/internal/detector"
	"github.com/MeKo-Tech/docrect/internal/raster"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// Method records how the output image was produced.
type Method string

const (
	// MethodRectified means the image was warped through a homography.
	MethodRectified Method = "rectified"
	// MethodBasicCrop means the fixed-margin crop fallback was used.
	MethodBasicCrop Method = "basic_crop"
)

// Stage is a step of the per-invocation state machine.
type Stage string

const (
	StageLoaded          Stage = "loaded"
	StageBinarized       Stage = "binarized"
	StageEdgesComputed   Stage = "edges_computed"
	StageCornersDetected Stage = "corners_detected"
	StageRectified       Stage = "rectified"
	StageBasicCropped    Stage = "basic_cropped"
	StageDone            Stage = "done"
)

// Fallback reasons reported in Result.Reason.
const (
	ReasonLowConfidence      = "low_confidence"
	ReasonNonConvexQuad      = "non_convex_quad"
	ReasonDegenerateGeometry = "degenerate_geometry"
	ReasonWarpFailed         = "warp_failed"
)

// ErrNonConvexQuad is recorded when RequireConvex rejects a detected quad.
var ErrNonConvexQuad = errors.New("non-convex quadrilateral")

// Result describes one rectification. Image is always set.
type Result struct {
	Image     *raster.Buffer
	Method    Method
	Reason    string // empty when rectified
	Err       error  // recovered error behind the fallback, if any
	Detection detector.Result
	// Planes holds the binary mask and edge map; nil when detection was skipped.
	Planes *detector.Detection
	// Matrix is the destination-to-source transform; nil unless rectified.
	Matrix              *Matrix
	HomographyAttempted bool
	Size                OutputSize
	Stages              []Stage
	Duration            time.Duration
}

// Rectifier runs detection, homography and resampling with a fixed config.
type Rectifier struct {
	cfg Config
	det *detector.Detector
}

// New creates a rectifier after validating cfg. cfg.Workers applies to every stage.
func New(cfg Config) (*Rectifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rectify config: %w", err)
	}
	dcfg := cfg.Detector
	dcfg.Workers = cfg.Workers
	det, err := detector.New(dcfg)
	if err != nil {
		return nil, err
	}
	return &Rectifier{cfg: cfg, det: det}, nil
}

// Config returns the rectifier configuration.
func (r *Rectifier) Config() Config { return r.cfg }

// Detect runs only the detection stages.
func (r *Rectifier) Detect(buf *raster.Buffer) *detector.Detection {
	return r.det.Detect(buf)
}

// Rectify detects the document in buf and returns either the rectified image
// or the basic crop. It never fails: every internal problem degrades to the
// crop and is reported through Result.Reason and Result.Err.
func (r *Rectifier) Rectify(buf *raster.Buffer) *Result {
	start := time.Now()
	res := &Result{Stages: []Stage{StageLoaded}}

	det := r.det.Detect(buf)
	res.Detection = det.Result
	res.Planes = det
	res.Stages = append(res.Stages, StageBinarized, StageEdgesComputed, StageCornersDetected)
	slog.Debug("Corners detected", "confidence", det.Confidence, "quad", det.Quad)

	if !det.Found() || det.Confidence < r.cfg.MinConfidence {
		r.basicCrop(buf, res, ReasonLowConfidence, nil)
	} else {
		r.rectifyQuad(buf, *det.Quad, res)
	}
	return r.finish(res, start)
}

// RectifyQuad rectifies buf using caller-supplied corners instead of running
// detection. The same fallback rules apply.
func (r *Rectifier) RectifyQuad(buf *raster.Buffer, quad utils.Quad) *Result {
	start := time.Now()
	res := &Result{
		Stages:    []Stage{StageLoaded, StageCornersDetected},
		Detection: detector.Result{Quad: &quad, Confidence: 1},
	}
	r.rectifyQuad(buf, quad, res)
	return r.finish(res, start)
}

func (r *Rectifier) rectifyQuad(buf *raster.Buffer, quad utils.Quad, res *Result) {
	if !quad.IsConvex() {
		slog.Warn("Detected quadrilateral is not convex", "quad", quad, "require_convex", r.cfg.RequireConvex)
		if r.cfg.RequireConvex {
			r.basicCrop(buf, res, ReasonNonConvexQuad, ErrNonConvexQuad)
			return
		}
	}

	res.HomographyAttempted = true
	size := SizeFor(quad)
	m, err := ComputeHomography(quad, size)
	if err != nil {
		r.basicCrop(buf, res, ReasonDegenerateGeometry, err)
		return
	}
	out, err := Warp(buf, m, size, r.cfg.Workers)
	if err != nil {
		r.basicCrop(buf, res, ReasonWarpFailed, err)
		return
	}

	res.Image = out
	res.Method = MethodRectified
	res.Matrix = &m
	res.Size = size
	res.Stages = append(res.Stages, StageRectified)
}

func (r *Rectifier) basicCrop(buf *raster.Buffer, res *Result, reason string, cause error) {
	out, err := BasicCrop(buf, r.cfg.MarginFraction)
	if err != nil {
		// Only reachable for an empty crop region; return the input unchanged.
		out = buf
		cause = errors.Join(cause, err)
	}
	res.Image = out
	res.Method = MethodBasicCrop
	res.Reason = reason
	res.Err = cause
	res.Size = OutputSize{Width: out.Width(), Height: out.Height()}
	res.Stages = append(res.Stages, StageBasicCropped)
	slog.Info("Falling back to basic crop", "reason", reason, "error", cause,
		"confidence", res.Detection.Confidence)
}

func (r *Rectifier) finish(res *Result, start time.Time) *Result {
	res.Stages = append(res.Stages, StageDone)
	res.Duration = time.Since(start)
	slog.Debug("Rectification finished", "method", res.Method,
		"width", res.Size.Width, "height", res.Size.Height,
		"duration_ms", res.Duration.Milliseconds())
	return res
}
