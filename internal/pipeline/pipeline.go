// Package pipeline is the byte boundary of the rectification engine: it
// decodes uploaded images, runs the rectifier and encodes the result in the
// input's encoding family.
package pipeline

import (
	"fmt"

	"github.com/MeKo-Tech/docrect/internal/rectify"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// Config holds configuration for the pipeline and its components.
type Config struct {
	Rectify     rectify.Config
	JPEGQuality int  // quality for JPEG output (1-100)
	AutoOrient  bool // apply EXIF orientation while decoding
	// DebugDir, if non-empty, receives mask, edge, overlay and compare PNGs.
	DebugDir string
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Rectify:     rectify.DefaultConfig(),
		JPEGQuality: utils.DefaultJPEGQuality,
		AutoOrient:  true,
	}
}

// Validate checks the pipeline configuration.
func (c Config) Validate() error {
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in [1,100], got %d", c.JPEGQuality)
	}
	return c.Rectify.Validate()
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithMarginFraction sets the basic-crop margin.
func (b *Builder) WithMarginFraction(f float64) *Builder {
	b.cfg.Rectify.MarginFraction = f
	return b
}

// WithMinConfidence sets the detection confidence needed to rectify.
func (b *Builder) WithMinConfidence(c float64) *Builder {
	b.cfg.Rectify.MinConfidence = c
	return b
}

// WithRequireConvex enables the convexity check before solving.
func (b *Builder) WithRequireConvex(v bool) *Builder {
	b.cfg.Rectify.RequireConvex = v
	return b
}

// WithWorkers sets the row-parallel worker count for every stage.
func (b *Builder) WithWorkers(n int) *Builder {
	b.cfg.Rectify.Workers = n
	return b
}

// WithDebugDir enables debug image dumps.
func (b *Builder) WithDebugDir(dir string) *Builder {
	b.cfg.DebugDir = dir
	return b
}

// WithJPEGQuality sets the JPEG output quality.
func (b *Builder) WithJPEGQuality(q int) *Builder {
	b.cfg.JPEGQuality = q
	return b
}

// WithAutoOrient toggles EXIF orientation handling.
func (b *Builder) WithAutoOrient(v bool) *Builder {
	b.cfg.AutoOrient = v
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) { return New(b.cfg) }

// Pipeline converts encoded images into rectified encoded images. It holds no
// per-call state and is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	rectifier *rectify.Rectifier
}

// New creates a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	r, err := rectify.New(cfg.Rectify)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, rectifier: r}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }
