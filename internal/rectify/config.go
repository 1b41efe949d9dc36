package rectify

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/docrect/internal/detector"
)

// Config holds configuration for the rectification controller.
type Config struct {
	Detector       detector.Config // detection stage tunables
	MinConfidence  float64         // minimum detection confidence to attempt a homography (0-1)
	MarginFraction float64         // basic-crop margin per side as a fraction of the dimension
	RequireConvex  bool            // fall back to the basic crop for non-convex quads
	Workers        int             // row-parallel workers for every stage (0 = GOMAXPROCS)
}

// DefaultConfig returns sensible defaults for rectification.
func DefaultConfig() Config {
	return Config{
		Detector:       detector.DefaultConfig(),
		MinConfidence:  0.25,
		MarginFraction: 0.05,
		RequireConvex:  false,
		Workers:        0,
	}
}

// Validate checks the controller settings and the embedded detector config.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %g", c.MinConfidence)
	}
	if c.MarginFraction < 0 || c.MarginFraction >= 0.5 {
		return fmt.Errorf("margin fraction must be in [0,0.5), got %g", c.MarginFraction)
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	return c.Detector.Validate()
}
