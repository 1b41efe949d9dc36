package detector

import (
	"errors"
	"fmt"
)

// Config holds the tunables of the detection stages.
type Config struct {
	ThresholdRadius int     // half-extent of the adaptive threshold window in pixels
	ThresholdC      float64 // constant subtracted from the local mean
	Stride          int     // corner search step in pixels
	MinStrength     int     // minimum edge magnitude for a quadrant to count as detected
	Workers         int     // row-parallel workers (0 = GOMAXPROCS)
}

// DefaultConfig returns the documented detection defaults.
func DefaultConfig() Config {
	return Config{
		ThresholdRadius: 15,
		ThresholdC:      10,
		Stride:          5,
		MinStrength:     50,
		Workers:         0,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.ThresholdRadius < 0 {
		return fmt.Errorf("threshold radius must be >= 0, got %d", c.ThresholdRadius)
	}
	if c.Stride < 1 {
		return fmt.Errorf("corner stride must be >= 1, got %d", c.Stride)
	}
	if c.MinStrength < 0 || c.MinStrength > 255 {
		return fmt.Errorf("min edge strength must be in [0,255], got %d", c.MinStrength)
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	return nil
}
