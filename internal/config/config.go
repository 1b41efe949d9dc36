package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/docrect/internal/detector"
	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/rectify"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	rect := rectify.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Detector: DetectorConfig{
			ThresholdRadius: det.ThresholdRadius,
			ThresholdC:      det.ThresholdC,
			CornerStride:    det.Stride,
			MinEdgeStrength: det.MinStrength,
		},
		Rectify: RectifyConfig{
			MinConfidence:  rect.MinConfidence,
			MarginFraction: rect.MarginFraction,
			RequireConvex:  rect.RequireConvex,
			Workers:        rect.Workers,
			DebugDir:       "",
		},
		Output: OutputConfig{
			JPEGQuality: utils.DefaultJPEGQuality,
			AutoOrient:  true,
			Dir:         "",
			Suffix:      "_rectified",
			Format:      "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Batch: BatchConfig{
			Workers:         runtime.NumCPU(),
			Recursive:       false,
			ContinueOnError: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("rate limits must not be negative")
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("invalid batch workers: %d (must not be negative)", c.Batch.Workers)
	}

	if err := c.ToPipelineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid pipeline settings: %w", err)
	}
	return nil
}

// ToDetectorConfig converts the detector section.
func (c *Config) ToDetectorConfig() detector.Config {
	return detector.Config{
		ThresholdRadius: c.Detector.ThresholdRadius,
		ThresholdC:      c.Detector.ThresholdC,
		Stride:          c.Detector.CornerStride,
		MinStrength:     c.Detector.MinEdgeStrength,
		Workers:         c.Rectify.Workers,
	}
}

// ToRectifyConfig converts the detector and rectify sections.
func (c *Config) ToRectifyConfig() rectify.Config {
	return rectify.Config{
		Detector:       c.ToDetectorConfig(),
		MinConfidence:  c.Rectify.MinConfidence,
		MarginFraction: c.Rectify.MarginFraction,
		RequireConvex:  c.Rectify.RequireConvex,
		Workers:        c.Rectify.Workers,
	}
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Rectify:     c.ToRectifyConfig(),
		JPEGQuality: c.Output.JPEGQuality,
		AutoOrient:  c.Output.AutoOrient,
		DebugDir:    c.Rectify.DebugDir,
	}
}
