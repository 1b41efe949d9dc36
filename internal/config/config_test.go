package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.Detector.ThresholdRadius)
	assert.InDelta(t, 10, cfg.Detector.ThresholdC, 1e-12)
	assert.Equal(t, 5, cfg.Detector.CornerStride)
	assert.Equal(t, 50, cfg.Detector.MinEdgeStrength)
	assert.InDelta(t, 0.05, cfg.Rectify.MarginFraction, 1e-12)
	assert.Equal(t, 92, cfg.Output.JPEGQuality)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"output format", func(c *Config) { c.Output.Format = "csv" }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = -1 }},
		{"rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerMinute = -1 }},
		{"batch workers", func(c *Config) { c.Batch.Workers = -1 }},
		{"stride", func(c *Config) { c.Detector.CornerStride = 0 }},
		{"edge strength", func(c *Config) { c.Detector.MinEdgeStrength = 300 }},
		{"confidence", func(c *Config) { c.Rectify.MinConfidence = 2 }},
		{"margin", func(c *Config) { c.Rectify.MarginFraction = 0.5 }},
		{"jpeg quality", func(c *Config) { c.Output.JPEGQuality = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector.CornerStride = 2
	cfg.Rectify.Workers = 3
	cfg.Rectify.RequireConvex = true
	cfg.Rectify.DebugDir = "/tmp/dbg"
	cfg.Output.AutoOrient = false

	pc := cfg.ToPipelineConfig()
	assert.Equal(t, 2, pc.Rectify.Detector.Stride)
	assert.Equal(t, 3, pc.Rectify.Detector.Workers)
	assert.Equal(t, 3, pc.Rectify.Workers)
	assert.True(t, pc.Rectify.RequireConvex)
	assert.Equal(t, "/tmp/dbg", pc.DebugDir)
	assert.False(t, pc.AutoOrient)
	assert.Equal(t, 92, pc.JPEGQuality)
}

func TestMarshalYAML(t *testing.T) {
	data, err := MarshalYAML(DefaultConfig())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "detector")
	assert.Contains(t, raw, "rectify")
	det, ok := raw["detector"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, det["corner_stride"])
}
