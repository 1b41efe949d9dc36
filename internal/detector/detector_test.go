package detector

import (
	"testing"

	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative radius", func(c *Config) { c.ThresholdRadius = -1 }},
		{"zero stride", func(c *Config) { c.Stride = 0 }},
		{"strength too high", func(c *Config) { c.MinStrength = 256 }},
		{"negative strength", func(c *Config) { c.MinStrength = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
}

func TestDetect_ExposesIntermediatePlanes(t *testing.T) {
	det := detectImage(t, testutil.CardImage(), DefaultConfig())

	for _, m := range []interface{ Width() int }{det.Gray, det.Binary, det.Edges} {
		assert.Equal(t, testutil.CardCanvasWidth, m.Width())
	}
	assert.Equal(t, testutil.CardCanvasWidth*testutil.CardCanvasHeight,
		det.Binary.Count(Foreground)+det.Binary.Count(Background))
	assert.Positive(t, det.Edges.Count(255))
}

func TestDetect_DeterministicAcrossWorkerCounts(t *testing.T) {
	buf := testutil.Buffer(t, testutil.NoiseImage(64, 48, 3))
	var first *Detection
	for _, workers := range []int{1, 2, 5, 0} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		d, err := New(cfg)
		require.NoError(t, err)
		det := d.Detect(buf)
		if first == nil {
			first = det
			continue
		}
		assert.Equal(t, first.Result, det.Result, "workers=%d", workers)
		assert.Equal(t, first.Edges.Gray().Pix, det.Edges.Gray().Pix, "workers=%d", workers)
	}
}
