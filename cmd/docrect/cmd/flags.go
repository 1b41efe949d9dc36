package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/docrect/internal/config"
	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addPipelineFlags registers the flags shared by every command that runs the
// rectification pipeline.
func addPipelineFlags(fs *pflag.FlagSet) {
	fs.Float64("min-confidence", 0.25, "minimum corner confidence for a perspective warp (0..1)")
	fs.Float64("margin", 0.05, "fraction trimmed from each side by the basic crop fallback")
	fs.Bool("require-convex", false, "fall back to the basic crop when the detected quad is not convex")
	fs.Int("jpeg-quality", utils.DefaultJPEGQuality, "quality for JPEG output (1-100)")
	fs.Bool("auto-orient", true, "apply EXIF orientation to JPEG input before detection")
	fs.String("debug-dir", "", "directory to write detection debug images (mask, edges, overlay, compare)")
}

// applyPipelineFlags overlays explicitly set pipeline flags on cfg.
func applyPipelineFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("min-confidence") {
		cfg.Rectify.MinConfidence, _ = fs.GetFloat64("min-confidence")
	}
	if fs.Changed("margin") {
		cfg.Rectify.MarginFraction, _ = fs.GetFloat64("margin")
	}
	if fs.Changed("require-convex") {
		cfg.Rectify.RequireConvex, _ = fs.GetBool("require-convex")
	}
	if fs.Changed("jpeg-quality") {
		cfg.Output.JPEGQuality, _ = fs.GetInt("jpeg-quality")
	}
	if fs.Changed("auto-orient") {
		cfg.Output.AutoOrient, _ = fs.GetBool("auto-orient")
	}
	if fs.Changed("debug-dir") {
		cfg.Rectify.DebugDir, _ = fs.GetString("debug-dir")
	}
}

// buildPipeline resolves the effective configuration for cmd and builds a
// pipeline from it. The returned config is a copy; the shared one is untouched.
func (c *cli) buildPipeline(cmd *cobra.Command) (*pipeline.Pipeline, config.Config, error) {
	base, err := c.config()
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg := *base
	applyPipelineFlags(cmd, &cfg)

	pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
	if err != nil {
		return nil, cfg, fmt.Errorf("invalid pipeline settings: %w", err)
	}
	return pl, cfg, nil
}

// readInput loads path as a pipeline input.
func readInput(path string) (pipeline.Input, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-selected input
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pipeline.Input{Data: data, Name: path}, nil
}

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (must be one of: %v)", format, allowed)
}
