package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/docrect/internal/batch"
	"github.com/MeKo-Tech/docrect/internal/config"
	"github.com/spf13/cobra"
)

func newBatchCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Correct the perspective of many images in parallel",
		Long: `Rectify every image found under the given files and directories using a
pool of parallel workers. Results are written next to each input as
<name><suffix>.<ext>, or into --out-dir. Files that already carry the suffix
are skipped so a directory can be processed again.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  docrect batch *.jpg *.png
  docrect batch photos/ --recursive --workers 8
  docrect batch photos/ --out-dir fixed/ --format json --output summary.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, args)
		},
	}

	fs := cmd.Flags()
	fs.IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))
	fs.BoolP("recursive", "r", false, "recursively scan directories")
	fs.StringSlice("include", nil, "file patterns to include (default: all supported image extensions)")
	fs.StringSlice("exclude", nil, "file patterns to exclude")
	fs.Bool("continue-on-error", true, "keep going when a file fails")
	fs.String("out-dir", "", "directory for rectified images (default: next to each input)")
	fs.String("suffix", batch.DefaultSuffix, "suffix appended to output file names")
	fs.StringP("format", "f", outputFormatText, "summary format: text, json, csv")
	fs.StringP("output", "o", "", "summary file (default: stdout)")
	fs.Bool("progress", false, "show a progress bar on stderr")
	fs.Bool("quiet", false, "suppress progress output")
	addPipelineFlags(fs)
	return cmd
}

// configToBatchConfig maps the resolved configuration to batch.Config.
// Explicitly set flags take precedence over config file and environment.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) batch.Config {
	fs := cmd.Flags()
	bc := batch.DefaultConfig()
	bc.Pipeline = cfg.ToPipelineConfig()

	bc.Workers = cfg.Batch.Workers
	if fs.Changed("workers") {
		bc.Workers, _ = fs.GetInt("workers")
	}
	bc.Recursive = cfg.Batch.Recursive
	if fs.Changed("recursive") {
		bc.Recursive, _ = fs.GetBool("recursive")
	}
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if fs.Changed("continue-on-error") {
		bc.ContinueOnError, _ = fs.GetBool("continue-on-error")
	}

	bc.IncludePatterns = splitPatterns(cfg.Batch.Include)
	if fs.Changed("include") {
		bc.IncludePatterns, _ = fs.GetStringSlice("include")
	}
	bc.ExcludePatterns = splitPatterns(cfg.Batch.Exclude)
	if fs.Changed("exclude") {
		bc.ExcludePatterns, _ = fs.GetStringSlice("exclude")
	}

	bc.OutputDir = cfg.Output.Dir
	if fs.Changed("out-dir") {
		bc.OutputDir, _ = fs.GetString("out-dir")
	}
	bc.Suffix = cfg.Output.Suffix
	if fs.Changed("suffix") {
		bc.Suffix, _ = fs.GetString("suffix")
	}
	if cfg.Output.Format != "" {
		bc.Format = cfg.Output.Format
	}
	if fs.Changed("format") {
		bc.Format, _ = fs.GetString("format")
	}

	// Reporting settings are CLI-only.
	bc.OutputFile, _ = fs.GetString("output")
	bc.ShowProgress, _ = fs.GetBool("progress")
	bc.Quiet, _ = fs.GetBool("quiet")
	return bc
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *cli) runBatch(cmd *cobra.Command, args []string) error {
	base, err := c.config()
	if err != nil {
		return err
	}
	cfg := *base
	applyPipelineFlags(cmd, &cfg)
	bc := configToBatchConfig(&cfg, cmd)

	result, err := batch.ProcessBatch(cmd.Context(), args, bc)
	if result != nil {
		if serr := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile); serr != nil {
			return fmt.Errorf("failed to save results: %w", serr)
		}
	}
	if err != nil {
		return err
	}
	if n := result.Failed(); n > 0 {
		return fmt.Errorf("%d of %d file(s) failed", n, len(result.Files))
	}
	return nil
}
