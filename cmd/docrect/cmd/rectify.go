package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/docrect/internal/batch"
	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
	"github.com/spf13/cobra"
)

// rectifyReport is the --format json output of the rectify command.
type rectifyReport struct {
	Input  string           `json:"input"`
	Output string           `json:"output"`
	Result *pipeline.Output `json:"result"`
}

func newRectifyCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rectify <image>",
		Short: "Correct the perspective of a single document photo",
		Long: `Detect the document in an image, warp it into an upright rectangle and
write the result. JPEG input produces JPEG output, everything else PNG.

When no reliable document outline is found the image is cropped by a small
margin instead; the report says which method was used and why.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  docrect rectify photo.jpg
  docrect rectify photo.jpg -o page.jpg --format json
  docrect rectify scan.png --corners 10,10,190,10,190,240,10,240
  docrect rectify photo.jpg -o - > page.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRectify(cmd, args[0])
		},
	}

	fs := cmd.Flags()
	fs.StringP("output", "o", "", "output file, - for stdout (default: <name><suffix>.<ext> next to the input)")
	fs.StringP("format", "f", outputFormatText, "report format: text, json")
	fs.String("suffix", "", "suffix for the default output name (default from config: _rectified)")
	fs.String("corners", "", "use these corners instead of detection: x0,y0,x1,y1,x2,y2,x3,y3 (TL,TR,BR,BL)")
	addPipelineFlags(fs)
	return cmd
}

func (c *cli) runRectify(cmd *cobra.Command, path string) error {
	pl, cfg, err := c.buildPipeline(cmd)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format == "" {
		format = outputFormatText
	}
	if err := validateFormat(format, outputFormatText, outputFormatJSON); err != nil {
		return err
	}

	in, err := readInput(path)
	if err != nil {
		return err
	}

	// an explicit file name decides the encoding
	dst, _ := cmd.Flags().GetString("output")
	if dst != "" && dst != "-" {
		in.Format = utils.FormatFromPath(dst)
		if in.Format == "" {
			return fmt.Errorf("unsupported output extension %q (use .png, .jpg or .jpeg)", filepath.Ext(dst))
		}
	}

	var out *pipeline.Output
	if corners, _ := cmd.Flags().GetString("corners"); corners != "" {
		quad, perr := utils.ParseQuad(corners)
		if perr != nil {
			return fmt.Errorf("invalid --corners: %w", perr)
		}
		out, err = pl.ProcessQuad(in, quad)
	} else {
		out, err = pl.ProcessContext(cmd.Context(), in)
	}
	if err != nil {
		return fmt.Errorf("failed to rectify %s: %w", path, err)
	}

	if dst == "-" {
		_, err := cmd.OutOrStdout().Write(out.Data)
		return err
	}
	if dst == "" {
		suffix := cfg.Output.Suffix
		if cmd.Flags().Changed("suffix") {
			suffix, _ = cmd.Flags().GetString("suffix")
		}
		dst = batch.OutputPath(path, cfg.Output.Dir, suffix, out.Format)
	}
	if err := os.WriteFile(dst, out.Data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	slog.Debug("Rectified image written", "input", path, "output", dst,
		"method", out.Method, "confidence", out.Confidence)

	if format == outputFormatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rectifyReport{Input: path, Output: dst, Result: out})
	}
	line := batch.FileResult{
		Input:      path,
		Output:     dst,
		Method:     string(out.Method),
		Reason:     out.Reason,
		Confidence: out.Confidence,
		Width:      out.Width,
		Height:     out.Height,
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), line.String())
	return err
}
