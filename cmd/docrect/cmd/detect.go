package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDetectCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Locate the document corners without writing an image",
		Long: `Run only the detection stages and report the four corners found in each
quadrant together with the overall confidence.

Examples:
  docrect detect photo.jpg
  docrect detect photo.jpg --format text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDetect(cmd, args[0])
		},
	}
	cmd.Flags().StringP("format", "f", outputFormatJSON, "report format: text, json")
	addPipelineFlags(cmd.Flags())
	return cmd
}

func (c *cli) runDetect(cmd *cobra.Command, path string) error {
	pl, _, err := c.buildPipeline(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format, outputFormatText, outputFormatJSON); err != nil {
		return err
	}

	in, err := readInput(path)
	if err != nil {
		return err
	}
	det, err := pl.Detect(in)
	if err != nil {
		return fmt.Errorf("failed to detect %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if format == outputFormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(det)
	}
	if det.Quad == nil {
		_, err = fmt.Fprintf(out, "%s: %dx%d  no document found  confidence=%.2f\n",
			path, det.Width, det.Height, det.Confidence)
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %dx%d  corners=%s  confidence=%.2f\n",
		path, det.Width, det.Height, det.Quad, det.Confidence)
	return err
}
