// Package batch rectifies every image found under a set of files and
// directories and reports a summary.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// ErrOutputConflict is recorded for an input whose output path is already
// taken by an earlier input of the same batch.
var ErrOutputConflict = errors.New("output path conflict")

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// FileResult is the outcome for one discovered input file.
type FileResult struct {
	Input      string  `json:"input"`
	Output     string  `json:"output,omitempty"`
	Method     string  `json:"method,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Failed reports whether the file could not be processed or written.
func (f FileResult) Failed() bool { return f.Error != "" }

// Result holds the result of batch processing.
type Result struct {
	Files    []FileResult        `json:"files"`
	Stats    pipeline.BatchStats `json:"summary"`
	Duration time.Duration       `json:"duration_ns"`
	Workers  int                 `json:"workers"`
}

// Failed returns the number of files that were not rectified and written.
func (r *Result) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// ProcessBatch discovers images under paths, rectifies them in parallel and
// writes each result next to its input or into config.OutputDir, mirroring
// the layout below each directory argument. Workers read and write one file
// at a time. Per-file failures are recorded in the result; with
// ContinueOnError unset the first failure stops the remaining work and is
// also returned.
func ProcessBatch(ctx context.Context, paths []string, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}

	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	files = dropOwnOutputs(files, config.Suffix)
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	pl, err := pipeline.NewBuilder().WithConfig(config.Pipeline).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	// Outputs are planned from the input extension before any work starts;
	// the worker claims the final path again once the real format is known.
	claims := &outputClaims{}
	conflicts := make([]error, len(files))
	var (
		inputs []pipeline.Input
		queued []int
	)
	for i, f := range files {
		predicted := utils.OutputFormat(utils.FormatFromPath(f.Path))
		dst := outputPathFor(f, config.OutputDir, config.Suffix, predicted)
		if err := claims.claim(dst, f.Path); err != nil {
			if !config.ContinueOnError {
				return nil, fmt.Errorf("%s: %w", f.Path, err)
			}
			conflicts[i] = err
			continue
		}
		inputs = append(inputs, pipeline.Input{Name: f.Path, Path: f.Path})
		queued = append(queued, i)
	}

	var progress pipeline.ProgressCallback
	switch {
	case config.Quiet:
	case config.ShowProgress:
		progress = pipeline.NewConsoleProgressCallback(os.Stderr, "Rectifying: ")
	default:
		progress = pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug, 25)
	}

	written := make([]string, len(files))
	store := func(index int, out *pipeline.Output) error {
		fi := queued[index]
		dst := outputPathFor(files[fi], config.OutputDir, config.Suffix, out.Format)
		if err := claims.claim(dst, files[fi].Path); err != nil {
			return err
		}
		if err := writeOutput(dst, out); err != nil {
			return err
		}
		written[fi] = dst
		out.Data = nil
		return nil
	}

	start := time.Now()
	items, err := pl.ProcessBatch(ctx, inputs, pipeline.ParallelConfig{
		MaxWorkers:       config.Workers,
		ProgressCallback: progress,
		StopOnError:      !config.ContinueOnError,
		OnOutput:         store,
	})
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	all := make([]pipeline.BatchItem, len(files))
	for i, f := range files {
		all[i] = pipeline.BatchItem{Index: i, Name: f.Path, Err: conflicts[i]}
	}
	for k, it := range items {
		it.Index = queued[k]
		all[queued[k]] = it
	}

	res := &Result{Files: make([]FileResult, len(files)), Workers: config.Workers}
	var firstErr error
	for i, it := range all {
		fr := FileResult{Input: files[i].Path}
		if it.Err == nil && it.Output != nil {
			fr.Output = written[i]
			fr.Method = string(it.Output.Method)
			fr.Reason = it.Output.Reason
			fr.Confidence = it.Output.Confidence
			fr.Width, fr.Height = it.Output.Width, it.Output.Height
		} else {
			fr.Error = it.Err.Error()
			slog.Warn("Batch item failed", "file", files[i].Path, "error", it.Err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", files[i].Path, it.Err)
			}
		}
		res.Files[i] = fr
	}
	res.Duration = time.Since(start)
	res.Stats = pipeline.CalculateBatchStats(all)

	slog.Info("Batch finished", "files", len(files), "failed", res.Stats.Failed,
		"duration_ms", res.Duration.Milliseconds())
	if firstErr != nil && !config.ContinueOnError {
		return res, firstErr
	}
	return res, nil
}

func dropOwnOutputs(files []imageFile, suffix string) []imageFile {
	kept := files[:0]
	for _, f := range files {
		if isOwnOutput(f.Path, suffix) {
			slog.Debug("Skipping previous output", "file", f.Path)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// SaveResults writes the formatted summary to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = io.WriteString(w, output)
	return err
}
