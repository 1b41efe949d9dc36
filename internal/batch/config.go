package batch

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
)

// Summary formats understood by FormatResults.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// DefaultSuffix is appended to the input stem to name each output file.
const DefaultSuffix = "_rectified"

// Config holds all configuration for batch processing.
type Config struct {
	Pipeline pipeline.Config

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings. An empty OutputDir writes next to each input.
	OutputDir  string
	Suffix     string
	Format     string
	OutputFile string

	// Progress settings
	ShowProgress bool
	Quiet        bool
}

// DefaultConfig returns batch defaults on top of the default pipeline.
func DefaultConfig() Config {
	return Config{
		Pipeline:        pipeline.DefaultConfig(),
		Workers:         runtime.NumCPU(),
		ContinueOnError: true,
		Suffix:          DefaultSuffix,
		Format:          FormatText,
	}
}

// Validate checks the batch configuration.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Suffix == "" && c.OutputDir == "" {
		return errors.New("an empty suffix requires an output directory, inputs would be overwritten")
	}
	if c.Format != "" && !slices.Contains([]string{FormatText, FormatJSON, FormatCSV}, c.Format) {
		return fmt.Errorf("unsupported summary format %q", c.Format)
	}
	return c.Pipeline.Validate()
}
