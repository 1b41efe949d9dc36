package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/docrect/internal/config"
	"github.com/MeKo-Tech/docrect/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// cli is the state shared by one command tree: its viper instance, the
// --config path and the configuration resolved before a subcommand runs.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the docrect command tree. Each call returns an
// independent tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "docrect",
		Short: "Perspective correction for photographed documents",
		Long: `docrect finds the four corners of a document in a photo and warps it
into an upright rectangle. When no reliable quadrilateral is found the image
is cropped by a small margin instead, so every input produces an output.

Examples:
  docrect rectify receipt.jpg
  docrect rectify scan.png --corners 10,10,190,10,190,240,10,240 -o page.png
  docrect detect photo.jpg
  docrect batch photos/ --recursive --workers 8
  docrect serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: c.setup,
	}
	rootCmd.SetVersionTemplate("docrect version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/docrect, /etc/docrect)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")

	_ = c.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = c.v.BindPFlag("log_level", pf.Lookup("log-level"))

	rootCmd.AddCommand(
		newRectifyCommand(c),
		newDetectCommand(c),
		newBatchCommand(c),
		newServeCommand(c),
		newConfigCommand(c),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if skipConfig(cmd) {
		return nil
	}
	cfg, err := config.NewLoaderWithViper(c.v).LoadWithFile(c.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	c.cfg = cfg

	logFormat, _ := cmd.Flags().GetString("log-format")
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), logLevel(cfg), logFormat))
	slog.Debug("configuration loaded", "file", c.v.ConfigFileUsed())
	return nil
}

// skipConfig reports whether cmd works without a valid configuration.
// "config init" must run even when the existing file is broken.
func skipConfig(cmd *cobra.Command) bool {
	return cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config"
}

// config returns the configuration loaded by setup.
func (c *cli) config() (*config.Config, error) {
	if c.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return c.cfg, nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == outputFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
