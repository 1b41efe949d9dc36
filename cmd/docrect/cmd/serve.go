package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/docrect/internal/config"
	"github.com/MeKo-Tech/docrect/internal/server"
	"github.com/MeKo-Tech/docrect/internal/version"
	"github.com/spf13/cobra"
)

const rateLimitPruneInterval = 10 * time.Minute

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP rectification service",
		Long: `Start an HTTP server that exposes the rectification pipeline.

The server provides the following endpoints:
  POST /rectify        - Rectify an uploaded image (multipart field "image" or raw body)
  POST /rectify/batch  - Rectify several base64 images in one JSON request
  POST /detect         - Detect document corners only
  GET  /ws/rectify     - WebSocket streaming interface
  GET  /health         - Health check endpoint
  GET  /metrics        - Prometheus metrics

Examples:
  docrect serve
  docrect serve --port 8080
  docrect serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}

	fs := cmd.Flags()
	fs.StringP("host", "H", "localhost", "server host")
	fs.IntP("port", "p", 8080, "server port")
	fs.String("cors-origin", "*", "CORS allowed origins")
	fs.Int("max-upload-size", 20, "maximum upload size in MB")
	fs.Int("timeout", 30, "request timeout in seconds")
	fs.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	fs.Int("batch-workers", 0, "parallel workers for /rectify/batch (default: all cores)")
	fs.Int("max-batch-items", 16, "maximum images per /rectify/batch request")
	// Rate limiting flags
	fs.Bool("rate-limit-enabled", false, "enable rate limiting")
	fs.Int("requests-per-minute", 60, "maximum requests per minute per client")
	fs.Int("requests-per-hour", 1000, "maximum requests per hour per client")
	fs.Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	fs.Int64("max-data-per-day", 0, "maximum upload volume per day per client in MB (0 = unlimited)")
	addPipelineFlags(fs)
	return cmd
}

// serverConfigFrom maps the resolved configuration and explicitly set flags
// to server.Config. The rate limiter is only configured when enabled.
func serverConfigFrom(cfg *config.Config, cmd *cobra.Command) (server.Config, int) {
	fs := cmd.Flags()
	sc := cfg.Server

	if fs.Changed("host") {
		sc.Host, _ = fs.GetString("host")
	}
	if fs.Changed("port") {
		sc.Port, _ = fs.GetInt("port")
	}
	if fs.Changed("cors-origin") {
		sc.CORSOrigin, _ = fs.GetString("cors-origin")
	}
	if fs.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = fs.GetInt("max-upload-size")
	}
	if fs.Changed("timeout") {
		sc.TimeoutSec, _ = fs.GetInt("timeout")
	}
	if fs.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = fs.GetInt("shutdown-timeout")
	}

	rl := sc.RateLimit
	if fs.Changed("rate-limit-enabled") {
		rl.Enabled, _ = fs.GetBool("rate-limit-enabled")
	}
	if fs.Changed("requests-per-minute") {
		rl.RequestsPerMinute, _ = fs.GetInt("requests-per-minute")
	}
	if fs.Changed("requests-per-hour") {
		rl.RequestsPerHour, _ = fs.GetInt("requests-per-hour")
	}
	if fs.Changed("max-requests-per-day") {
		rl.MaxRequestsPerDay, _ = fs.GetInt("max-requests-per-day")
	}
	if fs.Changed("max-data-per-day") {
		rl.MaxDataPerDayMB, _ = fs.GetInt64("max-data-per-day")
	}

	batchWorkers, _ := fs.GetInt("batch-workers")
	maxBatch, _ := fs.GetInt("max-batch-items")

	out := server.Config{
		Host:           sc.Host,
		Port:           sc.Port,
		CORSOrigin:     sc.CORSOrigin,
		MaxUploadMB:    int64(sc.MaxUploadMB),
		TimeoutSec:     sc.TimeoutSec,
		PipelineConfig: cfg.ToPipelineConfig(),
		BatchWorkers:   batchWorkers,
		MaxBatchItems:  maxBatch,
		Version:        version.Version,
	}
	if rl.Enabled {
		out.RateLimit = &server.Limits{
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     rl.MaxDataPerDayMB * 1024 * 1024,
		}
	}
	return out, sc.ShutdownTimeout
}

func (c *cli) runServe(cmd *cobra.Command) error {
	base, err := c.config()
	if err != nil {
		return err
	}
	cfg := *base
	applyPipelineFlags(cmd, &cfg)
	sc, shutdownTimeout := serverConfigFrom(&cfg, cmd)

	if sc.Port < 1 || sc.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
	}

	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	go srv.PruneRateLimiter(ctx, rateLimitPruneInterval)

	timeout := time.Duration(sc.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              sc.Address(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting rectification server", "addr", sc.Address(),
			"rate_limit", sc.RateLimit != nil, "version", version.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
