//nolint:lll
package config

// Config represents the complete configuration for the docrect application.
// It covers every command (rectify, detect, batch, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Detection stages
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Rectification controller
	Rectify RectifyConfig `mapstructure:"rectify" yaml:"rectify" json:"rectify"`

	// Output encoding and file naming
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// DetectorConfig contains the binarization, edge and corner search settings.
type DetectorConfig struct {
	ThresholdRadius int     `mapstructure:"threshold_radius" yaml:"threshold_radius" json:"threshold_radius"`
	ThresholdC      float64 `mapstructure:"threshold_c" yaml:"threshold_c" json:"threshold_c"`
	CornerStride    int     `mapstructure:"corner_stride" yaml:"corner_stride" json:"corner_stride"`
	MinEdgeStrength int     `mapstructure:"min_edge_strength" yaml:"min_edge_strength" json:"min_edge_strength"`
}

// RectifyConfig contains the fallback policy and resampling settings.
type RectifyConfig struct {
	MinConfidence  float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	MarginFraction float64 `mapstructure:"margin_fraction" yaml:"margin_fraction" json:"margin_fraction"`
	RequireConvex  bool    `mapstructure:"require_convex" yaml:"require_convex" json:"require_convex"`
	Workers        int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	DebugDir       string  `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
}

// OutputConfig contains output settings.
type OutputConfig struct {
	JPEGQuality int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
	AutoOrient  bool   `mapstructure:"auto_orient" yaml:"auto_orient" json:"auto_orient"`
	Dir         string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Suffix      string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Include         string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}
