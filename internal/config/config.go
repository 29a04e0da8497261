// Package config provides configuration management for flowcanvas.
//
// Settings come from an optional YAML file layered under FLOWCANVAS_*
// environment variables (FLOWCANVAS_SERVER_ADDR overrides server.addr).
//
// Config file locations (priority order):
//  1. $FLOWCANVAS_CONFIG
//  2. ./flowcanvas.yaml
//  3. $XDG_CONFIG_HOME/flowcanvas/config.yaml
//  4. ~/.config/flowcanvas/config.yaml
//  5. /etc/flowcanvas/config.yaml
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"flowcanvas/internal/canvas"
	"flowcanvas/internal/domain"
	"flowcanvas/internal/execution"
	"flowcanvas/internal/generation"
	"flowcanvas/internal/observability"
	"flowcanvas/internal/service"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "FLOWCANVAS"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Canvas     CanvasConfig     `mapstructure:"canvas" yaml:"canvas"`
	Execution  ExecutionConfig  `mapstructure:"execution" yaml:"execution"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CanvasConfig tunes the editor interaction layer
type CanvasConfig struct {
	MinZoom         float64       `mapstructure:"min_zoom" yaml:"min_zoom"`
	MaxZoom         float64       `mapstructure:"max_zoom" yaml:"max_zoom"`
	ZoomSensitivity float64       `mapstructure:"zoom_sensitivity" yaml:"zoom_sensitivity"`
	AdaptiveZoomMin float64       `mapstructure:"adaptive_zoom_min" yaml:"adaptive_zoom_min"`
	AdaptiveZoomMax float64       `mapstructure:"adaptive_zoom_max" yaml:"adaptive_zoom_max"`
	LongPress       time.Duration `mapstructure:"long_press" yaml:"long_press"`
	MoveThreshold   float64       `mapstructure:"move_threshold" yaml:"move_threshold"`
	ClickThreshold  float64       `mapstructure:"click_threshold" yaml:"click_threshold"`
	SnapRadius      float64       `mapstructure:"snap_radius" yaml:"snap_radius"`
	GroupPadding    float64       `mapstructure:"group_padding" yaml:"group_padding"`
	ZoomStep        float64       `mapstructure:"zoom_step" yaml:"zoom_step"`
}

// ExecutionConfig tunes node and workflow runs
type ExecutionConfig struct {
	ReferenceTextLimit  int           `mapstructure:"reference_text_limit" yaml:"reference_text_limit"`
	WorkflowConcurrency int           `mapstructure:"workflow_concurrency" yaml:"workflow_concurrency"`
	NodeTimeout         time.Duration `mapstructure:"node_timeout" yaml:"node_timeout"`
}

// GenerationConfig configures the generation backend wrappers
type GenerationConfig struct {
	SimulateDelay     time.Duration `mapstructure:"simulate_delay" yaml:"simulate_delay"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryInitial      time.Duration `mapstructure:"retry_initial" yaml:"retry_initial"`
	RetryMax          time.Duration `mapstructure:"retry_max" yaml:"retry_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
}

// TracingConfig configures OpenTelemetry export. An empty endpoint keeps
// tracing as a no-op.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name" yaml:"service_name"`
	Environment  string  `mapstructure:"environment" yaml:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	c := canvas.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:         ":3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // SSE streams and long runs stay open
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{Path: "./flowcanvas.db"},
		Canvas: CanvasConfig{
			MinZoom:         c.MinZoom,
			MaxZoom:         c.MaxZoom,
			ZoomSensitivity: c.ZoomSensitivity,
			AdaptiveZoomMin: c.HeaderScaleMin,
			AdaptiveZoomMax: c.HeaderScaleMax,
			LongPress:       c.LongPress,
			MoveThreshold:   c.MoveThreshold,
			ClickThreshold:  c.ClickThreshold,
			SnapRadius:      c.SnapRadius,
			GroupPadding:    domain.GroupPadding,
			ZoomStep:        c.ZoomStep,
		},
		Execution: ExecutionConfig{
			ReferenceTextLimit:  execution.DefaultTextLimit,
			WorkflowConcurrency: execution.DefaultConcurrency,
			NodeTimeout:         5 * time.Minute,
		},
		Generation: GenerationConfig{
			SimulateDelay:     2 * time.Second,
			MaxRetries:        3,
			RetryInitial:      500 * time.Millisecond,
			RetryMax:          10 * time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Tracing: TracingConfig{
			ServiceName: "flowcanvas",
			Environment: "development",
			SampleRate:  1.0,
		},
	}
}

// setDefaults registers every default with viper so environment overrides
// reach keys the file does not mention
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("canvas.min_zoom", d.Canvas.MinZoom)
	v.SetDefault("canvas.max_zoom", d.Canvas.MaxZoom)
	v.SetDefault("canvas.zoom_sensitivity", d.Canvas.ZoomSensitivity)
	v.SetDefault("canvas.adaptive_zoom_min", d.Canvas.AdaptiveZoomMin)
	v.SetDefault("canvas.adaptive_zoom_max", d.Canvas.AdaptiveZoomMax)
	v.SetDefault("canvas.long_press", d.Canvas.LongPress)
	v.SetDefault("canvas.move_threshold", d.Canvas.MoveThreshold)
	v.SetDefault("canvas.click_threshold", d.Canvas.ClickThreshold)
	v.SetDefault("canvas.snap_radius", d.Canvas.SnapRadius)
	v.SetDefault("canvas.group_padding", d.Canvas.GroupPadding)
	v.SetDefault("canvas.zoom_step", d.Canvas.ZoomStep)

	v.SetDefault("execution.reference_text_limit", d.Execution.ReferenceTextLimit)
	v.SetDefault("execution.workflow_concurrency", d.Execution.WorkflowConcurrency)
	v.SetDefault("execution.node_timeout", d.Execution.NodeTimeout)

	v.SetDefault("generation.simulate_delay", d.Generation.SimulateDelay)
	v.SetDefault("generation.max_retries", d.Generation.MaxRetries)
	v.SetDefault("generation.retry_initial", d.Generation.RetryInitial)
	v.SetDefault("generation.retry_max", d.Generation.RetryMax)
	v.SetDefault("generation.requests_per_second", d.Generation.RequestsPerSecond)
	v.SetDefault("generation.burst", d.Generation.Burst)

	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// Load reads the config at path, or the first file FindConfigPath finds
// when path is empty. With no file at all the defaults and environment
// apply. It returns the file actually read, if any.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigPath()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Validate configuration and print warnings
	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	return &cfg, path, nil
}

// applyDefaults replaces zero values that would disable a component
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Canvas.MaxZoom <= 0 {
		c.Canvas.MaxZoom = d.Canvas.MaxZoom
	}
	if c.Canvas.MinZoom <= 0 {
		c.Canvas.MinZoom = d.Canvas.MinZoom
	}
	if c.Canvas.ZoomSensitivity <= 0 {
		c.Canvas.ZoomSensitivity = d.Canvas.ZoomSensitivity
	}
	if c.Execution.WorkflowConcurrency <= 0 {
		c.Execution.WorkflowConcurrency = d.Execution.WorkflowConcurrency
	}
	if c.Execution.ReferenceTextLimit <= 0 {
		c.Execution.ReferenceTextLimit = d.Execution.ReferenceTextLimit
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = d.Tracing.ServiceName
	}
}

// Validate checks configuration for issues and returns warnings
func (c *Config) Validate() []string {
	var warnings []string

	if c.Canvas.MinZoom >= c.Canvas.MaxZoom {
		warnings = append(warnings, fmt.Sprintf("canvas min_zoom %.2f is not below max_zoom %.2f", c.Canvas.MinZoom, c.Canvas.MaxZoom))
	}
	if c.Canvas.AdaptiveZoomMin > c.Canvas.AdaptiveZoomMax {
		warnings = append(warnings, fmt.Sprintf("canvas adaptive_zoom_min %.2f exceeds adaptive_zoom_max %.2f", c.Canvas.AdaptiveZoomMin, c.Canvas.AdaptiveZoomMax))
	}
	if c.Canvas.SnapRadius < canvas.DefaultConfig().PortRadius {
		warnings = append(warnings, fmt.Sprintf("canvas snap_radius %.1f is smaller than the port grab radius", c.Canvas.SnapRadius))
	}
	if c.Generation.MaxRetries < 0 {
		warnings = append(warnings, fmt.Sprintf("generation max_retries %d is negative", c.Generation.MaxRetries))
	}
	if c.Generation.RequestsPerSecond < 0 {
		warnings = append(warnings, fmt.Sprintf("generation requests_per_second %.2f is negative", c.Generation.RequestsPerSecond))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// CanvasSettings returns the interaction tuning with overrides applied
func (c *Config) CanvasSettings() canvas.Config {
	out := canvas.DefaultConfig()
	out.MinZoom = c.Canvas.MinZoom
	out.MaxZoom = c.Canvas.MaxZoom
	out.ZoomSensitivity = c.Canvas.ZoomSensitivity
	out.HeaderScaleMin = c.Canvas.AdaptiveZoomMin
	out.HeaderScaleMax = c.Canvas.AdaptiveZoomMax
	if c.Canvas.LongPress > 0 {
		out.LongPress = c.Canvas.LongPress
	}
	if c.Canvas.MoveThreshold > 0 {
		out.MoveThreshold = c.Canvas.MoveThreshold
	}
	if c.Canvas.ClickThreshold > 0 {
		out.ClickThreshold = c.Canvas.ClickThreshold
	}
	if c.Canvas.SnapRadius > 0 {
		out.SnapRadius = c.Canvas.SnapRadius
	}
	if c.Canvas.ZoomStep > 1 {
		out.ZoomStep = c.Canvas.ZoomStep
	}
	return out
}

// ServiceOptions returns the project service tuning
func (c *Config) ServiceOptions() service.Options {
	return service.Options{
		Concurrency: c.Execution.WorkflowConcurrency,
		NodeTimeout: c.Execution.NodeTimeout,
		TextLimit:   c.Execution.ReferenceTextLimit,
	}
}

// RetrySettings returns the generation retry policy. The per-attempt
// timeout is left to the node timeout.
func (c *Config) RetrySettings() *generation.RetryConfig {
	rc := generation.DefaultRetryConfig()
	rc.MaxRetries = c.Generation.MaxRetries
	if c.Generation.RetryInitial > 0 {
		rc.RetryDelay = c.Generation.RetryInitial
	}
	if c.Generation.RetryMax > 0 {
		rc.MaxDelay = c.Generation.RetryMax
	}
	rc.Timeout = 0
	return rc
}

// TracingSettings returns the OpenTelemetry configuration
func (c *Config) TracingSettings(version string) *observability.TracingConfig {
	tc := observability.DefaultTracingConfig()
	tc.ServiceName = c.Tracing.ServiceName
	tc.Environment = c.Tracing.Environment
	tc.OTLPEndpoint = c.Tracing.OTLPEndpoint
	tc.SampleRate = c.Tracing.SampleRate
	if version != "" {
		tc.ServiceVersion = version
	}
	return tc
}
