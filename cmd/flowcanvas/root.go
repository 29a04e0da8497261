package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flowcanvas/internal/config"
	"flowcanvas/internal/generation"
	"flowcanvas/internal/observability"
	"flowcanvas/internal/registry"
	"flowcanvas/internal/repository/sqlite"
	"flowcanvas/internal/service"
	"flowcanvas/internal/ui"
)

var version = "0.1.0"

var (
	configPath string
	noColor    bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowcanvas",
		Short: "flowcanvas: node-graph editor and runner for generative media workflows",
		Long: ui.Brand.Sprint("flowcanvas") + " builds and runs generative media workflows\n" +
			ui.Subtle.Sprint("Serve the canvas API, or run project files from the terminal"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.SetVersionTemplate("flowcanvas {{ .Version }}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: search "+config.ConfigFileName+" and the user config dir)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		serveCmd(),
		runCmd(),
		typesCmd(),
		convertCmd(),
		configCmd(),
	)

	return root
}

// loadConfig reads the config selected by --config and reports its warnings
func loadConfig() (*config.Config, error) {
	cfg, used, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if used != "" {
		log.Printf("Config loaded: %s", used)
	}
	return cfg, nil
}

// newGenerator layers retries and rate limiting over the simulator
func newGenerator(cfg *config.Config) generation.Service {
	var gen generation.Service = generation.NewSimulator(cfg.Generation.SimulateDelay)
	if cfg.Generation.MaxRetries > 0 {
		gen = generation.NewRetryService(gen, cfg.RetrySettings())
	}
	if cfg.Generation.RequestsPerSecond > 0 {
		gen = generation.NewRateLimitedService(gen, cfg.Generation.RequestsPerSecond, cfg.Generation.Burst)
	}
	return gen
}

// newService opens the repository at dbPath and builds the project service
func newService(cfg *config.Config, dbPath string, bus *service.EventBus) (*service.ProjectService, error) {
	repo, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	reg := registry.New(newGenerator(cfg))
	return service.NewProjectService(repo, bus, reg, cfg.ServiceOptions()), nil
}

// startTracing installs the tracer provider and returns its shutdown
func startTracing(ctx context.Context, cfg *config.Config) func() {
	tp, err := observability.InitTracing(ctx, cfg.TracingSettings(version))
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
	}
}
