package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/clburn/internal/cl"
	"github.com/cwbudde/clburn/internal/config"
	"github.com/cwbudde/clburn/internal/load"
	"github.com/cwbudde/clburn/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	vendor      string
	elements    int
	rounds      int
	stagger     time.Duration
	metricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate continuous load on every matching accelerator",
	Long: `Enumerates OpenCL platforms, filters devices to the target vendor's GPUs,
and runs one load worker per device until interrupted. A worker that fails to
initialize or dispatch logs its error and exits without disturbing the others.`,
	RunE: runLoad,
}

func init() {
	defaults := config.Default()

	runCmd.Flags().StringVar(&configPath, "config", "", "YAML config file (flags override it)")
	runCmd.Flags().StringVar(&vendor, "vendor", defaults.Vendor, "Vendor substring to match, case-insensitively")
	runCmd.Flags().IntVar(&elements, "elements", defaults.Elements, "Workload buffer size in float32 elements")
	runCmd.Flags().IntVar(&rounds, "rounds", defaults.Rounds, "Transform iterations per work item per dispatch")
	runCmd.Flags().DurationVar(&stagger, "stagger", time.Duration(defaults.Stagger), "Delay between worker launches with multiple devices")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")

	rootCmd.AddCommand(runCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	if cmd.Flags().Changed("vendor") {
		cfg.Vendor = vendor
	}
	if cmd.Flags().Changed("elements") {
		cfg.Elements = elements
	}
	if cmd.Flags().Changed("rounds") {
		cfg.Rounds = rounds
	}
	if cmd.Flags().Changed("stagger") {
		cfg.Stagger = config.Duration(stagger)
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			slog.Info("Serving metrics", "addr", cfg.Metrics.Addr)
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				slog.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting load generation",
		"vendor", cfg.Vendor,
		"elements", cfg.Elements,
		"rounds", cfg.Rounds,
		"stagger", time.Duration(cfg.Stagger),
	)

	orch := &load.Orchestrator{
		Vendor:    cfg.Vendor,
		Stagger:   time.Duration(cfg.Stagger),
		Enumerate: cl.Enumerate,
		NewRunner: func(target cl.Target, index int) load.Runner {
			return load.NewWorker(target, index, cfg.Elements, cfg.Rounds)
		},
	}

	return orch.Run(ctx)
}
