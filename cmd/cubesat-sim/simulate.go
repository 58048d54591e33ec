package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cubesat-sim/internal/api"
	"cubesat-sim/internal/config"
	"cubesat-sim/internal/logging"
	"cubesat-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simTUI        bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simListenAddr string
	simLogFile    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time CubeSat simulator",
	Long:  "simulate starts the telemetry generator, the recovery engine, and the REST API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		if simTick > 0 {
			cfg.TickIntervalS = simTick.Seconds()
		}
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			cfg.TickIntervalS = d.Seconds()
		}
		if simListenAddr != "" {
			cfg.ListenAddr = simListenAddr
		}
		if cfg.ListenAddr == "" {
			cfg.ListenAddr = ":8000"
		}

		writer, eventWriter, tui, cleanup, err := newWriters(cfg, simPrintOnly, simTUI, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		logger := logging.New()
		if tui != nil {
			// STDOUT belongs to the TUI while it runs.
			logger = logging.Discard()
			defer tui.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		simulator := sim.NewSimulator(cfg, writer, eventWriter, logger)

		if tui != nil {
			tui.SetFaultInjector(simulator.InjectFault)
			go func() {
				ticker := time.NewTicker(cfg.TickInterval())
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						tui.SetRecoveryStatus(simulator.RecoveryStatus())
					}
				}
			}()
		}

		srv := api.NewServer(simulator)
		go func() {
			if err := srv.Start(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("API server failed", "error", err)
				stop()
			}
		}()

		simulator.Run(ctx)
		logger.Info("simulation stopped")
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render telemetry in an interactive terminal UI")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Telemetry tick interval override (e.g. 500ms, 2s)")
	simulateCmd.Flags().StringVar(&simListenAddr, "listen", "", "API listen address override (e.g. :8000)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export telemetry/event logs (JSONL)")
}
