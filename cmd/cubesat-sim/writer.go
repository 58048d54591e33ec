package main

import (
	"os"

	"golang.org/x/term"

	"cubesat-sim/internal/config"
	"cubesat-sim/internal/logging"
	"cubesat-sim/internal/sim"
)

// newWriters sets up telemetry and event writers based on flags and env vars.
// It returns the writers, the TUI writer when one was requested (for fault
// injector wiring), and a cleanup function to close any resources.
func newWriters(cfg *config.SimulationConfig, printOnly, useTUI bool, logFile string) (sim.TelemetryWriter, sim.EventWriter, *sim.TUIWriter, func(), error) {
	cleanup := func() {}

	writer, eventWriter, tui, err := baseWriters(cfg, printOnly, useTUI)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if logFile == "" {
		return writer, eventWriter, tui, cleanup, nil
	}

	fw, err := sim.NewFileWriter(logFile, logFile+".events")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	mw := sim.NewMultiWriter(
		[]sim.TelemetryWriter{writer, fw},
		[]sim.EventWriter{eventWriter, fw},
	)
	cleanup = func() { fw.Close() }
	return mw, mw, tui, cleanup, nil
}

// baseWriters chooses the underlying writers based on the flags and env vars.
// GreptimeDB is used when GREPTIMEDB_ENDPOINT is set and print-only is off;
// otherwise telemetry goes to STDOUT, colorized when attached to a terminal.
func baseWriters(cfg *config.SimulationConfig, printOnly, useTUI bool) (sim.TelemetryWriter, sim.EventWriter, *sim.TUIWriter, error) {
	if useTUI {
		tw := sim.NewTUIWriter(cfg)
		return tw, tw, tw, nil
	}

	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			cw := sim.NewColorStdoutWriter(cfg)
			return cw, cw, nil, nil
		}
		jw := sim.NewJSONStdoutWriter()
		return jw, jw, nil, nil
	}

	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	database := os.Getenv("GREPTIMEDB_DB")
	if database == "" {
		database = "public"
	}
	w, err := sim.NewGreptimeDBWriter(endpoint, database, logging.New())
	if err != nil {
		return nil, nil, nil, err
	}
	return w, w, nil, nil
}

// newTelemetryWriter creates a telemetry writer without event handling.
func newTelemetryWriter(printOnly bool) (sim.TelemetryWriter, error) {
	w, _, _, _, err := newWriters(nil, printOnly, false, "")
	return w, err
}
