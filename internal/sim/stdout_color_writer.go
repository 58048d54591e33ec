// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"cubesat-sim/internal/config"
	"cubesat-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints telemetry snapshots using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Satellite ID:\t%s\n", w.cfg.SatelliteID)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.TickInterval())
	fmt.Fprintf(tw, "Orbital Period (min):\t%.1f\n", w.cfg.Orbit.PeriodMinutes)
	fmt.Fprintf(tw, "Sunlit Fraction:\t%.2f\n", w.cfg.Orbit.SunFraction)
	fmt.Fprintf(tw, "Radiation Spike Probability:\t%.4f\n", w.cfg.Radiation.SpikeProbability)
	fmt.Fprintf(tw, "Radiation Spike Duration (s):\t%.0f\n", w.cfg.Radiation.SpikeDurationS)
	fmt.Fprintf(tw, "Base Solar Power (W):\t%.1f\n", w.cfg.Power.BaseSolarPowerW)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func modeColor(mode telemetry.SatelliteMode) string {
	switch mode {
	case telemetry.ModeSafe:
		return colorRed
	case telemetry.ModeRecovered:
		return colorYellow
	}
	return colorGreen
}

// Write outputs a single telemetry snapshot in colorized format.
func (w *ColorStdoutWriter) Write(snap telemetry.Snapshot) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, snap.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%ssat=%s%s ", colorBlue, snap.SatelliteID, colorReset)
	fmt.Fprintf(w.out, "%smode=%s%s ", modeColor(snap.Mode), snap.Mode, colorReset)
	fmt.Fprintf(w.out, "%svbat=%.2f%s ", colorGreen, snap.BatteryVoltageV, colorReset)
	fmt.Fprintf(w.out, "%ssoc=%.1f%s ", colorCyan, snap.BatterySOCPct, colorReset)
	fmt.Fprintf(w.out, "%sibat=%.3f%s ", colorYellow, snap.BatteryCurrentA, colorReset)
	fmt.Fprintf(w.out, "%ssolar=%.2f%s ", colorMagenta, snap.SolarArrayPowerW, colorReset)
	fmt.Fprintf(w.out, "%spayload=%.2f%s ", colorMagenta, snap.PayloadPowerW, colorReset)
	fmt.Fprintf(w.out, "%seps=%s%s ", colorBlue, snap.EPSMode, colorReset)
	fmt.Fprintf(w.out, "%stbat=%.1f%s ", colorYellow, snap.BatteryTempC, colorReset)
	fmt.Fprintf(w.out, "%stobc=%.1f%s ", colorYellow, snap.OBCBoardTempC, colorReset)
	fmt.Fprintf(w.out, "%srad=%.2f%s", colorCyan, snap.RadCPS, colorReset)
	if snap.FaultInjected {
		fmt.Fprintf(w.out, " %sfault%s", colorRed, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple telemetry snapshots.
func (w *ColorStdoutWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, s := range snaps {
		_ = w.Write(s)
	}
	return nil
}

// WriteEvent prints a satellite event to STDOUT.
func (w *ColorStdoutWriter) WriteEvent(e telemetry.Event) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %s%s%s %s\n",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, e.Type, colorReset, e.Description)
	return nil
}

// WriteEvents prints multiple satellite events.
func (w *ColorStdoutWriter) WriteEvents(events []telemetry.Event) error {
	for _, e := range events {
		_ = w.WriteEvent(e)
	}
	return nil
}
