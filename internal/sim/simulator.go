// Simulator orchestrating satellite telemetry ticks and recovery
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"cubesat-sim/internal/config"
	"cubesat-sim/internal/metrics"
	"cubesat-sim/internal/recovery"
	"cubesat-sim/internal/telemetry"
)

// ErrNotReady is returned by Latest before the first tick completes.
var ErrNotReady = errors.New("no telemetry generated yet")

// ErrInvalidFault is returned when a fault injection request fails validation.
var ErrInvalidFault = errors.New("invalid fault injection request")

// maxFaultDuration bounds injected fault durations.
const maxFaultDuration = 3600 * time.Second

// Simulator orchestrates telemetry generation, anomaly recovery, and writing.
type Simulator struct {
	satelliteID  string
	gen          *telemetry.Generator
	engine       *recovery.Engine
	events       *telemetry.EventLog
	writer       TelemetryWriter
	eventWriter  EventWriter
	tickInterval time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	latest      *telemetry.Snapshot
	eventCursor int
}

// NewSimulator wires the generator, recovery engine, and event log for one
// satellite. The engine owns the mode; the generator reads it back through
// the ModeSource interface. A nil eventWriter disables event output.
func NewSimulator(cfg *config.SimulationConfig, writer TelemetryWriter, eventWriter EventWriter, logger *slog.Logger) *Simulator {
	return newSimulator(cfg, writer, eventWriter, logger, nil, nil)
}

func newSimulator(cfg *config.SimulationConfig, writer TelemetryWriter, eventWriter EventWriter, logger *slog.Logger, clock func() time.Time, rng *rand.Rand) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	events := telemetry.NewEventLog(logger, clock)

	genCfg := telemetry.GeneratorConfig{
		OrbitalPeriod:       time.Duration(cfg.Orbit.PeriodMinutes * float64(time.Minute)),
		SunFraction:         cfg.Orbit.SunFraction,
		SpikeProbability:    cfg.Radiation.SpikeProbability,
		SpikeDuration:       time.Duration(cfg.Radiation.SpikeDurationS * float64(time.Second)),
		BaseSolarPowerW:     cfg.Power.BaseSolarPowerW,
		BaseBatteryVoltageV: cfg.Power.BaseBatteryVoltageV,
		BaseBatterySOCPct:   cfg.Power.BaseBatterySOCPct,
	}

	s := &Simulator{
		satelliteID:  cfg.SatelliteID,
		events:       events,
		writer:       writer,
		eventWriter:  eventWriter,
		tickInterval: cfg.TickInterval(),
		logger:       logger,
	}

	// Engine first: the generator needs it as its mode source, and the
	// engine needs the generator only for fault-kind classification. The
	// gap is bridged with a late-bound checker.
	s.engine = recovery.New(events, faultCheckerFunc(func() (telemetry.FaultKind, bool) {
		if s.gen == nil {
			return "", false
		}
		return s.gen.FaultActive()
	}), logger, clock)
	s.engine.AddModeChangeListener(func(old, new telemetry.SatelliteMode) error {
		metrics.RecordModeChange(string(old), string(new))
		return nil
	})

	s.gen = telemetry.NewGenerator(cfg.SatelliteID, genCfg, events, s.engine, clock, rng)
	return s
}

// faultCheckerFunc adapts a closure to the recovery.FaultChecker interface.
type faultCheckerFunc func() (telemetry.FaultKind, bool)

func (f faultCheckerFunc) FaultActive() (telemetry.FaultKind, bool) { return f() }

// Tick runs one simulation step: generate raw telemetry, run the recovery
// pipeline over it, publish the result, and fan out new events. A panicking
// writer or pipeline stage aborts only this tick.
func (s *Simulator) Tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", "panic", r)
		}
	}()

	raw := s.gen.Tick()
	snap := s.engine.ProcessTelemetry(raw)

	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()

	metrics.RecordTick()

	if err := s.writer.Write(snap); err != nil {
		s.logger.Error("telemetry write failed", "satellite_id", snap.SatelliteID, "err", err)
	}
	s.flushEvents()
}

// flushEvents sends events appended since the last tick to the event writer.
func (s *Simulator) flushEvents() {
	if s.eventWriter == nil {
		return
	}
	s.mu.Lock()
	fresh, cursor := s.events.Since(s.eventCursor)
	s.eventCursor = cursor
	s.mu.Unlock()
	if len(fresh) == 0 {
		return
	}
	if bw, ok := s.eventWriter.(batchEventWriter); ok {
		if err := bw.WriteEvents(fresh); err != nil {
			s.logger.Error("event batch write failed", "err", err)
		}
		return
	}
	for _, ev := range fresh {
		if err := s.eventWriter.WriteEvent(ev); err != nil {
			s.logger.Error("event write failed", "event_type", ev.Type, "err", err)
		}
	}
}

// Latest returns the most recent post-recovery snapshot.
func (s *Simulator) Latest() (telemetry.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return telemetry.Snapshot{}, ErrNotReady
	}
	return *s.latest, nil
}

// Downlink returns the latest snapshot projected through the bandwidth
// prioritization rules.
func (s *Simulator) Downlink() (any, error) {
	snap, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return snap.Downlink(), nil
}

// Mode returns the current satellite mode.
func (s *Simulator) Mode() telemetry.SatelliteMode {
	return s.engine.Mode()
}

// InjectFault validates and injects a fault into the generator. Duration
// must be positive and at most one hour.
func (s *Simulator) InjectFault(kind telemetry.FaultKind, duration time.Duration) error {
	if !telemetry.ValidFaultKind(kind) {
		return fmt.Errorf("%w: unknown fault kind %q", ErrInvalidFault, string(kind))
	}
	if duration <= 0 || duration > maxFaultDuration {
		return fmt.Errorf("%w: duration %s outside (0s, %s]", ErrInvalidFault, duration, maxFaultDuration)
	}
	s.gen.InjectFault(kind, duration)
	metrics.RecordFaultInjection(string(kind))
	return nil
}

// FaultActive reports the currently injected fault, if any.
func (s *Simulator) FaultActive() (telemetry.FaultKind, bool) {
	return s.gen.FaultActive()
}

// Events returns up to limit most recent events; limit <= 0 returns all.
func (s *Simulator) Events(limit int) []telemetry.Event {
	return s.events.Events(limit)
}

// RecoveryStatus returns the recovery engine state.
func (s *Simulator) RecoveryStatus() recovery.Status {
	return s.engine.Status()
}

// RecoveryHistory returns all completed recovery cycles.
func (s *Simulator) RecoveryHistory() []recovery.HistoryEntry {
	return s.engine.History()
}

// Close releases generator and engine timers.
func (s *Simulator) Close() {
	s.gen.Close()
	s.engine.Close()
}
