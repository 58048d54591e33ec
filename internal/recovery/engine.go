// Mode state machine driving autonomous anomaly recovery
package recovery

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cubesat-sim/internal/metrics"
	"cubesat-sim/internal/telemetry"
)

// recoveredHold is how long the satellite stays in RECOVERED before the
// unconditional transition back to NORMAL.
const recoveredHold = 30 * time.Second

// FaultChecker reports the currently injected fault, used as a classification
// fallback when no anomaly description matches a textual rule.
type FaultChecker interface {
	FaultActive() (telemetry.FaultKind, bool)
}

// ModeListener observes mode transitions. Listeners run synchronously in
// registration order; a failing or panicking listener is isolated and never
// aborts the transition.
type ModeListener func(old, new telemetry.SatelliteMode) error

// HistoryEntry records one completed recovery cycle.
type HistoryEntry struct {
	Timestamp time.Time           `json:"ts"`
	Anomaly   telemetry.FaultKind `json:"anomaly"`
	DurationS float64             `json:"duration_s"`
	Success   bool                `json:"success"`
}

// Status is a point-in-time view of the engine state.
type Status struct {
	Mode              telemetry.SatelliteMode `json:"mode"`
	RecoveryActive    bool                    `json:"recovery_active"`
	RecoveryStartTime *time.Time              `json:"recovery_start_time,omitempty"`
	ActiveAnomaly     telemetry.FaultKind     `json:"active_anomaly,omitempty"`
	HistoryCount      int                     `json:"history_count"`
}

// activeRecovery tracks one in-flight recovery from strategy application to
// the completed RECOVERED→NORMAL transition.
type activeRecovery struct {
	strategy  Strategy
	startTime time.Time
	anomalies []string
}

// Engine is the satellite mode state machine. It is the single source of
// truth for the current mode; the telemetry generator reads it through the
// telemetry.ModeSource interface.
type Engine struct {
	mu          sync.Mutex
	mode        telemetry.SatelliteMode
	ranges      telemetry.HealthyRanges
	strategies  map[telemetry.FaultKind]Strategy
	active      *activeRecovery
	history     []HistoryEntry
	listeners   []ModeListener
	normalTimer *time.Timer

	events *telemetry.EventLog
	faults FaultChecker
	logger *slog.Logger

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
}

// New creates a recovery engine in NORMAL mode. A nil clock defaults to
// time.Now.
func New(events *telemetry.EventLog, faults FaultChecker, logger *slog.Logger, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mode:       telemetry.ModeNormal,
		ranges:     telemetry.DefaultHealthyRanges(),
		strategies: Strategies(),
		events:     events,
		faults:     faults,
		logger:     logger,
		now:        clock,
		afterFunc:  time.AfterFunc,
	}
}

// Mode returns the authoritative satellite mode. Implements
// telemetry.ModeSource.
func (e *Engine) Mode() telemetry.SatelliteMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// AddModeChangeListener registers a listener invoked on every transition.
func (e *Engine) AddModeChangeListener(l ModeListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Close cancels any pending RECOVERED→NORMAL timer without firing it.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.normalTimer != nil {
		e.normalTimer.Stop()
		e.normalTimer = nil
	}
}

// ProcessTelemetry runs one recovery cycle against a fresh snapshot: detect
// anomalies, apply a matching strategy, attempt the SAFE→RECOVERED check, and
// rewrite the snapshot to reflect the authoritative mode and any active
// compensations. The returned snapshot is the externally visible one.
func (e *Engine) ProcessTelemetry(snap telemetry.Snapshot) telemetry.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	anomalies := telemetry.CheckAnomalies(snap, e.ranges)

	if len(anomalies) > 0 {
		var activeFault telemetry.FaultKind
		if e.faults != nil {
			if kind, ok := e.faults.FaultActive(); ok {
				activeFault = kind
			}
		}
		if kind, ok := telemetry.ClassifyAnomalies(anomalies, activeFault); ok {
			metrics.RecordAnomaly(string(kind))
			e.applyStrategy(kind, anomalies)
		}
	}

	e.checkModeRecovery(anomalies)

	return e.rewriteSnapshot(snap)
}

// applyStrategy executes the strategy for an anomaly kind unless the
// satellite is already in the strategy's target mode.
func (e *Engine) applyStrategy(kind telemetry.FaultKind, anomalies []string) bool {
	strategy, ok := e.strategies[kind]
	if !ok {
		e.logger.Warn("no recovery strategy defined", "anomaly_kind", string(kind))
		return false
	}
	if e.mode == strategy.TargetMode {
		return false
	}

	if e.normalTimer != nil {
		e.normalTimer.Stop()
		e.normalTimer = nil
	}

	e.logger.Info("applying recovery strategy", "anomaly_kind", string(kind), "description", strategy.Description)
	for _, action := range strategy.Actions {
		e.applyAction(action, strategy)
	}

	e.active = &activeRecovery{
		strategy:  strategy,
		startTime: e.now(),
		anomalies: anomalies,
	}

	actions := make([]string, len(strategy.Actions))
	for i, a := range strategy.Actions {
		actions[i] = string(a)
	}
	e.events.Append(telemetry.EventRecoveryApplied,
		fmt.Sprintf("Recovery strategy applied: %s", strategy.Description),
		map[string]any{
			"anomaly_kind": string(kind),
			"actions":      actions,
			"target_mode":  string(strategy.TargetMode),
			"anomalies":    anomalies,
		})
	return true
}

func (e *Engine) applyAction(action Action, strategy Strategy) {
	switch action {
	case ActionModeChange:
		e.setMode(strategy.TargetMode, fmt.Sprintf("Recovery for %s", strategy.Anomaly))
	case ActionSunPointing:
		e.events.Append(telemetry.EventRecoveryAction,
			"EPS mode set to SUN_POINT for power recovery",
			map[string]any{"action": string(action)})
	case ActionPayloadShutdown:
		e.events.Append(telemetry.EventRecoveryAction,
			"Payload shutdown initiated for thermal/power safety",
			map[string]any{"action": string(action)})
	case ActionSystemThrottling:
		e.events.Append(telemetry.EventRecoveryAction,
			"System throttling initiated for radiation protection",
			map[string]any{"action": string(action)})
	case ActionPowerReduction:
		e.events.Append(telemetry.EventRecoveryAction,
			"Power reduction initiated for emergency power management",
			map[string]any{"action": string(action)})
	}
}

// checkModeRecovery attempts SAFE→RECOVERED: the strategy's hold duration
// must have elapsed and the latest anomaly check must be clean. Anomalies
// clearing early never shorten the hold; anomalies persisting past it are
// simply re-evaluated next tick.
func (e *Engine) checkModeRecovery(anomalies []string) {
	if e.active == nil {
		return
	}
	if e.now().Sub(e.active.startTime) < e.active.strategy.HoldDuration {
		return
	}
	if len(anomalies) > 0 {
		e.logger.Debug("anomalies still present, staying in current mode", "mode", string(e.mode), "anomalies", anomalies)
		return
	}
	if e.mode != telemetry.ModeSafe {
		return
	}

	e.setMode(telemetry.ModeRecovered, "Anomalies cleared, entering recovery phase")
	if e.normalTimer != nil {
		e.normalTimer.Stop()
	}
	e.normalTimer = e.afterFunc(recoveredHold, e.completeRecovery)
}

// completeRecovery fires recoveredHold after entering RECOVERED and returns
// the satellite to NORMAL, closing out the recovery record. A re-entered
// SAFE mode cancels the timer, so firing outside RECOVERED means a missed
// cancellation.
func (e *Engine) completeRecovery() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != telemetry.ModeRecovered {
		e.logger.Warn("recovery hold expired outside RECOVERED mode", "mode", string(e.mode))
		return
	}
	e.setMode(telemetry.ModeNormal, "Recovery phase complete, resuming normal operations")

	if e.active != nil {
		duration := e.now().Sub(e.active.startTime)
		e.events.Append(telemetry.EventRecoveryComplete,
			fmt.Sprintf("Recovery completed successfully after %.1f seconds", duration.Seconds()),
			map[string]any{
				"anomaly_kind": string(e.active.strategy.Anomaly),
				"duration_s":   duration.Seconds(),
				"final_mode":   string(e.mode),
			})
		e.history = append(e.history, HistoryEntry{
			Timestamp: e.now().UTC(),
			Anomaly:   e.active.strategy.Anomaly,
			DurationS: duration.Seconds(),
			Success:   true,
		})
	}
	e.active = nil
	e.normalTimer = nil
}

// setMode transitions to a new mode, logging the change and notifying
// listeners. Caller must hold e.mu.
func (e *Engine) setMode(newMode telemetry.SatelliteMode, reason string) {
	if newMode == e.mode {
		return
	}
	oldMode := e.mode
	e.mode = newMode

	e.events.Append(telemetry.EventModeChange,
		fmt.Sprintf("Mode changed from %s to %s - %s", oldMode, newMode, reason),
		map[string]any{
			"old_mode": string(oldMode),
			"new_mode": string(newMode),
			"reason":   reason,
		})

	for _, l := range e.listeners {
		e.notify(l, oldMode, newMode)
	}
	e.logger.Info("mode changed", "old_mode", string(oldMode), "new_mode", string(newMode), "reason", reason)
}

// notify invokes one listener, containing errors and panics.
func (e *Engine) notify(l ModeListener, oldMode, newMode telemetry.SatelliteMode) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("mode change listener panicked", "panic", r)
		}
	}()
	if err := l(oldMode, newMode); err != nil {
		e.logger.Error("mode change listener failed", "err", err)
	}
}

// rewriteSnapshot stamps the authoritative mode onto the snapshot and, in
// SAFE mode, applies the active strategy's compensations. Caller must hold
// e.mu.
func (e *Engine) rewriteSnapshot(snap telemetry.Snapshot) telemetry.Snapshot {
	snap.Mode = e.mode
	if e.mode != telemetry.ModeSafe {
		return snap
	}

	// Payload is always shut down in SAFE mode.
	snap.PayloadPowerW = 0

	if e.active == nil {
		return snap
	}
	strategy := e.active.strategy
	if strategy.HasAction(ActionSunPointing) {
		snap.EPSMode = telemetry.EPSSunPoint
	}
	if strategy.HasAction(ActionSystemThrottling) {
		snap.SolarArrayPowerW *= 0.5
	}
	if strategy.HasAction(ActionPowerReduction) {
		snap.SolarArrayPowerW *= 0.3
		snap.PayloadPowerW = 0
	}
	return snap
}

// Status returns a snapshot of the engine state. Two calls without an
// intervening tick return identical results.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		Mode:         e.mode,
		HistoryCount: len(e.history),
	}
	if e.active != nil {
		s.RecoveryActive = true
		start := e.active.startTime
		s.RecoveryStartTime = &start
		s.ActiveAnomaly = e.active.strategy.Anomaly
	}
	return s
}

// History returns a copy of all completed recovery cycles.
func (e *Engine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}
