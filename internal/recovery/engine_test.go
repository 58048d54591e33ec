package recovery

import (
	"errors"
	"testing"
	"time"

	"cubesat-sim/internal/telemetry"
)

type stubFaults struct {
	kind   telemetry.FaultKind
	active bool
}

func (s *stubFaults) FaultActive() (telemetry.FaultKind, bool) {
	return s.kind, s.active
}

// testEngine wraps an Engine with a controllable clock and captured
// RECOVERED→NORMAL timer callback.
type testEngine struct {
	*Engine
	now      time.Time
	fired    func()
	firedIn  time.Duration
	stopped  *time.Timer
	faults   *stubFaults
	eventLog *telemetry.EventLog
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		faults: &stubFaults{},
	}
	te.eventLog = telemetry.NewEventLog(nil, func() time.Time { return te.now })
	te.Engine = New(te.eventLog, te.faults, nil, func() time.Time { return te.now })
	te.Engine.afterFunc = func(d time.Duration, f func()) *time.Timer {
		te.fired = f
		te.firedIn = d
		te.stopped = time.NewTimer(time.Hour)
		return te.stopped
	}
	return te
}

func (te *testEngine) advance(d time.Duration) {
	te.now = te.now.Add(d)
}

func healthySnapshot(ts time.Time) telemetry.Snapshot {
	return telemetry.Snapshot{
		SatelliteID:      "CUBESAT-1",
		Timestamp:        ts,
		BatteryVoltageV:  7.5,
		BatteryCurrentA:  0.4,
		BatterySOCPct:    75,
		Bus5VV:           5.0,
		Bus3V3V:          3.3,
		SolarArrayPowerW: 8.0,
		PayloadPowerW:    3.0,
		EPSMode:          telemetry.EPSNormal,
		BatteryTempC:     20,
		OBCBoardTempC:    25,
		PayloadTempC:     22,
		PanelTempC:       10,
		RadCPS:           2.0,
		Mode:             telemetry.ModeNormal,
	}
}

func TestProcessTelemetryHealthyStaysNormal(t *testing.T) {
	te := newTestEngine(t)
	out := te.ProcessTelemetry(healthySnapshot(te.now))
	if out.Mode != telemetry.ModeNormal {
		t.Fatalf("expected NORMAL, got %s", out.Mode)
	}
	if te.eventLog.Len() != 0 {
		t.Errorf("expected no events, got %d", te.eventLog.Len())
	}
	st := te.Status()
	if st.RecoveryActive {
		t.Error("recovery should not be active")
	}
}

func TestLowVoltageEntersSafeMode(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2

	out := te.ProcessTelemetry(snap)

	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("expected SAFE, got %s", out.Mode)
	}
	if out.PayloadPowerW != 0 {
		t.Errorf("payload should be shut down in SAFE mode, got %v", out.PayloadPowerW)
	}
	if out.EPSMode != telemetry.EPSSunPoint {
		t.Errorf("LOW_VOLTAGE strategy should relabel EPS to SUN_POINT, got %s", out.EPSMode)
	}

	st := te.Status()
	if !st.RecoveryActive {
		t.Fatal("recovery should be active")
	}
	if st.ActiveAnomaly != telemetry.FaultLowVoltage {
		t.Errorf("expected LOW_VOLTAGE anomaly, got %s", st.ActiveAnomaly)
	}

	events := te.eventLog.Events(0)
	var sawMode, sawApplied bool
	for _, ev := range events {
		switch ev.Type {
		case telemetry.EventModeChange:
			sawMode = true
		case telemetry.EventRecoveryApplied:
			sawApplied = true
		}
	}
	if !sawMode || !sawApplied {
		t.Errorf("expected MODE_CHANGE and RECOVERY_APPLIED events, got %v", events)
	}
}

func TestStrategyNotReappliedWhileInTargetMode(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2

	te.ProcessTelemetry(snap)
	countAfterFirst := te.eventLog.Len()
	start := te.Status().RecoveryStartTime

	te.advance(10 * time.Second)
	te.ProcessTelemetry(snap)

	if te.eventLog.Len() != countAfterFirst {
		t.Errorf("repeated anomaly in SAFE mode should not re-apply strategy")
	}
	if got := te.Status().RecoveryStartTime; !got.Equal(*start) {
		t.Errorf("recovery start time moved from %v to %v", start, got)
	}
}

func TestHoldDurationGatesRecovery(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	te.ProcessTelemetry(snap)

	// Clean telemetry before the 120s hold elapses keeps the satellite SAFE.
	te.advance(119 * time.Second)
	out := te.ProcessTelemetry(healthySnapshot(te.now))
	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("expected SAFE before hold elapsed, got %s", out.Mode)
	}

	te.advance(2 * time.Second)
	out = te.ProcessTelemetry(healthySnapshot(te.now))
	if out.Mode != telemetry.ModeRecovered {
		t.Fatalf("expected RECOVERED after hold elapsed, got %s", out.Mode)
	}
	if te.fired == nil {
		t.Fatal("RECOVERED hold timer was not scheduled")
	}
	if te.firedIn != 30*time.Second {
		t.Errorf("expected 30s RECOVERED hold, got %v", te.firedIn)
	}
}

func TestPersistentAnomalyBlocksRecovery(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	te.ProcessTelemetry(snap)

	te.advance(300 * time.Second)
	out := te.ProcessTelemetry(snap)
	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("expected SAFE while anomaly persists, got %s", out.Mode)
	}
}

func TestCompleteRecoveryReturnsToNormal(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	te.ProcessTelemetry(snap)

	te.advance(121 * time.Second)
	te.ProcessTelemetry(healthySnapshot(te.now))

	te.advance(30 * time.Second)
	te.fired()

	if got := te.Mode(); got != telemetry.ModeNormal {
		t.Fatalf("expected NORMAL after RECOVERED hold, got %s", got)
	}

	history := te.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	entry := history[0]
	if entry.Anomaly != telemetry.FaultLowVoltage {
		t.Errorf("expected LOW_VOLTAGE entry, got %s", entry.Anomaly)
	}
	if !entry.Success {
		t.Error("completed recovery should be marked successful")
	}
	if entry.DurationS != 151 {
		t.Errorf("expected 151s recovery duration, got %v", entry.DurationS)
	}

	st := te.Status()
	if st.RecoveryActive {
		t.Error("recovery should be closed out")
	}
	if st.HistoryCount != 1 {
		t.Errorf("expected history count 1, got %d", st.HistoryCount)
	}
}

func TestAnomalyDuringRecoveredReentersSafe(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	te.ProcessTelemetry(snap)

	te.advance(121 * time.Second)
	te.ProcessTelemetry(healthySnapshot(te.now))
	if got := te.Mode(); got != telemetry.ModeRecovered {
		t.Fatalf("expected RECOVERED, got %s", got)
	}

	hot := healthySnapshot(te.now)
	hot.OBCBoardTempC = 70
	out := te.ProcessTelemetry(hot)
	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("anomaly during RECOVERED should re-enter SAFE, got %s", out.Mode)
	}
	if st := te.Status(); st.ActiveAnomaly != telemetry.FaultHighTemp {
		t.Errorf("expected HIGH_TEMP anomaly, got %s", st.ActiveAnomaly)
	}
}

func TestRadiationThrottlingCompensation(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.RadCPS = 95

	out := te.ProcessTelemetry(snap)

	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("expected SAFE, got %s", out.Mode)
	}
	if out.SolarArrayPowerW != 4.0 {
		t.Errorf("throttling should halve solar power, got %v", out.SolarArrayPowerW)
	}
	if out.EPSMode == telemetry.EPSSunPoint {
		t.Error("radiation strategy has no sun pointing action")
	}
}

func TestPowerFailureCompensation(t *testing.T) {
	te := newTestEngine(t)
	te.faults.kind = telemetry.FaultPowerFailure
	te.faults.active = true

	snap := healthySnapshot(te.now)
	snap.Bus5VV = 2.5 // outside healthy range, classified via the active fault

	out := te.ProcessTelemetry(snap)

	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("expected SAFE, got %s", out.Mode)
	}
	if out.EPSMode != telemetry.EPSSunPoint {
		t.Errorf("expected SUN_POINT EPS mode, got %s", out.EPSMode)
	}
	if got := out.SolarArrayPowerW; got < 2.3 || got > 2.5 {
		t.Errorf("power reduction should scale solar to 30%%, got %v", got)
	}
	if out.PayloadPowerW != 0 {
		t.Errorf("payload should be off, got %v", out.PayloadPowerW)
	}
}

func TestModeChangeListeners(t *testing.T) {
	te := newTestEngine(t)

	var transitions []string
	te.AddModeChangeListener(func(old, new telemetry.SatelliteMode) error {
		transitions = append(transitions, string(old)+">"+string(new))
		return nil
	})
	te.AddModeChangeListener(func(old, new telemetry.SatelliteMode) error {
		return errors.New("listener failure")
	})
	te.AddModeChangeListener(func(old, new telemetry.SatelliteMode) error {
		panic("listener panic")
	})

	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	out := te.ProcessTelemetry(snap)

	if out.Mode != telemetry.ModeSafe {
		t.Fatalf("failing listeners must not abort the transition, got %s", out.Mode)
	}
	if len(transitions) != 1 || transitions[0] != "NORMAL>SAFE" {
		t.Errorf("expected one NORMAL>SAFE notification, got %v", transitions)
	}
}

func TestStatusIsStableBetweenTicks(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	te.ProcessTelemetry(snap)

	a := te.Status()
	b := te.Status()
	if a.Mode != b.Mode || a.RecoveryActive != b.RecoveryActive ||
		!a.RecoveryStartTime.Equal(*b.RecoveryStartTime) || a.ActiveAnomaly != b.ActiveAnomaly {
		t.Errorf("status changed without a tick: %+v vs %+v", a, b)
	}
}

func TestCloseStopsPendingTimer(t *testing.T) {
	te := newTestEngine(t)
	snap := healthySnapshot(te.now)
	snap.BatteryVoltageV = 5.2
	te.ProcessTelemetry(snap)

	te.advance(121 * time.Second)
	te.ProcessTelemetry(healthySnapshot(te.now))

	te.Close()
	if te.stopped.Stop() {
		t.Error("expected timer to already be stopped")
	}
}
