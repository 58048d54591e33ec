package sim

import (
	"strings"
	"testing"
	"time"

	"cubesat-sim/internal/telemetry"
)

func TestReplayLog(t *testing.T) {
	log := `{"satellite_id":"SAT-1","ts":"2025-06-01T12:00:00Z","battery_voltage_v":7.4,"mode":"NORMAL"}
{"satellite_id":"SAT-1","ts":"2025-06-01T12:00:01Z","battery_voltage_v":7.39,"mode":"NORMAL"}
`
	w := &MockWriter{}
	if err := ReplayLog(strings.NewReader(log), w, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(w.Snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(w.Snaps))
	}
	if w.Snaps[0].BatteryVoltageV != 7.4 {
		t.Errorf("unexpected first snapshot: %+v", w.Snaps[0])
	}
	want := time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)
	if !w.Snaps[1].Timestamp.Equal(want) {
		t.Errorf("unexpected second timestamp: %v", w.Snaps[1].Timestamp)
	}
	if w.Snaps[1].Mode != telemetry.ModeNormal {
		t.Errorf("unexpected mode: %s", w.Snaps[1].Mode)
	}
}

func TestReplayLogBadInput(t *testing.T) {
	if err := ReplayLog(strings.NewReader("not json"), &MockWriter{}, 0); err == nil {
		t.Fatal("expected decode error")
	}
}
