package sim

import (
	"testing"
	"time"

	"cubesat-sim/internal/telemetry"
)

type countingBatchWriter struct {
	batches int
	singles int
}

func (w *countingBatchWriter) Write(telemetry.Snapshot) error { w.singles++; return nil }
func (w *countingBatchWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	w.batches++
	return nil
}

func TestMultiWriterFanOut(t *testing.T) {
	a := &MockWriter{}
	b := &MockWriter{}
	ew := &MockEventWriter{}
	mw := NewMultiWriter([]TelemetryWriter{a, b}, []EventWriter{ew})

	snap := telemetry.Snapshot{SatelliteID: "SAT-1", Timestamp: time.Unix(0, 0).UTC()}
	if err := mw.Write(snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(a.Snaps) != 1 || len(b.Snaps) != 1 {
		t.Fatalf("expected fan-out to both writers, got %d/%d", len(a.Snaps), len(b.Snaps))
	}

	ev := telemetry.Event{Type: telemetry.EventModeChange}
	if err := mw.WriteEvent(ev); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if len(ew.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(ew.Events))
	}
}

func TestMultiWriterPrefersBatch(t *testing.T) {
	bw := &countingBatchWriter{}
	plain := &MockWriter{}
	mw := NewMultiWriter([]TelemetryWriter{bw, plain}, nil)

	snaps := []telemetry.Snapshot{{SatelliteID: "SAT-1"}, {SatelliteID: "SAT-1"}}
	if err := mw.WriteBatch(snaps); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if bw.batches != 1 || bw.singles != 0 {
		t.Fatalf("batch-capable writer not used in batch mode: %+v", bw)
	}
	if len(plain.Snaps) != 2 {
		t.Fatalf("plain writer should receive each snapshot, got %d", len(plain.Snaps))
	}
}
