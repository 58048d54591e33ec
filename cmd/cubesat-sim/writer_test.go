package main

import (
	"path/filepath"
	"testing"
	"time"

	"cubesat-sim/internal/sim"
	"cubesat-sim/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	tw, ew, tui, cleanup, err := newWriters(nil, true, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if tui != nil {
		t.Fatalf("expected no TUI writer")
	}
	if _, ok := tw.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", tw)
	}
	if _, ok := ew.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", ew)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	tw, _, _, cleanup, err := newWriters(nil, false, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := tw.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", tw)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.log")
	tw, ew, _, cleanup, err := newWriters(nil, true, false, path)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := tw.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", tw)
	}
	if _, ok := ew.(*sim.MultiWriter); !ok {
		t.Fatalf("expected event writer *sim.MultiWriter, got %T", ew)
	}
	snap := telemetry.Snapshot{SatelliteID: "SAT-1", Timestamp: time.Now()}
	if err := tw.Write(snap); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev := telemetry.Event{ID: "e1", Type: telemetry.EventModeChange, Timestamp: time.Now()}
	if err := ew.WriteEvent(ev); err != nil {
		t.Fatalf("write event failed: %v", err)
	}
}
