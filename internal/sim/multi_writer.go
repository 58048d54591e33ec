package sim

import (
	"cubesat-sim/internal/telemetry"
)

// MultiWriter fan-outs telemetry snapshots and events to multiple writers.
type MultiWriter struct {
	telewriters  []TelemetryWriter
	eventwriters []EventWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(tws []TelemetryWriter, ews []EventWriter) *MultiWriter {
	return &MultiWriter{telewriters: tws, eventwriters: ews}
}

// Write sends a telemetry snapshot to all writers.
func (mw *MultiWriter) Write(snap telemetry.Snapshot) error {
	for _, w := range mw.telewriters {
		if err := w.Write(snap); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple telemetry snapshots to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(snaps); err != nil {
				return err
			}
			continue
		}
		for _, s := range snaps {
			if err := w.Write(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvent sends an event to all event writers.
func (mw *MultiWriter) WriteEvent(e telemetry.Event) error {
	for _, w := range mw.eventwriters {
		if err := w.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple events to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(events []telemetry.Event) error {
	for _, w := range mw.eventwriters {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(events); err != nil {
				return err
			}
			continue
		}
		for _, e := range events {
			if err := w.WriteEvent(e); err != nil {
				return err
			}
		}
	}
	return nil
}
