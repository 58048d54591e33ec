package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cubesat-sim/internal/telemetry"
)

// JSONStdoutWriter prints telemetry and events as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a telemetry snapshot in JSON format.
func (w *JSONStdoutWriter) Write(snap telemetry.Snapshot) error {
	data, _ := json.Marshal(snap)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteBatch outputs multiple telemetry snapshots in JSON format.
func (w *JSONStdoutWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, s := range snaps {
		_ = w.Write(s)
	}
	return nil
}

// WriteEvent outputs a satellite event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(e telemetry.Event) error {
	data, _ := json.Marshal(e)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteEvents outputs multiple satellite events in JSON format.
func (w *JSONStdoutWriter) WriteEvents(events []telemetry.Event) error {
	for _, e := range events {
		_ = w.WriteEvent(e)
	}
	return nil
}
