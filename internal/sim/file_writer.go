package sim

import (
	"encoding/json"
	"os"

	"cubesat-sim/internal/telemetry"
)

// FileWriter writes telemetry and event data to JSONL files.
type FileWriter struct {
	teleFile  *os.File
	eventFile *os.File
	teleEnc   *json.Encoder
	eventEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. eventPath may be empty to skip the
// event log.
func NewFileWriter(telemetryPath, eventPath string) (*FileWriter, error) {
	tf, err := os.Create(telemetryPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{teleFile: tf, teleEnc: json.NewEncoder(tf)}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// Write logs a single telemetry snapshot.
func (f *FileWriter) Write(snap telemetry.Snapshot) error {
	return f.teleEnc.Encode(snap)
}

// WriteBatch logs multiple telemetry snapshots.
func (f *FileWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, s := range snaps {
		if err := f.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a single event, if enabled.
func (f *FileWriter) WriteEvent(e telemetry.Event) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(e)
}

// WriteEvents logs multiple events.
func (f *FileWriter) WriteEvents(events []telemetry.Event) error {
	for _, e := range events {
		if err := f.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.teleFile != nil {
		if e := f.teleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
