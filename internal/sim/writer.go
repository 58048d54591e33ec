package sim

import (
	"cubesat-sim/internal/telemetry"
)

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.Snapshot) error
}

// EventWriter handles satellite event records.
type EventWriter interface {
	WriteEvent(telemetry.Event) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Snapshot) error
}

// Optional: Event writers may support batch mode
type batchEventWriter interface {
	WriteEvents([]telemetry.Event) error
}
