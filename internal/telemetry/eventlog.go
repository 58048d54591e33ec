package telemetry

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the event log.
const (
	EventModeChange        = "MODE_CHANGE"
	EventFaultInjected     = "FAULT_INJECTED"
	EventFaultRemoved      = "FAULT_REMOVED"
	EventRadiationSpike    = "RADIATION_SPIKE"
	EventRadiationSpikeEnd = "RADIATION_SPIKE_END"
	EventRecoveryApplied   = "RECOVERY_APPLIED"
	EventRecoveryAction    = "RECOVERY_ACTION"
	EventRecoveryComplete  = "RECOVERY_COMPLETE"
)

// Event is one entry in the mission event timeline.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"ts"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// EventTableName holds the table name used when writing events to GreptimeDB.
var EventTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_EVENT_TABLE"); env != "" {
		return env
	}
	return "satellite_events"
}()

func (Event) TableName() string {
	return EventTableName
}

// EventLog is an append-only, insertion-ordered record of simulation events.
// Growth is unbounded; entries are never mutated after append.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
	logger *slog.Logger
}

// NewEventLog creates an empty event log. A nil clock defaults to time.Now.
func NewEventLog(logger *slog.Logger, clock func() time.Time) *EventLog {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLog{now: clock, logger: logger}
}

// Append records an event and returns it.
func (l *EventLog) Append(eventType, description string, data map[string]any) Event {
	e := Event{
		ID:          uuid.New().String(),
		Timestamp:   l.now().UTC(),
		Type:        eventType,
		Description: description,
		Data:        data,
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	l.logger.Info("event", "type", eventType, "description", description)
	return e
}

// Events returns a copy of the log. A positive limit returns only the most
// recent entries.
func (l *EventLog) Events(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if limit > 0 && limit < len(l.events) {
		start = len(l.events) - limit
	}
	out := make([]Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

// Since returns entries appended at or after index cursor plus the next
// cursor value. The stream driver uses it to fan events out to writers.
func (l *EventLog) Since(cursor int) ([]Event, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(l.events) {
		return nil, len(l.events)
	}
	out := make([]Event, len(l.events)-cursor)
	copy(out, l.events[cursor:])
	return out, len(l.events)
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
