package sim

import (
	"context"
	"encoding/json"
	"log/slog"

	"cubesat-sim/internal/telemetry"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes telemetry and events to GreptimeDB via the
// ingester client. Tables are created on first write by the server.
type GreptimeDBWriter struct {
	client     greptimeClient
	teleTable  string
	eventTable string
	logger     *slog.Logger
}

// NewGreptimeDBWriter creates a new GreptimeDB writer.
func NewGreptimeDBWriter(host, database string, logger *slog.Logger) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GreptimeDBWriter{
		client:     client,
		teleTable:  telemetry.TelemetryTableName,
		eventTable: telemetry.EventTableName,
		logger:     logger,
	}, nil
}

// Write inserts a single telemetry snapshot.
func (w *GreptimeDBWriter) Write(snap telemetry.Snapshot) error {
	return w.WriteBatch([]telemetry.Snapshot{snap})
}

// WriteBatch inserts multiple telemetry snapshots.
func (w *GreptimeDBWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tbl, err := table.New(w.teleTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("satellite_id", types.STRING); err != nil {
		return err
	}
	for _, col := range []string{
		"battery_voltage_v", "battery_current_a", "battery_soc_pct",
		"bus_5v_v", "bus_3v3_v", "solar_array_power_w", "payload_power_w",
		"battery_temp_c", "obc_board_temp_c", "payload_temp_c", "panel_temp_c",
		"rad_cps",
	} {
		if err := tbl.AddFieldColumn(col, types.FLOAT64); err != nil {
			return err
		}
	}
	if err := tbl.AddFieldColumn("eps_mode", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("mode", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("fault_injected", types.BOOLEAN); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, s := range snaps {
		if err := tbl.AddRow(
			s.SatelliteID,
			s.BatteryVoltageV, s.BatteryCurrentA, s.BatterySOCPct,
			s.Bus5VV, s.Bus3V3V, s.SolarArrayPowerW, s.PayloadPowerW,
			s.BatteryTempC, s.OBCBoardTempC, s.PayloadTempC, s.PanelTempC,
			s.RadCPS,
			s.EPSMode,
			string(s.Mode),
			s.FaultInjected,
			s.Timestamp,
		); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.logger.Error("telemetry write to GreptimeDB failed", "err", err)
		return err
	}
	return nil
}

// WriteEvent inserts a single satellite event.
func (w *GreptimeDBWriter) WriteEvent(e telemetry.Event) error {
	return w.WriteEvents([]telemetry.Event{e})
}

// WriteEvents inserts multiple satellite events. The free-form data payload
// is stored as a JSON column.
func (w *GreptimeDBWriter) WriteEvents(events []telemetry.Event) error {
	if len(events) == 0 {
		return nil
	}

	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("event_type", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("event_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("description", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("data", types.JSON); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, e := range events {
		payload, err := json.Marshal(e.Data)
		if err != nil {
			return err
		}
		if err := tbl.AddRow(e.Type, e.ID, e.Description, string(payload), e.Timestamp); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.logger.Error("event write to GreptimeDB failed", "err", err)
		return err
	}
	return nil
}
