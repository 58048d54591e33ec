// Telemetry structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// SatelliteMode is the operational mode of the satellite.
type SatelliteMode string

const (
	ModeNormal    SatelliteMode = "NORMAL"
	ModeSafe      SatelliteMode = "SAFE"
	ModeRecovered SatelliteMode = "RECOVERED"
)

// EPS mode labels derived from battery state of charge.
const (
	EPSNormal     = "NORMAL"
	EPSLowPower   = "LOW_POWER"
	EPSFullCharge = "FULL_CHARGE"
	EPSSunPoint   = "SUN_POINT"
)

// Snapshot represents one telemetry record, immutable once produced.
type Snapshot struct {
	SatelliteID string `json:"satellite_id"` // TAG

	Timestamp time.Time `json:"ts"` // TIME INDEX

	// Power / EPS
	BatteryVoltageV  float64 `json:"battery_voltage_v"`
	BatteryCurrentA  float64 `json:"battery_current_a"`
	BatterySOCPct    float64 `json:"battery_soc_pct"`
	Bus5VV           float64 `json:"bus_5v_v"`
	Bus3V3V          float64 `json:"bus_3v3_v"`
	SolarArrayPowerW float64 `json:"solar_array_power_w"`
	PayloadPowerW    float64 `json:"payload_power_w"`
	EPSMode          string  `json:"eps_mode"`

	// Thermal
	BatteryTempC  float64 `json:"battery_temp_c"`
	OBCBoardTempC float64 `json:"obc_board_temp_c"`
	PayloadTempC  float64 `json:"payload_temp_c"`
	PanelTempC    float64 `json:"panel_temp_c"`

	// Radiation
	RadCPS float64 `json:"rad_cps"`

	// Operational state
	Mode          SatelliteMode `json:"mode"`
	FaultInjected bool          `json:"fault_injected"`
}

// CriticalSnapshot is the reduced downlink record transmitted while the
// satellite is in SAFE mode.
type CriticalSnapshot struct {
	SatelliteID     string        `json:"satellite_id"`
	Timestamp       time.Time     `json:"ts"`
	BatteryVoltageV float64       `json:"battery_voltage_v"`
	BatterySOCPct   float64       `json:"battery_soc_pct"`
	BatteryTempC    float64       `json:"battery_temp_c"`
	OBCBoardTempC   float64       `json:"obc_board_temp_c"`
	PayloadTempC    float64       `json:"payload_temp_c"`
	Mode            SatelliteMode `json:"mode"`
	FaultInjected   bool          `json:"fault_injected"`
}

// Downlink applies the bandwidth prioritization rules: SAFE mode transmits
// only the critical subset, every other mode transmits the full snapshot.
func (s Snapshot) Downlink() any {
	if s.Mode != ModeSafe {
		return s
	}
	return CriticalSnapshot{
		SatelliteID:     s.SatelliteID,
		Timestamp:       s.Timestamp,
		BatteryVoltageV: s.BatteryVoltageV,
		BatterySOCPct:   s.BatterySOCPct,
		BatteryTempC:    s.BatteryTempC,
		OBCBoardTempC:   s.OBCBoardTempC,
		PayloadTempC:    s.PayloadTempC,
		Mode:            s.Mode,
		FaultInjected:   s.FaultInjected,
	}
}

// TelemetryTableName holds the table name used when writing to GreptimeDB.
// It defaults to "satellite_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var TelemetryTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "satellite_telemetry"
}()

func (Snapshot) TableName() string {
	return TelemetryTableName
}

// FaultKind identifies an injectable fault. The same identifiers classify
// detected anomalies, so recovery strategies are keyed by FaultKind too.
type FaultKind string

const (
	FaultLowVoltage     FaultKind = "LOW_VOLTAGE"
	FaultHighTemp       FaultKind = "HIGH_TEMP"
	FaultRadiationSpike FaultKind = "RADIATION_SPIKE"
	FaultPowerFailure   FaultKind = "POWER_FAILURE"
)

// FaultKinds lists every injectable fault kind.
func FaultKinds() []FaultKind {
	return []FaultKind{FaultLowVoltage, FaultHighTemp, FaultRadiationSpike, FaultPowerFailure}
}

// ValidFaultKind reports whether k names an injectable fault.
func ValidFaultKind(k FaultKind) bool {
	switch k {
	case FaultLowVoltage, FaultHighTemp, FaultRadiationSpike, FaultPowerFailure:
		return true
	}
	return false
}

// ModeSource exposes the authoritative satellite mode. The recovery engine
// implements it; the generator only ever reads the mode through it.
type ModeSource interface {
	Mode() SatelliteMode
}
