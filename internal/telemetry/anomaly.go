package telemetry

import (
	"fmt"
	"strings"
)

// Range is an inclusive healthy bound for one telemetry parameter.
type Range struct {
	Min float64
	Max float64
}

// HealthyRanges defines the healthy operating envelope checked by the anomaly
// detector.
type HealthyRanges struct {
	BatteryVoltageV Range
	BatterySOCPct   Range
	BatteryTempC    Range
	OBCBoardTempC   Range
	PayloadTempC    Range
	PanelTempC      Range
	Bus5VV          Range
	Bus3V3V         Range
}

// DefaultHealthyRanges returns the static healthy envelope.
func DefaultHealthyRanges() HealthyRanges {
	return HealthyRanges{
		BatteryVoltageV: Range{6.6, 8.4},
		BatterySOCPct:   Range{20, 100},
		BatteryTempC:    Range{-5, 45},
		OBCBoardTempC:   Range{0, 60},
		PayloadTempC:    Range{-10, 55},
		PanelTempC:      Range{-50, 60},
		Bus5VV:          Range{4.9, 5.1},
		Bus3V3V:         Range{3.25, 3.40},
	}
}

// RadiationAnomalyCeiling is the level above which radiation counts as an
// anomaly. Spikes up to this value are healthy-envelope behavior: the
// radiation model's own spike ceiling is the same 80 cps, so only injected
// RADIATION_SPIKE faults (50-100 cps) can cross it.
const RadiationAnomalyCeiling = 80.0

// CheckAnomalies compares a snapshot against the healthy ranges and returns
// one description per out-of-bounds parameter. Pure function, shared by the
// recovery engine and tests.
func CheckAnomalies(s Snapshot, ranges HealthyRanges) []string {
	var anomalies []string

	checks := []struct {
		name  string
		value float64
		r     Range
	}{
		{"battery_voltage_v", s.BatteryVoltageV, ranges.BatteryVoltageV},
		{"battery_soc_pct", s.BatterySOCPct, ranges.BatterySOCPct},
		{"battery_temp_c", s.BatteryTempC, ranges.BatteryTempC},
		{"obc_board_temp_c", s.OBCBoardTempC, ranges.OBCBoardTempC},
		{"payload_temp_c", s.PayloadTempC, ranges.PayloadTempC},
		{"panel_temp_c", s.PanelTempC, ranges.PanelTempC},
		{"bus_5v_v", s.Bus5VV, ranges.Bus5VV},
		{"bus_3v3_v", s.Bus3V3V, ranges.Bus3V3V},
	}
	for _, c := range checks {
		if c.value < c.r.Min || c.value > c.r.Max {
			anomalies = append(anomalies, fmt.Sprintf("%s out of range: %g (healthy: %g-%g)", c.name, c.value, c.r.Min, c.r.Max))
		}
	}

	// Radiation is not a generic range check: values up to the ceiling are
	// tolerated as normal spike behavior.
	if s.RadCPS > RadiationAnomalyCeiling {
		anomalies = append(anomalies, fmt.Sprintf("radiation spike too high: %g cps (max allowed: %g)", s.RadCPS, RadiationAnomalyCeiling))
	}

	return anomalies
}

// ClassifyAnomalies derives the primary anomaly kind from a list of anomaly
// descriptions by keyword precedence. When no textual rule matches, the
// currently injected fault kind (if any) is used as a fallback.
func ClassifyAnomalies(anomalies []string, activeFault FaultKind) (FaultKind, bool) {
	for _, a := range anomalies {
		lower := strings.ToLower(a)
		switch {
		case strings.Contains(a, "battery_voltage_v") && (strings.Contains(a, "out of range") || strings.Contains(lower, "low")):
			return FaultLowVoltage, true
		case strings.Contains(a, "temp_c") && strings.Contains(a, "out of range"):
			return FaultHighTemp, true
		case strings.Contains(lower, "radiation") && strings.Contains(lower, "spike"):
			return FaultRadiationSpike, true
		case strings.Contains(lower, "power") && (strings.Contains(lower, "failure") || strings.Contains(lower, "low")):
			return FaultPowerFailure, true
		}
	}
	if activeFault != "" {
		return activeFault, true
	}
	return "", false
}
