// Recovery strategy table for satellite anomalies
package recovery

import (
	"time"

	"cubesat-sim/internal/telemetry"
)

// Action is one corrective step a recovery strategy applies.
type Action string

const (
	ActionModeChange       Action = "MODE_CHANGE"
	ActionPayloadShutdown  Action = "PAYLOAD_SHUTDOWN"
	ActionSunPointing      Action = "SUN_POINTING"
	ActionSystemThrottling Action = "SYSTEM_THROTTLING"
	ActionPowerReduction   Action = "POWER_REDUCTION"
)

// Strategy defines how the engine responds to one anomaly kind: the mode to
// enter, the ordered actions to execute, and how long the satellite must hold
// in the target mode before recovery is re-evaluated.
type Strategy struct {
	Anomaly      telemetry.FaultKind
	TargetMode   telemetry.SatelliteMode
	Actions      []Action
	Description  string
	HoldDuration time.Duration
}

// HasAction reports whether the strategy includes the given action.
func (s Strategy) HasAction(a Action) bool {
	for _, action := range s.Actions {
		if action == a {
			return true
		}
	}
	return false
}

// Strategies returns the static strategy table. Every defined strategy
// targets SAFE mode; anomaly kinds without an entry have no strategy and the
// engine leaves the mode untouched.
func Strategies() map[telemetry.FaultKind]Strategy {
	return map[telemetry.FaultKind]Strategy{
		telemetry.FaultLowVoltage: {
			Anomaly:      telemetry.FaultLowVoltage,
			TargetMode:   telemetry.ModeSafe,
			Actions:      []Action{ActionModeChange, ActionSunPointing, ActionPayloadShutdown},
			Description:  "Power drop detected - switching to safe mode with sun pointing",
			HoldDuration: 120 * time.Second,
		},
		telemetry.FaultHighTemp: {
			Anomaly:      telemetry.FaultHighTemp,
			TargetMode:   telemetry.ModeSafe,
			Actions:      []Action{ActionModeChange, ActionPayloadShutdown},
			Description:  "Thermal spike detected - shutting down payload",
			HoldDuration: 90 * time.Second,
		},
		telemetry.FaultRadiationSpike: {
			Anomaly:      telemetry.FaultRadiationSpike,
			TargetMode:   telemetry.ModeSafe,
			Actions:      []Action{ActionModeChange, ActionSystemThrottling},
			Description:  "Radiation spike detected - throttling system",
			HoldDuration: 60 * time.Second,
		},
		telemetry.FaultPowerFailure: {
			Anomaly:      telemetry.FaultPowerFailure,
			TargetMode:   telemetry.ModeSafe,
			Actions:      []Action{ActionModeChange, ActionSunPointing, ActionPayloadShutdown, ActionPowerReduction},
			Description:  "Power failure detected - emergency safe mode",
			HoldDuration: 180 * time.Second,
		},
	}
}
