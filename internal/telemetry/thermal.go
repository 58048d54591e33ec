package telemetry

import "math"

// Thermal component names, matching the snapshot field they feed.
const (
	compBattery = "battery_temp_c"
	compOBC     = "obc_board_temp_c"
	compPayload = "payload_temp_c"
	compPanel   = "panel_temp_c"
)

// thermalModel holds per-component temperature state and advances it each
// tick with a first-order lag toward a moving target. State never jumps, it
// only approaches the target asymptotically.
type thermalModel struct {
	state map[string]float64
	tau   map[string]float64 // time constants in seconds
}

func newThermalModel() *thermalModel {
	return &thermalModel{
		state: map[string]float64{
			compBattery: 20.0,
			compOBC:     25.0,
			compPayload: 22.0,
			compPanel:   -20.0,
		},
		tau: map[string]float64{
			compBattery: 300.0, // slowest, big thermal mass
			compOBC:     180.0,
			compPayload: 240.0,
			compPanel:   60.0, // fastest, directly sun-facing
		},
	}
}

// step advances every component toward its target over dt seconds.
func (t *thermalModel) step(targets map[string]float64, dt float64) {
	for component, target := range targets {
		current, ok := t.state[component]
		if !ok {
			continue
		}
		alpha := 1 - math.Exp(-dt/t.tau[component])
		t.state[component] = current + alpha*(target-current)
	}
}
