package telemetry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// GeneratorConfig holds the physical parameters of the simulated satellite.
// Zero values fall back to LEO defaults.
type GeneratorConfig struct {
	OrbitalPeriod       time.Duration
	SunFraction         float64
	SpikeProbability    float64
	SpikeDuration       time.Duration
	BaseSolarPowerW     float64
	BaseBatteryVoltageV float64
	BaseBatterySOCPct   float64
}

func (c *GeneratorConfig) applyDefaults() {
	if c.OrbitalPeriod <= 0 {
		c.OrbitalPeriod = 90 * time.Minute
	}
	if c.SunFraction <= 0 || c.SunFraction >= 1 {
		c.SunFraction = 0.6
	}
	if c.SpikeProbability <= 0 {
		c.SpikeProbability = 0.001
	}
	if c.SpikeDuration <= 0 {
		c.SpikeDuration = 30 * time.Second
	}
	if c.BaseSolarPowerW <= 0 {
		c.BaseSolarPowerW = 8.0
	}
	if c.BaseBatteryVoltageV <= 0 {
		c.BaseBatteryVoltageV = 7.5
	}
	if c.BaseBatterySOCPct <= 0 {
		c.BaseBatterySOCPct = 75.0
	}
}

// chargingThresholdW is the solar array output above which the battery is
// considered charging.
const chargingThresholdW = 2.0

// tickSeconds is the model integration step. The generator is fixed-step: one
// Tick advances the thermal state by exactly this much regardless of actual
// elapsed wall-clock time.
const tickSeconds = 1.0

// Generator produces one telemetry snapshot per tick from the orbital,
// thermal, radiation, and fault models. All tick-path state is owned by the
// generator; only fault injection crosses goroutines and that is serialized
// inside faultState.
type Generator struct {
	satelliteID string
	cfg         GeneratorConfig

	orbit     *Orbit
	thermal   *thermalModel
	radiation *radiationModel
	fault     *faultState

	events *EventLog
	mode   ModeSource
	rng    *rand.Rand
	now    func() time.Time
}

// NewGenerator creates a telemetry generator. clock and rng may be nil for
// wall-clock time and a time-seeded source.
func NewGenerator(satelliteID string, cfg GeneratorConfig, events *EventLog, mode ModeSource, clock func() time.Time, rng *rand.Rand) *Generator {
	cfg.applyDefaults()
	if clock == nil {
		clock = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Generator{
		satelliteID: satelliteID,
		cfg:         cfg,
		orbit:       NewOrbit(cfg.OrbitalPeriod, cfg.SunFraction, clock),
		thermal:     newThermalModel(),
		radiation:   newRadiationModel(cfg.SpikeProbability, cfg.SpikeDuration, rng, clock, events),
		events:      events,
		mode:        mode,
		rng:         rng,
		now:         clock,
	}
	g.fault = newFaultState(clock, nil, func(kind FaultKind) {
		events.Append(EventFaultRemoved, "Injected fault removed", map[string]any{
			"fault_kind": string(kind),
		})
	})
	return g
}

// Orbit exposes the orbit model for status reporting.
func (g *Generator) Orbit() *Orbit {
	return g.orbit
}

// InjectFault activates a fault that perturbs generated telemetry until
// duration elapses. Kind validation happens at the API boundary; the
// generator assumes a recognized kind.
func (g *Generator) InjectFault(kind FaultKind, duration time.Duration) {
	g.fault.inject(kind, duration)
	g.events.Append(EventFaultInjected, fmt.Sprintf("Fault injected: %s", kind), map[string]any{
		"fault_kind": string(kind),
		"duration_s": duration.Seconds(),
	})
}

// FaultActive returns the currently injected fault kind, if any.
func (g *Generator) FaultActive() (FaultKind, bool) {
	return g.fault.active()
}

// Close cancels any pending fault-removal timer.
func (g *Generator) Close() {
	g.fault.stop()
}

// Tick generates the next telemetry snapshot, advancing the thermal and
// radiation state by one fixed step.
func (g *Generator) Tick() Snapshot {
	solarFactor := g.orbit.IrradianceFactor()
	sunlit := g.orbit.InSunlight()

	solarPower := g.cfg.BaseSolarPowerW * solarFactor
	charging := solarPower > chargingThresholdW

	var voltage, soc, current float64
	if charging {
		voltage = g.cfg.BaseBatteryVoltageV + uniform(g.rng, 0.1, 0.3)
		soc = math.Min(100.0, g.cfg.BaseBatterySOCPct+uniform(g.rng, 0.5, 2.0))
		current = uniform(g.rng, 0.1, 0.5)
	} else {
		voltage = g.cfg.BaseBatteryVoltageV - uniform(g.rng, 0.1, 0.4)
		soc = math.Max(20.0, g.cfg.BaseBatterySOCPct-uniform(g.rng, 0.2, 1.0))
		current = -uniform(g.rng, 0.2, 0.8)
	}

	bus5V := 5.0 + uniform(g.rng, -0.05, 0.05)
	bus3V3 := 3.3 + uniform(g.rng, -0.02, 0.02)

	mode := g.mode.Mode()
	var payloadPower float64
	if mode == ModeSafe {
		payloadPower = uniform(g.rng, 0.5, 1.0)
	} else {
		payloadPower = uniform(g.rng, 2.0, 4.0)
	}

	var epsMode string
	switch {
	case soc < 30:
		epsMode = EPSLowPower
	case soc > 90:
		epsMode = EPSFullCharge
	default:
		epsMode = EPSNormal
	}

	// Target temperatures move with the sun; the lag filter below keeps the
	// actual state from jumping.
	var targets map[string]float64
	if sunlit {
		targets = map[string]float64{
			compPanel:   uniform(g.rng, 40, 60),
			compBattery: uniform(g.rng, 25, 35),
			compOBC:     uniform(g.rng, 30, 45),
			compPayload: uniform(g.rng, 25, 40),
		}
	} else {
		targets = map[string]float64{
			compPanel:   uniform(g.rng, -40, -20),
			compBattery: uniform(g.rng, 5, 15),
			compOBC:     uniform(g.rng, 10, 25),
			compPayload: uniform(g.rng, 5, 20),
		}
	}
	g.thermal.step(targets, tickSeconds)

	radCPS := g.radiation.sample()

	faultInjected := false
	if kind, ok := g.fault.active(); ok {
		faultInjected = true
		switch kind {
		case FaultLowVoltage:
			voltage *= 0.7
			soc *= 0.6
		case FaultHighTemp:
			// Mutates the underlying thermal state so the excursion decays
			// through the lag filter instead of vanishing next tick.
			g.thermal.state[compBattery] += 20
			g.thermal.state[compOBC] += 25
		case FaultRadiationSpike:
			radCPS = uniform(g.rng, 50, 100)
		case FaultPowerFailure:
			voltage *= 0.5
			solarPower *= 0.3
			payloadPower *= 0.2
		}
	}

	return Snapshot{
		SatelliteID:      g.satelliteID,
		Timestamp:        g.now().UTC(),
		BatteryVoltageV:  round(voltage, 2),
		BatteryCurrentA:  round(current, 3),
		BatterySOCPct:    round(soc, 1),
		Bus5VV:           round(bus5V, 2),
		Bus3V3V:          round(bus3V3, 2),
		SolarArrayPowerW: round(solarPower, 2),
		PayloadPowerW:    round(payloadPower, 2),
		EPSMode:          epsMode,
		BatteryTempC:     round(g.thermal.state[compBattery], 1),
		OBCBoardTempC:    round(g.thermal.state[compOBC], 1),
		PayloadTempC:     round(g.thermal.state[compPayload], 1),
		PanelTempC:       round(g.thermal.state[compPanel], 1),
		RadCPS:           round(radCPS, 2),
		Mode:             mode,
		FaultInjected:    faultInjected,
	}
}

// round truncates v to the given number of decimal places, matching downlink
// quantization.
func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
