// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Orbit defines the orbital geometry driving the day/night cycle.
type Orbit struct {
	PeriodMinutes float64 `yaml:"period_minutes"`
	SunFraction   float64 `yaml:"sun_fraction"`
}

// Radiation defines the stochastic radiation spike behavior.
type Radiation struct {
	SpikeProbability float64 `yaml:"spike_probability"`
	SpikeDurationS   float64 `yaml:"spike_duration_s"`
}

// Power defines the baseline power subsystem parameters.
type Power struct {
	BaseSolarPowerW     float64 `yaml:"base_solar_power_w"`
	BaseBatteryVoltageV float64 `yaml:"base_battery_voltage_v"`
	BaseBatterySOCPct   float64 `yaml:"base_battery_soc_pct"`
}

// SimulationConfig is the root configuration for the satellite simulation.
type SimulationConfig struct {
	SatelliteID   string    `yaml:"satellite_id"`
	TickIntervalS float64   `yaml:"tick_interval_s"`
	ListenAddr    string    `yaml:"listen_addr"`
	Orbit         Orbit     `yaml:"orbit"`
	Radiation     Radiation `yaml:"radiation"`
	Power         Power     `yaml:"power"`
}

// TickInterval returns the configured tick interval, defaulting to 1s.
func (c *SimulationConfig) TickInterval() time.Duration {
	if c.TickIntervalS <= 0 {
		return time.Second
	}
	return time.Duration(c.TickIntervalS * float64(time.Second))
}

// Load loads YAML config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.SatelliteID == "" {
		return nil, fmt.Errorf("satellite_id must not be empty")
	}

	return &cfg, nil
}
