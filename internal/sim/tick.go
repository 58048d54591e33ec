package sim

import (
	"context"
	"time"

	"cubesat-sim/internal/logging"
)

// Run starts the simulation loop and stops when the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "satellite_id", s.satelliteID, "tick_interval", s.tickInterval)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-ctx.Done():
			log.Info("stopping simulator")
			s.Close()
			return
		}
	}
}
