package telemetry

import (
	"math/rand"
	"time"
)

// radiationModel produces baseline counts-per-second readings with occasional
// spikes. Spike starts are memoryless (fixed per-tick probability); once
// started a spike lasts a fixed window, it does not decay probabilistically.
type radiationModel struct {
	spikeProbability float64
	spikeDuration    time.Duration
	spikeStart       time.Time // zero when no spike is active

	rng    *rand.Rand
	now    func() time.Time
	events *EventLog
}

func newRadiationModel(probability float64, duration time.Duration, rng *rand.Rand, clock func() time.Time, events *EventLog) *radiationModel {
	return &radiationModel{
		spikeProbability: probability,
		spikeDuration:    duration,
		rng:              rng,
		now:              clock,
		events:           events,
	}
}

// sample returns the radiation reading for this tick and maintains spike
// state, logging spike start and end events.
func (r *radiationModel) sample() float64 {
	now := r.now()

	if r.spikeStart.IsZero() && r.rng.Float64() < r.spikeProbability {
		r.spikeStart = now
		r.events.Append(EventRadiationSpike, "Radiation spike detected", map[string]any{
			"spike_start": now.UTC(),
		})
	}

	if !r.spikeStart.IsZero() {
		if now.Sub(r.spikeStart) < r.spikeDuration {
			return uniform(r.rng, 10.0, 80.0)
		}
		r.spikeStart = time.Time{}
		r.events.Append(EventRadiationSpikeEnd, "Radiation spike ended", nil)
	}

	return uniform(r.rng, 0.1, 5.0)
}

// uniform samples from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
