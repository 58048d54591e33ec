package telemetry

import "time"

// Orbit derives a repeating orbital phase from elapsed wall-clock time.
// Phase 0 is eclipse exit / sunrise; the satellite is sunlit while
// phase < SunFraction.
type Orbit struct {
	Period      time.Duration
	SunFraction float64

	start time.Time
	now   func() time.Time
}

// transitionWidth is the phase width of the linear ramps at sunrise and at
// eclipse entry. Keeping solar power continuous across the terminator matters
// more than the exact slope.
const transitionWidth = 0.1

// NewOrbit creates an orbit model starting now. A nil clock defaults to
// time.Now.
func NewOrbit(period time.Duration, sunFraction float64, clock func() time.Time) *Orbit {
	if clock == nil {
		clock = time.Now
	}
	return &Orbit{
		Period:      period,
		SunFraction: sunFraction,
		start:       clock(),
		now:         clock,
	}
}

// Phase returns the current orbital phase in [0, 1).
func (o *Orbit) Phase() float64 {
	elapsed := o.now().Sub(o.start)
	phase := float64(elapsed%o.Period) / float64(o.Period)
	if phase < 0 {
		phase += 1
	}
	return phase
}

// InSunlight reports whether the satellite currently sees the sun.
func (o *Orbit) InSunlight() bool {
	return o.Phase() < o.SunFraction
}

// IrradianceFactor returns the solar irradiance factor in [0, 1]: zero during
// eclipse, one at peak sun, with linear ramps over the first and last 10% of
// the sunlit arc so power transitions stay continuous.
func (o *Orbit) IrradianceFactor() float64 {
	phase := o.Phase()
	if phase >= o.SunFraction {
		return 0
	}
	switch {
	case phase < transitionWidth:
		return phase / transitionWidth
	case phase > o.SunFraction-transitionWidth:
		return (o.SunFraction - phase) / transitionWidth
	default:
		return 1
	}
}
