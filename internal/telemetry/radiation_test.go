package telemetry

import (
	"math/rand"
	"testing"
	"time"
)

func TestRadiationSpikeLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	events := NewEventLog(nil, clock.now)
	rng := rand.New(rand.NewSource(3))
	m := newRadiationModel(1.0, 30*time.Second, rng, clock.now, events)

	v := m.sample()
	if v < 10 || v >= 80 {
		t.Errorf("spike sample out of [10, 80): %f", v)
	}
	if got := events.Events(0); len(got) != 1 || got[0].Type != EventRadiationSpike {
		t.Fatalf("expected RADIATION_SPIKE event, got %v", got)
	}

	// Still inside the spike window.
	clock.advance(29 * time.Second)
	if v := m.sample(); v < 10 || v >= 80 {
		t.Errorf("spike sample out of [10, 80): %f", v)
	}

	// Window elapsed: back to baseline, end event logged. Probability 1
	// immediately starts the next spike on the following sample, so drop it
	// to zero first.
	m.spikeProbability = 0
	clock.advance(2 * time.Second)
	if v := m.sample(); v < 0.1 || v >= 5 {
		t.Errorf("baseline sample out of [0.1, 5): %f", v)
	}
	got := events.Events(1)
	if len(got) != 1 || got[0].Type != EventRadiationSpikeEnd {
		t.Fatalf("expected RADIATION_SPIKE_END event, got %v", got)
	}
}

func TestRadiationNoSpike(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	events := NewEventLog(nil, clock.now)
	m := newRadiationModel(0, 30*time.Second, rand.New(rand.NewSource(3)), clock.now, events)

	for i := 0; i < 100; i++ {
		clock.advance(time.Second)
		if v := m.sample(); v < 0.1 || v >= 5 {
			t.Fatalf("baseline sample out of [0.1, 5): %f", v)
		}
	}
	if events.Len() != 0 {
		t.Errorf("expected no events, got %d", events.Len())
	}
}
