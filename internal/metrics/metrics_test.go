package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/sim"
)

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	m.Observe(sim.Stats{KineticEnergy: 100})
	m.Observe(sim.Stats{KineticEnergy: 90})
	m.Observe(sim.Stats{KineticEnergy: 120})
	m.Observe(sim.Stats{KineticEnergy: 100})

	// worst excursion from the first sample: |120-100|/100
	if math.Abs(m.Value()-0.2) > 1e-12 {
		t.Errorf("drift = %f, want 0.2", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("reset kept a value")
	}
	m.Observe(sim.Stats{KineticEnergy: 50})
	if m.Value() != 0 {
		t.Error("single sample reported drift")
	}
}

func TestEnergyDriftZeroBaseline(t *testing.T) {
	m := NewEnergyDrift()
	m.Observe(sim.Stats{KineticEnergy: 0})
	m.Observe(sim.Stats{KineticEnergy: 10})
	// a zero baseline has no relative scale
	if m.Value() != 0 {
		t.Errorf("drift = %f with zero baseline", m.Value())
	}
}

func TestMomentumDrift(t *testing.T) {
	m := NewMomentumDrift()
	m.Observe(sim.Stats{Momentum: geom.V(3, 4, 0)}) // |p| = 5
	m.Observe(sim.Stats{Momentum: geom.V(0, 0, 5)})
	m.Observe(sim.Stats{Momentum: geom.V(0, 0, 7)})

	if math.Abs(m.Value()-2) > 1e-12 {
		t.Errorf("drift = %f, want 2", m.Value())
	}
}

func TestPeakContacts(t *testing.T) {
	m := NewPeakContacts()
	for _, n := range []int{1, 5, 3, 4} {
		m.Observe(sim.Stats{Contacts: n})
	}
	if m.Value() != 5 {
		t.Errorf("peak = %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset kept the peak")
	}
}

func TestFallbacksTracksLast(t *testing.T) {
	m := NewFallbacks()
	m.Observe(sim.Stats{Fallbacks: 2})
	m.Observe(sim.Stats{Fallbacks: 7}) // cumulative counter: last wins
	if m.Value() != 7 {
		t.Errorf("fallbacks = %f", m.Value())
	}
}

func TestMeanKineticEnergy(t *testing.T) {
	m := NewMeanKineticEnergy()
	if m.Value() != 0 {
		t.Error("empty mean not zero")
	}
	m.Observe(sim.Stats{KineticEnergy: 10})
	m.Observe(sim.Stats{KineticEnergy: 20})
	if math.Abs(m.Value()-15) > 1e-12 {
		t.Errorf("mean = %f", m.Value())
	}
}

func TestNamesAreDistinct(t *testing.T) {
	all := []sim.Metric{
		NewEnergyDrift(), NewMomentumDrift(), NewPeakContacts(),
		NewFallbacks(), NewMeanKineticEnergy(),
	}
	seen := map[string]bool{}
	for _, m := range all {
		if seen[m.Name()] {
			t.Errorf("duplicate metric name %q", m.Name())
		}
		seen[m.Name()] = true
	}
}
