// Package metrics provides scalar run diagnostics built on sim.Metric.
package metrics

import (
	"math"

	"github.com/san-kum/geomech/internal/sim"
)

// EnergyDrift tracks the largest relative change in total kinetic
// energy over a run. Useful as a stability check for quasi-static
// scenes, where energy should decay monotonically.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s sim.Stats) {
	if e.samples == 0 {
		e.initial = s.KineticEnergy
	}
	e.samples++
	if e.initial != 0 {
		drift := math.Abs(s.KineticEnergy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// MomentumDrift tracks the largest change in total linear momentum
// magnitude relative to the first observed step.
type MomentumDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(s sim.Stats) {
	mag := s.Momentum.Norm()
	if m.samples == 0 {
		m.initial = mag
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, math.Abs(mag-m.initial))
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// PeakContacts records the largest live contact count seen in a run.
type PeakContacts struct {
	name string
	peak int
}

func NewPeakContacts() *PeakContacts {
	return &PeakContacts{name: "peak_contacts"}
}

func (p *PeakContacts) Name() string { return p.name }

func (p *PeakContacts) Observe(s sim.Stats) {
	if s.Contacts > p.peak {
		p.peak = s.Contacts
	}
}

func (p *PeakContacts) Value() float64 { return float64(p.peak) }

func (p *PeakContacts) Reset() { p.peak = 0 }

// Fallbacks reports the cumulative count of constitutive return maps
// that hit their iteration cap and fell back to the elastic predictor.
type Fallbacks struct {
	name string
	last int64
}

func NewFallbacks() *Fallbacks {
	return &Fallbacks{name: "return_map_fallbacks"}
}

func (f *Fallbacks) Name() string { return f.name }

func (f *Fallbacks) Observe(s sim.Stats) { f.last = s.Fallbacks }

func (f *Fallbacks) Value() float64 { return float64(f.last) }

func (f *Fallbacks) Reset() { f.last = 0 }

// MeanKineticEnergy averages kinetic energy over observed steps.
type MeanKineticEnergy struct {
	name    string
	total   float64
	samples int
}

func NewMeanKineticEnergy() *MeanKineticEnergy {
	return &MeanKineticEnergy{name: "mean_kinetic_energy"}
}

func (m *MeanKineticEnergy) Name() string { return m.name }

func (m *MeanKineticEnergy) Observe(s sim.Stats) {
	m.total += s.KineticEnergy
	m.samples++
}

func (m *MeanKineticEnergy) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanKineticEnergy) Reset() {
	m.total = 0
	m.samples = 0
}
