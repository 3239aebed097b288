package dem

import (
	"fmt"
	"math"
)

// Scheme is the explicit time-integration scheme for the DEM domain.
// Fixed for the whole run.
type Scheme int

const (
	SymplecticEuler Scheme = iota
	VelocityVerlet
)

func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "euler":
		return SymplecticEuler, nil
	case "verlet":
		return VelocityVerlet, nil
	}
	return 0, fmt.Errorf("dem: unknown scheme %q", s)
}

func (s Scheme) String() string {
	if s == VelocityVerlet {
		return "verlet"
	}
	return "euler"
}

// predict runs the first half of the step. Symplectic Euler does
// nothing here; velocity Verlet applies the half-kick with last step's
// acceleration and drifts positions.
func (st *Stepper) predict(dt float64) {
	if st.Scheme != VelocityVerlet {
		return
	}
	for i := range st.Particles {
		p := &st.Particles[i]
		p.Vel = p.Vel.Add(st.acc[i].Scale(0.5 * dt))
		p.AngVel = p.AngVel.Add(st.angAcc[i].Scale(0.5 * dt))
		p.Pos = p.Pos.Add(p.Vel.Scale(dt))
		p.Orient = p.Orient.Integrate(p.AngVel, dt)
	}
}

// commit finishes the step with the freshly accumulated forces.
func (st *Stepper) commit(dt float64) {
	switch st.Scheme {
	case SymplecticEuler:
		for i := range st.Particles {
			p := &st.Particles[i]
			if p.Mass <= 0 {
				continue
			}
			a := p.Force.Scale(1 / p.Mass)
			aw := p.worldInertiaInv().MulVec(p.Torque)
			p.Vel = p.Vel.Add(a.Scale(dt))
			p.AngVel = p.AngVel.Add(aw.Scale(dt))
			p.Pos = p.Pos.Add(p.Vel.Scale(dt))
			p.Orient = p.Orient.Integrate(p.AngVel, dt)
			st.acc[i] = a
			st.angAcc[i] = aw
		}
	case VelocityVerlet:
		// second half-kick; positions already drifted in predict
		for i := range st.Particles {
			p := &st.Particles[i]
			if p.Mass <= 0 {
				continue
			}
			a := p.Force.Scale(1 / p.Mass)
			aw := p.worldInertiaInv().MulVec(p.Torque)
			p.Vel = p.Vel.Add(a.Scale(0.5 * dt))
			p.AngVel = p.AngVel.Add(aw.Scale(0.5 * dt))
			st.acc[i] = a
			st.angAcc[i] = aw
		}
	}
}

// CriticalDt estimates the stable timestep sqrt(m_min/k_max) for the
// configured stiffness, matching the usual DEM heuristic.
func (st *Stepper) CriticalDt() float64 {
	kmax := st.Law.Kn
	if st.Law.Kt > kmax {
		kmax = st.Law.Kt
	}
	if kmax <= 0 {
		return 0
	}
	mmin := 0.0
	for i := range st.Particles {
		m := st.Particles[i].Mass
		if m > 0 && (mmin == 0 || m < mmin) {
			mmin = m
		}
	}
	if mmin == 0 {
		return 0
	}
	return math.Sqrt(mmin / kmax)
}
