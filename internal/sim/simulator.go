package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/geomech/internal/coupling"
	"github.com/san-kum/geomech/internal/dem"
	"github.com/san-kum/geomech/internal/mpm"
)

// Simulator orchestrates one run. Either domain may be nil for a
// single-domain scene; the coupling layer only runs when both exist.
type Simulator struct {
	DEM      *dem.Stepper
	MPM      *mpm.Stepper
	Coupling *coupling.Layer

	metrics   []Metric
	observers []Observer
}

func New(d *dem.Stepper, m *mpm.Stepper, c *coupling.Layer) *Simulator {
	return &Simulator{DEM: d, MPM: m, Coupling: c}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) validate(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, cfg.Steps)
	}
	if s.DEM == nil && s.MPM == nil {
		return fmt.Errorf("%w: no domain configured", ErrInvalidConfig)
	}
	return nil
}

// Run advances the scene cfg.Steps steps. Cancellation is honored
// between steps only; a step always runs to completion so state stays
// consistent.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Workers > 0 {
		if s.DEM != nil {
			s.DEM.Workers = cfg.Workers
		}
		if s.MPM != nil {
			s.MPM.Workers = cfg.Workers
		}
	}

	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range s.metrics {
		m.Reset()
	}

	start := time.Now()
	t := 0.0
	for step := 0; step < cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("%w at step %d: %v", ErrCanceled, step, ctx.Err())
		default:
		}

		if err := s.Step(step, cfg.Dt); err != nil {
			result.Elapsed = time.Since(start)
			return result, &StepError{Step: step, Time: t, Wrapped: err}
		}
		t += cfg.Dt
		result.StepsTaken++

		stats := s.stats(step, t)
		for _, m := range s.metrics {
			m.Observe(stats)
		}
		for _, o := range s.observers {
			o.OnStep(stats)
		}

		if cfg.OutputEvery > 0 && (step+1)%cfg.OutputEvery == 0 {
			result.Frames = append(result.Frames, s.Snapshot(step+1, t))
		}
	}

	result.Elapsed = time.Since(start)
	if s.MPM != nil {
		result.Fallbacks = s.MPM.Fallbacks()
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// Step advances one timestep. All contact evaluation observes the
// position snapshot taken at BeginStep; forces from every source land
// before either domain commits.
//
// Evaluation order when a particle touches a wall, an MPM point and
// another particle in the same step: boundary, then coupling, then
// DEM-DEM. The order is fixed to keep runs bit-reproducible.
func (s *Simulator) Step(step int, dt float64) error {
	if s.DEM != nil {
		if err := s.DEM.BeginStep(dt); err != nil {
			return err
		}
		if err := s.DEM.ResolveWalls(dt); err != nil {
			return err
		}
	}
	if s.MPM != nil {
		if err := s.MPM.BeginStep(dt); err != nil {
			return err
		}
		s.MPM.ComputeForces(dt)
	}

	if s.Coupling != nil && s.DEM != nil && s.MPM != nil {
		if err := s.Coupling.Resolve(s.DEM, s.MPM, dt); err != nil {
			return err
		}
	}

	if s.DEM != nil {
		if err := s.DEM.ResolvePairs(dt); err != nil {
			return err
		}
		s.DEM.Commit(dt)
	}
	if s.MPM != nil {
		if s.MPM.Scheme == mpm.Newmark {
			if err := s.MPM.CommitImplicit(step, dt); err != nil {
				var nc *mpm.NonConvergence
				if errors.As(err, &nc) {
					return fmt.Errorf("%w: %v", ErrNonConvergence, err)
				}
				return err
			}
		} else if err := s.MPM.Commit(dt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) stats(step int, t float64) Stats {
	st := Stats{Step: step, Time: t}
	if s.DEM != nil {
		st.KineticEnergy += s.DEM.KineticEnergy()
		st.Momentum = st.Momentum.Add(s.DEM.Momentum())
		st.Contacts += len(s.DEM.ForceChains())
	}
	if s.MPM != nil {
		st.KineticEnergy += s.MPM.KineticEnergy()
		st.Momentum = st.Momentum.Add(s.MPM.Momentum())
		st.Fallbacks = s.MPM.Fallbacks()
	}
	if s.Coupling != nil {
		st.Contacts += s.Coupling.ContactCount()
	}
	return st
}

// Snapshot records the current per-entity output state.
func (s *Simulator) Snapshot(step int, t float64) Frame {
	f := Frame{Step: step, Time: t}
	if s.DEM != nil {
		f.Particles = make([]ParticleFrame, len(s.DEM.Particles))
		for i := range s.DEM.Particles {
			p := &s.DEM.Particles[i]
			f.Particles[i] = ParticleFrame{ID: p.ID, Pos: p.Pos, Vel: p.Vel, Orient: p.Orient}
		}
		f.Chains = append([]dem.ForceChain(nil), s.DEM.ForceChains()...)
	}
	if s.MPM != nil {
		f.Points = make([]PointFrame, len(s.MPM.Points))
		for i := range s.MPM.Points {
			p := &s.MPM.Points[i]
			f.Points[i] = PointFrame{ID: p.ID, Pos: p.Pos, Vel: p.Vel, Stress: p.Stress}
		}
	}
	return f
}
