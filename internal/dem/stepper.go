package dem

import (
	"fmt"
	"math"

	"github.com/san-kum/geomech/internal/boundary"
	"github.com/san-kum/geomech/internal/cell"
	"github.com/san-kum/geomech/internal/contact"
	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/par"
)

// clumpBits is how many low key bits address a sub-sphere within a
// clump; particle ids must fit the remaining range.
const clumpBits = 6

// ForceChain is one resolved contact for force-chain output.
type ForceChain struct {
	A, B uint32
	Fn   float64
}

// Stepper owns the DEM domain and advances it one explicit step at a
// time. The per-step protocol is BeginStep, ResolveWalls,
// (external/coupling forces), ResolvePairs, Commit, so a coordinating
// loop can interleave cross-domain forces before the commit.
type Stepper struct {
	Particles []Particle
	Walls     []boundary.Wall
	Gravity   geom.Vec3
	Law       contact.Law
	Scheme    Scheme
	Workers   int

	// Hist keeps particle-particle spring state, WallHist the
	// particle-wall state. Separate tables so wall ids cannot collide
	// with particle ids.
	Hist     *contact.History
	WallHist *contact.History

	Index cell.Index

	acc    []geom.Vec3
	angAcc []geom.Vec3

	pos    []geom.Vec3
	radii  []float64
	chains []ForceChain

	// pair scratch reused across steps
	pairs []pairJob
}

type pairJob struct {
	i, j   int
	ra, rb float64 // contacting sub-sphere radii
	geo    contact.Geometry
	rec    *contact.Record
	res    contact.Result
}

// NewStepper wires a stepper with empty history tables and an index
// sized for the particle count.
func NewStepper(particles []Particle, cellSize float64) *Stepper {
	return &Stepper{
		Particles: particles,
		Hist:      contact.NewHistory(),
		WallHist:  contact.NewHistory(),
		Index:     cell.New(len(particles), cellSize),
		Workers:   1,
	}
}

// BeginStep resets accumulators, applies gravity, runs the predictor
// and rebuilds the spatial index against the predicted positions. All
// contact evaluation for the step observes this position snapshot.
func (st *Stepper) BeginStep(dt float64) error {
	n := len(st.Particles)
	if len(st.acc) != n {
		st.acc = make([]geom.Vec3, n)
		st.angAcc = make([]geom.Vec3, n)
		st.pos = make([]geom.Vec3, n)
		st.radii = make([]float64, n)
	}
	st.predict(dt)
	for i := range st.Particles {
		p := &st.Particles[i]
		p.Force = st.Gravity.Scale(p.Mass)
		p.Torque = geom.Vec3{}
		st.pos[i] = p.Pos
		st.radii[i] = p.Radius
	}
	st.chains = st.chains[:0]
	return st.Index.Build(st.pos, st.radii)
}

// ResolveWalls evaluates particle-boundary contact. Wall history keys
// pair the sub-sphere id with the wall id offset into its own range,
// so a wall id can never alias a sub-sphere id.
func (st *Stepper) ResolveWalls(dt float64) error {
	for i := range st.Particles {
		p := &st.Particles[i]
		for _, w := range st.Walls {
			var firstErr error
			p.Spheres(func(k int, c geom.Vec3, r float64) {
				g, ok := w.Contact(c, r)
				if !ok {
					return
				}
				if !g.Normal.IsValid() || math.IsNaN(g.Overlap) {
					firstErr = fmt.Errorf("dem: %w: particle %d wall %d", contact.ErrDegenerate, p.ID, w.ID())
					return
				}
				rec := st.WallHist.Lookup(contact.CrossKey(subID(p.ID, k), w.ID()))
				a := contact.Body{Pos: p.Pos, Vel: p.Vel, AngVel: p.AngVel, Radius: r, Mass: p.Mass}
				b := contact.Body{Pos: g.Point, Vel: w.Velocity()}
				res := st.Law.Evaluate(g, a, b, dt, rec)
				p.Force = p.Force.Add(res.Force)
				p.Torque = p.Torque.Add(res.TorqueA)
			})
			if firstErr != nil {
				return firstErr
			}
		}
	}
	return nil
}

// ResolvePairs evaluates particle-particle contact. Candidate pairs
// are collected serially in ascending (i, j) order, then evaluated in
// parallel into worker-local buffers that reduce in worker order, so
// force accumulation is deterministic without per-particle locking.
func (st *Stepper) ResolvePairs(dt float64) error {
	st.pairs = st.pairs[:0]
	for i := range st.Particles {
		pi := &st.Particles[i]
		st.Index.ForEachNeighbor(i, 0, func(j int) {
			if j <= i {
				return
			}
			pj := &st.Particles[j]
			pi.Spheres(func(ai int, ca geom.Vec3, ra float64) {
				pj.Spheres(func(bj int, cb geom.Vec3, rb float64) {
					g, ok := contact.SphereSphere(ca, cb, ra, rb)
					if !ok {
						return
					}
					key := contact.Key(subID(pi.ID, ai), subID(pj.ID, bj))
					st.pairs = append(st.pairs, pairJob{
						i: i, j: j, ra: ra, rb: rb,
						geo: g,
						rec: st.Hist.Lookup(key),
					})
				})
			})
		})
	}

	for k := range st.pairs {
		if !st.pairs[k].geo.Normal.IsValid() || math.IsNaN(st.pairs[k].geo.Overlap) {
			a := &st.Particles[st.pairs[k].i]
			b := &st.Particles[st.pairs[k].j]
			return fmt.Errorf("dem: %w: pair (%d,%d)", contact.ErrDegenerate, a.ID, b.ID)
		}
	}

	par.For(len(st.pairs), st.Workers, 64, func(_, start, end int) {
		for k := start; k < end; k++ {
			job := &st.pairs[k]
			a := &st.Particles[job.i]
			b := &st.Particles[job.j]
			// sub-sphere radii, not the clump bounds: the effective
			// radius belongs to the spheres actually touching
			bodyA := contact.Body{Pos: a.Pos, Vel: a.Vel, AngVel: a.AngVel, Radius: job.ra, Mass: a.Mass}
			bodyB := contact.Body{Pos: b.Pos, Vel: b.Vel, AngVel: b.AngVel, Radius: job.rb, Mass: b.Mass}
			job.res = st.Law.Evaluate(job.geo, bodyA, bodyB, dt, job.rec)
		}
	})

	// single-threaded reduction in pair order
	for k := range st.pairs {
		job := &st.pairs[k]
		a := &st.Particles[job.i]
		b := &st.Particles[job.j]
		a.Force = a.Force.Add(job.res.Force)
		a.Torque = a.Torque.Add(job.res.TorqueA)
		b.Force = b.Force.Sub(job.res.Force)
		b.Torque = b.Torque.Add(job.res.TorqueB)
		st.chains = append(st.chains, ForceChain{A: a.ID, B: b.ID, Fn: job.res.Fn})
	}
	return nil
}

// ApplyExternal adds a coupling or user force/torque to particle i.
// Must land between the resolve passes and Commit.
func (st *Stepper) ApplyExternal(i int, f, t geom.Vec3) {
	st.Particles[i].Force = st.Particles[i].Force.Add(f)
	st.Particles[i].Torque = st.Particles[i].Torque.Add(t)
}

// Commit integrates velocities and positions and expires contact
// history for pairs that separated this step.
func (st *Stepper) Commit(dt float64) {
	st.commit(dt)
	st.Hist.Sweep()
	st.WallHist.Sweep()
}

// ForceChains returns this step's resolved contacts. Valid until the
// next BeginStep.
func (st *Stepper) ForceChains() []ForceChain { return st.chains }

// AccelState copies out the per-particle accelerations stored by the
// last commit. The Verlet predictor half-kicks from them, so restart
// snapshots must carry them alongside the kinematic state.
func (st *Stepper) AccelState() (lin, ang []geom.Vec3) {
	if len(st.acc) != len(st.Particles) {
		return nil, nil
	}
	lin = append([]geom.Vec3(nil), st.acc...)
	ang = append([]geom.Vec3(nil), st.angAcc...)
	return lin, ang
}

// RestoreAccel seeds the integrator accelerations from a restart
// snapshot. Slices of the wrong length are ignored.
func (st *Stepper) RestoreAccel(lin, ang []geom.Vec3) {
	n := len(st.Particles)
	if len(lin) != n || len(ang) != n {
		return
	}
	st.acc = append(st.acc[:0], lin...)
	st.angAcc = append(st.angAcc[:0], ang...)
	if len(st.pos) != n {
		st.pos = make([]geom.Vec3, n)
		st.radii = make([]float64, n)
	}
}

// Momentum sums linear momentum over all particles.
func (st *Stepper) Momentum() geom.Vec3 {
	var m geom.Vec3
	for i := range st.Particles {
		m = m.Add(st.Particles[i].Vel.Scale(st.Particles[i].Mass))
	}
	return m
}

// KineticEnergy sums kinetic energy over all particles.
func (st *Stepper) KineticEnergy() float64 {
	e := 0.0
	for i := range st.Particles {
		e += st.Particles[i].KineticEnergy()
	}
	return e
}

func subID(id uint32, k int) uint32 {
	return id<<clumpBits | uint32(k)
}
