package mpm

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/san-kum/geomech/internal/boundary"
	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/material"
	"github.com/san-kum/geomech/internal/par"
)

// Scheme is the stress-update ordering relative to grid momentum
// transfer. Newmark is the implicit variant in implicit.go.
type Scheme int

const (
	USF Scheme = iota // update stress first, from pre-update grid velocities
	USL               // update stress last, from post-update velocities
	MUSL              // re-map updated velocities to the grid, then update stress
	Newmark
)

func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "usf":
		return USF, nil
	case "usl":
		return USL, nil
	case "musl":
		return MUSL, nil
	case "newmark":
		return Newmark, nil
	}
	return 0, fmt.Errorf("mpm: unknown scheme %q", s)
}

func (s Scheme) String() string {
	switch s {
	case USF:
		return "usf"
	case USL:
		return "usl"
	case MUSL:
		return "musl"
	case Newmark:
		return "newmark"
	}
	return "unknown"
}

// Transfer selects the grid/point velocity projection.
type Transfer int

const (
	FLIP Transfer = iota // PIC/FLIP blend by FlipRatio
	APIC                 // affine velocity moments
	MLS                  // moving-least-squares gradient reconstruction
)

func ParseTransfer(s string) (Transfer, error) {
	switch s {
	case "flip":
		return FLIP, nil
	case "apic":
		return APIC, nil
	case "mls":
		return MLS, nil
	}
	return 0, fmt.Errorf("mpm: unknown transfer %q", s)
}

// FaceCondition applies a Dirichlet condition to grid nodes inside an
// axis-aligned box, typically a one-cell slab along a domain face.
type FaceCondition struct {
	Cond   boundary.Dirichlet
	Lo, Hi geom.Vec3
}

// Stepper owns the MPM domain. The step protocol mirrors the DEM
// stepper: BeginStep, ComputeForces, (coupling via ApplyPointForce),
// Commit.
type Stepper struct {
	Points []Point
	Grid   *Grid

	Law       material.Kind
	Mat       material.Params
	Scheme    Scheme
	Transfer  Transfer
	FlipRatio float64 // 0 = pure PIC, 1 = pure FLIP

	Gravity    geom.Vec3
	Dirichlets []FaceCondition
	Tractions  []boundary.Traction

	Workers     int
	BBar        bool
	SmoothAlpha float64

	// Newmark parameters for the implicit scheme
	Beta, Gamma float64
	NewtonTol   float64
	NewtonCap   int

	// fallbacks counts return-mapping non-convergences; read with
	// Fallbacks, reset by ResetDiagnostics
	fallbacks atomic.Int64

	velOld []geom.Vec3 // grid velocities before the momentum update
	ext    []geom.Vec3 // per-point coupling/external forces
	grads  []geom.Mat3 // per-point velocity gradients
}

// NewStepper wires an explicit MPM stepper with USL + FLIP defaults.
func NewStepper(points []Point, grid *Grid) *Stepper {
	return &Stepper{
		Points:    points,
		Grid:      grid,
		Scheme:    USL,
		Transfer:  FLIP,
		FlipRatio: 0.95,
		Workers:   1,
		Beta:      0.25,
		Gamma:     0.5,
		NewtonTol: 1e-8,
		NewtonCap: 20,
	}
}

// Fallbacks reports accumulated return-mapping fallbacks.
func (st *Stepper) Fallbacks() int64 { return st.fallbacks.Load() }

// ResetDiagnostics zeroes the fallback counter.
func (st *Stepper) ResetDiagnostics() { st.fallbacks.Store(0) }

// BeginStep scatters point mass and momentum to the grid and, for USF,
// updates stress from the pre-update grid velocities.
func (st *Stepper) BeginStep(dt float64) error {
	n := len(st.Points)
	if len(st.ext) != n {
		st.ext = make([]geom.Vec3, n)
		st.grads = make([]geom.Mat3, n)
	}
	for i := range st.ext {
		st.ext[i] = geom.Vec3{}
	}

	g := st.Grid
	g.Reset()

	// a point off the lattice would scatter hat weights outside [0,1]
	// and silently corrupt nodal mass
	for i := range st.Points {
		if !g.Contains(st.Points[i].Pos) {
			return fmt.Errorf("mpm: point %d left the grid at %v", st.Points[i].ID, st.Points[i].Pos)
		}
	}

	for i := range st.Points {
		p := &st.Points[i]
		g.ForEachNode(p.Pos, func(idx int, w float64, _ geom.Vec3) {
			if g.Mass[idx] == 0 {
				g.markActive(idx)
			}
			g.Mass[idx] += w * p.Mass
			v := p.Vel
			if st.Transfer == APIC || st.Transfer == MLS {
				v = v.Add(p.C.MulVec(g.NodePos(idx).Sub(p.Pos)))
			}
			g.Mom[idx] = g.Mom[idx].Add(v.Scale(w * p.Mass))
		})
	}

	sort.Ints(g.active)
	for _, idx := range g.active {
		if g.Mass[idx] > 0 {
			g.Vel[idx] = g.Mom[idx].Scale(1 / g.Mass[idx])
		}
	}
	if len(st.velOld) != len(g.Vel) {
		st.velOld = make([]geom.Vec3, len(g.Vel))
	}
	for _, idx := range g.active {
		st.velOld[idx] = g.Vel[idx]
	}

	if st.Scheme == USF {
		st.computeGradients(g.Vel)
		if err := st.updateStress(dt, false); err != nil {
			return err
		}
	}
	return nil
}

// ComputeForces accumulates internal stress-divergence forces, gravity
// and Neumann tractions on the grid.
func (st *Stepper) ComputeForces(dt float64) {
	g := st.Grid
	for i := range st.Points {
		p := &st.Points[i]
		g.ForEachNode(p.Pos, func(idx int, w float64, grad geom.Vec3) {
			internal := p.Stress.MulVec(grad).Scale(-p.Volume)
			g.Force[idx] = g.Force[idx].Add(internal).Add(st.Gravity.Scale(w * p.Mass))
		})
	}
	for _, tr := range st.Tractions {
		for _, idx := range g.active {
			if tr.Contains(g.NodePos(idx)) {
				g.Force[idx] = g.Force[idx].Add(tr.Force)
			}
		}
	}
}

// ApplyPointForce adds a coupling force to point i; it is scattered to
// the grid at Commit.
func (st *Stepper) ApplyPointForce(i int, f geom.Vec3) {
	st.ext[i] = st.ext[i].Add(f)
}

// Commit updates grid momentum, enforces boundary conditions, gathers
// back to points and runs the stress update for USL/MUSL.
func (st *Stepper) Commit(dt float64) error {
	g := st.Grid

	for i := range st.Points {
		p := &st.Points[i]
		if st.ext[i] == (geom.Vec3{}) {
			continue
		}
		g.ForEachNode(p.Pos, func(idx int, w float64, _ geom.Vec3) {
			g.Force[idx] = g.Force[idx].Add(st.ext[i].Scale(w))
		})
	}

	for _, idx := range g.active {
		if g.Mass[idx] <= 0 {
			continue
		}
		g.Vel[idx] = g.Vel[idx].Add(g.Force[idx].Scale(dt / g.Mass[idx]))
	}
	st.applyDirichlet(g.Vel)

	if err := st.gather(dt); err != nil {
		return err
	}

	switch st.Scheme {
	case USL:
		st.computeGradients(g.Vel)
		return st.updateStress(dt, true)
	case MUSL:
		st.remapVelocities()
		st.computeGradients(g.Vel)
		return st.updateStress(dt, true)
	}
	return nil
}

// gather is the grid-to-point transfer: velocity, position, affine
// matrix and deformation update.
func (st *Stepper) gather(dt float64) error {
	g := st.Grid
	errs := make([]error, len(st.Points))

	par.For(len(st.Points), st.Workers, 128, func(_, start, end int) {
		for i := start; i < end; i++ {
			p := &st.Points[i]

			var vPIC, vInc geom.Vec3
			var b geom.Mat3
			var d geom.Mat3
			g.ForEachNode(p.Pos, func(idx int, w float64, _ geom.Vec3) {
				vPIC = vPIC.Add(g.Vel[idx].Scale(w))
				vInc = vInc.Add(g.Vel[idx].Sub(st.velOld[idx]).Scale(w))
				r := g.NodePos(idx).Sub(p.Pos)
				b = b.Add(g.Vel[idx].Outer(r).Scale(w))
				d = d.Add(r.Outer(r).Scale(w))
			})

			switch st.Transfer {
			case FLIP:
				vFLIP := p.Vel.Add(vInc)
				p.Vel = vFLIP.Scale(st.FlipRatio).Add(vPIC.Scale(1 - st.FlipRatio))
				p.C = geom.Mat3{}
			case APIC, MLS:
				p.Vel = vPIC
				if dinv, ok := d.Inverse(); ok {
					p.C = b.Mul(dinv)
				} else {
					p.C = geom.Mat3{}
				}
			}

			p.Pos = p.Pos.Add(vPIC.Scale(dt))
		}
	})

	// deformation update needs the velocity gradient; MLS reuses the
	// affine matrix as the gradient estimate, others project from
	// nodal velocities
	st.computeGradients(g.Vel)
	par.For(len(st.Points), st.Workers, 128, func(_, start, end int) {
		for i := start; i < end; i++ {
			p := &st.Points[i]
			l := st.grads[i]
			if st.Transfer == MLS {
				l = p.C
			}
			errs[i] = p.updateDeformation(l, dt)
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// computeGradients fills grads with per-point velocity gradients
// projected from the given nodal velocity field.
func (st *Stepper) computeGradients(vel []geom.Vec3) {
	g := st.Grid
	par.For(len(st.Points), st.Workers, 128, func(_, start, end int) {
		for i := start; i < end; i++ {
			p := &st.Points[i]
			var l geom.Mat3
			g.ForEachNode(p.Pos, func(idx int, _ float64, grad geom.Vec3) {
				l = l.Add(vel[idx].Outer(grad))
			})
			st.grads[i] = l
		}
	})
}

// remapVelocities is the MUSL second momentum pass: updated point
// velocities go back to the grid before the final stress update.
func (st *Stepper) remapVelocities() {
	g := st.Grid
	for _, idx := range g.active {
		g.Mom[idx] = geom.Vec3{}
	}
	for i := range st.Points {
		p := &st.Points[i]
		g.ForEachNode(p.Pos, func(idx int, w float64, _ geom.Vec3) {
			g.Mom[idx] = g.Mom[idx].Add(p.Vel.Scale(w * p.Mass))
		})
	}
	for _, idx := range g.active {
		if g.Mass[idx] > 0 {
			g.Vel[idx] = g.Mom[idx].Scale(1 / g.Mass[idx])
		}
	}
	st.applyDirichlet(g.Vel)
}

func (st *Stepper) applyDirichlet(vel []geom.Vec3) {
	g := st.Grid
	for _, fc := range st.Dirichlets {
		tr := boundary.Traction{Lo: fc.Lo, Hi: fc.Hi}
		for _, idx := range g.active {
			if tr.Contains(g.NodePos(idx)) {
				vel[idx] = fc.Cond.Apply(vel[idx])
			}
		}
	}
}

// updateStress runs the constitutive update over all points.
// useNew selects the post-update kinematics (F already advanced).
func (st *Stepper) updateStress(dt float64, useNew bool) error {
	n := len(st.Points)
	de := make([]geom.Sym3, n)
	spins := make([]geom.Mat3, n)
	for i := range st.Points {
		l := st.grads[i]
		if st.Transfer == MLS {
			l = st.Points[i].C
		}
		d, w := geom.StrainRate(l)
		de[i] = d.Scale(dt)
		spins[i] = w
	}

	if st.BBar {
		vols := make([]float64, n)
		cells := make(map[int][]int)
		for i := range st.Points {
			vols[i] = st.Points[i].Volume
			c := st.Grid.CellOf(st.Points[i].Pos)
			cells[c] = append(cells[c], i)
		}
		material.BBarVolumetric(de, vols, func(i int) []int {
			return cells[st.Grid.CellOf(st.Points[i].Pos)]
		})
	}

	par.For(n, st.Workers, 64, func(_, start, end int) {
		for i := start; i < end; i++ {
			p := &st.Points[i]
			j := p.F.Det()
			sig, state, ok := material.Update(st.Law, &st.Mat, p.Stress, p.State, de[i], spins[i], p.F, j, dt)
			if !ok {
				st.fallbacks.Add(1)
				continue
			}
			p.Stress = sig
			p.State = state
		}
	})

	if st.SmoothAlpha > 0 {
		sigma := make([]geom.Sym3, n)
		vols := make([]float64, n)
		cells := make(map[int][]int)
		for i := range st.Points {
			sigma[i] = st.Points[i].Stress
			vols[i] = st.Points[i].Volume
			c := st.Grid.CellOf(st.Points[i].Pos)
			cells[c] = append(cells[c], i)
		}
		material.SmoothStress(sigma, vols, st.SmoothAlpha, func(i int) []int {
			return cells[st.Grid.CellOf(st.Points[i].Pos)]
		})
		for i := range st.Points {
			st.Points[i].Stress = sigma[i]
		}
	}

	for i := range st.Points {
		if !st.Points[i].Stress.IsValid() {
			return fmt.Errorf("mpm: non-finite stress at point %d", st.Points[i].ID)
		}
	}
	return nil
}

// KineticEnergy sums point kinetic energy.
func (st *Stepper) KineticEnergy() float64 {
	e := 0.0
	for i := range st.Points {
		e += 0.5 * st.Points[i].Mass * st.Points[i].Vel.Norm2()
	}
	return e
}

// Momentum sums point linear momentum.
func (st *Stepper) Momentum() geom.Vec3 {
	var m geom.Vec3
	for i := range st.Points {
		m = m.Add(st.Points[i].Vel.Scale(st.Points[i].Mass))
	}
	return m
}
