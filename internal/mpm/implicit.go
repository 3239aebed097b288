package mpm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/geomech/internal/geom"
)

// NonConvergence reports a failed implicit solve. It is returned as a
// distinct value (not panicked) so the caller can apply the fatal
// run-abort policy explicitly.
type NonConvergence struct {
	Step     int
	Iters    int
	Residual float64
}

func (e *NonConvergence) Error() string {
	return fmt.Sprintf("mpm: newmark solve did not converge (step %d, %d iterations, residual %g)",
		e.Step, e.Iters, e.Residual)
}

// CommitImplicit finishes one Newmark-beta step after BeginStep and
// ComputeForces (and any coupling forces) have run. The grid momentum
// equation M a = f(v_trial) is solved by Newton iteration on the
// active-node accelerations with an elastic tangent assembled from the
// material moduli; the linear systems use gonum dense solves. A
// non-converged Newton loop aborts the step with *NonConvergence.
func (st *Stepper) CommitImplicit(step int, dt float64) error {
	g := st.Grid
	active := g.Active()
	nd := len(active)
	if nd == 0 {
		return nil
	}
	dof := 3 * nd
	slot := make(map[int]int, nd)
	for s, idx := range active {
		slot[idx] = s
	}

	// tangent: J = M + beta dt^2 K with K from the isotropic elastic
	// moduli and nodal shape gradients
	jac := mat.NewDense(dof, dof, nil)
	for s, idx := range active {
		m := g.Mass[idx]
		for a := 0; a < 3; a++ {
			jac.Set(3*s+a, 3*s+a, m)
		}
	}

	kf := st.Beta * dt * dt
	lame := st.Mat.Bulk - 2.0/3.0*st.Mat.Shear
	type nodeGrad struct {
		slot int
		grad geom.Vec3
	}
	grads := make([]nodeGrad, 0, 8)
	for i := range st.Points {
		p := &st.Points[i]
		grads = grads[:0]
		g.ForEachNode(p.Pos, func(idx int, _ float64, grad geom.Vec3) {
			grads = append(grads, nodeGrad{slot[idx], grad})
		})
		for _, gi := range grads {
			for _, gj := range grads {
				// k_ij = V [ G (gi.gj) I + G gj gi^T + lambda gi gj^T ]
				dot := gi.grad.Dot(gj.grad) * st.Mat.Shear
				blk := gj.grad.Outer(gi.grad).Scale(st.Mat.Shear).
					Add(gi.grad.Outer(gj.grad).Scale(lame))
				for a := 0; a < 3; a++ {
					for bCol := 0; bCol < 3; bCol++ {
						v := blk[a*3+bCol] * p.Volume * kf
						if a == bCol {
							v += dot * p.Volume * kf
						}
						r, c := 3*gi.slot+a, 3*gj.slot+bCol
						jac.Set(r, c, jac.At(r, c)+v)
					}
				}
			}
		}
	}

	// Newton iteration on nodal accelerations
	accel := make([]geom.Vec3, nd)
	res := mat.NewVecDense(dof, nil)
	delta := mat.NewVecDense(dof, nil)

	var lastResid float64
	converged := false
	iters := 0
	for it := 0; it < st.NewtonCap; it++ {
		iters = it + 1

		// trial velocities at t+dt from the Newmark update
		trial := make([]geom.Vec3, len(g.Vel))
		for s, idx := range active {
			trial[idx] = st.velOld[idx].Add(accel[s].Scale(st.Gamma * dt))
		}
		st.applyDirichlet(trial)

		force := st.internalForce(trial, dt)

		norm := 0.0
		for s, idx := range active {
			r := accel[s].Scale(g.Mass[idx]).Sub(force[idx])
			res.SetVec(3*s, r.X)
			res.SetVec(3*s+1, r.Y)
			res.SetVec(3*s+2, r.Z)
			norm += r.Norm2()
		}
		lastResid = norm
		if norm < st.NewtonTol {
			converged = true
			break
		}

		if err := delta.SolveVec(jac, res); err != nil {
			return &NonConvergence{Step: step, Iters: iters, Residual: norm}
		}
		for s := range accel {
			accel[s] = accel[s].Sub(geom.V(delta.AtVec(3*s), delta.AtVec(3*s+1), delta.AtVec(3*s+2)))
		}
	}
	if !converged {
		return &NonConvergence{Step: step, Iters: iters, Residual: lastResid}
	}

	for s, idx := range active {
		g.Vel[idx] = st.velOld[idx].Add(accel[s].Scale(dt))
	}
	st.applyDirichlet(g.Vel)

	if err := st.gather(dt); err != nil {
		return err
	}
	st.computeGradients(g.Vel)
	return st.updateStress(dt, true)
}

// internalForce evaluates nodal forces for a trial velocity field:
// gravity, tractions, coupling forces, and stress divergence with the
// stress advanced elastically by the trial strain increment.
func (st *Stepper) internalForce(trial []geom.Vec3, dt float64) []geom.Vec3 {
	g := st.Grid
	force := make([]geom.Vec3, len(g.Force))

	for i := range st.Points {
		p := &st.Points[i]

		var l geom.Mat3
		g.ForEachNode(p.Pos, func(idx int, _ float64, grad geom.Vec3) {
			l = l.Add(trial[idx].Outer(grad))
		})
		d, _ := geom.StrainRate(l)
		de := d.Scale(dt)

		vol := de.Trace()
		sig := p.Stress.Add(de.Dev().Scale(2 * st.Mat.Shear))
		sig[0] += st.Mat.Bulk * vol
		sig[1] += st.Mat.Bulk * vol
		sig[2] += st.Mat.Bulk * vol

		g.ForEachNode(p.Pos, func(idx int, w float64, grad geom.Vec3) {
			f := sig.MulVec(grad).Scale(-p.Volume).
				Add(st.Gravity.Scale(w * p.Mass)).
				Add(st.ext[i].Scale(w))
			force[idx] = force[idx].Add(f)
		})
	}
	for _, tr := range st.Tractions {
		for _, idx := range g.active {
			if tr.Contains(g.NodePos(idx)) {
				force[idx] = force[idx].Add(tr.Force)
			}
		}
	}
	return force
}
