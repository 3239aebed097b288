// Package dem steps the discrete element domain: rigid spherical or
// clumped grains interacting through pairwise contact forces.
package dem

import (
	"github.com/san-kum/geomech/internal/geom"
)

// Particle is one rigid grain. A nil Clump means a single sphere of
// Radius; otherwise the grain is the rigid union of Clump spheres with
// body-frame offsets. Force and Torque accumulate during a step and
// reset at the next BeginStep.
type Particle struct {
	ID     uint32
	Radius float64

	Clump      []geom.Vec3
	ClumpRadii []float64

	Mass       float64
	InertiaInv geom.Mat3 // body-frame inverse inertia

	Pos    geom.Vec3
	Orient geom.Quat
	Vel    geom.Vec3
	AngVel geom.Vec3

	Force  geom.Vec3
	Torque geom.Vec3
}

// NewSphere builds a solid sphere particle with inertia 2/5 m r².
func NewSphere(id uint32, pos geom.Vec3, radius, mass float64) Particle {
	inv := 0.0
	if mass > 0 && radius > 0 {
		inv = 1 / (0.4 * mass * radius * radius)
	}
	return Particle{
		ID:         id,
		Radius:     radius,
		Mass:       mass,
		InertiaInv: geom.Identity3.Scale(inv),
		Pos:        pos,
		Orient:     geom.QuatIdentity,
	}
}

// NewClump builds a rigid clump of spheres. Mass is split evenly and
// the inertia tensor assembled by parallel-axis transport of the
// member spheres about the clump centroid.
func NewClump(id uint32, pos geom.Vec3, offsets []geom.Vec3, radii []float64, mass float64) Particle {
	n := len(offsets)
	mi := mass / float64(n)
	var inertia geom.Mat3
	bound := 0.0
	for k, off := range offsets {
		r := radii[k]
		if d := off.Norm() + r; d > bound {
			bound = d
		}
		// sphere term plus parallel-axis term
		i0 := 0.4 * mi * r * r
		d2 := off.Norm2()
		shift := geom.Identity3.Scale(d2).Sub(off.Outer(off)).Scale(mi)
		inertia = inertia.Add(geom.Identity3.Scale(i0)).Add(shift)
	}
	inv, ok := inertia.Inverse()
	if !ok {
		inv = geom.Identity3
	}
	return Particle{
		ID:         id,
		Radius:     bound,
		Clump:      offsets,
		ClumpRadii: radii,
		Mass:       mass,
		InertiaInv: inv,
		Pos:        pos,
		Orient:     geom.QuatIdentity,
	}
}

// Spheres iterates the particle's world-frame spheres. fn receives the
// sub-sphere index, center and radius.
func (p *Particle) Spheres(fn func(k int, center geom.Vec3, r float64)) {
	if len(p.Clump) == 0 {
		fn(0, p.Pos, p.Radius)
		return
	}
	for k, off := range p.Clump {
		fn(k, p.Pos.Add(p.Orient.Rotate(off)), p.ClumpRadii[k])
	}
}

// worldInertiaInv rotates the body-frame inverse inertia into the
// world frame: R I⁻¹ Rᵀ.
func (p *Particle) worldInertiaInv() geom.Mat3 {
	r := rotationMatrix(p.Orient)
	return r.Mul(p.InertiaInv).Mul(r.Transpose())
}

func rotationMatrix(q geom.Quat) geom.Mat3 {
	x := q.Rotate(geom.V(1, 0, 0))
	y := q.Rotate(geom.V(0, 1, 0))
	z := q.Rotate(geom.V(0, 0, 1))
	return geom.Mat3{
		x.X, y.X, z.X,
		x.Y, y.Y, z.Y,
		x.Z, y.Z, z.Z,
	}
}

// KineticEnergy is the translational plus rotational energy of the
// grain; rotational uses the sphere approximation for clump bounds.
func (p *Particle) KineticEnergy() float64 {
	ke := 0.5 * p.Mass * p.Vel.Norm2()
	inv := p.InertiaInv[0]
	if inv > 0 {
		ke += 0.5 / inv * p.AngVel.Norm2()
	}
	return ke
}
