// Package contact computes contact geometry between entities and
// evaluates pluggable contact laws to produce force/torque pairs.
//
// Geometry and force evaluation are separate: [SphereSphere],
// [SpherePlane] and [SphereTriangle] produce a [Geometry], and
// [Law.Evaluate] turns a Geometry plus relative kinematics into forces.
// Tangential and rolling spring state persists across steps in a
// [History] table keyed by the unordered pair of entity ids.
package contact

import (
	"errors"

	"github.com/san-kum/geomech/internal/geom"
)

// ErrDegenerate marks NaN/Inf contact geometry. Resolvers wrap it so
// callers can match the condition with errors.Is.
var ErrDegenerate = errors.New("contact: degenerate geometry")

// Geometry describes a resolved contact. Normal points from entity B
// toward entity A. Overlap > 0 means the bodies interpenetrate.
type Geometry struct {
	Overlap float64
	Normal  geom.Vec3
	Point   geom.Vec3 // contact point in world coordinates
}

// SphereSphere resolves two spheres. Coincident centers produce a
// degenerate but usable result (arbitrary fixed normal) so the caller
// can still apply a separating force.
func SphereSphere(pa, pb geom.Vec3, ra, rb float64) (Geometry, bool) {
	d := pa.Sub(pb)
	dist := d.Norm()
	overlap := ra + rb - dist
	if overlap <= 0 {
		return Geometry{}, false
	}
	n := geom.V(0, 0, 1)
	if dist > 1e-12 {
		n = d.Scale(1 / dist)
	}
	return Geometry{
		Overlap: overlap,
		Normal:  n,
		Point:   pb.Add(n.Scale(rb - 0.5*overlap)),
	}, true
}

// SpherePlane resolves a sphere against an infinite plane given by a
// point and outward unit normal.
func SpherePlane(p geom.Vec3, r float64, planePoint, planeNormal geom.Vec3) (Geometry, bool) {
	dist := p.Sub(planePoint).Dot(planeNormal)
	overlap := r - dist
	if overlap <= 0 {
		return Geometry{}, false
	}
	return Geometry{
		Overlap: overlap,
		Normal:  planeNormal,
		Point:   p.Sub(planeNormal.Scale(dist)),
	}, true
}

// SphereTriangle resolves a sphere against a triangle facet via
// point-to-triangle projection. The returned normal points from the
// closest point toward the sphere center.
func SphereTriangle(p geom.Vec3, r float64, a, b, c geom.Vec3) (Geometry, bool) {
	q := ClosestPointTriangle(p, a, b, c)
	d := p.Sub(q)
	dist := d.Norm()
	overlap := r - dist
	if overlap <= 0 {
		return Geometry{}, false
	}
	n := b.Sub(a).Cross(c.Sub(a)).Normalized()
	if dist > 1e-12 {
		n = d.Scale(1 / dist)
	}
	return Geometry{Overlap: overlap, Normal: n, Point: q}, true
}

// ClosestPointTriangle projects p onto triangle abc, handling vertex,
// edge and face regions.
func ClosestPointTriangle(p, a, b, c geom.Vec3) geom.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Scale(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Scale(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Scale(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}
