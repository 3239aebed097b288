// Package boundary applies rigid walls and grid-level boundary
// conditions to both simulation domains.
package boundary

import (
	"fmt"
	"math"

	"github.com/san-kum/geomech/internal/contact"
	"github.com/san-kum/geomech/internal/geom"
)

// Wall is a rigid boundary primitive a sphere can contact.
type Wall interface {
	// Contact tests a sphere against the primitive.
	Contact(pos geom.Vec3, r float64) (contact.Geometry, bool)
	// Velocity is the wall's rigid velocity at the contact point.
	Velocity() geom.Vec3
	// ID is a stable identifier used for contact-history keying; the
	// resolver offsets it into a range disjoint from particle ids.
	ID() uint32
}

// Plane is an infinite plane through Point with outward Normal. A
// servo plane moves with constant velocity Vel.
type Plane struct {
	Ident  uint32
	Point  geom.Vec3
	Normal geom.Vec3
	Vel    geom.Vec3
}

func (p *Plane) Contact(pos geom.Vec3, r float64) (contact.Geometry, bool) {
	return contact.SpherePlane(pos, r, p.Point, p.Normal)
}
func (p *Plane) Velocity() geom.Vec3 { return p.Vel }
func (p *Plane) ID() uint32          { return p.Ident }

// Facet is a convex polygon with a rigid velocity. Contact tests fan-
// triangulate the polygon.
type Facet struct {
	Ident    uint32
	Vertices []geom.Vec3
	Vel      geom.Vec3
}

func (f *Facet) Contact(pos geom.Vec3, r float64) (contact.Geometry, bool) {
	if len(f.Vertices) < 3 {
		return contact.Geometry{}, false
	}
	best := contact.Geometry{Overlap: -math.MaxFloat64}
	hit := false
	for i := 1; i+1 < len(f.Vertices); i++ {
		g, ok := contact.SphereTriangle(pos, r, f.Vertices[0], f.Vertices[i], f.Vertices[i+1])
		if ok && g.Overlap > best.Overlap {
			best = g
			hit = true
		}
	}
	return best, hit
}
func (f *Facet) Velocity() geom.Vec3 { return f.Vel }
func (f *Facet) ID() uint32          { return f.Ident }

// TrianglePatch is a triangle mesh boundary. The deepest overlapping
// triangle wins, which keeps the response single-valued at shared
// edges.
type TrianglePatch struct {
	Ident uint32
	Tris  [][3]geom.Vec3
	Vel   geom.Vec3
}

func (t *TrianglePatch) Contact(pos geom.Vec3, r float64) (contact.Geometry, bool) {
	best := contact.Geometry{Overlap: -math.MaxFloat64}
	hit := false
	for _, tri := range t.Tris {
		g, ok := contact.SphereTriangle(pos, r, tri[0], tri[1], tri[2])
		if ok && g.Overlap > best.Overlap {
			best = g
			hit = true
		}
	}
	return best, hit
}
func (t *TrianglePatch) Velocity() geom.Vec3 { return t.Vel }
func (t *TrianglePatch) ID() uint32          { return t.Ident }

// DirichletKind selects how a constrained velocity component is
// treated.
type DirichletKind int

const (
	Fixed DirichletKind = iota
	Reflect
	Friction
)

func ParseDirichletKind(s string) (DirichletKind, error) {
	switch s {
	case "fixed":
		return Fixed, nil
	case "reflect":
		return Reflect, nil
	case "friction":
		return Friction, nil
	}
	return 0, fmt.Errorf("boundary: unknown condition %q", s)
}

// Dirichlet constrains velocities on one face of the domain.
type Dirichlet struct {
	Kind   DirichletKind
	Normal geom.Vec3 // outward domain normal
	Mu     float64   // Coulomb coefficient for Friction
}

// Apply enforces the condition on a velocity. Only inadmissible motion
// (outward through the face) is altered.
func (d Dirichlet) Apply(v geom.Vec3) geom.Vec3 {
	vn := v.Dot(d.Normal)
	if vn <= 0 {
		return v
	}
	switch d.Kind {
	case Fixed:
		return v.Sub(d.Normal.Scale(vn))
	case Reflect:
		return v.Sub(d.Normal.Scale(2 * vn))
	case Friction:
		vt := v.Sub(d.Normal.Scale(vn))
		vtMag := vt.Norm()
		// the removed normal velocity stands in for the normal
		// reaction when limiting the tangential slip
		slip := vtMag - d.Mu*vn
		if slip <= 0 {
			return geom.Vec3{}
		}
		return vt.Normalized().Scale(slip)
	}
	return v
}

// Traction is a Neumann condition: a distributed force applied to grid
// nodes inside an axis-aligned box.
type Traction struct {
	Lo, Hi geom.Vec3
	Force  geom.Vec3 // force per node
}

// Contains reports whether a node position falls inside the box.
func (t Traction) Contains(p geom.Vec3) bool {
	return p.X >= t.Lo.X && p.X <= t.Hi.X &&
		p.Y >= t.Lo.Y && p.Y <= t.Hi.Y &&
		p.Z >= t.Lo.Z && p.Z <= t.Hi.Z
}
