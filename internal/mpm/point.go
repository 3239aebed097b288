// Package mpm steps the material point domain: Lagrangian points
// carrying mass, deformation and stress, mapped through a transient
// Eulerian background grid every step.
package mpm

import (
	"fmt"
	"math"

	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/material"
)

// Point is one material point. Grid nodes are transient; all state
// that must survive a step lives here.
type Point struct {
	ID     uint32
	RefPos geom.Vec3
	Pos    geom.Vec3
	Vel    geom.Vec3

	F       geom.Mat3 // deformation gradient
	Stress  geom.Sym3
	Mass    float64
	Volume0 float64
	Volume  float64

	// APIC affine velocity matrix; zero under plain PIC/FLIP
	C geom.Mat3

	State material.State
}

// NewPoint builds a point at rest with identity deformation.
func NewPoint(id uint32, pos geom.Vec3, mass, volume float64, st material.State) Point {
	return Point{
		ID:      id,
		RefPos:  pos,
		Pos:     pos,
		F:       geom.Identity3,
		Mass:    mass,
		Volume0: volume,
		Volume:  volume,
		State:   st,
	}
}

// Radius is the bounding-sphere radius used for cross-domain contact,
// taken from the current volume as an equivalent sphere.
func (p *Point) Radius() float64 {
	return math.Cbrt(3 * p.Volume / (4 * math.Pi))
}

// updateDeformation advances F by the velocity gradient and refreshes
// volume through the Jacobian. det F must stay positive.
func (p *Point) updateDeformation(l geom.Mat3, dt float64) error {
	p.F = geom.Identity3.Add(l.Scale(dt)).Mul(p.F)
	j := p.F.Det()
	if j <= 0 || j != j {
		return fmt.Errorf("mpm: deformation gradient inverted at point %d (det=%g)", p.ID, j)
	}
	p.Volume = p.Volume0 * j
	return nil
}
