// Package coupling performs the cross-domain contact pass between DEM
// particles and MPM material points.
//
// The two domains stay independently steppable: Resolve reads both
// steppers' kinematic state and pushes force messages back through
// their ApplyExternal/ApplyPointForce methods, before either domain
// commits, so both integrate coupling forces at the same time level.
package coupling

import (
	"fmt"
	"math"

	"github.com/san-kum/geomech/internal/cell"
	"github.com/san-kum/geomech/internal/contact"
	"github.com/san-kum/geomech/internal/dem"
	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/mpm"
)

// Mode selects which domain receives coupling forces.
type Mode int

const (
	TwoWay Mode = iota
	DEMToMPM
	MPMToDEM
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "two-way":
		return TwoWay, nil
	case "dem-to-mpm":
		return DEMToMPM, nil
	case "mpm-to-dem":
		return MPMToDEM, nil
	}
	return 0, fmt.Errorf("coupling: unknown mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case TwoWay:
		return "two-way"
	case DEMToMPM:
		return "dem-to-mpm"
	case MPMToDEM:
		return "mpm-to-dem"
	}
	return "unknown"
}

// Layer owns the cross-domain contact state. The spatial index is
// built over the denser MPM point cloud each step and queried from the
// sparser DEM side; using the point scale for the cells keeps the
// search bounded when the two domains differ in density by orders of
// magnitude.
type Layer struct {
	Mode Mode
	Law  contact.Law

	// Hist is separate from both domains' tables; keys offset point
	// ids into their own range so a point id can never alias a DEM
	// sub-sphere key.
	Hist *contact.History

	index    cell.Index
	pointPos []geom.Vec3
	pointRad []float64
}

func NewLayer(mode Mode, law contact.Law) *Layer {
	return &Layer{
		Mode: mode,
		Law:  law,
		Hist: contact.NewHistory(),
	}
}

// Resolve runs the cross-domain contact pass. Must be called after
// both domains computed their own forces and before either commits.
func (l *Layer) Resolve(d *dem.Stepper, m *mpm.Stepper, dt float64) error {
	np := len(m.Points)
	if np == 0 || len(d.Particles) == 0 {
		l.Hist.Sweep()
		return nil
	}

	if len(l.pointPos) != np {
		l.pointPos = make([]geom.Vec3, np)
		l.pointRad = make([]float64, np)
	}
	maxRad := 0.0
	for i := range m.Points {
		l.pointPos[i] = m.Points[i].Pos
		l.pointRad[i] = m.Points[i].Radius()
		if l.pointRad[i] > maxRad {
			maxRad = l.pointRad[i]
		}
	}
	if l.index == nil {
		l.index = cell.New(np, 4*maxRad)
	}
	if err := l.index.Build(l.pointPos, l.pointRad); err != nil {
		return err
	}

	for i := range d.Particles {
		p := &d.Particles[i]
		var firstErr error
		p.Spheres(func(k int, center geom.Vec3, r float64) {
			l.index.ForEachPoint(center, r, func(j int) {
				pt := &m.Points[j]
				g, ok := contact.SphereSphere(center, pt.Pos, r, l.pointRad[j])
				if !ok {
					return
				}
				if !g.Normal.IsValid() || math.IsNaN(g.Overlap) {
					firstErr = fmt.Errorf("coupling: %w: particle %d point %d", contact.ErrDegenerate, p.ID, pt.ID)
					return
				}
				rec := l.Hist.Lookup(contact.CrossKey(p.ID<<6|uint32(k), pt.ID))
				bodyA := contact.Body{Pos: p.Pos, Vel: p.Vel, AngVel: p.AngVel, Radius: r, Mass: p.Mass}
				bodyB := contact.Body{Pos: pt.Pos, Vel: pt.Vel, Radius: l.pointRad[j], Mass: pt.Mass}
				res := l.Law.Evaluate(g, bodyA, bodyB, dt, rec)

				if l.Mode == TwoWay || l.Mode == MPMToDEM {
					d.ApplyExternal(i, res.Force, res.TorqueA)
				}
				if l.Mode == TwoWay || l.Mode == DEMToMPM {
					m.ApplyPointForce(j, res.Force.Neg())
				}
			})
		})
		if firstErr != nil {
			return firstErr
		}
	}

	l.Hist.Sweep()
	return nil
}

// ContactCount reports live cross-domain contacts after the last
// Resolve.
func (l *Layer) ContactCount() int { return l.Hist.Len() }
