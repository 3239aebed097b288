package contact

import (
	"fmt"
	"math"

	"github.com/san-kum/geomech/internal/geom"
)

// LawKind selects the contact law. Chosen once at configuration time
// and dispatched by switch inside the pair loop.
type LawKind int

const (
	LawLinear LawKind = iota
	LawHertzMindlin
	LawLinearRolling
)

func ParseLawKind(s string) (LawKind, error) {
	switch s {
	case "linear":
		return LawLinear, nil
	case "hertz":
		return LawHertzMindlin, nil
	case "rolling":
		return LawLinearRolling, nil
	}
	return 0, fmt.Errorf("contact: unknown law %q", s)
}

func (k LawKind) String() string {
	switch k {
	case LawLinear:
		return "linear"
	case LawHertzMindlin:
		return "hertz"
	case LawLinearRolling:
		return "rolling"
	}
	return "unknown"
}

// Law bundles a law kind with its surface parameters.
type Law struct {
	Kind LawKind

	Kn, Kt float64 // linear stiffnesses
	Mu     float64 // Coulomb friction coefficient
	MuR    float64 // rolling resistance coefficient

	// viscous damping ratios applied as 2*zeta*sqrt(m_eff*k)*v
	DampN, DampT float64

	// Hertz-Mindlin effective moduli
	Emod, Gmod float64
}

// Body is the kinematic view of one side of a contact. A zero Mass
// marks an unmovable boundary; effective mass then reduces to the
// other side's mass.
type Body struct {
	Pos    geom.Vec3
	Vel    geom.Vec3
	AngVel geom.Vec3
	Radius float64
	Mass   float64
}

// Result is the force/torque contribution of one contact. Force acts
// on A; B receives the exact negation (Newton's third law). Torques
// are independent per entity.
type Result struct {
	Force   geom.Vec3
	TorqueA geom.Vec3
	TorqueB geom.Vec3
	Fn      float64 // scalar normal force, for force-chain output
}

func effectiveMass(ma, mb float64) float64 {
	if mb <= 0 {
		return ma
	}
	if ma <= 0 {
		return mb
	}
	return ma * mb / (ma + mb)
}

func effectiveRadius(ra, rb float64) float64 {
	if rb <= 0 {
		return ra
	}
	if ra <= 0 {
		return rb
	}
	return ra * rb / (ra + rb)
}

// Evaluate computes the contact response for an established geometry.
// rec carries the pair's spring state and is mutated in place.
func (l *Law) Evaluate(g Geometry, a, b Body, dt float64, rec *Record) Result {
	n := g.Normal
	meff := effectiveMass(a.Mass, b.Mass)
	reff := effectiveRadius(a.Radius, b.Radius)

	// relative velocity at the contact point, A relative to B
	va := a.Vel.Add(a.AngVel.Cross(g.Point.Sub(a.Pos)))
	vb := b.Vel.Add(b.AngVel.Cross(g.Point.Sub(b.Pos)))
	vrel := va.Sub(vb)
	vn := vrel.Dot(n)
	vs := vrel.Sub(n.Scale(vn))

	kn, kt := l.Kn, l.Kt
	if l.Kind == LawHertzMindlin {
		// nonlinear stiffness from Hertzian theory: F_n = 4/3 E sqrt(R) d^1.5
		sq := math.Sqrt(reff * g.Overlap)
		kn = 4.0 / 3.0 * l.Emod * sq
		kt = 8.0 * l.Gmod * sq
	}

	fnElastic := kn * g.Overlap
	fnDamp := -2 * l.DampN * math.Sqrt(meff*kn) * vn
	fn := fnElastic + fnDamp
	if fn < 0 {
		// damping must not glue separating bodies together
		fn = 0
	}
	normalForce := n.Scale(fn)

	// rotate the stored spring into the current contact plane, keeping
	// its magnitude, then accumulate this step's sliding
	old := rec.TangOverlap
	planar := old.Sub(n.Scale(old.Dot(n)))
	spring := vs.Scale(dt).Add(planar.Normalized().Scale(old.Norm()))

	trial := spring.Scale(-kt)
	limit := l.Mu * math.Abs(fn)
	var tangForce geom.Vec3
	if trial.Norm() > limit {
		tangForce = trial.Normalized().Scale(limit)
		if kt > 0 {
			spring = tangForce.Scale(-1 / kt)
		}
	} else {
		damp := vs.Scale(-2 * l.DampT * math.Sqrt(meff*kt))
		tangForce = trial.Add(damp)
	}
	rec.TangOverlap = spring

	res := Result{
		Force: normalForce.Add(tangForce),
		Fn:    fn,
	}
	res.TorqueA = g.Point.Sub(a.Pos).Cross(res.Force)
	if b.Mass > 0 {
		res.TorqueB = g.Point.Sub(b.Pos).Cross(res.Force.Neg())
	}

	if l.Kind == LawLinearRolling {
		l.addRolling(n, a, b, fn, reff, kt, dt, rec, &res)
	}
	return res
}

// addRolling applies a rotational spring over the accumulated relative
// rolling angle, capped by mu_r * Fn * R_eff. The rolling stiffness is
// kt * R_eff^2 so the spring and the cap share units. On cap, the
// angle is clamped to the slipping value, mirroring the tangential
// spring.
func (l *Law) addRolling(n geom.Vec3, a, b Body, fn, reff, kt, dt float64, rec *Record, res *Result) {
	wrel := a.AngVel.Sub(b.AngVel)
	wt := wrel.Sub(n.Scale(wrel.Dot(n)))

	old := rec.RollAngle
	planar := old.Sub(n.Scale(old.Dot(n)))
	theta := wt.Scale(dt).Add(planar.Normalized().Scale(old.Norm()))

	kr := kt * reff * reff
	trial := theta.Scale(-kr)
	limit := l.MuR * fn * reff
	var torque geom.Vec3
	if trial.Norm() > limit {
		torque = trial.Normalized().Scale(limit)
		if kr > 0 {
			theta = torque.Scale(-1 / kr)
		}
	} else {
		torque = trial
	}
	rec.RollAngle = theta

	res.TorqueA = res.TorqueA.Add(torque)
	if b.Mass > 0 {
		res.TorqueB = res.TorqueB.Add(torque.Neg())
	}
}
