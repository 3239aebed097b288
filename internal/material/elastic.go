package material

import (
	"math"

	"github.com/san-kum/geomech/internal/geom"
)

func sqrt(x float64) float64 { return math.Sqrt(x) }

// elasticIncrement is the isotropic linear-elastic stress increment
// dSigma = K tr(de) I + 2G dev(de).
func elasticIncrement(p *Params, de geom.Sym3) geom.Sym3 {
	vol := de.Trace()
	d := de.Dev().Scale(2 * p.Shear)
	d[0] += p.Bulk * vol
	d[1] += p.Bulk * vol
	d[2] += p.Bulk * vol
	return d
}

func updateElastic(p *Params, sigma geom.Sym3, st State, de geom.Sym3, spin geom.Mat3, dt float64) (geom.Sym3, State, bool) {
	out := sigma.Add(elasticIncrement(p, de)).Add(geom.JaumannIncrement(sigma, spin, dt))
	return out, st, true
}

// updateNeoHookean computes Cauchy stress directly from the deformation
// gradient: sigma = (G/J)(B - I) + (lambda ln J / J) I with B = F F^T.
func updateNeoHookean(p *Params, st State, f geom.Mat3, j float64) (geom.Sym3, State, bool) {
	lambda := p.Bulk - 2.0/3.0*p.Shear
	b := f.Mul(f.Transpose())
	dev := b.Sub(geom.Identity3).Scale(p.Shear / j)
	volTerm := lambda * math.Log(j) / j
	s := geom.SymFromMat(dev)
	s[0] += volTerm
	s[1] += volTerm
	s[2] += volTerm
	return s, st, true
}

// updateNewtonian models a weakly compressible Newtonian fluid:
// pressure from a Tait-style EOS on the Jacobian, deviatoric stress
// 2*mu*dev(D).
func updateNewtonian(p *Params, st State, de geom.Sym3, j, dt float64) (geom.Sym3, State, bool) {
	press := fluidPressure(p, j)
	if dt <= 0 {
		return geom.Sym3{}, st, true
	}
	rate := de.Dev().Scale(1 / dt)
	s := rate.Scale(2 * p.Viscosity)
	s[0] -= press
	s[1] -= press
	s[2] -= press
	return s, st, true
}

// updateBingham adds a yield stress to the Newtonian deviator: below
// the yield the material moves rigidly (viscous stress only ramps up),
// above it the stress is tau0 + mu*gammadot along the shearing
// direction (Papanastasiou-free bilinear form).
func updateBingham(p *Params, st State, de geom.Sym3, j, dt float64) (geom.Sym3, State, bool) {
	press := fluidPressure(p, j)
	if dt <= 0 {
		return geom.Sym3{}, st, true
	}
	rate := de.Dev().Scale(1 / dt)
	gammadot := math.Sqrt(2 * (rate[0]*rate[0] + rate[1]*rate[1] + rate[2]*rate[2] +
		2*(rate[3]*rate[3]+rate[4]*rate[4]+rate[5]*rate[5])))

	var s geom.Sym3
	if gammadot > 1e-12 {
		effVisc := p.Viscosity + p.YieldTau/gammadot
		s = rate.Scale(2 * effVisc)
	}
	s[0] -= press
	s[1] -= press
	s[2] -= press
	return s, st, true
}

func fluidPressure(p *Params, j float64) float64 {
	if j <= 0 {
		j = 1e-6
	}
	// Tait EOS: p = K/gamma * ((1/J)^gamma - 1)
	return p.FluidBulk / p.FluidGamma * (math.Pow(1/j, p.FluidGamma) - 1)
}
