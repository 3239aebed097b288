// Package material maps strain increments to stress updates for
// continuum material points.
//
// Each law is a pure function of (strain increment, prior state) into
// (stress, new state). Plastic laws enforce the yield surface with a
// return-mapping step; when the mapping fails to converge within
// [ReturnMapCap] iterations the law falls back to the last valid stress
// and reports the fallback through the returned flag so the caller can
// keep a diagnostic counter instead of aborting the step.
//
// Laws:
//
//   - [KindLinearElastic], [KindNeoHookean]: elastic
//   - [KindVonMises], [KindIsotropicHardening], [KindMohrCoulomb],
//     [KindDruckerPrager], [KindModifiedCamClay]: plastic, return mapped
//   - [KindNewtonianFluid], [KindBinghamFluid]: viscous
package material

import (
	"fmt"

	"github.com/san-kum/geomech/internal/geom"
)

// Kind selects the constitutive law. Closed enum, resolved by switch in
// the per-point loop.
type Kind int

const (
	KindLinearElastic Kind = iota
	KindNeoHookean
	KindVonMises
	KindIsotropicHardening
	KindMohrCoulomb
	KindDruckerPrager
	KindModifiedCamClay
	KindNewtonianFluid
	KindBinghamFluid
)

var kindNames = map[string]Kind{
	"elastic":         KindLinearElastic,
	"neo-hookean":     KindNeoHookean,
	"von-mises":       KindVonMises,
	"iso-hardening":   KindIsotropicHardening,
	"mohr-coulomb":    KindMohrCoulomb,
	"drucker-prager":  KindDruckerPrager,
	"cam-clay":        KindModifiedCamClay,
	"newtonian-fluid": KindNewtonianFluid,
	"bingham-fluid":   KindBinghamFluid,
}

func ParseKind(s string) (Kind, error) {
	k, ok := kindNames[s]
	if !ok {
		return 0, fmt.Errorf("material: unknown law %q", s)
	}
	return k, nil
}

func (k Kind) String() string {
	for s, kk := range kindNames {
		if kk == k {
			return s
		}
	}
	return "unknown"
}

// ReturnMapCap bounds plastic return-mapping iterations per point per
// step.
const ReturnMapCap = 30

// Params holds material constants. Bulk and Shear are derived from
// Young/Poisson by Normalize.
type Params struct {
	Density float64
	Young   float64
	Poisson float64
	Bulk    float64
	Shear   float64

	// plasticity
	YieldStress  float64 // von Mises / isotropic hardening
	HardeningMod float64 // isotropic hardening modulus
	Cohesion     float64 // Mohr-Coulomb, Drucker-Prager
	Friction     float64 // internal friction angle, radians
	Dilation     float64 // dilation angle, radians
	Tensile      float64 // tension cutoff

	// modified cam-clay
	CamM      float64 // critical state line slope
	CamLambda float64 // compression index
	CamKappa  float64 // swelling index
	CamPc0    float64 // initial preconsolidation pressure

	// fluids
	Viscosity   float64 // dynamic viscosity
	YieldTau    float64 // Bingham yield stress
	FluidBulk   float64 // weakly compressible EOS modulus
	FluidGamma  float64 // EOS exponent
	RestDensity float64
}

// Normalize derives the elastic moduli and defaults.
func (p *Params) Normalize() {
	if p.Young > 0 {
		p.Shear = 0.5 * p.Young / (1 + p.Poisson)
		p.Bulk = p.Young / (3 * (1 - 2*p.Poisson))
	}
	if p.FluidGamma == 0 {
		p.FluidGamma = 7
	}
	if p.RestDensity == 0 {
		p.RestDensity = p.Density
	}
}

// State is the per-point history carried across steps.
type State struct {
	PlasticStrain float64 `json:"plastic_strain"`
	Preconsol     float64 `json:"preconsolidation"`
}

// Update advances stress by one increment. de is the strain increment
// (strain rate times dt), spin the vorticity tensor, f the deformation
// gradient after this step's kinematic update, j its determinant.
// The boolean reports whether the plastic mapping converged; on false
// the previous stress is returned unchanged.
func Update(kind Kind, p *Params, sigma geom.Sym3, st State, de geom.Sym3, spin geom.Mat3, f geom.Mat3, j, dt float64) (geom.Sym3, State, bool) {
	switch kind {
	case KindLinearElastic:
		return updateElastic(p, sigma, st, de, spin, dt)
	case KindNeoHookean:
		return updateNeoHookean(p, st, f, j)
	case KindVonMises:
		return updateVonMises(p, sigma, st, de, spin, dt, 0)
	case KindIsotropicHardening:
		return updateVonMises(p, sigma, st, de, spin, dt, p.HardeningMod)
	case KindMohrCoulomb:
		return updateMohrCoulomb(p, sigma, st, de, spin, dt)
	case KindDruckerPrager:
		return updateDruckerPrager(p, sigma, st, de, spin, dt)
	case KindModifiedCamClay:
		return updateCamClay(p, sigma, st, de, spin, dt)
	case KindNewtonianFluid:
		return updateNewtonian(p, st, de, j, dt)
	case KindBinghamFluid:
		return updateBingham(p, st, de, j, dt)
	}
	return sigma, st, true
}

// InitState builds the starting history for a law.
func InitState(kind Kind, p *Params) State {
	st := State{}
	if kind == KindModifiedCamClay {
		st.Preconsol = p.CamPc0
	}
	return st
}

// SoundSpeed estimates the elastic wave speed, used for timestep
// sanity reporting.
func SoundSpeed(p *Params) float64 {
	if p.Density <= 0 {
		return 0
	}
	m := p.Bulk + 4.0/3.0*p.Shear
	if m <= 0 {
		m = p.FluidBulk
	}
	if m <= 0 {
		return 0
	}
	return sqrt(m / p.Density)
}
