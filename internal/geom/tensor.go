package geom

import "math"

// Sym3 is a symmetric second-order tensor in Voigt-like storage:
// [xx, yy, zz, xy, yz, zx]. Shear components store the tensor value,
// not the engineering (doubled) value.
type Sym3 [6]float64

func (s Sym3) Add(t Sym3) Sym3 {
	var r Sym3
	for i := range s {
		r[i] = s[i] + t[i]
	}
	return r
}

func (s Sym3) Sub(t Sym3) Sym3 {
	var r Sym3
	for i := range s {
		r[i] = s[i] - t[i]
	}
	return r
}

func (s Sym3) Scale(f float64) Sym3 {
	var r Sym3
	for i := range s {
		r[i] = s[i] * f
	}
	return r
}

// Trace returns s_xx + s_yy + s_zz.
func (s Sym3) Trace() float64 { return s[0] + s[1] + s[2] }

// Mean returns the mean (hydrostatic) part tr(s)/3.
func (s Sym3) Mean() float64 { return s.Trace() / 3 }

// Dev returns the deviatoric part.
func (s Sym3) Dev() Sym3 {
	p := s.Mean()
	d := s
	d[0] -= p
	d[1] -= p
	d[2] -= p
	return d
}

// J2 returns the second deviatoric invariant 0.5 * dev:dev.
func (s Sym3) J2() float64 {
	d := s.Dev()
	return 0.5*(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]) + d[3]*d[3] + d[4]*d[4] + d[5]*d[5]
}

// VonMises returns the equivalent stress sqrt(3 J2).
func (s Sym3) VonMises() float64 { return math.Sqrt(3 * s.J2()) }

func (s Sym3) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Mat converts to full matrix form.
func (s Sym3) Mat() Mat3 {
	return Mat3{
		s[0], s[3], s[5],
		s[3], s[1], s[4],
		s[5], s[4], s[2],
	}
}

// SymFromMat takes the symmetric part of a full matrix.
func SymFromMat(m Mat3) Sym3 {
	return Sym3{
		m[0], m[4], m[8],
		0.5 * (m[1] + m[3]),
		0.5 * (m[5] + m[7]),
		0.5 * (m[2] + m[6]),
	}
}

// MulVec applies the tensor to a vector.
func (s Sym3) MulVec(v Vec3) Vec3 {
	return Vec3{
		s[0]*v.X + s[3]*v.Y + s[5]*v.Z,
		s[3]*v.X + s[1]*v.Y + s[4]*v.Z,
		s[5]*v.X + s[4]*v.Y + s[2]*v.Z,
	}
}

// StrainRate decomposes a velocity gradient L into the symmetric strain
// rate D and the spin (vorticity) tensor W, with L = D + W.
func StrainRate(l Mat3) (d Sym3, w Mat3) {
	d = SymFromMat(l)
	half := l.Sub(l.Transpose()).Scale(0.5)
	return d, half
}

// JaumannIncrement returns the objective stress rotation increment
// W*sigma - sigma*W scaled by dt, used to keep stress frames consistent
// under rigid rotation.
func JaumannIncrement(sigma Sym3, spin Mat3, dt float64) Sym3 {
	sm := sigma.Mat()
	rot := spin.Mul(sm).Sub(sm.Mul(spin))
	return SymFromMat(rot).Scale(dt)
}
