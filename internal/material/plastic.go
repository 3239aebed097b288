package material

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/geomech/internal/geom"
)

// updateVonMises performs a radial return onto the von Mises cylinder.
// hmod > 0 adds linear isotropic hardening of the yield stress with
// accumulated plastic strain.
func updateVonMises(p *Params, sigma geom.Sym3, st State, de geom.Sym3, spin geom.Mat3, dt, hmod float64) (geom.Sym3, State, bool) {
	rot := geom.JaumannIncrement(sigma, spin, dt)
	trial := sigma.Add(elasticIncrement(p, de))

	sy := p.YieldStress + hmod*st.PlasticStrain
	q := trial.VonMises()
	if q <= sy {
		return trial.Add(rot), st, true
	}

	dgamma := (q - sy) / (3*p.Shear + hmod)
	scale := 1.0
	if q > 1e-15 {
		scale = (sy + hmod*dgamma) / q
	}
	pMean := trial.Mean()
	out := trial.Dev().Scale(scale)
	out[0] += pMean
	out[1] += pMean
	out[2] += pMean

	st.PlasticStrain += dgamma
	return out.Add(rot), st, true
}

// updateDruckerPrager maps the trial stress back to the Drucker-Prager
// cone with a tension cutoff, following the inscribed-cone match to
// Mohr-Coulomb parameters. The mapping is closed-form; the shear and
// tension regions are handled separately.
func updateDruckerPrager(p *Params, sigma geom.Sym3, st State, de geom.Sym3, spin geom.Mat3, dt float64) (geom.Sym3, State, bool) {
	rot := geom.JaumannIncrement(sigma, spin, dt)
	trial := sigma.Add(elasticIncrement(p, de))

	tanPhi := math.Tan(p.Friction)
	tanPsi := math.Tan(p.Dilation)
	qPhi := 3 * tanPhi / math.Sqrt(9+12*tanPhi*tanPhi)
	kPhi := 3 * p.Cohesion / math.Sqrt(9+12*tanPhi*tanPhi)
	qPsi := 3 * tanPsi / math.Sqrt(9+12*tanPsi*tanPsi)

	tensile := p.Tensile
	if p.Friction > 0 && qPhi > 0 {
		tensile = math.Min(tensile, kPhi/qPhi)
	}

	pm := trial.Mean()
	dev := trial.Dev()
	j2sqrt := math.Sqrt(trial.J2()) + 1e-15

	fShear := j2sqrt + qPhi*pm - kPhi
	fTens := pm - tensile

	out := trial
	dps := 0.0
	switch {
	case fTens < 0 && fShear > 0:
		dl := fShear / (p.Shear + p.Bulk*qPhi*qPsi)
		pm -= p.Bulk * qPsi * dl
		ratio := (kPhi - qPhi*pm) / j2sqrt
		out = dev.Scale(ratio)
		out[0] += pm
		out[1] += pm
		out[2] += pm
		dps = dl * math.Sqrt(1.0/3.0+2.0/9.0*qPsi*qPsi)
	case fTens >= 0:
		alphaP := math.Sqrt(1+qPhi*qPhi) - qPhi
		hTens := j2sqrt - (kPhi - qPhi*tensile) - alphaP*fTens
		if hTens > 0 {
			dl := fShear / (p.Shear + p.Bulk*qPhi*qPsi)
			pm -= p.Bulk * qPsi * dl
			ratio := (kPhi - qPhi*pm) / j2sqrt
			out = dev.Scale(ratio)
			out[0] += pm
			out[1] += pm
			out[2] += pm
			dps = dl * math.Sqrt(1.0/3.0+2.0/9.0*qPsi*qPsi)
		} else {
			// return to the tension apex
			dl := fTens / p.Bulk
			out[0] += tensile - pm
			out[1] += tensile - pm
			out[2] += tensile - pm
			dps = dl / 3 * math.Sqrt2
		}
	}

	st.PlasticStrain += dps
	return out.Add(rot), st, true
}

// updateMohrCoulomb returns the trial stress to the Mohr-Coulomb
// surface in principal-stress space. The trial tensor is diagonalized
// with gonum's symmetric eigensolver, corrected on the major/minor
// principal pair, and reassembled in the original frame.
func updateMohrCoulomb(p *Params, sigma geom.Sym3, st State, de geom.Sym3, spin geom.Mat3, dt float64) (geom.Sym3, State, bool) {
	rot := geom.JaumannIncrement(sigma, spin, dt)
	trial := sigma.Add(elasticIncrement(p, de))

	sinPhi := math.Sin(p.Friction)
	sinPsi := math.Sin(p.Dilation)
	cosPhi := math.Cos(p.Friction)

	sym := mat.NewSymDense(3, nil)
	sym.SetSym(0, 0, trial[0])
	sym.SetSym(1, 1, trial[1])
	sym.SetSym(2, 2, trial[2])
	sym.SetSym(0, 1, trial[3])
	sym.SetSym(1, 2, trial[4])
	sym.SetSym(0, 2, trial[5])

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		// eigen failure on a degenerate tensor: keep the previous stress
		return sigma, st, false
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// sort principal stresses descending, tracking eigenvectors
	idx := []int{0, 1, 2}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] > vals[idx[b]] })
	s1, s2, s3 := vals[idx[0]], vals[idx[1]], vals[idx[2]]

	// yield: f = (s1 - s3) + (s1 + s3) sinPhi - 2 c cosPhi
	f := (s1 - s3) + (s1+s3)*sinPhi - 2*p.Cohesion*cosPhi
	if f <= 0 {
		return trial.Add(rot), st, true
	}

	g := p.Shear
	k := p.Bulk
	denom := 4*g*(1+sinPhi*sinPsi/3) + 4*k*sinPhi*sinPsi
	if denom < 1e-15 {
		return sigma, st, false
	}
	dl := f / denom

	s1 -= dl * (2*g*(1+sinPsi/3) + 2*k*sinPsi)
	s2 += dl * (4*g/3 - 2*k) * sinPsi
	s3 += dl * (2*g*(1-sinPsi/3) - 2*k*sinPsi)

	corrected := [3]float64{s1, s2, s3}
	var outM geom.Mat3
	for c := 0; c < 3; c++ {
		v := geom.V(vecs.At(0, idx[c]), vecs.At(1, idx[c]), vecs.At(2, idx[c]))
		outM = outM.Add(v.Outer(v).Scale(corrected[c]))
	}
	out := geom.SymFromMat(outM)
	if !out.IsValid() {
		return sigma, st, false
	}

	st.PlasticStrain += dl * math.Sqrt(4.0/3.0*(1+sinPsi*sinPsi/3))
	return out.Add(rot), st, true
}

// updateCamClay return-maps onto the modified Cam-Clay ellipse in
// (p, q) space with Newton iteration on the plastic multiplier. The
// preconsolidation pressure hardens with plastic volumetric strain.
// Non-convergence within ReturnMapCap keeps the previous stress and
// reports false.
func updateCamClay(par *Params, sigma geom.Sym3, st State, de geom.Sym3, spin geom.Mat3, dt float64) (geom.Sym3, State, bool) {
	rot := geom.JaumannIncrement(sigma, spin, dt)
	trial := sigma.Add(elasticIncrement(par, de))

	// geomechanics sign convention: compression positive for p
	pTr := -trial.Mean()
	qTr := trial.VonMises()
	pc := st.Preconsol
	if pc <= 0 {
		pc = par.CamPc0
	}

	m2 := par.CamM * par.CamM
	f := qTr*qTr/m2 + pTr*(pTr-pc)
	if f <= 1e-12*pc*pc+1e-12 {
		return trial.Add(rot), st, true
	}

	// hardening modulus for pc(eps_v^p): dpc = theta * pc * deps_v^p
	theta := 1.0 / math.Max(par.CamLambda-par.CamKappa, 1e-12)
	kmod := par.Bulk
	gmod := par.Shear

	dgamma := 0.0
	pN, qN, pcN := pTr, qTr, pc
	converged := false
	for it := 0; it < ReturnMapCap; it++ {
		dfdp := 2*pN - pcN
		pN = pTr - kmod*dgamma*dfdp
		qN = qTr / (1 + 6*gmod*dgamma/m2)
		pcN = pc * math.Exp(theta*dgamma*dfdp)

		res := qN*qN/m2 + pN*(pN-pcN)
		if math.Abs(res) < 1e-8*(pc*pc+1) {
			converged = true
			break
		}

		// numerical derivative of the residual in dgamma
		h := math.Max(1e-10, dgamma*1e-6)
		dg2 := dgamma + h
		p2 := pTr - kmod*dg2*(2*pN-pcN)
		q2 := qTr / (1 + 6*gmod*dg2/m2)
		pc2 := pc * math.Exp(theta*dg2*(2*pN-pcN))
		res2 := q2*q2/m2 + p2*(p2-pc2)
		slope := (res2 - res) / h
		if math.Abs(slope) < 1e-20 {
			break
		}
		dgamma -= res / slope
		if dgamma < 0 {
			dgamma = 0
		}
	}
	if !converged {
		return sigma, st, false
	}

	scale := 0.0
	if qTr > 1e-15 {
		scale = qN / qTr
	}
	out := trial.Dev().Scale(scale)
	out[0] -= pN
	out[1] -= pN
	out[2] -= pN

	st.Preconsol = pcN
	st.PlasticStrain += dgamma * math.Abs(2*pN-pcN)
	return out.Add(rot), st, true
}
