package material

import "github.com/san-kum/geomech/internal/geom"

// BBarVolumetric replaces each strain increment's volumetric part with
// a weighted neighborhood average, suppressing volumetric locking.
// weights[i] are the quadrature volumes; neighbors yields the indices
// (including i itself) contributing to point i's average.
func BBarVolumetric(de []geom.Sym3, weights []float64, neighbors func(i int) []int) {
	avg := make([]float64, len(de))
	for i := range de {
		num, den := 0.0, 0.0
		for _, j := range neighbors(i) {
			num += de[j].Trace() * weights[j]
			den += weights[j]
		}
		if den > 0 {
			avg[i] = num / den
		} else {
			avg[i] = de[i].Trace()
		}
	}
	for i := range de {
		shift := (avg[i] - de[i].Trace()) / 3
		de[i][0] += shift
		de[i][1] += shift
		de[i][2] += shift
	}
}

// SmoothStress blends each point's stress toward its volume-weighted
// neighborhood mean with factor alpha in [0,1]. Applied after the
// constitutive update, before integration.
func SmoothStress(sigma []geom.Sym3, weights []float64, alpha float64, neighbors func(i int) []int) {
	if alpha <= 0 {
		return
	}
	mean := make([]geom.Sym3, len(sigma))
	for i := range sigma {
		var acc geom.Sym3
		den := 0.0
		for _, j := range neighbors(i) {
			acc = acc.Add(sigma[j].Scale(weights[j]))
			den += weights[j]
		}
		if den > 0 {
			mean[i] = acc.Scale(1 / den)
		} else {
			mean[i] = sigma[i]
		}
	}
	for i := range sigma {
		sigma[i] = sigma[i].Scale(1 - alpha).Add(mean[i].Scale(alpha))
	}
}
