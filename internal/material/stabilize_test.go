package material

import (
	"math"
	"testing"

	"github.com/san-kum/geomech/internal/geom"
)

func allIndices(n int) func(i int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return func(int) []int { return idx }
}

func TestBBarEqualizesVolumetricPart(t *testing.T) {
	de := []geom.Sym3{
		{1e-3, 0, 0, 5e-4, 0, 0},
		{-1e-3, 0, 0, 0, 0, 0},
	}
	w := []float64{1, 1}
	devBefore := de[0].Dev()

	BBarVolumetric(de, w, allIndices(2))

	// global average volumetric strain is zero here
	for i := range de {
		if math.Abs(de[i].Trace()) > 1e-15 {
			t.Errorf("point %d trace = %g after averaging", i, de[i].Trace())
		}
	}
	// deviatoric part untouched
	devAfter := de[0].Dev()
	for i := range devBefore {
		if math.Abs(devBefore[i]-devAfter[i]) > 1e-15 {
			t.Fatalf("deviator changed at %d: %g vs %g", i, devBefore[i], devAfter[i])
		}
	}
}

func TestSmoothStressBlend(t *testing.T) {
	sigma := []geom.Sym3{
		{100, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
	w := []float64{1, 1}

	SmoothStress(sigma, w, 0.5, allIndices(2))

	// alpha 0.5 toward the common mean of 50
	if math.Abs(sigma[0][0]-75) > 1e-12 {
		t.Errorf("sigma[0] = %f, want 75", sigma[0][0])
	}
	if math.Abs(sigma[1][0]-25) > 1e-12 {
		t.Errorf("sigma[1] = %f, want 25", sigma[1][0])
	}
}

func TestSmoothStressZeroAlphaNoop(t *testing.T) {
	sigma := []geom.Sym3{{100, 0, 0, 0, 0, 0}}
	SmoothStress(sigma, []float64{1}, 0, allIndices(1))
	if sigma[0][0] != 100 {
		t.Error("alpha 0 must leave stress unchanged")
	}
}
