package geom

import (
	"math"
	"testing"
)

func TestSym3TraceDev(t *testing.T) {
	s := Sym3{3, 2, 1, 0.5, 0.2, 0.1}
	if got := s.Trace(); math.Abs(got-6) > 1e-15 {
		t.Errorf("trace = %f", got)
	}
	dev := s.Dev()
	if math.Abs(dev.Trace()) > 1e-12 {
		t.Errorf("deviator trace = %g", dev.Trace())
	}
}

func TestVonMisesUniaxial(t *testing.T) {
	// uniaxial stress: q equals the axial stress magnitude
	s := Sym3{100, 0, 0, 0, 0, 0}
	if got := s.VonMises(); math.Abs(got-100) > 1e-9 {
		t.Errorf("von mises = %f, want 100", got)
	}
	// hydrostatic state has no deviatoric part
	h := Sym3{-50, -50, -50, 0, 0, 0}
	if got := h.VonMises(); math.Abs(got) > 1e-9 {
		t.Errorf("von mises of hydrostatic state = %f", got)
	}
}

func TestStrainRateSplit(t *testing.T) {
	// pure shear velocity gradient
	l := Mat3{0, 1, 0, 0, 0, 0, 0, 0, 0}
	d, w := StrainRate(l)
	if math.Abs(d[3]-0.5) > 1e-15 {
		t.Errorf("symmetric xy = %f, want 0.5", d[3])
	}
	if math.Abs(w[1]-0.5) > 1e-15 {
		t.Errorf("spin xy = %f, want 0.5", w[1])
	}
	if math.Abs(d.Trace()) > 1e-15 {
		t.Errorf("pure shear has volumetric rate %g", d.Trace())
	}
}

func TestJaumannHydrostaticInvariant(t *testing.T) {
	// spin must not change a hydrostatic stress
	sigma := Sym3{-10, -10, -10, 0, 0, 0}
	spin := Mat3{0, 2, 0, -2, 0, 0, 0, 0, 0}
	inc := JaumannIncrement(sigma, spin, 0.01)
	for i, v := range inc {
		if math.Abs(v) > 1e-12 {
			t.Errorf("jaumann increment[%d] = %g on hydrostatic stress", i, v)
		}
	}
}

func TestSym3MatRoundTrip(t *testing.T) {
	s := Sym3{1, 2, 3, 4, 5, 6}
	m := s.Mat()
	if m[1] != m[3] || m[5] != m[7] || m[2] != m[6] {
		t.Error("Mat not symmetric")
	}
	back := SymFromMat(m)
	for i := range s {
		if math.Abs(back[i]-s[i]) > 1e-15 {
			t.Fatalf("round trip[%d]: %f != %f", i, back[i], s[i])
		}
	}
}
