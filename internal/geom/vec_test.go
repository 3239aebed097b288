package geom

import (
	"math"
	"testing"
)

func TestVecOps(t *testing.T) {
	a := V(1, 2, 3)
	b := V(4, 5, 6)

	if got := a.Add(b); got != V(5, 7, 9) {
		t.Errorf("add: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("dot: got %f", got)
	}
	c := a.Cross(b)
	if math.Abs(c.Dot(a)) > 1e-12 || math.Abs(c.Dot(b)) > 1e-12 {
		t.Errorf("cross not orthogonal: %v", c)
	}
	n := V(3, 4, 0).Normalized()
	if math.Abs(n.Norm()-1) > 1e-12 {
		t.Errorf("normalized norm %f", n.Norm())
	}
}

func TestVecIsValid(t *testing.T) {
	if !V(1, 2, 3).IsValid() {
		t.Error("finite vector reported invalid")
	}
	if (Vec3{X: math.NaN()}).IsValid() {
		t.Error("NaN vector reported valid")
	}
	if (Vec3{Y: math.Inf(1)}).IsValid() {
		t.Error("Inf vector reported valid")
	}
}

func TestMat3Inverse(t *testing.T) {
	m := Mat3{2, 0, 1, 0, 3, 0, 1, 0, 4}
	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("invertible matrix reported singular")
	}
	id := m.Mul(inv)
	for i := 0; i < 9; i++ {
		want := 0.0
		if i%4 == 0 {
			want = 1
		}
		if math.Abs(id[i]-want) > 1e-12 {
			t.Fatalf("m*inv[%d] = %f, want %f", i, id[i], want)
		}
	}
}

func TestMat3Det(t *testing.T) {
	if d := Identity3.Det(); math.Abs(d-1) > 1e-15 {
		t.Errorf("det(I) = %f", d)
	}
	singular := Mat3{1, 2, 3, 2, 4, 6, 0, 0, 1}
	if d := singular.Det(); math.Abs(d) > 1e-12 {
		t.Errorf("det of singular matrix = %f", d)
	}
}

func TestQuatRotate(t *testing.T) {
	// quarter turn about z maps x to y
	half := math.Pi / 4
	q := Quat{W: math.Cos(half), Z: math.Sin(half)}
	got := q.Rotate(V(1, 0, 0))
	if math.Abs(got.X) > 1e-12 || math.Abs(got.Y-1) > 1e-12 || math.Abs(got.Z) > 1e-12 {
		t.Errorf("rotated x axis to %v", got)
	}
}

func TestQuatIntegrateStaysUnit(t *testing.T) {
	q := QuatIdentity
	w := V(1, 2, 3)
	for i := 0; i < 100; i++ {
		q = q.Integrate(w, 0.01)
	}
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if math.Abs(n-1) > 1e-9 {
		t.Errorf("quaternion drifted off unit length: %f", n)
	}
}
