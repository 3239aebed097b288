package boundary

import (
	"math"
	"testing"

	"github.com/san-kum/geomech/internal/geom"
)

func TestDirichletFixed(t *testing.T) {
	d := Dirichlet{Kind: Fixed, Normal: geom.V(0, 0, -1)} // bottom face

	// downward motion is outward through the floor: normal part removed
	v := d.Apply(geom.V(1, 0, -2))
	if v != geom.V(1, 0, 0) {
		t.Errorf("fixed left %v", v)
	}
	// upward (inward) motion passes untouched
	v = d.Apply(geom.V(1, 0, 2))
	if v != geom.V(1, 0, 2) {
		t.Errorf("inward motion altered: %v", v)
	}
}

func TestDirichletReflect(t *testing.T) {
	d := Dirichlet{Kind: Reflect, Normal: geom.V(0, 0, -1)}
	v := d.Apply(geom.V(0, 0, -3))
	if v != geom.V(0, 0, 3) {
		t.Errorf("reflected to %v", v)
	}
}

func TestDirichletFriction(t *testing.T) {
	d := Dirichlet{Kind: Friction, Normal: geom.V(0, 0, -1), Mu: 0.5}

	// tangential speed 4, removed normal speed 2: slip = 4 - 0.5*2 = 3
	v := d.Apply(geom.V(4, 0, -2))
	if math.Abs(v.X-3) > 1e-12 || v.Z != 0 {
		t.Errorf("friction slip %v, want (3,0,0)", v)
	}

	// strong contact arrests the node completely
	v = d.Apply(geom.V(0.5, 0, -2))
	if v != (geom.Vec3{}) {
		t.Errorf("sticking contact kept %v", v)
	}
}

func TestPlaneContact(t *testing.T) {
	p := &Plane{Ident: 3, Point: geom.V(0, 0, 0), Normal: geom.V(0, 0, 1), Vel: geom.V(0.1, 0, 0)}
	g, ok := p.Contact(geom.V(0, 0, 0.4), 0.5)
	if !ok {
		t.Fatal("overlapping sphere missed")
	}
	if math.Abs(g.Overlap-0.1) > 1e-12 {
		t.Errorf("overlap %f", g.Overlap)
	}
	if p.Velocity() != geom.V(0.1, 0, 0) || p.ID() != 3 {
		t.Error("servo plane metadata lost")
	}
	if _, ok := p.Contact(geom.V(0, 0, 2), 0.5); ok {
		t.Error("distant sphere contacted")
	}
}

func TestFacetContact(t *testing.T) {
	f := &Facet{Ident: 1, Vertices: []geom.Vec3{
		geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(1, 1, 0), geom.V(0, 1, 0),
	}}

	// over the second triangle of the fan
	g, ok := f.Contact(geom.V(0.2, 0.8, 0.3), 0.5)
	if !ok {
		t.Fatal("quad face missed")
	}
	if math.Abs(g.Overlap-0.2) > 1e-12 {
		t.Errorf("overlap %f", g.Overlap)
	}

	degenerate := &Facet{Ident: 2, Vertices: []geom.Vec3{geom.V(0, 0, 0), geom.V(1, 0, 0)}}
	if _, ok := degenerate.Contact(geom.V(0, 0, 0), 1); ok {
		t.Error("two-vertex facet produced contact")
	}
}

func TestTrianglePatchPicksDeepest(t *testing.T) {
	// two stacked horizontal triangles; the upper one overlaps deeper
	patch := &TrianglePatch{Ident: 5, Tris: [][3]geom.Vec3{
		{geom.V(-1, -1, 0), geom.V(1, -1, 0), geom.V(0, 1, 0)},
		{geom.V(-1, -1, 0.2), geom.V(1, -1, 0.2), geom.V(0, 1, 0.2)},
	}}
	g, ok := patch.Contact(geom.V(0, 0, 0.35), 0.4)
	if !ok {
		t.Fatal("patch missed")
	}
	// lower triangle overlaps 0.05, upper 0.25: the deeper one wins
	if math.Abs(g.Overlap-0.25) > 1e-12 {
		t.Errorf("overlap %f, want the deeper triangle's 0.25", g.Overlap)
	}
}

func TestTractionContains(t *testing.T) {
	tr := Traction{Lo: geom.V(0, 0, 0), Hi: geom.V(1, 1, 1)}
	if !tr.Contains(geom.V(0.5, 0.5, 1)) {
		t.Error("boundary point excluded")
	}
	if tr.Contains(geom.V(0.5, 0.5, 1.01)) {
		t.Error("outside point included")
	}
}

func TestParseDirichletKind(t *testing.T) {
	for name, want := range map[string]DirichletKind{
		"fixed": Fixed, "reflect": Reflect, "friction": Friction,
	} {
		k, err := ParseDirichletKind(name)
		if err != nil {
			t.Fatal(err)
		}
		if k != want {
			t.Errorf("%q parsed to %v", name, k)
		}
	}
	if _, err := ParseDirichletKind("absorbing"); err == nil {
		t.Error("bad kind accepted")
	}
}
