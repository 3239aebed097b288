package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/geomech/internal/boundary"
	"github.com/san-kum/geomech/internal/contact"
	"github.com/san-kum/geomech/internal/dem"
	"github.com/san-kum/geomech/internal/geom"
)

func demScene() *dem.Stepper {
	particles := []dem.Particle{
		dem.NewSphere(0, geom.V(0, 0, 0), 0.5, 1),
		dem.NewSphere(1, geom.V(1.2, 0, 0), 0.5, 1),
	}
	particles[0].Vel = geom.V(0.5, 0, 0)
	particles[1].Vel = geom.V(-0.5, 0, 0)
	st := dem.NewStepper(particles, 0)
	st.Law = contact.Law{Kind: contact.LawLinear, Kn: 1000, DampN: 0.1}
	return st
}

func TestRunRecordsFrames(t *testing.T) {
	s := New(demScene(), nil, nil)
	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Steps: 100, OutputEvery: 25})
	if err != nil {
		t.Fatal(err)
	}
	if res.StepsTaken != 100 {
		t.Errorf("steps taken = %d", res.StepsTaken)
	}
	if len(res.Frames) != 4 {
		t.Fatalf("frames = %d, want 4", len(res.Frames))
	}
	if res.Frames[0].Step != 25 || res.Frames[3].Step != 100 {
		t.Errorf("frame steps %d..%d", res.Frames[0].Step, res.Frames[3].Step)
	}
	if len(res.Frames[0].Particles) != 2 {
		t.Errorf("frame particles = %d", len(res.Frames[0].Particles))
	}
}

func TestRunDeterministic(t *testing.T) {
	run := func() *Result {
		s := New(demScene(), nil, nil)
		res, err := s.Run(context.Background(), Config{Dt: 1e-3, Steps: 200, OutputEvery: 200})
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	a, b := run(), run()
	for i := range a.Frames[0].Particles {
		pa, pb := a.Frames[0].Particles[i], b.Frames[0].Particles[i]
		if pa.Pos != pb.Pos || pa.Vel != pb.Vel {
			t.Fatalf("particle %d differs between identical runs", i)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	s := New(demScene(), nil, nil)
	cases := []Config{
		{Dt: 0, Steps: 10},
		{Dt: 1e-3, Steps: 0},
	}
	for _, cfg := range cases {
		if _, err := s.Run(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("config %+v: got %v, want ErrInvalidConfig", cfg, err)
		}
	}

	empty := New(nil, nil, nil)
	if _, err := empty.Run(context.Background(), Config{Dt: 1e-3, Steps: 10}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("domainless run: got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(demScene(), nil, nil)
	res, err := s.Run(ctx, Config{Dt: 1e-3, Steps: 1000})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("got %v, want ErrCanceled", err)
	}
	// partial result still comes back
	if res == nil {
		t.Fatal("nil result on cancellation")
	}
	if res.StepsTaken >= 1000 {
		t.Errorf("canceled run finished anyway: %d steps", res.StepsTaken)
	}
}

func TestStepErrorIdentifiesStep(t *testing.T) {
	// a NaN position makes the wall pass see non-finite geometry
	particles := []dem.Particle{dem.NewSphere(0, geom.V(math.NaN(), 0, 0), 0.5, 1)}
	st := dem.NewStepper(particles, 0)
	st.Law = contact.Law{Kind: contact.LawLinear, Kn: 1000}
	st.Walls = []boundary.Wall{
		&boundary.Plane{Ident: 0, Point: geom.V(0, 0, 0), Normal: geom.V(0, 0, 1)},
	}

	s := New(st, nil, nil)
	_, err := s.Run(context.Background(), Config{Dt: 1e-3, Steps: 10})
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *StepError", err)
	}
	if se.Step != 0 {
		t.Errorf("failed at step %d, want 0", se.Step)
	}
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("cause not marked degenerate: %v", err)
	}
}

func TestMetricsAndObservers(t *testing.T) {
	s := New(demScene(), nil, nil)

	m := &captureMetric{}
	s.AddMetric(m)
	var observed int
	s.AddObserver(observerFunc(func(Stats) { observed++ }))

	res, err := s.Run(context.Background(), Config{Dt: 1e-3, Steps: 50})
	if err != nil {
		t.Fatal(err)
	}
	if m.calls != 50 {
		t.Errorf("metric observed %d steps", m.calls)
	}
	if !m.reset {
		t.Error("metric not reset at run start")
	}
	if observed != 50 {
		t.Errorf("observer saw %d steps", observed)
	}
	if _, ok := res.Metrics["capture"]; !ok {
		t.Error("metric value missing from result")
	}
}

type captureMetric struct {
	calls int
	reset bool
	last  Stats
}

func (m *captureMetric) Name() string { return "capture" }
func (m *captureMetric) Observe(s Stats) {
	m.calls++
	m.last = s
}
func (m *captureMetric) Value() float64 { return m.last.KineticEnergy }
func (m *captureMetric) Reset()         { m.reset = true; m.calls = 0 }

type observerFunc func(Stats)

func (f observerFunc) OnStep(s Stats) { f(s) }
