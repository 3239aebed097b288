package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/san-kum/geomech/internal/cell"
	"github.com/san-kum/geomech/internal/mpm"
	"github.com/san-kum/geomech/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Dt != DefaultDt || cfg.Steps != DefaultSteps || cfg.OutputEvery != DefaultOutputEvery {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Gravity != [3]float64{0, 0, -9.81} {
		t.Errorf("gravity = %v", cfg.Gravity)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")

	cfg := GetPreset("impact")
	cfg.Steps = 123
	cfg.Seed = 42
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "impact" || got.Steps != 123 || got.Seed != 42 {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.DEM == nil || len(got.DEM.Spheres) != 1 {
		t.Fatal("dem block lost")
	}
	if got.Coupling == nil || got.Coupling.Mode != "two-way" {
		t.Error("coupling block lost")
	}
	if got.MPM == nil || got.MPM.Material.Law != "mohr-coulomb" {
		t.Error("material block lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file loaded without error")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("settling")
	if cfg == nil {
		t.Fatal("settling preset missing")
	}
	cfg.Steps = 1
	cfg.DEM.Contact.Kn = 1
	if Presets["settling"].Steps == 1 {
		t.Error("preset mutated through the returned copy")
	}
	if Presets["settling"].DEM.Contact.Kn == 1 {
		t.Error("nested preset block shared with the returned copy")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("unknown preset returned a config")
	}

	names := ListPresets()
	if len(names) != len(Presets) {
		t.Errorf("listed %d presets, have %d", len(names), len(Presets))
	}
}

func TestAllPresetsBuild(t *testing.T) {
	for name := range Presets {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			s, runCfg, err := cfg.Build()
			if err != nil {
				t.Fatal(err)
			}
			if runCfg.Dt != cfg.Dt || runCfg.Steps != cfg.Steps {
				t.Errorf("run config %+v from %+v", runCfg, cfg)
			}
			if s.DEM == nil && s.MPM == nil {
				t.Error("preset built no domain")
			}
		})
	}
}

func TestImpactPresetWiring(t *testing.T) {
	s, _, err := GetPreset("impact").Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.DEM == nil || s.MPM == nil || s.Coupling == nil {
		t.Fatal("impact scene must carry both domains and the coupling layer")
	}
	if len(s.MPM.Points) == 0 {
		t.Error("fill produced no points")
	}
	// friction angle converted from degrees
	if s.MPM.Mat.Friction > 1 {
		t.Errorf("friction = %f rad, looks like degrees", s.MPM.Mat.Friction)
	}
}

func TestFootingPresetImplicit(t *testing.T) {
	s, _, err := GetPreset("footing").Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.MPM.Scheme != mpm.Newmark {
		t.Errorf("scheme = %v", s.MPM.Scheme)
	}
	if len(s.MPM.Tractions) != 1 {
		t.Errorf("tractions = %d", len(s.MPM.Tractions))
	}
}

func TestBuildRejectsBadEnums(t *testing.T) {
	bad := []*Config{}

	c := GetPreset("settling")
	c.DEM.Scheme = "rk45"
	bad = append(bad, c)

	c = GetPreset("settling")
	c.DEM.Contact.Law = "jkr"
	bad = append(bad, c)

	c = GetPreset("column-collapse")
	c.MPM.Material.Law = "granite"
	bad = append(bad, c)

	c = GetPreset("impact")
	c.Coupling.Mode = "one-way"
	bad = append(bad, c)

	for i, cfg := range bad {
		if _, _, err := cfg.Build(); !errors.Is(err, sim.ErrInvalidConfig) {
			t.Errorf("case %d: got %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestCouplingNeedsBothDomains(t *testing.T) {
	cfg := GetPreset("impact")
	cfg.DEM = nil
	if _, _, err := cfg.Build(); !errors.Is(err, sim.ErrInvalidConfig) {
		t.Errorf("got %v", err)
	}
}

func TestPackSeedDeterministic(t *testing.T) {
	build := func(seed int64) *sim.Simulator {
		cfg := GetPreset("settling")
		cfg.Seed = seed
		s, _, err := cfg.Build()
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	a, b := build(7), build(7)
	if len(a.DEM.Particles) == 0 || len(a.DEM.Particles) != len(b.DEM.Particles) {
		t.Fatalf("pack sizes %d vs %d", len(a.DEM.Particles), len(b.DEM.Particles))
	}
	for i := range a.DEM.Particles {
		if a.DEM.Particles[i].Pos != b.DEM.Particles[i].Pos {
			t.Fatal("same seed produced different packings")
		}
	}

	c := build(8)
	same := true
	for i := range a.DEM.Particles {
		if a.DEM.Particles[i].Pos != c.DEM.Particles[i].Pos {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical jitter")
	}
}

func TestIndexThresholdConfigurable(t *testing.T) {
	// the settling pack is well above the default threshold
	s, _, err := GetPreset("settling").Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.DEM.Index.(*cell.LinkedCell); !ok {
		t.Fatal("settling pack should default to linked cells")
	}

	cfg := GetPreset("settling")
	cfg.DEM.IndexThreshold = 5000
	s, _, err = cfg.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.DEM.Index.(*cell.BruteForce); !ok {
		t.Error("threshold above the pack size should select brute force")
	}
}

func TestGridValidation(t *testing.T) {
	cfg := GetPreset("column-collapse")
	cfg.MPM.Grid.Spacing = 0
	if _, _, err := cfg.Build(); !errors.Is(err, sim.ErrInvalidConfig) {
		t.Errorf("zero spacing: got %v", err)
	}

	cfg = GetPreset("column-collapse")
	cfg.MPM.Grid.Dims = [3]int{1, 10, 10}
	if _, _, err := cfg.Build(); !errors.Is(err, sim.ErrInvalidConfig) {
		t.Errorf("degenerate dims: got %v", err)
	}
}
