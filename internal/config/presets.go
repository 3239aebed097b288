package config

import "gopkg.in/yaml.v3"

// Presets are ready-to-run scenes. Each is a complete Config; the CLI
// copies one and applies flag overrides on top.
var Presets = map[string]*Config{
	// DEM spheres settling under gravity in a walled box.
	"settling": {
		Name: "settling", Dt: 2e-5, Steps: 50000, OutputEvery: 500,
		Gravity: [3]float64{0, 0, -9.81},
		DEM: &DEMConfig{
			Scheme: "verlet",
			Contact: ContactConfig{
				Law: "linear", Kn: 1e6, Kt: 5e5, Mu: 0.4, DampN: 0.2, DampT: 0.1,
			},
			Pack: &PackConfig{
				Lo: [3]float64{0, 0, 0.1}, Hi: [3]float64{0.5, 0.5, 0.6},
				Radius: 0.02, Density: 2650, Jitter: 0.05,
			},
			Walls: []WallConfig{
				{Point: [3]float64{0, 0, 0}, Normal: [3]float64{0, 0, 1}},
				{Point: [3]float64{0, 0, 0}, Normal: [3]float64{1, 0, 0}},
				{Point: [3]float64{0.5, 0, 0}, Normal: [3]float64{-1, 0, 0}},
				{Point: [3]float64{0, 0, 0}, Normal: [3]float64{0, 1, 0}},
				{Point: [3]float64{0, 0.5, 0}, Normal: [3]float64{0, -1, 0}},
			},
		},
	},

	// Granular column collapse, the standard MPM sand benchmark.
	"column-collapse": {
		Name: "column-collapse", Dt: 1e-4, Steps: 20000, OutputEvery: 200,
		Gravity: [3]float64{0, 0, -9.81},
		MPM: &MPMConfig{
			Scheme: "musl", Transfer: "apic", BBar: true,
			Grid: GridConfig{
				Origin: [3]float64{0, 0, 0}, Spacing: 0.025,
				Dims: [3]int{81, 17, 33},
			},
			Material: MaterialConfig{
				Law: "drucker-prager", Density: 1600,
				Young: 1e6, Poisson: 0.3,
				Cohesion: 0, Friction: 30, Dilation: 0,
			},
			Fill: &FillConfig{
				Lo: [3]float64{0.025, 0.025, 0.025}, Hi: [3]float64{0.3, 0.375, 0.5},
				PointsPerAxis: 2,
			},
			Dirichlets: []DirichletConfig{
				{Kind: "friction", Normal: [3]float64{0, 0, -1}, Mu: 0.4,
					Lo: [3]float64{0, 0, 0}, Hi: [3]float64{2, 0.4, 0.03}},
				{Kind: "fixed", Normal: [3]float64{-1, 0, 0},
					Lo: [3]float64{0, 0, 0}, Hi: [3]float64{0.03, 0.4, 0.8}},
			},
		},
	},

	// Weakly compressible dam break.
	"dam-break": {
		Name: "dam-break", Dt: 5e-5, Steps: 40000, OutputEvery: 400,
		Gravity: [3]float64{0, 0, -9.81},
		MPM: &MPMConfig{
			Scheme: "usl", Transfer: "flip", FlipRatio: 0.98,
			Grid: GridConfig{
				Origin: [3]float64{0, 0, 0}, Spacing: 0.02,
				Dims: [3]int{101, 11, 41},
			},
			Material: MaterialConfig{
				Law: "newtonian-fluid", Density: 1000,
				Viscosity: 1e-3, FluidBulk: 2e6, FluidGamma: 7, RestDensity: 1000,
			},
			Fill: &FillConfig{
				Lo: [3]float64{0.02, 0.02, 0.02}, Hi: [3]float64{0.4, 0.2, 0.6},
				PointsPerAxis: 2,
			},
			Dirichlets: []DirichletConfig{
				{Kind: "fixed", Normal: [3]float64{0, 0, -1},
					Lo: [3]float64{0, 0, 0}, Hi: [3]float64{2, 0.2, 0.025}},
				{Kind: "fixed", Normal: [3]float64{-1, 0, 0},
					Lo: [3]float64{0, 0, 0}, Hi: [3]float64{0.025, 0.2, 0.8}},
				{Kind: "fixed", Normal: [3]float64{1, 0, 0},
					Lo: [3]float64{1.975, 0, 0}, Hi: [3]float64{2, 0.2, 0.8}},
			},
		},
	},

	// Rigid sphere dropped into an elastoplastic soil bed, two-way
	// coupled.
	"impact": {
		Name: "impact", Dt: 5e-5, Steps: 30000, OutputEvery: 300,
		Gravity: [3]float64{0, 0, -9.81},
		DEM: &DEMConfig{
			Scheme: "verlet",
			Contact: ContactConfig{
				Law: "linear", Kn: 1e6, Kt: 5e5, Mu: 0.3, DampN: 0.2,
			},
			Spheres: []SphereConfig{
				{Pos: [3]float64{0.5, 0.5, 0.9}, Vel: [3]float64{0, 0, -3},
					Radius: 0.06, Mass: 2.4},
			},
		},
		MPM: &MPMConfig{
			Scheme: "musl", Transfer: "apic", BBar: true,
			Grid: GridConfig{
				Origin: [3]float64{0, 0, 0}, Spacing: 0.025,
				Dims: [3]int{41, 41, 41},
			},
			Material: MaterialConfig{
				Law: "mohr-coulomb", Density: 1800,
				Young: 5e6, Poisson: 0.3,
				Cohesion: 5e3, Friction: 25, Dilation: 0, Tensile: 1e3,
			},
			Fill: &FillConfig{
				Lo: [3]float64{0.025, 0.025, 0.025}, Hi: [3]float64{0.975, 0.975, 0.5},
				PointsPerAxis: 2,
			},
			Dirichlets: []DirichletConfig{
				{Kind: "fixed", Normal: [3]float64{0, 0, -1},
					Lo: [3]float64{0, 0, 0}, Hi: [3]float64{1, 1, 0.03}},
			},
		},
		Coupling: &CouplingConfig{
			Mode: "two-way",
			Contact: ContactConfig{
				Law: "linear", Kn: 5e5, Kt: 2e5, Mu: 0.3, DampN: 0.3,
			},
		},
	},

	// Quasi-static strip footing on elastic ground, implicit scheme.
	"footing": {
		Name: "footing", Dt: 1e-3, Steps: 2000, OutputEvery: 50,
		Gravity: [3]float64{0, 0, -9.81},
		MPM: &MPMConfig{
			Scheme: "newmark", Transfer: "flip", FlipRatio: 0,
			Grid: GridConfig{
				Origin: [3]float64{0, 0, 0}, Spacing: 0.05,
				Dims: [3]int{41, 11, 21},
			},
			Material: MaterialConfig{
				Law: "elastic", Density: 2000,
				Young: 1e7, Poisson: 0.3,
			},
			Fill: &FillConfig{
				Lo: [3]float64{0.05, 0.05, 0.05}, Hi: [3]float64{1.95, 0.45, 0.75},
				PointsPerAxis: 2,
			},
			Dirichlets: []DirichletConfig{
				{Kind: "fixed", Normal: [3]float64{0, 0, -1},
					Lo: [3]float64{0, 0, 0}, Hi: [3]float64{2, 0.5, 0.06}},
			},
			Tractions: []TractionConfig{
				{Lo: [3]float64{0.9, 0, 0.7}, Hi: [3]float64{1.1, 0.5, 0.8},
					Force: [3]float64{0, 0, -500}},
			},
			Newmark: NewmarkConfig{Beta: 0.25, Gamma: 0.5, Tol: 1e-8, Cap: 20},
		},
	},
}

// GetPreset returns a deep copy, so callers can apply overrides without
// touching the shared table.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil
	}
	if out.Gravity == [3]float64{} {
		out.Gravity = [3]float64{0, 0, -9.81}
	}
	return out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
