// Package config holds the YAML scene description and its translation
// into runnable steppers.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 1e-4
	DefaultSteps       = 10000
	DefaultOutputEvery = 100
	DefaultFlipRatio   = 0.95
)

type Config struct {
	Name        string     `yaml:"name"`
	Dt          float64    `yaml:"dt"`
	Steps       int        `yaml:"steps"`
	OutputEvery int        `yaml:"output_every"`
	Workers     int        `yaml:"workers"`
	Gravity     [3]float64 `yaml:"gravity"`
	Seed        int64      `yaml:"seed"`

	DEM      *DEMConfig      `yaml:"dem,omitempty"`
	MPM      *MPMConfig      `yaml:"mpm,omitempty"`
	Coupling *CouplingConfig `yaml:"coupling,omitempty"`
}

// ContactConfig parameterizes one contact law instance; the same shape
// serves particle-particle, particle-wall, and cross-domain contact.
type ContactConfig struct {
	Law   string  `yaml:"law"` // linear, hertz, rolling
	Kn    float64 `yaml:"kn"`
	Kt    float64 `yaml:"kt"`
	Mu    float64 `yaml:"mu"`
	MuR   float64 `yaml:"mu_r"`
	DampN float64 `yaml:"damp_n"`
	DampT float64 `yaml:"damp_t"`
	Emod  float64 `yaml:"emod"`
	Gmod  float64 `yaml:"gmod"`
}

type DEMConfig struct {
	Scheme   string  `yaml:"scheme"` // euler, verlet
	CellSize float64 `yaml:"cell_size"`

	// IndexThreshold is the particle count above which the linked-cell
	// index replaces the brute-force scan; 0 keeps the built-in default.
	IndexThreshold int `yaml:"index_threshold"`

	Contact ContactConfig  `yaml:"contact"`
	Spheres []SphereConfig `yaml:"spheres,omitempty"`
	Clumps  []ClumpConfig  `yaml:"clumps,omitempty"`
	Pack    *PackConfig    `yaml:"pack,omitempty"`
	Walls   []WallConfig   `yaml:"walls,omitempty"`
}

type SphereConfig struct {
	Pos    [3]float64 `yaml:"pos"`
	Vel    [3]float64 `yaml:"vel"`
	Radius float64    `yaml:"radius"`
	Mass   float64    `yaml:"mass"`
}

type ClumpConfig struct {
	Pos     [3]float64   `yaml:"pos"`
	Vel     [3]float64   `yaml:"vel"`
	Offsets [][3]float64 `yaml:"offsets"`
	Radii   []float64    `yaml:"radii"`
	Mass    float64      `yaml:"mass"`
}

// PackConfig fills a box with a jittered lattice of equal spheres.
type PackConfig struct {
	Lo      [3]float64 `yaml:"lo"`
	Hi      [3]float64 `yaml:"hi"`
	Radius  float64    `yaml:"radius"`
	Density float64    `yaml:"density"`
	Spacing float64    `yaml:"spacing"` // lattice pitch; 0 means 2.1*radius
	Jitter  float64    `yaml:"jitter"`  // fraction of radius, seeded
}

// WallConfig describes one rigid boundary. A plane when Vertices is
// empty, a convex facet otherwise.
type WallConfig struct {
	Point    [3]float64   `yaml:"point"`
	Normal   [3]float64   `yaml:"normal"`
	Vertices [][3]float64 `yaml:"vertices,omitempty"`
	Vel      [3]float64   `yaml:"vel"`
}

type MPMConfig struct {
	Scheme      string  `yaml:"scheme"`   // usf, usl, musl, newmark
	Transfer    string  `yaml:"transfer"` // flip, apic, mls
	FlipRatio   float64 `yaml:"flip_ratio"`
	BBar        bool    `yaml:"b_bar"`
	SmoothAlpha float64 `yaml:"smooth_alpha"`

	Grid     GridConfig     `yaml:"grid"`
	Material MaterialConfig `yaml:"material"`
	Fill     *FillConfig    `yaml:"fill,omitempty"`

	Dirichlets []DirichletConfig `yaml:"dirichlets,omitempty"`
	Tractions  []TractionConfig  `yaml:"tractions,omitempty"`

	Newmark NewmarkConfig `yaml:"newmark"`
}

type GridConfig struct {
	Origin  [3]float64 `yaml:"origin"`
	Spacing float64    `yaml:"spacing"`
	Dims    [3]int     `yaml:"dims"`
}

type MaterialConfig struct {
	Law     string  `yaml:"law"`
	Density float64 `yaml:"density"`
	Young   float64 `yaml:"young"`
	Poisson float64 `yaml:"poisson"`

	YieldStress  float64 `yaml:"yield_stress"`
	HardeningMod float64 `yaml:"hardening_mod"`
	Cohesion     float64 `yaml:"cohesion"`
	Friction     float64 `yaml:"friction"` // degrees in the file
	Dilation     float64 `yaml:"dilation"` // degrees
	Tensile      float64 `yaml:"tensile"`

	CamM      float64 `yaml:"cam_m"`
	CamLambda float64 `yaml:"cam_lambda"`
	CamKappa  float64 `yaml:"cam_kappa"`
	CamPc0    float64 `yaml:"cam_pc0"`

	Viscosity   float64 `yaml:"viscosity"`
	YieldTau    float64 `yaml:"yield_tau"`
	FluidBulk   float64 `yaml:"fluid_bulk"`
	FluidGamma  float64 `yaml:"fluid_gamma"`
	RestDensity float64 `yaml:"rest_density"`
}

// FillConfig seeds material points on a regular lattice inside a box,
// PointsPerAxis per grid cell edge.
type FillConfig struct {
	Lo            [3]float64 `yaml:"lo"`
	Hi            [3]float64 `yaml:"hi"`
	PointsPerAxis int        `yaml:"points_per_axis"`
}

type DirichletConfig struct {
	Kind   string     `yaml:"kind"` // fixed, reflect, friction
	Normal [3]float64 `yaml:"normal"`
	Mu     float64    `yaml:"mu"`
	Lo     [3]float64 `yaml:"lo"`
	Hi     [3]float64 `yaml:"hi"`
}

type TractionConfig struct {
	Lo    [3]float64 `yaml:"lo"`
	Hi    [3]float64 `yaml:"hi"`
	Force [3]float64 `yaml:"force"`
}

type NewmarkConfig struct {
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
	Tol   float64 `yaml:"tol"`
	Cap   int     `yaml:"cap"`
}

type CouplingConfig struct {
	Mode    string        `yaml:"mode"` // two-way, dem-to-mpm, mpm-to-dem
	Contact ContactConfig `yaml:"contact"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        "scene",
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		OutputEvery: DefaultOutputEvery,
		Gravity:     [3]float64{0, 0, -9.81},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
