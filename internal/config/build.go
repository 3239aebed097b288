package config

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/geomech/internal/boundary"
	"github.com/san-kum/geomech/internal/cell"
	"github.com/san-kum/geomech/internal/contact"
	"github.com/san-kum/geomech/internal/coupling"
	"github.com/san-kum/geomech/internal/dem"
	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/material"
	"github.com/san-kum/geomech/internal/mpm"
	"github.com/san-kum/geomech/internal/sim"
)

func vec(a [3]float64) geom.Vec3 { return geom.V(a[0], a[1], a[2]) }

// Build translates the scene description into a runnable simulator.
// All enum parsing happens here, so a bad scene file fails before the
// first step, wrapped in sim.ErrInvalidConfig.
func (c *Config) Build() (*sim.Simulator, sim.Config, error) {
	runCfg := sim.Config{
		Dt:          c.Dt,
		Steps:       c.Steps,
		OutputEvery: c.OutputEvery,
		Workers:     c.Workers,
	}

	var (
		d   *dem.Stepper
		m   *mpm.Stepper
		cpl *coupling.Layer
		err error
	)

	if c.DEM != nil {
		d, err = c.buildDEM()
		if err != nil {
			return nil, runCfg, fmt.Errorf("%w: dem: %v", sim.ErrInvalidConfig, err)
		}
	}
	if c.MPM != nil {
		m, err = c.buildMPM()
		if err != nil {
			return nil, runCfg, fmt.Errorf("%w: mpm: %v", sim.ErrInvalidConfig, err)
		}
	}
	if c.Coupling != nil {
		if d == nil || m == nil {
			return nil, runCfg, fmt.Errorf("%w: coupling needs both domains", sim.ErrInvalidConfig)
		}
		mode, perr := coupling.ParseMode(c.Coupling.Mode)
		if perr != nil {
			return nil, runCfg, fmt.Errorf("%w: %v", sim.ErrInvalidConfig, perr)
		}
		law, lerr := buildLaw(c.Coupling.Contact)
		if lerr != nil {
			return nil, runCfg, fmt.Errorf("%w: coupling: %v", sim.ErrInvalidConfig, lerr)
		}
		cpl = coupling.NewLayer(mode, law)
	}

	return sim.New(d, m, cpl), runCfg, nil
}

func buildLaw(cc ContactConfig) (contact.Law, error) {
	kind, err := contact.ParseLawKind(cc.Law)
	if err != nil {
		return contact.Law{}, err
	}
	return contact.Law{
		Kind:  kind,
		Kn:    cc.Kn,
		Kt:    cc.Kt,
		Mu:    cc.Mu,
		MuR:   cc.MuR,
		DampN: cc.DampN,
		DampT: cc.DampT,
		Emod:  cc.Emod,
		Gmod:  cc.Gmod,
	}, nil
}

func (c *Config) buildDEM() (*dem.Stepper, error) {
	dc := c.DEM
	scheme, err := dem.ParseScheme(dc.Scheme)
	if err != nil {
		return nil, err
	}
	law, err := buildLaw(dc.Contact)
	if err != nil {
		return nil, err
	}

	var particles []dem.Particle
	id := uint32(0)
	for _, s := range dc.Spheres {
		p := dem.NewSphere(id, vec(s.Pos), s.Radius, s.Mass)
		p.Vel = vec(s.Vel)
		particles = append(particles, p)
		id++
	}
	for _, cl := range dc.Clumps {
		if len(cl.Offsets) != len(cl.Radii) {
			return nil, fmt.Errorf("clump %d: %d offsets but %d radii", id, len(cl.Offsets), len(cl.Radii))
		}
		offsets := make([]geom.Vec3, len(cl.Offsets))
		for k, o := range cl.Offsets {
			offsets[k] = vec(o)
		}
		p := dem.NewClump(id, vec(cl.Pos), offsets, cl.Radii, cl.Mass)
		p.Vel = vec(cl.Vel)
		particles = append(particles, p)
		id++
	}
	if dc.Pack != nil {
		packed, perr := packSpheres(dc.Pack, c.Seed, id)
		if perr != nil {
			return nil, perr
		}
		particles = append(particles, packed...)
	}
	if len(particles) == 0 {
		return nil, fmt.Errorf("no particles")
	}

	cellSize := dc.CellSize
	if cellSize == 0 {
		maxRad := 0.0
		for i := range particles {
			if particles[i].Radius > maxRad {
				maxRad = particles[i].Radius
			}
		}
		cellSize = 4 * maxRad
	}

	st := dem.NewStepper(particles, cellSize)
	if dc.IndexThreshold > 0 {
		st.Index = cell.NewWithThreshold(len(particles), cellSize, dc.IndexThreshold)
	}
	st.Gravity = vec(c.Gravity)
	st.Law = law
	st.Scheme = scheme
	st.Workers = c.Workers

	for i, w := range dc.Walls {
		wid := uint32(i)
		if len(w.Vertices) > 0 {
			verts := make([]geom.Vec3, len(w.Vertices))
			for k, v := range w.Vertices {
				verts[k] = vec(v)
			}
			st.Walls = append(st.Walls, &boundary.Facet{Ident: wid, Vertices: verts, Vel: vec(w.Vel)})
			continue
		}
		n := vec(w.Normal)
		if n.Norm() == 0 {
			return nil, fmt.Errorf("wall %d: zero normal", i)
		}
		st.Walls = append(st.Walls, &boundary.Plane{
			Ident:  wid,
			Point:  vec(w.Point),
			Normal: n.Normalized(),
			Vel:    vec(w.Vel),
		})
	}
	return st, nil
}

// packSpheres fills the box with a jittered cubic lattice. The jitter
// uses the scene seed so identical configs produce identical scenes.
func packSpheres(pc *PackConfig, seed int64, firstID uint32) ([]dem.Particle, error) {
	if pc.Radius <= 0 || pc.Density <= 0 {
		return nil, fmt.Errorf("pack: radius and density must be positive")
	}
	pitch := pc.Spacing
	if pitch == 0 {
		pitch = 2.1 * pc.Radius
	}
	mass := pc.Density * 4.0 / 3.0 * math.Pi * pc.Radius * pc.Radius * pc.Radius
	rng := rand.New(rand.NewSource(seed))

	lo, hi := vec(pc.Lo), vec(pc.Hi)
	var out []dem.Particle
	id := firstID
	for x := lo.X + pc.Radius; x+pc.Radius <= hi.X; x += pitch {
		for y := lo.Y + pc.Radius; y+pc.Radius <= hi.Y; y += pitch {
			for z := lo.Z + pc.Radius; z+pc.Radius <= hi.Z; z += pitch {
				j := pc.Jitter * pc.Radius
				pos := geom.V(
					x+j*(2*rng.Float64()-1),
					y+j*(2*rng.Float64()-1),
					z+j*(2*rng.Float64()-1),
				)
				out = append(out, dem.NewSphere(id, pos, pc.Radius, mass))
				id++
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pack: box too small for radius %g", pc.Radius)
	}
	return out, nil
}

func (c *Config) buildMPM() (*mpm.Stepper, error) {
	mc := c.MPM
	scheme, err := mpm.ParseScheme(mc.Scheme)
	if err != nil {
		return nil, err
	}
	transfer, err := mpm.ParseTransfer(mc.Transfer)
	if err != nil {
		return nil, err
	}
	kind, err := material.ParseKind(mc.Material.Law)
	if err != nil {
		return nil, err
	}
	if mc.Grid.Spacing <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive")
	}
	for a, d := range mc.Grid.Dims {
		if d < 2 {
			return nil, fmt.Errorf("grid dims[%d] = %d, need at least 2 nodes", a, d)
		}
	}

	params := material.Params{
		Density:      mc.Material.Density,
		Young:        mc.Material.Young,
		Poisson:      mc.Material.Poisson,
		YieldStress:  mc.Material.YieldStress,
		HardeningMod: mc.Material.HardeningMod,
		Cohesion:     mc.Material.Cohesion,
		Friction:     mc.Material.Friction * math.Pi / 180,
		Dilation:     mc.Material.Dilation * math.Pi / 180,
		Tensile:      mc.Material.Tensile,
		CamM:         mc.Material.CamM,
		CamLambda:    mc.Material.CamLambda,
		CamKappa:     mc.Material.CamKappa,
		CamPc0:       mc.Material.CamPc0,
		Viscosity:    mc.Material.Viscosity,
		YieldTau:     mc.Material.YieldTau,
		FluidBulk:    mc.Material.FluidBulk,
		FluidGamma:   mc.Material.FluidGamma,
		RestDensity:  mc.Material.RestDensity,
	}
	params.Normalize()

	grid := mpm.NewGrid(vec(mc.Grid.Origin), mc.Grid.Spacing, mc.Grid.Dims)

	var points []mpm.Point
	if mc.Fill != nil {
		points, err = fillPoints(mc.Fill, grid, kind, &params)
		if err != nil {
			return nil, err
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no material points")
	}

	st := mpm.NewStepper(points, grid)
	st.Law = kind
	st.Mat = params
	st.Scheme = scheme
	st.Transfer = transfer
	if mc.FlipRatio > 0 {
		st.FlipRatio = mc.FlipRatio
	}
	st.Gravity = vec(c.Gravity)
	st.Workers = c.Workers
	st.BBar = mc.BBar
	st.SmoothAlpha = mc.SmoothAlpha
	if mc.Newmark.Beta > 0 {
		st.Beta = mc.Newmark.Beta
	}
	if mc.Newmark.Gamma > 0 {
		st.Gamma = mc.Newmark.Gamma
	}
	if mc.Newmark.Tol > 0 {
		st.NewtonTol = mc.Newmark.Tol
	}
	if mc.Newmark.Cap > 0 {
		st.NewtonCap = mc.Newmark.Cap
	}

	for _, dcf := range mc.Dirichlets {
		dk, derr := boundary.ParseDirichletKind(dcf.Kind)
		if derr != nil {
			return nil, derr
		}
		n := vec(dcf.Normal)
		if n.Norm() == 0 {
			return nil, fmt.Errorf("dirichlet: zero normal")
		}
		st.Dirichlets = append(st.Dirichlets, mpm.FaceCondition{
			Cond: boundary.Dirichlet{Kind: dk, Normal: n.Normalized(), Mu: dcf.Mu},
			Lo:   vec(dcf.Lo),
			Hi:   vec(dcf.Hi),
		})
	}
	for _, tc := range mc.Tractions {
		st.Tractions = append(st.Tractions, boundary.Traction{
			Lo: vec(tc.Lo), Hi: vec(tc.Hi), Force: vec(tc.Force),
		})
	}
	return st, nil
}

// fillPoints seeds the fill box with a regular lattice, n per cell
// edge, each point carrying the sub-cell volume and mass it tiles.
func fillPoints(fc *FillConfig, g *mpm.Grid, kind material.Kind, p *material.Params) ([]mpm.Point, error) {
	n := fc.PointsPerAxis
	if n <= 0 {
		n = 2
	}
	step := g.H / float64(n)
	vol := step * step * step
	mass := p.Density * vol

	lo, hi := vec(fc.Lo), vec(fc.Hi)
	var points []mpm.Point
	id := uint32(0)
	for x := lo.X + step/2; x < hi.X; x += step {
		for y := lo.Y + step/2; y < hi.Y; y += step {
			for z := lo.Z + step/2; z < hi.Z; z += step {
				points = append(points, mpm.NewPoint(id, geom.V(x, y, z), mass, vol, material.InitState(kind, p)))
				id++
			}
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("fill: box too small for spacing %g", step)
	}
	return points, nil
}
