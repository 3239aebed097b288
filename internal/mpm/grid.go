package mpm

import (
	"github.com/san-kum/geomech/internal/geom"
)

// Grid is the transient background lattice. Node arrays are fully
// recomputed every step; nodes have no cross-step identity.
type Grid struct {
	Origin geom.Vec3
	H      float64 // node spacing
	Dims   [3]int  // node counts per axis

	Mass  []float64
	Mom   []geom.Vec3 // momentum during P2G, velocity after divide
	Vel   []geom.Vec3
	Force []geom.Vec3

	active []int
}

// NewGrid allocates node storage for a lattice of dims nodes.
func NewGrid(origin geom.Vec3, h float64, dims [3]int) *Grid {
	n := dims[0] * dims[1] * dims[2]
	return &Grid{
		Origin: origin,
		H:      h,
		Dims:   dims,
		Mass:   make([]float64, n),
		Mom:    make([]geom.Vec3, n),
		Vel:    make([]geom.Vec3, n),
		Force:  make([]geom.Vec3, n),
	}
}

// Reset clears node state for a new step.
func (g *Grid) Reset() {
	for _, idx := range g.active {
		g.Mass[idx] = 0
		g.Mom[idx] = geom.Vec3{}
		g.Vel[idx] = geom.Vec3{}
		g.Force[idx] = geom.Vec3{}
	}
	if len(g.active) == 0 {
		for i := range g.Mass {
			g.Mass[i] = 0
			g.Mom[i] = geom.Vec3{}
			g.Vel[i] = geom.Vec3{}
			g.Force[i] = geom.Vec3{}
		}
	}
	g.active = g.active[:0]
}

// NodePos returns the world position of node idx.
func (g *Grid) NodePos(idx int) geom.Vec3 {
	nx, ny := g.Dims[0], g.Dims[1]
	k := idx / (nx * ny)
	rem := idx % (nx * ny)
	j := rem / nx
	i := rem % nx
	return g.Origin.Add(geom.V(float64(i), float64(j), float64(k)).Scale(g.H))
}

// Active returns node indices that received mass this step, in
// ascending order.
func (g *Grid) Active() []int { return g.active }

// Contains reports whether p lies on the lattice. Written so NaN
// coordinates also fail.
func (g *Grid) Contains(p geom.Vec3) bool {
	hx := g.Origin.X + g.H*float64(g.Dims[0]-1)
	hy := g.Origin.Y + g.H*float64(g.Dims[1]-1)
	hz := g.Origin.Z + g.H*float64(g.Dims[2]-1)
	return p.X >= g.Origin.X && p.X <= hx &&
		p.Y >= g.Origin.Y && p.Y <= hy &&
		p.Z >= g.Origin.Z && p.Z <= hz
}

// ForEachNode visits the 8 nodes of the cell containing p with linear
// hat weights and their gradients. The caller keeps p on the lattice
// (BeginStep rejects escaped points); the clamp only settles points
// sitting exactly on the upper boundary into the last cell.
func (g *Grid) ForEachNode(p geom.Vec3, fn func(idx int, w float64, grad geom.Vec3)) {
	inv := 1 / g.H
	fx := (p.X - g.Origin.X) * inv
	fy := (p.Y - g.Origin.Y) * inv
	fz := (p.Z - g.Origin.Z) * inv

	i0 := clamp(int(fx), g.Dims[0]-2)
	j0 := clamp(int(fy), g.Dims[1]-2)
	k0 := clamp(int(fz), g.Dims[2]-2)

	tx := fx - float64(i0)
	ty := fy - float64(j0)
	tz := fz - float64(k0)

	wx := [2]float64{1 - tx, tx}
	wy := [2]float64{1 - ty, ty}
	wz := [2]float64{1 - tz, tz}
	dx := [2]float64{-inv, inv}

	nx, ny := g.Dims[0], g.Dims[1]
	for c := 0; c < 2; c++ {
		for b := 0; b < 2; b++ {
			for a := 0; a < 2; a++ {
				idx := ((k0+c)*ny+(j0+b))*nx + (i0 + a)
				w := wx[a] * wy[b] * wz[c]
				grad := geom.V(
					dx[a]*wy[b]*wz[c],
					wx[a]*dx[b]*wz[c],
					wx[a]*wy[b]*dx[c],
				)
				fn(idx, w, grad)
			}
		}
	}
}

// CellOf returns the flat cell id containing p, for cell-local
// stabilization averaging.
func (g *Grid) CellOf(p geom.Vec3) int {
	inv := 1 / g.H
	i := clamp(int((p.X-g.Origin.X)*inv), g.Dims[0]-2)
	j := clamp(int((p.Y-g.Origin.Y)*inv), g.Dims[1]-2)
	k := clamp(int((p.Z-g.Origin.Z)*inv), g.Dims[2]-2)
	return (k*g.Dims[1]+j)*g.Dims[0] + i
}

func (g *Grid) markActive(idx int) {
	g.active = append(g.active, idx)
}

func clamp(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
