package cell

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/geomech/internal/geom"
)

// LinkedCell bins entities into a uniform grid and restricts queries to
// the 27 cells surrounding the query cell. The cell edge must be at
// least twice the largest entity diameter or neighbors could be missed
// across cell boundaries; Build enforces this.
type LinkedCell struct {
	cellSize float64
	origin   geom.Vec3
	dims     [3]int

	pos   []geom.Vec3
	radii []float64

	// heads[c] is the first entity in cell c, next[i] chains the rest.
	heads []int
	next  []int

	// sizeStore is the effective cell size chosen during Build; kept
	// separate from cellSize so auto-sizing does not stick across runs.
	sizeStore float64
}

func NewLinkedCell(cellSize float64) *LinkedCell {
	return &LinkedCell{cellSize: cellSize}
}

func (l *LinkedCell) Build(pos []geom.Vec3, radii []float64) error {
	if len(pos) != len(radii) {
		return fmt.Errorf("cell: %d positions but %d radii", len(pos), len(radii))
	}
	l.pos = pos
	l.radii = radii
	if len(pos) == 0 {
		l.heads = l.heads[:0]
		return nil
	}

	maxRad := 0.0
	lo := pos[0]
	hi := pos[0]
	for i, p := range pos {
		if radii[i] > maxRad {
			maxRad = radii[i]
		}
		lo = geom.V(math.Min(lo.X, p.X), math.Min(lo.Y, p.Y), math.Min(lo.Z, p.Z))
		hi = geom.V(math.Max(hi.X, p.X), math.Max(hi.Y, p.Y), math.Max(hi.Z, p.Z))
	}

	size := l.cellSize
	if size <= 0 {
		size = 4 * maxRad
	}
	if size < 4*maxRad {
		return fmt.Errorf("cell: cell size %g below required %g (2x largest diameter %g)",
			size, 4*maxRad, 2*maxRad)
	}

	l.origin = lo
	for a, span := range [3]float64{hi.X - lo.X, hi.Y - lo.Y, hi.Z - lo.Z} {
		l.dims[a] = int(span/size) + 1
	}

	nc := l.dims[0] * l.dims[1] * l.dims[2]
	if cap(l.heads) < nc {
		l.heads = make([]int, nc)
	}
	l.heads = l.heads[:nc]
	for i := range l.heads {
		l.heads[i] = -1
	}
	if cap(l.next) < len(pos) {
		l.next = make([]int, len(pos))
	}
	l.next = l.next[:len(pos)]

	l.sizeStore = size
	for i, p := range pos {
		c := l.cellOf(p)
		l.next[i] = l.heads[c]
		l.heads[c] = i
	}
	return nil
}

func (l *LinkedCell) cellOf(p geom.Vec3) int {
	ix := clampIdx(int((p.X-l.origin.X)/l.sizeStore), l.dims[0])
	iy := clampIdx(int((p.Y-l.origin.Y)/l.sizeStore), l.dims[1])
	iz := clampIdx(int((p.Z-l.origin.Z)/l.sizeStore), l.dims[2])
	return (iz*l.dims[1]+iy)*l.dims[0] + ix
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (l *LinkedCell) ForEachNeighbor(i int, margin float64, fn func(j int)) {
	pi := l.pos[i]
	ri := l.radii[i]
	l.scan(pi, func(j int) bool {
		if j == i {
			return false
		}
		reach := ri + l.radii[j] + margin
		return l.pos[j].Sub(pi).Norm2() <= reach*reach
	}, fn)
}

func (l *LinkedCell) ForEachPoint(p geom.Vec3, radius float64, fn func(j int)) {
	l.scan(p, func(j int) bool {
		reach := radius + l.radii[j]
		return l.pos[j].Sub(p).Norm2() <= reach*reach
	}, fn)
}

// scan walks the 27-cell stencil around p, collects passing candidates
// and reports them sorted so iteration order matches BruteForce.
func (l *LinkedCell) scan(p geom.Vec3, keep func(j int) bool, fn func(j int)) {
	if len(l.heads) == 0 {
		return
	}
	cx := clampIdx(int((p.X-l.origin.X)/l.sizeStore), l.dims[0])
	cy := clampIdx(int((p.Y-l.origin.Y)/l.sizeStore), l.dims[1])
	cz := clampIdx(int((p.Z-l.origin.Z)/l.sizeStore), l.dims[2])

	var found []int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				ix, iy, iz := cx+dx, cy+dy, cz+dz
				if ix < 0 || iy < 0 || iz < 0 || ix >= l.dims[0] || iy >= l.dims[1] || iz >= l.dims[2] {
					continue
				}
				c := (iz*l.dims[1]+iy)*l.dims[0] + ix
				for j := l.heads[c]; j >= 0; j = l.next[j] {
					if keep(j) {
						found = append(found, j)
					}
				}
			}
		}
	}
	sort.Ints(found)
	for _, j := range found {
		fn(j)
	}
}
