// Package cell provides neighbor search over moving entities.
//
// Two implementations share the [Index] interface:
//
//   - [BruteForce]: O(n²) pairwise scan, exact, fine for small scenes
//   - [LinkedCell]: uniform grid with 27-cell stencil, near-linear rebuild
//
// Indexes hold candidate sets only; exact overlap tests happen downstream
// in the contact resolver. Both implementations iterate candidates in
// ascending id order so a step is deterministic regardless of which
// index is selected.
package cell

import (
	"fmt"

	"github.com/san-kum/geomech/internal/geom"
)

// Index answers neighbor queries against the positions passed to the
// last Build call. It must be rebuilt every step.
type Index interface {
	// Build refreshes the structure. Radii are bounding-sphere radii.
	Build(pos []geom.Vec3, radii []float64) error

	// ForEachNeighbor calls fn for every candidate j whose bounding
	// sphere may overlap entity i's sphere inflated by margin.
	// Candidates are reported in ascending j order; j == i is skipped.
	ForEachNeighbor(i int, margin float64, fn func(j int))

	// ForEachPoint calls fn for candidates near an arbitrary position,
	// used for cross-domain queries.
	ForEachPoint(p geom.Vec3, radius float64, fn func(j int))
}

// BruteForceThreshold is the default entity count above which New
// selects the linked-cell index.
const BruteForceThreshold = 256

// New picks an index implementation for the given scene size using the
// default threshold. cellSize only applies to the linked-cell variant;
// pass 0 to size it from the largest radius at build time.
func New(n int, cellSize float64) Index {
	return NewWithThreshold(n, cellSize, BruteForceThreshold)
}

// NewWithThreshold picks an implementation with a caller-chosen
// brute-force cutoff; threshold <= 0 means the default.
func NewWithThreshold(n int, cellSize float64, threshold int) Index {
	if threshold <= 0 {
		threshold = BruteForceThreshold
	}
	if n <= threshold {
		return NewBruteForce()
	}
	return NewLinkedCell(cellSize)
}

// BruteForce checks every pair. No spatial structure, never misses.
type BruteForce struct {
	pos   []geom.Vec3
	radii []float64
}

func NewBruteForce() *BruteForce { return &BruteForce{} }

func (b *BruteForce) Build(pos []geom.Vec3, radii []float64) error {
	if len(pos) != len(radii) {
		return fmt.Errorf("cell: %d positions but %d radii", len(pos), len(radii))
	}
	b.pos = pos
	b.radii = radii
	return nil
}

func (b *BruteForce) ForEachNeighbor(i int, margin float64, fn func(j int)) {
	pi := b.pos[i]
	ri := b.radii[i]
	for j := range b.pos {
		if j == i {
			continue
		}
		reach := ri + b.radii[j] + margin
		if b.pos[j].Sub(pi).Norm2() <= reach*reach {
			fn(j)
		}
	}
}

func (b *BruteForce) ForEachPoint(p geom.Vec3, radius float64, fn func(j int)) {
	for j := range b.pos {
		reach := radius + b.radii[j]
		if b.pos[j].Sub(p).Norm2() <= reach*reach {
			fn(j)
		}
	}
}
