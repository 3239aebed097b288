package contact

import "github.com/san-kum/geomech/internal/geom"

// PairKey identifies an unordered entity pair.
type PairKey uint64

// Key builds the canonical key for ids a and b.
func Key(a, b uint32) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey(uint64(a)<<32 | uint64(b))
}

// crossBit marks the second id of a mixed-kind pair so it can never
// alias an id from the first kind's space.
const crossBit uint32 = 1 << 31

// CrossKey builds the key for a pair drawn from two different id
// spaces (particle-wall, particle-point). a keeps its id, b is offset
// into a disjoint range.
func CrossKey(a, b uint32) PairKey {
	return Key(a, b|crossBit)
}

// Record holds the spring state a contact carries across steps. It is
// only meaningful while the pair stays geometrically in contact.
type Record struct {
	TangOverlap geom.Vec3 // accumulated tangential spring displacement
	RollAngle   geom.Vec3 // accumulated relative rolling, for rolling resistance
	touched     bool
}

// History stores per-pair spring state across steps. Records are pooled
// on a free list so steady-state stepping does not allocate.
type History struct {
	live map[PairKey]*Record
	pool []*Record
}

func NewHistory() *History {
	return &History{live: make(map[PairKey]*Record)}
}

// Lookup returns the record for a pair, creating a zeroed one for new
// contacts. New-pair springs start at zero by definition.
func (h *History) Lookup(k PairKey) *Record {
	if r, ok := h.live[k]; ok {
		r.touched = true
		return r
	}
	var r *Record
	if n := len(h.pool); n > 0 {
		r = h.pool[n-1]
		h.pool = h.pool[:n-1]
		*r = Record{}
	} else {
		r = &Record{}
	}
	r.touched = true
	h.live[k] = r
	return r
}

// Sweep drops every record not touched since the last sweep. Called
// once per step after contact resolution so separated pairs lose their
// history exactly when overlap goes non-positive.
func (h *History) Sweep() {
	for k, r := range h.live {
		if !r.touched {
			delete(h.live, k)
			h.pool = append(h.pool, r)
			continue
		}
		r.touched = false
	}
}

// Len reports the number of live records.
func (h *History) Len() int { return len(h.live) }

// Snapshot returns the live records for restart serialization.
func (h *History) Snapshot() map[PairKey]Record {
	out := make(map[PairKey]Record, len(h.live))
	for k, r := range h.live {
		out[k] = Record{TangOverlap: r.TangOverlap, RollAngle: r.RollAngle}
	}
	return out
}

// Restore replaces the table contents from a snapshot.
func (h *History) Restore(snap map[PairKey]Record) {
	for k, r := range h.live {
		delete(h.live, k)
		h.pool = append(h.pool, r)
	}
	for k, rec := range snap {
		r := h.Lookup(k)
		r.TangOverlap = rec.TangOverlap
		r.RollAngle = rec.RollAngle
		r.touched = false
	}
}
