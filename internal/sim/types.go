// Package sim coordinates the per-step physics pipeline over the DEM
// and MPM domains and the coupling layer between them.
//
// The per-step order is fixed: boundary contact first, then the
// cross-domain coupling pass, then DEM pair contact, then both domains
// commit. Output and metrics observe state strictly between steps.
package sim

import (
	"time"

	"github.com/san-kum/geomech/internal/dem"
	"github.com/san-kum/geomech/internal/geom"
)

// Config is the per-run configuration consumed by Run.
type Config struct {
	Dt          float64
	Steps       int
	OutputEvery int // record a frame every N steps; 0 disables frames
	Workers     int
}

// Stats is the per-step summary handed to metrics and observers.
type Stats struct {
	Step          int
	Time          float64
	KineticEnergy float64
	Momentum      geom.Vec3
	Contacts      int
	Fallbacks     int64
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(s Stats)
	Value() float64
	Reset()
}

// Observer sees the per-step summary; used by live views.
type Observer interface {
	OnStep(s Stats)
}

// ParticleFrame is a per-particle output record.
type ParticleFrame struct {
	ID     uint32    `json:"id"`
	Pos    geom.Vec3 `json:"pos"`
	Vel    geom.Vec3 `json:"vel"`
	Orient geom.Quat `json:"orient"`
}

// PointFrame is a per-material-point output record.
type PointFrame struct {
	ID     uint32    `json:"id"`
	Pos    geom.Vec3 `json:"pos"`
	Vel    geom.Vec3 `json:"vel"`
	Stress geom.Sym3 `json:"stress"`
}

// Frame is one recorded snapshot interval.
type Frame struct {
	Step      int              `json:"step"`
	Time      float64          `json:"time"`
	Particles []ParticleFrame  `json:"particles,omitempty"`
	Points    []PointFrame     `json:"points,omitempty"`
	Chains    []dem.ForceChain `json:"chains,omitempty"`
}

// Result collects everything a run produced.
type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	Fallbacks  int64
	StepsTaken int
	Elapsed    time.Duration
}
