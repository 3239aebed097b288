package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/san-kum/geomech/internal/contact"
	"github.com/san-kum/geomech/internal/coupling"
	"github.com/san-kum/geomech/internal/dem"
	"github.com/san-kum/geomech/internal/geom"
	"github.com/san-kum/geomech/internal/material"
	"github.com/san-kum/geomech/internal/mpm"
	"github.com/san-kum/geomech/internal/sim"
)

// Snapshot is the full restart state of a scene: kinematics, history
// spring tables and per-point material state. Restoring one and
// stepping on reproduces the interrupted run bit for bit.
type Snapshot struct {
	Step int     `json:"step"`
	Time float64 `json:"time"`

	Particles []ParticleState `json:"particles,omitempty"`
	Points    []PointState    `json:"points,omitempty"`

	PairHist     map[contact.PairKey]contact.Record `json:"pair_hist,omitempty"`
	WallHist     map[contact.PairKey]contact.Record `json:"wall_hist,omitempty"`
	CouplingHist map[contact.PairKey]contact.Record `json:"coupling_hist,omitempty"`
}

type ParticleState struct {
	ID     uint32    `json:"id"`
	Pos    geom.Vec3 `json:"pos"`
	Orient geom.Quat `json:"orient"`
	Vel    geom.Vec3 `json:"vel"`
	AngVel geom.Vec3 `json:"ang_vel"`

	// last-commit accelerations; the Verlet predictor half-kicks from
	// them, so a resumed run needs them to retrace the original
	Acc    geom.Vec3 `json:"acc"`
	AngAcc geom.Vec3 `json:"ang_acc"`
}

type PointState struct {
	ID     uint32         `json:"id"`
	Pos    geom.Vec3      `json:"pos"`
	Vel    geom.Vec3      `json:"vel"`
	F      geom.Mat3      `json:"f"`
	C      geom.Mat3      `json:"c"`
	Stress geom.Sym3      `json:"stress"`
	Volume float64        `json:"volume"`
	State  material.State `json:"state"`
}

// Capture records the current state of a simulator.
func Capture(s *sim.Simulator, step int, t float64) *Snapshot {
	snap := &Snapshot{Step: step, Time: t}
	if s.DEM != nil {
		lin, ang := s.DEM.AccelState()
		snap.Particles = make([]ParticleState, len(s.DEM.Particles))
		for i := range s.DEM.Particles {
			p := &s.DEM.Particles[i]
			snap.Particles[i] = ParticleState{
				ID: p.ID, Pos: p.Pos, Orient: p.Orient, Vel: p.Vel, AngVel: p.AngVel,
			}
			if lin != nil {
				snap.Particles[i].Acc = lin[i]
				snap.Particles[i].AngAcc = ang[i]
			}
		}
		snap.PairHist = s.DEM.Hist.Snapshot()
		snap.WallHist = s.DEM.WallHist.Snapshot()
	}
	if s.MPM != nil {
		snap.Points = make([]PointState, len(s.MPM.Points))
		for i := range s.MPM.Points {
			p := &s.MPM.Points[i]
			snap.Points[i] = PointState{
				ID: p.ID, Pos: p.Pos, Vel: p.Vel, F: p.F, C: p.C,
				Stress: p.Stress, Volume: p.Volume, State: p.State,
			}
		}
	}
	if s.Coupling != nil {
		snap.CouplingHist = s.Coupling.Hist.Snapshot()
	}
	return snap
}

// Apply writes the snapshot state back into a simulator built from the
// same scene config.
func Apply(snap *Snapshot, s *sim.Simulator) {
	if s.DEM != nil && len(snap.Particles) == len(s.DEM.Particles) {
		applyDEM(snap, s.DEM)
	}
	if s.MPM != nil && len(snap.Points) == len(s.MPM.Points) {
		applyMPM(snap, s.MPM)
	}
	if s.Coupling != nil && snap.CouplingHist != nil {
		applyCoupling(snap, s.Coupling)
	}
}

func applyDEM(snap *Snapshot, d *dem.Stepper) {
	lin := make([]geom.Vec3, len(snap.Particles))
	ang := make([]geom.Vec3, len(snap.Particles))
	for i, ps := range snap.Particles {
		p := &d.Particles[i]
		p.Pos, p.Orient, p.Vel, p.AngVel = ps.Pos, ps.Orient, ps.Vel, ps.AngVel
		lin[i], ang[i] = ps.Acc, ps.AngAcc
	}
	d.RestoreAccel(lin, ang)
	if snap.PairHist != nil {
		d.Hist.Restore(snap.PairHist)
	}
	if snap.WallHist != nil {
		d.WallHist.Restore(snap.WallHist)
	}
}

func applyMPM(snap *Snapshot, m *mpm.Stepper) {
	for i, ps := range snap.Points {
		p := &m.Points[i]
		p.Pos, p.Vel, p.F, p.C = ps.Pos, ps.Vel, ps.F, ps.C
		p.Stress, p.Volume, p.State = ps.Stress, ps.Volume, ps.State
	}
}

func applyCoupling(snap *Snapshot, c *coupling.Layer) {
	c.Hist.Restore(snap.CouplingHist)
}

// SaveSnapshot writes a restart file into a run directory.
func (s *Store) SaveSnapshot(runID string, snap *Snapshot) error {
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "snapshot.json"), snap)
}

// LoadSnapshot reads a run's restart file.
func (s *Store) LoadSnapshot(runID string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "snapshot.json"))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
