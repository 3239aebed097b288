// Package storage persists runs: per-run directories of metadata and
// frame CSVs, plus JSON restart snapshots.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/geomech/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	StepsTaken int                `json:"steps_taken"`
	Fallbacks  int64              `json:"fallbacks"`
	ElapsedSec float64            `json:"elapsed_sec"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes one run directory: metadata.json, particles.csv,
// points.csv and chains.csv (each only when the run produced that
// kind of data). Returns the run id.
func (s *Store) Save(scene string, dt float64, steps int, seed int64, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", scene, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Scene:      scene,
		Timestamp:  time.Now(),
		Seed:       seed,
		Dt:         dt,
		Steps:      steps,
		StepsTaken: result.StepsTaken,
		Fallbacks:  result.Fallbacks,
		ElapsedSec: result.Elapsed.Seconds(),
		Metrics:    result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	hasParticles, hasPoints, hasChains := false, false, false
	for _, f := range result.Frames {
		hasParticles = hasParticles || len(f.Particles) > 0
		hasPoints = hasPoints || len(f.Points) > 0
		hasChains = hasChains || len(f.Chains) > 0
	}

	if hasParticles {
		if err := s.writeParticles(filepath.Join(runDir, "particles.csv"), result.Frames); err != nil {
			return "", err
		}
	}
	if hasPoints {
		if err := s.writePoints(filepath.Join(runDir, "points.csv"), result.Frames); err != nil {
			return "", err
		}
	}
	if hasChains {
		if err := s.writeChains(filepath.Join(runDir, "chains.csv"), result.Frames); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ff(v float64) string { return strconv.FormatFloat(v, 'g', 9, 64) }

func (s *Store) writeParticles(path string, frames []sim.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"step", "time", "id", "x", "y", "z", "vx", "vy", "vz", "qw", "qx", "qy", "qz"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, fr := range frames {
		for _, p := range fr.Particles {
			row := []string{
				strconv.Itoa(fr.Step), ff(fr.Time), strconv.FormatUint(uint64(p.ID), 10),
				ff(p.Pos.X), ff(p.Pos.Y), ff(p.Pos.Z),
				ff(p.Vel.X), ff(p.Vel.Y), ff(p.Vel.Z),
				ff(p.Orient.W), ff(p.Orient.X), ff(p.Orient.Y), ff(p.Orient.Z),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) writePoints(path string, frames []sim.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"step", "time", "id", "x", "y", "z", "vx", "vy", "vz",
		"sxx", "syy", "szz", "sxy", "syz", "szx"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, fr := range frames {
		for _, p := range fr.Points {
			row := []string{
				strconv.Itoa(fr.Step), ff(fr.Time), strconv.FormatUint(uint64(p.ID), 10),
				ff(p.Pos.X), ff(p.Pos.Y), ff(p.Pos.Z),
				ff(p.Vel.X), ff(p.Vel.Y), ff(p.Vel.Z),
				ff(p.Stress[0]), ff(p.Stress[1]), ff(p.Stress[2]),
				ff(p.Stress[3]), ff(p.Stress[4]), ff(p.Stress[5]),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) writeChains(path string, frames []sim.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"step", "time", "a", "b", "fn"}); err != nil {
		return err
	}
	for _, fr := range frames {
		for _, c := range fr.Chains {
			row := []string{
				strconv.Itoa(fr.Step), ff(fr.Time),
				strconv.FormatUint(uint64(c.A), 10), strconv.FormatUint(uint64(c.B), 10),
				ff(c.Fn),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadPoints reads the points.csv of a run back as (rows, times).
// Each row is the numeric tail of one CSV record.
func (s *Store) LoadPoints(runID string) ([][]float64, []float64, error) {
	return s.loadCSV(filepath.Join(s.baseDir, runID, "points.csv"))
}

// LoadParticles reads the particles.csv of a run.
func (s *Store) LoadParticles(runID string) ([][]float64, []float64, error) {
	return s.loadCSV(filepath.Join(s.baseDir, runID, "particles.csv"))
}

func (s *Store) loadCSV(path string) ([][]float64, []float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		row := make([]float64, 0, len(record)-2)
		for _, field := range record[2:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, val)
		}
		rows = append(rows, row)
	}
	return rows, times, nil
}
