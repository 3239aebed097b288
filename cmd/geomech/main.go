package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/geomech/internal/config"
	"github.com/san-kum/geomech/internal/metrics"
	"github.com/san-kum/geomech/internal/sim"
	"github.com/san-kum/geomech/internal/storage"
	"github.com/san-kum/geomech/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	steps      int
	workers    int
	seed       int64
	noSave     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "geomech",
		Short: "coupled granular and continuum geomechanics lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".geomech", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene",
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "skip writing the run directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with a live monitor",
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a run from its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeScene,
	}
	addSceneFlags(resumeCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot mean speed over a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark a scene",
		RunE:  benchScene,
	}
	addSceneFlags(benchCmd)

	rootCmd.AddCommand(runCmd, liveCmd, resumeCmd, listCmd, plotCmd, exportCmd, presetsCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "scene preset name")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep override")
	cmd.Flags().IntVar(&steps, "steps", 0, "step count override")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count override")
	cmd.Flags().Int64Var(&seed, "seed", 0, "packing seed override")
}

// loadScene resolves preset, config file and flag overrides, flags
// winning over the file.
func loadScene(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			names := config.ListPresets()
			sort.Strings(names)
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, names)
		}
	case configFile != "":
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load scene: %w", err)
		}
	default:
		return nil, fmt.Errorf("need --preset or --config")
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	return cfg, nil
}

func defaultMetrics(s *sim.Simulator) {
	s.AddMetric(metrics.NewEnergyDrift())
	s.AddMetric(metrics.NewMomentumDrift())
	s.AddMetric(metrics.NewPeakContacts())
	s.AddMetric(metrics.NewMeanKineticEnergy())
	s.AddMetric(metrics.NewFallbacks())
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	simulator, runCfg, err := cfg.Build()
	if err != nil {
		return err
	}
	defaultMetrics(simulator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s...\n", cfg.Name)
	result, runErr := simulator.Run(ctx, runCfg)
	if result == nil {
		return runErr
	}

	fmt.Printf("completed %d steps in %v\n", result.StepsTaken, result.Elapsed.Round(time.Millisecond))
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Name, cfg.Dt, cfg.Steps, cfg.Seed, result)
		if err != nil {
			return err
		}
		t := float64(result.StepsTaken) * cfg.Dt
		if err := st.SaveSnapshot(runID, storage.Capture(simulator, result.StepsTaken, t)); err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	simulator, runCfg, err := cfg.Build()
	if err != nil {
		return err
	}
	defaultMetrics(simulator)

	obs := viz.NewChanObserver()
	simulator.AddObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, runErr := simulator.Run(ctx, runCfg)
		done <- runErr
	}()

	model := viz.NewModel(cfg.Name, runCfg.Steps, obs.Ch, done)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return err
	}
	cancel()
	return nil
}

func resumeScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	simulator, runCfg, err := cfg.Build()
	if err != nil {
		return err
	}
	defaultMetrics(simulator)

	st := storage.New(dataDir)
	snap, err := st.LoadSnapshot(args[0])
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	storage.Apply(snap, simulator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("resuming %s from step %d...\n", cfg.Name, snap.Step)
	result, runErr := simulator.Run(ctx, runCfg)
	if result == nil {
		return runErr
	}
	fmt.Printf("completed %d steps in %v\n", result.StepsTaken, result.Elapsed.Round(time.Millisecond))

	runID, err := st.Save(cfg.Name, cfg.Dt, cfg.Steps, cfg.Seed, result)
	if err != nil {
		return err
	}
	t := snap.Time + float64(result.StepsTaken)*cfg.Dt
	if err := st.SaveSnapshot(runID, storage.Capture(simulator, snap.Step+result.StepsTaken, t)); err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return runErr
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tSTEPS\tDT\tELAPSED\tWHEN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%.2fs\t%s\n",
			r.ID, r.Scene, r.StepsTaken, r.Dt, r.ElapsedSec,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	rows, times, err := st.LoadPoints(args[0])
	caption := "mean point speed"
	if err != nil {
		rows, times, err = st.LoadParticles(args[0])
		caption = "mean particle speed"
	}
	if err != nil {
		return fmt.Errorf("no frame data for run %s: %w", args[0], err)
	}
	if len(rows) == 0 {
		fmt.Println("(no data)")
		return nil
	}

	// rows hold [id x y z vx vy vz ...]; aggregate to mean speed per frame
	speed := make(map[float64][]float64)
	var order []float64
	for i, row := range rows {
		if len(row) < 7 {
			continue
		}
		t := times[i]
		if _, ok := speed[t]; !ok {
			order = append(order, t)
		}
		v := row[4]*row[4] + row[5]*row[5] + row[6]*row[6]
		speed[t] = append(speed[t], v)
	}
	series := make([]float64, 0, len(order))
	for _, t := range order {
		sum := 0.0
		for _, v := range speed[t] {
			sum += v
		}
		mean := sum / float64(len(speed[t]))
		series = append(series, math.Sqrt(mean))
	}

	fmt.Println(viz.Plot(series, caption, 14, 72))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	cfg.OutputEvery = 0
	simulator, runCfg, err := cfg.Build()
	if err != nil {
		return err
	}

	result, runErr := simulator.Run(context.Background(), runCfg)
	if runErr != nil {
		return runErr
	}
	perStep := result.Elapsed / time.Duration(result.StepsTaken)
	fmt.Printf("%s: %d steps in %v (%v/step, %.0f steps/s)\n",
		cfg.Name, result.StepsTaken, result.Elapsed.Round(time.Millisecond),
		perStep, float64(time.Second)/float64(perStep))
	return nil
}
