package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/nbv"
	"github.com/nbforce/nbforce/sim/workload"
)

// stepConfig controls the synthetic MD loop of the run command.
type stepConfig struct {
	Steps   int
	NstList int
	MaxStep float64 // nm per component
	Seed    int64
}

// StepReport holds the observables of one force evaluation.
type StepReport struct {
	Step          int     `yaml:"step"`
	Search        bool    `yaml:"search"`
	CoulombEnergy float64 `yaml:"coulomb_energy"`
	LJEnergy      float64 `yaml:"lj_energy"`
	VirialTrace   float64 `yaml:"virial_trace"`
	Pairs         int64   `yaml:"pairs_within_cutoff"`
}

// Report summarizes a run.
type Report struct {
	System      string       `yaml:"system"`
	Atoms       int          `yaml:"atoms"`
	BoxVolume   float64      `yaml:"box_volume"`
	Kernel      string       `yaml:"kernel"`
	SimdLevel   string       `yaml:"simd_level"`
	Threads     int          `yaml:"threads"`
	PairEntries int          `yaml:"cluster_pairs"`
	StepTimeMs  float64      `yaml:"mean_step_ms"`
	Steps       []StepReport `yaml:"steps"`
}

// runSteps sets up an engine for system and runs cfg.Steps force
// evaluations, searching every cfg.NstList steps and moving the particles by
// random displacements in between.
func runSteps(ctx context.Context, opts sim.Options, system *workload.System, cfg stepConfig) (*Report, error) {
	if cfg.Steps < 1 || cfg.NstList < 1 {
		return nil, sim.ConfigErrorf("steps and nstlist must be positive, got %d and %d", cfg.Steps, cfg.NstList)
	}
	e, err := nbv.New(opts, nbv.Topology{
		Types:      system.Types,
		System:     system.Particles,
		Exclusions: system.Exclusions,
	}, system.Box)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	rng := workload.NewPartitionedRNG(workload.Seed(cfg.Seed)).ForSubsystem(workload.SubsystemVelocities)
	report := &Report{
		System:    system.Name,
		Atoms:     len(system.Particles.Positions),
		BoxVolume: system.Box.Volume(),
		Kernel:    e.Kernel().String(),
		SimdLevel: e.Level().String(),
		Threads:   opts.NumThreads,
	}
	flags := nbv.FlagVirial
	if opts.ComputeEnergies {
		flags |= nbv.FlagEnergies
	}

	positions := system.Particles.Positions
	var elapsed time.Duration
	for step := 0; step < cfg.Steps; step++ {
		if step > 0 {
			moved := *system
			moved.Particles.Positions = positions
			positions = moved.Displace(rng, cfg.MaxStep)
			if err := e.UpdateCoordinates(positions); err != nil {
				return nil, err
			}
		}
		start := time.Now()
		search := step%cfg.NstList == 0
		if search {
			if err := e.Search(ctx); err != nil {
				return nil, err
			}
		}
		out := e.ComputeForces(flags)
		elapsed += time.Since(start)
		report.Steps = append(report.Steps, stepReport(step, search, out))
		logrus.Debugf("[run] step %d: Coulomb %.4f LJ %.4f kJ/mol", step, out.CoulombEnergy, out.LJEnergy)
	}
	report.PairEntries = e.NumPairEntries()
	report.StepTimeMs = float64(elapsed.Microseconds()) / 1000 / float64(cfg.Steps)
	return report, nil
}

func stepReport(step int, search bool, out *force.Outcome) StepReport {
	r := StepReport{
		Step:          step,
		Search:        search,
		CoulombEnergy: out.CoulombEnergy,
		LJEnergy:      out.LJEnergy,
		Pairs:         out.PairsWithinCutoff,
	}
	if out.Virial != nil {
		r.VirialTrace = out.Virial.At(0, 0) + out.Virial.At(1, 1) + out.Virial.At(2, 2)
	}
	return r
}

// Write prints the report as a table ("text") or as YAML.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return enc.Close()
	case "text":
		fmt.Fprintln(w, "=== Non-bonded Force Run ===")
		fmt.Fprintf(w, "System               : %s, %d atoms, %.3f nm^3\n", r.System, r.Atoms, r.BoxVolume)
		fmt.Fprintf(w, "Kernel               : %s (SIMD level %s, %d threads)\n", r.Kernel, r.SimdLevel, r.Threads)
		fmt.Fprintf(w, "Cluster pairs        : %d\n", r.PairEntries)
		fmt.Fprintf(w, "Mean step time       : %.3f ms\n", r.StepTimeMs)
		fmt.Fprintf(w, "%6s %6s %16s %16s %16s %10s\n", "step", "search", "E_coul", "E_lj", "tr(virial)", "pairs")
		for _, s := range r.Steps {
			fmt.Fprintf(w, "%6d %6v %16.4f %16.4f %16.4f %10d\n",
				s.Step, s.Search, s.CoulombEnergy, s.LJEnergy, s.VirialTrace, s.Pairs)
		}
		return nil
	default:
		return sim.ConfigErrorf("unknown report format %q, want text or yaml", format)
	}
}
