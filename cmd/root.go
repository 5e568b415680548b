package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/kernel"
	"github.com/nbforce/nbforce/sim/simd"
)

var (
	logLevel string // Log verbosity level

	// Engine options; applied on top of --options only when set explicitly
	optionsPath     string  // Options file (.yaml or .ini)
	cutoff          float64 // Coulomb cutoff (nm)
	vdwCutoff       float64 // LJ cutoff (nm), 0 = same as cutoff
	pairlistBuffer  float64 // Pair-list buffer (nm)
	coulombType     string  // Electrostatics family
	combinationRule string  // LJ combination rule
	tabulatedEwald  bool    // Tabulated instead of analytical Ewald correction
	ljEwald         bool    // LJ-PME grid correction
	noEnergies      bool    // Skip energy accumulation
	energyGroups    int     // Number of energy groups
	threads         int     // Worker threads
	kernelLayout    string  // Kernel cluster layout
	simdWidth       int     // float64 lanes per register, 0 = detect

	// Synthetic system and stepping
	systemKind string  // water or lj
	numMols    int     // Molecules (water) or atoms (lj)
	density    float64 // LJ number density (nm^-3)
	seed       int64   // Seed for system generation and displacements
	numSteps   int     // Force evaluations
	nstlist    int     // Steps between pair searches
	maxStep    float64 // Largest displacement per component per step (nm)
	format     string  // Report format
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "nbforce",
	Short: "Short-range non-bonded force engine for molecular dynamics",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd builds a synthetic system and runs force evaluations on it
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run force evaluations on a synthetic system",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := buildOptions(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		system, err := buildSystem(opts)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		report, err := runSteps(cmd.Context(), opts, system, stepConfig{
			Steps:   numSteps,
			NstList: nstlist,
			MaxStep: maxStep,
			Seed:    seed,
		})
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := report.Write(cmd.OutOrStdout(), format); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Run complete.")
	},
}

// kernelsCmd lists the compiled kernel variants
var kernelsCmd = &cobra.Command{
	Use:   "kernels",
	Short: "List the registered kernel variants and the detected SIMD level",
	Run: func(cmd *cobra.Command, args []string) {
		listKernels(cmd.OutOrStdout())
	},
}

func listKernels(w io.Writer) {
	level := simd.DetectLevel()
	fmt.Fprintf(w, "SIMD level: %s (%d float64 lanes)\n", level, level.RealWidth())
	for _, k := range kernel.Keys() {
		fmt.Fprintf(w, "  %-28s j-cluster %d\n", k, k.JSize())
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := sim.DefaultOptions()
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&optionsPath, "options", "", "Options file (.yaml/.yml, or .ini/.cfg/.gcfg with a [nonbonded] section)")
	runCmd.Flags().Float64Var(&cutoff, "cutoff", defaults.CutoffRadius, "Coulomb cutoff (nm)")
	runCmd.Flags().Float64Var(&vdwCutoff, "vdw-cutoff", defaults.VdwCutoffRadius, "LJ cutoff (nm), 0 uses --cutoff")
	runCmd.Flags().Float64Var(&pairlistBuffer, "pairlist-buffer", defaults.PairlistBuffer, "Pair-list buffer added to the cutoff (nm)")
	runCmd.Flags().StringVar(&coulombType, "coulomb", string(defaults.CoulombType), "Electrostatics: cutoff, reaction-field, ewald")
	runCmd.Flags().StringVar(&combinationRule, "combination-rule", string(defaults.CombinationRule), "LJ combination rule: none, geometric, lorentz-berthelot")
	runCmd.Flags().BoolVar(&tabulatedEwald, "tabulated-ewald", defaults.UseTabulatedEwaldCorrection, "Use the tabulated Ewald correction")
	runCmd.Flags().BoolVar(&ljEwald, "lj-ewald", defaults.LJEwald, "Add the LJ-PME grid correction")
	runCmd.Flags().BoolVar(&noEnergies, "no-energies", !defaults.ComputeEnergies, "Skip energy accumulation")
	runCmd.Flags().IntVar(&energyGroups, "energy-groups", defaults.NumEnergyGroups, "Number of energy groups, molecules assigned round-robin")
	runCmd.Flags().IntVar(&threads, "threads", defaults.NumThreads, "Worker threads, one pair-list partition each")
	runCmd.Flags().StringVar(&kernelLayout, "kernel", string(defaults.KernelLayout), "Kernel layout: auto, plain-c, 4xm, 2xmm")
	runCmd.Flags().IntVar(&simdWidth, "simd-width", defaults.SimdWidth, "float64 lanes per register (2, 4, 8), 0 detects")

	runCmd.Flags().StringVar(&systemKind, "system", "water", "Synthetic system: water, lj")
	runCmd.Flags().IntVar(&numMols, "molecules", 1000, "Water molecules or LJ atoms")
	runCmd.Flags().Float64Var(&density, "density", 20, "LJ fluid number density (nm^-3)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for system generation and displacements")
	runCmd.Flags().IntVar(&numSteps, "steps", 10, "Number of force evaluations")
	runCmd.Flags().IntVar(&nstlist, "nstlist", 10, "Steps between pair searches")
	runCmd.Flags().Float64Var(&maxStep, "max-step", 0.002, "Largest random displacement per component per step (nm)")
	runCmd.Flags().StringVar(&format, "format", "text", "Report format: text, yaml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(kernelsCmd)
}
