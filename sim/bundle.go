package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"
)

// LoadOptions reads an options file on top of DefaultOptions and validates
// the result. The format is chosen from the extension: .yaml/.yml files are
// decoded strictly (unknown keys are errors), .ini/.cfg/.gcfg files must
// hold a [nonbonded] section.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("%w: reading options: %v", ErrConfig, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAMLOptions(data, &opts)
	case ".ini", ".cfg", ".gcfg":
		err = decodeINIOptions(data, &opts)
	default:
		return opts, ConfigErrorf("unrecognized options file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return opts, err
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("options file %s: %w", path, err)
	}
	return opts, nil
}

func decodeYAMLOptions(data []byte, opts *Options) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(opts); err != nil {
		return fmt.Errorf("%w: parsing options YAML: %v", ErrConfig, err)
	}
	return nil
}

// iniOptions mirrors Options for gcfg. Pointer fields distinguish unset
// variables from explicit zero values.
type iniOptions struct {
	Nonbonded struct {
		Cutoff                   *float64 `gcfg:"cutoff"`
		VdwCutoff                *float64 `gcfg:"vdwcutoff"`
		PairlistBuffer           *float64 `gcfg:"pairlistbuffer"`
		CombinationRule          *string  `gcfg:"combinationrule"`
		CoulombType              *string  `gcfg:"coulombtype"`
		TabulatedEwaldCorrection *bool    `gcfg:"tabulatedewald"`
		EwaldRTol                *float64 `gcfg:"ewaldrtol"`
		EpsilonR                 *float64 `gcfg:"epsilonr"`
		EpsilonRF                *float64 `gcfg:"epsilonrf"`
		LJEwald                  *bool    `gcfg:"ljewald"`
		LJEwaldRTol              *float64 `gcfg:"ljewaldrtol"`
		ComputeEnergies          *bool    `gcfg:"energies"`
		EnergyGroups             *int     `gcfg:"energygroups"`
		Threads                  *int     `gcfg:"threads"`
		Kernel                   *string  `gcfg:"kernel"`
		SimdWidth                *int     `gcfg:"simdwidth"`
	}
}

func decodeINIOptions(data []byte, opts *Options) error {
	var ini iniOptions
	if err := gcfg.ReadStringInto(&ini, string(data)); err != nil {
		return fmt.Errorf("%w: parsing options INI: %v", ErrConfig, err)
	}
	nb := ini.Nonbonded
	setFloat(&opts.CutoffRadius, nb.Cutoff)
	setFloat(&opts.VdwCutoffRadius, nb.VdwCutoff)
	setFloat(&opts.PairlistBuffer, nb.PairlistBuffer)
	setFloat(&opts.EwaldRTol, nb.EwaldRTol)
	setFloat(&opts.EpsilonR, nb.EpsilonR)
	setFloat(&opts.EpsilonRF, nb.EpsilonRF)
	setFloat(&opts.LJEwaldRTol, nb.LJEwaldRTol)
	if nb.CombinationRule != nil {
		opts.CombinationRule = CombinationRule(*nb.CombinationRule)
	}
	if nb.CoulombType != nil {
		opts.CoulombType = CoulombType(*nb.CoulombType)
	}
	if nb.Kernel != nil {
		opts.KernelLayout = KernelLayout(*nb.Kernel)
	}
	if nb.TabulatedEwaldCorrection != nil {
		opts.UseTabulatedEwaldCorrection = *nb.TabulatedEwaldCorrection
	}
	if nb.LJEwald != nil {
		opts.LJEwald = *nb.LJEwald
	}
	if nb.ComputeEnergies != nil {
		opts.ComputeEnergies = *nb.ComputeEnergies
	}
	if nb.EnergyGroups != nil {
		opts.NumEnergyGroups = *nb.EnergyGroups
	}
	if nb.Threads != nil {
		opts.NumThreads = *nb.Threads
	}
	if nb.SimdWidth != nil {
		opts.SimdWidth = *nb.SimdWidth
	}
	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
