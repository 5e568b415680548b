package kernel

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/force"
	"github.com/nbforce/nbforce/sim/internal/testutil"
	"github.com/nbforce/nbforce/sim/pairlist"
	"github.com/nbforce/nbforce/sim/params"
	"github.com/nbforce/nbforce/sim/simd"
)

func waterOptions(coulomb sim.CoulombType) sim.Options {
	opts := sim.DefaultOptions()
	opts.CutoffRadius = 0.9
	opts.CoulombType = coulomb
	opts.NumThreads = 3
	return opts
}

func sortedNames(m map[string]sim.Options) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// tolerances returns the absolute force and relative energy tolerance for a
// variant: the tabulated Ewald correction is accurate to ~1e-6 per pair,
// everything else to rounding.
func tolerances(key Key) (forceAbs, energyRel float64) {
	if key.Coulomb == CoulombEwaldTab {
		return 5e-2, 1e-4
	}
	return 1e-6, 1e-9
}

func TestKernels_MatchBruteForce(t *testing.T) {
	// GIVEN a water box with intramolecular exclusions
	p := waterProblem(4, 2.4, 1)
	for _, coulomb := range []sim.CoulombType{sim.CoulombCutoff, sim.CoulombReactionField, sim.CoulombEwald} {
		variants := layoutOptions(waterOptions(coulomb))
		for _, name := range sortedNames(variants) {
			opts := variants[name]
			t.Run(string(coulomb)+"/"+name, func(t *testing.T) {
				// WHEN forces are computed through the pair list and the kernel
				ev := evaluate(t, opts, p)
				wantF, wantE := bruteForce(opts, ev.ic, ev.table, p)

				// THEN forces and total energy match an all-pairs minimum image sum
				fAbs, eRel := tolerances(ev.key)
				testutil.AssertSliceNear(t, "forces", flatten(wantF), flatten(ev.out.Forces), fAbs, 1e-7)
				testutil.AssertFloat64Equal(t, "energy", wantE, ev.out.CoulombEnergy+ev.out.LJEnergy, eRel)
			})
		}
	}
}

func TestKernels_CombinationRulesMatchBruteForce(t *testing.T) {
	p := waterProblem(3, 2.1, 2)
	p.types = append(append([]params.ParticleType{}, testTypes...), params.ParticleType{Name: "NE", C6: 0.0014, C12: 2.2e-06})
	for i := range p.sys.Types {
		if i%6 == 0 {
			p.sys.Types[i] = 3
		}
		if i%9 == 0 && p.sys.Types[i] == 0 {
			p.sys.Types[i] = 2
		}
	}
	broken := params.InteractionMap{}
	broken.Set(0, 2, 0.004, 5e-06)

	tests := []struct {
		name      string
		rule      sim.CombinationRule
		overrides params.InteractionMap
		kernel    sim.CombinationRule
	}{
		{"geometric", sim.CombinationGeometric, nil, sim.CombinationGeometric},
		{"lorentz-berthelot", sim.CombinationLorentzBerthelot, nil, sim.CombinationLorentzBerthelot},
		{"table lookup", sim.CombinationGeometric, broken, sim.CombinationNone},
	}
	for _, tc := range tests {
		base := waterOptions(sim.CoulombReactionField)
		base.CombinationRule = tc.rule
		variants := layoutOptions(base)
		for _, name := range sortedNames(variants) {
			opts := variants[name]
			t.Run(tc.name+"/"+name, func(t *testing.T) {
				q := p
				q.overrides = tc.overrides
				ev := evaluate(t, opts, q)
				require.Equal(t, tc.kernel, ev.setup.LJRule)

				wantF, wantE := bruteForce(opts, ev.ic, ev.table, q)
				testutil.AssertSliceNear(t, "forces", flatten(wantF), flatten(ev.out.Forces), 1e-6, 1e-7)
				testutil.AssertFloat64Equal(t, "energy", wantE, ev.out.CoulombEnergy+ev.out.LJEnergy, 1e-9)
			})
		}
	}
}

func TestKernels_AllVariantsAgreeWithPlainC(t *testing.T) {
	// GIVEN LJ-Ewald on top of a reaction field
	p := waterProblem(4, 2.4, 3)
	base := waterOptions(sim.CoulombReactionField)
	base.LJEwald = true
	variants := layoutOptions(base)
	ref := evaluate(t, variants["plain-c"], p)
	for _, name := range sortedNames(variants) {
		t.Run(name, func(t *testing.T) {
			ev := evaluate(t, variants[name], p)
			testutil.AssertSliceNear(t, "forces", flatten(ref.out.Forces), flatten(ev.out.Forces), 1e-8, 1e-10)
			testutil.AssertFloat64Equal(t, "coulomb", ref.out.CoulombEnergy, ev.out.CoulombEnergy, 1e-11)
			testutil.AssertFloat64Equal(t, "lj", ref.out.LJEnergy, ev.out.LJEnergy, 1e-11)
			assert.Equal(t, ref.out.PairsWithinCutoff, ev.out.PairsWithinCutoff)
		})
	}
}

func TestKernels_NewtonThirdLaw(t *testing.T) {
	p := waterProblem(4, 2.4, 4)
	for _, coulomb := range []sim.CoulombType{sim.CoulombCutoff, sim.CoulombReactionField, sim.CoulombEwald} {
		variants := layoutOptions(waterOptions(coulomb))
		for _, name := range sortedNames(variants) {
			opts := variants[name]
			t.Run(string(coulomb)+"/"+name, func(t *testing.T) {
				ev := evaluate(t, opts, p)
				scale := testutil.MaxAbs(flatten(ev.out.Forces))
				require.Greater(t, scale, 0.0)
				net := netForce(ev.out.Forces)
				assert.InDelta(t, 0, net.X, 1e-10*scale*float64(len(ev.out.Forces)))
				assert.InDelta(t, 0, net.Y, 1e-10*scale*float64(len(ev.out.Forces)))
				assert.InDelta(t, 0, net.Z, 1e-10*scale*float64(len(ev.out.Forces)))
			})
		}
	}
}

func TestKernels_CutoffIsStrict(t *testing.T) {
	for _, name := range sortedNames(layoutOptions(sim.DefaultOptions())) {
		t.Run(name, func(t *testing.T) {
			opts := layoutOptions(waterOptions(sim.CoulombCutoff))[name]
			opts.CutoffRadius = 1.0

			// GIVEN two charged LJ atoms exactly one cutoff apart
			ev := evaluate(t, opts, pairProblem(1.0, 2, 2, 1, -1))
			// THEN they do not interact
			assert.Equal(t, r3.Vec{}, ev.out.Forces[0])
			assert.Equal(t, r3.Vec{}, ev.out.Forces[1])
			assert.Zero(t, ev.out.CoulombEnergy)
			assert.Zero(t, ev.out.LJEnergy)
			assert.Zero(t, ev.out.PairsWithinCutoff)

			// GIVEN the same atoms just inside the cutoff
			ev = evaluate(t, opts, pairProblem(1.0-1e-9, 2, 2, 1, -1))
			// THEN they attract
			assert.Greater(t, ev.out.Forces[0].X, 0.0)
			assert.Less(t, ev.out.Forces[1].X, 0.0)
			assert.Equal(t, int64(1), ev.out.PairsWithinCutoff)
		})
	}
}

func TestKernels_SelfPairContributesNothing(t *testing.T) {
	for _, coulomb := range []sim.CoulombType{sim.CoulombCutoff, sim.CoulombReactionField, sim.CoulombEwald} {
		variants := layoutOptions(waterOptions(coulomb))
		for _, name := range sortedNames(variants) {
			opts := variants[name]
			t.Run(string(coulomb)+"/"+name, func(t *testing.T) {
				// GIVEN one charged LJ atom listed against its own cluster
				table, err := params.BuildParameters(testTypes, nil, opts.CombinationRule)
				require.NoError(t, err)
				ic, err := params.NewInteractionConst(opts)
				require.NoError(t, err)
				d := NewDispatcher()
				require.NoError(t, d.Configure(opts, simd.AVX512, ic, table))
				sys := atomdata.System{Positions: []r3.Vec{{X: 1, Y: 1, Z: 1}}, Charges: []float64{1}, Types: []int{0}}
				ad, err := atomdata.New(sys, table, d.JSize(), 1)
				require.NoError(t, err)
				list := &pairlist.List{
					IEntries: []pairlist.IEntry{{CI: 0, Shift: pairlist.CentralShift, JStart: 0, JEnd: 1}},
					JEntries: []pairlist.JEntry{{CJ: 0, Excl: 0}},
					JSize:    d.JSize(),
				}
				out := force.NewThreadOutput(ad.NumPadded, pairlist.NumShifts, 1)

				// WHEN the kernel runs
				d.Kernel()(list, ad, pairlist.Shifts(sim.RectangularBox(4, 4, 4)), out)

				// THEN no force, energy or pair count results
				for i, f := range out.F {
					assert.Zero(t, f, "force component %d", i)
				}
				assert.Zero(t, out.VCoul)
				assert.Zero(t, out.VLJ)
				assert.Zero(t, out.PairsWithinCutoff)
			})
		}
	}
}

func TestKernels_OnlyTheClosePairInteracts(t *testing.T) {
	// GIVEN four atoms A_k far apart, B0 close to A0 and the other B_k far from everything
	sys := atomdata.System{Charges: make([]float64, 8), Types: make([]int, 8)}
	for k := 0; k < 4; k++ {
		sys.Positions = append(sys.Positions, r3.Vec{X: 1, Y: 1 + 2.5*float64(k), Z: 1})
	}
	sys.Positions = append(sys.Positions, r3.Vec{X: 1.5, Y: 1, Z: 1})
	for k := 1; k < 4; k++ {
		sys.Positions = append(sys.Positions, r3.Vec{X: 6, Y: 1 + 2.5*float64(k), Z: 6})
	}
	for i := range sys.Types {
		sys.Types[i] = 2
		sys.Charges[i] = 0.5 - float64(i%2)
	}
	p := problem{types: testTypes, sys: sys, box: sim.RectangularBox(10, 10, 10)}

	variants := layoutOptions(waterOptions(sim.CoulombEwald))
	for _, name := range sortedNames(variants) {
		opts := variants[name]
		opts.CutoffRadius = 1.0
		t.Run(name, func(t *testing.T) {
			ev := evaluate(t, opts, p)

			// THEN exactly one pair is within the cutoff and only A0 and B0 feel a force
			assert.Equal(t, int64(1), ev.out.PairsWithinCutoff)
			for i, f := range ev.out.Forces {
				if i == 0 || i == 4 {
					continue
				}
				assert.Equal(t, r3.Vec{}, f, "atom %d", i)
			}
			assert.NotZero(t, ev.out.Forces[0].X)
			assert.InDelta(t, 0, ev.out.Forces[0].X+ev.out.Forces[4].X, 1e-12*math.Abs(ev.out.Forces[0].X))
			assert.Zero(t, ev.out.Forces[0].Y)
			assert.Zero(t, ev.out.Forces[0].Z)
		})
	}
}

func TestKernels_ExcludedPairCorrection(t *testing.T) {
	const d = 0.1
	p := pairProblem(d, 2, 2, 1, -1)
	p.excl = [][2]int{{0, 1}}

	t.Run("ewald subtracts the erf part", func(t *testing.T) {
		variants := layoutOptions(waterOptions(sim.CoulombEwald))
		for _, name := range sortedNames(variants) {
			ev := evaluate(t, variants[name], p)
			want := -(-1) * ev.ic.EpsFac * math.Erf(ev.ic.EwaldBeta*d) / d
			_, eRel := tolerances(ev.key)
			testutil.AssertFloat64Equal(t, name+" coulomb", want, ev.out.CoulombEnergy, eRel)
			assert.Zero(t, ev.out.LJEnergy, name)
			assert.Zero(t, ev.out.PairsWithinCutoff, name)
			// The correction pushes opposite charges apart.
			assert.Less(t, ev.out.Forces[0].X, 0.0, name)
			assert.Equal(t, -ev.out.Forces[0].X, ev.out.Forces[1].X, name)
		}
	})

	t.Run("reaction field keeps its correction", func(t *testing.T) {
		variants := layoutOptions(waterOptions(sim.CoulombReactionField))
		for _, name := range sortedNames(variants) {
			ev := evaluate(t, variants[name], p)
			wantF, wantV := referenceExcluded(variants[name], ev.ic, -1, d)
			testutil.AssertFloat64Equal(t, name+" coulomb", wantV, ev.out.CoulombEnergy, 1e-12)
			testutil.AssertFloat64Equal(t, name+" force", -wantF, ev.out.Forces[0].X, 1e-12)
		}
	})

	t.Run("plain cutoff drops it", func(t *testing.T) {
		variants := layoutOptions(waterOptions(sim.CoulombCutoff))
		for _, name := range sortedNames(variants) {
			ev := evaluate(t, variants[name], p)
			assert.Equal(t, r3.Vec{}, ev.out.Forces[0], name)
			assert.Equal(t, r3.Vec{}, ev.out.Forces[1], name)
			assert.Zero(t, ev.out.CoulombEnergy, name)
			assert.Zero(t, ev.out.LJEnergy, name)
		}
	})
}

func TestKernels_TabulatedEwaldMatchesAnalytical(t *testing.T) {
	p := waterProblem(4, 2.4, 5)
	analytical := waterOptions(sim.CoulombEwald)
	tabulated := analytical
	tabulated.UseTabulatedEwaldCorrection = true

	a := evaluate(t, analytical, p)
	b := evaluate(t, tabulated, p)
	require.Equal(t, CoulombEwaldAnalytical, a.key.Coulomb)
	require.Equal(t, CoulombEwaldTab, b.key.Coulomb)
	testutil.AssertSliceNear(t, "forces", flatten(a.out.Forces), flatten(b.out.Forces), 5e-2, 1e-5)
	testutil.AssertFloat64Equal(t, "coulomb", a.out.CoulombEnergy, b.out.CoulombEnergy, 1e-5)
	assert.Equal(t, a.out.LJEnergy, b.out.LJEnergy)
}

func TestKernels_ForceIsEnergyGradient(t *testing.T) {
	const h = 1e-6
	ljEwald := waterOptions(sim.CoulombEwald)
	ljEwald.LJEwald = true
	vdwCut := waterOptions(sim.CoulombReactionField)
	vdwCut.VdwCutoffRadius = 0.8
	cases := map[string]sim.Options{
		"cutoff":         waterOptions(sim.CoulombCutoff),
		"reaction-field": waterOptions(sim.CoulombReactionField),
		"ewald":          waterOptions(sim.CoulombEwald),
		"lj-ewald":       ljEwald,
		"vdw-cutoff":     vdwCut,
	}
	for _, name := range sortedNames(cases) {
		for _, r := range []float64{0.3, 0.45, 0.7} {
			opts := cases[name]
			energy := func(d float64) float64 {
				ev := evaluate(t, opts, pairProblem(d, 0, 2, 0.6, -0.4))
				return ev.out.CoulombEnergy + ev.out.LJEnergy
			}
			// GIVEN the force on the second atom of a pair
			ev := evaluate(t, opts, pairProblem(r, 0, 2, 0.6, -0.4))
			// THEN it equals minus the central difference of the energy
			fd := -(energy(r+h) - energy(r-h)) / (2 * h)
			testutil.AssertFloat64Equal(t, name, fd, ev.out.Forces[1].X, 1e-6)
		}
	}
}

func TestKernels_EnergyGroupsSumToTotal(t *testing.T) {
	p := waterProblem(4, 2.4, 6)
	single := waterOptions(sim.CoulombEwald)
	grouped := single
	grouped.NumEnergyGroups = 3

	for _, layout := range []string{"plain-c", "4x4", "2x(4+4)"} {
		t.Run(layout, func(t *testing.T) {
			a := evaluate(t, layoutOptions(single)[layout], p)
			b := evaluate(t, layoutOptions(grouped)[layout], p)
			require.NotNil(t, b.out.GroupCoulomb)
			require.Nil(t, a.out.GroupCoulomb)

			testutil.AssertFloat64Equal(t, "coulomb", a.out.CoulombEnergy, b.out.CoulombEnergy, 1e-11)
			testutil.AssertFloat64Equal(t, "lj", a.out.LJEnergy, b.out.LJEnergy, 1e-11)
			// Forces do not depend on energy bookkeeping.
			assert.Equal(t, a.out.Forces, b.out.Forces)
			// Molecules in different groups interact, so off-diagonal blocks are populated.
			assert.NotZero(t, b.out.GroupCoulomb.At(0, 1))
			assert.NotZero(t, b.out.GroupLJ.At(1, 2))
		})
	}
}

func TestKernels_GroupEnergiesMatchBruteForce(t *testing.T) {
	// GIVEN molecules spread over three energy groups
	p := waterProblem(4, 2.4, 10)
	base := waterOptions(sim.CoulombReactionField)
	base.NumEnergyGroups = 3
	variants := layoutOptions(base)
	for _, name := range sortedNames(variants) {
		opts := variants[name]
		t.Run(name, func(t *testing.T) {
			// WHEN the kernel fills the group matrices
			ev := evaluate(t, opts, p)
			wantC, wantLJ := bruteForceGroups(opts, ev.ic, ev.table, p, 3)

			// THEN every group pair holds exactly its own interactions
			for a := 0; a < 3; a++ {
				for b := a; b < 3; b++ {
					want, got := wantC.At(a, b), ev.out.GroupCoulomb.At(a, b)
					assert.InDelta(t, want, got, 1e-9*math.Max(1, math.Abs(want)), "coulomb %d-%d", a, b)
					want, got = wantLJ.At(a, b), ev.out.GroupLJ.At(a, b)
					assert.InDelta(t, want, got, 1e-9*math.Max(1, math.Abs(want)), "lj %d-%d", a, b)
				}
			}
		})
	}
}

func TestKernels_EnergiesOffLeavesForces(t *testing.T) {
	p := waterProblem(3, 2.1, 7)
	on := waterOptions(sim.CoulombEwald)
	off := on
	off.ComputeEnergies = false
	a := evaluate(t, on, p)
	b := evaluate(t, off, p)
	assert.Equal(t, a.out.Forces, b.out.Forces)
	assert.Zero(t, b.out.CoulombEnergy)
	assert.Zero(t, b.out.LJEnergy)
}

func TestKernels_DeterministicForFixedThreadCount(t *testing.T) {
	p := waterProblem(4, 2.4, 8)
	opts := waterOptions(sim.CoulombEwald)
	opts.NumThreads = 4
	a := evaluate(t, opts, p)
	b := evaluate(t, opts, p)
	assert.Equal(t, a.out.Forces, b.out.Forces)
	assert.Equal(t, a.out.CoulombEnergy, b.out.CoulombEnergy)
	assert.Equal(t, a.out.LJEnergy, b.out.LJEnergy)
	assert.True(t, mat.Equal(a.out.Virial, b.out.Virial))

	// Other thread counts only differ by summation order.
	opts.NumThreads = 1
	c := evaluate(t, opts, p)
	testutil.AssertSliceNear(t, "forces", flatten(a.out.Forces), flatten(c.out.Forces), 1e-9, 1e-12)
	testutil.AssertFloat64Equal(t, "coulomb", a.out.CoulombEnergy, c.out.CoulombEnergy, 1e-12)
}

func TestKernels_VirialAcrossPeriodicBoundary(t *testing.T) {
	// GIVEN two LJ atoms 0.4 nm apart through the x boundary
	p := problem{
		types: testTypes,
		box:   sim.RectangularBox(6, 6, 6),
		sys: atomdata.System{
			Positions: []r3.Vec{{X: 0.2, Y: 1, Z: 1}, {X: 5.8, Y: 1, Z: 1}},
			Charges:   []float64{0, 0},
			Types:     []int{2, 2},
		},
	}
	for _, name := range sortedNames(layoutOptions(sim.DefaultOptions())) {
		opts := layoutOptions(waterOptions(sim.CoulombCutoff))[name]
		ev := evaluate(t, opts, p)
		f := ev.out.Forces[0].X
		require.NotZero(t, f, name)
		// THEN the virial uses the minimum image separation
		assert.InDelta(t, -0.5*0.4*f, ev.out.Virial.At(0, 0), 1e-9*math.Abs(f), name)
		assert.InDelta(t, 0, ev.out.Virial.At(1, 1), 1e-12, name)
	}
}

func TestKernels_CoulombOffIgnoresCharges(t *testing.T) {
	p := waterProblem(3, 2.1, 9)
	p.sys.EnergyGroups = nil
	opts := waterOptions(sim.CoulombEwald)
	table, err := params.BuildParameters(p.types, nil, opts.CombinationRule)
	require.NoError(t, err)
	ic, err := params.NewInteractionConst(opts)
	require.NoError(t, err)
	d := NewDispatcher()
	require.NoError(t, d.Configure(opts, simd.AVX2, ic, table))
	d.SetCoulomb(false)
	assert.False(t, d.Setup().Coulomb)

	ad, err := atomdata.New(p.sys, table, d.JSize(), 1)
	require.NoError(t, err)
	excl, err := pairlist.NewExclusions(len(p.sys.Positions), p.excl)
	require.NoError(t, err)
	set, err := pairlist.Build(context.Background(), ad, p.box, excl, pairlist.Params{RList: ic.RList, JSize: d.JSize(), NumLists: 1, KeepExcluded: true})
	require.NoError(t, err)
	out := force.NewThreadOutput(ad.NumPadded, pairlist.NumShifts, 1)
	d.Kernel()(set.Lists[0], ad, pairlist.Shifts(p.box), out)

	assert.Zero(t, out.VCoul)
	assert.NotZero(t, out.VLJ)
}

func TestDispatcher_ForceOnlyKernelSkipsEnergies(t *testing.T) {
	// GIVEN a dispatcher configured with energies and energy groups
	p := waterProblem(3, 2.1, 11)
	opts := waterOptions(sim.CoulombEwald)
	opts.NumEnergyGroups = 3
	table, err := params.BuildParameters(p.types, nil, opts.CombinationRule)
	require.NoError(t, err)
	ic, err := params.NewInteractionConst(opts)
	require.NoError(t, err)
	d := NewDispatcher()
	require.NoError(t, d.Configure(opts, simd.AVX2, ic, table))

	ad, err := atomdata.New(p.sys, table, d.JSize(), 3)
	require.NoError(t, err)
	excl, err := pairlist.NewExclusions(len(p.sys.Positions), p.excl)
	require.NoError(t, err)
	set, err := pairlist.Build(context.Background(), ad, p.box, excl, pairlist.Params{RList: ic.RList, JSize: d.JSize(), NumLists: 1, KeepExcluded: true})
	require.NoError(t, err)
	shifts := pairlist.Shifts(p.box)

	// WHEN the full and the force-only variants run on the same list
	full := force.NewThreadOutput(ad.NumPadded, pairlist.NumShifts, 3)
	bare := force.NewThreadOutput(ad.NumPadded, pairlist.NumShifts, 3)
	d.Kernel()(set.Lists[0], ad, shifts, full)
	d.ForceOnlyKernel()(set.Lists[0], ad, shifts, bare)

	// THEN forces agree and only the full variant fills the group matrices
	assert.Equal(t, full.F, bare.F)
	assert.Equal(t, full.FShift, bare.FShift)
	assert.Equal(t, full.PairsWithinCutoff, bare.PairsWithinCutoff)
	assert.NotZero(t, testutil.MaxAbs(full.GroupCoul))
	assert.Zero(t, testutil.MaxAbs(bare.GroupCoul))
	assert.Zero(t, testutil.MaxAbs(bare.GroupLJ))
	assert.True(t, d.Setup().Energies)
}
