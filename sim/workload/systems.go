// Package workload generates deterministic synthetic particle systems for the
// CLI, benchmarks and tests: rigid 3-site water and a one-component LJ
// fluid, both in cubic periodic boxes.
package workload

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/atomdata"
	"github.com/nbforce/nbforce/sim/params"
)

// SPC-like water geometry and parameters.
const (
	waterDensity = 33.4 // molecules per nm^3 at 300 K
	bondOH       = 0.1  // nm
	angleHOH     = 109.47 * math.Pi / 180
	chargeO      = -0.82
	chargeH      = 0.41
)

// WaterTypes are the LJ types of the water model: oxygen carries all LJ
// interaction, hydrogen none.
var WaterTypes = []params.ParticleType{
	{Name: "OW", C6: 0.0026173456, C12: 2.634129e-06},
	{Name: "HW", C6: 0, C12: 0},
}

// ArgonType is the LJ type of the argon fluid.
var ArgonType = params.ParticleType{Name: "AR", C6: 0.0062, C12: 9.7e-06}

// System is a generated particle system.
type System struct {
	Name       string
	Types      []params.ParticleType
	Particles  atomdata.System
	Exclusions [][2]int
	Box        sim.Box
	Molecule   []int // molecule index per particle
}

// NumMolecules returns the number of molecules.
func (s *System) NumMolecules() int {
	if len(s.Molecule) == 0 {
		return 0
	}
	return s.Molecule[len(s.Molecule)-1] + 1
}

// AssignEnergyGroups spreads molecules round-robin over n energy groups.
// n <= 1 clears the assignment.
func (s *System) AssignEnergyGroups(n int) {
	if n <= 1 {
		s.Particles.EnergyGroups = nil
		return
	}
	s.Particles.EnergyGroups = make([]int, len(s.Molecule))
	for i, m := range s.Molecule {
		s.Particles.EnergyGroups[i] = m % n
	}
}

// Displace moves every particle by a random vector of at most maxStep nm per
// component and returns the new positions without changing s.
func (s *System) Displace(rng *rand.Rand, maxStep float64) []r3.Vec {
	out := make([]r3.Vec, len(s.Particles.Positions))
	for i, p := range s.Particles.Positions {
		out[i] = r3.Add(p, r3.Vec{
			X: maxStep * (2*rng.Float64() - 1),
			Y: maxStep * (2*rng.Float64() - 1),
			Z: maxStep * (2*rng.Float64() - 1),
		})
	}
	return out
}

// WaterBox returns n water molecules at liquid density, on a jittered cubic
// lattice with random orientations. Intramolecular pairs are excluded.
func WaterBox(n int, seed Seed) (*System, error) {
	if n < 1 {
		return nil, sim.ConfigErrorf("workload: water box needs at least one molecule, got %d", n)
	}
	rngs := NewPartitionedRNG(seed)
	edge := math.Cbrt(float64(n) / waterDensity)
	s := &System{
		Name:  "water",
		Types: WaterTypes,
		Box:   sim.RectangularBox(edge, edge, edge),
	}
	sites := latticeSites(n, edge, rngs.ForSubsystem(SubsystemLattice), 0.05)
	orient := rngs.ForSubsystem(SubsystemOrientation)
	for m, o := range sites {
		h1, h2 := waterHydrogens(orient)
		base := len(s.Particles.Positions)
		for _, p := range []r3.Vec{o, r3.Add(o, h1), r3.Add(o, h2)} {
			s.Particles.Positions = append(s.Particles.Positions, s.Box.Wrap(p))
		}
		s.Particles.Charges = append(s.Particles.Charges, chargeO, chargeH, chargeH)
		s.Particles.Types = append(s.Particles.Types, 0, 1, 1)
		s.Molecule = append(s.Molecule, m, m, m)
		s.Exclusions = append(s.Exclusions,
			[2]int{base, base + 1}, [2]int{base, base + 2}, [2]int{base + 1, base + 2})
	}
	return s, nil
}

// waterHydrogens returns the two O-H bond vectors of a randomly rotated
// molecule.
func waterHydrogens(rng *rand.Rand) (r3.Vec, r3.Vec) {
	u := randomUnit(rng)
	// A unit vector perpendicular to u.
	v := r3.Cross(u, randomUnit(rng))
	for r3.Norm(v) < 1e-3 {
		v = r3.Cross(u, randomUnit(rng))
	}
	v = r3.Unit(v)
	half := angleHOH / 2
	a := r3.Scale(bondOH*math.Cos(half), u)
	b := r3.Scale(bondOH*math.Sin(half), v)
	return r3.Add(a, b), r3.Sub(a, b)
}

// LJFluid returns n argon atoms at the given number density (nm^-3) on a
// jittered cubic lattice. Argon is uncharged.
func LJFluid(n int, density float64, seed Seed) (*System, error) {
	if n < 1 {
		return nil, sim.ConfigErrorf("workload: LJ fluid needs at least one atom, got %d", n)
	}
	if !(density > 0) {
		return nil, sim.ConfigErrorf("workload: density must be positive, got %g", density)
	}
	rngs := NewPartitionedRNG(seed)
	edge := math.Cbrt(float64(n) / density)
	s := &System{
		Name:  "lj-fluid",
		Types: []params.ParticleType{ArgonType},
		Box:   sim.RectangularBox(edge, edge, edge),
	}
	jitter := 0.1 * edge / math.Ceil(math.Cbrt(float64(n)))
	for m, p := range latticeSites(n, edge, rngs.ForSubsystem(SubsystemLattice), jitter) {
		s.Particles.Positions = append(s.Particles.Positions, s.Box.Wrap(p))
		s.Particles.Charges = append(s.Particles.Charges, 0)
		s.Particles.Types = append(s.Particles.Types, 0)
		s.Molecule = append(s.Molecule, m)
	}
	return s, nil
}

// latticeSites returns the first n sites of the smallest cubic lattice with at
// least n sites in a box of the given edge, each moved by up to jitter nm per
// component.
func latticeSites(n int, edge float64, rng *rand.Rand, jitter float64) []r3.Vec {
	side := int(math.Ceil(math.Cbrt(float64(n)) - 1e-9))
	spacing := edge / float64(side)
	sites := make([]r3.Vec, 0, n)
	for ix := 0; ix < side && len(sites) < n; ix++ {
		for iy := 0; iy < side && len(sites) < n; iy++ {
			for iz := 0; iz < side && len(sites) < n; iz++ {
				sites = append(sites, r3.Vec{
					X: (float64(ix)+0.5)*spacing + jitter*(2*rng.Float64()-1),
					Y: (float64(iy)+0.5)*spacing + jitter*(2*rng.Float64()-1),
					Z: (float64(iz)+0.5)*spacing + jitter*(2*rng.Float64()-1),
				})
			}
		}
	}
	return sites
}

func randomUnit(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1, Z: 2*rng.Float64() - 1}
		if n := r3.Norm(v); n > 0.1 && n <= 1 {
			return r3.Scale(1/n, v)
		}
	}
}
