// Package atomdata packs particle data into the cluster layout the pair
// kernels read: per-atom structure-of-arrays in input order, padded so that
// both the 4-atom i-clusters and the j-clusters of the selected layout tile
// the arrays exactly.
package atomdata

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nbforce/nbforce/sim"
	"github.com/nbforce/nbforce/sim/params"
)

// IClusterSize is the number of atoms in an i-cluster for every layout.
const IClusterSize = 4

// paddingOffset places padding atoms far outside any realistic box; each
// padding atom is offset further so no two share a position.
const paddingOffset = -1e5

// System is the per-particle input of the engine.
type System struct {
	Positions    []r3.Vec  // nm
	Charges      []float64 // e
	Types        []int     // LJ type index into the parameter table
	EnergyGroups []int     // nil puts every particle in group 0
}

// Validate checks array lengths and indices against numTypes and numGroups.
func (s System) Validate(numTypes, numGroups int) error {
	n := len(s.Positions)
	if n == 0 {
		return sim.ConfigErrorf("atomdata: empty system")
	}
	if len(s.Charges) != n || len(s.Types) != n {
		return sim.ConfigErrorf("atomdata: %d positions but %d charges and %d types", n, len(s.Charges), len(s.Types))
	}
	if s.EnergyGroups != nil && len(s.EnergyGroups) != n {
		return sim.ConfigErrorf("atomdata: %d positions but %d energy groups", n, len(s.EnergyGroups))
	}
	for i, t := range s.Types {
		if t < 0 || t >= numTypes {
			return sim.ConfigErrorf("atomdata: atom %d has type %d, want [0,%d)", i, t, numTypes)
		}
	}
	for i, g := range s.EnergyGroups {
		if g < 0 || g >= numGroups {
			return sim.ConfigErrorf("atomdata: atom %d has energy group %d, want [0,%d)", i, g, numGroups)
		}
	}
	return nil
}

// AtomData is the packed, kernel-facing particle store. Coordinates change
// between force evaluations through SetCoordinates; everything else is fixed
// for the lifetime of the object.
type AtomData struct {
	NumAtoms  int // real atoms
	NumPadded int // real plus padding atoms
	JSize     int // atoms per j-cluster

	X, Y, Z     []float64
	Q           []float64
	Type        []int
	LJComb      []float64 // 2 per atom, for Table.KernelRule(); nil for table lookup
	LJGrid      []float64 // sqrt(6*C6_ii) per atom
	EnergyGroup []int
	Real        []bool

	NumEnergyGroups int
	Table           *params.Table
}

// New packs sys for j-clusters of jSize atoms. jSize must be 2, 4 or 8.
func New(sys System, table *params.Table, jSize, numGroups int) (*AtomData, error) {
	if jSize != 2 && jSize != 4 && jSize != 8 {
		return nil, sim.ConfigErrorf("atomdata: unsupported j-cluster size %d", jSize)
	}
	if numGroups < 1 || numGroups > sim.MaxEnergyGroups {
		return nil, sim.ConfigErrorf("atomdata: energy group count %d out of range", numGroups)
	}
	if err := sys.Validate(table.NumTypes(), numGroups); err != nil {
		return nil, err
	}
	n := len(sys.Positions)
	block := max(IClusterSize, jSize)
	padded := (n + block - 1) / block * block

	ad := &AtomData{
		NumAtoms:        n,
		NumPadded:       padded,
		JSize:           jSize,
		X:               make([]float64, padded),
		Y:               make([]float64, padded),
		Z:               make([]float64, padded),
		Q:               make([]float64, padded),
		Type:            make([]int, padded),
		LJGrid:          make([]float64, padded),
		EnergyGroup:     make([]int, padded),
		Real:            make([]bool, padded),
		NumEnergyGroups: numGroups,
		Table:           table,
	}
	comb := table.LJComb(table.KernelRule())
	if comb != nil {
		ad.LJComb = make([]float64, 2*padded)
	}
	grid := table.LJGrid()
	for i := 0; i < padded; i++ {
		t := table.PaddingType()
		if i < n {
			t = sys.Types[i]
			ad.Q[i] = sys.Charges[i]
			ad.Real[i] = true
			if sys.EnergyGroups != nil {
				ad.EnergyGroup[i] = sys.EnergyGroups[i]
			}
		}
		ad.Type[i] = t
		ad.LJGrid[i] = grid[t]
		if comb != nil {
			ad.LJComb[2*i] = comb[2*t]
			ad.LJComb[2*i+1] = comb[2*t+1]
		}
	}
	if err := ad.SetCoordinates(sys.Positions); err != nil {
		return nil, err
	}
	return ad, nil
}

// SetCoordinates replaces the positions of the real atoms. Padding atoms keep
// their far-away positions.
func (ad *AtomData) SetCoordinates(pos []r3.Vec) error {
	if len(pos) != ad.NumAtoms {
		return fmt.Errorf("atomdata: got %d positions, want %d", len(pos), ad.NumAtoms)
	}
	for i, p := range pos {
		ad.X[i], ad.Y[i], ad.Z[i] = p.X, p.Y, p.Z
	}
	for i := ad.NumAtoms; i < ad.NumPadded; i++ {
		off := paddingOffset * float64(i-ad.NumAtoms+1)
		ad.X[i], ad.Y[i], ad.Z[i] = off, off, off
	}
	return nil
}

// Position returns the position of atom i.
func (ad *AtomData) Position(i int) r3.Vec {
	return r3.Vec{X: ad.X[i], Y: ad.Y[i], Z: ad.Z[i]}
}

// NumIClusters returns the number of 4-atom i-clusters.
func (ad *AtomData) NumIClusters() int { return ad.NumPadded / IClusterSize }

// NumJClusters returns the number of j-clusters.
func (ad *AtomData) NumJClusters() int { return ad.NumPadded / ad.JSize }

// IRange returns the atom range [start, end) of i-cluster ci.
func (ad *AtomData) IRange(ci int) (start, end int) {
	return ci * IClusterSize, (ci + 1) * IClusterSize
}

// JRange returns the atom range [start, end) of j-cluster cj.
func (ad *AtomData) JRange(cj int) (start, end int) {
	return cj * ad.JSize, (cj + 1) * ad.JSize
}
