package workload

import (
	"hash/fnv"
	"math/rand"
)

// Seed identifies a reproducible synthetic system. Two generators called
// with the same Seed and arguments produce bit-for-bit identical systems.
type Seed int64

const (
	// SubsystemLattice jitters molecule positions off their lattice sites.
	// Uses the seed directly.
	SubsystemLattice = "lattice"
	// SubsystemOrientation draws molecule orientations.
	SubsystemOrientation = "orientation"
	// SubsystemVelocities draws displacements for the synthetic MD steps of
	// the CLI.
	SubsystemVelocities = "velocities"
)

// PartitionedRNG provides deterministic, isolated RNG streams per subsystem,
// so adding draws to one stream never changes another.
//
// Derivation: SubsystemLattice uses the seed directly, every other name uses
// seed XOR fnv1a64(name).
//
// Not safe for concurrent use.
type PartitionedRNG struct {
	seed       Seed
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG.
func NewPartitionedRNG(seed Seed) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the cached stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derived := int64(p.seed)
	if name != SubsystemLattice {
		derived ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(derived))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the seed the streams derive from.
func (p *PartitionedRNG) Seed() Seed { return p.seed }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
