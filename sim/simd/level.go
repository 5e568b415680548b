package simd

import (
	"os"
	"strconv"
)

// Level is the SIMD instruction set the kernels are dispatched for.
type Level int

const (
	// Scalar means no vector unit is used; the plain-c kernel is selected.
	Scalar Level = iota
	// SSE2 is the x86-64 baseline, 128-bit registers.
	SSE2
	// AVX2 has 256-bit registers.
	AVX2
	// AVX512 has 512-bit registers.
	AVX512
	// NEON is the 128-bit ARMv8 vector unit.
	NEON
)

// NoSimdEnv names the environment variable that forces Scalar.
const NoSimdEnv = "NBFORCE_NO_SIMD"

// String returns the lower-case instruction set name.
func (l Level) String() string {
	switch l {
	case Scalar:
		return "scalar"
	case SSE2:
		return "sse2"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	case NEON:
		return "neon"
	default:
		return "unknown"
	}
}

// RealWidth returns the number of float64 lanes of one register, or 1 for
// Scalar.
func (l Level) RealWidth() int {
	switch l {
	case SSE2, NEON:
		return 2
	case AVX2:
		return 4
	case AVX512:
		return 8
	default:
		return 1
	}
}

// DetectLevel returns the best level supported by the running CPU, or
// Scalar when NBFORCE_NO_SIMD is set to a true value.
func DetectLevel() Level {
	if simdDisabled() {
		return Scalar
	}
	return detectCPU()
}

func simdDisabled() bool {
	val := os.Getenv(NoSimdEnv)
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}
