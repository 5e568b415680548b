//go:build !amd64 && !arm64

package simd

func detectCPU() Level {
	return Scalar
}
