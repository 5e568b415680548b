package sim

import (
	"errors"
	"fmt"
)

// ErrConfig is wrapped by every configuration error: invalid option
// combinations, unsupported SIMD widths, non-positive cutoffs, bad thread
// counts and malformed option files. Such errors are fatal to a run.
var ErrConfig = errors.New("invalid configuration")

// ConfigErrorf returns an error wrapping ErrConfig with a formatted message.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
