package cluster

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for malformed matrices, out-of-range k values
// and mismatched dimensions. Callers match it with errors.Is; the wrapped
// message carries the specifics.
var ErrInvalidInput = errors.New("cluster: invalid input")

// invalidInputf wraps ErrInvalidInput with a formatted description.
func invalidInputf(format string, args ...any) error {
	return fmt.Errorf("cluster: "+format+": %w", append(args, ErrInvalidInput)...)
}
