package facetnav

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalArgument malformed query text or navigation input, never retried
	ErrIllegalArgument = errors.New("illegal argument")

	// ErrMultipleFacets more than one facet requested in one counting call
	ErrMultipleFacets = errors.New("counting more than one facet at a time is unsupported")
)

func illegalArgument(err error, format string, v ...interface{}) error {
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, v...), ErrIllegalArgument, err)
}
