package embedding

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is a deployment-level misconfiguration: the model's
// native output width differs from the configured dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DimensionMismatchError carries the configured and observed widths.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
