// Package limits holds the output-size ceilings an encoded image must respect
// and the arithmetic used to check them.
package limits

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidConstraints is returned when no ceiling is supplied or a supplied
// ceiling is not positive.
var ErrInvalidConstraints = errors.New("invalid size constraints")

// Constraints are the output-size ceilings. A nil field means the ceiling is
// absent. When both are present both must hold.
type Constraints struct {
	MaxBinaryBytes *int
	MaxBase64Chars *int
}

// Int returns a pointer to n, for building Constraints literals.
func Int(n int) *int {
	return &n
}

// Validate checks that at least one ceiling is present and that every
// present ceiling is positive.
func (c Constraints) Validate() error {
	if c.MaxBinaryBytes == nil && c.MaxBase64Chars == nil {
		return errors.Wrap(ErrInvalidConstraints, "at least one of max binary bytes or max base64 chars is required")
	}
	if c.MaxBinaryBytes != nil && *c.MaxBinaryBytes <= 0 {
		return errors.Wrapf(ErrInvalidConstraints, "max binary bytes must be positive, got %d", *c.MaxBinaryBytes)
	}
	if c.MaxBase64Chars != nil && *c.MaxBase64Chars <= 0 {
		return errors.Wrapf(ErrInvalidConstraints, "max base64 chars must be positive, got %d", *c.MaxBase64Chars)
	}
	return nil
}

// Allows reports whether an encoding of binaryLen bytes fits every present
// ceiling.
func (c Constraints) Allows(binaryLen int) bool {
	if c.MaxBinaryBytes != nil && binaryLen > *c.MaxBinaryBytes {
		return false
	}
	if c.MaxBase64Chars != nil && EstimateBase64Length(binaryLen) > *c.MaxBase64Chars {
		return false
	}
	return true
}

// String renders the ceilings for logs.
func (c Constraints) String() string {
	bin, b64 := "none", "none"
	if c.MaxBinaryBytes != nil {
		bin = fmt.Sprintf("%d", *c.MaxBinaryBytes)
	}
	if c.MaxBase64Chars != nil {
		b64 = fmt.Sprintf("%d", *c.MaxBase64Chars)
	}
	return fmt.Sprintf("max_bytes=%s max_base64=%s", bin, b64)
}

// EstimateBase64Length returns the length of the padded standard base64
// encoding of n bytes, without line breaks.
func EstimateBase64Length(n int) int {
	return ((n + 2) / 3) * 4
}
