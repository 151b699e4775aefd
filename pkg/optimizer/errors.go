package optimizer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCompressionExhausted is matched by every ExhaustedError.
var ErrCompressionExhausted = errors.New("compression exhausted")

// ExhaustedError reports that no quality at any tried resolution satisfied
// the ceilings.
type ExhaustedError struct {
	// MinQuality is the quality floor that was searched down to.
	MinQuality int
	// FinalSize is the last maximum side length tried: the last tier when
	// tiers ran, otherwise the caller's cap. Zero means native resolution only.
	FinalSize int
	// Tiered reports whether the fallback tiers were searched.
	Tiered bool
	Probes int
}

func (e *ExhaustedError) Error() string {
	if e.FinalSize == 0 {
		return fmt.Sprintf("compression exhausted: nothing fits at quality >= %d", e.MinQuality)
	}
	return fmt.Sprintf("compression exhausted: nothing fits at quality >= %d down to %dpx", e.MinQuality, e.FinalSize)
}

// Is makes errors.Is(err, ErrCompressionExhausted) true.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrCompressionExhausted
}
