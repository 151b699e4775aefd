package optimizer

import (
	"image"

	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/harliandi/go-imgfit/pkg/quality"
	"github.com/pkg/errors"
)

// runTiers searches each tier of the policy against a fresh resize of the
// original image and returns the first fit. Each tier searches
// [min, max(FallbackCeiling, min)], with the ceiling clamped to the encoder
// domain.
func (o *Optimizer) runTiers(original image.Image, f codec.Format, r quality.Range, c limits.Constraints) (*Result, error) {
	tr := quality.Range{Min: r.Min, Max: min(max(o.policy.FallbackCeiling, r.Min), codec.MaxQuality)}
	probes := 0
	finalSize := 0

	for _, side := range o.policy.Tiers {
		if side <= 0 {
			continue
		}
		finalSize = side

		// Always derive from the original, never from the previous tier.
		candidate := o.resizer.Fit(original, side)
		attempt, err := quality.Search(candidate, o.enc, f, tr, o.policy.Step, c)
		probes += attempt.Probes
		if err == nil {
			return newResult(candidate, f, attempt, side, probes), nil
		}
		if !errors.Is(err, quality.ErrNotFound) {
			return nil, err
		}
	}

	return nil, &ExhaustedError{
		MinQuality: r.Min,
		FinalSize:  finalSize,
		Tiered:     true,
		Probes:     probes,
	}
}
