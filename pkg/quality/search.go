// Package quality searches the lossy quality domain for the highest setting
// whose encoded output fits the size constraints.
package quality

import (
	"image"

	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/pkg/errors"
)

const (
	// ParityStep is the coarse step that mirrors a linear quality walk
	// decrementing by 5.
	ParityStep = 5
	// ExactStep finds the strict maximal quality.
	ExactStep = 1
)

// ErrNotFound is returned when no probed quality fits the constraints.
var ErrNotFound = errors.New("no quality satisfies the size constraints")

// Encoder encodes an image at a quality. Output size must be non-decreasing
// in quality for a fixed image and format; Search relies on it and does not
// check it.
type Encoder interface {
	Encode(img image.Image, f codec.Format, quality int) ([]byte, error)
}

// Range is an inclusive quality interval.
type Range struct {
	Min int
	Max int
}

// NewRange clamps minQuality and initialQuality to the encoder domain and
// lifts initialQuality to minQuality when it is lower.
func NewRange(minQuality, initialQuality int) Range {
	r := Range{Min: clamp(minQuality), Max: clamp(initialQuality)}
	if r.Max < r.Min {
		r.Max = r.Min
	}
	return r
}

// Capped returns r with Max lowered to ceiling, but never below Min.
func (r Range) Capped(ceiling int) Range {
	r.Max = max(min(r.Max, ceiling), r.Min)
	return r
}

// Attempt is one accepted encoding.
type Attempt struct {
	Data    []byte
	Quality int
	// Probes counts encoder invocations spent by the search, successful or not.
	Probes int
}

// Base64Length is the length of Data once base64 encoded.
func (a Attempt) Base64Length() int {
	return limits.EstimateBase64Length(len(a.Data))
}

// Search binary-searches r for the highest quality whose encoding of img
// satisfies c. After a fitting probe the search moves up by step, after a
// failing probe it moves down by step; step 1 yields the exact optimum.
//
// On ErrNotFound the returned Attempt carries only the probe count. Encoder
// errors abort the search and are returned as is.
func Search(img image.Image, enc Encoder, f codec.Format, r Range, step int, c limits.Constraints) (Attempt, error) {
	if step < 1 {
		step = ExactStep
	}

	var best Attempt
	found := false
	probes := 0

	low, high := r.Min, r.Max
	for low <= high {
		mid := (low + high) / 2
		data, err := enc.Encode(img, f, mid)
		probes++
		if err != nil {
			return Attempt{Probes: probes}, err
		}

		if c.Allows(len(data)) {
			best = Attempt{Data: data, Quality: mid}
			found = true
			low = mid + step
		} else {
			high = mid - step
		}
	}

	best.Probes = probes
	if !found {
		return best, ErrNotFound
	}
	return best, nil
}

func clamp(q int) int {
	if q < codec.MinQuality {
		return codec.MinQuality
	}
	if q > codec.MaxQuality {
		return codec.MaxQuality
	}
	return q
}
