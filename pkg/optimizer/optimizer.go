// Package optimizer re-encodes an image under hard output-size ceilings.
//
// Optimize first searches the quality domain at the image's own resolution
// (or at a caller-supplied maximum side length). If nothing fits and the
// caller set no maximum side, it retries against successively smaller copies
// of the original from a fixed tier plan. The result either fits every
// ceiling or the call fails with ErrCompressionExhausted.
//
// An Optimizer holds no per-call state; concurrent calls are independent.
package optimizer

import (
	"image"

	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/harliandi/go-imgfit/pkg/quality"
	"github.com/pkg/errors"
)

// Resizer shrinks an image so that its larger side is at most maxSide,
// preserving aspect ratio and never upscaling. It must not modify img.
type Resizer interface {
	Fit(img image.Image, maxSide int) image.Image
}

// Policy holds the fallback constants of the search.
type Policy struct {
	// Tiers are the maximum side lengths tried, in order, after the search at
	// native resolution fails.
	Tiers []int
	// FallbackCeiling caps the top quality searched at each tier.
	FallbackCeiling int
	// Step is the quality search step; see quality.Search.
	Step int
}

// DefaultPolicy returns tiers 800, 600 and 400 with a fallback ceiling of 50
// and an exact quality step.
func DefaultPolicy() Policy {
	return Policy{
		Tiers:           []int{800, 600, 400},
		FallbackCeiling: 50,
		Step:            quality.ExactStep,
	}
}

// Request describes one optimization.
type Request struct {
	Constraints limits.Constraints
	Format      codec.Format
	// MaxSize, when positive, caps the larger side before searching and
	// disables tier fallback.
	MaxSize        int
	InitialQuality int
	MinQuality     int
}

// Result is the accepted encoding.
type Result struct {
	Data    []byte
	Format  codec.Format
	Quality int
	Width   int
	Height  int
	// Tier is the fallback side length that produced the result, 0 when the
	// first search succeeded.
	Tier int
	// Probes is the total number of encoder calls spent.
	Probes int
}

// Optimizer drives an encoder and a resizer to satisfy size ceilings.
type Optimizer struct {
	enc     quality.Encoder
	resizer Resizer
	policy  Policy
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithPolicy replaces the default tier plan and search step.
func WithPolicy(p Policy) Option {
	return func(o *Optimizer) {
		o.policy = p
	}
}

// New returns an Optimizer using enc and rs.
func New(enc quality.Encoder, rs Resizer, opts ...Option) *Optimizer {
	o := &Optimizer{
		enc:     enc,
		resizer: rs,
		policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the policy in effect.
func (o *Optimizer) Policy() Policy {
	return o.policy
}

// Optimize encodes img in req.Format at the best quality that satisfies
// req.Constraints. img is never modified.
func (o *Optimizer) Optimize(img image.Image, req Request) (*Result, error) {
	if err := req.Constraints.Validate(); err != nil {
		return nil, err
	}
	if !req.Format.Valid() {
		return nil, errors.Wrapf(codec.ErrUnsupportedFormat, "%q", req.Format)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, codec.ErrInvalidImageDimensions
	}

	r := quality.NewRange(req.MinQuality, req.InitialQuality)

	work := img
	if req.MaxSize > 0 && codec.LongestSide(img) > req.MaxSize {
		work = o.resizer.Fit(img, req.MaxSize)
	}

	attempt, err := quality.Search(work, o.enc, req.Format, r, o.policy.Step, req.Constraints)
	probes := attempt.Probes
	switch {
	case err == nil:
		return newResult(work, req.Format, attempt, 0, probes), nil
	case !errors.Is(err, quality.ErrNotFound):
		return nil, err
	}

	if req.MaxSize > 0 {
		return nil, &ExhaustedError{MinQuality: r.Min, FinalSize: req.MaxSize, Probes: probes}
	}

	res, err := o.runTiers(img, req.Format, r, req.Constraints)
	if res != nil {
		res.Probes += probes
		return res, nil
	}
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		ex.Probes += probes
	}
	return nil, err
}

func newResult(img image.Image, f codec.Format, a quality.Attempt, tier, probes int) *Result {
	b := img.Bounds()
	return &Result{
		Data:    a.Data,
		Format:  f,
		Quality: a.Quality,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Tier:    tier,
		Probes:  probes,
	}
}
