// Package converter turns uploaded image bytes into an encoding that fits the
// requested size ceilings, recording metrics and logs for each call.
package converter

import (
	"context"
	"errors"
	"time"

	"github.com/harliandi/go-imgfit/internal/logctx"
	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/harliandi/go-imgfit/pkg/metrics"
	"github.com/harliandi/go-imgfit/pkg/optimizer"
	pkgerrors "github.com/pkg/errors"
)

// Outcome labels used for metrics and logs.
const (
	StatusSuccess     = "success"
	StatusInvalid     = "invalid"
	StatusDecodeError = "decode_error"
	StatusTooLarge    = "too_large"
	StatusExhausted   = "exhausted"
	StatusCancelled   = "cancelled"
	StatusError       = "error"
)

// Converter decodes, validates and optimizes images.
type Converter struct {
	opt *optimizer.Optimizer
}

// New creates a Converter backed by opt.
func New(opt *optimizer.Optimizer) *Converter {
	return &Converter{opt: opt}
}

// Optimize decodes data and re-encodes it under req's ceilings. ctx is checked
// before the decode and before the search; the search itself runs to
// completion once started.
func (c *Converter) Optimize(ctx context.Context, data []byte, req optimizer.Request) (*optimizer.Result, error) {
	start := time.Now()
	log := logctx.From(ctx).With("format", req.Format.String(), "constraints", req.Constraints.String())

	res, err := c.optimize(ctx, data, req)
	elapsed := time.Since(start)

	if err != nil {
		status := Status(err)
		probes := 0
		var ex *optimizer.ExhaustedError
		if errors.As(err, &ex) {
			probes = ex.Probes
		}
		metrics.RecordFailure(status, req.Format.String(), elapsed.Seconds(), probes, len(data))
		log.Warn("optimization failed",
			"status", status,
			"input_bytes", len(data),
			"duration", elapsed,
			"error", err,
		)
		return nil, err
	}

	metrics.RecordOptimization(req.Format.String(), elapsed.Seconds(), res.Probes, res.Tier, res.Quality, len(data), len(res.Data))
	log.Info("optimized",
		"quality", res.Quality,
		"width", res.Width,
		"height", res.Height,
		"tier", metrics.TierLabel(res.Tier),
		"probes", res.Probes,
		"input_bytes", len(data),
		"output_bytes", len(res.Data),
		"duration", elapsed,
	)
	return res, nil
}

func (c *Converter) optimize(ctx context.Context, data []byte, req optimizer.Request) (*optimizer.Result, error) {
	if err := req.Constraints.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := codec.ValidateFile(data); err != nil {
		return nil, err
	}

	img, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := codec.ValidateImage(img); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.opt.Optimize(img, req)
	if err != nil {
		return nil, pkgerrors.WithMessagef(err, "optimize %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	return res, nil
}

// Status classifies err into one of the Status* labels.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, limits.ErrInvalidConstraints), errors.Is(err, codec.ErrUnsupportedFormat) && !errors.Is(err, codec.ErrDecode):
		return StatusInvalid
	case errors.Is(err, codec.ErrDecode), errors.Is(err, codec.ErrInvalidImageDimensions):
		return StatusDecodeError
	case errors.Is(err, codec.ErrFileTooLarge), errors.Is(err, codec.ErrImageTooLarge):
		return StatusTooLarge
	case errors.Is(err, optimizer.ErrCompressionExhausted):
		return StatusExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	}
	return StatusError
}
