package codec

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/chai2010/webp"
)

const (
	// MinQuality is the lowest quality the encoders accept.
	MinQuality = 1
	// MaxQuality is the highest quality the encoders accept.
	MaxQuality = 100
)

// Encoder encodes images as JPEG or lossy WebP. It is stateless and safe for
// concurrent use, and its output is deterministic for a fixed image, format
// and quality.
type Encoder struct {
	// SizeHint pre-allocates the output buffer.
	SizeHint int
}

// NewEncoder returns an Encoder with a 512KB output size hint.
func NewEncoder() *Encoder {
	return &Encoder{SizeHint: 512 * 1024}
}

// Encode encodes img in format f at the given quality, clamped to
// [MinQuality, MaxQuality].
func (e *Encoder) Encode(img image.Image, f Format, quality int) ([]byte, error) {
	if img == nil {
		return nil, encodeError(ErrInvalidImageDimensions, "encode %s", f)
	}
	quality = clampQuality(quality)

	var out bytes.Buffer
	if e.SizeHint > 0 {
		out.Grow(e.SizeHint)
	}

	switch f {
	case JPEG:
		if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, encodeError(err, "jpeg at quality %d", quality)
		}
	case WebP:
		if err := webp.Encode(&out, toRGBA(img), &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, encodeError(err, "webp at quality %d", quality)
		}
	default:
		return nil, encodeError(ErrUnsupportedFormat, "format %q", f)
	}
	return out.Bytes(), nil
}

// toRGBA returns img as an RGBA or NRGBA buffer, which the WebP encoder reads
// directly.
func toRGBA(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.RGBA, *image.NRGBA:
		return src
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Rect, img, img.Bounds().Min, draw.Src)
	return rgba
}

func clampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}
