package codec

import (
	"image"
	"strings"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Resizer shrinks an image so its larger side is at most maxSide, keeping the
// aspect ratio. Images already within maxSide are returned unchanged; the
// source is never modified.
type Resizer interface {
	Fit(img image.Image, maxSide int) image.Image
}

// Resizer names accepted by NewResizer.
const (
	ResizeLanczos   = "lanczos"
	ResizeThumbnail = "thumbnail"
	ResizeBox       = "box"
)

// NewResizer returns the resizer registered under name. An empty name selects
// Lanczos.
func NewResizer(name string) (Resizer, error) {
	switch strings.ToLower(name) {
	case "", ResizeLanczos:
		return LanczosResizer{}, nil
	case ResizeThumbnail:
		return ThumbnailResizer{Interpolation: resize.Bilinear}, nil
	case ResizeBox:
		return FilterResizer{Resampling: gift.BoxResampling}, nil
	}
	return nil, errors.Errorf("unknown resize filter %q", name)
}

// LanczosResizer resamples with a Lanczos filter. Slower, sharper output.
type LanczosResizer struct{}

// Fit implements Resizer.
func (LanczosResizer) Fit(img image.Image, maxSide int) image.Image {
	if !needsShrink(img, maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// ThumbnailResizer uses nfnt/resize thumbnails with the given interpolation.
type ThumbnailResizer struct {
	Interpolation resize.InterpolationFunction
}

// Fit implements Resizer.
func (r ThumbnailResizer) Fit(img image.Image, maxSide int) image.Image {
	if !needsShrink(img, maxSide) {
		return img
	}
	return resize.Thumbnail(uint(maxSide), uint(maxSide), img, r.Interpolation)
}

// FilterResizer runs a gift filter chain with the given resampling.
type FilterResizer struct {
	Resampling gift.Resampling
}

// Fit implements Resizer.
func (r FilterResizer) Fit(img image.Image, maxSide int) image.Image {
	if !needsShrink(img, maxSide) {
		return img
	}
	g := gift.New(gift.ResizeToFit(maxSide, maxSide, r.Resampling))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// FitDimensions returns the dimensions of a w x h image scaled so its larger
// side is at most maxSide. Smaller images keep their size.
func FitDimensions(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}

// LongestSide returns the larger of the image's width and height.
func LongestSide(img image.Image) int {
	b := img.Bounds()
	return max(b.Dx(), b.Dy())
}

func needsShrink(img image.Image, maxSide int) bool {
	return maxSide > 0 && LongestSide(img) > maxSide
}
