package codec

import (
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrFileTooLarge is returned when the input exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file size exceeds limit")
	// ErrInvalidImageDimensions is returned for empty or degenerate images.
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	// ErrImageTooLarge is returned when image dimensions exceed limits.
	ErrImageTooLarge = errors.New("image dimensions exceed maximum allowed")
)

// Validation limits
const (
	MaxFileSize    = 20 * 1024 * 1024 // 20MB max file size
	MaxImageWidth  = 20000
	MaxImageHeight = 20000
	MaxImagePixels = 250_000_000 // decompression bomb guard
)

// ValidateFile checks the encoded input size before decoding.
func ValidateFile(data []byte) error {
	if len(data) == 0 {
		return decodeError(errors.New("empty input"), "validate")
	}
	if len(data) > MaxFileSize {
		return errors.Wrapf(ErrFileTooLarge, "%d bytes (max %d)", len(data), MaxFileSize)
	}
	return nil
}

// ValidateImage checks decoded image dimensions are within acceptable limits.
func ValidateImage(img image.Image) error {
	if img == nil {
		return ErrInvalidImageDimensions
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidImageDimensions, "%dx%d", width, height)
	}
	if width > MaxImageWidth || height > MaxImageHeight {
		return errors.Wrapf(ErrImageTooLarge, "%dx%d (max %dx%d)", width, height, MaxImageWidth, MaxImageHeight)
	}
	if int64(width)*int64(height) > MaxImagePixels {
		return errors.Wrapf(ErrImageTooLarge, "%d pixels (max %d)", int64(width)*int64(height), MaxImagePixels)
	}
	return nil
}
