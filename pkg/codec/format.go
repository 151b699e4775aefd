// Package codec binds the size search to concrete image codecs: it decodes
// uploads, encodes JPEG and lossy WebP at a given quality, and shrinks images
// to a maximum side length.
package codec

import (
	"strings"

	"github.com/pkg/errors"
)

// Format is a lossy output format.
type Format string

const (
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// ErrUnsupportedFormat is returned for formats outside the closed set.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParseFormat accepts "jpeg", "jpg", "image/jpeg", "webp" and "image/webp",
// case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg", "image/jpeg":
		return JPEG, nil
	case "webp", "image/webp":
		return WebP, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
}

// Valid reports whether f is one of the supported output formats.
func (f Format) Valid() bool {
	return f == JPEG || f == WebP
}

// MIME returns the media type used when building data URIs and responses.
func (f Format) MIME() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case WebP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// Extension returns the conventional file extension, with the leading dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case WebP:
		return ".webp"
	}
	return ""
}

func (f Format) String() string {
	return string(f)
}
