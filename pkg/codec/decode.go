package codec

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/png"

	"github.com/adrium/goheif"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// Input media types accepted by Decode.
var inputTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"image/heif",
	"image/heic-sequence",
	"image/heif-sequence",
}

// Sniff returns the detected media type of data.
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsSupportedInput reports whether data looks like an image Decode can read.
func IsSupportedInput(data []byte) bool {
	return isAny(mimetype.Detect(data), inputTypes...)
}

// Decode decodes JPEG, PNG, GIF, WebP and HEIF/HEIC bytes into an image.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, decodeError(errors.New("empty input"), "decode")
	}

	mt := mimetype.Detect(data)
	switch {
	case isHEIF(mt):
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, decodeError(err, "heif")
		}
		return img, nil
	case isAny(mt, inputTypes...):
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, decodeError(err, "%s", mt.String())
		}
		return img, nil
	}
	return nil, decodeError(ErrUnsupportedFormat, "input type %s", mt.String())
}

func isHEIF(mt *mimetype.MIME) bool {
	return isAny(mt, "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence")
}

// isAny reports whether mt matches any of types, aliases included.
func isAny(mt *mimetype.MIME, types ...string) bool {
	for _, t := range types {
		if mt.Is(t) {
			return true
		}
	}
	return false
}
