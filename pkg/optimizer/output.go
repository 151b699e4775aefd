package optimizer

import (
	"encoding/base64"

	"github.com/harliandi/go-imgfit/pkg/limits"
)

// Bytes returns the encoded image.
func (r *Result) Bytes() []byte {
	return r.Data
}

// Base64 returns the standard, padded base64 text of the encoded image.
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Data)
}

// Base64Length returns len(r.Base64()) without encoding.
func (r *Result) Base64Length() int {
	return limits.EstimateBase64Length(len(r.Data))
}

// DataURI returns "data:<mime>;base64,<data>".
func (r *Result) DataURI() string {
	return "data:" + r.Format.MIME() + ";base64," + r.Base64()
}
