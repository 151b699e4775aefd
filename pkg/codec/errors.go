package codec

import (
	"github.com/pkg/errors"
)

var (
	// ErrDecode is returned when input bytes cannot be decoded into an image.
	ErrDecode = errors.New("image decode failed")
	// ErrEncode is returned when the encoder rejects an image.
	ErrEncode = errors.New("image encode failed")
)

// codecError tags a cause with one of the sentinel kinds above so callers can
// match with errors.Is while the message keeps the codec's own detail.
type codecError struct {
	kind  error
	cause error
}

func (e *codecError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *codecError) Is(target error) bool {
	return target == e.kind
}

func (e *codecError) Unwrap() error {
	return e.cause
}

func decodeError(cause error, format string, args ...interface{}) error {
	return &codecError{kind: ErrDecode, cause: errors.Wrapf(cause, format, args...)}
}

func encodeError(cause error, format string, args ...interface{}) error {
	return &codecError{kind: ErrEncode, cause: errors.Wrapf(cause, format, args...)}
}
