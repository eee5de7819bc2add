package audio

import "errors"

var (
	// ErrUnsupportedFormat means the declared extension is not in the
	// supported set. The payload is never inspected in that case.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDecode means the payload could not be decoded as the declared
	// format. The underlying cause is attached to the returned error.
	ErrDecode = errors.New("failed to decode audio")

	// ErrEmptyPayload means the upload carried no bytes.
	ErrEmptyPayload = errors.New("empty audio payload")
)
