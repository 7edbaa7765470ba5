package inels

import "errors"

// Domain errors for the iNels bridge package.
var (
	// ErrUnrecognizedTopic is returned when a topic does not follow the
	// <domain>/<kind>/<serial>/<type>/<uid> layout or names a device type
	// outside the known set.
	ErrUnrecognizedTopic = errors.New("inels: unrecognized topic")

	// ErrUnsupportedValue is returned when a lookup table has no entry for
	// the requested raw or semantic value and the previous value cannot be
	// used as a fallback either.
	ErrUnsupportedValue = errors.New("inels: unsupported value")

	// ErrMalformedPayload is returned when a payload has fewer tokens than
	// the device model's schema requires, or a token is not valid hex.
	ErrMalformedPayload = errors.New("inels: malformed payload")

	// ErrUnsupportedDevice is returned for a device type or model the
	// translator has no tables for.
	ErrUnsupportedDevice = errors.New("inels: unsupported device")

	// ErrInvalidInput is returned when a translation request supplies both
	// or neither of the status payload and the semantic value.
	ErrInvalidInput = errors.New("inels: exactly one of status payload or semantic value is required")

	// ErrReadOnly is returned when a command targets a read-only device.
	ErrReadOnly = errors.New("inels: device is read-only")
)
