package device

import "errors"

// Registry and repository errors. Callers match them with errors.Is; the
// API maps them to 404, 409 and 400.
var (
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists covers both a duplicate ID and a status topic that
	// another device already owns.
	ErrDeviceExists = errors.New("device: already registered")

	ErrInvalidDevice = errors.New("device: invalid")
)
