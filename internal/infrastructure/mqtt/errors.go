package mqtt

import "errors"

// Errors returned by the client. Most are wrapped with the topic or filter
// involved, so compare with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: not connected to broker")
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrDiscoveryFailed wraps failures of the short-lived discovery
	// session, never of the main connection.
	ErrDiscoveryFailed = errors.New("mqtt: discovery failed")

	ErrInvalidQoS   = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
