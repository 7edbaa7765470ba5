package inels

import (
	"fmt"
	"strings"
)

// TopicKind is the second fragment of an iNels topic.
type TopicKind string

// Topic kinds published by the iNels gateway.
const (
	KindStatus    TopicKind = "status"
	KindSet       TopicKind = "set"
	KindConnected TopicKind = "connected"
)

// DefaultDomain is the topic prefix used by the iNels gateway.
const DefaultDomain = "inels"

// topicFragments is the number of fragments in a device topic:
// <domain>/<kind>/<serial>/<type>/<uid>.
const topicFragments = 5

// Fragment indices within a device topic.
const (
	fragmentDomain = iota
	fragmentKind
	fragmentSerial
	fragmentType
	fragmentUID
)

// Topic is a parsed iNels device topic.
type Topic struct {
	Domain       string
	Kind         TopicKind
	SerialNumber string
	TypeCode     TypeCode
	UniqueID     string
}

// ParseTopic splits an iNels device topic into its fragments.
//
// Topics with the wrong number of fragments, an empty fragment or an
// unknown kind are rejected with ErrUnrecognizedTopic. The type code is
// not checked here; use Classify or DeviceType for that.
func ParseTopic(topic string) (Topic, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != topicFragments {
		return Topic{}, fmt.Errorf("%w: %q has %d fragments", ErrUnrecognizedTopic, topic, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return Topic{}, fmt.Errorf("%w: %q has an empty fragment", ErrUnrecognizedTopic, topic)
		}
	}

	kind := TopicKind(parts[fragmentKind])
	switch kind {
	case KindStatus, KindSet, KindConnected:
	default:
		return Topic{}, fmt.Errorf("%w: unknown kind %q", ErrUnrecognizedTopic, kind)
	}

	return Topic{
		Domain:       parts[fragmentDomain],
		Kind:         kind,
		SerialNumber: parts[fragmentSerial],
		TypeCode:     TypeCode(parts[fragmentType]),
		UniqueID:     parts[fragmentUID],
	}, nil
}

// Classify returns the device type named by a topic. The second result is
// false for anything that is not a well-formed topic of a known device
// type; callers drop such messages.
func Classify(topic string) (DeviceType, bool) {
	t, err := ParseTopic(topic)
	if err != nil {
		return "", false
	}
	return t.DeviceType()
}

// DeviceType returns the device type for the topic's type code.
func (t Topic) DeviceType() (DeviceType, bool) {
	return DeviceTypeForCode(t.TypeCode)
}

// WithKind returns a copy of the topic addressing the same device with a
// different kind, e.g. the set topic for a status topic.
func (t Topic) WithKind(kind TopicKind) Topic {
	t.Kind = kind
	return t
}

// String renders the topic in broker form.
func (t Topic) String() string {
	return strings.Join([]string{
		t.Domain, string(t.Kind), t.SerialNumber, string(t.TypeCode), t.UniqueID,
	}, "/")
}

// DeviceID returns the bridge-side identifier for the device the topic
// addresses. Unique IDs are only unique per gateway, so the serial number
// is included.
func (t Topic) DeviceID() string {
	return t.SerialNumber + "-" + t.UniqueID
}

// StatusFilter returns the subscription pattern for all status topics.
// Example: inels/status/#
func StatusFilter(domain string) string {
	return domain + "/" + string(KindStatus) + "/#"
}

// ConnectedFilter returns the subscription pattern for all availability topics.
// Example: inels/connected/#
func ConnectedFilter(domain string) string {
	return domain + "/" + string(KindConnected) + "/#"
}
