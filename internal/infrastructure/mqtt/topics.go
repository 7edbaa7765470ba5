package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixSystem is the base for process-level system topics.
// Device topics are built by the bridge that owns them.
const TopicPrefixSystem = "graylogic/system"

// maxTopicLength is the MQTT limit on an encoded topic string.
const maxTopicLength = 65535

// Topics provides builders for the system topics the client itself uses.
type Topics struct{}

// SystemStatus returns the system status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// validatePublishTopic checks a topic a message is published to: it must
// be non-empty and free of wildcards.
func validatePublishTopic(topic string) error {
	if err := validateTopicCommon(topic); err != nil {
		return err
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards not allowed in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}

// validateFilter checks a subscription filter: "+" must fill a whole level
// and "#" must be the whole last level.
func validateFilter(filter string) error {
	if err := validateTopicCommon(filter); err != nil {
		return err
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#" && i != len(levels)-1:
			return fmt.Errorf("%w: %q has '#' before the last level", ErrInvalidTopic, filter)
		case level != "#" && level != "+" && strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: %q mixes a wildcard into level %q", ErrInvalidTopic, filter, level)
		}
	}
	return nil
}

func validateTopicCommon(topic string) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case len(topic) > maxTopicLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidTopic, maxTopicLength)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("%w: contains a NUL character", ErrInvalidTopic)
	}
	return nil
}
