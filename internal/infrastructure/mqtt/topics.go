package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every lanlight topic.
const TopicPrefix = "lanlight"

// Topics builds lanlight MQTT topics.
//
//	lanlight/request/broadcast        outbound request to every light
//	lanlight/request/{device}         outbound request to one light
//	lanlight/report/{device}          inbound report relayed by the gateway
//	lanlight/gateway/{id}/status      gateway online/offline (retained)
//	lanlight/state/{device}           mirrored light state (retained)
//	lanlight/system/status            lanlight online/offline (retained, LWT)
type Topics struct{}

// RequestBroadcast returns the topic for requests addressed to every light.
func (Topics) RequestBroadcast() string {
	return fmt.Sprintf("%s/request/broadcast", TopicPrefix)
}

// Request returns the topic for a request addressed to one light.
//
// Example: lanlight/request/d073d5000001
func (Topics) Request(deviceID string) string {
	return fmt.Sprintf("%s/request/%s", TopicPrefix, deviceID)
}

// Report returns the topic a gateway relays a light's reports on.
func (Topics) Report(deviceID string) string {
	return fmt.Sprintf("%s/report/%s", TopicPrefix, deviceID)
}

// GatewayStatus returns the status topic for one gateway.
func (Topics) GatewayStatus(gatewayID string) string {
	return fmt.Sprintf("%s/gateway/%s/status", TopicPrefix, gatewayID)
}

// LightState returns the retained state topic for one light.
func (Topics) LightState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// SystemStatus returns lanlight's own status topic.
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}

// AllReports matches every inbound report.
//
// Pattern: lanlight/report/#
func (Topics) AllReports() string {
	return fmt.Sprintf("%s/report/#", TopicPrefix)
}

// AllGatewayStatus matches every gateway status topic.
//
// Pattern: lanlight/gateway/+/status
func (Topics) AllGatewayStatus() string {
	return fmt.Sprintf("%s/gateway/+/status", TopicPrefix)
}

// AllLightStates matches every mirrored light state.
//
// Pattern: lanlight/state/+
func (Topics) AllLightStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// validateFilter checks a subscription filter. + must fill a whole level
// and # must be the last level.
func validateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: empty filter", ErrInvalidTopic)
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#" && i != len(levels)-1:
			return fmt.Errorf("%w: # must be the last level in %q", ErrInvalidTopic, filter)
		case level != "#" && level != "+" && strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: wildcard inside level %q of %q", ErrInvalidTopic, level, filter)
		}
	}
	return nil
}

// validateTopicName checks a publish topic, which may not carry wildcards.
func validateTopicName(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in topic name %q", ErrInvalidTopic, topic)
	}
	return nil
}
