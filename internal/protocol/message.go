package protocol

import (
	"fmt"
	"time"
)

// MessageType is the protocol message kind.
type MessageType uint8

// Message types understood by the core.
const (
	GetLabel MessageType = iota + 1
	StateLabel
	GetPower
	StatePower
	GetTime
	StateTime
	GetTags
	StateTags
	GetTagLabels
	StateTagLabels
	SetTags
)

var messageTypeNames = map[MessageType]string{
	GetLabel:       "get_label",
	StateLabel:     "state_label",
	GetPower:       "get_power",
	StatePower:     "state_power",
	GetTime:        "get_time",
	StateTime:      "state_time",
	GetTags:        "get_tags",
	StateTags:      "state_tags",
	GetTagLabels:   "get_tag_labels",
	StateTagLabels: "state_tag_labels",
	SetTags:        "set_tags",
}

// String returns the wire name of the message type.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("message_type(%d)", uint8(t))
}

// IsRequest reports whether the type is sent by a client rather than a light.
func (t MessageType) IsRequest() bool {
	switch t {
	case GetLabel, GetPower, GetTime, GetTags, GetTagLabels, SetTags:
		return true
	default:
		return false
	}
}

// ParseMessageType maps a wire name back to its MessageType.
func ParseMessageType(name string) (MessageType, error) {
	for t, n := range messageTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMessageType, name)
}

// Payload is the typed body of a message.
type Payload interface {
	MessageType() MessageType
}

// StateLabelPayload reports a light's label.
type StateLabelPayload struct {
	Label string `json:"label"`
}

// StatePowerPayload reports a light's power level (0 is off).
type StatePowerPayload struct {
	Level uint16 `json:"level"`
}

// StateTimePayload reports a light's clock.
type StateTimePayload struct {
	Time time.Time `json:"time"`
}

// StateTagsPayload reports the tags a light carries.
type StateTagsPayload struct {
	Tags uint64 `json:"tags"`
}

// GetTagLabelsPayload requests the labels of the tags in Tags.
type GetTagLabelsPayload struct {
	Tags uint64 `json:"tags"`
}

// StateTagLabelsPayload reports the label shared by every tag in Tags.
type StateTagLabelsPayload struct {
	Tags  uint64 `json:"tags"`
	Label string `json:"label"`
}

// SetTagsPayload asks a light to carry exactly Tags.
type SetTagsPayload struct {
	Tags uint64 `json:"tags"`
}

func (StateLabelPayload) MessageType() MessageType     { return StateLabel }
func (StatePowerPayload) MessageType() MessageType     { return StatePower }
func (StateTimePayload) MessageType() MessageType      { return StateTime }
func (StateTagsPayload) MessageType() MessageType      { return StateTags }
func (GetTagLabelsPayload) MessageType() MessageType   { return GetTagLabels }
func (StateTagLabelsPayload) MessageType() MessageType { return StateTagLabels }
func (SetTagsPayload) MessageType() MessageType        { return SetTags }

// Message is an immutable protocol message.
// Construct with NewMessage; the zero value has no type.
type Message struct {
	typ     MessageType
	target  Target
	payload Payload
}

// NewMessage builds a message. payload may be nil for types without a body.
func NewMessage(typ MessageType, target Target, payload Payload) Message {
	return Message{typ: typ, target: target, payload: payload}
}

// Type returns the message kind.
func (m Message) Type() MessageType {
	return m.typ
}

// Target returns the message target.
func (m Message) Target() Target {
	return m.target
}

// Payload returns the message body, or nil.
func (m Message) Payload() Payload {
	return m.payload
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("%s -> %s", m.typ, m.target)
}
