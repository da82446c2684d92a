package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the JSON form of a message on the MQTT link to the gateway.
//
//	{"type":"state_label","targets":["d073d5001337"],"payload":{"label":"Desk"},
//	 "source":"7f0c...","at":"2026-01-18T12:00:00Z"}
//
// Targets is omitted for broadcast. Source identifies the sending client so
// echoes of our own requests can be recognised.
type Envelope struct {
	Type    string          `json:"type"`
	Targets []DeviceID      `json:"targets,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Source  string          `json:"source,omitempty"`
	At      time.Time       `json:"at"`
}

// EncodeEnvelope serialises msg for the wire.
func EncodeEnvelope(msg Message, source string, at time.Time) ([]byte, error) {
	env := Envelope{
		Type:    msg.Type().String(),
		Targets: msg.Target().Devices(),
		Source:  source,
		At:      at.UTC(),
	}

	if p := msg.Payload(); p != nil {
		if p.MessageType() != msg.Type() {
			return nil, fmt.Errorf("%w: %s carries %s payload", ErrPayloadMismatch, msg.Type(), p.MessageType())
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		env.Payload = raw
	}

	return json.Marshal(env)
}

// DecodeEnvelope parses a wire envelope into a Message plus its metadata.
// Target device IDs are validated and normalised.
func DecodeEnvelope(data []byte) (Message, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	typ, err := ParseMessageType(env.Type)
	if err != nil {
		return Message{}, Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	ids := make([]DeviceID, 0, len(env.Targets))
	for _, raw := range env.Targets {
		id, err := ParseDeviceID(string(raw))
		if err != nil {
			return Message{}, Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
		}
		ids = append(ids, id)
	}
	env.Targets = ids

	payload, err := decodePayload(typ, env.Payload)
	if err != nil {
		return Message{}, Envelope{}, fmt.Errorf("%w: %s: %w", ErrInvalidEnvelope, typ, err)
	}

	return NewMessage(typ, DeviceTarget(ids...), payload), env, nil
}

// decodePayload unmarshals raw into the payload struct for typ.
// Types without a body yield a nil payload.
func decodePayload(typ MessageType, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch typ {
	case StateLabel:
		p = &StateLabelPayload{}
	case StatePower:
		p = &StatePowerPayload{}
	case StateTime:
		p = &StateTimePayload{}
	case StateTags:
		p = &StateTagsPayload{}
	case GetTagLabels:
		p = &GetTagLabelsPayload{}
	case StateTagLabels:
		p = &StateTagLabelsPayload{}
	case SetTags:
		p = &SetTagsPayload{}
	default:
		return nil, nil
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}

	// Store values, not pointers, so messages stay immutable.
	switch v := p.(type) {
	case *StateLabelPayload:
		return *v, nil
	case *StatePowerPayload:
		return *v, nil
	case *StateTimePayload:
		return *v, nil
	case *StateTagsPayload:
		return *v, nil
	case *GetTagLabelsPayload:
		return *v, nil
	case *StateTagLabelsPayload:
		return *v, nil
	case *SetTagsPayload:
		return *v, nil
	}
	return nil, nil
}
