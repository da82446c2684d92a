// Package protocol defines the message and entity types exchanged between
// lanlight and the LAN gateway.
//
// It covers the parts of the light protocol the coordination core needs:
//
//   - DeviceID: the opaque identity of one light (its MAC, as 12 hex digits)
//   - TagID: a slot from the fixed 64-entry tag domain, packed as a uint64 mask
//   - Target: broadcast, or an explicit set of devices
//   - Message: an immutable (type, target, payload) triple
//   - Envelope: the JSON form carried over MQTT
//
// Binary LAN framing is the gateway's job. This package only knows the
// logical message model and its JSON envelope.
//
// # Usage
//
//	msg := protocol.NewMessage(protocol.GetTagLabels, protocol.BroadcastTarget(),
//	    protocol.GetTagLabelsPayload{Tags: protocol.Pack(protocol.AllTags())})
//
//	data, err := protocol.EncodeEnvelope(msg, source)
package protocol
