package protocol

import "errors"

// Domain errors for the protocol package.
var (
	// ErrInvalidDeviceID is returned when a device ID is not 12 hex digits.
	ErrInvalidDeviceID = errors.New("protocol: invalid device id")

	// ErrUnknownMessageType is returned when a message type name is not recognised.
	ErrUnknownMessageType = errors.New("protocol: unknown message type")

	// ErrInvalidEnvelope is returned when a JSON envelope cannot be decoded.
	ErrInvalidEnvelope = errors.New("protocol: invalid envelope")

	// ErrPayloadMismatch is returned when a payload does not match its message type.
	ErrPayloadMismatch = errors.New("protocol: payload does not match message type")
)
