package router

import "errors"

// Domain errors for the router package.
var (
	// ErrNotStarted is returned by Stop when Start was never called.
	ErrNotStarted = errors.New("router: not started")

	// ErrAlreadyStarted is returned by Start on a running router.
	ErrAlreadyStarted = errors.New("router: already started")

	// ErrNoTargets is returned when a device-addressed message names no devices.
	ErrNoTargets = errors.New("router: message has no targets")

	// ErrMalformedReport wraps inbound payloads that cannot be decoded.
	ErrMalformedReport = errors.New("router: malformed report")
)
