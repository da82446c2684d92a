package coordinator

import "errors"

// Sentinel errors for coordinator usage.
var (
	// ErrRouterNotAttached is returned when an operation needs a router and
	// none has been set. It is a usage error, not a timeout.
	ErrRouterNotAttached = errors.New("coordinator: router not attached")

	// ErrRouterAlreadySet is returned by a second SetRouter call.
	ErrRouterAlreadySet = errors.New("coordinator: router already set")

	// ErrNilRouter is returned when SetRouter is given a nil router.
	ErrNilRouter = errors.New("coordinator: router is nil")

	// ErrAlreadyOpen is returned by a second Open call.
	ErrAlreadyOpen = errors.New("coordinator: already open")

	// ErrClosed is returned by Open after Close.
	ErrClosed = errors.New("coordinator: closed")
)
