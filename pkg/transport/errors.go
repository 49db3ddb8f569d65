package transport

import "errors"

// Transport errors shared across backends.
var (
	// ErrEndpointNotFound is returned when the endpoint does not
	// resolve to a known agent.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrDeliveryFailed is returned after retries are exhausted,
	// wrapping the last underlying failure.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrTimeout is returned when the caller's deadline elapses before
	// the call completes.
	ErrTimeout = errors.New("request timed out")

	// ErrNoResponse is returned by SendMessage when the result task
	// carries no messages.
	ErrNoResponse = errors.New("no response messages returned by agent")

	// ErrHandlerNotRegistered is returned when the server side runs
	// before OnTaskReceived was called.
	ErrHandlerNotRegistered = errors.New("no task handler registered")
)
