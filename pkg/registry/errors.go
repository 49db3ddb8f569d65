package registry

import "errors"

var (
	// ErrNotRegistered is returned by Heartbeat when the agent URL has no
	// registry entry.
	ErrNotRegistered = errors.New("agent not registered")

	// ErrInvalidCard is returned by Register when the card is nil or has
	// no URL to key it by.
	ErrInvalidCard = errors.New("agent card must have a url")
)
