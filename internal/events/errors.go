package events

import "errors"

// Domain errors for the event bus. Check with errors.Is().
var (
	// ErrBadTopic is returned for a topic outside the event namespace.
	ErrBadTopic = errors.New("events: malformed event topic")

	// ErrBadPayload is returned when a sensor payload does not decode.
	ErrBadPayload = errors.New("events: malformed payload")

	// ErrClosed is returned when listening on a closed bus.
	ErrClosed = errors.New("events: bus closed")
)
