package overlay

import "errors"

var (
	// ErrUnknownSlot is returned when a binding write names a slot the
	// camera does not expose.
	ErrUnknownSlot = errors.New("overlay: unknown slot")

	// ErrUnknownDevice is returned when a device binding names a device
	// whose event kind cannot be resolved.
	ErrUnknownDevice = errors.New("overlay: unknown source device")

	// ErrRunning is returned when Start is called on an engine that is
	// already running.
	ErrRunning = errors.New("overlay: engine already running")
)
