package settings

import "errors"

var (
	// ErrUnknownKey is returned when no handler matches a setting key.
	ErrUnknownKey = errors.New("settings: unknown setting key")

	// ErrBadValue is returned when a value fails validation against the
	// snapshot's constraints.
	ErrBadValue = errors.New("settings: invalid value")

	// ErrUnavailable is returned when the subsystem a setting belongs
	// to is missing from the snapshot, usually after a failed fetch.
	ErrUnavailable = errors.New("settings: subsystem unavailable")
)
