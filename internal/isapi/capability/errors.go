package capability

import "errors"

// Domain errors for capability extraction. Check with errors.Is().
var (
	// ErrUnknownSubsystem is returned for a subsystem name outside
	// AllSubsystems().
	ErrUnknownSubsystem = errors.New("capability: unknown subsystem")

	// ErrMissingField is returned when a document lacks a field the
	// extraction cannot proceed without (e.g. a channel with no id).
	ErrMissingField = errors.New("capability: required field missing")
)
