package transcode

import "errors"

// Domain errors for value conversion.
// Use errors.Is() to check for these in calling code.
var (
	// ErrBadFrameRate is returned when a frame-rate label cannot be parsed.
	ErrBadFrameRate = errors.New("transcode: invalid frame rate label")

	// ErrBadTimezone is returned when a timezone string has an
	// unrecognised prefix, sign, or offset format.
	ErrBadTimezone = errors.New("transcode: invalid timezone")

	// ErrBadQualityLabel is returned when a quality label is not in the
	// fixed table and not a "Custom (<n>)" form.
	ErrBadQualityLabel = errors.New("transcode: invalid quality label")
)
