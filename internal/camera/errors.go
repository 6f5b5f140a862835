package camera

import "errors"

var (
	// ErrNotCamera is returned when a register call names a device that
	// is not a camera.
	ErrNotCamera = errors.New("camera: device is not a camera")

	// ErrRegistered is returned when a camera is registered twice.
	ErrRegistered = errors.New("camera: already registered")

	// ErrNotRegistered is returned when an operation names a camera the
	// manager does not hold.
	ErrNotRegistered = errors.New("camera: not registered")

	// ErrNoOverlays is returned when overlay duplication is attempted
	// from a camera whose overlay subsystem is unavailable.
	ErrNoOverlays = errors.New("camera: overlay document unavailable")
)
