package overlay

// Binding types for one overlay slot.
const (
	TypeNone   = "none"
	TypeText   = "text"
	TypeDevice = "device"
	TypeFace   = "face"
)

// Slot is the binding configuration of one overlay slot.
//
// ID matches the camera's overlay id. For device and face bindings
// SourceDeviceID names the sensor feeding the slot; TextPrefix is
// prepended to device readings; Text is the static content of a text
// binding.
type Slot struct {
	ID             string
	Type           string
	SourceDeviceID string
	TextPrefix     string
	Text           string

	// LastResolved is the text most recently written to the camera for
	// this slot. Runtime state, not persisted.
	LastResolved string
}
