package settings

// Kind classifies how a setting value is edited.
type Kind string

// Setting kinds.
const (
	KindBoolean  Kind = "boolean"
	KindChoice   Kind = "choice"
	KindNumber   Kind = "number"
	KindText     Kind = "text"
	KindButton   Kind = "button"
	KindReadOnly Kind = "readonly"
)

// Fixed subgroup titles. Stream subgroups are derived from the channel
// name and are not listed here.
const (
	SubgroupMotion = "Motion Detection"
	SubgroupAudio  = "Audio"
	SubgroupTime   = "Date & Time"
	SubgroupOSD    = "Text Overlays"
	SubgroupPTZ    = "PTZ"
	SubgroupInfo   = "Device Info"
)

// Overlay slot binding types, used as the wire values of the per-slot
// type setting.
const (
	BindingNone   = "none"
	BindingText   = "text"
	BindingDevice = "device"
	BindingFace   = "face"
)

// Definition is one entry of the synthesised setting list.
//
// Definitions are value objects: the synthesiser produces a fresh,
// fully populated list from each snapshot and callers never mutate
// entries in place.
type Definition struct {
	// Key is the stable identifier a write targets, e.g.
	// "stream:101:bitrate".
	Key string `json:"key"`

	Title    string `json:"title"`
	Subgroup string `json:"subgroup"`
	Kind     Kind   `json:"kind"`

	// Choices is populated for KindChoice; values are the exact
	// strings accepted by Apply for this key.
	Choices []string `json:"choices,omitempty"`

	// Value is the current value rendered as a string.
	Value string `json:"value"`

	ReadOnly bool `json:"readOnly,omitempty"`
}

// SlotView is the synthesiser's view of one overlay slot binding. The
// overlay engine owns the authoritative binding state; the camera
// manager translates it into this form when building the setting list.
type SlotView struct {
	ID             string
	Type           string
	SourceDeviceID string
	TextPrefix     string
	Text           string
}

// SensorChoice is one device eligible as an overlay data source.
type SensorChoice struct {
	ID    string
	Label string
	// Kind is the event kind the device emits: "temperature",
	// "humidity" or "face".
	Kind string
}
