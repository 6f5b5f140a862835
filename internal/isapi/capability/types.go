package capability

import (
	"fmt"
	"time"

	"github.com/openhaus/camsync-core/internal/isapi/transcode"
)

// Subsystem identifies one independently fetchable capability area.
type Subsystem string

// Subsystem constants.
const (
	SubsystemMotion     Subsystem = "motion"
	SubsystemStreams    Subsystem = "streams"
	SubsystemAudio      Subsystem = "audio"
	SubsystemTime       Subsystem = "time"
	SubsystemOSD        Subsystem = "osd"
	SubsystemPTZ        Subsystem = "ptz"
	SubsystemDeviceInfo Subsystem = "deviceinfo"
	SubsystemVideoInput Subsystem = "videoinput"
)

// AllSubsystems returns every subsystem in fetch order.
func AllSubsystems() []Subsystem {
	return []Subsystem{
		SubsystemMotion, SubsystemStreams, SubsystemAudio, SubsystemTime,
		SubsystemOSD, SubsystemPTZ, SubsystemDeviceInfo, SubsystemVideoInput,
	}
}

// Snapshot is the normalised view of everything the camera reported.
//
// A Snapshot is immutable once produced; refetching any subsystem
// produces a new Snapshot. Nil subsystem pointers mean the fetch failed
// (see Errors) or the feature is absent.
type Snapshot struct {
	FetchedAt time.Time

	Motion  *Motion
	Streams *Streams
	Audio   *Audio
	Time    *TimeSettings
	OSD     *OSD
	PTZ     *PTZ
	Info    *DeviceInfo
	Input   *VideoInput

	// Errors records the fetch failure per subsystem, keyed by
	// Subsystem. Subsystems that succeeded are absent from the map.
	Errors map[Subsystem]string
}

// Motion is the motion-detection subsystem summary.
type Motion struct {
	Enabled     bool
	Sensitivity int

	// Discrete sensitivity range from the capability document.
	SensitivityMin  int
	SensitivityMax  int
	SensitivityStep int

	// Raw is the current-value document, kept for patching.
	Raw []byte
}

// SensitivityChoices expands the capability range into the discrete
// choice list offered to the user.
func (m *Motion) SensitivityChoices() []int {
	return transcode.SensitivityChoices(m.SensitivityMin, m.SensitivityMax, m.SensitivityStep)
}

// Streams carries every logical streaming channel plus the shared list
// document they are patched through.
type Streams struct {
	Channels []StreamChannel

	// Raw is the full channel-list document; per-channel patches are
	// scoped to the <StreamingChannel> block with the matching <id>.
	Raw []byte
}

// Channel returns the channel with the given id, or nil.
func (s *Streams) Channel(id string) *StreamChannel {
	for i := range s.Channels {
		if s.Channels[i].ID == id {
			return &s.Channels[i]
		}
	}
	return nil
}

// StreamChannel is one logical streaming channel's summary: current
// values from the channel list plus ranges and enumerations from the
// per-channel dynamic capability document.
type StreamChannel struct {
	ID      string
	Name    string
	Enabled bool

	Codec     string
	CodecOpts []string

	Resolution  Resolution
	Resolutions []Resolution

	// FrameRate values are centesimal (hundredths of fps).
	FrameRate     int
	FrameRateOpts []int

	// ControlType is the bitrate mode: "CBR" or "VBR".
	ControlType     string
	ControlTypeOpts []string

	ConstantBitrate int
	CBRMin, CBRMax  int

	VBRUpperCap    int
	VBRMin, VBRMax int

	FixedQuality int

	// GOVLength is the keyframe interval in frames.
	GOVLength      int
	GOVMin, GOVMax int
}

// BitrateChoices returns the kbps choice list for the channel's current
// control type.
func (c *StreamChannel) BitrateChoices() []int {
	if c.ControlType == "VBR" {
		return transcode.BitrateChoices(c.VBRMin, c.VBRMax)
	}
	return transcode.BitrateChoices(c.CBRMin, c.CBRMax)
}

// Resolution is one supported frame size.
type Resolution struct {
	Width  int
	Height int
}

// Label renders the resolution as "1920x1080".
func (r Resolution) Label() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Audio is the two-way audio subsystem summary for the first channel.
type Audio struct {
	ChannelID       string
	Enabled         bool
	Compression     string
	CompressionOpts []string

	Raw []byte
}

// TimeSettings is the time subsystem summary.
type TimeSettings struct {
	// Mode is "NTP" or "manual".
	Mode     string
	ModeOpts []string

	LocalTime string

	// Timezone is the human form ("UTC+2:00:00"); DST reports whether
	// the wire value carried the daylight-saving rule suffix.
	Timezone string
	DST      bool

	NTPServer   string
	NTPPort     int
	NTPInterval int

	// Raw documents for patching: the time config and the NTP server
	// entry are separate endpoints.
	RawTime []byte
	RawNTP  []byte
}

// OSD is the on-screen-display overlay subsystem summary.
type OSD struct {
	// MaxSlots is the device's overlay-list capacity.
	MaxSlots int

	Overlays []TextOverlay

	Raw []byte
}

// Overlay returns the overlay with the given id, or nil.
func (o *OSD) Overlay(id string) *TextOverlay {
	for i := range o.Overlays {
		if o.Overlays[i].ID == id {
			return &o.Overlays[i]
		}
	}
	return nil
}

// TextOverlay is one on-screen text region.
type TextOverlay struct {
	ID        string
	Enabled   bool
	PositionX int
	PositionY int
	Text      string
}

// PTZ is the pan-tilt-zoom subsystem summary. Supported is false when
// the camera rejected the capability fetch (the common case for fixed
// cameras).
type PTZ struct {
	Supported bool
	Presets   []PTZPreset
}

// PTZPreset is one stored camera position.
type PTZPreset struct {
	ID   string
	Name string
}

// DeviceInfo is the static device identity summary.
type DeviceInfo struct {
	DeviceName      string
	Model           string
	SerialNumber    string
	FirmwareVersion string
	MACAddress      string

	Raw []byte
}

// VideoInput is the video input channel summary.
type VideoInput struct {
	Name     string
	Standard string

	Raw []byte
}
