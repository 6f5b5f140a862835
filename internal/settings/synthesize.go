package settings

import (
	"fmt"
	"strconv"

	"github.com/openhaus/camsync-core/internal/isapi/capability"
	"github.com/openhaus/camsync-core/internal/isapi/transcode"
)

// Inputs carries the state that lives outside the camera snapshot but
// still shapes the setting list.
type Inputs struct {
	// Slots are the current overlay slot bindings, in slot order.
	Slots []SlotView

	// Sensors are the devices offered as overlay data sources.
	Sensors []SensorChoice
}

// Synthesize builds the complete setting list from a snapshot.
//
// The list is regenerated from scratch on every call: order, grouping
// and conditional entries all derive from the snapshot state, so a
// changed control type or time mode reshapes the list on the next
// synthesis rather than toggling entries in place. Subsystems missing
// from the snapshot contribute only their refetch button, which doubles
// as the retry affordance.
func Synthesize(snap *capability.Snapshot, in Inputs) []Definition {
	var defs []Definition
	defs = append(defs, motionDefs(snap.Motion)...)
	defs = append(defs, streamDefs(snap.Streams)...)
	defs = append(defs, audioDefs(snap.Audio)...)
	defs = append(defs, timeDefs(snap.Time)...)
	defs = append(defs, osdDefs(snap.OSD, in)...)
	defs = append(defs, ptzDefs(snap.PTZ)...)
	defs = append(defs, infoDefs(snap.Info, snap.Input)...)
	return defs
}

func refetchDef(sub capability.Subsystem, subgroup, title string) Definition {
	return Definition{
		Key:      "refetch:" + string(sub),
		Title:    title,
		Subgroup: subgroup,
		Kind:     KindButton,
	}
}

func motionDefs(m *capability.Motion) []Definition {
	defs := []Definition{}
	if m != nil {
		choices := make([]string, 0, 6)
		for _, v := range m.SensitivityChoices() {
			choices = append(choices, strconv.Itoa(v))
		}
		defs = append(defs,
			Definition{
				Key:      "motion:enabled",
				Title:    "Motion Detection",
				Subgroup: SubgroupMotion,
				Kind:     KindBoolean,
				Value:    strconv.FormatBool(m.Enabled),
			},
			Definition{
				Key:      "motion:sensitivity",
				Title:    "Sensitivity",
				Subgroup: SubgroupMotion,
				Kind:     KindChoice,
				Choices:  choices,
				Value:    strconv.Itoa(m.Sensitivity),
			},
		)
	}
	return append(defs, refetchDef(capability.SubsystemMotion, SubgroupMotion, "Refresh Motion Settings"))
}

func streamDefs(s *capability.Streams) []Definition {
	var defs []Definition
	if s != nil {
		for i := range s.Channels {
			defs = append(defs, channelDefs(&s.Channels[i])...)
		}
	}
	return append(defs, refetchDef(capability.SubsystemStreams, "Streams", "Refresh Stream Settings"))
}

// channelDefs builds the per-channel block. The bitrate and quality
// entries depend on the current control type: CBR edits the constant
// bitrate, VBR edits the upper cap and additionally exposes the fixed
// quality target.
func channelDefs(ch *capability.StreamChannel) []Definition {
	group := ch.Name
	if group == "" {
		group = "Stream " + ch.ID
	}
	key := func(field string) string { return "stream:" + ch.ID + ":" + field }

	defs := []Definition{
		{Key: key("enabled"), Title: "Enabled", Subgroup: group, Kind: KindBoolean,
			Value: strconv.FormatBool(ch.Enabled)},
		{Key: key("codec"), Title: "Video Encoding", Subgroup: group, Kind: KindChoice,
			Choices: ch.CodecOpts, Value: ch.Codec},
	}

	resChoices := make([]string, 0, len(ch.Resolutions))
	for _, r := range ch.Resolutions {
		resChoices = append(resChoices, r.Label())
	}
	defs = append(defs, Definition{
		Key: key("resolution"), Title: "Resolution", Subgroup: group, Kind: KindChoice,
		Choices: resChoices, Value: ch.Resolution.Label(),
	})

	fpsChoices := make([]string, 0, len(ch.FrameRateOpts))
	for _, fps := range ch.FrameRateOpts {
		fpsChoices = append(fpsChoices, transcode.FrameRateLabel(fps))
	}
	defs = append(defs, Definition{
		Key: key("framerate"), Title: "Frame Rate", Subgroup: group, Kind: KindChoice,
		Choices: fpsChoices, Value: transcode.FrameRateLabel(ch.FrameRate),
	})

	defs = append(defs, Definition{
		Key: key("control"), Title: "Bitrate Type", Subgroup: group, Kind: KindChoice,
		Choices: ch.ControlTypeOpts, Value: ch.ControlType,
	})

	bitrate := ch.ConstantBitrate
	bitrateTitle := "Bitrate (kbps)"
	if ch.ControlType == "VBR" {
		bitrate = ch.VBRUpperCap
		bitrateTitle = "Max Bitrate (kbps)"
	}
	bitChoices := []string{}
	for _, v := range ch.BitrateChoices() {
		bitChoices = append(bitChoices, strconv.Itoa(v))
	}
	defs = append(defs, Definition{
		Key: key("bitrate"), Title: bitrateTitle, Subgroup: group, Kind: KindChoice,
		Choices: bitChoices, Value: strconv.Itoa(bitrate),
	})

	if ch.ControlType == "VBR" {
		defs = append(defs, Definition{
			Key: key("quality"), Title: "Video Quality", Subgroup: group, Kind: KindChoice,
			Choices: transcode.QualityChoices(),
			Value:   transcode.QualityLabel(ch.FixedQuality),
		})
	}

	defs = append(defs, Definition{
		Key: key("gov"), Title: "Keyframe Interval (s)", Subgroup: group, Kind: KindNumber,
		Value: strconv.Itoa(transcode.GOVLengthSeconds(ch.GOVLength, ch.FrameRate)),
	})

	return defs
}

func audioDefs(a *capability.Audio) []Definition {
	defs := []Definition{}
	if a != nil && a.ChannelID != "" {
		defs = append(defs,
			Definition{
				Key:      "audio:enabled",
				Title:    "Two-Way Audio",
				Subgroup: SubgroupAudio,
				Kind:     KindBoolean,
				Value:    strconv.FormatBool(a.Enabled),
			},
			Definition{
				Key:      "audio:compression",
				Title:    "Audio Encoding",
				Subgroup: SubgroupAudio,
				Kind:     KindChoice,
				Choices:  a.CompressionOpts,
				Value:    a.Compression,
			},
		)
	}
	return append(defs, refetchDef(capability.SubsystemAudio, SubgroupAudio, "Refresh Audio Settings"))
}

// timeDefs exposes the NTP entries only while NTP mode is active; a
// mode change regenerates the list and reveals or hides them.
func timeDefs(t *capability.TimeSettings) []Definition {
	defs := []Definition{}
	if t != nil {
		defs = append(defs,
			Definition{
				Key:      "time:mode",
				Title:    "Time Sync Mode",
				Subgroup: SubgroupTime,
				Kind:     KindChoice,
				Choices:  t.ModeOpts,
				Value:    t.Mode,
			},
			Definition{
				Key:      "time:timezone",
				Title:    "Timezone",
				Subgroup: SubgroupTime,
				Kind:     KindText,
				Value:    t.Timezone,
			},
			Definition{
				Key:      "time:dst",
				Title:    "Daylight Saving",
				Subgroup: SubgroupTime,
				Kind:     KindBoolean,
				Value:    strconv.FormatBool(t.DST),
			},
		)
		if t.Mode == "NTP" {
			defs = append(defs,
				Definition{
					Key:      "time:ntp:server",
					Title:    "NTP Server",
					Subgroup: SubgroupTime,
					Kind:     KindText,
					Value:    t.NTPServer,
				},
				Definition{
					Key:      "time:ntp:port",
					Title:    "NTP Port",
					Subgroup: SubgroupTime,
					Kind:     KindNumber,
					Value:    strconv.Itoa(t.NTPPort),
				},
				Definition{
					Key:      "time:ntp:interval",
					Title:    "Sync Interval (min)",
					Subgroup: SubgroupTime,
					Kind:     KindNumber,
					Value:    strconv.Itoa(t.NTPInterval),
				},
			)
		}
		defs = append(defs, Definition{
			Key:      "info:localtime",
			Title:    "Camera Time",
			Subgroup: SubgroupTime,
			Kind:     KindReadOnly,
			Value:    t.LocalTime,
			ReadOnly: true,
		})
	}
	return append(defs, refetchDef(capability.SubsystemTime, SubgroupTime, "Refresh Time Settings"))
}

// osdDefs builds one block per overlay slot up to the device's slot
// capacity. The type entry drives the rest of the block: a text slot
// gets a free-text entry, a device slot gets source and prefix, a face
// slot gets only the source.
func osdDefs(o *capability.OSD, in Inputs) []Definition {
	defs := []Definition{}
	if o != nil {
		sensorIDs := make([]string, 0, len(in.Sensors))
		for _, s := range in.Sensors {
			sensorIDs = append(sensorIDs, s.ID)
		}

		for i := 0; i < o.MaxSlots && i < len(in.Slots); i++ {
			slot := in.Slots[i]
			key := func(field string) string { return "osd:" + slot.ID + ":" + field }
			title := fmt.Sprintf("Slot %s", slot.ID)

			defs = append(defs, Definition{
				Key: key("type"), Title: title + " Type", Subgroup: SubgroupOSD, Kind: KindChoice,
				Choices: []string{BindingNone, BindingText, BindingDevice, BindingFace},
				Value:   slot.Type,
			})
			switch slot.Type {
			case BindingText:
				defs = append(defs, Definition{
					Key: key("text"), Title: title + " Text", Subgroup: SubgroupOSD, Kind: KindText,
					Value: slot.Text,
				})
			case BindingDevice:
				defs = append(defs,
					Definition{
						Key: key("source"), Title: title + " Source", Subgroup: SubgroupOSD, Kind: KindChoice,
						Choices: sensorIDs, Value: slot.SourceDeviceID,
					},
					Definition{
						Key: key("prefix"), Title: title + " Prefix", Subgroup: SubgroupOSD, Kind: KindText,
						Value: slot.TextPrefix,
					},
				)
			case BindingFace:
				defs = append(defs, Definition{
					Key: key("source"), Title: title + " Source", Subgroup: SubgroupOSD, Kind: KindChoice,
					Choices: sensorIDs, Value: slot.SourceDeviceID,
				})
			}
		}
	}
	return append(defs, refetchDef(capability.SubsystemOSD, SubgroupOSD, "Refresh Overlay Settings"))
}

// ptzDefs contributes nothing for fixed cameras; the subsystem is
// simply absent rather than failed.
func ptzDefs(p *capability.PTZ) []Definition {
	if p == nil || !p.Supported {
		return nil
	}
	defs := []Definition{}
	for _, preset := range p.Presets {
		defs = append(defs, Definition{
			Key:      "ptz:preset:" + preset.ID,
			Title:    "Preset " + preset.ID,
			Subgroup: SubgroupPTZ,
			Kind:     KindReadOnly,
			Value:    preset.Name,
			ReadOnly: true,
		})
	}
	return append(defs, refetchDef(capability.SubsystemPTZ, SubgroupPTZ, "Refresh PTZ Settings"))
}

func infoDefs(info *capability.DeviceInfo, input *capability.VideoInput) []Definition {
	defs := []Definition{}
	readonly := func(key, title, value string) Definition {
		return Definition{
			Key: key, Title: title, Subgroup: SubgroupInfo, Kind: KindReadOnly,
			Value: value, ReadOnly: true,
		}
	}
	if info != nil {
		defs = append(defs,
			readonly("info:name", "Device Name", info.DeviceName),
			readonly("info:model", "Model", info.Model),
			readonly("info:serial", "Serial Number", info.SerialNumber),
			readonly("info:firmware", "Firmware", info.FirmwareVersion),
			readonly("info:mac", "MAC Address", info.MACAddress),
		)
	}
	if input != nil {
		defs = append(defs, readonly("info:input", "Video Input", input.Name))
		if input.Standard != "" {
			defs = append(defs, readonly("info:standard", "Video Standard", input.Standard))
		}
	}
	defs = append(defs, refetchDef(capability.SubsystemDeviceInfo, SubgroupInfo, "Refresh Device Info"))
	return append(defs, refetchDef(capability.SubsystemVideoInput, SubgroupInfo, "Refresh Video Input"))
}
