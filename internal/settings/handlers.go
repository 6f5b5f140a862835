package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/openhaus/camsync-core/internal/isapi/capability"
	"github.com/openhaus/camsync-core/internal/isapi/patch"
	"github.com/openhaus/camsync-core/internal/isapi/transcode"
)

// Putter is the write side of the ISAPI transport the handlers need.
type Putter interface {
	PutXML(ctx context.Context, path string, body []byte) ([]byte, error)
}

// Binder applies overlay slot setting writes. The overlay engine
// implements it; slot bindings are engine state, not camera state, so
// they bypass the patch path entirely.
type Binder interface {
	SetSlotType(ctx context.Context, slotID, bindingType string) error
	SetSlotSource(ctx context.Context, slotID, deviceID string) error
	SetSlotPrefix(ctx context.Context, slotID, prefix string) error
	SetSlotText(ctx context.Context, slotID, text string) error
}

// Logger is the minimal logging interface used by the handlers.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// HandlerContext carries everything a handler may touch. Handlers are
// pure functions of (context, HandlerContext, arg, value); no handler
// keeps state between invocations.
type HandlerContext struct {
	Client   Putter
	Snapshot *capability.Snapshot
	Binder   Binder
	Logger   Logger
}

// Handler applies one setting write. arg is the parameter extracted
// from the key (the channel or slot id), empty for unparameterised
// keys.
type Handler func(ctx context.Context, hc *HandlerContext, arg, value string) error

// dispatchKey identifies a handler by key family and field, with the
// per-instance parameter factored out.
type dispatchKey struct {
	family string
	field  string
}

var handlers = map[dispatchKey]Handler{
	{"motion", "enabled"}:     handleMotionEnabled,
	{"motion", "sensitivity"}: handleMotionSensitivity,

	{"stream", "enabled"}:    handleStreamEnabled,
	{"stream", "codec"}:      handleStreamCodec,
	{"stream", "resolution"}: handleStreamResolution,
	{"stream", "framerate"}:  handleStreamFrameRate,
	{"stream", "control"}:    handleStreamControl,
	{"stream", "bitrate"}:    handleStreamBitrate,
	{"stream", "quality"}:    handleStreamQuality,
	{"stream", "gov"}:        handleStreamGOV,

	{"audio", "enabled"}:     handleAudioEnabled,
	{"audio", "compression"}: handleAudioCompression,

	{"time", "mode"}:         handleTimeMode,
	{"time", "timezone"}:     handleTimezone,
	{"time", "dst"}:          handleDST,
	{"time", "ntp:server"}:   handleNTPServer,
	{"time", "ntp:port"}:     handleNTPPort,
	{"time", "ntp:interval"}: handleNTPInterval,

	{"osd", "type"}:   handleSlotType,
	{"osd", "source"}: handleSlotSource,
	{"osd", "prefix"}: handleSlotPrefix,
	{"osd", "text"}:   handleSlotText,
}

// Apply routes one setting write to its handler.
//
// Refetch buttons are not settings and are rejected here; the camera
// sync engine intercepts "refetch:" keys before dispatch.
func Apply(ctx context.Context, hc *HandlerContext, key, value string) error {
	if hc.Logger == nil {
		hc.Logger = noopLogger{}
	}

	family, arg, field, err := splitKey(key)
	if err != nil {
		return err
	}
	h, ok := handlers[dispatchKey{family, field}]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return h(ctx, hc, arg, value)
}

// splitKey breaks "family[:arg]:field" apart. The stream and osd
// families carry an instance id as the second segment; everything else
// treats the remainder of the key as the field.
func splitKey(key string) (family, arg, field string, err error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	family = parts[0]
	switch family {
	case "stream", "osd":
		rest := strings.SplitN(parts[1], ":", 2)
		if len(rest) != 2 || rest[0] == "" || rest[1] == "" {
			return "", "", "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		return family, rest[0], rest[1], nil
	default:
		return family, "", parts[1], nil
	}
}

// pushPatch applies the edits to the retained document and pushes the
// result to the camera.
//
// An edit that cannot locate its target is a patch mismatch: the
// document is pushed unchanged for that edit and the mismatch is
// logged, never escalated. Firmware that dropped a field since the
// last fetch must not wedge the whole settings surface.
func pushPatch(ctx context.Context, hc *HandlerContext, path string, raw []byte, edits []patch.Edit) error {
	out, applied := patch.Apply(raw, edits)
	if applied < len(edits) {
		hc.Logger.Warn("patch targets missing",
			"path", path, "applied", applied, "edits", len(edits))
	}
	if _, err := hc.Client.PutXML(ctx, path, out); err != nil {
		return fmt.Errorf("push %s: %w", path, err)
	}
	return nil
}

func parseBool(value string) (string, error) {
	switch value {
	case "true", "false":
		return value, nil
	}
	return "", fmt.Errorf("%w: %q is not a boolean", ErrBadValue, value)
}

func inChoices(value string, choices []string) bool {
	if len(choices) == 0 {
		return true
	}
	for _, c := range choices {
		if c == value {
			return true
		}
	}
	return false
}

// ─── Motion ──────────────────────────────────────────────────────────

func handleMotionEnabled(ctx context.Context, hc *HandlerContext, _, value string) error {
	m := hc.Snapshot.Motion
	if m == nil {
		return fmt.Errorf("%w: motion", ErrUnavailable)
	}
	v, err := parseBool(value)
	if err != nil {
		return err
	}
	return pushPatch(ctx, hc, capability.PathMotion, m.Raw,
		[]patch.Edit{{Tag: "enabled", Value: v}})
}

func handleMotionSensitivity(ctx context.Context, hc *HandlerContext, _, value string) error {
	m := hc.Snapshot.Motion
	if m == nil {
		return fmt.Errorf("%w: motion", ErrUnavailable)
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < m.SensitivityMin || n > m.SensitivityMax {
		return fmt.Errorf("%w: sensitivity %q outside [%d, %d]",
			ErrBadValue, value, m.SensitivityMin, m.SensitivityMax)
	}
	return pushPatch(ctx, hc, capability.PathMotion, m.Raw,
		[]patch.Edit{{Tag: "sensitivityLevel", Value: strconv.Itoa(n)}})
}

// ─── Streams ─────────────────────────────────────────────────────────

// channelFor resolves the channel for a stream key and builds the block
// scope its edits are confined to.
func channelFor(hc *HandlerContext, id string) (*capability.StreamChannel, *patch.Scope, error) {
	s := hc.Snapshot.Streams
	if s == nil {
		return nil, nil, fmt.Errorf("%w: streams", ErrUnavailable)
	}
	ch := s.Channel(id)
	if ch == nil {
		return nil, nil, fmt.Errorf("%w: no stream channel %q", ErrUnknownKey, id)
	}
	return ch, &patch.Scope{BlockTag: "StreamingChannel", KeyTag: "id", KeyValue: id}, nil
}

func handleStreamEnabled(ctx context.Context, hc *HandlerContext, id, value string) error {
	_, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	v, err := parseBool(value)
	if err != nil {
		return err
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: "enabled", Value: v, Scope: scope}})
}

func handleStreamCodec(ctx context.Context, hc *HandlerContext, id, value string) error {
	ch, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	if !inChoices(value, ch.CodecOpts) {
		return fmt.Errorf("%w: codec %q not offered by channel %s", ErrBadValue, value, id)
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: "videoCodecType", Value: value, Scope: scope}})
}

func handleStreamResolution(ctx context.Context, hc *HandlerContext, id, value string) error {
	ch, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	w, h, ok := strings.Cut(value, "x")
	if !ok {
		return fmt.Errorf("%w: resolution %q", ErrBadValue, value)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return fmt.Errorf("%w: resolution %q", ErrBadValue, value)
	}
	if len(ch.Resolutions) > 0 {
		found := false
		for _, r := range ch.Resolutions {
			if r.Width == width && r.Height == height {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: resolution %q not offered by channel %s", ErrBadValue, value, id)
		}
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{
			{Tag: "videoResolutionWidth", Value: strconv.Itoa(width), Scope: scope},
			{Tag: "videoResolutionHeight", Value: strconv.Itoa(height), Scope: scope},
		})
}

func handleStreamFrameRate(ctx context.Context, hc *HandlerContext, id, value string) error {
	ch, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	centesimal, err := transcode.ParseFrameRateLabel(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	if len(ch.FrameRateOpts) > 0 {
		found := false
		for _, fps := range ch.FrameRateOpts {
			if fps == centesimal {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: frame rate %q not offered by channel %s", ErrBadValue, value, id)
		}
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: "maxFrameRate", Value: strconv.Itoa(centesimal), Scope: scope}})
}

func handleStreamControl(ctx context.Context, hc *HandlerContext, id, value string) error {
	ch, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	if !inChoices(value, ch.ControlTypeOpts) {
		return fmt.Errorf("%w: control type %q not offered by channel %s", ErrBadValue, value, id)
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: "videoQualityControlType", Value: value, Scope: scope}})
}

// handleStreamBitrate edits whichever bitrate field the current control
// type makes live: the constant bitrate under CBR, the upper cap under
// VBR.
func handleStreamBitrate(ctx context.Context, hc *HandlerContext, id, value string) error {
	ch, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	kbps, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: bitrate %q", ErrBadValue, value)
	}

	tag := "constantBitRate"
	lo, hi := ch.CBRMin, ch.CBRMax
	if ch.ControlType == "VBR" {
		tag = "vbrUpperCap"
		lo, hi = ch.VBRMin, ch.VBRMax
	}
	if hi > 0 && (kbps < lo || kbps > hi) {
		return fmt.Errorf("%w: bitrate %d outside [%d, %d]", ErrBadValue, kbps, lo, hi)
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: tag, Value: strconv.Itoa(kbps), Scope: scope}})
}

func handleStreamQuality(ctx context.Context, hc *HandlerContext, id, value string) error {
	_, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	quality, err := transcode.ParseQualityLabel(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: "fixedQuality", Value: strconv.Itoa(quality), Scope: scope}})
}

// handleStreamGOV takes the interval in seconds and converts to frames
// at the channel's current frame rate, clamped to the advertised range.
func handleStreamGOV(ctx context.Context, hc *HandlerContext, id, value string) error {
	ch, scope, err := channelFor(hc, id)
	if err != nil {
		return err
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return fmt.Errorf("%w: keyframe interval %q", ErrBadValue, value)
	}
	frames := transcode.GOVLengthFrames(seconds, ch.FrameRate)
	if ch.GOVMin > 0 && frames < ch.GOVMin {
		frames = ch.GOVMin
	}
	if ch.GOVMax > 0 && frames > ch.GOVMax {
		frames = ch.GOVMax
	}
	return pushPatch(ctx, hc, capability.PathChannels, hc.Snapshot.Streams.Raw,
		[]patch.Edit{{Tag: "GovLength", Value: strconv.Itoa(frames), Scope: scope}})
}

// ─── Audio ───────────────────────────────────────────────────────────

func audioScope(hc *HandlerContext) (*capability.Audio, *patch.Scope, error) {
	a := hc.Snapshot.Audio
	if a == nil || a.ChannelID == "" {
		return nil, nil, fmt.Errorf("%w: audio", ErrUnavailable)
	}
	return a, &patch.Scope{BlockTag: "TwoWayAudioChannel", KeyTag: "id", KeyValue: a.ChannelID}, nil
}

func handleAudioEnabled(ctx context.Context, hc *HandlerContext, _, value string) error {
	a, scope, err := audioScope(hc)
	if err != nil {
		return err
	}
	v, err := parseBool(value)
	if err != nil {
		return err
	}
	return pushPatch(ctx, hc, capability.PathAudio, a.Raw,
		[]patch.Edit{{Tag: "enabled", Value: v, Scope: scope}})
}

func handleAudioCompression(ctx context.Context, hc *HandlerContext, _, value string) error {
	a, scope, err := audioScope(hc)
	if err != nil {
		return err
	}
	if !inChoices(value, a.CompressionOpts) {
		return fmt.Errorf("%w: audio encoding %q not offered", ErrBadValue, value)
	}
	return pushPatch(ctx, hc, capability.PathAudio, a.Raw,
		[]patch.Edit{{Tag: "audioCompressionType", Value: value, Scope: scope}})
}

// ─── Time ────────────────────────────────────────────────────────────

func timeSettings(hc *HandlerContext) (*capability.TimeSettings, error) {
	t := hc.Snapshot.Time
	if t == nil {
		return nil, fmt.Errorf("%w: time", ErrUnavailable)
	}
	return t, nil
}

func handleTimeMode(ctx context.Context, hc *HandlerContext, _, value string) error {
	t, err := timeSettings(hc)
	if err != nil {
		return err
	}
	if !inChoices(value, t.ModeOpts) {
		return fmt.Errorf("%w: time mode %q not offered", ErrBadValue, value)
	}
	return pushPatch(ctx, hc, capability.PathTime, t.RawTime,
		[]patch.Edit{{Tag: "timeMode", Value: value}})
}

// handleTimezone keeps the current DST flag; handleDST keeps the
// current offset. Both rewrite the single wire timezone field, which
// carries offset and DST rule together.
func handleTimezone(ctx context.Context, hc *HandlerContext, _, value string) error {
	t, err := timeSettings(hc)
	if err != nil {
		return err
	}
	wire, err := transcode.WireTimezone(value, t.DST)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return pushPatch(ctx, hc, capability.PathTime, t.RawTime,
		[]patch.Edit{{Tag: "timeZone", Value: wire}})
}

func handleDST(ctx context.Context, hc *HandlerContext, _, value string) error {
	t, err := timeSettings(hc)
	if err != nil {
		return err
	}
	v, err := parseBool(value)
	if err != nil {
		return err
	}
	wire, err := transcode.WireTimezone(t.Timezone, v == "true")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return pushPatch(ctx, hc, capability.PathTime, t.RawTime,
		[]patch.Edit{{Tag: "timeZone", Value: wire}})
}

func ntpDocument(hc *HandlerContext) (*capability.TimeSettings, error) {
	t, err := timeSettings(hc)
	if err != nil {
		return nil, err
	}
	if len(t.RawNTP) == 0 {
		return nil, fmt.Errorf("%w: ntp", ErrUnavailable)
	}
	return t, nil
}

func handleNTPServer(ctx context.Context, hc *HandlerContext, _, value string) error {
	t, err := ntpDocument(hc)
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("%w: empty NTP server", ErrBadValue)
	}
	return pushPatch(ctx, hc, capability.PathNTP, t.RawNTP,
		[]patch.Edit{{Tag: "hostName", Value: value}})
}

func handleNTPPort(ctx context.Context, hc *HandlerContext, _, value string) error {
	t, err := ntpDocument(hc)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: NTP port %q", ErrBadValue, value)
	}
	return pushPatch(ctx, hc, capability.PathNTP, t.RawNTP,
		[]patch.Edit{{Tag: "portNo", Value: strconv.Itoa(port)}})
}

func handleNTPInterval(ctx context.Context, hc *HandlerContext, _, value string) error {
	t, err := ntpDocument(hc)
	if err != nil {
		return err
	}
	interval, err := strconv.Atoi(value)
	if err != nil || interval < 1 {
		return fmt.Errorf("%w: NTP interval %q", ErrBadValue, value)
	}
	return pushPatch(ctx, hc, capability.PathNTP, t.RawNTP,
		[]patch.Edit{{Tag: "synchronizeInterval", Value: strconv.Itoa(interval)}})
}

// ─── Overlay slots ───────────────────────────────────────────────────

func slotBinder(hc *HandlerContext) (Binder, error) {
	if hc.Binder == nil {
		return nil, fmt.Errorf("%w: overlays", ErrUnavailable)
	}
	return hc.Binder, nil
}

func handleSlotType(ctx context.Context, hc *HandlerContext, id, value string) error {
	b, err := slotBinder(hc)
	if err != nil {
		return err
	}
	switch value {
	case BindingNone, BindingText, BindingDevice, BindingFace:
	default:
		return fmt.Errorf("%w: slot type %q", ErrBadValue, value)
	}
	return b.SetSlotType(ctx, id, value)
}

func handleSlotSource(ctx context.Context, hc *HandlerContext, id, value string) error {
	b, err := slotBinder(hc)
	if err != nil {
		return err
	}
	return b.SetSlotSource(ctx, id, value)
}

func handleSlotPrefix(ctx context.Context, hc *HandlerContext, id, value string) error {
	b, err := slotBinder(hc)
	if err != nil {
		return err
	}
	return b.SetSlotPrefix(ctx, id, value)
}

func handleSlotText(ctx context.Context, hc *HandlerContext, id, value string) error {
	b, err := slotBinder(hc)
	if err != nil {
		return err
	}
	return b.SetSlotText(ctx, id, value)
}
