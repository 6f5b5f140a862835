package capability

import (
	"context"
	"errors"
	"time"

	"github.com/openhaus/camsync-core/internal/isapi/client"
)

// ISAPI endpoint paths, one cluster per subsystem. The first video
// input channel is assumed; multi-input devices expose the same layout
// per channel.
const (
	PathMotion      = "/ISAPI/System/Video/inputs/channels/1/motionDetection"
	PathMotionCaps  = PathMotion + "/capabilities"
	PathChannels    = "/ISAPI/Streaming/channels"
	PathChannelCaps = "/ISAPI/Streaming/channels/%s/capabilities"
	PathAudio       = "/ISAPI/System/TwoWayAudio/channels"
	PathTime        = "/ISAPI/System/time"
	PathTimeCaps    = "/ISAPI/System/time/capabilities"
	PathNTP         = "/ISAPI/System/time/ntpServers/1"
	PathOverlays    = "/ISAPI/System/Video/inputs/channels/1/overlays"
	PathOverlayCaps = PathOverlays + "/capabilities"
	PathPTZCaps     = "/ISAPI/PTZCtrl/channels/1/capabilities"
	PathPTZPresets  = "/ISAPI/PTZCtrl/channels/1/presets"
	PathDeviceInfo  = "/ISAPI/System/deviceInfo"
	PathVideoInput  = "/ISAPI/System/Video/inputs/channels/1"
)

// Getter is the read side of the ISAPI transport the fetcher needs.
type Getter interface {
	GetXML(ctx context.Context, path string) ([]byte, error)
}

// Logger is the minimal logging interface used by the fetcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Fetcher retrieves capability snapshots from one camera.
type Fetcher struct {
	client Getter
	logger Logger
}

// NewFetcher creates a fetcher bound to one camera's transport.
func NewFetcher(client Getter) *Fetcher {
	return &Fetcher{client: client, logger: noopLogger{}}
}

// SetLogger sets the logger for the fetcher.
func (f *Fetcher) SetLogger(logger Logger) {
	f.logger = logger
}

// FetchAll retrieves every subsystem and assembles a Snapshot.
//
// Individual subsystem failures never abort the whole fetch: the
// failing subsystem stays nil, the error is recorded in
// Snapshot.Errors, and everything else proceeds. FetchAll itself only
// fails when the context is cancelled.
func (f *Fetcher) FetchAll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		FetchedAt: time.Now().UTC(),
		Errors:    make(map[Subsystem]string),
	}

	for _, sub := range AllSubsystems() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := f.fetchInto(ctx, snap, sub); err != nil {
			snap.Errors[sub] = err.Error()
			f.logger.Warn("capability fetch failed", "subsystem", sub, "error", err)
		}
	}

	return snap, nil
}

// Refetch re-reads a single subsystem and returns a new Snapshot that
// shares every other subsystem with base. Snapshots are immutable, so
// sharing is safe.
func (f *Fetcher) Refetch(ctx context.Context, base *Snapshot, sub Subsystem) (*Snapshot, error) {
	snap := &Snapshot{
		FetchedAt: time.Now().UTC(),
		Errors:    make(map[Subsystem]string),
	}
	if base != nil {
		snap.Motion = base.Motion
		snap.Streams = base.Streams
		snap.Audio = base.Audio
		snap.Time = base.Time
		snap.OSD = base.OSD
		snap.PTZ = base.PTZ
		snap.Info = base.Info
		snap.Input = base.Input
		for k, v := range base.Errors {
			if k != sub {
				snap.Errors[k] = v
			}
		}
	}

	if err := f.fetchInto(ctx, snap, sub); err != nil {
		snap.Errors[sub] = err.Error()
		return snap, err
	}
	return snap, nil
}

// fetchInto dispatches one subsystem fetch and stores the result.
//
// PTZ is special-cased per the design: an unsupported-subsystem error
// reduces PTZ to "absent" and is not treated as a failure.
func (f *Fetcher) fetchInto(ctx context.Context, snap *Snapshot, sub Subsystem) error {
	switch sub {
	case SubsystemMotion:
		m, err := f.FetchMotion(ctx)
		if err != nil {
			return err
		}
		snap.Motion = m
	case SubsystemStreams:
		s, err := f.FetchStreams(ctx)
		if err != nil {
			return err
		}
		snap.Streams = s
	case SubsystemAudio:
		a, err := f.FetchAudio(ctx)
		if err != nil {
			return err
		}
		snap.Audio = a
	case SubsystemTime:
		t, err := f.FetchTime(ctx)
		if err != nil {
			return err
		}
		snap.Time = t
	case SubsystemOSD:
		o, err := f.FetchOSD(ctx)
		if err != nil {
			return err
		}
		snap.OSD = o
	case SubsystemPTZ:
		p, err := f.FetchPTZ(ctx)
		if err != nil {
			// Fixed cameras answer PTZ endpoints with an error
			// status; that is "no PTZ", not a fetch failure.
			if errors.Is(err, client.ErrStatus) {
				f.logger.Debug("PTZ capability absent", "error", err)
				snap.PTZ = &PTZ{Supported: false}
				return nil
			}
			return err
		}
		snap.PTZ = p
	case SubsystemDeviceInfo:
		i, err := f.FetchDeviceInfo(ctx)
		if err != nil {
			return err
		}
		snap.Info = i
	case SubsystemVideoInput:
		v, err := f.FetchVideoInput(ctx)
		if err != nil {
			return err
		}
		snap.Input = v
	default:
		return ErrUnknownSubsystem
	}
	return nil
}
