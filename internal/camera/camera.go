package camera

import (
	"context"
	"strings"
	"sync"

	"github.com/openhaus/camsync-core/internal/device"
	"github.com/openhaus/camsync-core/internal/isapi/capability"
	"github.com/openhaus/camsync-core/internal/overlay"
	"github.com/openhaus/camsync-core/internal/settings"
)

// Transport is the two-way ISAPI transport one camera is driven over.
type Transport interface {
	GetXML(ctx context.Context, path string) ([]byte, error)
	PutXML(ctx context.Context, path string, body []byte) ([]byte, error)
}

// Camera is one registered camera's running stack.
//
// The snapshot pointer is swapped atomically under the lock; readers
// always see a complete snapshot, never a partially refetched one.
type Camera struct {
	id        string
	dev       *device.Device
	transport Transport
	fetcher   *capability.Fetcher
	engine    *overlay.Engine
	logger    Logger

	mu   sync.RWMutex
	snap *capability.Snapshot
}

// ID returns the camera's device id.
func (c *Camera) ID() string { return c.id }

// Device returns the camera's device record as registered.
func (c *Camera) Device() *device.Device { return c.dev }

// Snapshot returns the current capability snapshot.
func (c *Camera) Snapshot() *capability.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Slots returns the camera's current overlay bindings.
func (c *Camera) Slots() []overlay.Slot {
	return c.engine.Slots()
}

// Definitions synthesises the camera's setting list. sensors lists the
// devices offered as overlay data sources.
func (c *Camera) Definitions(sensors []settings.SensorChoice) []settings.Definition {
	return settings.Synthesize(c.Snapshot(), settings.Inputs{
		Slots:   slotViews(c.engine.Slots()),
		Sensors: sensors,
	})
}

// Apply routes one setting write.
//
// Refetch buttons re-read their subsystem instead of writing. Any
// other write goes through the handler table and, when it touched the
// camera, is followed by a best-effort refetch of the affected
// subsystem so the next synthesis reflects what the camera actually
// accepted.
func (c *Camera) Apply(ctx context.Context, key, value string) error {
	if sub, ok := strings.CutPrefix(key, "refetch:"); ok {
		return c.Refetch(ctx, capability.Subsystem(sub))
	}

	hc := &settings.HandlerContext{
		Client:   c.transport,
		Snapshot: c.Snapshot(),
		Binder:   c.engine,
		Logger:   c.logger,
	}
	if err := settings.Apply(ctx, hc, key, value); err != nil {
		return err
	}

	if sub, ok := subsystemFor(key); ok {
		if err := c.Refetch(ctx, sub); err != nil {
			c.logger.Warn("post-write refetch failed", "camera", c.id, "subsystem", sub, "error", err)
		}
	}
	return nil
}

// Refetch re-reads one subsystem and installs the resulting snapshot.
// A refetched overlay document is handed to the overlay engine so its
// patches keep targeting current bytes.
func (c *Camera) Refetch(ctx context.Context, sub capability.Subsystem) error {
	snap, err := c.fetcher.Refetch(ctx, c.Snapshot(), sub)
	if snap != nil {
		c.mu.Lock()
		c.snap = snap
		c.mu.Unlock()

		if sub == capability.SubsystemOSD && snap.OSD != nil {
			c.engine.SetOSD(snap.OSD)
		}
	}
	return err
}

// Stop shuts the camera's overlay engine down synchronously.
func (c *Camera) Stop() {
	c.engine.Stop()
}

// subsystemFor maps a setting key family to the subsystem a successful
// write invalidates. Overlay slot writes mutate engine state only, so
// they trigger no refetch.
func subsystemFor(key string) (capability.Subsystem, bool) {
	family, _, _ := strings.Cut(key, ":")
	switch family {
	case "motion":
		return capability.SubsystemMotion, true
	case "stream":
		return capability.SubsystemStreams, true
	case "audio":
		return capability.SubsystemAudio, true
	case "time":
		return capability.SubsystemTime, true
	}
	return "", false
}

func slotViews(slots []overlay.Slot) []settings.SlotView {
	views := make([]settings.SlotView, len(slots))
	for i, s := range slots {
		views[i] = settings.SlotView{
			ID:             s.ID,
			Type:           s.Type,
			SourceDeviceID: s.SourceDeviceID,
			TextPrefix:     s.TextPrefix,
			Text:           s.Text,
		}
	}
	return views
}
