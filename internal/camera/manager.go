package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openhaus/camsync-core/internal/device"
	"github.com/openhaus/camsync-core/internal/events"
	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
	"github.com/openhaus/camsync-core/internal/isapi/capability"
	isapiclient "github.com/openhaus/camsync-core/internal/isapi/client"
	"github.com/openhaus/camsync-core/internal/overlay"
	"github.com/openhaus/camsync-core/internal/settings"
)

// Logger is the minimal logging interface used by the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher is the outbound MQTT surface the manager announces on.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Config assembles a manager's collaborators.
type Config struct {
	Devices *device.Registry
	Events  overlay.EventSource
	Store   overlay.Store

	// Publisher is optional; without it no announcements are made.
	Publisher Publisher

	// Metrics receives overlay push counts; optional. Satisfied by the
	// InfluxDB client.
	Metrics overlay.MetricSink

	// Dial builds the transport for one camera connection. Defaults to
	// the ISAPI HTTP client.
	Dial func(conn *device.Connection) Transport

	// SyncInterval overrides the overlay tick period; zero keeps the
	// engine default.
	SyncInterval time.Duration

	Logger Logger
}

// Manager is the registry of running cameras.
//
// All methods are safe for concurrent use.
type Manager struct {
	devices   *device.Registry
	source    overlay.EventSource
	store     overlay.Store
	publisher Publisher
	metrics   overlay.MetricSink
	dial      func(conn *device.Connection) Transport
	interval  time.Duration
	logger    Logger

	mu      sync.RWMutex
	cameras map[string]*Camera
}

// NewManager creates an empty camera registry.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		devices:   cfg.Devices,
		source:    cfg.Events,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		dial:      cfg.Dial,
		interval:  cfg.SyncInterval,
		logger:    cfg.Logger,
		cameras:   make(map[string]*Camera),
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	if m.dial == nil {
		m.dial = dialISAPI
	}
	return m
}

func dialISAPI(conn *device.Connection) Transport {
	auth := isapiclient.AuthDigest
	if conn.Auth == "basic" {
		auth = isapiclient.AuthBasic
	}
	return isapiclient.New(isapiclient.Config{
		Host:     conn.Host,
		Port:     conn.Port,
		TLS:      conn.TLS,
		Username: conn.Username,
		Password: conn.Password,
		Auth:     auth,
	})
}

// Register brings one camera under management: it fetches the full
// capability snapshot, builds the overlay engine, restores persisted
// bindings and starts the sync loop.
//
// The initial fetch tolerates per-subsystem failures; only a cancelled
// context aborts registration.
func (m *Manager) Register(ctx context.Context, deviceID string) (*Camera, error) {
	dev, err := m.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !dev.Type.IsCamera() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCamera, deviceID, dev.Type)
	}

	m.mu.Lock()
	if _, ok := m.cameras[deviceID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRegistered, deviceID)
	}
	m.mu.Unlock()

	transport := m.dial(dev.Connection)
	fetcher := capability.NewFetcher(transport)
	fetcher.SetLogger(m.logger)

	snap, err := fetcher.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("camera %s: initial fetch: %w", deviceID, err)
	}

	engine := overlay.NewEngine(overlay.Config{
		CameraID: deviceID,
		Client:   transport,
		Events:   m.source,
		Kinds:    m,
		Store:    m.store,
		Metrics:  m,
		Interval: m.interval,
		Logger:   m.logger,
	})
	if snap.OSD != nil {
		engine.SetOSD(snap.OSD)
	}
	if err := engine.Restore(ctx); err != nil {
		m.logger.Warn("overlay binding restore failed", "camera", deviceID, "error", err)
	}

	cam := &Camera{
		id:        deviceID,
		dev:       dev,
		transport: transport,
		fetcher:   fetcher,
		engine:    engine,
		logger:    m.logger,
		snap:      snap,
	}

	m.mu.Lock()
	if _, ok := m.cameras[deviceID]; ok {
		m.mu.Unlock()
		engine.Stop()
		return nil, fmt.Errorf("%w: %s", ErrRegistered, deviceID)
	}
	m.cameras[deviceID] = cam
	m.mu.Unlock()

	if err := engine.Start(context.Background()); err != nil {
		m.logger.Warn("overlay engine start failed", "camera", deviceID, "error", err)
	}

	health := device.HealthStatusOnline
	if len(snap.Errors) > 0 {
		health = device.HealthStatusDegraded
	}
	if err := m.devices.SetDeviceHealth(ctx, deviceID, health); err != nil {
		m.logger.Warn("health update failed", "camera", deviceID, "error", err)
	}

	m.publishStatus(cam, string(health))
	m.publishSettings(ctx, cam)
	m.logger.Info("camera registered", "camera", deviceID, "subsystem_errors", len(snap.Errors))
	return cam, nil
}

// Unregister stops a camera's sync loop and removes it from the
// registry. Persisted overlay bindings are kept for re-registration.
func (m *Manager) Unregister(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	cam, ok := m.cameras[deviceID]
	if ok {
		delete(m.cameras, deviceID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, deviceID)
	}

	cam.Stop()

	if err := m.devices.SetDeviceHealth(ctx, deviceID, device.HealthStatusOffline); err != nil {
		m.logger.Warn("health update failed", "camera", deviceID, "error", err)
	}
	m.publishStatus(cam, string(device.HealthStatusOffline))
	m.logger.Info("camera unregistered", "camera", deviceID)
	return nil
}

// Get returns a registered camera.
func (m *Manager) Get(deviceID string) (*Camera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cam, ok := m.cameras[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, deviceID)
	}
	return cam, nil
}

// List returns every registered camera in id order.
func (m *Manager) List() []*Camera {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Camera, 0, len(m.cameras))
	for _, cam := range m.cameras {
		out = append(out, cam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Close unregisters every camera. Used on shutdown.
func (m *Manager) Close(ctx context.Context) {
	for _, cam := range m.List() {
		if err := m.Unregister(ctx, cam.id); err != nil {
			m.logger.Warn("unregister on close failed", "camera", cam.id, "error", err)
		}
	}
}

// DuplicateOverlays copies the source camera's overlay document and
// slot bindings onto the destination camera. The destination's overlay
// subsystem is refetched afterwards so its engine patches against what
// the camera actually accepted.
func (m *Manager) DuplicateOverlays(ctx context.Context, srcID, dstID string) error {
	src, err := m.Get(srcID)
	if err != nil {
		return err
	}
	dst, err := m.Get(dstID)
	if err != nil {
		return err
	}

	srcSnap := src.Snapshot()
	if srcSnap.OSD == nil {
		return fmt.Errorf("%w: %s", ErrNoOverlays, srcID)
	}

	if _, err := dst.transport.PutXML(ctx, capability.PathOverlays, srcSnap.OSD.Raw); err != nil {
		return fmt.Errorf("duplicating overlays to %s: %w", dstID, err)
	}
	if err := dst.Refetch(ctx, capability.SubsystemOSD); err != nil {
		m.logger.Warn("overlay refetch after duplicate failed", "camera", dstID, "error", err)
	}
	if err := dst.engine.ApplyBindings(ctx, src.engine.Slots()); err != nil {
		return fmt.Errorf("copying bindings to %s: %w", dstID, err)
	}

	m.publishSettings(ctx, dst)
	return nil
}

// SensorChoices lists the devices that can feed overlay slots.
func (m *Manager) SensorChoices(ctx context.Context) []settings.SensorChoice {
	devs, err := m.devices.ListDevices(ctx)
	if err != nil {
		m.logger.Warn("listing devices failed", "error", err)
		return nil
	}

	var choices []settings.SensorChoice
	for i := range devs {
		d := &devs[i]
		if !d.Type.IsSensor() {
			continue
		}
		choices = append(choices, settings.SensorChoice{
			ID:    d.ID,
			Label: d.Name,
			Kind:  d.Type.EventKind(),
		})
	}
	return choices
}

// EventKind resolves a device id to the event kind it emits. Implements
// the overlay engine's KindResolver.
func (m *Manager) EventKind(deviceID string) (string, bool) {
	dev, err := m.devices.GetDevice(context.Background(), deviceID)
	if err != nil {
		return "", false
	}
	kind := dev.Type.EventKind()
	return kind, kind != ""
}

// WriteOverlayPush records one successful overlay write: the count goes
// to the telemetry sink and the push is announced on MQTT so UI clients
// see overlay activity live. Implements the overlay engine's MetricSink.
func (m *Manager) WriteOverlayPush(cameraID, slotID string, textLen int) {
	if m.metrics != nil {
		m.metrics.WriteOverlayPush(cameraID, slotID, textLen)
	}
	if m.publisher == nil {
		return
	}
	payload, err := json.Marshal(overlayPushPayload{
		SlotID:    slotID,
		TextLen:   textLen,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.CameraOverlay(cameraID)
	if err := m.publisher.Publish(topic, payload, 1, false); err != nil {
		m.logger.Warn("overlay push publish failed", "camera", cameraID, "error", err)
	}
}

// ─── Announcements ───────────────────────────────────────────────────

type statusPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type overlayPushPayload struct {
	SlotID    string `json:"slot_id"`
	TextLen   int    `json:"text_len"`
	Timestamp string `json:"timestamp"`
}

func (m *Manager) publishStatus(cam *Camera, status string) {
	if m.publisher == nil {
		return
	}
	payload, err := json.Marshal(statusPayload{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.CameraStatus(cam.id)
	if err := m.publisher.Publish(topic, payload, 1, true); err != nil {
		m.logger.Warn("status publish failed", "camera", cam.id, "error", err)
	}
}

// publishSettings announces the camera's current setting list as a
// retained message so late subscribers see the latest schema.
func (m *Manager) publishSettings(ctx context.Context, cam *Camera) {
	if m.publisher == nil {
		return
	}
	defs := cam.Definitions(m.SensorChoices(ctx))
	payload, err := json.Marshal(defs)
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.CameraSettings(cam.id)
	if err := m.publisher.Publish(topic, payload, 1, true); err != nil {
		m.logger.Warn("settings publish failed", "camera", cam.id, "error", err)
	}
}

// BusSource adapts the sensor event bus to the overlay engine's
// subscription interface.
func BusSource(bus *events.Bus) overlay.EventSource {
	return busSource{bus: bus}
}

type busSource struct {
	bus *events.Bus
}

func (s busSource) Listen(deviceID, kind string) (overlay.Subscription, error) {
	return s.bus.Listen(deviceID, kind)
}
