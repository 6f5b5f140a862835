package overlay

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openhaus/camsync-core/internal/events"
	"github.com/openhaus/camsync-core/internal/isapi/capability"
	"github.com/openhaus/camsync-core/internal/isapi/patch"
)

const (
	// defaultInterval is the reconciliation tick period.
	defaultInterval = 10 * time.Second

	// queueSize bounds the event queue between ticks. Slots only render
	// the newest reading, so overflow drops the oldest entry.
	queueSize = 64

	// pushTimeout bounds one camera write within a tick.
	pushTimeout = 10 * time.Second
)

// Putter is the write side of the ISAPI transport the engine needs.
type Putter interface {
	PutXML(ctx context.Context, path string, body []byte) ([]byte, error)
}

// Subscription is one live sensor event feed.
type Subscription interface {
	C() <-chan events.Event
	Cancel()
}

// EventSource hands out sensor event subscriptions.
type EventSource interface {
	Listen(deviceID, kind string) (Subscription, error)
}

// KindResolver maps a device id to the event kind it emits.
type KindResolver interface {
	EventKind(deviceID string) (kind string, ok bool)
}

// MetricSink receives a record of every successful overlay write.
// Satisfied by the InfluxDB client; nil disables recording.
type MetricSink interface {
	WriteOverlayPush(cameraID, slotID string, textLen int)
}

// Logger is the minimal logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config assembles an engine's collaborators.
type Config struct {
	CameraID string
	Client   Putter
	Events   EventSource
	Kinds    KindResolver
	Store    Store

	// Interval overrides the tick period; zero means the default.
	Interval time.Duration

	// Metrics is optional; nil disables push recording.
	Metrics MetricSink

	Logger Logger
}

// slotState is one slot's binding plus its runtime sync state.
type slotState struct {
	cfg Slot

	// managed turns true the first time a binding write touches the
	// slot. Unmanaged slots are never reconciled, so vendor-configured
	// overlays survive untouched; an explicit unbind is managed and
	// clears the slot.
	managed bool

	sub Subscription

	lastEvent events.Event
	hasEvent  bool

	// lastResolved and lastEnabled mirror what the camera currently
	// displays; a tick that resolves to the same pair writes nothing.
	lastResolved string
	lastEnabled  bool
}

// Engine synchronises one camera's text overlays.
//
// All state is guarded by mu. The reconciliation goroutine and the
// binding setters take the same lock, so a tick can never observe a
// half-applied binding change and ticks can never overlap.
type Engine struct {
	cameraID string
	client   Putter
	source   EventSource
	kinds    KindResolver
	store    Store
	metrics  MetricSink
	logger   Logger
	interval time.Duration

	queue chan events.Event

	mu       sync.Mutex
	osdRaw   []byte
	maxSlots int
	slots    map[string]*slotState
	order    []string

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEngine creates an engine for one camera. Call SetOSD with the
// camera's overlay snapshot before Start.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cameraID: cfg.CameraID,
		client:   cfg.Client,
		source:   cfg.Events,
		kinds:    cfg.Kinds,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		interval: cfg.Interval,
		queue:    make(chan events.Event, queueSize),
		slots:    make(map[string]*slotState),
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if e.interval <= 0 {
		e.interval = defaultInterval
	}
	return e
}

// SetOSD installs the overlay snapshot the engine patches against.
//
// Slots present on the camera but not yet known to the engine are
// seeded with an unbound state whose last-resolved text matches what
// the camera currently displays, so adopting a camera never triggers a
// spurious write. Existing bindings survive a refetch.
func (e *Engine) SetOSD(osd *capability.OSD) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.osdRaw = osd.Raw
	e.maxSlots = osd.MaxSlots
	e.order = e.order[:0]

	seen := make(map[string]bool, len(osd.Overlays))
	for i := range osd.Overlays {
		if len(e.order) >= e.maxSlots {
			break
		}
		ov := &osd.Overlays[i]
		seen[ov.ID] = true
		e.order = append(e.order, ov.ID)

		if st, ok := e.slots[ov.ID]; ok {
			// The camera document is the truth for what is on screen.
			st.lastResolved = ov.Text
			st.lastEnabled = ov.Enabled
			continue
		}
		e.slots[ov.ID] = &slotState{
			cfg:          Slot{ID: ov.ID, Type: TypeNone},
			lastResolved: ov.Text,
			lastEnabled:  ov.Enabled,
		}
	}

	for id, st := range e.slots {
		if !seen[id] {
			e.releaseLocked(st)
			delete(e.slots, id)
		}
	}
}

// Restore applies persisted bindings, typically right after SetOSD on
// startup. Bindings for slots the camera no longer exposes are skipped.
func (e *Engine) Restore(ctx context.Context) error {
	slots, err := e.store.LoadSlots(ctx, e.cameraID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, slot := range slots {
		st, ok := e.slots[slot.ID]
		if !ok {
			e.logger.Warn("persisted binding for missing slot", "camera", e.cameraID, "slot", slot.ID)
			continue
		}
		st.cfg.Type = slot.Type
		st.cfg.SourceDeviceID = slot.SourceDeviceID
		st.cfg.TextPrefix = slot.TextPrefix
		st.cfg.Text = slot.Text
		st.managed = true
		e.rebindLocked(st)
	}
	return nil
}

// Slots returns the current bindings in slot order.
func (e *Engine) Slots() []Slot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Slot, 0, len(e.order))
	for _, id := range e.order {
		st := e.slots[id]
		slot := st.cfg
		slot.LastResolved = st.lastResolved
		out = append(out, slot)
	}
	return out
}

// Start launches the reconciliation goroutine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.started = true
	go e.run(runCtx)
	return nil
}

// Stop tears the engine down synchronously: when it returns the
// reconciliation goroutine has exited and every subscription is
// cancelled, so no event can arrive afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.started = false
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, st := range e.slots {
		e.releaseLocked(st)
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, pushTimeout)
			e.Tick(tickCtx)
			cancel()
		}
	}
}

// Tick runs one reconciliation pass: drain the queued events, resolve
// the desired text per slot, and push a patch for each slot whose
// rendering changed. Safe to call directly; concurrent calls serialise
// on the engine lock, so passes never overlap.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.drainLocked()

	for _, id := range e.order {
		st := e.slots[id]
		if !st.managed {
			continue
		}
		text, enabled := resolve(st)
		if text == st.lastResolved && enabled == st.lastEnabled {
			continue
		}
		e.pushLocked(ctx, st, text, enabled)
	}
}

// drainLocked empties the event queue into per-slot latest readings.
func (e *Engine) drainLocked() {
	for {
		select {
		case ev := <-e.queue:
			for _, st := range e.slots {
				if st.cfg.SourceDeviceID == ev.DeviceID && e.boundKind(st) == ev.Kind {
					st.lastEvent = ev
					st.hasEvent = true
				}
			}
		default:
			return
		}
	}
}

// resolve computes what the slot should display right now.
func resolve(st *slotState) (text string, enabled bool) {
	switch st.cfg.Type {
	case TypeText:
		return st.cfg.Text, true
	case TypeDevice:
		reading := "-"
		if st.hasEvent {
			reading = strconv.FormatFloat(st.lastEvent.Value, 'f', 1, 64) + unitFor(st.lastEvent.Kind)
		}
		return st.cfg.TextPrefix + reading, true
	case TypeFace:
		if st.hasEvent && st.lastEvent.Label != "" {
			return st.lastEvent.Label, true
		}
		return "-", true
	default:
		return "", false
	}
}

// unitFor appends the display unit for a numeric reading kind.
func unitFor(kind string) string {
	switch kind {
	case events.KindTemperature:
		return "°C"
	case events.KindHumidity:
		return "%"
	}
	return ""
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// pushLocked patches the slot's overlay block and writes the document
// back. A patch mismatch still pushes the unchanged document and the
// slot is marked resolved either way; the next refetch realigns the
// retained document with the camera.
func (e *Engine) pushLocked(ctx context.Context, st *slotState, text string, enabled bool) {
	scope := &patch.Scope{BlockTag: "TextOverlay", KeyTag: "id", KeyValue: st.cfg.ID}
	out, applied := patch.Apply(e.osdRaw, []patch.Edit{
		{Tag: "displayText", Value: textEscaper.Replace(text), Scope: scope},
		{Tag: "enabled", Value: strconv.FormatBool(enabled), Scope: scope},
	})
	if applied < 2 {
		e.logger.Debug("overlay patch target missing",
			"camera", e.cameraID, "slot", st.cfg.ID, "applied", applied)
	}

	if _, err := e.client.PutXML(ctx, capability.PathOverlays, out); err != nil {
		// Leave the slot unresolved; the next tick retries.
		e.logger.Warn("overlay push failed", "camera", e.cameraID, "slot", st.cfg.ID, "error", err)
		return
	}

	e.osdRaw = out
	st.lastResolved = text
	st.lastEnabled = enabled

	if e.metrics != nil {
		e.metrics.WriteOverlayPush(e.cameraID, st.cfg.ID, len(text))
	}
}

// ─── Binding writes ──────────────────────────────────────────────────

// SetSlotType changes a slot's binding type. Source and prefix are
// retained across type changes so switching back does not lose them.
func (e *Engine) SetSlotType(ctx context.Context, slotID, bindingType string) error {
	return e.updateSlot(ctx, slotID, func(st *slotState) {
		st.cfg.Type = bindingType
	})
}

// SetSlotSource points a device or face binding at a different sensor.
func (e *Engine) SetSlotSource(ctx context.Context, slotID, deviceID string) error {
	return e.updateSlot(ctx, slotID, func(st *slotState) {
		st.cfg.SourceDeviceID = deviceID
	})
}

// SetSlotPrefix changes the text prepended to device readings.
func (e *Engine) SetSlotPrefix(ctx context.Context, slotID, prefix string) error {
	return e.updateSlot(ctx, slotID, func(st *slotState) {
		st.cfg.TextPrefix = prefix
	})
}

// SetSlotText changes the static content of a text binding.
func (e *Engine) SetSlotText(ctx context.Context, slotID, text string) error {
	return e.updateSlot(ctx, slotID, func(st *slotState) {
		st.cfg.Text = text
	})
}

// ApplyBindings copies bindings positionally onto this camera's slots,
// used when duplicating overlay configuration from another camera.
// Extra source bindings beyond the local slot count are dropped.
func (e *Engine) ApplyBindings(ctx context.Context, slots []Slot) error {
	e.mu.Lock()
	var saves []Slot
	for i, src := range slots {
		if i >= len(e.order) {
			break
		}
		st := e.slots[e.order[i]]
		st.cfg.Type = src.Type
		st.cfg.SourceDeviceID = src.SourceDeviceID
		st.cfg.TextPrefix = src.TextPrefix
		st.cfg.Text = src.Text
		st.managed = true
		e.rebindLocked(st)
		saves = append(saves, st.cfg)
	}
	e.mu.Unlock()

	for _, slot := range saves {
		if err := e.store.SaveSlot(ctx, e.cameraID, slot); err != nil {
			return err
		}
	}
	return nil
}

// updateSlot mutates one slot's binding, rebinds its subscription and
// persists the result.
func (e *Engine) updateSlot(ctx context.Context, slotID string, mutate func(*slotState)) error {
	e.mu.Lock()
	st, ok := e.slots[slotID]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownSlot
	}
	mutate(st)
	st.managed = true
	e.rebindLocked(st)
	cfg := st.cfg
	e.mu.Unlock()

	return e.store.SaveSlot(ctx, e.cameraID, cfg)
}

// rebindLocked reconciles a slot's subscription with its binding:
// the old subscription, when any, is cancelled before a new one is
// created, so a slot holds at most one live subscription at any time.
func (e *Engine) rebindLocked(st *slotState) {
	e.releaseLocked(st)
	st.lastEvent = events.Event{}
	st.hasEvent = false

	kind := e.boundKind(st)
	if kind == "" {
		return
	}

	sub, err := e.source.Listen(st.cfg.SourceDeviceID, kind)
	if err != nil {
		e.logger.Warn("event subscription failed",
			"camera", e.cameraID, "slot", st.cfg.ID, "device", st.cfg.SourceDeviceID, "error", err)
		return
	}
	st.sub = sub
	go e.forward(sub)
}

// releaseLocked cancels a slot's subscription, if any. Cancelling
// closes the subscription channel, which ends the forwarder.
func (e *Engine) releaseLocked(st *slotState) {
	if st.sub != nil {
		st.sub.Cancel()
		st.sub = nil
	}
}

// boundKind returns the event kind the slot's binding listens for,
// empty when the binding carries no live data.
func (e *Engine) boundKind(st *slotState) string {
	switch st.cfg.Type {
	case TypeFace:
		return events.KindFace
	case TypeDevice:
		if st.cfg.SourceDeviceID == "" {
			return ""
		}
		if kind, ok := e.kinds.EventKind(st.cfg.SourceDeviceID); ok {
			return kind
		}
	}
	return ""
}

// forward moves one subscription's events into the shared queue. When
// the queue is full the oldest entry is dropped; ticks only care about
// the newest reading per slot.
func (e *Engine) forward(sub Subscription) {
	for ev := range sub.C() {
		select {
		case e.queue <- ev:
		default:
			select {
			case <-e.queue:
			default:
			}
			select {
			case e.queue <- ev:
			default:
			}
		}
	}
}
