package overlay

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openhaus/camsync-core/internal/events"
	"github.com/openhaus/camsync-core/internal/isapi/capability"
)

type fakePutter struct {
	mu     sync.Mutex
	paths  []string
	bodies [][]byte
}

func (p *fakePutter) PutXML(_ context.Context, path string, body []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	p.bodies = append(p.bodies, body)
	return nil, nil
}

func (p *fakePutter) pushes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}

func (p *fakePutter) lastBody() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bodies) == 0 {
		return ""
	}
	return string(p.bodies[len(p.bodies)-1])
}

type fakeSub struct {
	device, kind string
	ch           chan events.Event

	mu        sync.Mutex
	cancelled bool
	once      sync.Once
}

func (s *fakeSub) C() <-chan events.Event { return s.ch }

func (s *fakeSub) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
		close(s.ch)
	})
}

func (s *fakeSub) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

type fakeSource struct {
	mu   sync.Mutex
	subs []*fakeSub
}

func (f *fakeSource) Listen(deviceID, kind string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{device: deviceID, kind: kind, ch: make(chan events.Event, 16)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSource) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subs {
		if !sub.isCancelled() {
			n++
		}
	}
	return n
}

func (f *fakeSource) emit(ev events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.device == ev.DeviceID && sub.kind == ev.Kind && !sub.isCancelled() {
			sub.ch <- ev
		}
	}
}

type fakeSink struct {
	mu      sync.Mutex
	records []string
}

func (s *fakeSink) WriteOverlayPush(cameraID, slotID string, textLen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, cameraID+"/"+slotID+"/"+strconv.Itoa(textLen))
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fakeKinds map[string]string

func (f fakeKinds) EventKind(deviceID string) (string, bool) {
	kind, ok := f[deviceID]
	return kind, ok
}

type fakeStore struct {
	mu    sync.Mutex
	saved map[string]Slot
	load  []Slot
}

func (s *fakeStore) LoadSlots(context.Context, string) ([]Slot, error) {
	return s.load, nil
}

func (s *fakeStore) SaveSlot(_ context.Context, _ string, slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string]Slot)
	}
	s.saved[slot.ID] = slot
	return nil
}

func (s *fakeStore) DeleteSlots(context.Context, string) error { return nil }

const osdRaw = `<VideoOverlay>
  <TextOverlayList>
    <TextOverlay>
      <id>1</id>
      <enabled>false</enabled>
      <positionX>16</positionX>
      <positionY>530</positionY>
      <displayText></displayText>
    </TextOverlay>
    <TextOverlay>
      <id>2</id>
      <enabled>true</enabled>
      <positionX>16</positionX>
      <positionY>490</positionY>
      <displayText>Lobby</displayText>
    </TextOverlay>
  </TextOverlayList>
</VideoOverlay>`

func testOSD() *capability.OSD {
	return &capability.OSD{
		MaxSlots: 4,
		Overlays: []capability.TextOverlay{
			{ID: "1", Enabled: false, Text: ""},
			{ID: "2", Enabled: true, Text: "Lobby"},
		},
		Raw: []byte(osdRaw),
	}
}

type engineFixture struct {
	engine *Engine
	putter *fakePutter
	source *fakeSource
	store  *fakeStore
	sink   *fakeSink
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		putter: &fakePutter{},
		source: &fakeSource{},
		store:  &fakeStore{},
		sink:   &fakeSink{},
	}
	f.engine = NewEngine(Config{
		CameraID: "cam-1",
		Client:   f.putter,
		Events:   f.source,
		Kinds:    fakeKinds{"dev-temp": events.KindTemperature, "dev-hum": events.KindHumidity},
		Store:    f.store,
		Metrics:  f.sink,
	})
	f.engine.SetOSD(testOSD())
	return f
}

func bindDevice(t *testing.T, e *Engine, slotID, deviceID, prefix string) {
	t.Helper()
	ctx := context.Background()
	if err := e.SetSlotType(ctx, slotID, TypeDevice); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := e.SetSlotSource(ctx, slotID, deviceID); err != nil {
		t.Fatalf("SetSlotSource() error = %v", err)
	}
	if err := e.SetSlotPrefix(ctx, slotID, prefix); err != nil {
		t.Fatalf("SetSlotPrefix() error = %v", err)
	}
}

// waitQueued blocks until the engine has n events queued, failing the
// test after a deadline. Used where events travel the forwarder path.
func waitQueued(t *testing.T, e *Engine, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(e.queue) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue never reached %d events", n)
}

// ─── Rendering ───────────────────────────────────────────────────────

func TestTickRendersDeviceReading(t *testing.T) {
	f := newFixture(t)
	bindDevice(t, f.engine, "1", "dev-temp", "Hall ")

	f.engine.queue <- events.Event{DeviceID: "dev-temp", Kind: events.KindTemperature, Value: 21.37}
	f.engine.Tick(context.Background())

	if f.putter.pushes() != 1 {
		t.Fatalf("pushes = %d, want 1", f.putter.pushes())
	}
	if f.putter.paths[0] != capability.PathOverlays {
		t.Errorf("push path = %q, want %q", f.putter.paths[0], capability.PathOverlays)
	}

	body := f.putter.lastBody()
	if !strings.Contains(body, "<displayText>Hall 21.4°C</displayText>") {
		t.Errorf("slot 1 text not rendered:\n%s", body)
	}
	if !strings.Contains(body, "<displayText>Lobby</displayText>") {
		t.Errorf("unmanaged slot 2 was touched:\n%s", body)
	}
}

func TestSecondTickIsIdempotent(t *testing.T) {
	f := newFixture(t)
	bindDevice(t, f.engine, "1", "dev-temp", "Hall ")

	f.engine.queue <- events.Event{DeviceID: "dev-temp", Kind: events.KindTemperature, Value: 21.0}
	f.engine.Tick(context.Background())
	if f.putter.pushes() != 1 {
		t.Fatalf("first tick pushes = %d, want 1", f.putter.pushes())
	}

	// Nothing changed since; the second tick must not write.
	f.engine.Tick(context.Background())
	if f.putter.pushes() != 1 {
		t.Errorf("second tick pushed again, pushes = %d", f.putter.pushes())
	}

	// Same reading arriving again is still no change.
	f.engine.queue <- events.Event{DeviceID: "dev-temp", Kind: events.KindTemperature, Value: 21.0}
	f.engine.Tick(context.Background())
	if f.putter.pushes() != 1 {
		t.Errorf("identical reading caused a write, pushes = %d", f.putter.pushes())
	}
}

func TestDeviceSlotBeforeFirstReading(t *testing.T) {
	f := newFixture(t)
	bindDevice(t, f.engine, "1", "dev-temp", "Hall ")

	f.engine.Tick(context.Background())
	if body := f.putter.lastBody(); !strings.Contains(body, "<displayText>Hall -</displayText>") {
		t.Errorf("missing dash placeholder before first reading:\n%s", body)
	}
}

func TestFaceSlotFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.engine.SetSlotType(ctx, "1", TypeFace); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := f.engine.SetSlotSource(ctx, "1", "dev-temp"); err != nil {
		t.Fatalf("SetSlotSource() error = %v", err)
	}

	f.engine.Tick(ctx)
	if body := f.putter.lastBody(); !strings.Contains(body, "<displayText>-</displayText>") {
		t.Errorf("face slot without detection should show a dash:\n%s", body)
	}

	f.engine.queue <- events.Event{DeviceID: "dev-temp", Kind: events.KindFace, Label: "Alice"}
	f.engine.Tick(ctx)
	if body := f.putter.lastBody(); !strings.Contains(body, "<displayText>Alice</displayText>") {
		t.Errorf("face slot did not render the label:\n%s", body)
	}
}

func TestStaticTextSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.engine.SetSlotType(ctx, "1", TypeText); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := f.engine.SetSlotText(ctx, "1", "Front & Back"); err != nil {
		t.Fatalf("SetSlotText() error = %v", err)
	}

	f.engine.Tick(ctx)
	body := f.putter.lastBody()
	if !strings.Contains(body, "<displayText>Front &amp; Back</displayText>") {
		t.Errorf("static text not escaped and written:\n%s", body)
	}
	if !strings.Contains(body, "<enabled>true</enabled>") {
		t.Errorf("bound slot not enabled:\n%s", body)
	}
}

func TestUnbindClearsSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.engine.SetSlotType(ctx, "2", TypeNone); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}

	f.engine.Tick(ctx)
	body := f.putter.lastBody()
	if !strings.Contains(body, "<displayText></displayText>") {
		t.Errorf("unbound slot text not cleared:\n%s", body)
	}
	if strings.Contains(body, "<displayText>Lobby</displayText>") {
		t.Errorf("slot 2 still shows the old text:\n%s", body)
	}
}

func TestUnmanagedSlotsNeverWritten(t *testing.T) {
	f := newFixture(t)
	f.engine.Tick(context.Background())
	if f.putter.pushes() != 0 {
		t.Errorf("tick on a freshly adopted camera pushed %d documents", f.putter.pushes())
	}
}

func TestDrainKeepsLatestReading(t *testing.T) {
	f := newFixture(t)
	bindDevice(t, f.engine, "1", "dev-temp", "")

	f.engine.queue <- events.Event{DeviceID: "dev-temp", Kind: events.KindTemperature, Value: 19.0}
	f.engine.queue <- events.Event{DeviceID: "dev-temp", Kind: events.KindTemperature, Value: 23.5}
	f.engine.Tick(context.Background())

	if body := f.putter.lastBody(); !strings.Contains(body, "<displayText>23.5°C</displayText>") {
		t.Errorf("tick did not render the newest reading:\n%s", body)
	}
}

// ─── Subscriptions ───────────────────────────────────────────────────

func TestRebindHoldsSingleSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bindDevice(t, f.engine, "1", "dev-temp", "")

	if got := f.source.live(); got != 1 {
		t.Fatalf("live subscriptions = %d, want 1", got)
	}

	// Retargeting the slot swaps, never stacks, the subscription.
	if err := f.engine.SetSlotSource(ctx, "1", "dev-hum"); err != nil {
		t.Fatalf("SetSlotSource() error = %v", err)
	}
	if got := f.source.live(); got != 1 {
		t.Errorf("live subscriptions after retarget = %d, want 1", got)
	}

	last := f.source.subs[len(f.source.subs)-1]
	if last.device != "dev-hum" || last.kind != events.KindHumidity {
		t.Errorf("live subscription = %s/%s, want dev-hum/humidity", last.device, last.kind)
	}

	if err := f.engine.SetSlotType(ctx, "1", TypeNone); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if got := f.source.live(); got != 0 {
		t.Errorf("live subscriptions after unbind = %d, want 0", got)
	}
}

func TestUnknownDeviceLeavesSlotUnsubscribed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.engine.SetSlotType(ctx, "1", TypeDevice); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := f.engine.SetSlotSource(ctx, "1", "dev-unknown"); err != nil {
		t.Fatalf("SetSlotSource() error = %v", err)
	}
	if got := f.source.live(); got != 0 {
		t.Errorf("live subscriptions for unresolvable device = %d, want 0", got)
	}
}

func TestForwarderFeedsQueue(t *testing.T) {
	f := newFixture(t)
	bindDevice(t, f.engine, "1", "dev-temp", "Hall ")

	f.source.emit(events.Event{DeviceID: "dev-temp", Kind: events.KindTemperature, Value: 20.0})
	waitQueued(t, f.engine, 1)

	f.engine.Tick(context.Background())
	if body := f.putter.lastBody(); !strings.Contains(body, "<displayText>Hall 20.0°C</displayText>") {
		t.Errorf("forwarded event not rendered:\n%s", body)
	}
}

// ─── Lifecycle ───────────────────────────────────────────────────────

func TestStopTearsDownSynchronously(t *testing.T) {
	f := newFixture(t)
	bindDevice(t, f.engine, "1", "dev-temp", "")

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.engine.Start(context.Background()); err != ErrRunning {
		t.Errorf("second Start() error = %v, want ErrRunning", err)
	}

	f.engine.Stop()
	if got := f.source.live(); got != 0 {
		t.Errorf("live subscriptions after Stop = %d, want 0", got)
	}

	// Stop twice is harmless.
	f.engine.Stop()
}

func TestRestoreAppliesPersistedBindings(t *testing.T) {
	f := newFixture(t)
	f.store.load = []Slot{
		{ID: "1", Type: TypeDevice, SourceDeviceID: "dev-temp", TextPrefix: "Hall "},
		{ID: "9", Type: TypeText, Text: "gone"}, // slot no longer on the camera
	}

	if err := f.engine.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got := f.source.live(); got != 1 {
		t.Errorf("live subscriptions after restore = %d, want 1", got)
	}

	slots := f.engine.Slots()
	if len(slots) != 2 {
		t.Fatalf("Slots() = %d entries, want 2", len(slots))
	}
	if slots[0].Type != TypeDevice || slots[0].SourceDeviceID != "dev-temp" {
		t.Errorf("slot 1 binding = %+v, want restored device binding", slots[0])
	}
}

func TestApplyBindingsPositional(t *testing.T) {
	f := newFixture(t)
	src := []Slot{
		{ID: "7", Type: TypeDevice, SourceDeviceID: "dev-temp", TextPrefix: "Hall "},
		{ID: "8", Type: TypeText, Text: "Front Door"},
		{ID: "9", Type: TypeText, Text: "dropped"}, // beyond local capacity
	}

	if err := f.engine.ApplyBindings(context.Background(), src); err != nil {
		t.Fatalf("ApplyBindings() error = %v", err)
	}

	slots := f.engine.Slots()
	if slots[0].Type != TypeDevice || slots[0].SourceDeviceID != "dev-temp" {
		t.Errorf("slot 1 = %+v, want copied device binding", slots[0])
	}
	if slots[1].Type != TypeText || slots[1].Text != "Front Door" {
		t.Errorf("slot 2 = %+v, want copied text binding", slots[1])
	}
	if _, ok := f.store.saved["1"]; !ok {
		t.Error("copied binding for slot 1 not persisted")
	}
	if _, ok := f.store.saved["2"]; !ok {
		t.Error("copied binding for slot 2 not persisted")
	}
}

// ─── Patch mismatch ──────────────────────────────────────────────────

func TestPatchMismatchPushesOnce(t *testing.T) {
	f := newFixture(t)
	// The retained document lost slot 1 since the fetch.
	f.engine.mu.Lock()
	f.engine.osdRaw = []byte(`<VideoOverlay><TextOverlayList></TextOverlayList></VideoOverlay>`)
	f.engine.mu.Unlock()

	ctx := context.Background()
	if err := f.engine.SetSlotType(ctx, "1", TypeText); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := f.engine.SetSlotText(ctx, "1", "Hi"); err != nil {
		t.Fatalf("SetSlotText() error = %v", err)
	}

	f.engine.Tick(ctx)
	if f.putter.pushes() != 1 {
		t.Fatalf("pushes = %d, want 1", f.putter.pushes())
	}
	if body := f.putter.lastBody(); strings.Contains(body, "Hi") {
		t.Errorf("mismatched patch modified the document:\n%s", body)
	}

	// The slot counts as resolved; the engine must not hammer the
	// camera with the same no-op write every tick.
	f.engine.Tick(ctx)
	if f.putter.pushes() != 1 {
		t.Errorf("mismatch retried, pushes = %d", f.putter.pushes())
	}
}

// ─── Telemetry ───────────────────────────────────────────────────────

type failPutter struct{}

func (failPutter) PutXML(context.Context, string, []byte) ([]byte, error) {
	return nil, errors.New("camera unreachable")
}

func TestPushRecordsTelemetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.engine.SetSlotType(ctx, "1", TypeText); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := f.engine.SetSlotText(ctx, "1", "Front Door"); err != nil {
		t.Fatalf("SetSlotText() error = %v", err)
	}

	f.engine.Tick(ctx)
	if f.sink.count() != 1 {
		t.Fatalf("telemetry records = %d, want 1", f.sink.count())
	}
	f.sink.mu.Lock()
	got := f.sink.records[0]
	f.sink.mu.Unlock()
	if got != "cam-1/1/10" {
		t.Errorf("telemetry record = %q, want %q", got, "cam-1/1/10")
	}

	// Nothing changed, so the second tick writes nothing and records
	// nothing.
	f.engine.Tick(ctx)
	if f.sink.count() != 1 {
		t.Errorf("unchanged tick recorded a push, records = %d", f.sink.count())
	}
}

func TestFailedPushRecordsNoTelemetry(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(Config{
		CameraID: "cam-1",
		Client:   failPutter{},
		Events:   &fakeSource{},
		Kinds:    fakeKinds{},
		Store:    &fakeStore{},
		Metrics:  sink,
	})
	e.SetOSD(testOSD())
	ctx := context.Background()
	if err := e.SetSlotType(ctx, "1", TypeText); err != nil {
		t.Fatalf("SetSlotType() error = %v", err)
	}
	if err := e.SetSlotText(ctx, "1", "Hi"); err != nil {
		t.Fatalf("SetSlotText() error = %v", err)
	}

	e.Tick(ctx)
	if sink.count() != 0 {
		t.Errorf("failed push recorded telemetry, records = %d", sink.count())
	}
}
