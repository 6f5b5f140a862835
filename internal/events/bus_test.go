package events

import (
	"errors"
	"testing"
	"time"

	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
)

// fakeBroker records subscriptions and lets tests inject messages.
type fakeBroker struct {
	handlers map[string]mqtt.MessageHandler
	subs     []string
	unsubs   []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.handlers[topic] = handler
	f.subs = append(f.subs, topic)
	return nil
}

func (f *fakeBroker) Unsubscribe(topic string) error {
	delete(f.handlers, topic)
	f.unsubs = append(f.unsubs, topic)
	return nil
}

func (f *fakeBroker) inject(t *testing.T, topic string, payload string) {
	t.Helper()
	handler, ok := f.handlers[topic]
	if !ok {
		t.Fatalf("no handler registered for %s", topic)
	}
	if err := handler(topic, []byte(payload)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// ─── Decoding ────────────────────────────────────────────────────────

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    Event
		wantErr error
	}{
		{
			name:    "temperature reading",
			topic:   "camsync/event/temp-hallway/temperature",
			payload: `{"value":21.4,"timestamp":"2026-08-23T10:15:00Z"}`,
			want: Event{
				DeviceID:  "temp-hallway",
				Kind:      KindTemperature,
				Value:     21.4,
				Timestamp: time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC),
			},
		},
		{
			name:    "face recognition",
			topic:   "camsync/event/face-entry/face",
			payload: `{"label":"Ada","timestamp":"2026-08-23T10:15:00Z"}`,
			want: Event{
				DeviceID:  "face-entry",
				Kind:      KindFace,
				Label:     "Ada",
				Timestamp: time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC),
			},
		},
		{
			name:    "wrong namespace",
			topic:   "other/event/x/temperature",
			payload: `{}`,
			wantErr: ErrBadTopic,
		},
		{
			name:    "truncated topic",
			topic:   "camsync/event/temp-hallway",
			payload: `{}`,
			wantErr: ErrBadTopic,
		},
		{
			name:    "bad json",
			topic:   "camsync/event/temp-hallway/temperature",
			payload: `{"value":`,
			wantErr: ErrBadPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent(tt.topic, []byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("decodeEvent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeEvent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeEventMissingTimestamp(t *testing.T) {
	got, err := decodeEvent("camsync/event/temp-hallway/temperature", []byte(`{"value":20}`))
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if got.Timestamp.IsZero() {
		t.Error("missing timestamp should default to now")
	}
}

// ─── Bus fan-out ─────────────────────────────────────────────────────

func TestListenDeliversEvents(t *testing.T) {
	broker := newFakeBroker()
	bus := NewBus(broker, 1)

	sub, err := bus.Listen("temp-hallway", KindTemperature)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer sub.Cancel()

	topic := mqtt.Topics{}.SensorEvent("temp-hallway", KindTemperature)
	broker.inject(t, topic, `{"value":21.4,"timestamp":"2026-08-23T10:15:00Z"}`)

	ev := recv(t, sub)
	if ev.Value != 21.4 || ev.DeviceID != "temp-hallway" {
		t.Errorf("event = %+v", ev)
	}
}

func TestListenersShareOneBrokerSubscription(t *testing.T) {
	broker := newFakeBroker()
	bus := NewBus(broker, 1)

	a, err := bus.Listen("temp-hallway", KindTemperature)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	b, err := bus.Listen("temp-hallway", KindTemperature)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	if len(broker.subs) != 1 {
		t.Fatalf("broker subscriptions = %d, want 1", len(broker.subs))
	}

	topic := mqtt.Topics{}.SensorEvent("temp-hallway", KindTemperature)
	broker.inject(t, topic, `{"value":20}`)
	if recv(t, a).Value != 20 || recv(t, b).Value != 20 {
		t.Error("both listeners should receive the event")
	}

	// First cancel keeps the broker subscription alive.
	a.Cancel()
	if len(broker.unsubs) != 0 {
		t.Error("broker unsubscribed while a listener remains")
	}

	// Last cancel releases it.
	b.Cancel()
	if len(broker.unsubs) != 1 {
		t.Errorf("broker unsubs = %d, want 1", len(broker.unsubs))
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	broker := newFakeBroker()
	bus := NewBus(broker, 1)

	sub, err := bus.Listen("temp-hallway", KindTemperature)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	sub.Cancel()
	sub.Cancel()

	if len(broker.unsubs) != 1 {
		t.Errorf("broker unsubs = %d, want 1", len(broker.unsubs))
	}
	if _, open := <-sub.C(); open {
		t.Error("channel should be closed after Cancel")
	}
}

func TestLaggingListenerKeepsNewest(t *testing.T) {
	broker := newFakeBroker()
	bus := NewBus(broker, 1)

	sub, err := bus.Listen("temp-hallway", KindTemperature)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer sub.Cancel()

	topic := mqtt.Topics{}.SensorEvent("temp-hallway", KindTemperature)
	for i := 0; i < listenerBuffer+5; i++ {
		broker.inject(t, topic, `{"value":1}`)
	}
	broker.inject(t, topic, `{"value":99}`)

	// Drain: the final event must still be present.
	var last Event
	for {
		select {
		case ev := <-sub.C():
			last = ev
			continue
		default:
		}
		break
	}
	if last.Value != 99 {
		t.Errorf("newest event lost, last = %+v", last)
	}
}

func TestListenAfterClose(t *testing.T) {
	bus := NewBus(newFakeBroker(), 1)
	bus.Close()

	if _, err := bus.Listen("temp-hallway", KindTemperature); !errors.Is(err, ErrClosed) {
		t.Fatalf("Listen() after Close error = %v, want ErrClosed", err)
	}
}

func TestCloseReleasesListeners(t *testing.T) {
	broker := newFakeBroker()
	bus := NewBus(broker, 1)

	sub, err := bus.Listen("temp-hallway", KindTemperature)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	bus.Close()
	if _, open := <-sub.C(); open {
		t.Error("channel should be closed after bus Close")
	}
	if len(broker.unsubs) != 1 {
		t.Errorf("broker unsubs = %d, want 1", len(broker.unsubs))
	}
}
