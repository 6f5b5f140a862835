package events

import (
	"fmt"
	"sync"

	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
)

// listenerBuffer is the per-listener channel capacity. Overlay slots
// only render the latest reading, so a shallow buffer is enough.
const listenerBuffer = 16

// Broker is the subscribe side of the MQTT client the bus needs.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the minimal logging interface used by the bus.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Bus fans sensor events out to per-listener channels.
//
// All methods are safe for concurrent use.
type Bus struct {
	broker Broker
	qos    byte
	logger Logger

	mu        sync.Mutex
	listeners map[string][]*Subscription
	closed    bool
}

// Subscription is one registered listener. Receive events from C();
// call Cancel when done.
type Subscription struct {
	bus   *Bus
	topic string
	ch    chan Event

	cancelOnce sync.Once
}

// C returns the listener's event channel. The channel is closed by
// Cancel and by Bus.Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Cancel removes the listener. The last listener on a topic releases
// the broker subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.bus.remove(s)
	})
}

// NewBus creates an event bus over the given broker connection.
func NewBus(broker Broker, qos byte) *Bus {
	return &Bus{
		broker:    broker,
		qos:       qos,
		logger:    noopLogger{},
		listeners: make(map[string][]*Subscription),
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Listen registers a listener for one device's readings of one kind.
//
// The first listener on a topic creates the broker subscription;
// subsequent listeners share it.
func (b *Bus) Listen(deviceID, kind string) (*Subscription, error) {
	if deviceID == "" || kind == "" {
		return nil, fmt.Errorf("%w: device %q kind %q", ErrBadTopic, deviceID, kind)
	}
	topic := mqtt.Topics{}.SensorEvent(deviceID, kind)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		bus:   b,
		topic: topic,
		ch:    make(chan Event, listenerBuffer),
	}

	if len(b.listeners[topic]) == 0 {
		if err := b.broker.Subscribe(topic, b.qos, b.dispatch); err != nil {
			return nil, fmt.Errorf("events: subscribing %s: %w", topic, err)
		}
	}
	b.listeners[topic] = append(b.listeners[topic], sub)

	return sub, nil
}

// Close cancels every listener and releases all broker subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	for topic, subs := range b.listeners {
		if err := b.broker.Unsubscribe(topic); err != nil {
			b.logger.Warn("event unsubscribe failed", "topic", topic, "error", err)
		}
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	b.listeners = make(map[string][]*Subscription)
}

// dispatch decodes one broker message and fans it out. Registered as
// the MQTT handler for every event topic the bus holds.
func (b *Bus) dispatch(topic string, payload []byte) error {
	ev, err := decodeEvent(topic, payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	subs := append([]*Subscription(nil), b.listeners[topic]...)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			// Full buffer: evict the oldest reading, keep the newest.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
			b.logger.Debug("listener lagging, dropped oldest event", "topic", topic)
		}
	}
	return nil
}

// remove detaches one listener and releases the broker subscription
// when it was the last one on its topic.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	subs := b.listeners[sub.topic]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(subs) == 0 {
		delete(b.listeners, sub.topic)
		if err := b.broker.Unsubscribe(sub.topic); err != nil {
			b.logger.Warn("event unsubscribe failed", "topic", sub.topic, "error", err)
		}
	} else {
		b.listeners[sub.topic] = subs
	}

	close(sub.ch)
}
