package events

import (
	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
)

// MetricSink receives decoded sensor readings for long-term storage.
// Numeric readings carry the value; textual readings (face labels) are
// recorded as a count only.
type MetricSink interface {
	WriteSensorReading(deviceID string, kind string, value float64)
}

// Recorder mirrors every sensor event into a metric sink. It holds one
// wildcard broker subscription independent of the per-camera listeners,
// so history is recorded even when no overlay slot is bound.
type Recorder struct {
	broker Broker
	sink   MetricSink
	logger Logger
	topic  string
}

// NewRecorder subscribes to all sensor events and forwards them to the
// sink. Call Close to release the subscription.
func NewRecorder(broker Broker, sink MetricSink, qos byte, logger Logger) (*Recorder, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		broker: broker,
		sink:   sink,
		logger: logger,
		topic:  mqtt.Topics{}.AllSensorEvents(),
	}
	if err := r.broker.Subscribe(r.topic, qos, r.handle); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) handle(topic string, payload []byte) error {
	ev, err := decodeEvent(topic, payload)
	if err != nil {
		r.logger.Warn("unrecordable sensor event", "topic", topic, "error", err)
		return err
	}

	// Label-only events still count as one observation.
	value := ev.Value
	if ev.Kind == KindFace {
		value = 1
	}
	r.sink.WriteSensorReading(ev.DeviceID, ev.Kind, value)
	return nil
}

// Close releases the wildcard subscription.
func (r *Recorder) Close() {
	if err := r.broker.Unsubscribe(r.topic); err != nil {
		r.logger.Warn("recorder unsubscribe failed", "topic", r.topic, "error", err)
	}
}
