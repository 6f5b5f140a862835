package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openhaus/camsync-core/internal/infrastructure/mqtt"
)

// Event kinds published by the sensor integrations.
const (
	KindTemperature = "temperature"
	KindHumidity    = "humidity"
	KindFace        = "face"
)

// Event is one decoded sensor reading.
type Event struct {
	DeviceID  string
	Kind      string
	Timestamp time.Time

	// Value carries numeric readings (temperature, humidity).
	Value float64

	// Label carries textual readings (recognised face name).
	Label string
}

// wirePayload is the JSON body sensors publish.
type wirePayload struct {
	Value     *float64  `json:"value,omitempty"`
	Label     string    `json:"label,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// decodeEvent parses one MQTT message into an Event. The device and
// kind come from the topic, the reading from the payload.
func decodeEvent(topic string, payload []byte) (Event, error) {
	deviceID, kind, err := splitEventTopic(topic)
	if err != nil {
		return Event{}, err
	}

	var body wirePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	ev := Event{
		DeviceID:  deviceID,
		Kind:      kind,
		Timestamp: body.Timestamp,
		Label:     body.Label,
	}
	if body.Value != nil {
		ev.Value = *body.Value
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev, nil
}

// splitEventTopic extracts device and kind from
// camsync/event/{device}/{kind}.
func splitEventTopic(topic string) (deviceID, kind string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != mqtt.TopicPrefix || parts[1] != "event" || parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	return parts[2], parts[3], nil
}
