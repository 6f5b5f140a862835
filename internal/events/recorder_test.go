package events

import (
	"testing"
)

type fakeSink struct {
	devices []string
	kinds   []string
	values  []float64
}

func (f *fakeSink) WriteSensorReading(deviceID, kind string, value float64) {
	f.devices = append(f.devices, deviceID)
	f.kinds = append(f.kinds, kind)
	f.values = append(f.values, value)
}

func TestRecorderForwardsReadings(t *testing.T) {
	broker := newFakeBroker()
	sink := &fakeSink{}

	rec, err := NewRecorder(broker, sink, 1, nil)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	defer rec.Close()

	if len(broker.subs) != 1 || broker.subs[0] != "camsync/event/+/+" {
		t.Fatalf("subs = %v, want single wildcard", broker.subs)
	}

	// The broker invokes the wildcard handler with the concrete topic.
	handler := broker.handlers["camsync/event/+/+"]
	if err := handler("camsync/event/temp-hall/temperature", []byte(`{"value":19.5}`)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if len(sink.values) == 0 {
		t.Fatal("no readings recorded")
	}
	last := len(sink.values) - 1
	if sink.devices[last] != "temp-hall" || sink.kinds[last] != "temperature" || sink.values[last] != 19.5 {
		t.Fatalf("recorded %s/%s=%v, want temp-hall/temperature=19.5",
			sink.devices[last], sink.kinds[last], sink.values[last])
	}
}

func TestRecorderCountsFaceEvents(t *testing.T) {
	broker := newFakeBroker()
	sink := &fakeSink{}

	rec, err := NewRecorder(broker, sink, 1, nil)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	defer rec.Close()

	handler := broker.handlers["camsync/event/+/+"]
	if err := handler("camsync/event/cam-entry/face", []byte(`{"label":"Ada"}`)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if len(sink.values) != 1 || sink.values[0] != 1 {
		t.Fatalf("values = %v, want [1]", sink.values)
	}
	if sink.kinds[0] != KindFace {
		t.Fatalf("kind = %s, want %s", sink.kinds[0], KindFace)
	}
}

func TestRecorderRejectsMalformedPayload(t *testing.T) {
	broker := newFakeBroker()
	sink := &fakeSink{}

	rec, err := NewRecorder(broker, sink, 1, nil)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	defer rec.Close()

	handler := broker.handlers["camsync/event/+/+"]
	if err := handler("camsync/event/temp-hall/temperature", []byte(`{bad`)); err == nil {
		t.Fatal("expected decode error")
	}
	if len(sink.values) != 0 {
		t.Fatalf("values = %v, want none", sink.values)
	}
}

func TestRecorderCloseUnsubscribes(t *testing.T) {
	broker := newFakeBroker()
	rec, err := NewRecorder(broker, &fakeSink{}, 1, nil)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	rec.Close()

	if len(broker.unsubs) != 1 || broker.unsubs[0] != "camsync/event/+/+" {
		t.Fatalf("unsubs = %v, want wildcard released", broker.unsubs)
	}
}
