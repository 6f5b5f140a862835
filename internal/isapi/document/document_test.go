package document

import (
	"errors"
	"reflect"
	"testing"
)

const motionCapXML = `<?xml version="1.0" encoding="UTF-8"?>
<MotionDetection xmlns="http://www.example.com/ver20/XMLSchema" version="2.0">
  <enabled>true</enabled>
  <MotionDetectionLayout>
    <sensitivityLevel min="0" max="100">20</sensitivityLevel>
  </MotionDetectionLayout>
  <x-vendor-roi>1,2,3,4</x-vendor-roi>
</MotionDetection>`

const channelListXML = `<?xml version="1.0" encoding="UTF-8"?>
<StreamingChannelList>
  <StreamingChannel>
    <id>101</id>
    <Video>
      <videoCodecType opt="H.264,H.265">H.264</videoCodecType>
      <maxFrameRate>2500</maxFrameRate>
    </Video>
  </StreamingChannel>
  <StreamingChannel>
    <id>102</id>
    <Video>
      <videoCodecType>MJPEG</videoCodecType>
      <maxFrameRate>1200</maxFrameRate>
    </Video>
  </StreamingChannel>
</StreamingChannelList>`

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "not xml at all <", "<a><b></a>"} {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestFieldScalar(t *testing.T) {
	doc, err := Parse([]byte(motionCapXML))
	if err != nil {
		t.Fatal(err)
	}

	enabled, ok := doc.Field("enabled").Bool()
	if !ok || !enabled {
		t.Errorf("enabled = (%v, %v), want (true, true)", enabled, ok)
	}

	if doc.Field("noSuchTag").Found() {
		t.Error("absent field reported as found")
	}
	if got := doc.Field("noSuchTag").String("fallback"); got != "fallback" {
		t.Errorf("String fallback = %q", got)
	}
}

func TestFieldConstraints(t *testing.T) {
	doc, err := Parse([]byte(motionCapXML))
	if err != nil {
		t.Fatal(err)
	}

	v := doc.Field("MotionDetectionLayout", "sensitivityLevel")
	if !v.Found() {
		t.Fatal("sensitivityLevel not found")
	}
	if n, ok := v.Int(); !ok || n != 20 {
		t.Errorf("value = (%d, %v), want (20, true)", n, ok)
	}
	if minV, ok := v.Min(); !ok || minV != 0 {
		t.Errorf("min = (%d, %v), want (0, true)", minV, ok)
	}
	if maxV, ok := v.Max(); !ok || maxV != 100 {
		t.Errorf("max = (%d, %v), want (100, true)", maxV, ok)
	}
}

func TestFieldOpts(t *testing.T) {
	doc, err := Parse([]byte(channelListXML))
	if err != nil {
		t.Fatal(err)
	}

	v := doc.FieldIn("StreamingChannel", "id", "101", "Video", "videoCodecType")
	if got := v.String(""); got != "H.264" {
		t.Errorf("codec = %q, want H.264", got)
	}
	if got := v.Opts(); !reflect.DeepEqual(got, []string{"H.264", "H.265"}) {
		t.Errorf("opts = %v", got)
	}

	// Second channel has no opt attribute.
	v = doc.FieldIn("StreamingChannel", "id", "102", "Video", "videoCodecType")
	if v.Opts() != nil {
		t.Errorf("opts = %v, want nil", v.Opts())
	}
}

func TestFieldInScoping(t *testing.T) {
	doc, err := Parse([]byte(channelListXML))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		want int
	}{
		{"101", 2500},
		{"102", 1200},
	}
	for _, tt := range tests {
		v := doc.FieldIn("StreamingChannel", "id", tt.id, "Video", "maxFrameRate")
		if got := v.IntOr(-1); got != tt.want {
			t.Errorf("channel %s maxFrameRate = %d, want %d", tt.id, got, tt.want)
		}
	}

	if doc.FieldIn("StreamingChannel", "id", "999", "Video", "maxFrameRate").Found() {
		t.Error("nonexistent channel resolved")
	}
}

func TestBlocks(t *testing.T) {
	doc, err := Parse([]byte(channelListXML))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Blocks("StreamingChannel")); got != 2 {
		t.Errorf("Blocks count = %d, want 2", got)
	}

	// A document whose root is itself the block.
	single, err := Parse([]byte(`<StreamingChannel><id>101</id></StreamingChannel>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(single.Blocks("StreamingChannel")); got != 1 {
		t.Errorf("root-block count = %d, want 1", got)
	}
	if single.Block("StreamingChannel", "id", "101") == nil {
		t.Error("root block not matched by key")
	}
}

func TestSetFieldAndSerialize(t *testing.T) {
	doc, err := Parse([]byte(motionCapXML))
	if err != nil {
		t.Fatal(err)
	}

	SetField(doc.Root(), "enabled", "false")
	SetField(doc.Root(), "newTag", "hello")

	out, err := doc.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparsing serialized output: %v", err)
	}
	if got := reparsed.Field("enabled").String(""); got != "false" {
		t.Errorf("enabled after SetField = %q", got)
	}
	if got := reparsed.Field("newTag").String(""); got != "hello" {
		t.Errorf("created tag = %q", got)
	}
	// Unknown vendor fields survive the tree round trip.
	if got := reparsed.Field("x-vendor-roi").String(""); got != "1,2,3,4" {
		t.Errorf("vendor field = %q", got)
	}
}
