package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a single sensor measurement to InfluxDB.
//
// This is the primary method for recording sensor telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Unique identifier for the sensor (e.g., "temp-lobby-01")
//   - kind: The event kind (e.g., "temperature", "humidity")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorReading("temp-lobby-01", "temperature", 21.5)
func (c *Client) WriteSensorReading(deviceID string, kind string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"device_id": deviceID,
			"kind":      kind,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOverlayPush records one overlay write to a camera.
//
// Used for tracking overlay sync activity per camera and slot, which
// makes runaway reconciliation loops visible in dashboards.
//
// Parameters:
//   - cameraID: Camera device identifier
//   - slotID: Overlay slot id on the camera
//   - textLen: Length of the rendered overlay text
func (c *Client) WriteOverlayPush(cameraID string, slotID string, textLen int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"overlay_pushes",
		map[string]string{
			"camera_id": cameraID,
			"slot_id":   slotID,
		},
		map[string]interface{}{
			"text_len": textLen,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSettingChange records one applied camera setting write.
//
// Parameters:
//   - cameraID: Camera device identifier
//   - key: The setting key that was written (e.g., "motion:sensitivity")
func (c *Client) WriteSettingChange(cameraID string, key string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"setting_changes",
		map[string]string{
			"camera_id": cameraID,
			"key":       key,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
