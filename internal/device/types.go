package device

import "time"

// Device represents one camera or sensor in the system.
// This matches the database schema in migrations.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	// Classification
	Type DeviceType `json:"type"`

	// Enabled gates whether the device participates in sync and
	// event delivery.
	Enabled bool `json:"enabled"`

	// Connection holds camera transport details. Nil for sensors.
	Connection *Connection `json:"connection,omitempty"`

	// Config holds device-specific configuration as a JSON map.
	Config Config `json:"config,omitempty"`

	// Health monitoring
	HealthStatus   HealthStatus `json:"health_status"`
	HealthLastSeen *time.Time   `json:"health_last_seen,omitempty"`

	// Metadata learned from the device itself.
	Manufacturer    *string `json:"manufacturer,omitempty"`
	Model           *string `json:"model,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Connection holds how a camera is reached.
type Connection struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	TLS      bool   `json:"tls"`
	Username string `json:"username"`
	Password string `json:"password"`

	// Auth selects the HTTP authentication scheme: "digest" (default)
	// or "basic".
	Auth string `json:"auth,omitempty"`
}

// Config holds device-specific configuration as a JSON map.
type Config map[string]any

// DeepCopy creates a complete independent copy of the Device.
// All pointer and map fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Connection != nil {
		conn := *d.Connection
		cpy.Connection = &conn
	}
	cpy.Config = deepCopyMap(d.Config)

	// Pointer fields (*string, *time.Time) don't need deep copy
	// because strings and time.Time are immutable in Go

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// DeviceType represents the specific kind of device.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Device type constants.
const (
	DeviceTypeCamera            DeviceType = "camera"
	DeviceTypeTemperatureSensor DeviceType = "temperature_sensor"
	DeviceTypeHumiditySensor    DeviceType = "humidity_sensor"
	DeviceTypeFaceDetector      DeviceType = "face_detector"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeCamera, DeviceTypeTemperatureSensor,
		DeviceTypeHumiditySensor, DeviceTypeFaceDetector,
	}
}

// IsCamera reports whether the type is a camera.
func (t DeviceType) IsCamera() bool {
	return t == DeviceTypeCamera
}

// IsSensor reports whether the type is an event-emitting sensor.
func (t DeviceType) IsSensor() bool {
	switch t {
	case DeviceTypeTemperatureSensor, DeviceTypeHumiditySensor, DeviceTypeFaceDetector:
		return true
	default:
		return false
	}
}

// EventKind returns the MQTT event kind a sensor type publishes, or ""
// for non-sensor types.
func (t DeviceType) EventKind() string {
	switch t {
	case DeviceTypeTemperatureSensor:
		return "temperature"
	case DeviceTypeHumiditySensor:
		return "humidity"
	case DeviceTypeFaceDetector:
		return "face"
	default:
		return ""
	}
}

// HealthStatus represents the device health state.
type HealthStatus string

// HealthStatus constants.
const (
	HealthStatusOnline   HealthStatus = "online"
	HealthStatusOffline  HealthStatus = "offline"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusUnknown  HealthStatus = "unknown"
)

// AllHealthStatuses returns all valid health status values.
func AllHealthStatuses() []HealthStatus {
	return []HealthStatus{
		HealthStatusOnline, HealthStatusOffline, HealthStatusDegraded, HealthStatusUnknown,
	}
}
