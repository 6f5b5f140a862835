package mqtt

import "fmt"

// Topic prefixes for the camsync MQTT namespace.
//
// Event topics use the flat scheme: camsync/event/{device_id}/{kind}.
// Sensor integrations publish there; the sync core only subscribes.
const (
	// TopicPrefix is the base for all camsync topics.
	TopicPrefix = "camsync"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "camsync/system"
)

// Topics provides builders for camsync MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.SensorEvent("temp-hallway", "temperature")
//	// Returns: "camsync/event/temp-hallway/temperature"
type Topics struct{}

// SensorEvent returns the topic a sensor publishes one reading kind to.
//
// Example: camsync/event/temp-hallway/temperature
func (Topics) SensorEvent(deviceID, kind string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, deviceID, kind)
}

// AllSensorEvents returns a pattern matching every sensor event.
//
// Pattern: camsync/event/+/+
func (Topics) AllSensorEvents() string {
	return fmt.Sprintf("%s/event/+/+", TopicPrefix)
}

// CameraStatus returns the topic for one camera's sync status.
//
// Example: camsync/camera/cam-front-door/status
func (Topics) CameraStatus(cameraID string) string {
	return fmt.Sprintf("%s/camera/%s/status", TopicPrefix, cameraID)
}

// CameraSettings returns the topic announcing a camera's regenerated
// setting schema. Retained so late subscribers see the current schema
// version.
//
// Example: camsync/camera/cam-front-door/settings
func (Topics) CameraSettings(cameraID string) string {
	return fmt.Sprintf("%s/camera/%s/settings", TopicPrefix, cameraID)
}

// CameraOverlay returns the topic announcing one camera's overlay
// pushes. Not retained; each push is a discrete event.
//
// Example: camsync/camera/cam-front-door/overlay
func (Topics) CameraOverlay(cameraID string) string {
	return fmt.Sprintf("%s/camera/%s/overlay", TopicPrefix, cameraID)
}

// AllCameraStatus returns a pattern matching every camera status topic.
//
// Pattern: camsync/camera/+/status
func (Topics) AllCameraStatus() string {
	return fmt.Sprintf("%s/camera/+/status", TopicPrefix)
}

// AllCameraSettings returns a pattern matching every camera settings
// announcement.
//
// Pattern: camsync/camera/+/settings
func (Topics) AllCameraSettings() string {
	return fmt.Sprintf("%s/camera/+/settings", TopicPrefix)
}

// AllCameraOverlays returns a pattern matching every overlay push
// announcement.
//
// Pattern: camsync/camera/+/overlay
func (Topics) AllCameraOverlays() string {
	return fmt.Sprintf("%s/camera/+/overlay", TopicPrefix)
}

// SystemStatus returns the service status topic (also the LWT topic).
//
// Example: camsync/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all camsync topics.
// Use with caution, this receives ALL traffic.
//
// Pattern: camsync/#
func (Topics) AllTopics() string {
	return "camsync/#"
}
