package influxdb

import "errors"

// Sentinel errors for telemetry operations, checked with errors.Is().
var (
	// ErrNotConnected indicates the client has no live InfluxDB connection.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a point write failed. Most write errors
	// surface asynchronously through the SetOnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates telemetry is switched off in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
