// Package device provides the device registry for camsync core.
//
// The registry is the catalogue of cameras and sensors in an
// installation. A camera is reached over HTTP; sensors (temperature,
// humidity, face recognition) deliver readings over MQTT and carry no
// connection details of their own.
//
// # Key Types
//
//   - Device: one camera or sensor
//   - Connection: camera transport details (host, credentials, auth scheme)
//   - DeviceType: camera, temperature_sensor, humidity_sensor, face_detector
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	// Load devices into cache on startup
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	dev := &device.Device{
//	    Name: "Front Door",
//	    Type: device.DeviceTypeCamera,
//	    Connection: &device.Connection{
//	        Host:     "192.168.1.64",
//	        Port:     80,
//	        Username: "admin",
//	        Password: "secret",
//	    },
//	}
//	if err := registry.CreateDevice(ctx, dev); err != nil {
//	    return err
//	}
//
//	cameras, _ := registry.GetDevicesByType(ctx, device.DeviceTypeCamera)
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected
// by a read-write mutex, and every read returns a deep copy. The
// Repository implementation must also be thread-safe.
package device
