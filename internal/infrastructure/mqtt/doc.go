// Package mqtt provides MQTT client connectivity for camsync core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// camsync uses MQTT as the event boundary between sensor integrations
// (temperature, humidity, face recognition) and the sync core. Sensors
// publish readings to per-device event topics; the overlay engines
// subscribe to the devices their slots are bound to.
//
//	Sensor integrations → MQTT Broker → camsync core → cameras
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to one sensor's temperature readings
//	topic := mqtt.Topics{}.SensorEvent("temp-hallway", "temperature")
//	err = client.Subscribe(topic, 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
