// Package events turns raw sensor MQTT traffic into typed event
// subscriptions.
//
// Sensor integrations publish JSON readings to camsync/event/{device}/{kind}.
// The Bus subscribes to those topics on demand and fans each decoded
// Event out to every listener registered for that device and kind. One
// broker subscription is held per topic regardless of listener count;
// the last listener to cancel releases it.
//
// Listener channels are bounded. A listener that stops draining loses
// the oldest events rather than stalling the bus; overlay rendering
// only ever cares about the most recent reading.
package events
