// Package overlay keeps camera on-screen text overlays in sync with
// live sensor data.
//
// Each camera gets one engine. The engine owns the overlay wire
// document, a binding per overlay slot, and a single reconciliation
// goroutine: sensor events land in a bounded queue, and a fixed-period
// tick drains the queue, resolves the desired text per slot and pushes
// a minimal patch for every slot whose text actually changed. Ticks
// run strictly one at a time and an unchanged resolution never touches
// the camera.
package overlay
