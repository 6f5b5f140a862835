// Package camera ties one managed camera's moving parts together: the
// ISAPI transport, the capability snapshot, the synthesised setting
// list and the overlay sync engine.
//
// The Manager is the explicit registry of running cameras. Register
// builds a camera's full stack and starts its overlay engine;
// Unregister tears it down synchronously. Everything the API layer
// does to a camera goes through the Manager.
package camera
