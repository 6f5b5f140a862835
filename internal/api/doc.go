// Package api implements the HTTP REST API and WebSocket server for CamSync Core.
//
// This package provides:
//   - REST endpoints for device CRUD and camera lifecycle management
//   - Camera settings synthesis and writes routed through the capability layer
//   - Overlay duplication between cameras
//   - WebSocket hub relaying sensor events and camera status in real time
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces and the camera manager +
// MQTT bus. Setting writes flow through the manager to cameras over
// ISAPI, and sensor events flow in via MQTT subscriptions which are
// relayed to WebSocket clients.
//
// # Security
//
// Authentication uses JWT access tokens backed by a user database with
// Argon2id password hashing and rotating refresh tokens. WebSocket
// connections use single-use tickets to prevent token leakage in URLs.
//
// # Graceful Degradation
//
// The server operates without MQTT — reads and camera writes work, only
// the WebSocket event relay is disabled.
package api
