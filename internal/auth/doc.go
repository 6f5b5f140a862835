// Package auth provides authentication and authorisation for CamSync Core.
//
// It implements a 3-tier role model (user → admin → owner) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token rotation with family-based theft detection
//   - Static role-permission mapping (compile-time, no database lookup)
//
// Users can view cameras and manage overlay bindings; camera
// configuration writes require admin. Owner adds dangerous database
// operations on top.
package auth
