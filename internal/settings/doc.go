// Package settings turns a camera capability snapshot into a flat,
// ordered list of setting definitions and applies setting writes back
// to the camera.
//
// The definition list is regenerated in full from the current snapshot
// on every request; definitions are never mutated in place. Writes go
// through a stateless dispatch table: each handler receives everything
// it needs in an explicit HandlerContext, builds a minimal byte-level
// patch against the retained wire document, and pushes the patched
// document back to the camera.
package settings
