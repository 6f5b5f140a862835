// Package client is the HTTP transport for the camera's ISAPI-style
// control endpoints.
//
// It exchanges XML documents with fixed per-subsystem paths over
// HTTP(S), authenticating with Basic or Digest credentials supplied by
// the camera's registry entry. There is no retry policy here: a failed
// request surfaces to the caller, which leaves the affected subsystem at
// its last-known state until the next reconciliation tick or an explicit
// refetch.
package client
