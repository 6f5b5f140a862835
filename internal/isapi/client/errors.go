package client

import "errors"

// Transport-level errors. Check with errors.Is().
var (
	// ErrTransport is returned for network-level failures (DNS, refused
	// connection, timeout, truncated body).
	ErrTransport = errors.New("isapi: transport error")

	// ErrAuth is returned when the camera rejects the credentials.
	ErrAuth = errors.New("isapi: authentication failed")

	// ErrStatus is returned for any other non-2xx device response.
	ErrStatus = errors.New("isapi: unexpected status")
)
