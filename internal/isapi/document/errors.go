package document

import "errors"

// ErrMalformed is returned when a device response cannot be parsed as XML.
var ErrMalformed = errors.New("document: malformed XML")
