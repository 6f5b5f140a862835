// Package document parses and serializes the camera's XML configuration
// and capability documents into a navigable tree.
//
// The same accessor works for both document shapes the device produces:
// plain configuration values (`<enabled>true</enabled>`) and capability
// descriptors that annotate the value with a constraint range or an
// option list (`<sensitivityLevel min="0" max="100">20</sensitivityLevel>`,
// `<videoCodecType opt="H.264,H.265">H.264</videoCodecType>`). Callers
// receive a Value carrying the text plus whatever constraints were
// present; absent fields are reported as not-found, never as errors.
//
// Round-trip caveat: Serialize(Parse(x)) is not guaranteed byte-identical
// to x (the writer may normalise attribute quoting and self-closing
// forms). Scalar updates that must preserve unknown vendor bytes go
// through the patch package instead, which edits the raw document text.
// This package's tree mutation is reserved for structural changes such
// as creating an overlay block that did not previously exist.
package document
