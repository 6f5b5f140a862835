// Package patch performs minimally-invasive edits on raw camera XML
// documents.
//
// The primary strategy is textual: a named tag's inner text is replaced
// in place, optionally scoped to the repeated block whose key child
// matches (e.g. "the <TextOverlay> whose <id> is 2"). Every byte outside
// the replaced span — attributes, whitespace, ordering, and unknown
// vendor elements — survives unchanged. Some firmwares reject documents
// whose elements have been reordered or re-attributed by a serializer,
// which is why scalar updates never go through a tree rebuild.
//
// An edit whose target cannot be located applies nothing; Apply reports
// how many edits landed so callers can log the mismatch instead of
// silently pushing an unchanged document.
//
// EnsureBlock is the structural fallback for updates that must add a
// sub-element that does not yet exist. It rebuilds the tree through the
// document package and accepts the weaker round-trip guarantee.
package patch
