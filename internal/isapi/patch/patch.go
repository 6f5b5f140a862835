package patch

import (
	"bytes"
	"fmt"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// Scope restricts an edit to the repeated block whose key child
// matches. BlockTag names the repeated element, KeyTag the child used
// as the key, KeyValue the text it must carry.
type Scope struct {
	BlockTag string
	KeyTag   string
	KeyValue string
}

// Edit replaces the inner text of the first element named Tag (within
// the scope, when set) with Value.
type Edit struct {
	Tag   string
	Value string
	Scope *Scope
}

// Apply applies the edits to the raw document text and returns the new
// text plus the number of edits that located their target.
//
// Edits that do not match leave the document untouched; callers should
// treat applied < len(edits) as a patch mismatch and log it.
func Apply(raw []byte, edits []Edit) (out []byte, applied int) {
	out = raw
	for _, e := range edits {
		next, ok := applyOne(out, e)
		if ok {
			out = next
			applied++
		}
	}
	return out, applied
}

// applyOne applies a single edit, returning the edited text and whether
// the target was found.
func applyOne(raw []byte, e Edit) ([]byte, bool) {
	from, to := 0, len(raw)
	if e.Scope != nil {
		var ok bool
		from, to, ok = findBlockSpan(raw, e.Scope.BlockTag, e.Scope.KeyTag, e.Scope.KeyValue)
		if !ok {
			return raw, false
		}
	}

	innerStart, innerEnd, ok := findTagSpan(raw, e.Tag, from, to)
	if !ok {
		return raw, false
	}

	var buf bytes.Buffer
	buf.Grow(len(raw) - (innerEnd - innerStart) + len(e.Value))
	buf.Write(raw[:innerStart])
	buf.WriteString(e.Value)
	buf.Write(raw[innerEnd:])
	return buf.Bytes(), true
}

// findTagSpan locates the inner-text span of the first complete element
// named tag within raw[from:to]. Self-closing elements are skipped —
// they carry no text span to replace.
func findTagSpan(raw []byte, tag string, from, to int) (innerStart, innerEnd int, ok bool) {
	open := []byte("<" + tag)
	closing := []byte("</" + tag + ">")

	pos := from
	for pos < to {
		i := bytes.Index(raw[pos:to], open)
		if i < 0 {
			return 0, 0, false
		}
		start := pos + i
		// The byte after "<tag" must terminate the tag name, otherwise
		// we matched a longer name with the same prefix.
		rest := start + len(open)
		if rest >= to || !isNameEnd(raw[rest]) {
			pos = start + 1
			continue
		}

		gt := bytes.IndexByte(raw[rest:to], '>')
		if gt < 0 {
			return 0, 0, false
		}
		openEnd := rest + gt + 1
		if raw[openEnd-2] == '/' { // <tag .../>
			pos = openEnd
			continue
		}

		j := bytes.Index(raw[openEnd:to], closing)
		if j < 0 {
			return 0, 0, false
		}
		return openEnd, openEnd + j, true
	}
	return 0, 0, false
}

// isNameEnd reports whether b terminates a tag name in "<name...".
func isNameEnd(b byte) bool {
	switch b {
	case '>', '/', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// findBlockSpan locates the byte span of the repeated block whose key
// child matches. The returned span covers the block's full element text
// so nested tag searches stay inside it.
func findBlockSpan(raw []byte, blockTag, keyTag, keyValue string) (start, end int, ok bool) {
	open := []byte("<" + blockTag)
	closing := []byte("</" + blockTag + ">")

	pos := 0
	for pos < len(raw) {
		i := bytes.Index(raw[pos:], open)
		if i < 0 {
			return 0, 0, false
		}
		blockStart := pos + i
		rest := blockStart + len(open)
		if rest >= len(raw) || !isNameEnd(raw[rest]) {
			pos = blockStart + 1
			continue
		}

		j := bytes.Index(raw[blockStart:], closing)
		if j < 0 {
			return 0, 0, false
		}
		blockEnd := blockStart + j + len(closing)

		// Check the block's key child.
		ks, ke, found := findTagSpan(raw, keyTag, blockStart, blockEnd)
		if found && string(bytes.TrimSpace(raw[ks:ke])) == keyValue {
			return blockStart, blockEnd, true
		}
		pos = blockEnd
	}
	return 0, 0, false
}

// EnsureBlock is the structural fallback: it guarantees that the list
// element contains a block with the given key and field values, creating
// the block (or missing fields) through a tree rebuild when the textual
// strategy cannot apply.
//
// The returned document is re-serialized, so byte-level preservation of
// untouched regions is not guaranteed on this path.
func EnsureBlock(raw []byte, listTag, blockTag, keyTag, keyValue string, fields map[string]string) ([]byte, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}

	block := doc.Block(blockTag, keyTag, keyValue)
	if block == nil {
		list := doc.Root()
		if list.Tag != listTag {
			if found := list.FindElement(".//" + listTag); found != nil {
				list = found
			}
		}
		block = list.CreateElement(blockTag)
		document.SetField(block, keyTag, keyValue)
	}

	for tag, value := range fields {
		document.SetField(block, tag, value)
	}

	out, err := doc.Serialize()
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	return out, nil
}
