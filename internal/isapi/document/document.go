package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed camera XML document.
//
// The tree is fully materialised in memory; documents are small
// (single-digit kilobytes) so no streaming is attempted.
type Document struct {
	tree *etree.Document
}

// Parse decodes a raw XML document.
func Parse(raw []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return &Document{tree: tree}, nil
}

// Serialize renders the document back to XML bytes.
func (d *Document) Serialize() ([]byte, error) {
	out, err := d.tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("document: serializing: %w", err)
	}
	return out, nil
}

// Root returns the root element for direct tree manipulation.
// Used by the patcher's structural fallback path.
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// RootTag returns the root element's local tag name.
func (d *Document) RootTag() string {
	return d.tree.Root().Tag
}

// Field resolves a leaf by walking the tag path down from the root.
// The root element itself is not part of the path.
//
// A missing element anywhere along the path yields a not-found Value.
func (d *Document) Field(path ...string) Value {
	return elementValue(resolve(d.tree.Root(), path))
}

// FieldIn resolves a leaf inside the repeated block whose key child
// matches. The block is located anywhere beneath the root; the path is
// then walked down from the matching block.
//
// Example: the <StreamingChannel> whose <id> is "101":
//
//	doc.FieldIn("StreamingChannel", "id", "101", "Video", "videoCodecType")
func (d *Document) FieldIn(blockTag, keyTag, keyValue string, path ...string) Value {
	block := d.Block(blockTag, keyTag, keyValue)
	if block == nil {
		return Value{}
	}
	return elementValue(resolve(block, path))
}

// FieldOf resolves a leaf by walking the tag path down from an element
// already in hand, typically a block returned by Blocks.
func FieldOf(start *etree.Element, path ...string) Value {
	return elementValue(resolve(start, path))
}

// Block locates the repeated element with the given tag whose keyTag
// child has text keyValue. Returns nil if no block matches.
func (d *Document) Block(blockTag, keyTag, keyValue string) *etree.Element {
	for _, el := range d.tree.Root().FindElements(".//" + blockTag) {
		key := el.SelectElement(keyTag)
		if key != nil && strings.TrimSpace(key.Text()) == keyValue {
			return el
		}
	}
	// The root itself may be the block (single-channel documents).
	root := d.tree.Root()
	if root.Tag == blockTag {
		if key := root.SelectElement(keyTag); key != nil && strings.TrimSpace(key.Text()) == keyValue {
			return root
		}
	}
	return nil
}

// Blocks returns every element with the given tag, in document order.
func (d *Document) Blocks(blockTag string) []*etree.Element {
	if d.tree.Root().Tag == blockTag {
		return []*etree.Element{d.tree.Root()}
	}
	return d.tree.Root().FindElements(".//" + blockTag)
}

// SetField sets the text of the named child of parent, creating the
// element if absent. Part of the structural mutation path; scalar
// updates should use the patch package.
func SetField(parent *etree.Element, tag, value string) {
	child := parent.SelectElement(tag)
	if child == nil {
		child = parent.CreateElement(tag)
	}
	child.SetText(value)
}

// resolve walks the tag path from start, returning nil when any hop is
// missing.
func resolve(start *etree.Element, path []string) *etree.Element {
	el := start
	for _, tag := range path {
		if el == nil {
			return nil
		}
		el = el.SelectElement(tag)
	}
	return el
}

// elementValue extracts a Value from a leaf element, pulling the
// min/max/opt constraint attributes when present.
func elementValue(el *etree.Element) Value {
	if el == nil {
		return Value{}
	}
	v := Value{
		raw:   strings.TrimSpace(el.Text()),
		found: true,
	}
	if attr := el.SelectAttr("min"); attr != nil {
		if n, err := strconv.Atoi(attr.Value); err == nil {
			v.min = &n
		}
	}
	if attr := el.SelectAttr("max"); attr != nil {
		if n, err := strconv.Atoi(attr.Value); err == nil {
			v.max = &n
		}
	}
	if attr := el.SelectAttr("step"); attr != nil {
		if n, err := strconv.Atoi(attr.Value); err == nil {
			v.step = &n
		}
	}
	if attr := el.SelectAttr("opt"); attr != nil && attr.Value != "" {
		v.opts = strings.Split(attr.Value, ",")
	}
	return v
}

// Value is the uniform accessor result for a document leaf: the scalar
// text plus any constraint annotations the element carried.
//
// The zero Value represents an absent field.
type Value struct {
	raw   string
	found bool
	min   *int
	max   *int
	step  *int
	opts  []string
}

// Found reports whether the field was present in the document.
func (v Value) Found() bool { return v.found }

// String returns the raw text, or the fallback when absent.
func (v Value) String(fallback string) string {
	if !v.found || v.raw == "" {
		return fallback
	}
	return v.raw
}

// Int parses the text as an integer.
func (v Value) Int() (int, bool) {
	if !v.found {
		return 0, false
	}
	n, err := strconv.Atoi(v.raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IntOr parses the text as an integer, returning the fallback when the
// field is absent or unparseable.
func (v Value) IntOr(fallback int) int {
	if n, ok := v.Int(); ok {
		return n
	}
	return fallback
}

// Bool parses the text as the wire booleans "true"/"false".
func (v Value) Bool() (bool, bool) {
	switch v.raw {
	case "true":
		return true, v.found
	case "false":
		return false, v.found
	default:
		return false, false
	}
}

// BoolOr parses the text as a boolean with a fallback.
func (v Value) BoolOr(fallback bool) bool {
	if b, ok := v.Bool(); ok {
		return b
	}
	return fallback
}

// Min returns the min constraint attribute, if the element carried one.
func (v Value) Min() (int, bool) {
	if v.min == nil {
		return 0, false
	}
	return *v.min, true
}

// Max returns the max constraint attribute, if the element carried one.
func (v Value) Max() (int, bool) {
	if v.max == nil {
		return 0, false
	}
	return *v.max, true
}

// Step returns the step constraint attribute, if the element carried one.
func (v Value) Step() (int, bool) {
	if v.step == nil {
		return 0, false
	}
	return *v.step, true
}

// Opts returns the option list from the opt attribute (nil when absent).
func (v Value) Opts() []string {
	return v.opts
}
