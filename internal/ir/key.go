package ir

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key identifies the physical input context a rule set belongs to:
// (source, cursor, button), e.g. ("Wacom Intuos", "Pressure Stylus", "1")
// or ("mouse", "wheel", "0").
type Key struct {
	Source string `json:"source" yaml:"source"`
	Cursor string `json:"cursor" yaml:"cursor"`
	Button string `json:"button" yaml:"button"`
}

// NewKey builds a key with every component NFC normalised.
// Tablet and cursor names come from the OS and are not guaranteed to use a
// single Unicode normal form.
func NewKey(source, cursor, button string) Key {
	return Key{
		Source: norm.NFC.String(source),
		Cursor: norm.NFC.String(cursor),
		Button: norm.NFC.String(button),
	}
}

// Canonical returns k with every component NFC normalised.
func (k Key) Canonical() Key {
	return NewKey(k.Source, k.Cursor, k.Button)
}

// String renders the key as source/cursor/button.
func (k Key) String() string {
	return k.Source + "/" + k.Cursor + "/" + k.Button
}

// ParseKey reverses String. Source names may not contain '/'; cursor and
// button are taken from the last two segments.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return Key{}, fmt.Errorf("parse key %q: want source/cursor/button", s)
	}
	j := strings.LastIndex(s[:i], "/")
	if j < 0 {
		return Key{}, fmt.Errorf("parse key %q: want source/cursor/button", s)
	}
	return NewKey(s[:j], s[j+1:i], s[i+1:]), nil
}

// MouseSource is the source name for all pointer-device keys.
const MouseSource = "mouse"

// Fixed cursor names for mouse keys.
const (
	MouseCursor = "cursor"
	MouseWheel  = "wheel"
)

// WheelKey is the static key of the mouse wheel row.
var WheelKey = Key{Source: MouseSource, Cursor: MouseWheel, Button: "0"}
