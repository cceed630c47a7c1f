package ir

import (
	"strconv"
	"strings"
)

// MessageType names the MIDI message a rule produces.
type MessageType string

const (
	MessageNote         MessageType = "note"
	MessageVelocity     MessageType = "velocity"
	MessagePitch        MessageType = "pitch"
	MessageControl      MessageType = "control"
	MessageProgram      MessageType = "program"
	MessageAftertouch   MessageType = "aftertouch"
	MessagePolytouch    MessageType = "polytouch"
	MessageSongSelect   MessageType = "song_select"
	MessageSongPosition MessageType = "song_position"
)

// MessageTypes lists every message type in menu order.
var MessageTypes = []MessageType{
	MessageNote,
	MessageVelocity,
	MessageAftertouch,
	MessagePolytouch,
	MessagePitch,
	MessageProgram,
	MessageControl,
	MessageSongSelect,
	MessageSongPosition,
}

// ParseMessageType accepts both the snake_case names and the spaced names
// used by older settings ("song select").
func ParseMessageType(s string) (MessageType, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(strings.ToLower(s)), " ", "_")
	for _, mt := range MessageTypes {
		if string(mt) == s {
			return mt, true
		}
	}
	return "", false
}

// NoteRelated reports whether the type takes part in note+velocity pairing.
func (m MessageType) NoteRelated() bool {
	return m == MessageNote || m == MessageVelocity
}

// Axis names one dimension of an input sample.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Axes lists the tracked axes in order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

// AxisAt returns the n-th axis (0 → x).
func AxisAt(n int) Axis {
	return Axes[n]
}

// Kind distinguishes absolute rules from stepped ones.
type Kind int

const (
	// KindContinuous rules map an absolute axis position through a scale
	// and are gated by a travel threshold.
	KindContinuous Kind = iota + 1

	// KindStepped rules add scaled deltas to a persisted running value.
	KindStepped
)

func (k Kind) String() string {
	switch k {
	case KindContinuous:
		return "continuous"
	case KindStepped:
		return "stepped"
	default:
		return "unknown"
	}
}

// Snapshot is the persisted value tuple of one rule.
//
// The field set is fixed; continuous rules carry Threshold, stepped rules
// carry Step, Value and PullBack. Presence of Step marks a stepped rule.
type Snapshot struct {
	Enabled     bool        `json:"enabled" yaml:"enabled"`
	Channel     *int        `json:"channel" yaml:"channel" validate:"required,min=0,max=15"`
	MessageType MessageType `json:"message_type" yaml:"message_type" validate:"required,message_type"`
	ControlType string      `json:"control_type" yaml:"control_type"`
	RangeFrom   *int        `json:"range_from" yaml:"range_from" validate:"required"`
	RangeTo     *int        `json:"range_to" yaml:"range_to" validate:"required"`
	Axis        Axis        `json:"axis" yaml:"axis" validate:"required,oneof=x y z"`
	Threshold   *float64    `json:"threshold,omitempty" yaml:"threshold,omitempty" validate:"omitempty,gte=0"`
	Step        *int        `json:"step,omitempty" yaml:"step,omitempty" validate:"omitempty,ne=0"`
	Value       int         `json:"value,omitempty" yaml:"value,omitempty"`
	PullBack    bool        `json:"pull_back,omitempty" yaml:"pull_back,omitempty"`
}

// Kind reports whether the snapshot is continuous or stepped.
func (s Snapshot) Kind() Kind {
	if s.Step != nil {
		return KindStepped
	}
	return KindContinuous
}

// Clone returns a deep copy; pointer fields are not shared.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Channel = clonePtr(s.Channel)
	c.RangeFrom = clonePtr(s.RangeFrom)
	c.RangeTo = clonePtr(s.RangeTo)
	c.Threshold = clonePtr(s.Threshold)
	c.Step = clonePtr(s.Step)
	return c
}

// Clamp limits v to [RangeFrom, RangeTo]. The snapshot must be valid.
func (s Snapshot) Clamp(v int) int {
	lo, hi := *s.RangeFrom, *s.RangeTo
	if lo > hi {
		lo, hi = hi, lo
	}
	return max(min(v, hi), lo)
}

// ControlNumber returns the CC number of ControlType.
func (s Snapshot) ControlNumber() (int, bool) {
	return LookupControl(s.ControlType)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// ParseInt parses user-entered text. Blank or malformed text yields nil.
func ParseInt(text string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil
	}
	return &n
}

// ParseFloat parses user-entered text. Blank or malformed text yields nil.
func ParseFloat(text string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	return &f
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
