package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func continuous() Snapshot {
	return Snapshot{
		Enabled:     true,
		Channel:     IntPtr(0),
		MessageType: MessageControl,
		ControlType: ControlBankSelect,
		RangeFrom:   IntPtr(0),
		RangeTo:     IntPtr(127),
		Axis:        AxisX,
		Threshold:   FloatPtr(0),
	}
}

func stepped() Snapshot {
	return Snapshot{
		Channel:     IntPtr(0),
		MessageType: MessagePitch,
		ControlType: ControlBankSelect,
		RangeFrom:   IntPtr(-8192),
		RangeTo:     IntPtr(8191),
		Axis:        AxisY,
		Step:        IntPtr(100),
	}
}

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in   string
		want MessageType
		ok   bool
	}{
		{"note", MessageNote, true},
		{"song select", MessageSongSelect, true},
		{"Song Position", MessageSongPosition, true},
		{"song_position", MessageSongPosition, true},
		{"sysex", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMessageType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageType_NoteRelated(t *testing.T) {
	assert.True(t, MessageNote.NoteRelated())
	assert.True(t, MessageVelocity.NoteRelated())
	assert.False(t, MessagePitch.NoteRelated())
	assert.False(t, MessageControl.NoteRelated())
}

func TestSnapshot_Kind(t *testing.T) {
	assert.Equal(t, KindContinuous, continuous().Kind())
	assert.Equal(t, KindStepped, stepped().Kind())
}

func TestSnapshot_Clamp(t *testing.T) {
	s := continuous()
	assert.Equal(t, 127, s.Clamp(500))
	assert.Equal(t, 0, s.Clamp(-3))
	assert.Equal(t, 64, s.Clamp(64))

	s.RangeFrom, s.RangeTo = IntPtr(100), IntPtr(10)
	assert.Equal(t, 100, s.Clamp(500), "reversed range clamps to its bounds")
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	s := continuous()
	c := s.Clone()
	*c.Channel = 9
	*c.Threshold = 3

	assert.Equal(t, 0, *s.Channel)
	assert.Equal(t, 0.0, *s.Threshold)
	assert.Nil(t, c.Step)
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr string
	}{
		{"valid", func(*Snapshot) {}, ""},
		{"missing channel", func(s *Snapshot) { s.Channel = nil }, "Channel(required)"},
		{"channel too high", func(s *Snapshot) { s.Channel = IntPtr(16) }, "Channel(max)"},
		{"missing range_to", func(s *Snapshot) { s.RangeTo = nil }, "RangeTo(required)"},
		{"unknown message type", func(s *Snapshot) { s.MessageType = "sysex" }, "MessageType(message_type)"},
		{"unknown control", func(s *Snapshot) { s.ControlType = "Nope" }, "ControlType(control_name)"},
		{"unknown control ignored for pitch", func(s *Snapshot) {
			s.MessageType = MessagePitch
			s.ControlType = "Nope"
		}, ""},
		{"bad axis", func(s *Snapshot) { s.Axis = "w" }, "Axis(oneof)"},
		{"missing threshold", func(s *Snapshot) { s.Threshold = nil }, "Threshold(required_without)"},
		{"negative threshold", func(s *Snapshot) { s.Threshold = FloatPtr(-1) }, "Threshold(gte)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := continuous()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, s.Valid())
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, s.Valid())
		})
	}
}

func TestSnapshot_ValidateStepped(t *testing.T) {
	s := stepped()
	require.NoError(t, s.Validate(), "stepped rules need no threshold")

	s.Step = IntPtr(0)
	assert.False(t, s.Valid(), "zero step never moves the value")
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, IntPtr(42), ParseInt(" 42 "))
	assert.Equal(t, IntPtr(-8192), ParseInt("-8192"))
	assert.Nil(t, ParseInt(""))
	assert.Nil(t, ParseInt("4x"))

	assert.Equal(t, FloatPtr(2.5), ParseFloat("2.5"))
	assert.Nil(t, ParseFloat("abc"))
}

func TestLookupControl(t *testing.T) {
	cc, ok := LookupControl(ControlBankSelect)
	require.True(t, ok)
	assert.Equal(t, 0, cc)

	cc, ok = LookupControl(ControlAllNotesOff)
	require.True(t, ok)
	assert.Equal(t, 123, cc)

	_, ok = LookupControl("Not A Controller")
	assert.False(t, ok)

	assert.Len(t, ControlNames, len(ControlCodes), "every named control has a code")
	for _, name := range ControlNames {
		_, ok := ControlCodes[name]
		assert.True(t, ok, name)
	}
}
