package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// ErrOutOfRange is returned for a message field outside its protocol range.
var ErrOutOfRange = errors.New("midi value out of range")

// Type is the wire-level message type.
type Type string

const (
	TypeNoteOn        Type = "note_on"
	TypeControlChange Type = "control_change"
	TypePitchwheel    Type = "pitchwheel"
	TypeProgramChange Type = "program_change"
	TypeAftertouch    Type = "aftertouch"
	TypePolytouch     Type = "polytouch"
	TypeSongSelect    Type = "song_select"
	TypeSongPosition  Type = "songpos"
)

// Protocol defaults.
const (
	DefaultVelocity = 64

	// PolytouchNote is the note every polyphonic aftertouch message is
	// pinned to. It is not configurable.
	PolytouchNote = 60

	PitchMin   = -8192
	PitchMax   = 8191
	SongPosMax = 16383
)

// Message is one outbound MIDI message. Only the fields that belong to
// Type are meaningful.
type Message struct {
	Type     Type
	Channel  int
	Note     int
	Velocity int
	Control  int
	Value    int
	Pitch    int
	Program  int
	Song     int
	Pos      int
}

func NoteOn(channel, note, velocity int) Message {
	return Message{Type: TypeNoteOn, Channel: channel, Note: note, Velocity: velocity}
}

func ControlChange(channel, control, value int) Message {
	return Message{Type: TypeControlChange, Channel: channel, Control: control, Value: value}
}

func Pitchwheel(channel, pitch int) Message {
	return Message{Type: TypePitchwheel, Channel: channel, Pitch: pitch}
}

func ProgramChange(channel, program int) Message {
	return Message{Type: TypeProgramChange, Channel: channel, Program: program}
}

func Aftertouch(channel, value int) Message {
	return Message{Type: TypeAftertouch, Channel: channel, Value: value}
}

// Polytouch builds polyphonic aftertouch on PolytouchNote.
func Polytouch(channel, value int) Message {
	return Message{Type: TypePolytouch, Channel: channel, Note: PolytouchNote, Value: value}
}

// SongSelect is a system common message and carries no channel.
func SongSelect(song int) Message {
	return Message{Type: TypeSongSelect, Song: song}
}

// SongPosition is a system common message and carries no channel.
func SongPosition(pos int) Message {
	return Message{Type: TypeSongPosition, Pos: pos}
}

// Validate checks every field of the message against its protocol range.
func (m Message) Validate() error {
	switch m.Type {
	case TypeSongSelect:
		return inRange("song", m.Song, 0, 127)
	case TypeSongPosition:
		return inRange("pos", m.Pos, 0, SongPosMax)
	}

	if err := inRange("channel", m.Channel, 0, 15); err != nil {
		return err
	}
	switch m.Type {
	case TypeNoteOn:
		return errors.Join(inRange("note", m.Note, 0, 127), inRange("velocity", m.Velocity, 0, 127))
	case TypeControlChange:
		return errors.Join(inRange("control", m.Control, 0, 127), inRange("value", m.Value, 0, 127))
	case TypePitchwheel:
		return inRange("pitch", m.Pitch, PitchMin, PitchMax)
	case TypeProgramChange:
		return inRange("program", m.Program, 0, 127)
	case TypeAftertouch:
		return inRange("value", m.Value, 0, 127)
	case TypePolytouch:
		return errors.Join(inRange("note", m.Note, 0, 127), inRange("value", m.Value, 0, 127))
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
}

func inRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s=%d not in %d..%d", ErrOutOfRange, field, v, lo, hi)
	}
	return nil
}

// Bytes validates the message and returns its wire encoding.
func (m Message) Bytes() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	ch := uint8(m.Channel)
	var msg gomidi.Message
	switch m.Type {
	case TypeNoteOn:
		msg = gomidi.NoteOn(ch, uint8(m.Note), uint8(m.Velocity))
	case TypeControlChange:
		msg = gomidi.ControlChange(ch, uint8(m.Control), uint8(m.Value))
	case TypePitchwheel:
		msg = gomidi.Pitchbend(ch, int16(m.Pitch))
	case TypeProgramChange:
		msg = gomidi.ProgramChange(ch, uint8(m.Program))
	case TypeAftertouch:
		msg = gomidi.AfterTouch(ch, uint8(m.Value))
	case TypePolytouch:
		msg = gomidi.PolyAfterTouch(ch, uint8(m.Note), uint8(m.Value))
	case TypeSongSelect:
		msg = gomidi.SongSelect(uint8(m.Song))
	case TypeSongPosition:
		msg = gomidi.SPP(uint16(m.Pos))
	}
	return []byte(msg), nil
}

// String renders the message the way the output log shows it.
func (m Message) String() string {
	switch m.Type {
	case TypeNoteOn:
		return fmt.Sprintf("note_on channel=%d note=%d velocity=%d", m.Channel, m.Note, m.Velocity)
	case TypeControlChange:
		return fmt.Sprintf("control_change channel=%d control=%d value=%d", m.Channel, m.Control, m.Value)
	case TypePitchwheel:
		return fmt.Sprintf("pitchwheel channel=%d pitch=%d", m.Channel, m.Pitch)
	case TypeProgramChange:
		return fmt.Sprintf("program_change channel=%d program=%d", m.Channel, m.Program)
	case TypeAftertouch:
		return fmt.Sprintf("aftertouch channel=%d value=%d", m.Channel, m.Value)
	case TypePolytouch:
		return fmt.Sprintf("polytouch channel=%d note=%d value=%d", m.Channel, m.Note, m.Value)
	case TypeSongSelect:
		return fmt.Sprintf("song_select song=%d", m.Song)
	case TypeSongPosition:
		return fmt.Sprintf("songpos pos=%d", m.Pos)
	default:
		return fmt.Sprintf("%s ?", m.Type)
	}
}
