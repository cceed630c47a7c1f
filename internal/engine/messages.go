package engine

import (
	"fmt"

	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/midi"
)

// messageFor builds the message a rule sends for value.
//
// Velocity rules never send on their own; they only ride along with a
// note. The snapshot must be valid.
func messageFor(s ir.Snapshot, value int) (midi.Message, bool, error) {
	ch := *s.Channel
	switch s.MessageType {
	case ir.MessageNote:
		return midi.NoteOn(ch, value, midi.DefaultVelocity), true, nil
	case ir.MessageVelocity:
		return midi.Message{}, false, nil
	case ir.MessagePitch:
		return midi.Pitchwheel(ch, value), true, nil
	case ir.MessageControl:
		cc, ok := s.ControlNumber()
		if !ok {
			return midi.Message{}, false, fmt.Errorf("unknown control %q", s.ControlType)
		}
		return midi.ControlChange(ch, cc, value), true, nil
	case ir.MessageProgram:
		return midi.ProgramChange(ch, value), true, nil
	case ir.MessageAftertouch:
		return midi.Aftertouch(ch, value), true, nil
	case ir.MessagePolytouch:
		return midi.Polytouch(ch, value), true, nil
	case ir.MessageSongSelect:
		return midi.SongSelect(value), true, nil
	case ir.MessageSongPosition:
		return midi.SongPosition(value), true, nil
	default:
		return midi.Message{}, false, fmt.Errorf("unknown message type %q", s.MessageType)
	}
}

// allNotesOff returns CC 123 for every channel.
func allNotesOff() []midi.Message {
	cc := ir.ControlCodes[ir.ControlAllNotesOff]
	msgs := make([]midi.Message, 16)
	for ch := range msgs {
		msgs[ch] = midi.ControlChange(ch, cc, 0)
	}
	return msgs
}
