package engine

import "fmt"

// Switches are the global on/off toggles.
type Switches struct {
	// MIDIOutput is the master output switch. Off, nothing new is sent;
	// messages already sent are not recalled.
	MIDIOutput bool `json:"midi_output" yaml:"midi_output"`
	// LogOutput mirrors every sent message to the sink.
	LogOutput bool `json:"log_output" yaml:"log_output"`
	// LogInput mirrors every accepted input event to the sink.
	LogInput bool `json:"log_input" yaml:"log_input"`
	// Tablet and Mouse gate input by source.
	Tablet bool `json:"tablet" yaml:"tablet"`
	Mouse  bool `json:"mouse" yaml:"mouse"`
}

// Switch names.
const (
	SwitchMIDIOutput = "midi_output"
	SwitchLogOutput  = "log_output"
	SwitchLogInput   = "log_input"
	SwitchTablet     = "tablet"
	SwitchMouse      = "mouse"
)

// SwitchNames lists every switch.
var SwitchNames = []string{SwitchMIDIOutput, SwitchLogOutput, SwitchLogInput, SwitchTablet, SwitchMouse}

// DefaultSwitches has output and both sources on, logging off.
func DefaultSwitches() Switches {
	return Switches{MIDIOutput: true, Tablet: true, Mouse: true}
}

// Set flips the named switch.
func (s *Switches) Set(name string, on bool) error {
	switch name {
	case SwitchMIDIOutput:
		s.MIDIOutput = on
	case SwitchLogOutput:
		s.LogOutput = on
	case SwitchLogInput:
		s.LogInput = on
	case SwitchTablet:
		s.Tablet = on
	case SwitchMouse:
		s.Mouse = on
	default:
		return fmt.Errorf("unknown switch %q (want one of %v)", name, SwitchNames)
	}
	return nil
}

// Get reads the named switch.
func (s Switches) Get(name string) (bool, error) {
	switch name {
	case SwitchMIDIOutput:
		return s.MIDIOutput, nil
	case SwitchLogOutput:
		return s.LogOutput, nil
	case SwitchLogInput:
		return s.LogInput, nil
	case SwitchTablet:
		return s.Tablet, nil
	case SwitchMouse:
		return s.Mouse, nil
	default:
		return false, fmt.Errorf("unknown switch %q", name)
	}
}
