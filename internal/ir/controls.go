package ir

// Control names of the standard MIDI 1.0 controller numbers, in numeric
// order. Undefined and LSB-duplicate numbers are omitted.
var ControlNames = []string{
	"Bank Select",
	"Modulation Wheel",
	"Breath Controller",
	"Foot Controller",
	"Portamento Time",
	"Data Entry MSB",
	"Channel Volume",
	"Balance",
	"Pan",
	"Expression Controller",
	"Effect Control 1",
	"Effect Control 2",
	"General Purpose Controller 1",
	"General Purpose Controller 2",
	"General Purpose Controller 3",
	"General Purpose Controller 4",
	"Damper Pedal",
	"Portamento On/Off",
	"Sostenuto",
	"Soft Pedal",
	"Legato Footswitch",
	"Hold 2",
	"Sound Variation",
	"Timbre/Harmonic Intensity",
	"Release Time",
	"Attack Time",
	"Brightness",
	"Decay Time",
	"Vibrato Rate",
	"Vibrato Depth",
	"Vibrato Delay",
	"Sound Controller 10",
	"General Purpose Controller 5",
	"General Purpose Controller 6",
	"General Purpose Controller 7",
	"General Purpose Controller 8",
	"Portamento Control",
	"Reverb Send Level",
	"Tremolo Depth",
	"Chorus Send Level",
	"Celeste Depth",
	"Phaser Depth",
	"Data Increment",
	"Data Decrement",
	"NRPN LSB",
	"NRPN MSB",
	"RPN LSB",
	"RPN MSB",
	"All Sound Off",
	"Reset All Controllers",
	"Local Control On/Off",
	"All Notes Off",
	"Omni Mode Off",
	"Omni Mode On",
	"Mono Mode On",
	"Poly Mode On",
}

// ControlCodes maps control names to CC numbers.
var ControlCodes = map[string]int{
	"Bank Select":                  0,
	"Modulation Wheel":             1,
	"Breath Controller":            2,
	"Foot Controller":              4,
	"Portamento Time":              5,
	"Data Entry MSB":               6,
	"Channel Volume":               7,
	"Balance":                      8,
	"Pan":                          10,
	"Expression Controller":        11,
	"Effect Control 1":             12,
	"Effect Control 2":             13,
	"General Purpose Controller 1": 16,
	"General Purpose Controller 2": 17,
	"General Purpose Controller 3": 18,
	"General Purpose Controller 4": 19,
	"Damper Pedal":                 64,
	"Portamento On/Off":            65,
	"Sostenuto":                    66,
	"Soft Pedal":                   67,
	"Legato Footswitch":            68,
	"Hold 2":                       69,
	"Sound Variation":              70,
	"Timbre/Harmonic Intensity":    71,
	"Release Time":                 72,
	"Attack Time":                  73,
	"Brightness":                   74,
	"Decay Time":                   75,
	"Vibrato Rate":                 76,
	"Vibrato Depth":                77,
	"Vibrato Delay":                78,
	"Sound Controller 10":          79,
	"General Purpose Controller 5": 80,
	"General Purpose Controller 6": 81,
	"General Purpose Controller 7": 82,
	"General Purpose Controller 8": 83,
	"Portamento Control":           84,
	"Reverb Send Level":            91,
	"Tremolo Depth":                92,
	"Chorus Send Level":            93,
	"Celeste Depth":                94,
	"Phaser Depth":                 95,
	"Data Increment":               96,
	"Data Decrement":               97,
	"NRPN LSB":                     98,
	"NRPN MSB":                     99,
	"RPN LSB":                      100,
	"RPN MSB":                      101,
	"All Sound Off":                120,
	"Reset All Controllers":        121,
	"Local Control On/Off":         122,
	"All Notes Off":                123,
	"Omni Mode Off":                124,
	"Omni Mode On":                 125,
	"Mono Mode On":                 126,
	"Poly Mode On":                 127,
}

// Named controls referenced by code.
const (
	ControlBankSelect  = "Bank Select"
	ControlAllNotesOff = "All Notes Off"
)

// LookupControl returns the CC number for a control name.
func LookupControl(name string) (int, bool) {
	cc, ok := ControlCodes[name]
	return cc, ok
}
