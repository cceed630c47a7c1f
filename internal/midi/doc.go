// Package midi is touchy's protocol surface: the outbound messages the
// resolver builds, their wire encoding, output ports and log sinks.
//
// Messages are plain values with mido-style String forms
// ("note_on channel=0 note=60 velocity=64"), which is what the output log
// and scenario traces record. Bytes validates the protocol ranges and
// encodes through gitlab.com/gomidi/midi/v2.
//
// Ranges enforced by Validate:
//
//	channel        0..15
//	note, velocity 0..127
//	control, value 0..127
//	program, song  0..127
//	pitch          -8192..8191
//	song position  0..16383
package midi
