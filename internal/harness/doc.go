// Package harness runs YAML test scenarios against the touchy engine.
//
// A scenario names its recording ports, screen domains and decay timing,
// sets up rules with ordinary edit and select steps, then runs a flow of
// steps (input samples, edits, switches, clock advances and decay ticks).
// Each flow step is traced with the engine sequence number and the MIDI
// messages it sent, so a scenario can state exactly what each step should
// send and the whole trace can be pinned with a golden file.
//
// Scenarios run synchronously against a real engine: a fresh in-memory
// store with the factory rows, a manual clock and a fixed session token.
// Running the same scenario twice yields the same trace.
//
// # Scenario format
//
//	name: wheel_pull_back
//	description: A stepped value decays back to zero
//	setup:
//	  - edit: {row: wheel, position: 1, field: enabled, value: "true"}
//	  - edit: {row: wheel, position: 1, field: value, value: "80"}
//	  - edit: {row: wheel, position: 1, field: pull_back, value: "true"}
//	flow:
//	  - advance: 2s
//	  - tick: 1
//	    expect: ["pitchwheel channel=0 pitch=0"]
//	assertions:
//	  - type: final_rule
//	    row: wheel
//	    position: 1
//	    expect: {value: "0"}
//
// Golden files live in testdata/golden/<name>.golden and are compared with
// goldie; run the tests with -update to regenerate them.
package harness
