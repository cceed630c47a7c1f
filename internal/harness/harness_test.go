package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/engine"
	"github.com/roach88/touchy/internal/ir"
)

func mouseSetup() []Step {
	return []Step{
		{Select: &engine.Selection{Row: "mouse", Field: "button", Value: "1"}},
		{Edit: &engine.Edit{Row: "mouse", Position: 0, Field: "threshold", Value: "0"}},
		{Edit: &engine.Edit{Row: "mouse", Position: 0, Field: "enabled", Value: "true"}},
	}
}

func motion(x float64) *engine.Input {
	return &engine.Input{Kind: engine.InputMotion, Button: "1", Values: map[ir.Axis]float64{ir.AxisX: x}}
}

func TestRun_TracesOutputPerStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "trace",
		Description: "Each step carries the messages it sent",
		Domains:     engine.Domains{ir.AxisX: {0, 127}},
		Setup:       mouseSetup(),
		Flow: []Step{
			{Input: motion(20)},
			{Input: motion(20)},
			{Input: motion(0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{
		Seq:    4,
		Step:   StepInput,
		Detail: "motion button=1 x=20",
		Output: []string{"control_change channel=0 control=0 value=20"},
	}, result.Trace[0])
	assert.Equal(t, []string{"control_change channel=0 control=0 value=20"}, result.Trace[1].Output)
	assert.Empty(t, result.Trace[2].Output, "zero values are not sent")
	assert.Equal(t, []string{
		"control_change channel=0 control=0 value=20",
		"control_change channel=0 control=0 value=20",
	}, result.Output())
}

func TestRun_SetupOutputIsDiscarded(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup_output",
		Description: "Setting a stepped value sends it, but not into the trace",
		Setup: []Step{
			{Edit: &engine.Edit{Row: "wheel", Position: 1, Field: "enabled", Value: "true"}},
			{Edit: &engine.Edit{Row: "wheel", Position: 1, Field: "value", Value: "300"}},
		},
		Flow: []Step{
			{Edit: &engine.Edit{Row: "wheel", Position: 1, Field: "value", Value: "400"}, Expect: []string{"pitchwheel channel=0 pitch=400"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"pitchwheel channel=0 pitch=400"}, result.Output())
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "A failing setup step is an execution error",
		Setup: []Step{
			{Edit: &engine.Edit{Row: "joystick", Position: 0, Field: "enabled", Value: "true"}},
		},
		Flow: []Step{{Tick: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 0 (edit)")
	assert.Contains(t, err.Error(), `unknown row "joystick"`)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "A wrong expectation marks the result failed",
		Domains:     engine.Domains{ir.AxisX: {0, 127}},
		Setup:       mouseSetup(),
		Flow: []Step{
			{Input: motion(20), Expect: []string{"control_change channel=0 control=0 value=21"}},
			{Input: motion(30), Expect: []string{}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "flow[0] input motion button=1 x=20")
	assert.Contains(t, result.Errors[1], "flow[1]")
}

func TestRun_StepErrors(t *testing.T) {
	scenario := &Scenario{
		Name:        "errors",
		Description: "Error clauses must match; unexpected errors fail",
		Flow: []Step{
			{Switch: &engine.SwitchChange{Name: "volume", On: true}, Error: "unknown switch"},
			{Switch: &engine.SwitchChange{Name: "volume", On: true}},
			{Switch: &engine.SwitchChange{Name: "mouse", On: false}, Error: "unknown switch"},
			{OpenPort: "missing", Error: "permission denied"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "flow[1] switch: unexpected error")
	assert.Contains(t, result.Errors[1], "flow[2] switch: expected error containing \"unknown switch\", got none")
	assert.Contains(t, result.Errors[2], "flow[3] open_port: expected error containing \"permission denied\"")
	assert.Contains(t, result.Trace[3].Error, "no such port")
}

func TestRun_NoInitialPort(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_port",
		Description: "Messages are dropped until a port is opened",
		Port:        "none",
		Domains:     engine.Domains{ir.AxisX: {0, 127}},
		Setup:       mouseSetup(),
		Flow: []Step{
			{Input: motion(20), Expect: []string{}},
			{OpenPort: DefaultPort},
			{Input: motion(30), Expect: []string{"control_change channel=0 control=0 value=30"}},
		},
		Assertions: []Assertion{
			{Type: AssertPortEvents, Events: []string{"open out"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_AdvanceAndTick(t *testing.T) {
	scenario := &Scenario{
		Name:        "decay",
		Description: "Ticks are spaced one interval apart after the idle window",
		Decay:       Decay{Idle: 1e9},
		Setup: []Step{
			{Edit: &engine.Edit{Row: "wheel", Position: 0, Field: "enabled", Value: "true"}},
			{Edit: &engine.Edit{Row: "wheel", Position: 0, Field: "value", Value: "250"}},
			{Edit: &engine.Edit{Row: "wheel", Position: 0, Field: "pull_back", Value: "true"}},
		},
		Flow: []Step{
			{Advance: 1e9},
			{Tick: 4},
		},
		Assertions: []Assertion{
			{Type: AssertFinalRule, Row: "wheel", Position: 0, Expect: map[string]string{"value": "0", "pull_back": "true"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, int64(0), result.Trace[0].Seq, "advance does not reach the engine")
	assert.Equal(t, int64(7), result.Trace[1].Seq)
	assert.Equal(t, []string{
		"pitchwheel channel=0 pitch=150",
		"pitchwheel channel=0 pitch=50",
		"pitchwheel channel=0 pitch=0",
	}, result.Trace[1].Output)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/wheel_pull_back.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, FormatTrace(scenario.Name, first), FormatTrace(scenario.Name, second))
}
