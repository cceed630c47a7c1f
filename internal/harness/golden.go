package harness

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a result's trace as the text stored in golden
// files: one line per flow step (sequence, kind, detail), the messages it
// sent and its error, then the port log.
//
//	# pen_note_velocity
//	  5 input tablet Wacom Intuos/Pressure Stylus button=1 x=64 z=0.5
//	    -> note_on channel=0 note=64 velocity=63
//	  - advance 2s
//	ports: open out
func FormatTrace(scenarioName string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", scenarioName)

	for _, ev := range result.Trace {
		seq := "-"
		if ev.Step != StepAdvance {
			seq = strconv.FormatInt(ev.Seq, 10)
		}
		fmt.Fprintf(&b, "%3s %s", seq, ev.Step)
		if ev.Detail != "" {
			fmt.Fprintf(&b, " %s", ev.Detail)
		}
		b.WriteString("\n")
		for _, line := range ev.Output {
			fmt.Fprintf(&b, "    -> %s\n", line)
		}
		if ev.Error != "" {
			fmt.Fprintf(&b, "    !! %s\n", ev.Error)
		}
	}

	if len(result.PortEvents) > 0 {
		fmt.Fprintf(&b, "ports: %s\n", strings.Join(result.PortEvents, ", "))
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result))
}
