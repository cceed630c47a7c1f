package harness

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/engine"
	"github.com/roach88/touchy/internal/store"
	"github.com/roach88/touchy/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a real engine with a manual clock and
// recording ports.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.ManualClock
	ports  *testutil.PortRegistry
	names  []string
	seen   map[string]int // lines already collected, per port
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store with factory rows.
// The manual clock and fixed session token make runs reproducible.
//
// Execution flow:
// 1. Build the store, engine and recording ports
// 2. Open the initial port
// 3. Execute setup steps, discarding their output
// 4. Execute flow steps, tracing output and checking expectations
// 5. Evaluate assertions
//
// Steps are processed synchronously on the caller's goroutine, the same
// way the Run loop would process them one at a time.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewManualClock()
	st := store.New(nil)
	st.Bind(binding.DefaultRows(clock)...)

	names := scenario.ports()
	ports := testutil.NewPortRegistry(names...)
	eng := engine.New(st,
		engine.WithClock(clock),
		engine.WithOpener(ports),
		engine.WithDomains(scenario.Domains),
		engine.WithDecay(scenario.Decay.Tick, scenario.Decay.Idle),
		engine.WithSession(testutil.NewFixedSessionGenerator(scenario.Session)),
	)
	defer eng.Close()

	h := &Harness{
		engine: eng,
		clock:  clock,
		ports:  ports,
		names:  names,
		seen:   make(map[string]int),
		logger: slog.Default().With("scenario", scenario.Name, "session", eng.Session()),
	}

	if p := scenario.initialPort(); p != "" {
		if err := eng.OpenPort(p); err != nil {
			return nil, fmt.Errorf("failed to open port: %w", err)
		}
	}

	for i, step := range scenario.Setup {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("failed to execute setup step %d (%s): %w", i, step.Kind(), err)
		}
	}
	h.collect()

	result := NewResult()
	for i, step := range scenario.Flow {
		ev := h.runStep(step)
		result.AddTrace(ev)
		checkStep(i, step, ev, result)

		h.logger.Debug("flow step completed",
			"step", i,
			"kind", ev.Step,
			"seq", ev.Seq,
			"messages", len(ev.Output),
		)
	}
	result.PortEvents = ports.Events()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{Store: st}) {
		result.AddError(msg)
	}
	return result, nil
}

// runStep executes one flow step and records what it did.
func (h *Harness) runStep(step Step) TraceEvent {
	ev := TraceEvent{Step: step.Kind(), Detail: describe(step)}
	if err := h.execute(step); err != nil {
		ev.Error = err.Error()
	}
	if ev.Step != StepAdvance {
		ev.Seq = h.engine.Seq()
	}
	ev.Output = h.collect()
	return ev
}

// execute applies one step to the engine.
func (h *Harness) execute(step Step) error {
	switch step.Kind() {
	case StepInput:
		return h.engine.Process(engine.Event{Type: engine.EventTypeInput, Input: step.Input})
	case StepEdit:
		return h.engine.Process(engine.Event{Type: engine.EventTypeEdit, Edit: step.Edit})
	case StepSelect:
		return h.engine.Process(engine.Event{Type: engine.EventTypeSelect, Select: step.Select})
	case StepSwitch:
		return h.engine.Process(engine.Event{Type: engine.EventTypeSwitch, Switch: step.Switch})
	case StepAllNotesOff:
		return h.engine.Process(engine.Event{Type: engine.EventTypeAllNotesOff})
	case StepOpenPort:
		return h.engine.Process(engine.Event{Type: engine.EventTypeOpenPort, Port: step.OpenPort})
	case StepAdvance:
		h.clock.Advance(step.Advance)
		return nil
	case StepTick:
		for i := range step.Tick {
			if i > 0 {
				h.clock.Advance(h.engine.Decay().Interval())
			}
			if err := h.engine.Process(engine.Event{Type: engine.EventTypeTick, Time: h.clock.Now()}); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("step has no single action")
	}
}

// collect returns the messages sent since the last call. With more than
// one port, each line is prefixed with its port name.
func (h *Harness) collect() []string {
	var out []string
	for _, name := range h.names {
		lines := h.ports.Port(name).Lines()
		for _, line := range lines[h.seen[name]:] {
			if len(h.names) > 1 {
				line = name + ": " + line
			}
			out = append(out, line)
		}
		h.seen[name] = len(lines)
	}
	return out
}

// checkStep compares a traced step against its expect and error clauses.
func checkStep(i int, step Step, ev TraceEvent, result *Result) {
	switch {
	case step.Error != "" && ev.Error == "":
		result.AddError(fmt.Sprintf("flow[%d] %s: expected error containing %q, got none", i, ev.Step, step.Error))
	case step.Error != "" && !strings.Contains(ev.Error, step.Error):
		result.AddError(fmt.Sprintf("flow[%d] %s: expected error containing %q, got %q", i, ev.Step, step.Error, ev.Error))
	case step.Error == "" && ev.Error != "":
		result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %s", i, ev.Step, ev.Error))
	}

	if step.Expect != nil && !slices.Equal(step.Expect, ev.Output) {
		result.AddError(fmt.Sprintf("flow[%d] %s %s: expected output %q, got %q", i, ev.Step, ev.Detail, step.Expect, ev.Output))
	}
}

// describe renders a step's payload for the trace.
func describe(step Step) string {
	switch step.Kind() {
	case StepInput:
		return step.Input.String()
	case StepEdit:
		e := step.Edit
		return fmt.Sprintf("%s[%d].%s=%s", e.Row, e.Position, e.Field, e.Value)
	case StepSelect:
		s := step.Select
		return fmt.Sprintf("%s.%s=%s", s.Row, s.Field, s.Value)
	case StepSwitch:
		return fmt.Sprintf("%s=%t", step.Switch.Name, step.Switch.On)
	case StepOpenPort:
		return step.OpenPort
	case StepAdvance:
		return step.Advance.String()
	case StepTick:
		return strconv.Itoa(step.Tick)
	default:
		return ""
	}
}
