package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/touchy/internal/engine"
)

// DefaultPort is the recording port scenarios get when they name none.
const DefaultPort = "out"

// Scenario defines a conformance test scenario.
// Scenarios drive a fresh engine through a flow of input and edit steps
// and assert on the MIDI output and the final rule values.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden
	// file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the session token the engine logs with.
	// If empty, defaults to "test-session".
	Session string `yaml:"session,omitempty"`

	// Ports lists the recording output ports that exist. Defaults to
	// [DefaultPort].
	Ports []string `yaml:"ports,omitempty"`

	// Port is opened before setup. Defaults to the first of Ports; "none"
	// starts with no port open.
	Port string `yaml:"port,omitempty"`

	// Domains are the screen domains for axes an input does not describe.
	Domains engine.Domains `yaml:"domains,omitempty"`

	// Decay overrides the pull-back tick interval and idle window.
	Decay Decay `yaml:"decay,omitempty"`

	// Setup establishes rules and selectors before the flow. Setup steps
	// must succeed; their output is discarded and they are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the traced part of the scenario.
	Flow []Step `yaml:"flow"`

	// Assertions validate the output and final state after the flow.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Decay configures the pull-back scheduler. Zero fields take the engine
// defaults.
type Decay struct {
	Tick time.Duration `yaml:"tick,omitempty"`
	Idle time.Duration `yaml:"idle,omitempty"`
}

// Step is one scenario step. Exactly one action field is set.
type Step struct {
	Input       *engine.Input        `yaml:"input,omitempty"`
	Edit        *engine.Edit         `yaml:"edit,omitempty"`
	Select      *engine.Selection    `yaml:"select,omitempty"`
	Switch      *engine.SwitchChange `yaml:"switch,omitempty"`
	AllNotesOff bool                 `yaml:"all_notes_off,omitempty"`
	OpenPort    string               `yaml:"open_port,omitempty"`

	// Advance moves the manual clock forward.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Tick delivers this many decay ticks, one tick interval apart. The
	// first fires at the current time.
	Tick int `yaml:"tick,omitempty"`

	// Expect, when present, is the exact list of messages the step must
	// send. An empty list asserts silence.
	Expect []string `yaml:"expect,omitempty"`

	// Error, when set, is a substring the step's error must contain.
	// Without it the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Kind names the step's action.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var kinds []string
	if s.Input != nil {
		kinds = append(kinds, StepInput)
	}
	if s.Edit != nil {
		kinds = append(kinds, StepEdit)
	}
	if s.Select != nil {
		kinds = append(kinds, StepSelect)
	}
	if s.Switch != nil {
		kinds = append(kinds, StepSwitch)
	}
	if s.AllNotesOff {
		kinds = append(kinds, StepAllNotesOff)
	}
	if s.OpenPort != "" {
		kinds = append(kinds, StepOpenPort)
	}
	if s.Advance != 0 {
		kinds = append(kinds, StepAdvance)
	}
	if s.Tick != 0 {
		kinds = append(kinds, StepTick)
	}
	return kinds
}

// Step kinds.
const (
	StepInput       = "input"
	StepEdit        = "edit"
	StepSelect      = "select"
	StepSwitch      = "switch"
	StepAllNotesOff = "all_notes_off"
	StepOpenPort    = "open_port"
	StepAdvance     = "advance"
	StepTick        = "tick"
)

// Assertion validates the output or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_contains": Check a message was sent
	// - "output_order": Check messages were sent in order
	// - "output_count": Check a message was sent exactly N times
	// - "final_rule": Check the saved fields of one rule
	// - "port_events": Check the exact open/close log
	Type string `yaml:"type"`

	// Message is the message line (used by output_contains, output_count).
	Message string `yaml:"message,omitempty"`

	// Messages is the expected message order (used by output_order).
	Messages []string `yaml:"messages,omitempty"`

	// Count is the expected number of occurrences (used by output_count).
	Count int `yaml:"count,omitempty"`

	// Row and Position pick the rule (used by final_rule). The rule is
	// read from the store under the row's current key.
	Row      string `yaml:"row,omitempty"`
	Position int    `yaml:"position,omitempty"`

	// Expect contains expected field values in their textual form (used
	// by final_rule). Subset match.
	Expect map[string]string `yaml:"expect,omitempty"`

	// Events is the expected port log (used by port_events).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains = "output_contains"
	AssertOutputOrder    = "output_order"
	AssertOutputCount    = "output_count"
	AssertFinalRule      = "final_rule"
	AssertPortEvents     = "port_events"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	ports := s.ports()
	if s.Port != "" && s.Port != "none" && !slices.Contains(ports, s.Port) {
		return fmt.Errorf("port %q is not in ports %v", s.Port, ports)
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil || step.Error != "" {
			return fmt.Errorf("setup[%d]: setup steps take no expect or error", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	kinds := step.kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("step has no action")
	case 1:
	default:
		return fmt.Errorf("step has more than one action: %v", kinds)
	}
	if step.Advance < 0 {
		return fmt.Errorf("advance must be positive")
	}
	if step.Tick < 0 {
		return fmt.Errorf("tick count must be positive")
	}
	if step.Input != nil {
		if err := step.Input.Validate(); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for output_contains", index)
		}
	case AssertOutputOrder:
		if len(a.Messages) == 0 {
			return fmt.Errorf("assertions[%d]: messages list is required for output_order", index)
		}
	case AssertOutputCount:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for output_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for output_count", index)
		}
	case AssertFinalRule:
		if a.Row == "" {
			return fmt.Errorf("assertions[%d]: row is required for final_rule", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_rule", index)
		}
	case AssertPortEvents:
		if a.Events == nil {
			return fmt.Errorf("assertions[%d]: events is required for port_events", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// ports returns the scenario's port names with the default applied.
func (s *Scenario) ports() []string {
	if len(s.Ports) == 0 {
		return []string{DefaultPort}
	}
	return s.Ports
}

// initialPort returns the port opened before setup, or "".
func (s *Scenario) initialPort() string {
	switch s.Port {
	case "none":
		return ""
	case "":
		return s.ports()[0]
	default:
		return s.Port
	}
}
