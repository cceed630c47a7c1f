package harness

// TraceEvent records one flow step and what it produced.
type TraceEvent struct {
	// Seq is the engine sequence after the step. Steps that do not reach
	// the engine (advance) carry zero.
	Seq int64 `json:"seq"`

	// Step is the step kind: input, edit, select, switch, tick, advance,
	// all_notes_off or open_port.
	Step string `json:"step"`

	// Detail renders the step's payload, e.g. "tablet[0].enabled=true".
	Detail string `json:"detail,omitempty"`

	// Output holds the messages sent while the step ran, in order.
	Output []string `json:"output,omitempty"`

	// Error is the step's processing error, if any.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// PortEvents is the ordered open/close log of the scenario's ports.
	PortEvents []string `json:"port_events,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Output returns every message sent during the flow, in order.
func (r *Result) Output() []string {
	var out []string
	for _, ev := range r.Trace {
		out = append(out, ev.Output...)
	}
	return out
}
