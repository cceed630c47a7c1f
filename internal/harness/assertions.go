package harness

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, event.Step, event.Detail)
			for _, line := range event.Output {
				fmt.Fprintf(&buf, "      -> %s\n", line)
			}
		}
	}

	return buf.String()
}

// assertOutputContains checks the message was sent at least once.
func assertOutputContains(result *Result, assertion Assertion) error {
	if slices.Contains(result.Output(), assertion.Message) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputContains,
		Expected: fmt.Sprintf("message %q", assertion.Message),
		Actual:   "not found in output",
		Trace:    result.Trace,
	}
}

// assertOutputOrder checks messages appear in the specified order.
// Messages don't need to be consecutive (intervening messages are allowed).
func assertOutputOrder(result *Result, assertion Assertion) error {
	output := result.Output()
	at := 0
	for _, want := range assertion.Messages {
		i := slices.Index(output[at:], want)
		if i < 0 {
			actual := fmt.Sprintf("missing message: %s", want)
			if slices.Contains(output, want) {
				actual = fmt.Sprintf("%s sent out of order", want)
			}
			return &AssertionError{
				Type:     AssertOutputOrder,
				Expected: fmt.Sprintf("messages in order: %q", assertion.Messages),
				Actual:   actual,
				Trace:    result.Trace,
			}
		}
		at += i + 1
	}
	return nil
}

// assertOutputCount checks the message was sent exactly Count times.
func assertOutputCount(result *Result, assertion Assertion) error {
	count := 0
	for _, line := range result.Output() {
		if line == assertion.Message {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOutputCount,
			Expected: fmt.Sprintf("%d occurrences of %q", assertion.Count, assertion.Message),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalRule checks the stored fields of one rule, under the row's
// current key, using subset semantics.
func assertFinalRule(st *store.Store, assertion Assertion) error {
	row, ok := st.Row(assertion.Row)
	if !ok {
		return fmt.Errorf("final_rule: unknown row %q", assertion.Row)
	}
	key, ok := row.Key()
	if !ok {
		return &AssertionError{
			Type:     AssertFinalRule,
			Expected: fmt.Sprintf("row %s to have a complete key", assertion.Row),
			Actual:   "selector incomplete",
		}
	}
	snaps, ok := st.Lookup(key)
	if !ok || assertion.Position < 0 || assertion.Position >= len(snaps) {
		return &AssertionError{
			Type:     AssertFinalRule,
			Expected: fmt.Sprintf("saved rule %s[%d] under %s", assertion.Row, assertion.Position, key),
			Actual:   "rule not found",
		}
	}

	actual := SnapshotFields(snaps[assertion.Position])
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		want := assertion.Expect[field]
		got, exists := actual[field]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalRule,
				Expected: fmt.Sprintf("field %q to exist", field),
				Actual:   fmt.Sprintf("rule %s[%d] has no field %q", assertion.Row, assertion.Position, field),
			}
		}
		if got != want {
			return &AssertionError{
				Type:     AssertFinalRule,
				Expected: fmt.Sprintf("%s[%d].%s = %s", assertion.Row, assertion.Position, field, want),
				Actual:   fmt.Sprintf("%s[%d].%s = %s", assertion.Row, assertion.Position, field, got),
			}
		}
	}
	return nil
}

// assertPortEvents checks the exact open/close log.
func assertPortEvents(result *Result, assertion Assertion) error {
	if slices.Equal(result.PortEvents, assertion.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPortEvents,
		Expected: fmt.Sprintf("%q", assertion.Events),
		Actual:   fmt.Sprintf("%q", result.PortEvents),
	}
}

// SnapshotFields renders the editable fields of s in the textual form
// edits use. Absent pointer fields render as "".
func SnapshotFields(s ir.Snapshot) map[string]string {
	intText := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}

	fields := map[string]string{
		binding.FieldEnabled.String():     strconv.FormatBool(s.Enabled),
		binding.FieldChannel.String():     intText(s.Channel),
		binding.FieldMessageType.String(): string(s.MessageType),
		binding.FieldControlType.String(): s.ControlType,
		binding.FieldRangeFrom.String():   intText(s.RangeFrom),
		binding.FieldRangeTo.String():     intText(s.RangeTo),
		binding.FieldAxis.String():        string(s.Axis),
	}
	if s.Kind() == ir.KindStepped {
		fields[binding.FieldStep.String()] = intText(s.Step)
		fields[binding.FieldValue.String()] = strconv.Itoa(s.Value)
		fields[binding.FieldPullBack.String()] = strconv.FormatBool(s.PullBack)
	} else {
		threshold := ""
		if s.Threshold != nil {
			threshold = strconv.FormatFloat(*s.Threshold, 'g', -1, 64)
		}
		fields[binding.FieldThreshold.String()] = threshold
	}
	return fields
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for final_rule assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutputContains:
			err = assertOutputContains(result, assertion)
		case AssertOutputOrder:
			err = assertOutputOrder(result, assertion)
		case AssertOutputCount:
			err = assertOutputCount(result, assertion)
		case AssertFinalRule:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_rule requires store context", i)
			} else {
				err = assertFinalRule(actx.Store, assertion)
			}
		case AssertPortEvents:
			err = assertPortEvents(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
