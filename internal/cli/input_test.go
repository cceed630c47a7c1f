package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/engine"
	"github.com/roach88/touchy/internal/ir"
)

func TestParseLine_Input(t *testing.T) {
	ev, err := ParseLine([]byte(`{"kind":"tablet","source":"Wacom","cursor":"Pen","button":"1","values":{"x":64,"z":0.5},"domains":{"x":[0,127]}}`))
	require.NoError(t, err)

	assert.Equal(t, engine.EventTypeInput, ev.Type)
	require.NotNil(t, ev.Input)
	assert.Equal(t, engine.Input{
		Kind:    engine.InputTablet,
		Source:  "Wacom",
		Cursor:  "Pen",
		Button:  "1",
		Values:  map[ir.Axis]float64{ir.AxisX: 64, ir.AxisZ: 0.5},
		Domains: engine.Domains{ir.AxisX: {0, 127}},
	}, *ev.Input)
}

func TestParseLine_Relative(t *testing.T) {
	ev, err := ParseLine([]byte(`{"kind":"motion","relative":true,"values":{"x":-3}}`))
	require.NoError(t, err)
	assert.True(t, ev.Input.Relative)
	assert.Equal(t, -3.0, ev.Input.Values[ir.AxisX])
}

func TestParseLine_Control(t *testing.T) {
	tests := []struct {
		name string
		line string
		want engine.Event
	}{
		{
			name: "edit",
			line: `{"kind":"edit","edit":{"row":"mouse","position":1,"field":"enabled","value":"true"}}`,
			want: engine.Event{Type: engine.EventTypeEdit, Edit: &engine.Edit{Row: "mouse", Position: 1, Field: "enabled", Value: "true"}},
		},
		{
			name: "select",
			line: `{"kind":"select","select":{"row":"tablet","field":"cursor","value":"Pen"}}`,
			want: engine.Event{Type: engine.EventTypeSelect, Select: &engine.Selection{Row: "tablet", Field: "cursor", Value: "Pen"}},
		},
		{
			name: "switch",
			line: `{"kind":"switch","switch":{"name":"midi_output","on":false}}`,
			want: engine.Event{Type: engine.EventTypeSwitch, Switch: &engine.SwitchChange{Name: "midi_output", On: false}},
		},
		{
			name: "all notes off",
			line: `{"kind":"all_notes_off"}`,
			want: engine.Event{Type: engine.EventTypeAllNotesOff},
		},
		{
			name: "open port",
			line: `{"kind":"open_port","port":"IAC Driver Bus 1"}`,
			want: engine.Event{Type: engine.EventTypeOpenPort, Port: "IAC Driver Bus 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseLine([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestParseLine_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{"not json", `motion x=1`, "decode line"},
		{"unknown field", `{"kind":"motion","pressure":1}`, "unknown field"},
		{"unknown kind", `{"kind":"hover"}`, `unknown input kind "hover"`},
		{"unknown axis", `{"kind":"motion","values":{"w":1}}`, `unknown axis "w"`},
		{"tablet without cursor", `{"kind":"tablet","source":"Wacom"}`, "needs source and cursor"},
		{"edit without payload", `{"kind":"edit"}`, "needs an edit object"},
		{"select without payload", `{"kind":"select"}`, "needs a select object"},
		{"switch without payload", `{"kind":"switch"}`, "needs a switch object"},
		{"open port without name", `{"kind":"open_port"}`, "needs a port name"},
		{"input with control fields", `{"kind":"motion","port":"out"}`, "motion line carries control fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine([]byte(tt.line))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// queueRecorder collects enqueued events and can refuse after a limit.
type queueRecorder struct {
	events []engine.Event
	limit  int
}

func (q *queueRecorder) Enqueue(ev engine.Event) bool {
	if q.limit > 0 && len(q.events) >= q.limit {
		return false
	}
	q.events = append(q.events, ev)
	return true
}

func TestReadInput(t *testing.T) {
	input := strings.Join([]string{
		`# warm up`,
		`{"kind":"press","button":"1"}`,
		``,
		`{"kind":"motion","button":"1","values":{"x":20}}`,
		`not a line`,
		`  {"kind":"release","button":"1"}  `,
		`{"kind":"all_notes_off"}`,
	}, "\n")

	q := &queueRecorder{}
	n, err := ReadInput(strings.NewReader(input), q)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.Len(t, q.events, 4)
	assert.Equal(t, engine.InputPress, q.events[0].Input.Kind)
	assert.Equal(t, engine.InputMotion, q.events[1].Input.Kind)
	assert.Equal(t, engine.InputRelease, q.events[2].Input.Kind)
	assert.Equal(t, engine.EventTypeAllNotesOff, q.events[3].Type)
}

func TestReadInput_StopsWhenQueueCloses(t *testing.T) {
	input := strings.Repeat(`{"kind":"scroll","values":{"y":1}}`+"\n", 5)

	q := &queueRecorder{limit: 2}
	n, err := ReadInput(strings.NewReader(input), q)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
