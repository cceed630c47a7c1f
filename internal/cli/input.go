package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/touchy/internal/engine"
)

// Control line kinds. Any other kind is an engine.InputKind.
const (
	LineEdit        = "edit"
	LineSelect      = "select"
	LineSwitch      = "switch"
	LineAllNotesOff = "all_notes_off"
	LineOpenPort    = "open_port"
)

// Line is one NDJSON record on the run command's input stream.
//
// Pointer samples use the engine.Input fields directly:
//
//	{"kind":"motion","button":"1","values":{"x":640,"y":200}}
//	{"kind":"tablet","source":"Wacom","cursor":"Pen","button":"1","values":{"z":0.4}}
//
// Control lines carry their payload in a field named after the kind:
//
//	{"kind":"edit","edit":{"row":"mouse","position":0,"field":"enabled","value":"true"}}
//	{"kind":"switch","switch":{"name":"midi_output","on":false}}
//	{"kind":"open_port","port":"IAC Driver Bus 1"}
//	{"kind":"all_notes_off"}
type Line struct {
	engine.Input
	Edit   *engine.Edit         `json:"edit,omitempty"`
	Select *engine.Selection    `json:"select,omitempty"`
	Switch *engine.SwitchChange `json:"switch,omitempty"`
	Port   string               `json:"port,omitempty"`
}

// ParseLine decodes one input line into an engine event.
func ParseLine(data []byte) (engine.Event, error) {
	var l Line
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		return engine.Event{}, fmt.Errorf("decode line: %w", err)
	}

	switch string(l.Kind) {
	case LineEdit:
		if l.Edit == nil {
			return engine.Event{}, errors.New("edit line needs an edit object")
		}
		return engine.Event{Type: engine.EventTypeEdit, Edit: l.Edit}, nil
	case LineSelect:
		if l.Select == nil {
			return engine.Event{}, errors.New("select line needs a select object")
		}
		return engine.Event{Type: engine.EventTypeSelect, Select: l.Select}, nil
	case LineSwitch:
		if l.Switch == nil {
			return engine.Event{}, errors.New("switch line needs a switch object")
		}
		return engine.Event{Type: engine.EventTypeSwitch, Switch: l.Switch}, nil
	case LineAllNotesOff:
		return engine.Event{Type: engine.EventTypeAllNotesOff}, nil
	case LineOpenPort:
		if l.Port == "" {
			return engine.Event{}, errors.New("open_port line needs a port name")
		}
		return engine.Event{Type: engine.EventTypeOpenPort, Port: l.Port}, nil
	}

	if l.Edit != nil || l.Select != nil || l.Switch != nil || l.Port != "" {
		return engine.Event{}, fmt.Errorf("%s line carries control fields", l.Kind)
	}
	in := l.Input
	if err := in.Validate(); err != nil {
		return engine.Event{}, err
	}
	return engine.Event{Type: engine.EventTypeInput, Input: &in}, nil
}

// Enqueuer accepts events for the engine loop.
type Enqueuer interface {
	Enqueue(ev engine.Event) bool
}

// ReadInput feeds the lines of r to q until r ends or q stops accepting
// events. Blank lines and lines starting with '#' are skipped; malformed
// lines are logged and skipped. It returns the number of events enqueued.
func ReadInput(r io.Reader, q Enqueuer) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo, n := 0, 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		ev, err := ParseLine(line)
		if err != nil {
			slog.Warn("skipping input line", "line", lineNo, "error", err)
			continue
		}
		if !q.Enqueue(ev) {
			return n, nil
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}
