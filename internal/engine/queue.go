package engine

import (
	"sync"
	"time"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeInput carries one raw input sample or button transition.
	EventTypeInput EventType = iota + 1
	// EventTypeTick advances the decay scheduler.
	EventTypeTick
	// EventTypeEdit changes one field of a rule.
	EventTypeEdit
	// EventTypeSelect changes one field of a row's key selector.
	EventTypeSelect
	// EventTypeSwitch flips one of the global switches.
	EventTypeSwitch
	// EventTypeAllNotesOff silences every channel.
	EventTypeAllNotesOff
	// EventTypeOpenPort replaces the output port.
	EventTypeOpenPort
)

var eventTypeNames = map[EventType]string{
	EventTypeInput:       "input",
	EventTypeTick:        "tick",
	EventTypeEdit:        "edit",
	EventTypeSelect:      "select",
	EventTypeSwitch:      "switch",
	EventTypeAllNotesOff: "all_notes_off",
	EventTypeOpenPort:    "open_port",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Edit names one rule field change. Value is the textual form, as typed
// into a form or config file.
type Edit struct {
	Row      string `json:"row" yaml:"row"`
	Position int    `json:"position" yaml:"position"`
	Field    string `json:"field" yaml:"field"`
	Value    string `json:"value" yaml:"value"`
}

// Selection names one selector field change. An empty Value unsets it.
type Selection struct {
	Row   string `json:"row" yaml:"row"`
	Field string `json:"field" yaml:"field"`
	Value string `json:"value" yaml:"value"`
}

// SwitchChange flips one global switch.
type SwitchChange struct {
	Name string `json:"name" yaml:"name"`
	On   bool   `json:"on" yaml:"on"`
}

// Event is one unit of work for the Run loop. Only the field matching
// Type is set.
type Event struct {
	Type   EventType
	Input  *Input
	Edit   *Edit
	Select *Selection
	Switch *SwitchChange
	Port   string

	// Time is when a tick fired. Zero means read the engine clock.
	Time time.Time

	// Reply, when set, receives the processing result. It must be
	// buffered; the Run loop never blocks on it.
	Reply chan<- error
}

// eventQueue is a thread-safe FIFO queue for events.
//
// Input readers, the tick source and the config watcher enqueue from their
// own goroutines; the Engine's Run loop is the only consumer. The queue is
// unbounded so a burst of samples never blocks the pointer reader.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not retain the event's
	// pointers.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
