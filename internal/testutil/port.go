package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/touchy/internal/midi"
)

// RecordingPort captures every message sent to it.
type RecordingPort struct {
	mu       sync.Mutex
	Name     string
	messages []midi.Message
	closed   bool
}

// Send records m after validating it like a real port would.
func (p *RecordingPort) Send(m midi.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("send on closed port %q", p.Name)
	}
	p.messages = append(p.messages, m)
	return nil
}

// Close marks the port closed.
func (p *RecordingPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *RecordingPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Messages returns a copy of everything sent so far.
func (p *RecordingPort) Messages() []midi.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]midi.Message(nil), p.messages...)
}

// Lines returns the String form of everything sent so far.
func (p *RecordingPort) Lines() []string {
	msgs := p.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.String()
	}
	return out
}

// Clear forgets recorded messages.
func (p *RecordingPort) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}

// ErrOpenFailed is returned by PortRegistry for unknown names.
var ErrOpenFailed = errors.New("no such port")

// PortRegistry is a midi.Opener over a fixed set of recording ports.
// It records the order of Open and Close calls across ports.
type PortRegistry struct {
	mu     sync.Mutex
	ports  map[string]*RecordingPort
	events []string
}

// NewPortRegistry creates recording ports for the given names.
func NewPortRegistry(names ...string) *PortRegistry {
	r := &PortRegistry{ports: make(map[string]*RecordingPort)}
	for _, n := range names {
		r.ports[n] = &RecordingPort{Name: n}
	}
	return r
}

// Open returns the named port, reopened if it was closed.
func (r *PortRegistry) Open(name string) (midi.Port, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[name]
	if !ok {
		r.events = append(r.events, "open-failed "+name)
		return nil, fmt.Errorf("%w: %s", ErrOpenFailed, name)
	}
	r.events = append(r.events, "open "+name)
	p.mu.Lock()
	p.closed = false
	p.mu.Unlock()
	return &trackedPort{RecordingPort: p, registry: r}, nil
}

// Port returns the recording port for name.
func (r *PortRegistry) Port(name string) *RecordingPort {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ports[name]
}

// Events returns the ordered open/close log.
func (r *PortRegistry) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type trackedPort struct {
	*RecordingPort
	registry *PortRegistry
}

func (p *trackedPort) Close() error {
	p.registry.mu.Lock()
	p.registry.events = append(p.registry.events, "close "+p.Name)
	p.registry.mu.Unlock()
	return p.RecordingPort.Close()
}
