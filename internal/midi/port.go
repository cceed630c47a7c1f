package midi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrNoPort is returned when sending with no output port open.
var ErrNoPort = errors.New("no midi output port open")

// Port is an open output port.
type Port interface {
	Send(m Message) error
	Close() error
}

// Opener opens output ports by name.
type Opener interface {
	Open(name string) (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(name string) (Port, error)

// Open calls f(name).
func (f OpenerFunc) Open(name string) (Port, error) { return f(name) }

// Special port names understood by DefaultOpener.
const (
	// PortStdout prints messages to standard output instead of a device.
	PortStdout = "-"
)

// DefaultOpener opens PortStdout as a WriterPort on os.Stdout and any
// other name as a driver port.
var DefaultOpener = OpenerFunc(func(name string) (Port, error) {
	if name == PortStdout {
		return NewWriterPort(os.Stdout), nil
	}
	return OpenOut(name)
})

// OutPort sends through a gomidi driver port.
type OutPort struct {
	out drivers.Out
}

// OpenOut finds the driver output port whose name contains name and opens it.
func OpenOut(name string) (*OutPort, error) {
	out, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("find output port %q: %w", name, err)
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("open output port %q: %w", name, err)
	}
	return &OutPort{out: out}, nil
}

// Send encodes m and writes it to the driver.
func (p *OutPort) Send(m Message) error {
	b, err := m.Bytes()
	if err != nil {
		return err
	}
	return p.out.Send(b)
}

// Close closes the driver port.
func (p *OutPort) Close() error {
	return p.out.Close()
}

// String returns the driver's port name.
func (p *OutPort) String() string {
	return p.out.String()
}

// OutPortNames lists the output ports the registered driver exposes.
func OutPortNames() []string {
	var names []string
	for _, out := range gomidi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// WriterPort prints each message on its own line.
// Used for headless runs and for piping into other tools.
type WriterPort struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriterPort returns a port writing to w.
func NewWriterPort(w io.Writer) *WriterPort {
	return &WriterPort{w: w}
}

// Send validates m and writes its String form.
func (p *WriterPort) Send(m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrNoPort
	}
	_, err := fmt.Fprintln(p.w, m.String())
	return err
}

// Close marks the port closed. The writer itself is left open.
func (p *WriterPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
