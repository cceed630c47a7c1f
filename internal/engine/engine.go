package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/touchy/internal/axes"
	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/midi"
	"github.com/roach88/touchy/internal/store"
)

// Engine is the single-writer event loop that owns every piece of mutable
// state: the rule store and its bound rows, the resolver caches, the decay
// scheduler, the switches and the output port.
//
// CRITICAL: All mutations happen in the single-writer Run loop goroutine.
// External callers use Enqueue() or Do() to submit events for processing.
//
// Thread-safety model:
//   - Enqueue(), Do(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Process(): only from the Run goroutine, or before Run starts
type Engine struct {
	store    *store.Store
	resolver *Resolver
	decay    *DecayScheduler
	queue    *eventQueue
	seq      *Sequence
	clock    binding.Clock

	opener   midi.Opener
	port     midi.Port
	portName string
	sink     midi.Sink

	switches  Switches
	domains   Domains
	input     inputState
	session   string
	decayTick time.Duration
	decayIdle time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock used for idle decay. It must be the clock
// the rows were built with.
func WithClock(c binding.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithOpener sets how output ports are opened.
func WithOpener(o midi.Opener) Option {
	return func(e *Engine) { e.opener = o }
}

// WithSink sets where output and input log lines go.
func WithSink(s midi.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithSwitches sets the initial switches.
func WithSwitches(s Switches) Option {
	return func(e *Engine) { e.switches = s }
}

// WithDecay sets the pull-back tick interval and idle window.
func WithDecay(tick, idle time.Duration) Option {
	return func(e *Engine) {
		e.decayTick, e.decayIdle = tick, idle
	}
}

// WithDomains sets the domains used for axes an input event does not
// describe, typically the screen size.
func WithDomains(d Domains) Option {
	return func(e *Engine) { e.domains = d }
}

// WithSession tags the engine's log lines with a token from gen.
func WithSession(gen SessionGenerator) Option {
	return func(e *Engine) { e.session = gen.Generate() }
}

// New creates an Engine over s. The rows must already be bound to s.
//
// New registers the engine's listeners on every bound rule: stepped value
// changes send the rule's message and arm pull-back, pull-back toggles
// start or cancel it, and range or threshold edits drop the resolver's
// cached scales and gates.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		queue:    newEventQueue(),
		seq:      NewSequence(),
		clock:    binding.SystemClock{},
		opener:   midi.DefaultOpener,
		sink:     midi.DiscardSink,
		switches: DefaultSwitches(),
		input:    inputState{integrators: make(map[string]*axes.Accumulating)},
	}

	for _, opt := range opts {
		opt(e)
	}
	e.decay = NewDecayScheduler(e.clock, e.decayTick, e.decayIdle)
	e.resolver = NewResolver(s, &e.switches, e.emit)

	for _, row := range s.Rows() {
		e.wire(row)
		e.armDecay(row)
	}
	s.OnRestore(e.armDecay)

	return e
}

func (e *Engine) wire(row *binding.Row) {
	for _, rule := range row.Rules {
		if rule.Kind() == ir.KindStepped {
			rule.Listen(binding.FieldValue, func(r *binding.Rule, _ binding.Field) {
				e.onValue(r)
			})
			rule.Listen(binding.FieldPullBack, func(r *binding.Rule, _ binding.Field) {
				if r.PullBack() {
					e.decay.Restart(r)
				} else {
					e.decay.Cancel(r.ID())
				}
			})
		}
		rule.Listen(binding.FieldRangeFrom, func(*binding.Rule, binding.Field) { e.resolver.ClearScales() })
		rule.Listen(binding.FieldRangeTo, func(*binding.Rule, binding.Field) { e.resolver.ClearScales() })
		rule.Listen(binding.FieldThreshold, func(*binding.Rule, binding.Field) { e.resolver.ClearGates() })
	}
}

// armDecay brings the pull-back tasks of a row in line with its rules,
// after the rows were restored from the store.
func (e *Engine) armDecay(row *binding.Row) {
	for _, rule := range row.Rules {
		if rule.Kind() != ir.KindStepped {
			continue
		}
		if rule.PullBack() {
			e.decay.Start(rule)
		} else {
			e.decay.Cancel(rule.ID())
		}
	}
}

// onValue sends a stepped rule's message for its new value and arms
// pull-back if it is on and idle.
func (e *Engine) onValue(r *binding.Rule) {
	snap := r.Snapshot()
	if snap.Enabled && snap.Valid() {
		m, ok, err := messageFor(snap, snap.Value)
		switch {
		case err != nil:
			slog.Warn("stepped value not sent", "rule", r.ID(), "error", err)
		case ok:
			if err := e.emit(m); err != nil {
				slog.Warn("stepped value not sent", "rule", r.ID(), "message", m.String(), "error", err)
			}
		}
	}
	if snap.PullBack && !e.decay.Scheduled(r.ID()) {
		e.decay.Start(r)
	}
}

// emit sends m if the master output switch is on.
func (e *Engine) emit(m midi.Message) error {
	if !e.switches.MIDIOutput {
		messagesTotal.WithLabelValues(string(m.Type), resultMuted).Inc()
		return nil
	}
	return e.send(m)
}

// send writes m to the port and mirrors it to the sink. With no port open
// the message is dropped.
func (e *Engine) send(m midi.Message) error {
	if err := m.Validate(); err != nil {
		messagesTotal.WithLabelValues(string(m.Type), resultSendFailed).Inc()
		return err
	}
	if e.port == nil {
		messagesTotal.WithLabelValues(string(m.Type), resultNoPort).Inc()
		slog.Debug("message dropped", "message", m.String(), "error", midi.ErrNoPort)
		return nil
	}
	if err := e.port.Send(m); err != nil {
		messagesTotal.WithLabelValues(string(m.Type), resultSendFailed).Inc()
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	messagesTotal.WithLabelValues(string(m.Type), resultSent).Inc()
	if e.switches.LogOutput {
		e.sink.Log(m.String())
	}
	return nil
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Do enqueues ev and waits for the Run loop to process it.
func (e *Engine) Do(ctx context.Context, ev Event) error {
	reply := make(chan error, 1)
	ev.Reply = reply
	if !e.queue.Enqueue(ev) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// On event processing failure the error is logged (or handed to the
// event's Reply) and processing continues.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "session", e.session, "port", e.portName)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			err := e.Process(event)
			if event.Reply != nil {
				event.Reply <- err
			} else if err != nil {
				e.logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "session", e.session)
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed when the queue is closed.
			if e.queue.Len() == 0 && e.stopped() {
				slog.Info("engine stopping: queue closed", "session", e.session)
				return nil
			}
		}
	}
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// Stop gracefully shuts down the engine.
// Closes the event queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Ticks enqueues a tick every decay interval until ctx is done.
func (e *Engine) Ticks(ctx context.Context) error {
	t := time.NewTicker(e.decay.Interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if !e.Enqueue(Event{Type: EventTypeTick, Time: now}) {
				return nil
			}
		}
	}
}

// Process handles one event to completion.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) Process(ev Event) error {
	seq := e.seq.Next()
	eventsTotal.WithLabelValues(ev.Type.String()).Inc()

	switch ev.Type {
	case EventTypeInput:
		if ev.Input == nil {
			return fmt.Errorf("input event missing input data")
		}
		_, err := e.handleInput(*ev.Input)
		return err

	case EventTypeTick:
		now := ev.Time
		if now.IsZero() {
			now = e.clock.Now()
		}
		e.decay.Tick(now)
		return nil

	case EventTypeEdit:
		if ev.Edit == nil {
			return fmt.Errorf("edit event missing edit data")
		}
		return e.applyEdit(*ev.Edit)

	case EventTypeSelect:
		if ev.Select == nil {
			return fmt.Errorf("select event missing selection data")
		}
		return e.applySelect(*ev.Select)

	case EventTypeSwitch:
		if ev.Switch == nil {
			return fmt.Errorf("switch event missing switch data")
		}
		slog.Debug("switch", "seq", seq, "name", ev.Switch.Name, "on", ev.Switch.On)
		return e.switches.Set(ev.Switch.Name, ev.Switch.On)

	case EventTypeAllNotesOff:
		return e.AllNotesOff()

	case EventTypeOpenPort:
		return e.OpenPort(ev.Port)

	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}

func (e *Engine) applyEdit(ed Edit) error {
	row, ok := e.store.Row(ed.Row)
	if !ok {
		return fmt.Errorf("edit: unknown row %q", ed.Row)
	}
	if ed.Position < 0 || ed.Position >= len(row.Rules) {
		return fmt.Errorf("edit: row %s has no position %d", ed.Row, ed.Position)
	}
	f, err := binding.ParseField(ed.Field)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	return row.Rules[ed.Position].Set(f, ed.Value)
}

func (e *Engine) applySelect(sel Selection) error {
	row, ok := e.store.Row(sel.Row)
	if !ok {
		return fmt.Errorf("select: unknown row %q", sel.Row)
	}
	return row.Selector.Set(sel.Field, sel.Value)
}

// AllNotesOff sends CC 123 on every channel. It bypasses the master output
// switch; it is how stuck notes are silenced.
func (e *Engine) AllNotesOff() error {
	var errs []error
	for _, m := range allNotesOff() {
		if err := e.send(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenPort closes the current port, if any, then opens name. A failed
// open leaves no port open and is returned.
func (e *Engine) OpenPort(name string) error {
	if e.port != nil {
		if err := e.port.Close(); err != nil {
			slog.Warn("closing output port failed", "port", e.portName, "error", err)
		}
		e.port, e.portName = nil, ""
	}

	p, err := e.opener.Open(name)
	if err != nil {
		return fmt.Errorf("open port %q: %w", name, err)
	}
	e.port, e.portName = p, name
	slog.Info("output port opened", "port", name)
	return nil
}

// Close closes the output port.
func (e *Engine) Close() error {
	if e.port == nil {
		return nil
	}
	err := e.port.Close()
	e.port, e.portName = nil, ""
	return err
}

// Store returns the rule store.
func (e *Engine) Store() *store.Store { return e.store }

// Resolver returns the resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Decay returns the pull-back scheduler.
func (e *Engine) Decay() *DecayScheduler { return e.decay }

// Switches returns the current switches.
func (e *Engine) Switches() Switches { return e.switches }

// PortName returns the name of the open port, or "".
func (e *Engine) PortName() string { return e.portName }

// Session returns the session token.
func (e *Engine) Session() string { return e.session }

// Seq returns the sequence number of the last processed event.
func (e *Engine) Seq() int64 { return e.seq.Current() }

// QueueLen returns the number of events waiting.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// logEventError logs an event processing failure with full context.
func (e *Engine) logEventError(event Event, err error) {
	switch event.Type {
	case EventTypeInput:
		if event.Input != nil {
			slog.Error("input processing failed",
				"error", err,
				"input", event.Input.String(),
				"session", e.session,
			)
			return
		}
	case EventTypeEdit:
		if event.Edit != nil {
			slog.Error("edit failed",
				"error", err,
				"row", event.Edit.Row,
				"position", event.Edit.Position,
				"field", event.Edit.Field,
				"session", e.session,
			)
			return
		}
	}
	slog.Error("event processing failed",
		"error", err,
		"event_type", event.Type.String(),
		"session", e.session,
	)
}
