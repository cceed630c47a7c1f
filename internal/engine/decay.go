package engine

import (
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
)

// Pull-back defaults.
const (
	DefaultDecayTick = 50 * time.Millisecond
	DefaultDecayIdle = 2 * time.Second
)

type decayTask struct {
	rule *binding.Rule
	// since is when the task was started. Idle time is measured from the
	// later of this and the rule's last mutation.
	since time.Time
}

// DecayScheduler pulls stepped values back toward zero after they have
// been left alone for the idle window.
//
// There is at most one task per rule, keyed by RuleID. The scheduler does
// not own a timer: the engine delivers one Tick per tick interval, on the
// same goroutine that applies input and edits, so a tick never races a
// manual change to the same value.
type DecayScheduler struct {
	clock binding.Clock
	tick  time.Duration
	idle  time.Duration
	tasks map[binding.RuleID]*decayTask
}

// NewDecayScheduler creates a scheduler. Zero durations take the defaults.
func NewDecayScheduler(clock binding.Clock, tick, idle time.Duration) *DecayScheduler {
	if clock == nil {
		clock = binding.SystemClock{}
	}
	if tick <= 0 {
		tick = DefaultDecayTick
	}
	if idle <= 0 {
		idle = DefaultDecayIdle
	}
	return &DecayScheduler{
		clock: clock,
		tick:  tick,
		idle:  idle,
		tasks: make(map[binding.RuleID]*decayTask),
	}
}

// Interval returns the tick interval.
func (d *DecayScheduler) Interval() time.Duration { return d.tick }

// Idle returns the idle window.
func (d *DecayScheduler) Idle() time.Duration { return d.idle }

// Start schedules r. It reports false, and changes nothing, when r is not
// stepped or already has a task.
func (d *DecayScheduler) Start(r *binding.Rule) bool {
	if r.Kind() != ir.KindStepped {
		return false
	}
	if _, ok := d.tasks[r.ID()]; ok {
		return false
	}
	d.tasks[r.ID()] = &decayTask{rule: r, since: d.clock.Now()}
	decayTasks.Inc()
	slog.Debug("pull-back scheduled", "rule", r.ID(), "value", r.Value())
	return true
}

// Restart cancels any task for r and starts a fresh one, so the idle
// window begins now.
func (d *DecayScheduler) Restart(r *binding.Rule) bool {
	d.Cancel(r.ID())
	return d.Start(r)
}

// Cancel drops the task for id. It reports whether one existed.
func (d *DecayScheduler) Cancel(id binding.RuleID) bool {
	if _, ok := d.tasks[id]; !ok {
		return false
	}
	delete(d.tasks, id)
	decayTasks.Dec()
	slog.Debug("pull-back cancelled", "rule", id)
	return true
}

// Scheduled reports whether id has a task.
func (d *DecayScheduler) Scheduled(id binding.RuleID) bool {
	_, ok := d.tasks[id]
	return ok
}

// Len returns the number of tasks.
func (d *DecayScheduler) Len() int { return len(d.tasks) }

// Tick runs every task once, in RuleID order.
func (d *DecayScheduler) Tick(now time.Time) {
	ids := make([]binding.RuleID, 0, len(d.tasks))
	for id := range d.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		task, ok := d.tasks[id]
		if !ok {
			continue
		}
		d.step(task, now)
	}
}

func (d *DecayScheduler) step(task *decayTask, now time.Time) {
	r := task.rule
	if !r.PullBack() {
		d.Cancel(r.ID())
		return
	}

	from := r.Touched()
	if task.since.After(from) {
		from = task.since
	}
	if now.Sub(from) < d.idle {
		return
	}

	step := 0
	if s := r.Snapshot().Step; s != nil {
		step = abs(*s)
	}
	if step == 0 {
		return
	}

	v := r.Value()
	next := 0
	switch {
	case v > step:
		next = v - step
	case v < -step:
		next = v + step
	}

	// The value listener sees the task still scheduled and does not
	// re-arm it.
	r.SetValueQuiet(next)
	if next == 0 {
		d.Cancel(r.ID())
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
