package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/axes"
	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/midi"
	"github.com/roach88/touchy/internal/store"
	"github.com/roach88/touchy/internal/testutil"
)

// newStoreWith returns a store holding snaps under key, with the default
// rows bound.
func newStoreWith(t *testing.T, clock binding.Clock, key ir.Key, snaps ...ir.Snapshot) *store.Store {
	t.Helper()
	s := store.New(nil)
	s.Put(key, snaps)
	s.Bind(binding.DefaultRows(clock)...)
	return s
}

type recorder struct {
	msgs []midi.Message
	err  error
}

func (r *recorder) emit(m midi.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func controlRule(axis ir.Axis, channel int, control string) ir.Snapshot {
	s := binding.TabletDefaults(axis)
	s.Enabled = true
	s.Channel = ir.IntPtr(channel)
	s.ControlType = control
	return s
}

var penKey = ir.NewKey(testTablet, testPen, "1")

func TestResolver_GroupsByChannel(t *testing.T) {
	s := newStoreWith(t, testutil.NewManualClock(), penKey,
		controlRule(ir.AxisX, 2, "Modulation Wheel"),
		controlRule(ir.AxisY, 0, "Bank Select"),
	)
	sw := DefaultSwitches()
	rec := &recorder{}
	r := NewResolver(s, &sw, rec.emit)

	errs := r.Resolve(Sample{
		Key:     penKey,
		Values:  axes.Sample{ir.AxisX: 10, ir.AxisY: 20},
		Domains: Domains{ir.AxisX: {0, 127}, ir.AxisY: {0, 127}},
	})
	assert.Empty(t, errs)
	assert.Equal(t, []midi.Message{
		midi.ControlChange(0, 0, 20),
		midi.ControlChange(2, 1, 10),
	}, rec.msgs)
}

func TestResolver_LastNoteRuleWins(t *testing.T) {
	first := controlRule(ir.AxisX, 0, "Bank Select")
	first.MessageType = ir.MessageNote
	second := controlRule(ir.AxisY, 0, "Bank Select")
	second.MessageType = ir.MessageNote

	s := newStoreWith(t, testutil.NewManualClock(), penKey, first, second)
	sw := DefaultSwitches()
	rec := &recorder{}
	r := NewResolver(s, &sw, rec.emit)

	r.Resolve(Sample{
		Key:     penKey,
		Values:  axes.Sample{ir.AxisX: 10, ir.AxisY: 20},
		Domains: Domains{ir.AxisX: {0, 127}, ir.AxisY: {0, 127}},
	})
	assert.Equal(t, []midi.Message{midi.NoteOn(0, 20, midi.DefaultVelocity)}, rec.msgs)
}

func TestResolver_MasterSwitchOff(t *testing.T) {
	s := newStoreWith(t, testutil.NewManualClock(), penKey, controlRule(ir.AxisX, 0, "Bank Select"))
	sw := DefaultSwitches()
	sw.MIDIOutput = false
	rec := &recorder{}
	r := NewResolver(s, &sw, rec.emit)

	errs := r.Resolve(Sample{Key: penKey, Values: axes.Sample{ir.AxisX: 10}, Domains: Domains{ir.AxisX: {0, 127}}})
	assert.Empty(t, errs)
	assert.Empty(t, rec.msgs)
}

func TestResolver_SendFailureIsReported(t *testing.T) {
	s := newStoreWith(t, testutil.NewManualClock(), penKey, controlRule(ir.AxisX, 0, "Bank Select"))
	sw := DefaultSwitches()
	rec := &recorder{err: errors.New("port gone")}
	r := NewResolver(s, &sw, rec.emit)

	errs := r.Resolve(Sample{Key: penKey, Values: axes.Sample{ir.AxisX: 10}, Domains: Domains{ir.AxisX: {0, 127}}})
	require.Len(t, errs, 1)

	var re *ResolveError
	require.ErrorAs(t, errs[0], &re)
	assert.Equal(t, ErrCodeSend, re.Code)
	assert.Equal(t, penKey, re.Key)
}

func TestResolver_OutOfRangeMessage(t *testing.T) {
	rule := controlRule(ir.AxisX, 0, "Bank Select")
	rule.RangeTo = ir.IntPtr(1000)
	s := newStoreWith(t, testutil.NewManualClock(), penKey, rule)
	sw := DefaultSwitches()
	rec := &recorder{}
	r := NewResolver(s, &sw, func(m midi.Message) error {
		if err := m.Validate(); err != nil {
			return err
		}
		return rec.emit(m)
	})

	errs := r.Resolve(Sample{Key: penKey, Values: axes.Sample{ir.AxisX: 500}, Domains: Domains{ir.AxisX: {0, 1000}}})
	require.Len(t, errs, 1)
	assert.True(t, IsOutOfRange(errs[0]))
	assert.Empty(t, rec.msgs)
}

func TestResolver_ScaleFollowsDomain(t *testing.T) {
	s := newStoreWith(t, testutil.NewManualClock(), penKey, controlRule(ir.AxisX, 0, "Bank Select"))
	sw := DefaultSwitches()
	rec := &recorder{}
	r := NewResolver(s, &sw, rec.emit)

	r.Resolve(Sample{Key: penKey, Values: axes.Sample{ir.AxisX: 50}, Domains: Domains{ir.AxisX: {0, 100}}})
	r.Resolve(Sample{Key: penKey, Values: axes.Sample{ir.AxisX: 50}, Domains: Domains{ir.AxisX: {0, 200}}})
	assert.Equal(t, []midi.Message{
		midi.ControlChange(0, 0, 63),
		midi.ControlChange(0, 0, 31),
	}, rec.msgs)
}

func TestResolver_SteppedRuleWithoutLiveRow(t *testing.T) {
	key := ir.NewKey("Other Tablet", "Eraser", "0")
	stepped := binding.WheelDefaults(ir.AxisY)
	stepped.Enabled = true

	s := newStoreWith(t, testutil.NewManualClock(), key, stepped)
	sw := DefaultSwitches()
	rec := &recorder{}
	r := NewResolver(s, &sw, rec.emit)

	errs := r.Resolve(Sample{Key: key, Values: axes.Sample{ir.AxisY: 1}})
	assert.Empty(t, errs)
	assert.Empty(t, rec.msgs, "no live rule, so no value listener")

	snaps, ok := s.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, 100, snaps[0].Value)
}

func TestResolver_KeyIsNormalised(t *testing.T) {
	// "é" as e + combining acute, against the precomposed form in the store.
	decomposed := ir.Key{Source: "Tablette Wacom e\u0301", Cursor: "Pen", Button: "1"}
	composed := ir.NewKey("Tablette Wacom \u00e9", "Pen", "1")

	s := newStoreWith(t, testutil.NewManualClock(), composed, controlRule(ir.AxisX, 0, "Bank Select"))
	sw := DefaultSwitches()
	rec := &recorder{}
	r := NewResolver(s, &sw, rec.emit)

	r.Resolve(Sample{Key: decomposed, Values: axes.Sample{ir.AxisX: 10}, Domains: Domains{ir.AxisX: {0, 127}}})
	assert.Len(t, rec.msgs, 1)
}

func TestResolver_ClearCaches(t *testing.T) {
	s := newStoreWith(t, testutil.NewManualClock(), penKey, controlRule(ir.AxisX, 0, "Bank Select"))
	sw := DefaultSwitches()
	r := NewResolver(s, &sw, (&recorder{}).emit)

	r.Resolve(Sample{Key: penKey, Values: axes.Sample{ir.AxisX: 10}, Domains: Domains{ir.AxisX: {0, 127}}})
	_, ok := r.Gate(penKey, 0)
	require.True(t, ok)

	r.ClearGates()
	_, ok = r.Gate(penKey, 0)
	assert.False(t, ok)

	r.ClearScales()
	assert.Empty(t, r.scales)
}
