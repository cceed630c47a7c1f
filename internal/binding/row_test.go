package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/ir"
)

func TestDefaultRows(t *testing.T) {
	rows := DefaultRows(nil)
	require.Len(t, rows, 3)

	tablet, mouse, wheel := rows[0], rows[1], rows[2]
	assert.Equal(t, RowTablet, tablet.Name)
	assert.Len(t, tablet.Rules, 3)
	assert.Equal(t, ir.AxisZ, tablet.Rules[2].Axis())
	assert.Equal(t, 0.0, *tablet.Rules[0].Snapshot().Threshold)

	assert.Equal(t, RowMouse, mouse.Name)
	assert.Len(t, mouse.Rules, 2)
	assert.Equal(t, 5.0, *mouse.Rules[0].Snapshot().Threshold)

	assert.Equal(t, RowWheel, wheel.Name)
	key, ok := wheel.Key()
	require.True(t, ok)
	assert.Equal(t, ir.WheelKey, key)
	for _, r := range wheel.Rules {
		assert.Equal(t, ir.KindStepped, r.Kind())
		assert.True(t, r.Snapshot().Valid())
	}
}

func TestTabletSelector(t *testing.T) {
	sel := NewTabletSelector()
	_, ok := sel.Key()
	assert.False(t, ok, "unset selector has no key")

	var fired int
	sel.Listen(func(Selector) { fired++ })

	require.NoError(t, sel.Set(SelectTablet, "Wacom"))
	require.NoError(t, sel.Set(SelectCursor, "Pen"))
	_, ok = sel.Key()
	assert.False(t, ok)

	require.NoError(t, sel.Set(SelectButton, "1"))
	key, ok := sel.Key()
	require.True(t, ok)
	assert.Equal(t, ir.NewKey("Wacom", "Pen", "1"), key)
	assert.Equal(t, 3, fired)

	require.NoError(t, sel.Set(SelectButton, ""))
	_, ok = sel.Key()
	assert.False(t, ok, "clearing a field invalidates the key")

	assert.Error(t, sel.Set("pressure", "1"))
}

func TestMouseSelector(t *testing.T) {
	sel := NewMouseSelector()
	require.NoError(t, sel.Set(SelectButton, "4"))
	key, ok := sel.Key()
	require.True(t, ok)
	assert.Equal(t, ir.NewKey("mouse", "cursor", "4"), key)
	assert.Equal(t, []string{SelectButton}, sel.Fields())
}

func TestStaticSelector(t *testing.T) {
	sel := NewStaticSelector(ir.WheelKey)
	assert.Error(t, sel.Set(SelectButton, "1"))
	assert.Empty(t, sel.Fields())
}

func TestRow_RestoreFallsBackToDefaults(t *testing.T) {
	row := DefaultRows(nil)[0]
	row.Rules[0].SetEnabled(true)
	row.Rules[1].SetChannel(ir.IntPtr(7))

	saved := row.Defaults()
	saved[2].MessageType = ir.MessageVelocity

	row.Restore(saved[:1])
	assert.Equal(t, row.Defaults()[:2], row.Snapshots()[:2])

	row.Restore(saved)
	assert.Equal(t, ir.MessageVelocity, row.Rules[2].Snapshot().MessageType)

	row.Restore(nil)
	assert.Equal(t, row.Defaults(), row.Snapshots())
}

func TestRow_RuleFor(t *testing.T) {
	row := DefaultRows(nil)[0]
	r, i, err := row.RuleFor(ir.AxisY)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Same(t, row.Rules[1], r)

	row2 := DefaultRows(nil)[1]
	_, _, err = row2.RuleFor(ir.AxisZ)
	assert.Error(t, err)
}
