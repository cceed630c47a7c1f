package binding

import "github.com/roach88/touchy/internal/ir"

// TabletDefaults are the factory values of a tablet rule.
func TabletDefaults(axis ir.Axis) ir.Snapshot {
	return ir.Snapshot{
		Enabled:     false,
		Channel:     ir.IntPtr(0),
		MessageType: ir.MessageControl,
		ControlType: ir.ControlBankSelect,
		RangeFrom:   ir.IntPtr(0),
		RangeTo:     ir.IntPtr(127),
		Axis:        axis,
		Threshold:   ir.FloatPtr(0),
	}
}

// MouseDefaults are the factory values of a mouse rule. Mouse motion is
// noisier than a pen, so it starts with a travel threshold.
func MouseDefaults(axis ir.Axis) ir.Snapshot {
	s := TabletDefaults(axis)
	s.Threshold = ir.FloatPtr(5)
	return s
}

// WheelDefaults are the factory values of a stepped wheel rule.
func WheelDefaults(axis ir.Axis) ir.Snapshot {
	return ir.Snapshot{
		Enabled:     false,
		Channel:     ir.IntPtr(0),
		MessageType: ir.MessagePitch,
		ControlType: ir.ControlBankSelect,
		RangeFrom:   ir.IntPtr(-8192),
		RangeTo:     ir.IntPtr(8191),
		Axis:        axis,
		Step:        ir.IntPtr(100),
		Value:       0,
		PullBack:    false,
	}
}

// DefaultRows builds the tablet (x, y, pressure), mouse (x, y) and wheel
// (x, y) rows with factory values.
func DefaultRows(clock Clock) []*Row {
	return []*Row{
		newRow(RowTablet, NewTabletSelector(), 3, TabletDefaults, clock),
		newRow(RowMouse, NewMouseSelector(), 2, MouseDefaults, clock),
		newRow(RowWheel, NewStaticSelector(ir.WheelKey), 2, WheelDefaults, clock),
	}
}

func newRow(name string, sel Selector, n int, defaults func(ir.Axis) ir.Snapshot, clock Clock) *Row {
	row := &Row{Name: name, Selector: sel, Rules: make([]*Rule, n)}
	for i := range n {
		row.Rules[i] = NewRule(defaults(ir.AxisAt(i)), clock)
	}
	return row
}
