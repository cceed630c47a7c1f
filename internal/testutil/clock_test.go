package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/midi"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	c := NewManualClock()
	assert.Equal(t, Epoch, c.Now())
}

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock()
	got := c.Advance(2 * time.Second)
	assert.Equal(t, Epoch.Add(2*time.Second), got)
	assert.Equal(t, got, c.Now())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	c := NewManualClock()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(50*time.Millisecond), c.Now())
}

func TestPortRegistry_OrderOfOpenClose(t *testing.T) {
	r := NewPortRegistry("a", "b")

	pa, err := r.Open("a")
	require.NoError(t, err)
	require.NoError(t, pa.Send(midi.NoteOn(0, 60, 64)))
	require.NoError(t, pa.Close())

	_, err = r.Open("missing")
	assert.ErrorIs(t, err, ErrOpenFailed)

	assert.Equal(t, []string{"open a", "close a", "open-failed missing"}, r.Events())
	assert.Equal(t, []string{"note_on channel=0 note=60 velocity=64"}, r.Port("a").Lines())
	assert.True(t, r.Port("a").Closed())
}

func TestFixedSessionGenerator(t *testing.T) {
	assert.Equal(t, "test-session", NewFixedSessionGenerator("").Generate())
	assert.Equal(t, "s-1", NewFixedSessionGenerator("s-1").Generate())
}
