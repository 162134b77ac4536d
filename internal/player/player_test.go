package player

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newPlayer(t *testing.T) (*Player, *clock) {
	t.Helper()

	c := &clock{t: time.Unix(1_700_000_000, 0)}
	return New(WithClock(c.now)), c
}

func TestPlayBeforeLoad(t *testing.T) {
	p, _ := newPlayer(t)

	assert.ErrorIs(t, p.Play(), ErrNotReady)
	assert.True(t, p.Paused())
	assert.Empty(t, p.Drain())
}

func TestClockAdvancesWhilePlaying(t *testing.T) {
	p, c := newPlayer(t)
	p.Load(100)

	require.NoError(t, p.Play())
	c.advance(10 * time.Second)
	assert.InDelta(t, 10, p.Position(), 1e-9)

	p.Pause()
	c.advance(10 * time.Second)
	assert.InDelta(t, 10, p.Position(), 1e-9)

	assert.Equal(t, []Event{EventReady, EventPlay, EventPause}, p.Drain())
	assert.Empty(t, p.Drain())
}

func TestSeekClampsAndFiresEvent(t *testing.T) {
	p, _ := newPlayer(t)
	p.Load(100)
	p.Drain()

	p.Seek(150)
	assert.Equal(t, float64(100), p.Position())
	p.Seek(-3)
	assert.Equal(t, float64(0), p.Position())

	assert.Equal(t, []Event{EventSeeked, EventSeeked}, p.Drain())
}

func TestRedundantPlayPauseAreSilent(t *testing.T) {
	p, _ := newPlayer(t)
	p.Load(0)
	p.Drain()

	p.Pause()
	require.NoError(t, p.Play())
	require.NoError(t, p.Play())

	assert.Equal(t, []Event{EventPlay}, p.Drain())
}

func TestTickEndsPlayback(t *testing.T) {
	p, c := newPlayer(t)
	p.Load(30)
	p.Seek(25)
	require.NoError(t, p.Play())
	p.Drain()

	c.advance(3 * time.Second)
	p.Tick()
	assert.False(t, p.Paused())

	c.advance(3 * time.Second)
	p.Tick()
	assert.True(t, p.Paused())
	assert.Equal(t, float64(30), p.Position())
	assert.Equal(t, []Event{EventEnded}, p.Drain())
}

func TestUnknownDurationNeverEnds(t *testing.T) {
	p, c := newPlayer(t)
	p.Load(0)
	require.NoError(t, p.Play())

	c.advance(time.Hour)
	p.Tick()

	assert.False(t, p.Paused())
	assert.InDelta(t, 3600, p.Position(), 1e-9)
}

func TestRunDeliversEvents(t *testing.T) {
	p := New()
	p.Load(100)

	var ready atomic.Bool
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(stop, time.Millisecond, func(e Event) {
			if e == EventReady {
				ready.Store(true)
			}
		})
	}()

	assert.Eventually(t, ready.Load, time.Second, time.Millisecond)
	close(stop)
	<-done
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "seeked", EventSeeked.String())
	assert.Equal(t, "unknown", Event(99).String())
}
