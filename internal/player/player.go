// Package player is a headless media engine driven by a wall clock. It
// behaves like a browser media element: every state change, programmatic or
// not, produces an event, and events are queued for later delivery.
package player

import (
	"errors"
	"sync"
	"time"
)

var ErrNotReady = errors.New("player is not ready")

type Event int

const (
	EventReady Event = iota
	EventPlay
	EventPause
	EventSeeked
	EventEnded
)

func (e Event) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventSeeked:
		return "seeked"
	case EventEnded:
		return "ended"
	}
	return "unknown"
}

type Player struct {
	mu       sync.Mutex
	now      func() time.Time
	duration float64
	ready    bool
	paused   bool
	// position at anchor; while playing the clock advances from there
	position float64
	anchor   time.Time
	events   []Event
}

type Option func(*Player)

func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

func New(opts ...Option) *Player {
	p := &Player{
		now:    time.Now,
		paused: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Load makes the media available. A zero duration means unknown length.
func (p *Player) Load(duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.duration = duration
	p.ready = true
	p.events = append(p.events, EventReady)
}

func (p *Player) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ready
}

func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.duration
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.paused
}

func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentPosition()
}

func (p *Player) currentPosition() float64 {
	pos := p.position
	if !p.paused {
		pos += p.now().Sub(p.anchor).Seconds()
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}

	return pos
}

func (p *Player) Seek(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if position < 0 {
		position = 0
	}
	if p.duration > 0 && position > p.duration {
		position = p.duration
	}

	p.position = position
	p.anchor = p.now()
	p.events = append(p.events, EventSeeked)
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return ErrNotReady
	}
	if !p.paused {
		return nil
	}

	p.paused = false
	p.anchor = p.now()
	p.events = append(p.events, EventPlay)
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		return
	}

	p.position = p.currentPosition()
	p.paused = true
	p.events = append(p.events, EventPause)
}

// Tick advances end-of-stream detection. Reaching the end stops playback
// and queues EventEnded.
func (p *Player) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused || p.duration <= 0 {
		return
	}

	if p.currentPosition() >= p.duration {
		p.position = p.duration
		p.paused = true
		p.events = append(p.events, EventEnded)
	}
}

// Drain returns and clears the queued events in the order they happened.
func (p *Player) Drain() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	events := p.events
	p.events = nil
	return events
}

// Run ticks the player and hands queued events to fn until stop is closed.
// fn is called without the player lock held.
func (p *Player) Run(stop <-chan struct{}, interval time.Duration, fn func(Event)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.Tick()
			for _, e := range p.Drain() {
				fn(e)
			}
		}
	}
}
