// Package shell tracks whether the sidebar is open and when its open/close
// affordances become interactable.
package shell

import (
	"sync"
	"time"

	"ledgerdesk/internal/log"
)

type State string

const (
	Open   State = "open"
	Closed State = "closed"
)

// Snapshot is the layout as of one instant.
type Snapshot struct {
	State State
	// CloseReady is true when the sidebar is open and its close control
	// accepts input.
	CloseReady bool
	// OpenReady is true when the sidebar is closed and the top bar's open
	// control accepts input.
	OpenReady bool
	// ReadyIn is how long until the visible affordance accepts input.
	ReadyIn time.Duration
}

type Layout struct {
	mu        sync.Mutex
	state     State
	changedAt time.Time
	delay     time.Duration
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*Layout)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Layout) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Layout) { l.logger = log.OrDiscard(logger).WithComponent(log.ComponentShell) }
}

// New returns an open layout whose affordances wait delay after every
// transition. The initial state counts as a transition at construction.
func New(delay time.Duration, opts ...Option) *Layout {
	l := &Layout{
		state:  Open,
		delay:  delay,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.changedAt = l.now()
	return l
}

// Toggle flips the state and returns the new one.
func (l *Layout) Toggle() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Open {
		l.setLocked(Closed)
	} else {
		l.setLocked(Open)
	}
	return l.state
}

// Open opens the sidebar. Opening an open sidebar changes nothing.
func (l *Layout) Open() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Open {
		l.setLocked(Open)
	}
}

// Close closes the sidebar. Closing a closed sidebar changes nothing.
func (l *Layout) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Closed {
		l.setLocked(Closed)
	}
}

func (l *Layout) setLocked(s State) {
	l.state = s
	l.changedAt = l.now()
	l.logger.Debug("Shell state changed", "state", string(s))
}

// State returns the current state.
func (l *Layout) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Delay returns the affordance delay.
func (l *Layout) Delay() time.Duration {
	return l.delay
}

// Snapshot reports the layout as of now.
func (l *Layout) Snapshot(now time.Time) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.delay - now.Sub(l.changedAt)
	ready := remaining <= 0
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		State:      l.state,
		CloseReady: l.state == Open && ready,
		OpenReady:  l.state == Closed && ready,
		ReadyIn:    remaining,
	}
}

// Now returns a snapshot using the layout's clock.
func (l *Layout) Now() Snapshot {
	return l.Snapshot(l.now())
}
