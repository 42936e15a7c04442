// Package selection holds the process-wide account selection. Select is the
// only way to change it; every other package only reads or subscribes.
package selection

import (
	"strings"
	"sync"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
)

// Listener is called synchronously after every Select, in subscription order.
type Listener func(account core.Account)

type Store struct {
	// writeMu serialises Select end to end so listeners observe selections
	// in the order they were made. Listeners must not call Select.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	current   core.Account
	listeners []subscription
	nextSubID int
	logger    *log.Logger
}

type subscription struct {
	id int
	fn Listener
}

// New returns a store with an initial selection. A zero account means
// nothing is selected.
func New(initial core.Account, logger *log.Logger) *Store {
	return &Store{
		current: initial,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentSelection),
	}
}

// Current returns the selected account and whether one is selected.
func (s *Store) Current() (core.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, !s.current.IsZero()
}

// Select replaces the selection and notifies subscribers before returning.
func (s *Store) Select(id int64, name string) {
	account := core.Account{ID: id, Name: strings.TrimSpace(name)}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = account
	listeners := make([]Listener, 0, len(s.listeners))
	for _, sub := range s.listeners {
		listeners = append(listeners, sub.fn)
	}
	s.mu.Unlock()

	s.logger.Debug("Account selected",
		log.FieldAccountID, id,
		log.FieldAccountName, account.Name)

	for _, fn := range listeners {
		fn(account)
	}
}

// Clear drops the selection.
func (s *Store) Clear() {
	s.Select(0, "")
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}
