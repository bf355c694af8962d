package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Factory builds a machine for a new session id.
type Factory func(id string) *Machine

// Store keeps the live wizard sessions, keyed by an opaque session id.
// Idle sessions are evicted by the janitor.
type Store struct {
	mu       sync.Mutex
	factory  Factory
	sessions map[string]*entry
	onEvict  func(id string)
}

type entry struct {
	machine  *Machine
	lastSeen time.Time
}

// NewStore builds a session store. onEvict may be nil; it runs for
// every session the janitor removes.
func NewStore(factory Factory, onEvict func(id string)) *Store {
	return &Store{
		factory:  factory,
		sessions: make(map[string]*entry),
		onEvict:  onEvict,
	}
}

// Create starts a fresh session and returns its machine.
func (s *Store) Create() *Machine {
	id := uuid.New().String()
	m := s.factory(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &entry{machine: m, lastSeen: time.Now()}
	return m
}

// Get returns the machine for a session id and refreshes its idle
// timer.
func (s *Store) Get(id string) (*Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.machine, true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartJanitor evicts sessions idle longer than ttl until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle(ttl)
			}
		}
	}()
}

func (s *Store) evictIdle(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	var evicted []string

	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	for _, id := range evicted {
		logrus.WithField("session", id).Info("evicting idle wizard session")
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}
}
