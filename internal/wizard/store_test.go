package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"founderframe/internal/fanout"
)

func newStoreForTest(onEvict func(id string)) *Store {
	return NewStore(func(id string) *Machine {
		gen := &fakeGen{}
		runner := fanout.NewRunner(gen, 8, time.Millisecond)
		return NewMachine(id, gen, runner, nil, nil, nil, Config{HasCredential: true})
	}, onEvict)
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newStoreForTest(nil)

	m := s.Create()
	if m == nil {
		t.Fatal("Create returned nil")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("Get returned a machine for an unknown id")
	}
}

func TestStore_JanitorEvictsIdleSessions(t *testing.T) {
	var (
		mu      sync.Mutex
		evicted []string
	)
	s := newStoreForTest(func(id string) {
		mu.Lock()
		evicted = append(evicted, id)
		mu.Unlock()
	})

	s.Create()
	s.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 10*time.Millisecond, 20*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.Len() > 0 {
		time.Sleep(10 * time.Millisecond)
	}

	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after eviction", s.Len())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(evicted) != 2 {
		t.Errorf("evict callback ran %d times, want 2", len(evicted))
	}
}

func TestStore_GetRefreshesIdleTimer(t *testing.T) {
	s := newStoreForTest(nil)
	m := s.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 10*time.Millisecond, 60*time.Millisecond)

	// Keep touching the session past the ttl; it must survive.
	for i := 0; i < 10; i++ {
		if _, ok := s.Get(m.ID()); !ok {
			t.Fatalf("session evicted on touch %d despite activity", i)
		}
		time.Sleep(15 * time.Millisecond)
	}
}
