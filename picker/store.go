package picker

import (
	"sync"

	"github.com/hrygo/timescope/resolver"
)

// LiveStore is a minimal publish/subscribe cell broadcasting the last
// successfully resolved payload to decoupled consumers.
//
// Listeners are notified synchronously on every SetSnapshot call,
// including redundant calls with an unchanged value. Consumers that want
// deduplication compare against their own last-seen value.
type LiveStore struct {
	mu        sync.Mutex
	snapshot  *resolver.ResolvedPayload
	listeners map[int]func(*resolver.ResolvedPayload)
	nextID    int
}

// NewLiveStore creates an empty live store.
func NewLiveStore() *LiveStore {
	return &LiveStore{listeners: make(map[int]func(*resolver.ResolvedPayload))}
}

// Snapshot returns the last published payload, nil before the first
// publish or after a clear.
func (s *LiveStore) Snapshot() *resolver.ResolvedPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *LiveStore) Subscribe(fn func(*resolver.ResolvedPayload)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SetSnapshot publishes next and notifies every listener synchronously,
// without deduplication. Listeners run outside the lock so they may
// re-read Snapshot or unsubscribe.
func (s *LiveStore) SetSnapshot(next *resolver.ResolvedPayload) {
	s.mu.Lock()
	s.snapshot = next
	fns := make([]func(*resolver.ResolvedPayload), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
