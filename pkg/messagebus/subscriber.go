package messagebus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/AbhiLegend/SignalR/pkg/types"
)

// LocalSubscriber is a ready-made in-process types.Subscriber with a
// mutable event-key set. AddEvent and RemoveEvent notify every registered
// interest observer, so a live subscription built on it follows interest
// changes without resubscribing.
type LocalSubscriber struct {
	identity string

	mu        sync.Mutex
	keys      []string
	observers []types.InterestObserver
}

// NewLocalSubscriber creates a subscriber interested in the given event
// keys. An empty identity gets a generated UUID.
func NewLocalSubscriber(identity string, keys ...string) *LocalSubscriber {
	if identity == "" {
		identity = uuid.NewString()
	}
	s := &LocalSubscriber{identity: identity}
	s.keys = append(s.keys, keys...)
	return s
}

// Identity returns the stable subscriber identity.
func (s *LocalSubscriber) Identity() string {
	return s.identity
}

// EventKeys returns a copy of the current interest set.
func (s *LocalSubscriber) EventKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// AddObserver registers an interest observer.
func (s *LocalSubscriber) AddObserver(obs types.InterestObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// RemoveObserver unregisters a previously added observer.
func (s *LocalSubscriber) RemoveObserver(obs types.InterestObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == obs {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// AddEvent adds key to the interest set and notifies observers.
// Idempotent.
func (s *LocalSubscriber) AddEvent(key string) {
	s.mu.Lock()
	for _, k := range s.keys {
		if k == key {
			s.mu.Unlock()
			return
		}
	}
	s.keys = append(s.keys, key)
	observers := append([]types.InterestObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, obs := range observers {
		obs.EventAdded(key)
	}
}

// RemoveEvent drops key from the interest set and notifies observers.
// Removing an unknown key is a no-op.
func (s *LocalSubscriber) RemoveEvent(key string) {
	s.mu.Lock()
	found := false
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			found = true
			break
		}
	}
	observers := append([]types.InterestObserver(nil), s.observers...)
	s.mu.Unlock()

	if !found {
		return
	}
	for _, obs := range observers {
		obs.EventRemoved(key)
	}
}
