package messagebus

import (
	"sync"

	"github.com/AbhiLegend/SignalR/pkg/types"
)

// DefaultStoreCapacity is the per-topic message retention used when the
// configuration does not override it.
const DefaultStoreCapacity = 5000

// MessageStore is a fixed-capacity, append-only ring buffer of messages for
// one topic. Each appended message is assigned the next sequence id; once
// capacity is exceeded the oldest entries are silently overwritten.
type MessageStore struct {
	mu       sync.RWMutex
	capacity uint64
	entries  []types.Message
	nextID   uint64 // last assigned id; first Add returns 1
}

// NewMessageStore creates a store retaining at most capacity messages.
// A capacity <= 0 falls back to DefaultStoreCapacity.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &MessageStore{
		capacity: uint64(capacity),
		entries:  make([]types.Message, capacity),
	}
}

// Add appends a message and returns its assigned sequence id. Safe for
// concurrent publishers; no two calls observe the same id.
func (s *MessageStore) Add(msg types.Message) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg.SequenceID = s.nextID
	s.entries[(s.nextID-1)%s.capacity] = msg
	return s.nextID
}

// GetMessages returns up to maxCount messages with id > fromID, oldest
// first. If fromID predates the retained window the caller has fallen
// behind retention and receives whatever is still held; the gap is silent.
func (s *MessageStore) GetMessages(fromID uint64, maxCount int) []types.Message {
	if maxCount <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := fromID + 1
	if oldest := s.oldestIDLocked(); start < oldest {
		start = oldest
	}
	if start > s.nextID {
		return nil
	}

	end := s.nextID
	if n := end - start + 1; n > uint64(maxCount) {
		end = start + uint64(maxCount) - 1
	}

	out := make([]types.Message, 0, end-start+1)
	for id := start; id <= end; id++ {
		out = append(out, s.entries[(id-1)%s.capacity])
	}
	return out
}

// MaxID returns the most recently assigned sequence id, 0 if empty.
func (s *MessageStore) MaxID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// OldestID returns the oldest retained sequence id, 0 if empty. Subscribers
// can compare it against their cursor to detect backlog overrun.
func (s *MessageStore) OldestID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.nextID == 0 {
		return 0
	}
	return s.oldestIDLocked()
}

// Len returns the number of retained messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.nextID < s.capacity {
		return int(s.nextID)
	}
	return int(s.capacity)
}

func (s *MessageStore) oldestIDLocked() uint64 {
	if s.nextID <= s.capacity {
		return 1
	}
	return s.nextID - s.capacity + 1
}
