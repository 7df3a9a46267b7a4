package messagebus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AbhiLegend/SignalR/pkg/types"
)

// DefaultMaxMessagesPerBatch caps how many messages one topic contributes
// to a single delivery run when the subscriber does not specify a limit.
const DefaultMaxMessagesPerBatch = 100

// SubscriptionState is the scheduling state of a subscription.
type SubscriptionState int32

const (
	// StateIdle: not queued, not running; Schedule enqueues it.
	StateIdle SubscriptionState = iota
	// StateQueued: waiting in the broker queue for a worker.
	StateQueued
	// StateRunning: a worker is executing its delivery run.
	StateRunning
	// StateDisposed: terminal; Schedule is a no-op, in-flight runs finish
	// but never reschedule.
	StateDisposed
)

func (s SubscriptionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Subscription tracks one subscriber's read position across a dynamic set
// of event keys and carries the callback invoked with new messages.
//
// Scheduling fields form a small atomic state machine
// (Idle -> Queued -> Running -> Idle, any -> Disposed) driven by the
// broker; the owed flag records Schedule calls that arrive while a run is
// already queued or executing, so a hot subscription occupies at most one
// queue slot no matter how many publishes race in.
type Subscription struct {
	identity string
	callback types.Callback
	maxBatch int

	state atomic.Int32
	owed  atomic.Bool

	mu      sync.RWMutex
	cursors map[string]*topicCursor

	finalOnce sync.Once
}

type topicCursor struct {
	topic  *Topic
	lastID uint64
}

// NewSubscription creates a subscription for the given subscriber identity.
// maxBatch <= 0 falls back to DefaultMaxMessagesPerBatch.
func NewSubscription(identity string, callback types.Callback, maxBatch int) *Subscription {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxMessagesPerBatch
	}
	return &Subscription{
		identity: identity,
		callback: callback,
		maxBatch: maxBatch,
		cursors:  make(map[string]*topicCursor),
	}
}

// Identity returns the subscriber identity this subscription serves.
func (s *Subscription) Identity() string {
	return s.identity
}

// State returns the current scheduling state.
func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// SetEventTopic registers interest in key with an explicit starting
// position: messages with id > fromID will be delivered. Overwrites any
// existing entry for key.
func (s *Subscription) SetEventTopic(key string, topic *Topic, fromID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key] = &topicCursor{topic: topic, lastID: fromID}
}

// AddEvent registers interest in key seeded at the topic's current maximum
// id, meaning no backlog: only messages published after this call are
// delivered. Idempotent for keys already tracked.
func (s *Subscription) AddEvent(key string, topic *Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cursors[key]; ok {
		return
	}
	s.cursors[key] = &topicCursor{topic: topic, lastID: topic.Store.MaxID()}
}

// RemoveEvent drops the cursor entry for key. Removing an unknown key is a
// no-op. The topic-side unregistration is a separate call made by the bus.
func (s *Subscription) RemoveEvent(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, key)
}

// EventTopics returns a snapshot of the tracked key -> topic mapping.
func (s *Subscription) EventTopics() map[string]*Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Topic, len(s.cursors))
	for key, c := range s.cursors {
		out[key] = c.topic
	}
	return out
}

// Cursor serializes the current per-key read positions into the opaque
// wire form accepted by Bus.Subscribe.
func (s *Subscription) Cursor() string {
	s.mu.RLock()
	positions := make(map[string]uint64, len(s.cursors))
	for key, c := range s.cursors {
		positions[key] = c.lastID
	}
	s.mu.RUnlock()
	return EncodeCursor(positions)
}

// run executes one delivery batch: read up to maxBatch new messages per
// tracked topic, advance the cursors to what was actually read, and invoke
// the callback if anything accumulated. rerun asks the broker to
// reschedule immediately because a full batch suggests remaining backlog;
// stop means the subscriber declined further delivery and any owed rerun
// must be discarded.
//
// Per-topic FIFO order is preserved; relative order across topics within
// one batch is unspecified. Single-flight execution is enforced by the
// broker, never by this method.
func (s *Subscription) run(ctx context.Context) (rerun, stop bool, err error) {
	type source struct {
		key   string
		topic *Topic
		from  uint64
	}

	s.mu.RLock()
	sources := make([]source, 0, len(s.cursors))
	for key, c := range s.cursors {
		sources = append(sources, source{key: key, topic: c.topic, from: c.lastID})
	}
	s.mu.RUnlock()

	var merged []types.Message
	advanced := make(map[string]uint64, len(sources))
	more := false
	for _, src := range sources {
		batch := src.topic.Store.GetMessages(src.from, s.maxBatch)
		if len(batch) == 0 {
			continue
		}
		if len(batch) == s.maxBatch {
			more = true
		}
		merged = append(merged, batch...)
		advanced[src.key] = batch[len(batch)-1].SequenceID
	}

	if len(advanced) > 0 {
		s.mu.Lock()
		for key, id := range advanced {
			// The key may have been removed while reading; cursors only
			// move forward.
			if c, ok := s.cursors[key]; ok && c.lastID < id {
				c.lastID = id
			}
		}
		s.mu.Unlock()
	}

	if len(merged) == 0 {
		return false, false, nil
	}

	keep, err := s.callback(ctx, &types.MessageResult{
		Messages: merged,
		Cursor:   s.Cursor(),
	})
	if err != nil {
		return false, true, err
	}
	if !keep {
		return false, true, nil
	}
	return more, false, nil
}

// finalize delivers the one terminal MessageResult carrying the final
// cursor. Safe to call from both the disposing goroutine and a broker
// worker; only the first call delivers.
func (s *Subscription) finalize(ctx context.Context) {
	s.finalOnce.Do(func() {
		// A panicking callback must not escape into Dispose or a worker.
		defer func() { _ = recover() }()
		_, _ = s.callback(ctx, &types.MessageResult{
			Cursor:   s.Cursor(),
			Terminal: true,
		})
	})
}
