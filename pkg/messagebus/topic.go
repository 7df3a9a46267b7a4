package messagebus

import "sync"

// Topic owns one message store plus the set of subscriptions interested in
// its event key. The subscription list is guarded by a reader/writer lock:
// fan-out scans after a publish proceed in parallel under the read lock,
// subscribe/unsubscribe take the write lock.
type Topic struct {
	Key   string
	Store *MessageStore

	mu   sync.RWMutex
	subs []*Subscription
}

// NewTopic creates a topic with a store of the given capacity.
func NewTopic(key string, capacity int) *Topic {
	return &Topic{
		Key:   key,
		Store: NewMessageStore(capacity),
	}
}

// AddSubscription registers sub with the topic. Idempotent.
func (t *Topic) AddSubscription(sub *Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.subs {
		if s == sub {
			return
		}
	}
	t.subs = append(t.subs, sub)
}

// RemoveSubscription unregisters sub. Removing an unknown subscription is a
// no-op.
func (t *Topic) RemoveSubscription(sub *Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// ForEachSubscription invokes fn for every current subscription under the
// read lock. fn must not call back into AddSubscription or
// RemoveSubscription on the same topic.
func (t *Topic) ForEachSubscription(fn func(sub *Subscription)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.subs {
		fn(s)
	}
}

// SubscriptionCount returns the number of registered subscriptions.
func (t *Topic) SubscriptionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
