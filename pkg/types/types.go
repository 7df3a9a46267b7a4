package types

import "context"

// Message is a single immutable message flowing through the bus.
// SequenceID is assigned by the owning topic's store at append time; it is
// unique and strictly increasing within a topic, not globally across topics.
type Message struct {
	Key        string
	Value      []byte
	SequenceID uint64
}

// MessageResult is one delivery batch handed to a subscriber callback.
// Cursor encodes the subscription's per-topic read positions after this
// batch. Terminal is true exactly once, on the final result delivered when
// the subscription is disposed, so the caller can persist the cursor for
// later resumption.
type MessageResult struct {
	Messages []Message
	Cursor   string
	Terminal bool
}

// Callback is invoked by a broker worker with each delivery batch. The
// returned bool means "keep delivering": false stops scheduling until the
// next publish re-triggers the subscription. An error is logged at the
// worker boundary and treated the same as returning false.
//
// The broker guarantees at most one in-flight Callback invocation per
// subscription, so the callback may mutate subscriber-local state without
// synchronization.
type Callback func(ctx context.Context, result *MessageResult) (bool, error)

// Subscriber is implemented by the outer connection layer. It exposes a
// stable identity, the current set of event keys the subscriber cares
// about, and observer registration so the bus can track interest changes
// for the lifetime of a subscription.
type Subscriber interface {
	Identity() string
	EventKeys() []string
	AddObserver(obs InterestObserver)
	RemoveObserver(obs InterestObserver)
}

// InterestObserver receives dynamic interest-change notifications from a
// Subscriber. The bus registers one per subscription to keep the
// subscription's cursor set and topic membership in sync.
type InterestObserver interface {
	EventAdded(key string)
	EventRemoved(key string)
}
