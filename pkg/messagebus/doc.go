/*
Package messagebus implements the in-process publish/subscribe engine at
the core of the SignalR messaging stack.

Messages fan in on event keys (topics) and fan out to many concurrent
subscribers, each resuming from an arbitrary position via an opaque
cursor. The engine provides per-topic FIFO ordering, bounded per-topic
history, and serialized, non-overlapping delivery per subscriber while
running deliveries for different subscribers in parallel.

# Architecture

	┌───────────────────────── MESSAGE BUS ─────────────────────────┐
	│                                                               │
	│  Publish(msg) ──► topic table (sync.Map, insert-if-absent)    │
	│                        │                                      │
	│         ┌──────────────▼──────────────┐                       │
	│         │            Topic            │  one per event key    │
	│         │  MessageStore (ring, 5000)  │  ids monotonic        │
	│         │  subscriptions (RWMutex)    │  fan-out under RLock  │
	│         └──────────────┬──────────────┘                       │
	│                        │ Schedule(sub) per subscriber         │
	│         ┌──────────────▼──────────────┐                       │
	│         │           Broker            │                       │
	│         │  bounded worker pool        │                       │
	│         │  single-flight per sub      │                       │
	│         │  owed-rerun folding         │                       │
	│         └──────────────┬──────────────┘                       │
	│                        │ run: read > cursor per topic,        │
	│                        │ merge, advance cursors, callback     │
	│         ┌──────────────▼──────────────┐                       │
	│         │        Subscription         │                       │
	│         │  Idle/Queued/Running/       │                       │
	│         │  Disposed state machine     │                       │
	│         │  cursors: key → lastID      │                       │
	│         └─────────────────────────────┘                       │
	└───────────────────────────────────────────────────────────────┘

# Core Components

MessageStore:
  - Fixed-capacity ring buffer per topic (default 5000 messages)
  - Assigns strictly increasing per-topic sequence ids starting at 1
  - Appending past capacity silently evicts the oldest entry
  - OldestID lets subscribers detect backlog overrun

Topic:
  - Owns one store plus the subscription list for its event key
  - Reader/writer lock: parallel fan-out scans, exclusive membership edits
  - Created lazily on first publish or subscribe, never destroyed

Subscription:
  - Per-key cursors tracking the last delivered sequence id
  - Atomic state machine Idle -> Queued -> Running -> Idle, any -> Disposed
  - Event keys can be added and removed while live

Broker:
  - Bounded worker pool pulling subscriptions from a shared queue
  - At most one in-flight delivery run per subscription, always
  - Schedule calls during a run fold into a single owed rerun
  - Callback errors and panics are recovered at the worker boundary

Bus:
  - Facade wiring Publish and Subscribe to the above
  - Publish returns once fan-out scheduling is enqueued
  - Subscribe registers dynamic interest observers on the subscriber

# Delivery Semantics

Within one topic, messages are delivered to each subscription in
non-decreasing sequence-id order; cursors only advance. Across topics
within one batch no relative order is guaranteed. At-least-once,
in-process only: a subscriber resuming from a cursor older than the
topic's retained window silently receives whatever is still held.

Each delivery run reads up to MaxMessagesPerBatch messages per tracked
topic. When any topic returned a full batch the run is rescheduled
immediately to drain backlog rather than waiting for the next publish.

# Cursors

A cursor is an opaque string encoding the per-key read positions, e.g.
"chat.room1,42|presence,7". It round-trips: resubscribing with a
previously emitted cursor resumes exactly after the last delivered
message, provided nothing was evicted. Disposal delivers one terminal
MessageResult carrying the final cursor so callers can persist it (see
pkg/cursor).

# Usage

	bus := messagebus.NewBus(messagebus.DefaultConfig())
	bus.Start()
	defer bus.Stop()

	subscriber := messagebus.NewLocalSubscriber("conn-42", "chat.room1")
	handle, err := bus.Subscribe(subscriber, savedCursor,
		func(ctx context.Context, r *types.MessageResult) (bool, error) {
			for _, m := range r.Messages {
				deliver(m)
			}
			return true, nil
		}, 0)
	if err != nil {
		return err
	}
	defer handle.Dispose()

	_ = bus.Publish(ctx, types.Message{Key: "chat.room1", Value: payload})

	// Interest changes follow the subscriber without resubscribing:
	subscriber.AddEvent("chat.room2")
	subscriber.RemoveEvent("chat.room1")

# Failure Handling

A callback error or panic is logged, counted, and treated as if the
callback returned false: the subscription is left Idle and is not
rescheduled until the next publish. One misbehaving subscriber never
blocks the pool or other subscribers; a stalled callback occupies exactly
its one worker slot.

# Limitations

  - No durability across restarts; persist cursors via pkg/cursor
  - No cross-process delivery
  - Backlog overrun is silent (compare cursor against Store.OldestID)
  - No callback timeout; bound stalls with the callback's own context

# See Also

  - pkg/types for the shared data model
  - pkg/cursor for cursor persistence
  - pkg/metrics for the published counters and pool gauges
*/
package messagebus
