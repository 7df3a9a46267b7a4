package messagebus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/AbhiLegend/SignalR/pkg/log"
	"github.com/AbhiLegend/SignalR/pkg/metrics"
	"github.com/AbhiLegend/SignalR/pkg/types"
)

// ErrBusClosed is returned by Publish and Subscribe after Stop.
var ErrBusClosed = errors.New("message bus is closed")

// Config holds the engine tuning knobs.
type Config struct {
	// Workers is the broker pool size.
	Workers int
	// QueueDepth is the broker scheduling queue capacity.
	QueueDepth int
	// StoreCapacity is the per-topic message retention.
	StoreCapacity int
	// MaxMessagesPerBatch caps per-topic reads in one delivery run when
	// the subscriber does not pass its own limit.
	MaxMessagesPerBatch int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Workers:             DefaultWorkerCount,
		QueueDepth:          DefaultQueueDepth,
		StoreCapacity:       DefaultStoreCapacity,
		MaxMessagesPerBatch: DefaultMaxMessagesPerBatch,
	}
}

// Bus is the engine facade: it owns the topic table, appends published
// messages to their topic's store and fans delivery work out to the
// broker. It is the sole entry point for publishing and for establishing
// or tearing down subscriptions.
type Bus struct {
	cfg    Config
	topics sync.Map // event key -> *Topic
	broker *Broker
	closed chan struct{}
	logger zerolog.Logger

	closeOnce sync.Once
}

// NewBus creates a bus with the given configuration. Zero-valued fields
// fall back to the defaults.
func NewBus(cfg Config) *Bus {
	return &Bus{
		cfg:    cfg,
		broker: NewBroker(cfg.Workers, cfg.QueueDepth),
		closed: make(chan struct{}),
		logger: log.WithComponent("bus"),
	}
}

// Start launches the broker worker pool.
func (b *Bus) Start() {
	b.broker.Start()
}

// Stop rejects further publishes and subscriptions and shuts the broker
// down. Existing subscriptions are not individually finalized; dispose
// them first if terminal cursors are needed.
func (b *Bus) Stop() {
	b.closeOnce.Do(func() {
		close(b.closed)
		b.broker.Stop()
		b.logger.Info().Msg("bus stopped")
	})
}

// Broker exposes the worker pool for capacity observation.
func (b *Bus) Broker() *Broker {
	return b.broker
}

// Publish appends msg to its topic's store and schedules every current
// subscriber of that topic. It returns once scheduling is enqueued, never
// waiting for delivery, and fails only when ctx is done or the bus is
// stopped.
func (b *Bus) Publish(ctx context.Context, msg types.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.isClosed() {
		return ErrBusClosed
	}

	t := b.topic(msg.Key)
	t.Store.Add(msg)
	metrics.CountPublished()
	t.ForEachSubscription(b.broker.Schedule)
	return nil
}

// Subscribe builds a subscription for the subscriber's current event keys
// and wires its dynamic interest notifications to the bus.
//
// A non-empty cursor resumes each key exactly after its recorded sequence
// id (subject to store eviction) and triggers an immediate catch-up run;
// keys absent from the cursor start at the topic's current position.
// Without a cursor, each key is seeded so the first run delivers the
// latest retained message.
//
// Dispose the returned handle to unregister from every topic; the final
// MessageResult it delivers carries the cursor to resubscribe with.
func (b *Bus) Subscribe(subscriber types.Subscriber, cursor string, callback types.Callback, maxBatch int) (*SubscriptionHandle, error) {
	if b.isClosed() {
		return nil, ErrBusClosed
	}
	if subscriber == nil {
		return nil, errors.New("subscriber is nil")
	}
	if callback == nil {
		return nil, errors.New("callback is nil")
	}

	positions, err := ParseCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}
	if maxBatch <= 0 {
		maxBatch = b.cfg.MaxMessagesPerBatch
	}

	sub := NewSubscription(subscriber.Identity(), callback, maxBatch)
	for _, key := range subscriber.EventKeys() {
		t := b.topic(key)
		from, ok := positions[key]
		if !ok {
			if cursor == "" {
				// Seed one message back so the first run hands the
				// subscriber the latest retained message.
				if max := t.Store.MaxID(); max > 0 {
					from = max - 1
				}
			} else {
				from = t.Store.MaxID()
			}
		}
		sub.SetEventTopic(key, t, from)
		t.AddSubscription(sub)
	}

	obs := &interestObserver{bus: b, sub: sub}
	subscriber.AddObserver(obs)
	metrics.SubscriptionsTotal.Inc()

	subLog := log.WithSubscription(sub.Identity())
	subLog.Debug().
		Int("event_keys", len(subscriber.EventKeys())).
		Bool("resuming", cursor != "").
		Msg("subscription established")

	if cursor != "" {
		b.broker.Schedule(sub)
	}
	return &SubscriptionHandle{bus: b, sub: sub, subscriber: subscriber, obs: obs}, nil
}

func (b *Bus) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// topic resolves or lazily creates the topic for key. Topics are never
// destroyed; garbage is bounded by event-key cardinality.
func (b *Bus) topic(key string) *Topic {
	if v, ok := b.topics.Load(key); ok {
		return v.(*Topic)
	}
	v, loaded := b.topics.LoadOrStore(key, NewTopic(key, b.cfg.StoreCapacity))
	if !loaded {
		metrics.TopicsTotal.Inc()
		topicLog := log.WithTopic(key)
		topicLog.Debug().Msg("topic created")
	}
	return v.(*Topic)
}

// interestObserver keeps a subscription's cursor set and topic membership
// in sync with the subscriber's dynamic event-key interest.
type interestObserver struct {
	bus *Bus
	sub *Subscription
}

func (o *interestObserver) EventAdded(key string) {
	t := o.bus.topic(key)
	o.sub.AddEvent(key, t)
	t.AddSubscription(o.sub)
}

func (o *interestObserver) EventRemoved(key string) {
	if v, ok := o.bus.topics.Load(key); ok {
		v.(*Topic).RemoveSubscription(o.sub)
	}
	o.sub.RemoveEvent(key)
}

// SubscriptionHandle is the caller's grip on a live subscription.
type SubscriptionHandle struct {
	bus        *Bus
	sub        *Subscription
	subscriber types.Subscriber
	obs        types.InterestObserver
	once       sync.Once
}

// Cursor returns the subscription's current resumption cursor.
func (h *SubscriptionHandle) Cursor() string {
	return h.sub.Cursor()
}

// Subscription returns the underlying subscription, for state observation.
func (h *SubscriptionHandle) Subscription() *Subscription {
	return h.sub
}

// Dispose tears the subscription down: it unhooks the interest observer,
// unregisters from every topic and delivers exactly one terminal
// MessageResult carrying the final cursor. A run already in flight is
// allowed to finish first and delivers the terminal result itself.
// Disposing twice is a no-op.
func (h *SubscriptionHandle) Dispose() {
	h.once.Do(func() {
		h.subscriber.RemoveObserver(h.obs)
		for _, t := range h.sub.EventTopics() {
			t.RemoveSubscription(h.sub)
		}
		old := SubscriptionState(h.sub.state.Swap(int32(StateDisposed)))
		metrics.SubscriptionsTotal.Dec()
		disposeLog := log.WithSubscription(h.sub.Identity())
		disposeLog.Debug().
			Str("prior_state", old.String()).
			Msg("subscription disposed")
		if old != StateRunning {
			h.sub.finalize(h.bus.broker.ctx)
		}
	})
}
