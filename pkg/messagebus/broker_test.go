package messagebus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/AbhiLegend/SignalR/pkg/types"
)

// TestBrokerSingleFlightPerSubscription floods one subscription with
// concurrent publish storms and verifies its callback is never reentered.
func TestBrokerSingleFlightPerSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(8, 64)
	broker.Start()
	defer broker.Stop()

	topic := NewTopic("a", 10000)

	var (
		inFlight    atomic.Int32
		maxInFlight atomic.Int32
		delivered   atomic.Int64
	)
	sub := NewSubscription("s1", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		cur := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if cur <= m || maxInFlight.CompareAndSwap(m, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		delivered.Add(int64(len(r.Messages)))
		inFlight.Add(-1)
		return true, nil
	}, 0)
	sub.SetEventTopic("a", topic, 0)

	const (
		publishers = 5
		perPub     = 100
	)
	var wg sync.WaitGroup
	wg.Add(publishers)
	for p := 0; p < publishers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perPub; i++ {
				topic.Store.Add(types.Message{Key: "a"})
				broker.Schedule(sub)
			}
		}()
	}
	wg.Wait()

	waitUntil(t, 5*time.Second, func() bool {
		return delivered.Load() == publishers*perPub
	})
	assert.Equal(t, int32(1), maxInFlight.Load(), "callback was reentered")
	waitUntil(t, time.Second, func() bool { return sub.State() == StateIdle })
}

// TestBrokerOwedRerunDeliversLatePublish verifies a publish landing while
// a run is in flight is delivered by the folded rerun, without another
// publish.
func TestBrokerOwedRerunDeliversLatePublish(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(2, 16)
	broker.Start()
	defer broker.Stop()

	topic := NewTopic("a", 100)

	var (
		delivered atomic.Int64
		first     atomic.Bool
	)
	first.Store(true)
	entered := make(chan struct{})
	release := make(chan struct{})

	sub := NewSubscription("s1", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		if first.CompareAndSwap(true, false) {
			close(entered)
			<-release
		}
		delivered.Add(int64(len(r.Messages)))
		return true, nil
	}, 0)
	sub.SetEventTopic("a", topic, 0)

	topic.Store.Add(types.Message{Key: "a"})
	broker.Schedule(sub)
	<-entered

	// Races in while the first run is executing.
	topic.Store.Add(types.Message{Key: "a"})
	broker.Schedule(sub)
	close(release)

	waitUntil(t, 2*time.Second, func() bool { return delivered.Load() == 2 })
	waitUntil(t, time.Second, func() bool { return sub.State() == StateIdle })
}

// TestBrokerBacklogDrainWithoutRepublish verifies a backlog larger than
// one batch is drained by immediate rescheduling.
func TestBrokerBacklogDrainWithoutRepublish(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(4, 16)
	broker.Start()
	defer broker.Stop()

	topic := NewTopic("a", 1000)
	for i := 0; i < 57; i++ {
		topic.Store.Add(types.Message{Key: "a"})
	}

	var delivered atomic.Int64
	sub := NewSubscription("s1", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		delivered.Add(int64(len(r.Messages)))
		return true, nil
	}, 10)
	sub.SetEventTopic("a", topic, 0)

	broker.Schedule(sub)
	waitUntil(t, 2*time.Second, func() bool { return delivered.Load() == 57 })
}

// TestBrokerCallbackErrorLeavesIdle verifies a failing callback is not
// rescheduled automatically but remains schedulable.
func TestBrokerCallbackErrorLeavesIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(2, 16)
	broker.Start()
	defer broker.Stop()

	topic := NewTopic("a", 100)

	var invocations atomic.Int64
	sub := NewSubscription("s1", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		if invocations.Add(1) == 1 {
			return true, fmt.Errorf("subscriber hung up")
		}
		return true, nil
	}, 0)
	sub.SetEventTopic("a", topic, 0)

	topic.Store.Add(types.Message{Key: "a"})
	broker.Schedule(sub)

	waitUntil(t, 2*time.Second, func() bool { return sub.State() == StateIdle })
	settles(t, 50*time.Millisecond, func() bool { return invocations.Load() == 1 })

	// A fresh publish schedules it again.
	topic.Store.Add(types.Message{Key: "a"})
	broker.Schedule(sub)
	waitUntil(t, 2*time.Second, func() bool { return invocations.Load() == 2 })
}

// TestBrokerCallbackPanicRecovered verifies a panicking subscriber never
// takes down the pool or other subscribers.
func TestBrokerCallbackPanicRecovered(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(2, 16)
	broker.Start()
	defer broker.Stop()

	topic := NewTopic("a", 100)

	bad := NewSubscription("bad", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		panic("boom")
	}, 0)
	bad.SetEventTopic("a", topic, 0)

	var delivered atomic.Int64
	good := NewSubscription("good", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		delivered.Add(int64(len(r.Messages)))
		return true, nil
	}, 0)
	good.SetEventTopic("a", topic, 0)

	topic.Store.Add(types.Message{Key: "a"})
	broker.Schedule(bad)
	broker.Schedule(good)

	waitUntil(t, 2*time.Second, func() bool { return delivered.Load() == 1 })
	waitUntil(t, time.Second, func() bool { return bad.State() == StateIdle })
}

// TestBrokerScheduleDisposedIsNoop covers scheduling racing with disposal.
func TestBrokerScheduleDisposedIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(2, 16)
	broker.Start()
	defer broker.Stop()

	topic := NewTopic("a", 100)

	var invocations atomic.Int64
	sub := NewSubscription("s1", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		invocations.Add(1)
		return true, nil
	}, 0)
	sub.SetEventTopic("a", topic, 0)
	sub.state.Store(int32(StateDisposed))

	topic.Store.Add(types.Message{Key: "a"})
	broker.Schedule(sub)
	broker.Schedule(nil)

	settles(t, 50*time.Millisecond, func() bool { return invocations.Load() == 0 })
	assert.Equal(t, StateDisposed, sub.State())
}

func TestBrokerWorkerAccounting(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewBroker(3, 16)
	broker.Start()
	defer broker.Stop()

	assert.Equal(t, 3, broker.AllocatedWorkers())
	assert.Equal(t, 0, broker.BusyWorkers())

	topic := NewTopic("a", 100)
	topic.Store.Add(types.Message{Key: "a"})

	blocked := make(chan struct{})
	release := make(chan struct{})
	sub := NewSubscription("s1", func(ctx context.Context, r *types.MessageResult) (bool, error) {
		close(blocked)
		<-release
		return true, nil
	}, 0)
	sub.SetEventTopic("a", topic, 0)

	broker.Schedule(sub)
	<-blocked
	assert.Equal(t, 1, broker.BusyWorkers())
	close(release)

	waitUntil(t, time.Second, func() bool { return broker.BusyWorkers() == 0 })
}

func TestBrokerDefaults(t *testing.T) {
	broker := NewBroker(0, 0)
	assert.Equal(t, DefaultWorkerCount, broker.AllocatedWorkers())
}
