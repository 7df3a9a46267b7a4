package messagebus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/AbhiLegend/SignalR/pkg/log"
	"github.com/AbhiLegend/SignalR/pkg/metrics"
)

const (
	// DefaultWorkerCount is the broker pool size when not configured.
	DefaultWorkerCount = 8
	// DefaultQueueDepth is the scheduling queue capacity. The queue holds
	// at most one entry per subscription, so this only matters when more
	// subscriptions than this are runnable at once; enqueueing past it
	// hands off to a goroutine instead of blocking the publisher.
	DefaultQueueDepth = 1024
)

// Broker is a bounded worker pool that executes subscription delivery
// runs. It guarantees at most one worker services a given subscription at
// any time: Schedule calls that arrive while the subscription is already
// queued or running are folded into a single owed rerun.
type Broker struct {
	workers int
	queue   chan *Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	busy   atomic.Int64

	logger zerolog.Logger
}

// NewBroker creates a broker with the given pool size and queue depth.
// Non-positive values fall back to the defaults.
func NewBroker(workers, queueDepth int) *Broker {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		workers: workers,
		queue:   make(chan *Subscription, queueDepth),
		ctx:     ctx,
		cancel:  cancel,
		logger:  log.WithComponent("broker"),
	}
}

// Start launches the worker pool.
func (b *Broker) Start() {
	b.wg.Add(b.workers)
	for i := 0; i < b.workers; i++ {
		go b.worker()
	}
	metrics.WorkersAllocated.Set(float64(b.workers))
	b.logger.Info().Int("workers", b.workers).Msg("broker started")
}

// Stop cancels in-flight callback contexts and waits for all workers to
// return. Subscriptions still queued are left in the Queued state and are
// not serviced.
func (b *Broker) Stop() {
	b.cancel()
	b.wg.Wait()
	metrics.WorkersAllocated.Set(0)
	b.logger.Info().Msg("broker stopped")
}

// Schedule requests a delivery run for sub. Idle subscriptions are queued;
// subscriptions already queued or running are flagged for a rerun instead
// of being enqueued twice. Scheduling a disposed subscription is a no-op.
func (b *Broker) Schedule(sub *Subscription) {
	if sub == nil {
		return
	}
	for {
		switch sub.State() {
		case StateDisposed, StateQueued:
			return
		case StateRunning:
			sub.owed.Store(true)
			if sub.State() == StateRunning {
				return
			}
			// The run finished while flagging; loop so the rerun is not lost.
		case StateIdle:
			if sub.state.CompareAndSwap(int32(StateIdle), int32(StateQueued)) {
				b.enqueue(sub)
				return
			}
		}
	}
}

// AllocatedWorkers returns the pool size.
func (b *Broker) AllocatedWorkers() int {
	return b.workers
}

// BusyWorkers returns how many workers are currently executing a run.
func (b *Broker) BusyWorkers() int {
	return int(b.busy.Load())
}

func (b *Broker) enqueue(sub *Subscription) {
	select {
	case b.queue <- sub:
		return
	default:
	}
	// Queue saturated; hand off so the publisher never blocks on delivery.
	go func() {
		select {
		case b.queue <- sub:
		case <-b.ctx.Done():
		}
	}()
}

func (b *Broker) worker() {
	defer b.wg.Done()
	for {
		select {
		case sub := <-b.queue:
			b.service(sub)
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Broker) service(sub *Subscription) {
	if !sub.state.CompareAndSwap(int32(StateQueued), int32(StateRunning)) {
		// Disposed while queued; the disposing goroutine delivers the
		// terminal result.
		return
	}

	b.busy.Add(1)
	metrics.WorkersBusy.Inc()
	rerun, stop, err := b.safeRun(sub)
	metrics.WorkersBusy.Dec()
	b.busy.Add(-1)

	if err != nil {
		metrics.CallbackFailures.Inc()
		b.logger.Error().
			Err(err).
			Str("subscription", sub.Identity()).
			Msg("delivery run failed; subscription left idle")
	}
	if stop {
		// The subscriber declined further delivery (or failed); discard
		// any owed rerun so it does not spin a worker. The next publish
		// schedules it again.
		sub.owed.Store(false)
	} else if rerun {
		sub.owed.Store(true)
	}
	b.settle(sub)
}

// settle moves a subscription out of the Running state, re-enqueueing it
// when a rerun is owed and delivering the terminal result when it was
// disposed mid-run.
func (b *Broker) settle(sub *Subscription) {
	if sub.owed.CompareAndSwap(true, false) {
		if sub.state.CompareAndSwap(int32(StateRunning), int32(StateQueued)) {
			b.enqueue(sub)
			return
		}
		sub.finalize(b.ctx)
		return
	}
	if !sub.state.CompareAndSwap(int32(StateRunning), int32(StateIdle)) {
		// Only disposal moves a running subscription elsewhere.
		sub.finalize(b.ctx)
		return
	}
	// A Schedule racing with the transition may have flagged owed while
	// the state was still Running, without enqueueing.
	if sub.owed.CompareAndSwap(true, false) {
		b.Schedule(sub)
	}
}

func (b *Broker) safeRun(sub *Subscription) (rerun, stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerun, stop = false, true
			err = fmt.Errorf("subscriber callback panic: %v", r)
		}
	}()
	return sub.run(b.ctx)
}
