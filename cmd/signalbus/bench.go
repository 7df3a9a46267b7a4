package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbhiLegend/SignalR/pkg/log"
	"github.com/AbhiLegend/SignalR/pkg/messagebus"
	"github.com/AbhiLegend/SignalR/pkg/types"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run an in-process publish/subscribe load test",
	Long: `Drive the bus with concurrent publishers and subscribers and report
throughput. Every subscriber listens on every topic, so total deliveries
are publishers * messages * subscribers.

Examples:
  signalbus bench --publishers 4 --subscribers 16 --messages 10000`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int("topics", 8, "Number of topics")
	benchCmd.Flags().Int("publishers", 4, "Concurrent publishers")
	benchCmd.Flags().Int("subscribers", 16, "Concurrent subscribers")
	benchCmd.Flags().Int("messages", 10000, "Messages per publisher")
	benchCmd.Flags().Int("workers", 0, "Broker workers (0 = default)")
	benchCmd.Flags().Duration("timeout", time.Minute, "Abort if deliveries stall")
}

func runBench(cmd *cobra.Command, args []string) error {
	topics, _ := cmd.Flags().GetInt("topics")
	publishers, _ := cmd.Flags().GetInt("publishers")
	subscribers, _ := cmd.Flags().GetInt("subscribers")
	messages, _ := cmd.Flags().GetInt("messages")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	log.Init(log.Config{Level: log.WarnLevel})

	cfg := messagebus.DefaultConfig()
	if workers > 0 {
		cfg.Workers = workers
	}
	bus := messagebus.NewBus(cfg)
	bus.Start()
	defer bus.Stop()

	keys := make([]string, topics)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench.topic-%d", i)
	}

	expected := uint64(publishers * messages)
	var delivered atomic.Uint64
	done := make(chan struct{})
	var doneOnce sync.Once

	handles := make([]*messagebus.SubscriptionHandle, 0, subscribers)
	for i := 0; i < subscribers; i++ {
		sub := messagebus.NewLocalSubscriber(fmt.Sprintf("bench-sub-%d", i), keys...)
		handle, err := bus.Subscribe(sub, "", func(ctx context.Context, r *types.MessageResult) (bool, error) {
			if delivered.Add(uint64(len(r.Messages))) >= expected*uint64(subscribers) {
				doneOnce.Do(func() { close(done) })
			}
			return true, nil
		}, 0)
		if err != nil {
			return err
		}
		handles = append(handles, handle)
	}
	defer func() {
		for _, h := range handles {
			h.Dispose()
		}
	}()

	payload := []byte("benchmark payload")
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(publishers)
	for p := 0; p < publishers; p++ {
		go func(p int) {
			defer wg.Done()
			ctx := context.Background()
			for i := 0; i < messages; i++ {
				msg := types.Message{Key: keys[(p+i)%len(keys)], Value: payload}
				if err := bus.Publish(ctx, msg); err != nil {
					return
				}
			}
		}(p)
	}
	wg.Wait()
	published := time.Since(start)

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("bench stalled: %d of %d deliveries after %s",
			delivered.Load(), expected*uint64(subscribers), timeout)
	}
	total := time.Since(start)

	deliveries := delivered.Load()
	fmt.Printf("Published %d messages in %s (%.0f msg/s)\n",
		expected, published.Round(time.Millisecond), float64(expected)/published.Seconds())
	fmt.Printf("Delivered %d results in %s (%.0f msg/s across %d subscribers)\n",
		deliveries, total.Round(time.Millisecond), float64(deliveries)/total.Seconds(), subscribers)
	fmt.Printf("Broker: %d workers allocated, %d busy at finish\n",
		bus.Broker().AllocatedWorkers(), bus.Broker().BusyWorkers())
	return nil
}
