package metrics

import "time"

// DefaultCollectInterval is how often the collector recomputes gauges.
const DefaultCollectInterval = 15 * time.Second

// Collector periodically derives interval metrics from the running
// counters, currently just the publish rate gauge.
type Collector struct {
	interval time.Duration
	stopCh   chan struct{}

	lastTotal uint64
	lastAt    time.Time
}

// NewCollector creates a collector. A non-positive interval falls back to
// DefaultCollectInterval.
func NewCollector(interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	c.lastTotal = PublishedTotal()
	c.lastAt = time.Now()

	ticker := time.NewTicker(c.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	now := time.Now()
	total := PublishedTotal()

	elapsed := now.Sub(c.lastAt).Seconds()
	if elapsed > 0 {
		PublishRate.Set(float64(total-c.lastTotal) / elapsed)
	}

	c.lastTotal = total
	c.lastAt = now
}
