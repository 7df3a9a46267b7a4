package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := PublishRate.Write(&m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(0)
	if c.interval != DefaultCollectInterval {
		t.Errorf("expected default interval %v, got %v", DefaultCollectInterval, c.interval)
	}

	c = NewCollector(5 * time.Second)
	if c.interval != 5*time.Second {
		t.Errorf("expected interval 5s, got %v", c.interval)
	}
}

func TestCollectComputesPublishRate(t *testing.T) {
	c := NewCollector(time.Second)

	// Pretend the last sample was one second ago with 100 fewer messages.
	c.lastTotal = PublishedTotal()
	c.lastAt = time.Now().Add(-time.Second)
	for i := 0; i < 100; i++ {
		CountPublished()
	}

	c.collect()

	rate := gaugeValue(t)
	// ~100 msg/s; the elapsed clock read adds a little slack.
	if rate < 50 || rate > 150 {
		t.Errorf("expected rate near 100, got %f", rate)
	}

	if c.lastTotal != PublishedTotal() {
		t.Errorf("collect should advance lastTotal to %d, got %d", PublishedTotal(), c.lastTotal)
	}
}

func TestCollectZeroDelta(t *testing.T) {
	c := NewCollector(time.Second)
	c.lastTotal = PublishedTotal()
	c.lastAt = time.Now().Add(-time.Second)

	c.collect()

	if rate := gaugeValue(t); rate != 0 {
		t.Errorf("expected zero rate, got %f", rate)
	}
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(10 * time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
}

func TestCountPublished(t *testing.T) {
	before := PublishedTotal()
	CountPublished()
	CountPublished()
	if got := PublishedTotal(); got != before+2 {
		t.Errorf("expected total %d, got %d", before+2, got)
	}
}
